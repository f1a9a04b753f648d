package config

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ordforge/mint-engine/common"
	"github.com/ordforge/mint-engine/internal/postgres"
	"github.com/ordforge/mint-engine/pkg/logger"
	"github.com/ordforge/mint-engine/pkg/logger/slogx"
	"github.com/ordforge/mint-engine/pkg/middleware/requestlogger"
	"github.com/spf13/viper"
)

var (
	configOnce sync.Once
	config     = &Config{
		Logger: logger.Config{
			Output: "TEXT",
		},
		Network: common.NetworkMainnet,
		HTTPServer: HTTPServer{
			Port: 8080,
		},
		Mempool: MempoolClient{
			BaseURL: "https://mempool.space/api",
			Timeout: 30 * time.Second,
		},
		Generation: GenerationService{
			Timeout: 180 * time.Second,
		},
		Worker: Worker{
			CommitPollInterval:    3 * time.Second,
			CommitPollTimeout:     60 * time.Second,
			RevealSpacing:         500 * time.Millisecond,
			StuckJobTimeout:       5 * time.Minute,
			MaxCollectionsPerPass: 50,
			MaxJobsPerCollection:  20,
			PromotionPollMinAge:   30 * time.Second,
			PromotionPollMaxAge:   30 * time.Minute,
			SessionTTL:            30 * time.Minute,
		},
	}
)

type Config struct {
	Logger     logger.Config     `mapstructure:"logger"`
	Network    common.Network    `mapstructure:"network"`
	HTTPServer HTTPServer        `mapstructure:"http_server"`
	Modules    map[string]Module `mapstructure:"modules"`
	Mempool    MempoolClient     `mapstructure:"mempool"`
	Generation GenerationService `mapstructure:"generation"`
	Video      VideoService      `mapstructure:"video"`
	Storage    Storage           `mapstructure:"storage"`
	Worker     Worker            `mapstructure:"worker"`
	CronSecret string            `mapstructure:"cron_secret"`

	// AdminWallet may trigger job-processing passes with a signed message.
	AdminWallet string `mapstructure:"admin_wallet"`
}

type HTTPServer struct {
	Port   int                  `mapstructure:"port"`
	Logger requestlogger.Config `mapstructure:"logger"`
}

type Module struct {
	Postgres postgres.Config `mapstructure:"postgres"`
}

// MempoolClient configures the mempool HTTP API used for fee data, UTXO
// lookups and transaction broadcast.
type MempoolClient struct {
	BaseURL string `mapstructure:"base_url"`

	// BroadcastURL overrides the broadcast endpoint with a low-fee-tolerant
	// relay. Empty means BaseURL + "/tx".
	BroadcastURL string        `mapstructure:"broadcast_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type GenerationService struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type VideoService struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	CallbackSecret string `mapstructure:"callback_secret"`
}

type Storage struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"` // optional, for S3-compatible stores
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// Worker holds tuning knobs for the mint and studio workers.
type Worker struct {
	// Interval enables the built-in scheduler for job-processing passes.
	// Zero leaves scheduling to the external cron endpoint.
	Interval time.Duration `mapstructure:"interval"`

	CommitPollInterval    time.Duration `mapstructure:"commit_poll_interval"`
	CommitPollTimeout     time.Duration `mapstructure:"commit_poll_timeout"`
	RevealSpacing         time.Duration `mapstructure:"reveal_spacing"`
	StuckJobTimeout       time.Duration `mapstructure:"stuck_job_timeout"`
	MaxCollectionsPerPass int           `mapstructure:"max_collections_per_pass"`
	MaxJobsPerCollection  int           `mapstructure:"max_jobs_per_collection"`
	PromotionPollMinAge   time.Duration `mapstructure:"promotion_poll_min_age"`
	PromotionPollMaxAge   time.Duration `mapstructure:"promotion_poll_max_age"`
	SessionTTL            time.Duration `mapstructure:"session_ttl"`
}

// LoadConfig loads the configuration from config file and environment variables
func LoadConfig() Config {
	ctx := logger.WithContext(context.Background(), slog.String("package", "config"))
	configOnce.Do(func() {
		viper.AddConfigPath("./")
		viper.SetConfigName("config")

		viper.AutomaticEnv()
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		if err := viper.ReadInConfig(); err != nil {
			var errNotfound viper.ConfigFileNotFoundError
			if errors.As(err, &errNotfound) {
				logger.WarnContext(ctx, "config file not found, use default value", slogx.Error(err))
			} else {
				logger.PanicContext(ctx, "invalid config file", slogx.Error(err))
			}
		}

		if err := viper.Unmarshal(&config); err != nil {
			logger.PanicContext(ctx, "failed to unmarshal config", slogx.Error(err))
		}
		logger.InfoContext(ctx, "loaded config from environment variables successfully")
	})

	return *config
}

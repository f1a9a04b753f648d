package video

import (
	"context"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/pkg/httpclient"
)

type Config struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	// CallbackSecret authenticates completion callbacks from the service.
	CallbackSecret string `mapstructure:"callback_secret"`
}

// Client polls the external video-generation service for task status.
type Client struct {
	client *httpclient.Client
}

func NewClient(config Config) (*Client, error) {
	client, err := httpclient.New(config.BaseURL, httpclient.Config{
		Headers: map[string]string{
			"Authorization": "Bearer " + config.APIKey,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "can't create http client")
	}
	return &Client{client: client}, nil
}

// Outcome is the interpreted state of a task status response.
type Outcome int

const (
	// OutcomePending means neither success nor failure was signalled yet.
	OutcomePending Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

const (
	successFlagDone = 1
	failFlagLow     = 2
	failFlagHigh    = 3
)

// TaskStatus is the service's deliberately messy completion signal.
type TaskStatus struct {
	SuccessFlag  int      `json:"successFlag"`
	ResultUrls   []string `json:"resultUrls"`
	ErrorMessage string   `json:"errorMessage"`
}

// Outcome interprets the signal: an out-of-range flag is a failure, a
// success flag with result URLs is a success, anything else means the task
// is still running.
func (s TaskStatus) Outcome() Outcome {
	if s.SuccessFlag == failFlagLow || s.SuccessFlag == failFlagHigh {
		return OutcomeFailure
	}
	if s.SuccessFlag == successFlagDone && len(s.ResultUrls) > 0 {
		return OutcomeSuccess
	}
	return OutcomePending
}

// IsContentPolicyFailure reports whether the failure message blames a
// content-policy violation.
func (s TaskStatus) IsContentPolicyFailure() bool {
	return strings.Contains(strings.ToLower(s.ErrorMessage), "content policy")
}

type recordInfoResponse struct {
	Code int        `json:"code"`
	Msg  string     `json:"msg"`
	Data TaskStatus `json:"data"`
}

// RecordInfo fetches the task status, trying the current endpoint first and
// falling back to the legacy path when the service answers 404.
func (c *Client) RecordInfo(ctx context.Context, taskId string) (TaskStatus, error) {
	query := url.Values{"taskId": {taskId}}

	resp, err := c.client.Get(ctx, "/api/v1/jobs/recordInfo", httpclient.RequestOptions{Query: query})
	if err != nil {
		return TaskStatus{}, errors.Wrap(err, "can't fetch task status")
	}
	if resp.StatusCode() == 404 {
		resp, err = c.client.Get(ctx, "/api/v1/veo/record-info", httpclient.RequestOptions{Query: query})
		if err != nil {
			return TaskStatus{}, errors.Wrap(err, "can't fetch task status from legacy endpoint")
		}
	}
	if resp.StatusCode() == 404 {
		return TaskStatus{}, errors.Wrapf(errs.NotFound, "task %s", taskId)
	}
	if resp.StatusCode() != 200 {
		return TaskStatus{}, errors.Errorf("task status request returned status %d", resp.StatusCode())
	}

	var out recordInfoResponse
	if err := resp.UnmarshalBody(&out); err != nil {
		return TaskStatus{}, errors.Wrap(err, "can't unmarshal task status")
	}
	return out.Data, nil
}

package generation

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ordforge/mint-engine/pkg/httpclient"
)

const defaultTimeout = 180 * time.Second

type Config struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Client talks to the external image-generation service.
type Client struct {
	client *httpclient.Client
	model  string
}

func NewClient(config Config) (*Client, error) {
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	client, err := httpclient.New(config.BaseURL, httpclient.Config{
		Timeout: config.Timeout,
		Headers: map[string]string{
			"Authorization": "Bearer " + config.APIKey,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "can't create http client")
	}
	return &Client{
		client: client,
		model:  config.Model,
	}, nil
}

// ContentPolicyError reports that the service refused the prompt instead of
// rendering it.
type ContentPolicyError struct {
	Message string
}

func (e *ContentPolicyError) Error() string {
	return "content policy violation: " + e.Message
}

const contentPolicyCode = "content_policy_violation"

// Result is one generated image: a fetchable URL, inline base64 bytes, or
// both.
type Result struct {
	ImageURL    string
	ImageBase64 string
}

type generateRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
}

type generateResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateImage renders one image for the prompt. A content-policy refusal
// comes back as *ContentPolicyError so callers can substitute a placeholder.
func (c *Client) GenerateImage(ctx context.Context, prompt, negativePrompt string) (*Result, error) {
	body, err := json.Marshal(generateRequest{
		Model:          c.model,
		Prompt:         prompt,
		NegativePrompt: negativePrompt,
	})
	if err != nil {
		return nil, errors.Wrap(err, "can't marshal request")
	}
	resp, err := c.client.Post(ctx, "/v1/images/generations", httpclient.RequestOptions{Body: body})
	if err != nil {
		return nil, errors.Wrap(err, "can't send generation request")
	}

	var out generateResponse
	if err := resp.UnmarshalBody(&out); err != nil {
		return nil, errors.Wrap(err, "can't unmarshal generation response")
	}
	if out.Error != nil {
		if out.Error.Code == contentPolicyCode || strings.Contains(strings.ToLower(out.Error.Message), "content policy") {
			return nil, errors.WithStack(&ContentPolicyError{Message: out.Error.Message})
		}
		return nil, errors.Errorf("generation service error: %s: %s", out.Error.Code, out.Error.Message)
	}
	if resp.StatusCode() != 200 {
		return nil, errors.Errorf("generation service returned status %d", resp.StatusCode())
	}
	if len(out.Data) == 0 {
		return nil, errors.New("generation service returned no images")
	}
	return &Result{
		ImageURL:    out.Data[0].URL,
		ImageBase64: out.Data[0].B64JSON,
	}, nil
}

// FetchImage downloads a result image by URL. Result URLs are typically
// signed, so the query string must survive the request as-is.
func (c *Client) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	parsed, err := url.Parse(imageURL)
	if err != nil {
		return nil, errors.Wrap(err, "can't parse image url")
	}
	query := parsed.Query()
	parsed.RawQuery = ""
	client, err := httpclient.New(parsed.String())
	if err != nil {
		return nil, errors.Wrap(err, "can't create http client")
	}
	resp, err := client.Get(ctx, "", httpclient.RequestOptions{Query: query})
	if err != nil {
		return nil, errors.Wrap(err, "can't fetch image")
	}
	if resp.StatusCode() != 200 {
		return nil, errors.Errorf("image fetch returned status %d", resp.StatusCode())
	}
	body, err := resp.BodyUncompressed()
	if err != nil {
		return nil, errors.Wrap(err, "can't read image body")
	}
	return body, nil
}

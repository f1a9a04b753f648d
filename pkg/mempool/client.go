package mempool

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/pkg/httpclient"
)

// Client talks to a mempool HTTP API (mempool.space compatible) for fee data,
// address UTXOs, transaction lookups and broadcast.
type Client struct {
	client *httpclient.Client

	// broadcastClient targets a low-fee-tolerant relay. Falls back to the
	// main client when no override is configured.
	broadcastClient *httpclient.Client
}

type Config struct {
	BaseURL      string
	BroadcastURL string
	Timeout      time.Duration
}

func New(cfg Config) (*Client, error) {
	httpConfig := httpclient.Config{Timeout: cfg.Timeout}
	client, err := httpclient.New(cfg.BaseURL, httpConfig)
	if err != nil {
		return nil, errors.Wrap(err, "can't create mempool http client")
	}
	broadcastClient := client
	if cfg.BroadcastURL != "" {
		broadcastClient, err = httpclient.New(cfg.BroadcastURL, httpConfig)
		if err != nil {
			return nil, errors.Wrap(err, "can't create broadcast http client")
		}
	}
	return &Client{
		client:          client,
		broadcastClient: broadcastClient,
	}, nil
}

// RecommendedFees returns the current recommended fee rates.
func (c *Client) RecommendedFees(ctx context.Context) (RecommendedFees, error) {
	resp, err := c.client.Get(ctx, "/v1/fees/recommended", httpclient.RequestOptions{})
	if err != nil {
		return RecommendedFees{}, errors.Wrap(err, "failed to send request")
	}
	if resp.StatusCode() != http.StatusOK {
		return RecommendedFees{}, errors.Errorf("got status %d from %s", resp.StatusCode(), resp.URL)
	}
	var out RecommendedFees
	if err := resp.UnmarshalBody(&out); err != nil {
		return RecommendedFees{}, errors.Wrap(err, "failed to unmarshal response")
	}
	return out, nil
}

// BlockFeeRates returns fee-rate percentiles of recently mined blocks for the
// given interval (e.g. "24h", "1w").
func (c *Client) BlockFeeRates(ctx context.Context, interval string) ([]BlockFeeRates, error) {
	resp, err := c.client.Get(ctx, "/v1/mining/blocks/fee-rates/"+interval, httpclient.RequestOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errors.Errorf("got status %d from %s", resp.StatusCode(), resp.URL)
	}
	var out []BlockFeeRates
	if err := resp.UnmarshalBody(&out); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal response")
	}
	return out, nil
}

// AddressUTXOs returns the unspent outputs of the given address, confirmed
// and unconfirmed.
func (c *Client) AddressUTXOs(ctx context.Context, address string) ([]UTXO, error) {
	if address == "" {
		return nil, errors.Wrap(errs.ArgumentRequired, "address is required")
	}
	resp, err := c.client.Get(ctx, "/address/"+address+"/utxo", httpclient.RequestOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errors.Errorf("got status %d from %s", resp.StatusCode(), resp.URL)
	}
	var out []UTXO
	if err := resp.UnmarshalBody(&out); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal response")
	}
	return out, nil
}

// Tx looks up a transaction by id. Returns errs.NotFound if the node has not
// seen the transaction yet.
func (c *Client) Tx(ctx context.Context, txid string) (Tx, error) {
	if txid == "" {
		return Tx{}, errors.Wrap(errs.ArgumentRequired, "txid is required")
	}
	resp, err := c.client.Get(ctx, "/tx/"+txid, httpclient.RequestOptions{})
	if err != nil {
		return Tx{}, errors.Wrap(err, "failed to send request")
	}
	if resp.StatusCode() == http.StatusNotFound {
		return Tx{}, errors.Wrapf(errs.NotFound, "tx %s not found", txid)
	}
	if resp.StatusCode() != http.StatusOK {
		return Tx{}, errors.Errorf("got status %d from %s", resp.StatusCode(), resp.URL)
	}
	var out Tx
	if err := resp.UnmarshalBody(&out); err != nil {
		return Tx{}, errors.Wrap(err, "failed to unmarshal response")
	}
	return out, nil
}

// BroadcastTx submits a raw transaction hex and returns the txid. Rejections
// are returned as *BroadcastError with retryable/fatal classification.
func (c *Client) BroadcastTx(ctx context.Context, rawTxHex string) (string, error) {
	if rawTxHex == "" {
		return "", errors.Wrap(errs.ArgumentRequired, "rawTxHex is required")
	}
	resp, err := c.broadcastClient.Post(ctx, "/tx", httpclient.RequestOptions{
		Body:   []byte(rawTxHex),
		Header: map[string]string{"Content-Type": "text/plain"},
	})
	if err != nil {
		// transport failure, safe to retry
		return "", errors.WithStack(&BroadcastError{Reason: err.Error(), Retryable: true})
	}
	body := strings.TrimSpace(string(resp.Body()))
	if resp.StatusCode() != http.StatusOK {
		return "", errors.WithStack(newBroadcastError(resp.StatusCode(), body))
	}
	return body, nil
}

package mempool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBroadcastError(t *testing.T) {
	testcases := []struct {
		name         string
		statusCode   int
		body         string
		retryable    bool
		alreadyKnown bool
	}{
		{name: "spent_inputs", statusCode: 400, body: "sendrawtransaction RPC error: bad-txns-inputs-missingorspent", retryable: false},
		{name: "mempool_conflict", statusCode: 400, body: "txn-mempool-conflict", retryable: false},
		{name: "already_known", statusCode: 400, body: "Txn-Already-Known", retryable: false, alreadyKnown: true},
		{name: "already_in_mempool", statusCode: 400, body: "txn-already-in-mempool", retryable: false, alreadyKnown: true},
		{name: "already_mined", statusCode: 400, body: "Transaction already in block chain", retryable: false, alreadyKnown: true},
		{name: "unknown_reason", statusCode: 400, body: "something new and exciting", retryable: true},
		{name: "server_error", statusCode: 503, body: "bad-txns-inputs-missingorspent", retryable: true},
		{name: "empty_body", statusCode: 400, body: "  ", retryable: true},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			err := newBroadcastError(tc.statusCode, tc.body)
			assert.Equal(t, tc.retryable, err.Retryable)
			assert.Equal(t, tc.alreadyKnown, err.AlreadyKnown)
			assert.Equal(t, tc.statusCode, err.StatusCode)
			assert.Contains(t, err.Error(), "broadcast rejected")
		})
	}
}

package mempool

import (
	"fmt"
	"strings"
)

// fatalBroadcastReasons are node rejections that re-submitting the same
// transaction can never fix.
var fatalBroadcastReasons = []string{
	"bad-txns-inputs-missingorspent",
	"txn-mempool-conflict",
	"insufficient fee, rejecting replacement",
	"non-final",
	"scriptsig-not-pushonly",
	"mandatory-script-verify-flag-failed",
}

// alreadyKnownReasons mean the node has already accepted this exact
// transaction, so an earlier broadcast attempt went through.
var alreadyKnownReasons = []string{
	"txn-already-in-mempool",
	"txn-already-known",
	"already in block chain",
}

// BroadcastError is a transaction broadcast rejection. Retryable reports
// whether the same raw transaction may be accepted on a later attempt.
// AlreadyKnown reports that the node has the transaction already; callers
// should treat the broadcast as succeeded.
type BroadcastError struct {
	StatusCode   int
	Reason       string
	Retryable    bool
	AlreadyKnown bool
}

func (e *BroadcastError) Error() string {
	return fmt.Sprintf("broadcast rejected (status %d, retryable %t): %s", e.StatusCode, e.Retryable, e.Reason)
}

// newBroadcastError classifies a node rejection body into retryable vs fatal.
// Unknown reasons are treated as retryable so transient relay hiccups don't
// permanently fail a session.
func newBroadcastError(statusCode int, body string) *BroadcastError {
	reason := strings.TrimSpace(body)
	lower := strings.ToLower(reason)
	for _, known := range alreadyKnownReasons {
		if strings.Contains(lower, known) {
			return &BroadcastError{
				StatusCode:   statusCode,
				Reason:       reason,
				AlreadyKnown: true,
			}
		}
	}
	retryable := true
	for _, fatal := range fatalBroadcastReasons {
		if strings.Contains(lower, fatal) {
			retryable = false
			break
		}
	}
	if statusCode >= 500 {
		retryable = true
	}
	return &BroadcastError{
		StatusCode: statusCode,
		Reason:     reason,
		Retryable:  retryable,
	}
}

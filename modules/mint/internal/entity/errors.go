package entity

import (
	"fmt"
)

// InsufficientFundsError reports that the payment address' confirmed balance
// cannot cover the commit transaction, including the shortfall so the client
// can prompt for a top-up.
type InsufficientFundsError struct {
	Required  int64
	Available int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient confirmed funds: required %d sats, available %d sats (shortfall %d)",
		e.Required, e.Available, e.Shortfall())
}

func (e *InsufficientFundsError) Shortfall() int64 {
	return e.Required - e.Available
}

package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrPlanNotFound indicates that the requested plan (or its items) does not exist
	ErrPlanNotFound = errors.New("plan not found")

	// ErrNoBillableItems indicates that none of the requested items can be charged
	ErrNoBillableItems = errors.New("no billable service items selected")

	// ErrServiceItemNotFound indicates that a requested item does not belong to the plan
	ErrServiceItemNotFound = errors.New("service item not found in plan")

	// ErrNothingToCharge indicates the selected items are fully covered by funding
	ErrNothingToCharge = errors.New("selected items have no out-of-pocket cost")
)

// SignatureVerificationError indicates that a webhook payload failed signature
// verification. Always fatal for that delivery; the payload is never processed.
type SignatureVerificationError struct {
	Err error
}

func (e *SignatureVerificationError) Error() string {
	return fmt.Sprintf("webhook signature verification failed: %v", e.Err)
}

func (e *SignatureVerificationError) Unwrap() error {
	return e.Err
}

// PaymentNotSucceededError indicates that an intent has not reached the
// succeeded state. Recoverable; the caller may poll again later.
type PaymentNotSucceededError struct {
	IntentID string
	Status   string
}

func (e *PaymentNotSucceededError) Error() string {
	return fmt.Sprintf("payment %s has not succeeded (status: %s)", e.IntentID, e.Status)
}

// NotEligibleForRefundError indicates a refund was requested for an intent
// that never succeeded. Terminal for that refund attempt.
type NotEligibleForRefundError struct {
	IntentID string
	Status   string
}

func (e *NotEligibleForRefundError) Error() string {
	return fmt.Sprintf("payment %s is not eligible for refund (status: %s)", e.IntentID, e.Status)
}

// GatewayError wraps a transport or processor failure from the payment
// gateway. Propagated verbatim, never swallowed.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

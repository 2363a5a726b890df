package payment

import (
	"fmt"
	"time"

	"github.com/Zhima-Mochi/sportsphere/internal/domain/apperr"
)

var (
	ErrUnknownMethod      = apperr.Validation("unknown payment method")
	ErrUnsupported        = apperr.Validation("operation not supported by this payment method")
	ErrInvalidSignature   = fmt.Errorf("payment: invalid signature: %w", apperr.ErrPaymentVerification)
	ErrNotComplete        = fmt.Errorf("payment: provider did not report completion: %w", apperr.ErrPaymentVerification)
	ErrVerificationFailed = fmt.Errorf("payment: %w", apperr.ErrPaymentVerification)
)

type Method string

const (
	MethodCOD          Method = "cod"
	MethodBankTransfer Method = "bank_transfer"
	MethodKhalti       Method = "khalti"
	MethodEsewa        Method = "esewa"
)

func ParseMethod(s string) (Method, error) {
	m := Method(s)
	switch m {
	case MethodCOD, MethodBankTransfer, MethodKhalti, MethodEsewa:
		return m, nil
	}
	return "", ErrUnknownMethod
}

// Online reports whether payment happens at a hosted wallet before fulfilment.
func (m Method) Online() bool {
	return m == MethodKhalti || m == MethodEsewa
}

// Status values recorded in Result.Status.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusPending   = "pending"
)

const DefaultFailureReason = "user cancelled"

// Result is a free-form record of the last payment attempt on an order.
type Result struct {
	ID            string `json:"id,omitempty"`
	Status        string `json:"status,omitempty"`
	UpdateTime    string `json:"update_time,omitempty"`
	Provider      string `json:"provider,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
	EmailAddress  string `json:"email_address,omitempty"`
}

func Completed(provider Method, id string, at time.Time) Result {
	return Result{
		ID:         id,
		Status:     StatusCompleted,
		UpdateTime: at.UTC().Format(time.RFC3339),
		Provider:   string(provider),
	}
}

func Failed(provider Method, id, reason string, at time.Time) Result {
	if reason == "" {
		reason = DefaultFailureReason
	}
	return Result{
		ID:            id,
		Status:        StatusFailed,
		UpdateTime:    at.UTC().Format(time.RFC3339),
		Provider:      string(provider),
		FailureReason: reason,
	}
}

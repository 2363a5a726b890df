package payment

import (
	"testing"
	"time"

	"github.com/Zhima-Mochi/sportsphere/internal/domain/apperr"
	"github.com/stretchr/testify/assert"
)

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("esewa")
	assert.NoError(t, err)
	assert.True(t, m.Online())

	m, err = ParseMethod("cod")
	assert.NoError(t, err)
	assert.False(t, m.Online())

	_, err = ParseMethod("paypal")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestFailedDefaultsReason(t *testing.T) {
	r := Failed(MethodEsewa, "o-1", "", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	assert.Equal(t, DefaultFailureReason, r.FailureReason)
	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, "2026-01-02T03:04:05Z", r.UpdateTime)
}

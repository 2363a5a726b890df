package zaplogger

import (
	"errors"
	"testing"

	"github.com/Zhima-Mochi/sportsphere/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWrapCarriesFixedAndScopedFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := Wrap(zap.New(core), observability.F("component", "test"))

	log.With(observability.F("order_id", "o-1")).Info("order_created",
		observability.F("error", errors.New("boom")),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "order_created", entries[0].Message)
	assert.Equal(t, "test", ctx["component"])
	assert.Equal(t, "o-1", ctx["order_id"])
	assert.Equal(t, "boom", ctx["error"])
}

package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFromContext_AddsRequestID(t *testing.T) {
	saved := log.Logger
	savedLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = saved
		zerolog.SetGlobalLevel(savedLevel)
	})

	var buf bytes.Buffer
	initLogger(&buf, "kosher-discovery", "production", "debug")

	ctx := WithRequestID(context.Background(), "req-123")
	LoggerFromContext(ctx).Info().Msg("filtered")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kosher-discovery", line["service"])
	assert.Equal(t, "req-123", line["request_id"])
	assert.Equal(t, "filtered", line["message"])
}

func TestNilMetrics_RecordNothing(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordCacheHit(context.Background())
		m.RecordCacheMiss(context.Background(), "stale")
		m.RecordParseFailure(context.Background())
		m.RecordTimezoneFallback(context.Background())
		m.RecordFilter(context.Background(), 0, 0, false, false)
	})
}

func TestInitMetrics_UsesGlobalProvider(t *testing.T) {
	m, err := InitMetrics()
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.RecordCacheHit(context.Background())
		m.RecordFilter(context.Background(), 1500, 3, true, false)
	})
}

package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup("data-sanitizer", "dev", false)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := SetupWithWriter("data-sanitizer", "1.0.0", true, &buf)
	require.NoError(t, err)

	tr := Tracer("github.com/2hard2touch/smart-data-sanitizer/internal/otel/test")
	_, span := tr.Start(context.Background(), "test.operation")
	assert.True(t, span.SpanContext().IsValid(), "span context should be valid after Setup")
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, shutdown(ctx))
	assert.Contains(t, buf.String(), "test.operation")
}

func TestTracerWithoutSetup(t *testing.T) {
	tr := Tracer("github.com/2hard2touch/smart-data-sanitizer/internal/noop")
	_, span := tr.Start(context.Background(), "noop.operation")
	defer span.End()
	assert.Implements(t, (*trace.Span)(nil), span)
}

func TestSummaryAttributes(t *testing.T) {
	attrs := SummaryAttributes(1, 3, 3)
	require.Len(t, attrs, 3)
	assert.Equal(t, RecordsProcessed, attrs[0].Key)
	assert.Equal(t, int64(3), attrs[2].Value.AsInt64())
}

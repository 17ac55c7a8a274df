package tracing

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRequestID(t *testing.T) {
	first := GenerateRequestID()
	second := GenerateRequestID()

	assert.True(t, strings.HasPrefix(first, "req_"))
	assert.NotEqual(t, first, second)
}

func TestGenerateTraceAndSpanIDs(t *testing.T) {
	traceID := GenerateTraceID()
	spanID := GenerateSpanID()

	assert.Len(t, traceID, 32)
	assert.Len(t, spanID, 16)
	assert.NotEqual(t, GenerateTraceID(), traceID)
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	ctx = WithRequestID(ctx, "req_1")
	ctx = WithTraceID(ctx, "trace_1")
	ctx = WithSpanID(ctx, "span_1")

	assert.Equal(t, "req_1", GetRequestID(ctx))
	assert.Equal(t, "trace_1", GetTraceID(ctx))
	assert.Equal(t, "span_1", GetSpanID(ctx))
}

func TestGettersOnEmptyContext(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, "", GetRequestID(ctx))
	assert.Equal(t, "", GetTraceID(ctx))
	assert.Equal(t, "", GetSpanID(ctx))
	assert.True(t, GetStartTime(ctx).IsZero())
	assert.Equal(t, time.Duration(0), Duration(ctx))
}

func TestWithFullTracing(t *testing.T) {
	ctx := WithFullTracing(context.Background())

	info := GetRequestInfo(ctx)
	assert.NotEmpty(t, info.RequestID)
	assert.NotEmpty(t, info.TraceID)
	assert.NotEmpty(t, info.SpanID)
	assert.False(t, info.StartTime.IsZero())
}

func TestDuration(t *testing.T) {
	ctx := WithStartTime(context.Background(), time.Now().Add(-time.Second))

	d := Duration(ctx)
	assert.GreaterOrEqual(t, d, time.Second)
	assert.Less(t, d, 2*time.Second)
}

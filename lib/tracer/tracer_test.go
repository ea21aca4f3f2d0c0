package tracer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := InitProvider(recorder)
	defer func() {
		require.NoError(t, tp.Shutdown(context.Background()))
	}()

	parent := StartSpan(context.Background(), "view.run")
	parent.SetIntAttribute("workers", 4)
	child := StartSpan(parent.Context(), "view.partition")
	child.SetStringAttribute("policy", "skip")
	child.RecordError(errors.New("boom"))
	child.RecordError(nil)
	child.End()
	parent.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "view.partition", spans[0].Name())
	assert.Equal(t, "view.run", spans[1].Name())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String("policy", "skip"))
	assert.Contains(t, spans[1].Attributes(), attribute.Int("workers", 4))
}

package attributes

import (
	"testing"

	"github.com/mrzor/strace-tree/internal/procmeta"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func envMetadata(env ...string) *procmeta.ProcessMetadata {
	return procmeta.NewProcessMetadata("/bin/true", []string{"true"}, env)
}

func TestTraceIDEvaluator_ValidHex(t *testing.T) {
	evaluator, err := NewTraceIDEvaluator(`env["TRACE_ID"]`)
	require.NoError(t, err)

	traceID, warnings, err := evaluator.EvaluateAndValidate(envMetadata("TRACE_ID=0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	want, err := trace.TraceIDFromHex("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	assert.Equal(t, want, traceID)
}

func TestTraceIDEvaluator_InvalidHexIsHashed(t *testing.T) {
	evaluator, err := NewTraceIDEvaluator(`env["BUILD"]`)
	require.NoError(t, err)

	traceID, warnings, err := evaluator.EvaluateAndValidate(envMetadata("BUILD=build-1234"))
	require.NoError(t, err)
	assert.True(t, traceID.IsValid())
	require.Len(t, warnings, 2)
	assert.Equal(t, "build-1234", warnings[0].Value.AsString())

	again, _, err := evaluator.EvaluateAndValidate(envMetadata("BUILD=build-1234"))
	require.NoError(t, err)
	assert.Equal(t, traceID, again, "hashing is deterministic")
}

func TestTraceIDEvaluator_NoExpression(t *testing.T) {
	evaluator, err := NewTraceIDEvaluator("")
	require.NoError(t, err)

	traceID, warnings, err := evaluator.EvaluateAndValidate(nil)
	require.NoError(t, err)
	assert.False(t, traceID.IsValid())
	assert.Nil(t, warnings)
}

func TestTraceIDEvaluator_NilMetadata(t *testing.T) {
	evaluator, err := NewTraceIDEvaluator(`pathname`)
	require.NoError(t, err)

	_, _, err = evaluator.EvaluateAndValidate(nil)
	assert.Error(t, err)
}

func TestParentIDEvaluator_ValidHex(t *testing.T) {
	evaluator, err := NewParentIDEvaluator(`env["PARENT_SPAN_ID"]`)
	require.NoError(t, err)

	spanID, warnings, err := evaluator.EvaluateAndValidate(envMetadata("PARENT_SPAN_ID=0123456789abcdef"))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	want, err := trace.SpanIDFromHex("0123456789abcdef")
	require.NoError(t, err)
	assert.Equal(t, want, spanID)
}

func TestParentIDEvaluator_InvalidHex(t *testing.T) {
	evaluator, err := NewParentIDEvaluator(`env["PARENT_SPAN_ID"]`)
	require.NoError(t, err)

	spanID, warnings, err := evaluator.EvaluateAndValidate(envMetadata("PARENT_SPAN_ID=nope"))
	require.NoError(t, err)
	assert.False(t, spanID.IsValid())
	assert.Len(t, warnings, 2)
}

func TestParentIDEvaluator_NoExpression(t *testing.T) {
	evaluator, err := NewParentIDEvaluator("")
	require.NoError(t, err)

	spanID, warnings, err := evaluator.EvaluateAndValidate(nil)
	require.NoError(t, err)
	assert.False(t, spanID.IsValid())
	assert.Nil(t, warnings)
}

func TestNewTraceIDEvaluator_CompileError(t *testing.T) {
	_, err := NewTraceIDEvaluator(`env[`)
	assert.Error(t, err)

	_, err = NewParentIDEvaluator(`)(`)
	assert.Error(t, err)
}

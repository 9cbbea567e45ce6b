package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracingOptions_Sampler(t *testing.T) {
	assert.Equal(t, "AlwaysOnSampler", TracingOptions{}.sampler().Description())
	assert.Equal(t, "AlwaysOnSampler", TracingOptions{SampleRatio: 1.5}.sampler().Description())
	assert.Contains(t, TracingOptions{SampleRatio: 0.25}.sampler().Description(), "TraceIDRatioBased{0.25}")
}

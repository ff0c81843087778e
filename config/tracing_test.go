package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOTLPEndpoint(t *testing.T) {
	cases := []struct {
		raw, host, path string
		insecure        bool
	}{
		{"localhost:4318", "localhost:4318", "/v1/traces", true},
		{"http://collector:4318", "collector:4318", "/v1/traces", true},
		{"https://otel.example.com/custom/traces", "otel.example.com", "/custom/traces", false},
		{"  http://collector:4318/  ", "collector:4318", "/v1/traces", true},
	}

	for _, tc := range cases {
		host, path, insecure, err := parseOTLPEndpoint(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.host, host, tc.raw)
		assert.Equal(t, tc.path, path, tc.raw)
		assert.Equal(t, tc.insecure, insecure, tc.raw)
	}
}

func TestParseOTLPEndpoint_Rejects(t *testing.T) {
	for _, raw := range []string{"", "collector:4318/v1/traces", "grpc://collector:4317", "http://"} {
		_, _, _, err := parseOTLPEndpoint(raw)
		assert.Error(t, err, raw)
	}
}

func TestNewTracingConfig(t *testing.T) {
	t.Setenv("OTEL_TRACES_ENABLED", "true")
	t.Setenv("OTEL_SERVICE_NAME", "kennel-staging")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")
	t.Setenv("APP_ENV", "Staging")

	cfg := NewTracingConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "kennel-staging", cfg.ServiceName)
	assert.Equal(t, "staging", cfg.Environment)
	assert.InDelta(t, 0.25, cfg.SampleRatio, 1e-9)

	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "7")
	assert.InDelta(t, 1.0, NewTracingConfig().SampleRatio, 1e-9)
}

func TestSetupTracing_DisabledIsNoop(t *testing.T) {
	shutdown, err := SetupTracing(nil, &TracingConfig{Enabled: false})
	assert.NoError(t, err)
	assert.Nil(t, shutdown)
}

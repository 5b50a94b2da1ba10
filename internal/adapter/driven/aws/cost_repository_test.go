package aws

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/retailops/finops-correlator/internal/domain/entity"
)

func TestCategorizeUsageType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		meterName   string
		costType    string
		tokenType   string
		modelFamily string
	}{
		{"claude input tokens", "USE1-Claude-3-5-Sonnet-input-tokens", "token", "input", "claude"},
		{"claude output tokens", "USE1-Claude-3-5-Sonnet-output-tokens", "token", "output", "claude"},
		{"titan tokens without direction", "Titan-Text-tokens", "token", "", "titan"},
		{"llama requests", "Llama3-invocation-requests", "request", "", "llama"},
		{"mistral provisioned", "Mistral-provisioned-throughput", "provisioned", "", "mistral"},
		{"nova commitment", "Nova-commitment-hours", "provisioned", "", "nova"},
		{"unrecognized", "DataTransfer-Out-Bytes", "other", "", "other"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			event := entity.CostEvent{MeterName: tt.meterName}
			categorizeUsageType(&event)
			require.Equal(t, tt.costType, event.CostType)
			require.Equal(t, tt.tokenType, event.TokenType)
			require.Equal(t, tt.modelFamily, event.ModelFamily)
			require.Equal(t, tt.tokenType != "", event.IsTokenBased())
		})
	}
}

func TestParseMetric(t *testing.T) {
	t.Parallel()

	amount := "12.5"
	require.Equal(t, 12.5, parseMetric(&amount))

	bad := "n/a"
	require.Zero(t, parseMetric(&bad))
	require.Zero(t, parseMetric(nil))
}

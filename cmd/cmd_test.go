package cmd

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/carbon-match/internal/embedding"
)

func TestParsePromptValue(t *testing.T) {
	tests := []struct {
		raw    string
		expect any
		err    bool
	}{
		{raw: "500", expect: json.Number("500")},
		{raw: " [37.77, -122.41] ", expect: []any{json.Number("37.77"), json.Number("-122.41")}},
		{raw: `{"Status": "Planned"}`, expect: map[string]any{"Status": "Planned"}},
		{raw: "Direct air capture startup", expect: "Direct air capture startup"},
		{raw: "500 tons", expect: "500 tons"},
		{raw: "[1, 2", err: true},
		{raw: `{"Status":`, err: true},
	}

	for _, tt := range tests {
		got, err := parsePromptValue(tt.raw)
		if tt.err {
			assert.Error(t, err, tt.raw)
			continue
		}
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.expect, got, tt.raw)
	}
}

func TestOperationFields(t *testing.T) {
	fields, err := operationFields("location-match")
	require.NoError(t, err)
	assert.Equal(t, []string{"funder_location", "fundee_location"}, fields)

	all, err := operationFields(allScores)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"trial_data", "total_credits", "expected_credits", "amount_invested",
		"funder_description", "fundee_description", "funder_location", "fundee_location",
		"funder_capability", "fundee_needs",
	}, all)

	_, err = operationFields("carbon-score")
	assert.Error(t, err)
}

func TestRequiredFields(t *testing.T) {
	assert.Equal(t, map[string]bool{"funder_location": true, "fundee_location": true}, requiredFields("location-match"))
	assert.Empty(t, requiredFields("efficiency-score"))

	all := requiredFields(allScores)
	assert.Len(t, all, 7)
	assert.True(t, all["trial_data"])
	assert.True(t, all["fundee_needs"])
	assert.False(t, all["total_credits"])
}

func TestReadBodyFromStdin(t *testing.T) {
	body, err := readBody("-", strings.NewReader(`{"total_credits": 1000}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("1000"), body["total_credits"])

	_, err = readBody("/does/not/exist.json", nil)
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	p, err := newProvider(ctx, &EmbeddingConfig{Provider: "hash", Dimension: 32}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 32, p.Dimension())
	assert.Equal(t, "hash", embedding.NameOf(p))

	p, err = newProvider(ctx, &EmbeddingConfig{Provider: "none"}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = newProvider(ctx, &EmbeddingConfig{Provider: "openai"}, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported embedding provider")
}

func TestNewEngineWithoutKeyFallsBack(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	engine := newEngine(context.Background(), &EmbeddingConfig{Provider: "gemini", Gemini: &GeminiConfig{}}, zap.NewNop(), nil)

	assert.Nil(t, engine.Provider())
	assert.NotNil(t, engine)
}

func TestRedactedConfig(t *testing.T) {
	config := &Config{Embedding: &EmbeddingConfig{Gemini: &GeminiConfig{APIKey: "secret", Model: "m"}}}

	out := redacted(config)

	assert.Equal(t, "<redacted>", out.Embedding.Gemini.APIKey)
	assert.Equal(t, "m", out.Embedding.Gemini.Model)
	assert.Equal(t, "secret", config.Embedding.Gemini.APIKey)
}

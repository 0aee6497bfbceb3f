package builder

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabel(t *testing.T) {
	tests := map[string]string{
		"maxKeywords": "Max keywords",
		"url":         "Url",
		"modelUrl":    "Model url",
		"threshold":   "Threshold",
		"":            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Label(in), in)
	}
}

func TestInferFields(t *testing.T) {
	cfg := map[string]any{
		"endpointPath": "/v1",
		"callbackUrl":  "",
		"apiKey":       "",
		"authToken":    "t",
		"prompt":       strings.Repeat("p", longTextThreshold+1),
		"title":        "short",
		"limit":        5,
		"minScore":     json.Number("0.2"),
		"threshold":    0.5,
		"enabled":      false,
		"rules":        []any{},
		"tags":         []string{"a"},
		"headers":      map[string]any{},
		"missing":      nil,
	}

	got := map[string]FieldSpec{}
	var order []string
	for _, f := range InferFields("custom", cfg) {
		got[f.Key] = f
		order = append(order, f.Key)
	}

	assert.IsIncreasing(t, order)
	assert.Equal(t, KindURL, got["endpointPath"].Kind)
	assert.Equal(t, KindURL, got["callbackUrl"].Kind)
	assert.Equal(t, KindSecret, got["apiKey"].Kind)
	assert.Equal(t, KindSecret, got["authToken"].Kind)
	assert.Equal(t, KindTextArea, got["prompt"].Kind)
	assert.Equal(t, KindText, got["title"].Kind)
	assert.Equal(t, FieldSpec{Key: "limit", Kind: KindNumber, Label: "Limit", Step: 1}, got["limit"])
	assert.Equal(t, 0.1, got["minScore"].Step)
	assert.Equal(t, 0.1, got["threshold"].Step)
	assert.Equal(t, KindToggle, got["enabled"].Kind)
	assert.True(t, got["rules"].ReadOnly())
	assert.True(t, got["tags"].ReadOnly())
	assert.NotContains(t, got, "headers")
	assert.NotContains(t, got, "missing")
}

func TestInferFields_TypeSpecificSelects(t *testing.T) {
	t.Run("Sentiment", func(t *testing.T) {
		fields := InferFields("sentiment-analysis", map[string]any{"threshold": 0.5})
		require.Len(t, fields, 2)
		last := fields[1]
		assert.Equal(t, KindSelect, last.Kind)
		assert.Equal(t, "model", last.Key)
		assert.Equal(t, []string{"default", "bert", "roberta", "custom"}, last.Options)
	})

	t.Run("Webhook", func(t *testing.T) {
		fields := InferFields("webhook", map[string]any{"url": ""})
		require.Len(t, fields, 2)
		assert.Equal(t, KindURL, fields[0].Kind)
		assert.Equal(t, []string{"GET", "POST", "PUT", "PATCH"}, fields[1].Options)
	})
}

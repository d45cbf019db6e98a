package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	t.Run("plain object", func(t *testing.T) {
		got, err := extractJSONObject(`{"make": "Toyota"}`)
		require.NoError(t, err)
		assert.Equal(t, `{"make": "Toyota"}`, got)
	})

	t.Run("markdown fenced", func(t *testing.T) {
		got, err := extractJSONObject("```json\n{\"make\": \"BMW\", \"model\": \"X5\"}\n```")
		require.NoError(t, err)
		assert.Equal(t, `{"make": "BMW", "model": "X5"}`, got)
	})

	t.Run("surrounding prose", func(t *testing.T) {
		got, err := extractJSONObject(`Here is the result: {"confidence": 0.8} as requested.`)
		require.NoError(t, err)
		assert.Equal(t, `{"confidence": 0.8}`, got)
	})

	t.Run("no object", func(t *testing.T) {
		_, err := extractJSONObject("I cannot identify the car.")
		assert.Error(t, err)
	})
}

func TestParseDetection(t *testing.T) {
	t.Run("full result", func(t *testing.T) {
		res, err := parseDetection(`{"make": "Toyota", "model": "Corolla", "confidence": 0.85}`)
		require.NoError(t, err)
		assert.Equal(t, "Toyota", res.Make)
		assert.Equal(t, "Corolla", res.Model)
		assert.InDelta(t, 0.85, res.Confidence, 0.001)
	})

	t.Run("empty fields when unidentifiable", func(t *testing.T) {
		res, err := parseDetection(`{"make": "", "model": "", "confidence": 0.1}`)
		require.NoError(t, err)
		assert.Empty(t, res.Make)
		assert.Empty(t, res.Model)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := parseDetection(`{"make": `)
		assert.Error(t, err)
	})
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	for _, key := range []string{"DATABASE_URL", "REDIS_URL", "EVENT_BUS_NAME", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "DYNAMIC_CONFIG_PATH"} {
		t.Setenv(key, "")
	}
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestCLI(t *testing.T) {
	t.Run("Should score identical texts as fully similar", func(t *testing.T) {
		out := runCLI(t, "similarity", "--json", "build a garden app", "build a garden app")

		var res map[string]float64
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		assert.InDelta(t, 1.0, res["similarity"], 0.0001)
	})

	t.Run("Should report empty embedding coverage on a fresh store", func(t *testing.T) {
		out := runCLI(t, "embeddings", "stats", "--json=false")
		assert.Contains(t, out, "ideas:     0")
	})

	t.Run("Should report no matches when nothing was captured", func(t *testing.T) {
		out := runCLI(t, "search", "--json=false", "meditation")
		assert.Contains(t, out, "no matching ideas")
	})
}

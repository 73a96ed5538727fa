//go:build integration

package generativeAI

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// Skip all tests if no API key is provided
	if os.Getenv("GOOGLE_GEMINI_API_KEY") == "" {
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func TestAIClient_GenerateContent_Integration(t *testing.T) {
	ctx := context.Background()

	client, err := NewAIClient(ctx, Config{
		APIKey:  os.Getenv("GOOGLE_GEMINI_API_KEY"),
		Timeout: 60 * time.Second,
	})
	require.NoError(t, err)

	t.Run("Generate content with simple prompt", func(t *testing.T) {
		response, err := client.GenerateContent(ctx, "What is the capital of Portugal?")
		require.NoError(t, err)
		assert.Contains(t, response, "Lisbon")
	})

	t.Run("Generate JSON-shaped travel answer", func(t *testing.T) {
		prompt := `List 2 must-visit attractions in Paris as JSON: {"attractions": ["..."]}`
		response, err := client.GenerateContent(ctx, prompt)
		require.NoError(t, err)
		assert.Contains(t, response, "{")
		lower := strings.ToLower(response)
		assert.True(t,
			strings.Contains(lower, "eiffel") ||
				strings.Contains(lower, "louvre") ||
				strings.Contains(lower, "notre"),
			"Response should mention famous Paris attractions")
	})
}

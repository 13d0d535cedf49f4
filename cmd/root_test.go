package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubcommandsRegistered(t *testing.T) {
	want := []string{"buckets", "ingest", "documents", "ask", "migrate", "version"}

	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, names[name], "command %q not registered", name)
	}
}

func TestBucketsSubcommands(t *testing.T) {
	var buckets []string
	for _, c := range bucketsCmd.Commands() {
		buckets = append(buckets, c.Name())
	}
	assert.ElementsMatch(t, []string{"create", "list", "delete"}, buckets)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short text", snippet("short   text", 120))

	long := strings.Repeat("word ", 50)
	got := snippet(long, 20)
	require.True(t, strings.HasSuffix(got, "..."))
	assert.Len(t, got, 23)
}

func TestCheckRequiredEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	require.Error(t, checkRequiredEnv())

	t.Setenv("GEMINI_API_KEY", "test-key")
	require.NoError(t, checkRequiredEnv())
}

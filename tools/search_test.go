package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lexandro/contentsieve/item"
)

func newTestSearchHandler(t *testing.T) *SearchHandler {
	t.Helper()
	cat, outDir := newTestCatalog(t)
	addFile(t, cat, outDir, "code", "main.go", "package main\n\nfunc main() {\n\tfmt.Println(\"hello world\")\n}\n")
	addFile(t, cat, outDir, "docs", "guide.md", "# Guide\n\nSay hello to the team.\n")
	require.NoError(t, cat.AddSample(&item.Sample{
		ID:       "s1",
		UnitID:   "p0001",
		Prompt:   "Greet someone",
		Domain:   "chat",
		Producer: "fake:a",
		Response: "hello there, friend",
	}))
	return &SearchHandler{Catalog: cat, Logger: zap.NewNop()}
}

func Test_SearchHandler_EmptyQuery(t *testing.T) {
	h := newTestSearchHandler(t)

	result, _, err := h.Handle(context.Background(), nil, SearchArgs{Query: ""})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "query parameter is required")
}

func Test_SearchHandler_RejectsUnknownKind(t *testing.T) {
	h := newTestSearchHandler(t)

	result, _, err := h.Handle(context.Background(), nil, SearchArgs{Query: "hello", Kind: "folder"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "kind must be")
}

func Test_SearchHandler_FindsFilesAndSamples(t *testing.T) {
	h := newTestSearchHandler(t)

	result, _, err := h.Handle(context.Background(), nil, SearchArgs{Query: "hello"})
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "code/main.go")
	assert.Contains(t, text, "docs/guide.md")
	assert.Contains(t, text, "samples/p0001/s1")
}

func Test_SearchHandler_KindFilter(t *testing.T) {
	h := newTestSearchHandler(t)

	result, _, err := h.Handle(context.Background(), nil, SearchArgs{Query: "hello", Kind: "sample"})
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "samples/p0001/s1")
	assert.NotContains(t, text, "code/main.go")
}

func Test_SearchHandler_NoResults(t *testing.T) {
	h := newTestSearchHandler(t)

	result, _, err := h.Handle(context.Background(), nil, SearchArgs{Query: "nonexistent"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "No matches found.", resultText(t, result))
}

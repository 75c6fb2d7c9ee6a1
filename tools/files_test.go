package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestFilesHandler(t *testing.T) *FilesHandler {
	t.Helper()
	cat, outDir := newTestCatalog(t)
	addFile(t, cat, outDir, "code", "main.go", "package main\n")
	addFile(t, cat, outDir, "code", "util.go", "package main\n\nfunc helper() {}\n")
	addFile(t, cat, outDir, "docs", "readme.md", "# readme\n")
	return &FilesHandler{Catalog: cat, Logger: zap.NewNop()}
}

func Test_FilesHandler_EmptyPattern(t *testing.T) {
	h := newTestFilesHandler(t)

	result, _, err := h.Handle(context.Background(), nil, FilesArgs{Pattern: ""})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "pattern parameter is required")
}

func Test_FilesHandler_GlobSearch(t *testing.T) {
	h := newTestFilesHandler(t)

	result, _, err := h.Handle(context.Background(), nil, FilesArgs{Pattern: "code/*.go"})
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "Found 2 entries")
	assert.Contains(t, text, "code/main.go")
	assert.Contains(t, text, "code/util.go")
	assert.NotContains(t, text, "readme.md")
	assert.Contains(t, text, "quality 90")
}

func Test_FilesHandler_NameOnly(t *testing.T) {
	h := newTestFilesHandler(t)

	result, _, err := h.Handle(context.Background(), nil, FilesArgs{Pattern: "**/*.md", NameOnly: true})
	require.NoError(t, err)
	assert.Equal(t, "Found 1 entries:\n\ndocs/readme.md\n", resultText(t, result))
}

func Test_FilesHandler_InvalidPattern(t *testing.T) {
	h := newTestFilesHandler(t)

	result, _, err := h.Handle(context.Background(), nil, FilesArgs{Pattern: "code/[*.go"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func Test_FilesHandler_NoResults(t *testing.T) {
	h := newTestFilesHandler(t)

	result, _, err := h.Handle(context.Background(), nil, FilesArgs{Pattern: "**/*.rs"})
	require.NoError(t, err)
	assert.Equal(t, "No entries matched.", resultText(t, result))
}

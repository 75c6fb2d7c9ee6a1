package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestReadHandler(t *testing.T) *ReadHandler {
	t.Helper()
	cat, outDir := newTestCatalog(t)
	addFile(t, cat, outDir, "docs", "notes.md", "line1\nline2\nline3\nline4")
	return &ReadHandler{Catalog: cat, Logger: zap.NewNop()}
}

func Test_ReadHandler_EmptyRef(t *testing.T) {
	h := newTestReadHandler(t)

	result, _, err := h.Handle(context.Background(), nil, ReadArgs{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "ref parameter is required")
}

func Test_ReadHandler_NotFound(t *testing.T) {
	h := newTestReadHandler(t)

	result, _, err := h.Handle(context.Background(), nil, ReadArgs{Ref: "docs/missing.md"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "docs/missing.md")
}

func Test_ReadHandler_Success(t *testing.T) {
	h := newTestReadHandler(t)

	result, _, err := h.Handle(context.Background(), nil, ReadArgs{Ref: "docs/notes.md"})
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "── docs/notes.md (4 lines) ──\n1│ line1\n2│ line2\n3│ line3\n4│ line4\n", resultText(t, result))
}

func Test_ReadHandler_WithOffsetAndLimit(t *testing.T) {
	h := newTestReadHandler(t)

	result, _, err := h.Handle(context.Background(), nil, ReadArgs{Ref: "docs/notes.md", Offset: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, "── docs/notes.md (4 lines) ──\n2│ line2\n3│ line3\n", resultText(t, result))
}

package tools

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/lexandro/contentsieve/catalog"
	"github.com/lexandro/contentsieve/item"
)

func newTestCatalog(t *testing.T) (*catalog.Catalog, string) {
	t.Helper()
	outDir := t.TempDir()
	cat, err := catalog.New(outDir)
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })
	return cat, outDir
}

// addFile writes content under outDir/category and catalogs it as accepted.
func addFile(t *testing.T, cat *catalog.Catalog, outDir, category, name, content string) {
	t.Helper()
	dest := filepath.Join(outDir, category, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o755))
	require.NoError(t, os.WriteFile(dest, []byte(content), 0o644))
	require.NoError(t, cat.AddItem(&item.Item{
		ID:           name,
		Path:         filepath.Join("/src", name),
		Name:         name,
		Category:     category,
		SizeBytes:    int64(len(content)),
		QualityScore: 90,
		Destination:  dest,
	}))
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

// Package server exposes the catalog and organize runs as MCP tools over stdio.
package server

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/contentsieve/tools"
)

// Name is the MCP implementation name and the default registration key.
const Name = "contentsieve"

// Handlers groups the tool handlers registered on the server.
type Handlers struct {
	Organize *tools.OrganizeHandler
	Status   *tools.StatusHandler
	Search   *tools.SearchHandler
	Files    *tools.FilesHandler
	Read     *tools.ReadHandler
}

// Setup creates and configures the MCP server with all tool registrations.
func Setup(version string, h Handlers) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    Name,
			Version: version,
		},
		&mcp.ServerOptions{
			Instructions: `This server organizes files from configured source roots into category folders, skipping duplicates and low-quality files, and keeps a searchable catalog of everything it accepted.

- Use sieve_organize to run an organize pass with the server's configuration
- Use sieve_status to see the catalog size and the last run's summary
- Use sieve_search for full-text search over accepted files and samples
- Use sieve_files to list accepted entries by glob
- Use sieve_read to read an accepted entry's text
The catalog is rebuilt as runs accept content; originals are never modified.`,
		},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "sieve_organize",
		Description: `Scan the configured roots, drop exact duplicates and files below the quality threshold, and copy the rest into <output>/<category>/.

Content already in the output directory counts as seen when seeding is enabled, so repeated runs do not copy it again. Pass reset=true to empty the catalog first. Returns the run summary.`,
	}, h.Organize.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "sieve_status",
		Description: "Show catalog status (entries, size, categories, memory, uptime) and the summary of the last organize run.",
	}, h.Status.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "sieve_search",
		Description: `Search the text of accepted files and samples.

Query formats:
  - Plain text: word-level matching (e.g., "invoice")
  - "quoted text": exact phrase matching (e.g., "\"quarterly report\"")
  - /regex/: regular expression matching (e.g., "/inv-\d+/")

Filtering:
  - glob: doublestar pattern over refs (e.g., "docs/**" or "samples/**").
  - kind: "file" or "sample".`,
	}, h.Search.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "sieve_files",
		Description: `List accepted entries by glob over their refs. File refs are relative to the output directory (<category>/<name>); sample refs are samples/<unit>/<id>.

Pattern examples:
  - "docs/*" - every accepted document
  - "**/*.go" - Go files in any category
  - "samples/**" - every accepted sample`,
	}, h.Files.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "sieve_read",
		Description: `Read an accepted entry's indexed text by ref. Returns numbered lines (format: "N│ content"); offset and limit select a line range. Binary and oversized files are listed by sieve_files but have no text.`,
	}, h.Read.Handle)

	return mcpServer
}

package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func Test_StatusHandler_BeforeAnyRun(t *testing.T) {
	cat, outDir := newTestCatalog(t)
	addFile(t, cat, outDir, "code", "main.go", "package main\n")
	addFile(t, cat, outDir, "code", "util.go", "package main\n")
	addFile(t, cat, outDir, "docs", "readme.md", "# readme\n")

	h := &StatusHandler{
		Catalog:   cat,
		State:     &RunState{},
		StartTime: time.Now().Add(-5 * time.Minute),
		OutputDir: outDir,
		Logger:    zap.NewNop(),
	}

	result, _, err := h.Handle(context.Background(), nil, StatusArgs{})
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "Output directory: "+outDir)
	assert.Contains(t, text, "Uptime: 5m0s")
	assert.Contains(t, text, "Cataloged entries: 3")
	assert.Contains(t, text, "Full-text documents: 3")
	assert.Contains(t, text, "code                 2 entries")
	assert.Contains(t, text, "docs                 1 entries")
	assert.Less(t, strings.Index(text, "code "), strings.Index(text, "docs "))
	assert.Contains(t, text, "No organize run yet.")
}

func Test_StatusHandler_ShowsLastRun(t *testing.T) {
	organize, cfg := newOrganizeHandler(t)
	_, _, err := organize.Handle(context.Background(), nil, OrganizeArgs{})
	require.NoError(t, err)

	h := &StatusHandler{
		Catalog:   organize.Catalog,
		State:     organize.State,
		StartTime: time.Now(),
		OutputDir: cfg.OutputDir,
		Logger:    zap.NewNop(),
	}

	result, _, err := h.Handle(context.Background(), nil, StatusArgs{})
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "Last run finished")
	assert.Contains(t, text, "=== contentsieve organize run")
	assert.NotContains(t, text, "No organize run yet.")
}

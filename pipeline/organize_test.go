package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lexandro/contentsieve/catalog"
	"github.com/lexandro/contentsieve/config"
	"github.com/lexandro/contentsieve/item"
	"github.com/lexandro/contentsieve/metrics"
	"github.com/lexandro/contentsieve/report"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func organizeConfig(t *testing.T, roots ...string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Roots = roots
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.QualityThreshold = 0
	return cfg
}

func newOrganizer(t *testing.T, cfg *config.Config, options Options) *Organizer {
	t.Helper()
	o, err := NewOrganizer(cfg, options, zap.NewNop())
	require.NoError(t, err)
	return o
}

func Test_Organizer_KeepsCanonicalCopyAndRejectsDuplicate(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "identical bytes in both files")
	writeFile(t, filepath.Join(root, "b.txt"), "identical bytes in both files")
	writeFile(t, filepath.Join(root, "c.txt"), "something else entirely")
	cfg := organizeConfig(t, root)

	result := newOrganizer(t, cfg, Options{}).Run(context.Background())
	snap := result.Snapshot

	assert.Equal(t, int64(3), snap.ItemsSeen)
	assert.Equal(t, int64(2), snap.Buckets[metrics.BucketOrganized])
	assert.Equal(t, int64(1), snap.Buckets[metrics.BucketDuplicate])
	assert.Equal(t, int64(1), snap.DuplicatesFound)
	assert.True(t, snap.Conserved())
	assert.NoError(t, result.ExportErr)

	assert.FileExists(t, filepath.Join(cfg.OutputDir, "docs", "a.txt"))
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "docs", "c.txt"))
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "docs", "b.txt"))

	verdicts := map[string]item.Verdict{}
	for _, rec := range result.Report.Items {
		verdicts[filepath.Base(rec.Path)] = rec.Verdict
	}
	assert.Equal(t, map[string]item.Verdict{
		"a.txt": item.VerdictAccepted,
		"b.txt": item.VerdictRejectDuplicate,
		"c.txt": item.VerdictAccepted,
	}, verdicts)
}

func Test_Organizer_CopiesWithoutTouchingOriginals(t *testing.T) {
	root := t.TempDir()
	original := filepath.Join(root, "notes.md")
	writeFile(t, original, "# notes\nkeep me exactly as I am\n")
	before, err := os.ReadFile(original)
	require.NoError(t, err)
	cfg := organizeConfig(t, root)

	newOrganizer(t, cfg, Options{}).Run(context.Background())

	after, err := os.ReadFile(original)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	copied, err := os.ReadFile(filepath.Join(cfg.OutputDir, "docs", "notes.md"))
	require.NoError(t, err)
	assert.Equal(t, before, copied)
}

func Test_Organizer_CollidingNamesGetSuffixes(t *testing.T) {
	rootA, rootB := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(rootA, "readme.md"), "first readme body")
	writeFile(t, filepath.Join(rootB, "readme.md"), "second readme body")
	cfg := organizeConfig(t, rootA, rootB)

	result := newOrganizer(t, cfg, Options{}).Run(context.Background())
	require.Equal(t, int64(2), result.Snapshot.Buckets[metrics.BucketOrganized])

	first, err := os.ReadFile(filepath.Join(cfg.OutputDir, "docs", "readme.md"))
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(cfg.OutputDir, "docs", "readme_1.md"))
	require.NoError(t, err)
	assert.Equal(t, "first readme body", string(first))
	assert.Equal(t, "second readme body", string(second))
}

func Test_Organizer_MissingRootStillReports(t *testing.T) {
	cfg := organizeConfig(t, filepath.Join(t.TempDir(), "does-not-exist"))

	result := newOrganizer(t, cfg, Options{}).Run(context.Background())
	snap := result.Snapshot

	assert.Zero(t, snap.TotalScanned)
	assert.Zero(t, snap.ItemsSeen)
	assert.True(t, snap.Conserved())
	require.Len(t, snap.Errors, 1)
	assert.Equal(t, "scan", snap.Errors[0].Stage)

	got, err := report.ReadReport(filepath.Join(cfg.ResolvedReportDir(), report.ReportFile))
	require.NoError(t, err)
	assert.Zero(t, got.Run.TotalScanned)
	assert.FileExists(t, filepath.Join(cfg.ResolvedReportDir(), report.SummaryFile))
}

func Test_Organizer_ArchivesLowQualityWhenConfigured(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "good.txt"), "plenty of content to clear the size floor")
	writeFile(t, filepath.Join(root, "tiny.txt"), "x")
	cfg := organizeConfig(t, root)
	cfg.QualityThreshold = 100
	cfg.ArchiveDir = filepath.Join(t.TempDir(), "archive")

	result := newOrganizer(t, cfg, Options{}).Run(context.Background())
	snap := result.Snapshot

	assert.Equal(t, int64(1), snap.Buckets[metrics.BucketOrganized])
	assert.Equal(t, int64(1), snap.Buckets[metrics.BucketArchived])
	assert.Zero(t, snap.Buckets[metrics.BucketQualityFailed])
	assert.True(t, snap.Conserved())
	assert.FileExists(t, filepath.Join(cfg.ArchiveDir, "docs", "tiny.txt"))
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "docs", "tiny.txt"))
}

func Test_Organizer_LowQualityWithoutArchiveIsRejected(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tiny.txt"), "x")
	cfg := organizeConfig(t, root)
	cfg.QualityThreshold = 100

	snap := newOrganizer(t, cfg, Options{}).Run(context.Background()).Snapshot

	assert.Equal(t, int64(1), snap.Buckets[metrics.BucketQualityFailed])
	assert.Equal(t, int64(1), snap.QualityFailed)
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "docs", "tiny.txt"))
}

func Test_Organizer_UnreadableItemIsStillScoredAndCounted(t *testing.T) {
	root := t.TempDir()
	good := filepath.Join(root, "a.txt")
	vanishing := filepath.Join(root, "b.txt")
	writeFile(t, good, "plenty of content to clear the size floor")
	writeFile(t, vanishing, "x")
	cfg := organizeConfig(t, root)
	cfg.QualityThreshold = 100
	cfg.BatchSize = 1

	// b.txt is scanned, then removed before its batch is hashed.
	progress := func(e metrics.Event) {
		if e.Phase == metrics.PhaseRoute && e.Ref == good {
			_ = os.Remove(vanishing)
		}
	}
	result := newOrganizer(t, cfg, Options{Progress: progress}).Run(context.Background())
	snap := result.Snapshot

	assert.Equal(t, int64(2), snap.ItemsSeen)
	assert.Equal(t, int64(1), snap.Buckets[metrics.BucketOrganized])
	assert.Equal(t, int64(1), snap.Buckets[metrics.BucketQualityFailed])
	assert.True(t, snap.Conserved())
	require.Len(t, snap.Errors, 1)
	assert.Equal(t, "hash", snap.Errors[0].Stage)
	assert.Equal(t, vanishing, snap.Errors[0].Ref)

	require.Len(t, result.Report.Items, 2)
	rec := result.Report.Items[1]
	assert.Equal(t, vanishing, rec.Path)
	assert.Empty(t, rec.ContentHash)
	assert.Equal(t, item.VerdictRejectLowQuality, rec.Verdict)
	assert.Positive(t, rec.QualityScore)
}

func Test_Organizer_SeedingPreventsRecopying(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "alpha content")
	writeFile(t, filepath.Join(root, "b.go"), "package b")
	cfg := organizeConfig(t, root)
	cfg.SeedFromOutput = true
	o := newOrganizer(t, cfg, Options{})

	first := o.Run(context.Background()).Snapshot
	require.Equal(t, int64(2), first.Buckets[metrics.BucketOrganized])

	second := o.Run(context.Background()).Snapshot
	assert.Zero(t, second.Buckets[metrics.BucketOrganized])
	assert.Equal(t, int64(2), second.Buckets[metrics.BucketDuplicate])
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "docs", "a_1.txt"))
}

func Test_Organizer_SkipsOutputInsideRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "alpha content")
	cfg := organizeConfig(t, root)
	cfg.OutputDir = filepath.Join(root, "sorted")
	o := newOrganizer(t, cfg, Options{})

	first := o.Run(context.Background()).Snapshot
	second := o.Run(context.Background()).Snapshot

	assert.Equal(t, int64(1), first.ItemsSeen)
	assert.Equal(t, int64(1), second.ItemsSeen, "copies and reports under the output dir are not rescanned")
}

func Test_Organizer_CancelledRunStillWritesReport(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "alpha content")
	cfg := organizeConfig(t, root)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := newOrganizer(t, cfg, Options{}).Run(ctx)

	assert.True(t, result.Snapshot.Cancelled)
	assert.Zero(t, result.Snapshot.ItemsSeen)
	assert.True(t, result.Snapshot.Conserved())
	assert.FileExists(t, filepath.Join(cfg.ResolvedReportDir(), report.ReportFile))
}

func Test_Organizer_FeedsCatalogSinksAndProgress(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "guide.md"), "how to brew tea properly")
	writeFile(t, filepath.Join(root, "main.go"), "package main\n")
	cfg := organizeConfig(t, root)

	cat, err := catalog.New(cfg.OutputDir)
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })
	sink := &collectingSink{}
	phases := map[string]int{}

	result := newOrganizer(t, cfg, Options{
		Catalog:  cat,
		Sinks:    []report.Sink{sink},
		Progress: func(e metrics.Event) { phases[e.Phase]++ },
	}).Run(context.Background())

	assert.Equal(t, 2, cat.Count())
	hits, total, err := cat.Search(catalog.SearchOptions{Query: "brew", MaxResults: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, hits, 1)

	assert.Equal(t, []string{
		filepath.Join(cfg.ResolvedReportDir(), report.ReportFile),
	}, sink.artifacts)
	assert.Len(t, result.Artifacts, 2)

	for _, phase := range []string{metrics.PhaseScan, metrics.PhaseHash, metrics.PhaseRoute, metrics.PhaseExport} {
		assert.Positive(t, phases[phase], phase)
	}
}

func Test_NewOrganizer_SetupFailures(t *testing.T) {
	_, err := NewOrganizer(config.Default(), Options{}, zap.NewNop())
	assert.ErrorIs(t, err, config.ErrInvalidConfig, "roots are required")

	blocker := filepath.Join(t.TempDir(), "file")
	writeFile(t, blocker, "x")
	cfg := organizeConfig(t, t.TempDir())
	cfg.OutputDir = filepath.Join(blocker, "out")
	_, err = NewOrganizer(cfg, Options{}, zap.NewNop())
	assert.Error(t, err)
}

type collectingSink struct {
	artifacts []string
}

func (s *collectingSink) Name() string { return "collector" }

func (s *collectingSink) Publish(_ context.Context, _ *report.Report, artifacts []string) error {
	s.artifacts = append(s.artifacts, artifacts...)
	return nil
}

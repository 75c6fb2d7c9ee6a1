package gate

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lexandro/contentsieve/item"
	"github.com/lexandro/contentsieve/metrics"
)

func Test_Decide(t *testing.T) {
	tests := []struct {
		name      string
		score     float64
		threshold float64
		duplicate bool
		want      item.Verdict
	}{
		{"above threshold", 90, 70, false, item.VerdictAccepted},
		{"at threshold", 70, 70, false, item.VerdictAccepted},
		{"below threshold", 69.9, 70, false, item.VerdictRejectLowQuality},
		{"duplicate wins over score", 100, 0, true, item.VerdictRejectDuplicate},
		{"zero threshold accepts all", 0, 0, false, item.VerdictAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.score, tt.threshold, tt.duplicate))
		})
	}
}

func Test_BucketFor(t *testing.T) {
	assert.Equal(t, metrics.BucketOrganized, BucketFor(item.VerdictAccepted))
	assert.Equal(t, metrics.BucketArchived, BucketFor(item.VerdictArchived))
	assert.Equal(t, metrics.BucketDuplicate, BucketFor(item.VerdictRejectDuplicate))
	assert.Equal(t, metrics.BucketQualityFailed, BucketFor(item.VerdictRejectLowQuality))
	assert.Equal(t, metrics.BucketErrored, BucketFor(item.VerdictErrored))
	assert.Equal(t, metrics.BucketErrored, BucketFor(item.VerdictPending))
}

func Test_CandidateName(t *testing.T) {
	assert.Equal(t, "report.pdf", CandidateName("report.pdf", 0))
	assert.Equal(t, "report_1.pdf", CandidateName("report.pdf", 1))
	assert.Equal(t, "report_12.pdf", CandidateName("report.pdf", 12))
	assert.Equal(t, "Makefile_2", CandidateName("Makefile", 2))
	assert.Equal(t, ".env_1", CandidateName(".env", 1))
	assert.Equal(t, "a.tar_1.gz", CandidateName("a.tar.gz", 1))
}

func newSource(t *testing.T, dir, name, content string) *item.Item {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return &item.Item{Path: path, Name: filepath.Base(name), Category: "docs"}
}

func Test_Router_CopiesAndPreservesOriginal(t *testing.T) {
	src := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	r, err := NewRouter(out, "", zap.NewNop())
	require.NoError(t, err)

	it := newSource(t, src, "notes.txt", "original bytes")
	dest, err := r.Place(it)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "docs", "notes.txt"), dest)

	original, err := os.ReadFile(it.Path)
	require.NoError(t, err)
	assert.Equal(t, "original bytes", string(original))

	copied, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, original, copied)
}

func Test_Router_CollisionSafeNaming(t *testing.T) {
	out := t.TempDir()
	r, err := NewRouter(out, "", zap.NewNop())
	require.NoError(t, err)

	first := newSource(t, t.TempDir(), "readme.md", "first")
	second := newSource(t, t.TempDir(), "readme.md", "second")
	third := newSource(t, t.TempDir(), "readme.md", "third")

	d1, err := r.Place(first)
	require.NoError(t, err)
	d2, err := r.Place(second)
	require.NoError(t, err)
	d3, err := r.Place(third)
	require.NoError(t, err)

	assert.Equal(t, "readme.md", filepath.Base(d1))
	assert.Equal(t, "readme_1.md", filepath.Base(d2))
	assert.Equal(t, "readme_2.md", filepath.Base(d3))

	for dest, want := range map[string]string{d1: "first", d2: "second", d3: "third"} {
		got, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}
}

func Test_Router_NeverOverwritesExisting(t *testing.T) {
	out := t.TempDir()
	existing := filepath.Join(out, "docs", "a.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(existing), 0o755))
	require.NoError(t, os.WriteFile(existing, []byte("keep me"), 0o644))

	r, err := NewRouter(out, "", zap.NewNop())
	require.NoError(t, err)
	dest, err := r.Place(newSource(t, t.TempDir(), "a.txt", "new"))
	require.NoError(t, err)

	assert.Equal(t, "a_1.txt", filepath.Base(dest))
	kept, _ := os.ReadFile(existing)
	assert.Equal(t, "keep me", string(kept))
}

func Test_Router_ConcurrentPlacementsAreDistinct(t *testing.T) {
	out := t.TempDir()
	r, err := NewRouter(out, "", zap.NewNop())
	require.NoError(t, err)

	const n = 20
	items := make([]*item.Item, n)
	for i := range items {
		items[i] = newSource(t, t.TempDir(), "same.txt", "content")
	}

	var wg sync.WaitGroup
	dests := make([]string, n)
	for i := range items {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := r.Place(items[i])
			assert.NoError(t, err)
			dests[i] = d
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, d := range dests {
		assert.False(t, seen[d], "duplicate destination %s", d)
		seen[d] = true
	}
	entries, err := os.ReadDir(filepath.Join(out, "docs"))
	require.NoError(t, err)
	assert.Len(t, entries, n)
}

func Test_Router_Archive(t *testing.T) {
	out := t.TempDir()
	archive := filepath.Join(t.TempDir(), "archive")

	noArchive, err := NewRouter(out, "", zap.NewNop())
	require.NoError(t, err)
	assert.False(t, noArchive.Archiving())
	dest, err := noArchive.Archive(newSource(t, t.TempDir(), "x.txt", "x"))
	require.NoError(t, err)
	assert.Empty(t, dest)

	r, err := NewRouter(out, archive, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, r.Archiving())

	it := newSource(t, t.TempDir(), "x.txt", "x")
	it.Category = ""
	dest, err = r.Archive(it)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(archive, "other", "x.txt"), dest)
}

func Test_NewRouter_SetupFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := NewRouter(filepath.Join(blocker, "out"), "", zap.NewNop())
	assert.Error(t, err)

	_, err = NewRouter("", "", zap.NewNop())
	assert.Error(t, err)
}

func Test_Router_MissingSource(t *testing.T) {
	r, err := NewRouter(t.TempDir(), "", zap.NewNop())
	require.NoError(t, err)
	_, err = r.Place(&item.Item{Path: filepath.Join(t.TempDir(), "gone.txt"), Name: "gone.txt", Category: "docs"})
	assert.Error(t, err)
}

func Test_AcceptedSet(t *testing.T) {
	s := NewAcceptedSet()

	added, id := s.Add("k1", "s1")
	assert.True(t, added)
	assert.Equal(t, "s1", id)

	added, id = s.Add("k1", "s2")
	assert.False(t, added)
	assert.Equal(t, "s1", id)

	assert.True(t, s.Contains("k1"))
	assert.False(t, s.Contains("k2"))
	assert.Equal(t, 1, s.Len())
}

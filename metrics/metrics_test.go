package metrics

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Run_CountersAndBuckets(t *testing.T) {
	r := NewRun("run-1", "organize")

	r.AddScanned(100)
	r.AddScanned(50)
	for i := 0; i < 3; i++ {
		r.ItemSeen()
	}
	r.Terminal(BucketOrganized)
	r.Terminal(BucketDuplicate)
	r.Terminal(BucketQualityFailed)
	r.DuplicateFound()
	r.QualityResult(true)
	r.QualityResult(false)

	s := r.Snapshot()
	assert.Equal(t, int64(2), s.TotalScanned)
	assert.Equal(t, int64(150), s.BytesProcessed)
	assert.Equal(t, int64(1), s.DuplicatesFound)
	assert.Equal(t, int64(1), s.QualityPassed)
	assert.Equal(t, int64(1), s.QualityFailed)
	assert.Equal(t, int64(3), s.TerminalTotal())
	assert.True(t, s.Conserved())
}

func Test_Run_ConservationDetectsMissingBucket(t *testing.T) {
	r := NewRun("run-1", "organize")
	r.ItemSeen()
	r.ItemSeen()
	r.Terminal(BucketOrganized)

	assert.False(t, r.Snapshot().Conserved())
}

func Test_Run_RecordErrorIgnoresNil(t *testing.T) {
	r := NewRun("run-1", "organize")
	r.RecordError("scan", "/x", nil)
	r.RecordError("scan", "/y", errors.New("permission denied"))

	s := r.Snapshot()
	require.Len(t, s.Errors, 1)
	assert.Equal(t, int64(1), s.ErrorCount)
	assert.Equal(t, "/y", s.Errors[0].Ref)
	assert.Equal(t, "scan", s.Errors[0].Stage)
}

func Test_Run_ExportFailureAlsoCountsAsError(t *testing.T) {
	r := NewRun("run-1", "generate")
	r.RecordExportFailure("samples.csv", errors.New("disk full"))

	s := r.Snapshot()
	assert.Equal(t, []string{"samples.csv: disk full"}, s.ExportFailures)
	assert.Equal(t, int64(1), s.ErrorCount)
}

func Test_Run_ConcurrentUpdates(t *testing.T) {
	r := NewRun("run-1", "generate")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.ItemSeen()
			r.AddGenerated(10)
			r.Terminal(BucketOrganized)
			r.RecordError("generate", "u", errors.New("boom"))
		}()
	}
	wg.Wait()

	s := r.Snapshot()
	assert.Equal(t, int64(50), s.TotalGenerated)
	assert.Equal(t, int64(500), s.BytesProcessed)
	assert.Len(t, s.Errors, 50)
	assert.True(t, s.Conserved())
}

func Test_Run_FinishKeepsFirstStamp(t *testing.T) {
	r := NewRun("run-1", "organize")
	r.Finish()
	first := r.Snapshot().FinishedAt
	r.Finish()
	assert.Equal(t, first, r.Snapshot().FinishedAt)
}

func Test_ProgressFunc_EmitNil(t *testing.T) {
	var fn ProgressFunc
	assert.NotPanics(t, func() { fn.Emit(Event{Phase: PhaseScan}) })

	var got []Event
	fn = func(e Event) { got = append(got, e) }
	fn.Emit(Event{Phase: PhaseHash, Done: 1, Total: 2})
	assert.Equal(t, []Event{{Phase: PhaseHash, Done: 1, Total: 2}}, got)
}

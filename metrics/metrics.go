// Package metrics holds the run-scoped counters of one pipeline execution.
// A Run is created per execution and passed explicitly through each phase;
// there is no process-wide state.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Bucket is the terminal bucket an item lands in. Every item lands in exactly one.
type Bucket string

const (
	BucketOrganized     Bucket = "organized"
	BucketArchived      Bucket = "archived"
	BucketDuplicate     Bucket = "duplicate"
	BucketQualityFailed Bucket = "quality-failed"
	BucketErrored       Bucket = "errored"
)

// Buckets lists all terminal buckets in report order.
var Buckets = []Bucket{BucketOrganized, BucketArchived, BucketDuplicate, BucketQualityFailed, BucketErrored}

// ErrorRecord describes one non-fatal error with enough context to diagnose it.
type ErrorRecord struct {
	Stage   string    `json:"stage" validate:"required"`
	Ref     string    `json:"ref"`
	Message string    `json:"message" validate:"required"`
	At      time.Time `json:"at"`
}

// Run accumulates counters for one pipeline execution.
// Counters only increase; all methods are safe for concurrent use.
type Run struct {
	ID        string
	Mode      string
	StartedAt time.Time

	totalScanned     atomic.Int64
	totalGenerated   atomic.Int64
	bytesProcessed   atomic.Int64
	itemsSeen        atomic.Int64
	duplicatesFound  atomic.Int64
	nearDuplicates   atomic.Int64
	qualityPassed    atomic.Int64
	qualityFailed    atomic.Int64
	producerCalls    atomic.Int64
	producerFailures atomic.Int64
	producerTimeouts atomic.Int64
	producerSkipped  atomic.Int64
	errorCount       atomic.Int64

	organized     atomic.Int64
	archived      atomic.Int64
	duplicate     atomic.Int64
	qualityBucket atomic.Int64
	errored       atomic.Int64

	mu             sync.Mutex
	errors         []ErrorRecord
	exportFailures []string
	finishedAt     time.Time
	cancelled      bool
}

// NewRun starts a metrics run.
func NewRun(id, mode string) *Run {
	return &Run{ID: id, Mode: mode, StartedAt: time.Now()}
}

func (r *Run) AddScanned(sizeBytes int64) {
	r.totalScanned.Add(1)
	r.bytesProcessed.Add(sizeBytes)
}

func (r *Run) AddGenerated(sizeBytes int64) {
	r.totalGenerated.Add(1)
	r.bytesProcessed.Add(sizeBytes)
}

// ItemSeen counts an item entering the routing phase.
func (r *Run) ItemSeen() { r.itemsSeen.Add(1) }

func (r *Run) DuplicateFound()     { r.duplicatesFound.Add(1) }
func (r *Run) NearDuplicateFound() { r.duplicatesFound.Add(1); r.nearDuplicates.Add(1) }

func (r *Run) QualityResult(passed bool) {
	if passed {
		r.qualityPassed.Add(1)
		return
	}
	r.qualityFailed.Add(1)
}

func (r *Run) ProducerCall()    { r.producerCalls.Add(1) }
func (r *Run) ProducerFailure() { r.producerFailures.Add(1) }
func (r *Run) ProducerTimeout() { r.producerTimeouts.Add(1) }
func (r *Run) ProducerSkipped() { r.producerSkipped.Add(1) }

// Terminal records the final bucket of one item.
func (r *Run) Terminal(b Bucket) {
	switch b {
	case BucketOrganized:
		r.organized.Add(1)
	case BucketArchived:
		r.archived.Add(1)
	case BucketDuplicate:
		r.duplicate.Add(1)
	case BucketQualityFailed:
		r.qualityBucket.Add(1)
	case BucketErrored:
		r.errored.Add(1)
	}
}

// RecordError captures a non-fatal error.
func (r *Run) RecordError(stage, ref string, err error) {
	if err == nil {
		return
	}
	r.errorCount.Add(1)
	r.mu.Lock()
	r.errors = append(r.errors, ErrorRecord{Stage: stage, Ref: ref, Message: err.Error(), At: time.Now()})
	r.mu.Unlock()
}

// RecordExportFailure captures a failed output artifact.
func (r *Run) RecordExportFailure(artifact string, err error) {
	r.RecordError("export", artifact, err)
	r.mu.Lock()
	r.exportFailures = append(r.exportFailures, artifact+": "+err.Error())
	r.mu.Unlock()
}

// MarkCancelled notes that the run stopped early on request.
func (r *Run) MarkCancelled() {
	r.mu.Lock()
	r.cancelled = true
	r.mu.Unlock()
}

// Finish stamps the end time. Later calls keep the first stamp.
func (r *Run) Finish() {
	r.mu.Lock()
	if r.finishedAt.IsZero() {
		r.finishedAt = time.Now()
	}
	r.mu.Unlock()
}

// Snapshot is the serializable view of a run.
type Snapshot struct {
	RunID            string           `json:"runId" validate:"required"`
	Mode             string           `json:"mode" validate:"required,oneof=organize generate"`
	StartedAt        time.Time        `json:"startedAt" validate:"required"`
	FinishedAt       time.Time        `json:"finishedAt"`
	ElapsedMs        int64            `json:"elapsedMs"`
	Cancelled        bool             `json:"cancelled"`
	TotalScanned     int64            `json:"totalScanned"`
	TotalGenerated   int64            `json:"totalGenerated"`
	BytesProcessed   int64            `json:"bytesProcessed"`
	ItemsSeen        int64            `json:"itemsSeen"`
	DuplicatesFound  int64            `json:"duplicatesFound"`
	NearDuplicates   int64            `json:"nearDuplicates"`
	QualityPassed    int64            `json:"qualityPassed"`
	QualityFailed    int64            `json:"qualityFailed"`
	ProducerCalls    int64            `json:"producerCalls"`
	ProducerFailures int64            `json:"producerFailures"`
	ProducerTimeouts int64            `json:"producerTimeouts"`
	ProducerSkipped  int64            `json:"producerSkipped"`
	Buckets          map[Bucket]int64 `json:"buckets" validate:"required"`
	ErrorCount       int64            `json:"errorCount"`
	Errors           []ErrorRecord    `json:"errors" validate:"dive"`
	ExportFailures   []string         `json:"exportFailures"`
}

// Snapshot copies the current counters.
func (r *Run) Snapshot() Snapshot {
	r.mu.Lock()
	errs := append([]ErrorRecord(nil), r.errors...)
	exportFailures := append([]string(nil), r.exportFailures...)
	finished := r.finishedAt
	cancelled := r.cancelled
	r.mu.Unlock()

	end := finished
	if end.IsZero() {
		end = time.Now()
	}

	return Snapshot{
		RunID:            r.ID,
		Mode:             r.Mode,
		StartedAt:        r.StartedAt,
		FinishedAt:       finished,
		ElapsedMs:        end.Sub(r.StartedAt).Milliseconds(),
		Cancelled:        cancelled,
		TotalScanned:     r.totalScanned.Load(),
		TotalGenerated:   r.totalGenerated.Load(),
		BytesProcessed:   r.bytesProcessed.Load(),
		ItemsSeen:        r.itemsSeen.Load(),
		DuplicatesFound:  r.duplicatesFound.Load(),
		NearDuplicates:   r.nearDuplicates.Load(),
		QualityPassed:    r.qualityPassed.Load(),
		QualityFailed:    r.qualityFailed.Load(),
		ProducerCalls:    r.producerCalls.Load(),
		ProducerFailures: r.producerFailures.Load(),
		ProducerTimeouts: r.producerTimeouts.Load(),
		ProducerSkipped:  r.producerSkipped.Load(),
		Buckets: map[Bucket]int64{
			BucketOrganized:     r.organized.Load(),
			BucketArchived:      r.archived.Load(),
			BucketDuplicate:     r.duplicate.Load(),
			BucketQualityFailed: r.qualityBucket.Load(),
			BucketErrored:       r.errored.Load(),
		},
		ErrorCount:     r.errorCount.Load(),
		Errors:         errs,
		ExportFailures: exportFailures,
	}
}

// TerminalTotal sums all terminal buckets.
func (s Snapshot) TerminalTotal() int64 {
	var total int64
	for _, b := range Buckets {
		total += s.Buckets[b]
	}
	return total
}

// Conserved reports whether every item seen landed in exactly one bucket.
func (s Snapshot) Conserved() bool {
	return s.TerminalTotal() == s.ItemsSeen
}

// Package report turns a finished run into artifacts: a JSON report, a
// human-readable summary and, for generation runs, JSONL and CSV sample
// exports. Every file is written atomically. Optional sinks publish the
// artifacts to object storage or a SQL ledger.
package report

import (
	"errors"
	"time"

	"github.com/lexandro/contentsieve/item"
	"github.com/lexandro/contentsieve/metrics"
)

// SchemaVersion is bumped whenever the exported shape changes.
const SchemaVersion = 1

// Artifact file names inside the report directory.
const (
	ReportFile  = "report.json"
	SummaryFile = "summary.txt"
	SamplesFile = "samples.jsonl"
	CSVFile     = "samples.csv"
)

// ErrSchemaMismatch is returned when an export does not match the expected shape.
var ErrSchemaMismatch = errors.New("schema mismatch")

// Settings records the thresholds a run was gated with.
type Settings struct {
	QualityThreshold    float64  `json:"qualityThreshold" validate:"gte=0,lte=100"`
	SimilarityThreshold float64  `json:"similarityThreshold" validate:"gte=0,lte=1"`
	Roots               []string `json:"roots,omitempty"`
	OutputDir           string   `json:"outputDir,omitempty"`
	ArchiveDir          string   `json:"archiveDir,omitempty"`
	Producers           []string `json:"producers,omitempty"`
}

// Report is the structured object-per-run export.
type Report struct {
	SchemaVersion int              `json:"schemaVersion" validate:"eq=1"`
	Run           metrics.Snapshot `json:"run"`
	Settings      Settings         `json:"settings"`
	Items         []ItemRecord     `json:"items,omitempty" validate:"dive"`
	Samples       []SampleRecord   `json:"samples,omitempty" validate:"dive"`
}

// ItemRecord is the exported view of one file item.
type ItemRecord struct {
	ID           string       `json:"id" validate:"required"`
	Path         string       `json:"path" validate:"required"`
	Category     string       `json:"category" validate:"required"`
	SizeBytes    int64        `json:"sizeBytes" validate:"gte=0"`
	ContentHash  string       `json:"contentHash,omitempty"`
	CanonicalID  string       `json:"canonicalId,omitempty"`
	QualityScore float64      `json:"qualityScore" validate:"gte=0,lte=100"`
	Verdict      item.Verdict `json:"verdict" validate:"required"`
	Destination  string       `json:"destination,omitempty"`
}

// SampleRecord is the exported view of one generated sample. It is also the
// line shape of samples.jsonl. Only errored samples may lack a response.
type SampleRecord struct {
	ID           string       `json:"id" validate:"required"`
	UnitID       string       `json:"unitId" validate:"required"`
	Prompt       string       `json:"prompt" validate:"required"`
	Domain       string       `json:"domain,omitempty"`
	Producer     string       `json:"producer" validate:"required"`
	Response     string       `json:"response" validate:"required_unless=Verdict errored"`
	ContentHash  string       `json:"contentHash,omitempty"`
	NearDupOf    string       `json:"nearDupOf,omitempty"`
	Similarity   float64      `json:"similarity,omitempty"`
	QualityScore float64      `json:"qualityScore" validate:"gte=0,lte=100"`
	Verdict      item.Verdict `json:"verdict" validate:"required"`
	Timestamp    time.Time    `json:"timestamp" validate:"required"`
}

// New starts a report for the given settings.
func New(settings Settings) *Report {
	return &Report{SchemaVersion: SchemaVersion, Settings: settings}
}

// AddItem appends the exported view of a routed file item.
func (r *Report) AddItem(it *item.Item) {
	r.Items = append(r.Items, ItemRecord{
		ID:           it.ID,
		Path:         it.Path,
		Category:     it.Category,
		SizeBytes:    it.SizeBytes,
		ContentHash:  it.ContentHash,
		CanonicalID:  it.CanonicalID,
		QualityScore: it.QualityScore,
		Verdict:      it.Verdict,
		Destination:  it.Destination,
	})
}

// AddSample appends the exported view of a gated sample.
func (r *Report) AddSample(s *item.Sample) {
	r.Samples = append(r.Samples, SampleRecord{
		ID:           s.ID,
		UnitID:       s.UnitID,
		Prompt:       s.Prompt,
		Domain:       s.Domain,
		Producer:     s.Producer,
		Response:     s.Response,
		ContentHash:  s.ContentHash,
		NearDupOf:    s.NearDupOf,
		Similarity:   s.Similarity,
		QualityScore: s.QualityScore,
		Verdict:      s.Verdict,
		Timestamp:    s.GeneratedAt,
	})
}

// AcceptedSamples returns the samples that passed the gate, in order.
func (r *Report) AcceptedSamples() []SampleRecord {
	var accepted []SampleRecord
	for _, s := range r.Samples {
		if s.Verdict == item.VerdictAccepted {
			accepted = append(accepted, s)
		}
	}
	return accepted
}

// AcceptedItems returns the file items copied into the output tree, in order.
func (r *Report) AcceptedItems() []ItemRecord {
	var accepted []ItemRecord
	for _, it := range r.Items {
		if it.Verdict == item.VerdictAccepted {
			accepted = append(accepted, it)
		}
	}
	return accepted
}

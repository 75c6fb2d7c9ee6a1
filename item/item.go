package item

import "time"

// Verdict is the terminal routing decision for an item.
type Verdict string

const (
	VerdictPending          Verdict = "pending"
	VerdictAccepted         Verdict = "accepted"
	VerdictRejectDuplicate  Verdict = "reject-duplicate"
	VerdictRejectLowQuality Verdict = "reject-low-quality"
	VerdictArchived         Verdict = "archived"
	VerdictErrored          Verdict = "errored"
)

// Item is a file discovered by the scanner.
// ContentHash is empty when hashing failed; HashErr then holds the cause.
type Item struct {
	ID           string    // Stable identifier within a run (root-relative path with root index)
	Path         string    // Absolute file path
	Root         string    // Root directory the file was found under
	RelativePath string    // Path relative to Root (forward slashes)
	Name         string    // Base name
	Extension    string    // Lowercased extension without dot
	Category     string    // Category assigned by the categorizer
	SizeBytes    int64     // File size in bytes
	ModifiedAt   time.Time // Last modification time

	ContentHash  string
	HashErr      error
	IsDuplicate  bool
	CanonicalID  string // ID of the first item observed with the same hash
	QualityScore float64
	Verdict      Verdict
	Destination  string // Where the item was copied, if routed
}

// HasHash reports whether a content hash was computed for the item.
func (it *Item) HasHash() bool {
	return it.ContentHash != ""
}

// Sample is one candidate produced by a producer for a prompt.
type Sample struct {
	ID            string
	UnitID        string
	Prompt        string
	Domain        string
	Producer      string
	ProducerIndex int
	Response      string
	GeneratedAt   time.Time

	ContentHash  string
	IsDuplicate  bool
	NearDupOf    string  // ID of the accepted sample this one is too similar to
	Similarity   float64 // Highest similarity seen against accepted samples in the unit
	QualityScore float64
	Verdict      Verdict
}

// SizeBytes returns the response length in bytes.
func (s *Sample) SizeBytes() int64 {
	return int64(len(s.Response))
}

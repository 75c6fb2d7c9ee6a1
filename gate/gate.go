// Package gate decides the fate of scored items and places accepted file
// items into the organized output tree.
package gate

import (
	"github.com/lexandro/contentsieve/item"
	"github.com/lexandro/contentsieve/metrics"
)

// Decide applies the dedup flag and the quality threshold. A score equal to
// the threshold passes.
func Decide(score, threshold float64, duplicate bool) item.Verdict {
	if duplicate {
		return item.VerdictRejectDuplicate
	}
	if score < threshold {
		return item.VerdictRejectLowQuality
	}
	return item.VerdictAccepted
}

// BucketFor maps a final verdict to its terminal metrics bucket.
func BucketFor(v item.Verdict) metrics.Bucket {
	switch v {
	case item.VerdictAccepted:
		return metrics.BucketOrganized
	case item.VerdictArchived:
		return metrics.BucketArchived
	case item.VerdictRejectDuplicate:
		return metrics.BucketDuplicate
	case item.VerdictRejectLowQuality:
		return metrics.BucketQualityFailed
	default:
		return metrics.BucketErrored
	}
}

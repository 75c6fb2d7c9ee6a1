package metrics

// Phase names reported in progress events.
const (
	PhaseScan     = "scan"
	PhaseHash     = "hash"
	PhaseRoute    = "route"
	PhaseGenerate = "generate"
	PhaseExport   = "export"
)

// Event is a progress notification from a running pipeline.
type Event struct {
	Phase string
	Done  int
	Total int // 0 when unknown
	Ref   string
}

// ProgressFunc receives progress events. It is called synchronously from
// pipeline goroutines and must not block for long.
type ProgressFunc func(Event)

// Emit calls fn if it is set.
func (fn ProgressFunc) Emit(e Event) {
	if fn != nil {
		fn(e)
	}
}

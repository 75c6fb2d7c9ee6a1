package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInterval = 50 * time.Millisecond

func receiveBatch(t *testing.T, d *Debouncer) []DebouncedEvent {
	t.Helper()
	select {
	case batch := <-d.Output():
		return batch
	case <-time.After(10 * testInterval):
		require.FailNow(t, "timed out waiting for debouncer batch")
		return nil
	}
}

func Test_Debouncer_Batches(t *testing.T) {
	type add struct {
		path string
		op   EventOp
	}
	tests := []struct {
		name string
		adds []add
		want []DebouncedEvent
	}{
		{
			name: "single event",
			adds: []add{{"notes.md", OpWrite}},
			want: []DebouncedEvent{{"notes.md", OpWrite}},
		},
		{
			name: "same path collapses to latest op",
			adds: []add{{"notes.md", OpCreate}, {"notes.md", OpWrite}, {"notes.md", OpRemove}},
			want: []DebouncedEvent{{"notes.md", OpRemove}},
		},
		{
			name: "sorted by path",
			adds: []add{{"zeta.txt", OpWrite}, {"alpha.txt", OpCreate}, {"mid/report.pdf", OpRename}},
			want: []DebouncedEvent{{"alpha.txt", OpCreate}, {"mid/report.pdf", OpRename}, {"zeta.txt", OpWrite}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDebouncer(testInterval)
			t.Cleanup(d.Stop)
			for _, a := range tt.adds {
				d.Add(a.path, a.op)
			}
			assert.Equal(t, tt.want, receiveBatch(t, d))
		})
	}
}

func Test_Debouncer_QuietPeriodRestartsOnNewEvents(t *testing.T) {
	d := NewDebouncer(testInterval)
	t.Cleanup(d.Stop)

	d.Add("a.txt", OpWrite)
	time.Sleep(testInterval / 2)
	d.Add("b.txt", OpWrite)

	batch := receiveBatch(t, d)
	assert.Equal(t, []DebouncedEvent{{"a.txt", OpWrite}, {"b.txt", OpWrite}}, batch)
}

func Test_Debouncer_StopDropsPendingEvents(t *testing.T) {
	d := NewDebouncer(testInterval)

	d.Add("a.txt", OpWrite)
	d.Stop()
	d.Add("late.txt", OpWrite)
	d.Stop()

	select {
	case batch := <-d.Output():
		t.Fatalf("expected no batch after Stop, got %v", batch)
	case <-time.After(3 * testInterval):
	}
}

func Test_EventOp_String(t *testing.T) {
	ops := map[EventOp]string{OpCreate: "create", OpWrite: "write", OpRemove: "remove", OpRename: "rename", EventOp(42): "unknown"}
	for op, want := range ops {
		assert.Equal(t, want, op.String())
	}
}

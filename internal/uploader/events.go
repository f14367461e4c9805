package uploader

import "time"

// Outcome classifies one orchestration step on one file
type Outcome string

const (
	OutcomeProcessing Outcome = "processing"
	OutcomeSuccess    Outcome = "success"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeError      Outcome = "error"
	OutcomeSkipped    Outcome = "skipped"
)

// Event describes progress on a single file. FileSize is set only for
// successful uploads so sinks can derive throughput; Worker is 0 in
// sequential runs.
type Event struct {
	Index    int
	Total    int
	Filename string
	Status   Outcome
	FileSize int64
	Elapsed  time.Duration
	Worker   int
}

// EventSink receives progress events. The orchestrator never renders
// output itself. Implementations must be safe for concurrent use when the
// orchestrator runs parallel workers.
type EventSink interface {
	Publish(Event)
}

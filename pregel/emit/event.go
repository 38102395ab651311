package emit

// Event represents an observability event emitted during a Pregel run.
//
// Events provide detailed insight into run behavior:
//   - Vertex compute start/complete
//   - State merges
//   - Errors and warnings
//   - Checkpoint operations
//
// Events are emitted to an Emitter which can:
//   - Log to stdout/stderr
//   - Send to OpenTelemetry
//   - Store in time-series databases
//   - Trigger alerts
type Event struct {
	// GraphID identifies the workflow run that emitted this event.
	GraphID string

	// Superstep is the sequential superstep number (1-indexed). Zero for
	// run-level events (start, complete, error).
	Superstep int

	// VertexID identifies which vertex emitted this event. Empty string for
	// run-level events.
	VertexID string

	// Msg is a human-readable description of the event.
	Msg string

	// Meta contains additional structured data specific to this event.
	// Common keys:
	//   - "duration_ms": Execution duration in milliseconds
	//   - "error": Error details
	//   - "tokens": Token count for LLM calls
	//   - "checkpoint_id": Checkpoint identifier
	//   - "retryable": Whether an error can be retried
	Meta map[string]interface{}
}

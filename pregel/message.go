package pregel

import "encoding/json"

// MessageKind tags the variant of a WorkflowMessage.
type MessageKind int

const (
	// MessageData carries an application payload (key/value).
	MessageData MessageKind = iota
	// MessageHaltRequest asks the scheduler to halt the recipient vertex
	// regardless of the ComputeResult it returns this superstep.
	MessageHaltRequest
	// MessageError signals a soft, business-level error to a downstream
	// vertex (typically a RouterVertex) without raising a Go error.
	MessageError
)

func (k MessageKind) String() string {
	switch k {
	case MessageData:
		return "data"
	case MessageHaltRequest:
		return "halt_request"
	case MessageError:
		return "error"
	default:
		return "unknown"
	}
}

// Priority is an ordered enum used to break ties within a single vertex's
// mailbox. Higher values sort first ("priority descending").
type Priority int

const (
	PriorityLow    Priority = -1
	PriorityNormal Priority = 0
	PriorityHigh   Priority = 1
)

// Source identifies the originator of a message: either a vertex in the
// graph, or the external caller that seeded the run.
type Source struct {
	VertexID VertexId `json:"vertex_id"`
	External bool     `json:"external"`
}

// ExternalSource returns the Source used for Runtime.Execute's initial input.
func ExternalSource() Source {
	return Source{VertexID: externalSourceID, External: true}
}

// Message is the envelope carried between vertices. It is JSON-encodable in
// full so it can be embedded verbatim in a Checkpoint's pending mailboxes.
type Message struct {
	Kind     MessageKind     `json:"kind"`
	Key      string          `json:"key"`
	Value    json.RawMessage `json:"value"`
	Priority Priority        `json:"priority"`
	Source   Source          `json:"source"`

	// seq is the sender-side insertion order, assigned by ComputeContext.Send
	// and used as the final mailbox sort tie-breaker. It is not part of the
	// wire format — re-delivered checkpoint messages sort by their recorded
	// arrival order instead (see mailbox.sorted).
	seq int `json:"-"`
}

// NewDataMessage builds a MessageData envelope, marshaling value to JSON.
// Marshal failure produces a message whose Value is the JSON string
// representation of the error — callers that need to propagate marshal
// failures should marshal ahead of time and use NewRawMessage instead.
func NewDataMessage(key string, value any, priority Priority, source Source) Message {
	raw, err := json.Marshal(value)
	if err != nil {
		raw, _ = json.Marshal(err.Error())
	}
	return Message{Kind: MessageData, Key: key, Value: raw, Priority: priority, Source: source}
}

// NewRawMessage builds a MessageData envelope from an already-marshaled value.
func NewRawMessage(key string, value json.RawMessage, priority Priority, source Source) Message {
	return Message{Kind: MessageData, Key: key, Value: value, Priority: priority, Source: source}
}

// NewHaltRequest builds a MessageHaltRequest envelope.
func NewHaltRequest(source Source) Message {
	return Message{Kind: MessageHaltRequest, Source: source, Priority: PriorityNormal}
}

// NewErrorMessage builds a MessageError envelope carrying a string reason.
func NewErrorMessage(reason string, source Source) Message {
	raw, _ := json.Marshal(reason)
	return Message{Kind: MessageError, Key: "error", Value: raw, Source: source, Priority: PriorityHigh}
}

// Unmarshal decodes the message's Value into v.
func (m Message) Unmarshal(v any) error {
	return json.Unmarshal(m.Value, v)
}

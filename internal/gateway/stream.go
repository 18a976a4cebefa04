package gateway

// Stream is a lazy, finite, non-restartable sequence of completion chunks.
// Text fragments arrive in emission order; a transport failure surfaces as a
// terminal ErrorChunk; normal exhaustion closes the channel.
type Stream <-chan StreamChunk

// StreamChunk represents one element of a completion stream.
type StreamChunk interface {
	Type() string
}

// TextChunk is one incremental fragment of generated text.
type TextChunk struct {
	Text string `json:"text"`
}

func (c TextChunk) Type() string { return "text" }

// ErrorChunk terminates a stream that failed mid-flight.
type ErrorChunk struct {
	Err error `json:"-"`
}

func (c ErrorChunk) Type() string { return "error" }

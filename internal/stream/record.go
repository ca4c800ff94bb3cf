package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Prefix tags every record line of the chat stream.
const Prefix = "data: "

var prefix = []byte(Prefix)

// Record is one JSON payload of the chat stream. A record carries either a
// chunk, a completion signal, or an error.
type Record struct {
	Chunk        string `json:"chunk"`
	Done         bool   `json:"done"`
	FullResponse string `json:"full_response,omitempty"`
	Error        string `json:"error,omitempty"`
}

// ChunkRecord builds an intermediate record.
func ChunkRecord(text string) Record {
	return Record{Chunk: text}
}

// DoneRecord builds the completion record.
func DoneRecord(full string) Record {
	return Record{Done: true, FullResponse: full}
}

// ErrorRecord builds a terminal error record.
func ErrorRecord(msg string) Record {
	return Record{Error: msg, Done: true}
}

// ErrorText is the user-visible content of a message ended by an error record.
func ErrorText(msg string) string {
	return "Error: " + msg
}

// Frame encodes rec as `data: <json>` followed by the blank separator line.
func Frame(rec Record) ([]byte, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	out := make([]byte, 0, len(prefix)+len(payload)+2)
	out = append(out, prefix...)
	out = append(out, payload...)
	return append(out, '\n', '\n'), nil
}

// ParseLine extracts the record carried by one line (without its newline).
// ok is false when the line is not a record at all, e.g. the blank line
// separating frames or another SSE field.
func ParseLine(line []byte) (rec Record, ok bool, err error) {
	line = bytes.TrimSuffix(line, []byte{'\r'})
	payload, found := bytes.CutPrefix(line, prefix)
	if !found {
		return Record{}, false, nil
	}
	if err := json.Unmarshal(payload, &rec); err != nil {
		return Record{}, true, err
	}
	return rec, true, nil
}

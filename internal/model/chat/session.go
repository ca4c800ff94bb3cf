package chat

// Session captures a transient conversation bound to one personality.
type Session struct {
	ID          string    `json:"id"`
	Personality string    `json:"personality"`
	Messages    []Message `json:"messages"`
}

// Clone returns a copy whose message slice does not alias s.
func (s Session) Clone() Session {
	out := s
	out.Messages = append([]Message(nil), s.Messages...)
	return out
}


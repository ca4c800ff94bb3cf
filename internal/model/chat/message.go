package chat

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a conversation. Only the trailing assistant
// message of an active turn may have InProgress set.
type Message struct {
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	InProgress bool      `json:"inProgress,omitempty"`
}

// StreamRequest is the body of POST /api/chat/stream.
type StreamRequest struct {
	Message     string `json:"message"`
	SessionID   string `json:"session_id"`
	Personality string `json:"personality"`
}

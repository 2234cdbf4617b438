package domain

import "time"

// Role identifies the author of a chat message.
type Role string

// Message roles persisted in a session.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid returns true if the role is recognised.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// DefaultSessionTitle is used when a session is created without a title.
const DefaultSessionTitle = "New Chat"

// Session is a chat conversation owned by one user.
// Messages are only ever appended; the session itself can be renamed or deleted.
type Session struct {
	// ID is the unique identifier for the session.
	ID string

	// OwnerID is the user the session belongs to.
	OwnerID string

	// Title is the display name.
	Title string

	// Messages is the ordered conversation.
	Messages []Message

	// CreatedAt is when the session was created.
	CreatedAt time.Time

	// UpdatedAt refreshes on every append and rename.
	UpdatedAt time.Time
}

// Message is a single turn in a session.
type Message struct {
	Role      Role
	Content   string
	Timestamp time.Time

	// Sources lists the documents that grounded an assistant reply.
	// Always empty for user messages.
	Sources []SourceRef
}

// SourceRef is a citation as persisted on an assistant message.
type SourceRef struct {
	DocumentID     string
	RelevanceScore float64
}

// SessionFilter selects a single session.
type SessionFilter struct {
	ID      string
	OwnerID string
}

// SessionPatch holds the mutable session fields for FindOneAndUpdate.
type SessionPatch struct {
	Title *string
}

// SessionSummary is a session listing entry without messages.
type SessionSummary struct {
	ID           string
	Title        string
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DefaultChatSystemPrompt precedes the retrieved context in the system
// message. The context block is appended directly after it.
const DefaultChatSystemPrompt = "You are a helpful AI assistant. Use the following context to answer the user's question: "

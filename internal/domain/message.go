package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a conversation message.
type Role string

const (
	RoleUser         Role = "user"
	RoleAssistant    Role = "assistant"
	RoleSystemNotice Role = "system_notice"
)

// SourceReference is a trust-filtered citation attached to an assistant answer.
type SourceReference struct {
	Title   string `json:"title"`
	URI     string `json:"uri"`
	Speaker string `json:"speaker"`
}

// Citation is a raw grounding candidate as returned by the provider, before
// the sanitizer has classified it.
type Citation struct {
	URI   string
	Title string
}

// Message is a single entry in the conversation log. Messages are never
// mutated after creation.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Sources   []SourceReference
	Timestamp time.Time
}

// Turn is the neutral shape a message takes when it crosses the provider
// boundary. System notices never become turns.
type Turn struct {
	Role Role
	Text string
}

// NewUserMessage creates an immutable user message.
func NewUserMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// NewAssistantMessage creates an assistant message. Assistant messages are the
// only role allowed to carry sources.
func NewAssistantMessage(content string, sources []SourceReference) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Content:   content,
		Sources:   sources,
		Timestamp: time.Now().UTC(),
	}
}

// NewSystemNotice creates a system notice, used for the initial disclaimer and
// for user-facing failure text.
func NewSystemNotice(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleSystemNotice,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

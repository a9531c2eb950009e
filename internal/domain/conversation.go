package domain

import "sync"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single role-tagged conversation entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is an append-only message log. Messages are never reordered
// or rewritten.
type Conversation struct {
	mu       sync.RWMutex
	messages []Message
}

// NewConversation creates a conversation seeded with the given messages.
func NewConversation(initial ...Message) *Conversation {
	msgs := make([]Message, len(initial))
	copy(msgs, initial)
	return &Conversation{messages: msgs}
}

// Append adds a message at the end of the conversation.
func (c *Conversation) Append(role Role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, Message{Role: role, Content: content})
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Last returns the most recent message.
func (c *Conversation) Last() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// Messages returns a copy of the message log.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

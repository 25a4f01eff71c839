package entity

type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type Message struct {
	Role    MessageRole
	Content string
}

// Exchange is one user turn and the assistant reply to it.
type Exchange struct {
	User      string
	Assistant string
}

func (e Exchange) Messages() []Message {
	return []Message{
		{Role: RoleUser, Content: e.User},
		{Role: RoleAssistant, Content: e.Assistant},
	}
}

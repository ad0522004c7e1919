package core

// Message roles understood by every generator.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a prompt sent to a text generator.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

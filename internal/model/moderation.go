package model

// MessageStatus is the workflow state of a contact message.
type MessageStatus string

const (
	MessageNew      MessageStatus = "new"
	MessageRead     MessageStatus = "read"
	MessageReplied  MessageStatus = "replied"
	MessageArchived MessageStatus = "archived"
)

// Valid reports whether s is a known message status.
func (s MessageStatus) Valid() bool {
	switch s {
	case MessageNew, MessageRead, MessageReplied, MessageArchived:
		return true
	}
	return false
}

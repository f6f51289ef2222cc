package vault

import "time"

// Status is the delivery status of a Message.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// Recognized metadata event keys: at most one is present on a
// given message; if none, the message is a plain chat message.
const (
	MetaSessionInvite         = "session_invite"
	MetaSessionInviteResponse = "session_invite_response"
	MetaFlowRequest           = "flow_request"
	MetaFlowResults           = "flow_results"
)

// Message is the record of a single delivered or queued message.
type Message struct {
	ID        string         `json:"id"`
	From      string         `json:"from"`
	To        []string       `json:"to"`
	Subject   string         `json:"subject,omitempty"`
	Body      string         `json:"body"`
	CreatedAt time.Time      `json:"created_at"`
	Status    Status         `json:"status"`
	ThreadID  string         `json:"thread_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// EventKey returns the single recognized metadata key present on m, or ""
// if m is a plain chat message.
func (m Message) EventKey() string {
	for _, key := range []string{MetaSessionInvite, MetaSessionInviteResponse, MetaFlowRequest, MetaFlowResults} {
		if _, ok := m.Metadata[key]; ok {
			return key
		}
	}
	return ""
}

// Participants returns the addresses on a message: the sender followed by
// all recipients, in order, the list ThreadID is computed from. Duplicates
// are not removed here; ThreadID normalizes them.
func (m Message) Participants() []string {
	return append([]string{m.From}, m.To...)
}

// Thread is the derived, per-participant-set grouping of messages.
type Thread struct {
	ThreadID           string    `json:"thread_id"`
	Subject            string    `json:"subject,omitempty"`
	Participants       []string  `json:"participants"`
	UnreadCount        int       `json:"unread_count"`
	LastMessageAt      time.Time `json:"last_message_at"`
	LastMessagePreview string    `json:"last_message_preview"`
	SessionID          string    `json:"session_id,omitempty"`
}

package models

// Actor is the authenticated identity attempting an operation. IsAdmin and
// CanCreate come from configuration, not from the token.
type Actor struct {
	ID        int64
	Handle    string
	IsAdmin   bool
	CanCreate bool
}

// Action names a gated operation for the authorization policy.
type Action string

const (
	ActionLeaderAck     Action = "leader_ack"
	ActionDocsSent      Action = "docs_sent"
	ActionAccessGranted Action = "access_granted"
	ActionComplete      Action = "complete"
	ActionReopen        Action = "reopen"
	ActionAddNote       Action = "add_note"
	ActionShowStatus    Action = "show_status"
)

package domain

import "time"

// AuthAction names an auditable authentication operation.
type AuthAction string

const (
	ActionRegister       AuthAction = "register"
	ActionLogin          AuthAction = "login"
	ActionRefresh        AuthAction = "refresh"
	ActionChangePassword AuthAction = "change_password"
)

// AuthEvent is an audit record of one authentication attempt.
type AuthEvent struct {
	Action    AuthAction
	Email     string // may be empty for token-based actions
	UserID    string // empty when the attempt did not resolve a user
	Success   bool
	Reason    string // error category on failure
	RequestID string
	Timestamp time.Time
}

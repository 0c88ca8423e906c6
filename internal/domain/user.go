package domain

import "strconv"

// User represents a registered (or registering) bot user stored in the database.
// ChatID is the Telegram chat identifier and the primary key; State carries the
// persisted FSM state tag.
type User struct {
	ChatID   int64
	Username string
	State    string
}

// DisplayName returns the username when present and falls back to the chat ID,
// so that users without a public username remain traceable in logs.
func (u *User) DisplayName() string {
	if u == nil {
		return "unknown"
	}

	if u.Username != "" {
		return u.Username
	}

	return strconv.FormatInt(u.ChatID, 10)
}

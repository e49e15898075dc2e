package event

import "time"

const PasswordResetCompletedDestination string = "identity.password_reset_completed"

type PasswordResetCompletedMessage struct {
	EventID    string    `json:"event_id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}

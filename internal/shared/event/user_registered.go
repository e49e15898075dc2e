package event

import "time"

const UserRegisteredDestination string = "identity.user_registered"

type UserRegisteredMessage struct {
	EventID    string    `json:"event_id"`
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	OccurredAt time.Time `json:"occurred_at"`
}

package domain

import "time"

// Session is the durable record behind a refresh token. Access JWTs are
// stateless and stay valid until expiry regardless of this record;
// disabling a session only stops further refreshes.
type Session struct {
	SessionID        string    `json:"session_id" dynamodbav:"session_id"`
	UserID           string    `json:"user_id" dynamodbav:"user_id"`
	Enable           bool      `json:"enable" dynamodbav:"enable"`
	RefreshToken     string    `json:"-" dynamodbav:"refresh_token"`
	RefreshExpiresAt int64     `json:"refresh_expires_at" dynamodbav:"refresh_expires_at"`
	CreatedAt        time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" dynamodbav:"updated_at"`

	// Populated for responses; never persisted.
	User *User `json:"user,omitempty" dynamodbav:"-"`
}

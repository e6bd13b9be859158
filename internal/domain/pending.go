package domain

import "time"

// ProfileDraft is the unactivated profile held between register and a
// successful verify. The password is hashed before the draft is stored.
type ProfileDraft struct {
	Username     string `json:"username" dynamodbav:"username"`
	PasswordHash string `json:"-" dynamodbav:"password_hash"`
	Role         string `json:"role" dynamodbav:"role"`
}

// PendingRegistration holds a profile draft keyed by email. Upsert
// semantics: the latest draft for an email always wins. Deleted by a
// successful verify; otherwise abandoned (no TTL on this table).
type PendingRegistration struct {
	Email     string       `json:"email" dynamodbav:"email"`
	Draft     ProfileDraft `json:"profile_draft" dynamodbav:"profile_draft"`
	CreatedAt time.Time    `json:"created_at" dynamodbav:"created_at"`
}

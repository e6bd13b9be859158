package domain

import "time"

// Role names carried in the session token. Authorization beyond the claim
// itself is the consumers' concern.
const (
	RoleDeveloper = "DEVELOPER"
	RoleManager   = "MANAGER"
	RoleAdmin     = "ADMIN"
)

// ValidRole reports whether role is one of the known role names.
func ValidRole(role string) bool {
	switch role {
	case RoleDeveloper, RoleManager, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	UserID        string     `json:"id" dynamodbav:"user_id"`
	Username      string     `json:"username" dynamodbav:"username"`
	Email         string     `json:"email" dynamodbav:"email"`
	PasswordHash  string     `json:"-" dynamodbav:"password_hash"`
	Role          string     `json:"role" dynamodbav:"role"`
	EmailVerified bool       `json:"email_verified" dynamodbav:"email_verified"`
	Enable        int        `json:"enable" dynamodbav:"enable"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at"`
	CreatedAt     time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt     time.Time  `json:"updated" dynamodbav:"updated_at"`
}

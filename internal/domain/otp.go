package domain

// OTP purposes. A code issued for one purpose never validates for another.
const (
	PurposeRegistration    = "registration"
	PurposePasswordReset   = "password_reset"
	PurposeAccountDeletion = "account_deletion"
)

// ValidPurpose reports whether purpose is one of the known OTP purposes.
func ValidPurpose(purpose string) bool {
	switch purpose {
	case PurposeRegistration, PurposePasswordReset, PurposeAccountDeletion:
		return true
	}
	return false
}

// OTPRecord stores a one-time code tagged with its purpose.
// PK: email, SK: purpose — at most one record per (email, purpose); a new
// issuance replaces the prior one. ExpiresAt is a Unix timestamp used as
// DynamoDB TTL, so expired rows are pruned without an application job.
type OTPRecord struct {
	Email     string `json:"email" dynamodbav:"email"`
	Purpose   string `json:"purpose" dynamodbav:"purpose"`
	Code      string `json:"code" dynamodbav:"code"`
	Used      bool   `json:"used" dynamodbav:"used"`
	CreatedAt int64  `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
}

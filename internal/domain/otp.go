package domain

import "time"

// OTP purposes. Consume is always scoped by email+purpose, never by code
// alone; two users may hold the same six digits at the same time.
const (
	OTPPurposeVerification = "verification"
	OTPPurposeReset        = "reset"
)

// OTPRecord is a one-time passcode tied to a user and a purpose.
// Email is denormalized from the user at issue time. Records are never
// deleted on invalidation; they are marked used. ExpiresAt doubles as
// the DynamoDB TTL attribute (Unix seconds).
type OTPRecord struct {
	OTPID     string    `json:"id" dynamodbav:"otp_id"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Email     string    `json:"email" dynamodbav:"email"`
	Code      string    `json:"otp" dynamodbav:"code"`
	Purpose   string    `json:"otp_type" dynamodbav:"purpose"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt int64     `json:"expires_at" dynamodbav:"expires_at"`
	IsUsed    bool      `json:"is_used" dynamodbav:"is_used"`
}

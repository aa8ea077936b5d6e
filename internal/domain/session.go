package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session TTLs.
const (
	SessionTTL           = 24 * time.Hour
	SessionTTLRemembered = 7 * 24 * time.Hour
	DeviceTrustTTL       = 30 * 24 * time.Hour
	TwoFactorCodeTTL     = 10 * time.Minute
)

// Session is one row in any of the four authenticated session tables.
// Kind selects the table; anonymous carts are not sessions in this sense.
type Session struct {
	ID        uuid.UUID
	Kind      PrincipalKind
	SubjectID uuid.UUID
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// DeviceTrust is a (staff, device-fingerprint-hash) pair that bypasses 2FA
// until it expires.
type DeviceTrust struct {
	ID              uuid.UUID
	StaffID         uuid.UUID
	FingerprintHash string
	ExpiresAt       time.Time
	CreatedAt       time.Time
}

// TwoFactorCode is a single-use 6-digit staff login code.
type TwoFactorCode struct {
	ID        uuid.UUID
	StaffID   uuid.UUID
	Code      string
	Used      bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TradeDocument is metadata for a file held in the trade-documents bucket.
type TradeDocument struct {
	ID              uuid.UUID `json:"id"`
	TradeCustomerID uuid.UUID `json:"trade_customer_id"`
	Name            string    `json:"name"`
	ObjectKey       string    `json:"-"`
	ContentType     string    `json:"content_type"`
	SizeBytes       int64     `json:"size_bytes"`
	UploadedBy      string    `json:"uploaded_by"`
	CreatedAt       time.Time `json:"created_at"`
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Commission statuses. Paid is terminal under recomputation.
type CommissionStatus string

const (
	CommissionPending   CommissionStatus = "pending"
	CommissionEarned    CommissionStatus = "earned"
	CommissionPaid      CommissionStatus = "paid"
	CommissionForfeited CommissionStatus = "forfeited"
)

// RepCommission is the per-order commission row, unique on order_id.
type RepCommission struct {
	ID         uuid.UUID        `json:"id"`
	OrderID    uuid.UUID        `json:"order_id"`
	SalesRepID uuid.UUID        `json:"sales_rep_id"`
	Rate       decimal.Decimal  `json:"rate"`
	OrderTotal decimal.Decimal  `json:"order_total"`
	VendorCost decimal.Decimal  `json:"vendor_cost"`
	Margin     decimal.Decimal  `json:"margin"`
	Amount     decimal.Decimal  `json:"amount"`
	Status     CommissionStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// SalesRep is a commissioned sales representative.
type SalesRep struct {
	ID             uuid.UUID
	Email          string
	Name           string
	PasswordHash   string
	CommissionRate decimal.Decimal
	Active         bool
	CreatedAt      time.Time
}

// TradeCustomer is an approved trade-program account with a margin tier.
type TradeCustomer struct {
	ID             uuid.UUID
	Email          string
	CompanyName    string
	PasswordHash   string
	Status         string // "pending", "approved", "suspended", "cancelled"
	TierID         *uuid.UUID
	SalesRepID     *uuid.UUID
	TotalSpend     decimal.Decimal
	Subscription   string // "active", "past_due", "cancelled", "none"
	SubscriptionID *string
	ExpiresAt      *time.Time
	CreatedAt      time.Time
}

// TradeTier is a named discount bracket. Promotion is automatic on spend
// and never demotes.
type TradeTier struct {
	ID              uuid.UUID
	Name            string
	DiscountPercent decimal.Decimal
	SpendThreshold  decimal.Decimal
}

// Customer is a retail account.
type Customer struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// StaffUser is a staff console account.
type StaffUser struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"` // admin, manager, support
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

package domain

import (
	"time"

	"github.com/nebulacloud/console/pkg/money"
)

// Credit transaction types.
const (
	CreditPurchase = "purchase"
	CreditUsage    = "usage"
)

// CreditEntry is an immutable ledger row. Balance is always derived.
type CreditEntry struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	Amount          money.Cents `json:"amount_cents"`
	TransactionType string      `json:"transaction_type"`
	Description     string      `json:"description"`
	ServiceType     string      `json:"service_type,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

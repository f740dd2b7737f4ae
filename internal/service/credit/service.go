package credit

import (
	"context"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/nebulacloud/console/internal/domain"
	"github.com/nebulacloud/console/internal/repository"
	"github.com/nebulacloud/console/pkg/money"
)

// MaxPurchase caps a single purchase.
const MaxPurchase money.Cents = 1_000_000

// UsageInput is an externally reported charge.
type UsageInput struct {
	UserID      string      `json:"user_id"`
	Amount      money.Cents `json:"amount_cents"`
	Description string      `json:"description"`
	ServiceType string      `json:"service_type"`
}

var (
	errAmount      = domain.Invalid("amount must be greater than zero")
	errAmountLimit = domain.Invalid("amount exceeds the single purchase limit")
	errUserID      = domain.Invalid("user id required")
	errDescription = domain.Invalid("description required")
)

// Service manages the credit ledger. No payment provider is contacted.
type Service struct {
	repo   repository.CreditRepository
	logger *slog.Logger
	now    func() time.Time
}

// New returns a credit service.
func New(repo repository.CreditRepository, logger *slog.Logger) Service {
	return Service{repo: repo, logger: logger, now: time.Now}
}

// List returns the caller's ledger.
func (s Service) List(ctx context.Context, userID string) ([]domain.CreditEntry, error) {
	return s.repo.ListCredits(ctx, userID)
}

// Purchase records a purchase row of the given amount.
func (s Service) Purchase(ctx context.Context, userID string, amount money.Cents) (*domain.CreditEntry, error) {
	if amount <= 0 {
		return nil, errAmount
	}
	if amount > MaxPurchase {
		return nil, errAmountLimit
	}
	entry := &domain.CreditEntry{
		ID:              uuid.NewString(),
		UserID:          userID,
		Amount:          amount,
		TransactionType: domain.CreditPurchase,
		Description:     "Credit purchase - " + amount.String(),
		CreatedAt:       s.now().UTC(),
	}
	if err := s.repo.InsertCredit(ctx, entry); err != nil {
		return nil, err
	}
	s.logger.Info("credits purchased", "user_id", userID, "amount_cents", int64(amount))
	return entry, nil
}

// RecordUsage appends a usage row reported by a metering source.
func (s Service) RecordUsage(ctx context.Context, input UsageInput) (*domain.CreditEntry, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, errUserID
	}
	if input.Amount <= 0 {
		return nil, errAmount
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, errDescription
	}
	entry := &domain.CreditEntry{
		ID:              uuid.NewString(),
		UserID:          input.UserID,
		Amount:          input.Amount,
		TransactionType: domain.CreditUsage,
		Description:     description,
		ServiceType:     strings.TrimSpace(input.ServiceType),
		CreatedAt:       s.now().UTC(),
	}
	if err := s.repo.InsertCredit(ctx, entry); err != nil {
		return nil, err
	}
	s.logger.Info("usage recorded", "user_id", input.UserID, "amount_cents", int64(input.Amount), "service_type", entry.ServiceType)
	return entry, nil
}

package credit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/nebulacloud/console/internal/domain"
	"github.com/nebulacloud/console/pkg/money"
)

type stubCreditRepository struct {
	entries []domain.CreditEntry
}

func (s *stubCreditRepository) InsertCredit(_ context.Context, entry *domain.CreditEntry) error {
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *stubCreditRepository) ListCredits(_ context.Context, userID string) ([]domain.CreditEntry, error) {
	var out []domain.CreditEntry
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func newService(repo *stubCreditRepository) Service {
	return New(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPurchaseRecordsLedgerRow(t *testing.T) {
	repo := &stubCreditRepository{}
	svc := newService(repo)

	entry, err := svc.Purchase(context.Background(), "user-1", money.FromDollars(25))
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if entry.TransactionType != domain.CreditPurchase {
		t.Fatalf("expected purchase row, got %q", entry.TransactionType)
	}
	if entry.Description != "Credit purchase - $25.00" {
		t.Fatalf("unexpected description %q", entry.Description)
	}
	list, _ := svc.List(context.Background(), "user-1")
	if len(list) != 1 || list[0].Amount != 2500 {
		t.Fatalf("unexpected ledger %+v", list)
	}
}

func TestPurchaseRejectsNonPositiveAmounts(t *testing.T) {
	svc := newService(&stubCreditRepository{})
	for _, amount := range []money.Cents{0, -100, MaxPurchase + 1} {
		if _, err := svc.Purchase(context.Background(), "user-1", amount); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("amount %d: expected ErrInvalidInput, got %v", amount, err)
		}
	}
}

func TestRecordUsage(t *testing.T) {
	repo := &stubCreditRepository{}
	svc := newService(repo)

	entry, err := svc.RecordUsage(context.Background(), UsageInput{UserID: "user-1", Amount: 599, Description: "VPS web-1", ServiceType: "vps"})
	if err != nil {
		t.Fatalf("record usage: %v", err)
	}
	if entry.TransactionType != domain.CreditUsage || entry.ServiceType != "vps" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if _, err := svc.RecordUsage(context.Background(), UsageInput{UserID: "user-1", Amount: 100}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without description, got %v", err)
	}
}

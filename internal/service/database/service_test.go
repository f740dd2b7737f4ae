package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/nebulacloud/console/internal/domain"
	"github.com/nebulacloud/console/internal/repository"
	"github.com/nebulacloud/console/pkg/crypto"
)

type stubDatabaseRepository struct {
	items map[string]domain.ManagedDatabase
}

func (s *stubDatabaseRepository) CreateDatabase(_ context.Context, db *domain.ManagedDatabase) error {
	stored := *db
	stored.ConnectionString = ""
	s.items[db.ID] = stored
	return nil
}

func (s *stubDatabaseRepository) ListDatabases(_ context.Context, userID string) ([]domain.ManagedDatabase, error) {
	var out []domain.ManagedDatabase
	for _, db := range s.items {
		if db.UserID == userID {
			out = append(out, db)
		}
	}
	return out, nil
}

func (s *stubDatabaseRepository) UpdateDatabaseStatus(_ context.Context, userID, id, status string) (*domain.ManagedDatabase, error) {
	db, ok := s.items[id]
	if !ok || db.UserID != userID {
		return nil, repository.ErrNotFound
	}
	db.Status = status
	s.items[id] = db
	return &db, nil
}

func (s *stubDatabaseRepository) DeleteDatabase(_ context.Context, userID, id string) error {
	db, ok := s.items[id]
	if !ok || db.UserID != userID {
		return repository.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func newService(t *testing.T) Service {
	t.Helper()
	box, err := crypto.NewBox("test-secret")
	if err != nil {
		t.Fatalf("new box: %v", err)
	}
	repo := &stubDatabaseRepository{items: make(map[string]domain.ManagedDatabase)}
	return New(repo, box, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateSealsConnectionString(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	db, err := svc.Create(ctx, "user-1", CreateInput{Name: "Orders DB", InstanceSize: "db.t3.small"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if db.Status != domain.DatabaseCreating || db.MonthlyCost != 1999 || db.DatabaseType != "postgresql" {
		t.Fatalf("unexpected database %+v", db)
	}
	if !strings.HasPrefix(db.ConnectionString, "postgres://admin@") || !strings.HasSuffix(db.ConnectionString, ":5432/orders_db") {
		t.Fatalf("unexpected connection string %q", db.ConnectionString)
	}
	if strings.Contains(string(db.EncryptedConnection), "admin@") {
		t.Fatal("connection string stored in plaintext")
	}

	list, err := svc.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ConnectionString != db.ConnectionString {
		t.Fatalf("expected decrypted connection string, got %+v", list)
	}
}

func TestCreateUnknownSizeFallsBackToDefaultPrice(t *testing.T) {
	svc := newService(t)
	db, err := svc.Create(context.Background(), "user-1", CreateInput{Name: "cache", DatabaseType: "Redis", InstanceSize: "db.huge"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if db.MonthlyCost != 999 || db.DatabaseType != "redis" {
		t.Fatalf("unexpected database %+v", db)
	}
}

func TestCreateValidationAndStatus(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	for _, input := range []CreateInput{{}, {Name: "x", DatabaseType: "oracle"}, {Name: "x", StorageGB: 1}} {
		if _, err := svc.Create(ctx, "user-1", input); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("input %+v: expected ErrInvalidInput, got %v", input, err)
		}
	}
	db, err := svc.Create(ctx, "user-1", CreateInput{Name: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	updated, err := svc.SetStatus(ctx, "user-1", db.ID, "running")
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if updated.Status != domain.DatabaseRunning || updated.ConnectionString == "" {
		t.Fatalf("unexpected database after status change %+v", updated)
	}
}

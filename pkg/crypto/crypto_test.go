package crypto

import "testing"

func TestBoxRoundTrip(t *testing.T) {
	box, err := NewBox("key-material")
	if err != nil {
		t.Fatalf("new box: %v", err)
	}
	sealed, err := box.Seal("postgresql://admin@db:5432/app")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if string(sealed) == "postgresql://admin@db:5432/app" {
		t.Fatal("expected ciphertext to differ from plaintext")
	}
	plain, err := box.Open(sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if plain != "postgresql://admin@db:5432/app" {
		t.Fatalf("unexpected plaintext %q", plain)
	}
}

func TestBoxRejectsForeignKey(t *testing.T) {
	a, _ := NewBox("a")
	b, _ := NewBox("b")
	sealed, err := a.Seal("secret")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := b.Open(sealed); err == nil {
		t.Fatal("expected open with wrong key to fail")
	}
}

func TestNewBoxRequiresKey(t *testing.T) {
	if _, err := NewBox(""); err != ErrEmptyKey {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}
}

func TestHashPassword(t *testing.T) {
	if _, err := HashPassword("abc"); err != ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := ComparePassword(hash, "correct horse"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := ComparePassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch")
	}
}

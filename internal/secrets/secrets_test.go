package secrets

import (
	"testing"

	gokeyring "github.com/zalando/go-keyring"
)

func TestSetAndGet(t *testing.T) {
	gokeyring.MockInit()

	want := "postgres://studyuser@localhost:5432/study?sslmode=disable"
	if err := Set(KeyDatabaseDSN, want); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	got, err := Get(KeyDatabaseDSN)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got != want {
		t.Errorf("Get() = %q, want %q", got, want)
	}
}

func TestSetEmpty(t *testing.T) {
	gokeyring.MockInit()

	if err := Set(KeyJWTSigning, ""); err == nil {
		t.Error("Set(\"\") should return an error")
	}
}

func TestGetMissing(t *testing.T) {
	gokeyring.MockInit()

	if _, err := Get("does-not-exist"); err != ErrNotFound {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestDeleteMissing(t *testing.T) {
	gokeyring.MockInit()

	if err := Delete("does-not-exist"); err != ErrNotFound {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

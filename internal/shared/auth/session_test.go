package auth

import (
	"testing"
	"time"

	"github.com/vitalwatch/platform/internal/shared/types"
)

func testConfig() SessionConfig {
	return SessionConfig{
		TTL:         time.Hour,
		IdleTimeout: time.Hour,
		MaxPerUser:  2,
	}
}

func TestSessionStoreCreateAndGet(t *testing.T) {
	store := NewSessionStore(testConfig())
	defer store.Close()

	userID := types.NewID()
	session := store.Create(userID, "doctor", "10.0.0.1", "test-agent")

	got, err := store.Get(session.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.UserID != userID {
		t.Errorf("Expected user %s, got %s", userID, got.UserID)
	}
	if got.UserType != "doctor" {
		t.Errorf("Expected user type doctor, got %s", got.UserType)
	}
}

func TestSessionStoreRevoke(t *testing.T) {
	store := NewSessionStore(testConfig())
	defer store.Close()

	session := store.Create(types.NewID(), "caregiver", "", "")
	store.Revoke(session.ID)

	if _, err := store.Get(session.ID); err == nil {
		t.Error("Expected error for revoked session")
	}
	if store.Count() != 0 {
		t.Errorf("Expected 0 sessions, got %d", store.Count())
	}
}

func TestSessionStoreEvictsOldest(t *testing.T) {
	store := NewSessionStore(testConfig())
	defer store.Close()

	userID := types.NewID()
	first := store.Create(userID, "patient", "", "")
	store.Create(userID, "patient", "", "")
	store.Create(userID, "patient", "", "")

	if store.Count() != 2 {
		t.Errorf("Expected 2 sessions after eviction, got %d", store.Count())
	}
	if _, err := store.Get(first.ID); err == nil {
		t.Error("Expected oldest session to be evicted")
	}
}

func TestSessionStoreExpiry(t *testing.T) {
	cfg := testConfig()
	cfg.TTL = -time.Second // already expired
	store := NewSessionStore(cfg)
	defer store.Close()

	session := store.Create(types.NewID(), "doctor", "", "")

	if _, err := store.Get(session.ID); err == nil {
		t.Error("Expected error for expired session")
	}
}

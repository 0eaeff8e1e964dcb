package repository

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"ecoquest/internal/database"
)

func newTestRepo(t *testing.T) *StateRepository {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, file, _, _ := runtime.Caller(0)
	if err := db.RunMigrations(filepath.Join(filepath.Dir(file), "..", "..", "migrations")); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	return NewStateRepository(db)
}

func TestStateRepositoryRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, found, err := repo.Get(ctx, "ecoquest_user"); err != nil || found {
		t.Fatalf("Get() on empty store = found %v, err %v", found, err)
	}

	if err := repo.Set(ctx, "ecoquest_user", "first", time.Time{}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := repo.Set(ctx, "ecoquest_user", "second", time.Time{}); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}

	value, found, err := repo.Get(ctx, "ecoquest_user")
	if err != nil || !found || value != "second" {
		t.Fatalf("Get() = %q, %v, %v; want second, true, nil", value, found, err)
	}

	if err := repo.Delete(ctx, "ecoquest_user"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, "ecoquest_user"); err != nil {
		t.Fatalf("Delete() of missing key error = %v", err)
	}
	if _, found, _ := repo.Get(ctx, "ecoquest_user"); found {
		t.Error("Get() after Delete() still found the value")
	}
}

func TestStateRepositoryExpiry(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	if err := repo.Set(ctx, "short", "v", now.Add(time.Minute)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := repo.Set(ctx, "forever", "v", time.Time{}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, found, _ := repo.Get(ctx, "short"); !found {
		t.Fatal("entry should be visible before expiry")
	}

	now = now.Add(2 * time.Minute)
	if _, found, _ := repo.Get(ctx, "short"); found {
		t.Error("expired entry should not be found")
	}

	purged, err := repo.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired() error = %v", err)
	}
	if purged != 1 {
		t.Errorf("PurgeExpired() = %d, want 1", purged)
	}
	if _, found, _ := repo.Get(ctx, "forever"); !found {
		t.Error("entry without expiry was purged")
	}
}

package repository

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"social-accounts/internal/backupcode/domain"
	"social-accounts/internal/db"
)

func newCodes(hashes ...string) []*domain.Code {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*domain.Code, 0, len(hashes))
	for i, h := range hashes {
		out = append(out, &domain.Code{
			ID:        uuid.Must(uuid.NewV7()).String(),
			CodeHash:  h,
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		})
	}
	return out
}

func hashesOf(codes []*domain.Code) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		out = append(out, c.CodeHash)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// runRepositoryContract exercises the behavior every Repository implementation must share.
// newRepo returns the repository and a function creating a user the repository may store codes for.
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) (Repository, func() string)) {
	ctx := context.Background()

	t.Run("replace and list", func(t *testing.T) {
		repo, newUser := newRepo(t)
		userID := newUser()
		if err := repo.Replace(ctx, userID, newCodes("h1", "h2", "h3")); err != nil {
			t.Fatalf("Replace: %v", err)
		}
		got, err := repo.ListUnused(ctx, userID)
		if err != nil {
			t.Fatalf("ListUnused: %v", err)
		}
		if !equalStrings(hashesOf(got), []string{"h1", "h2", "h3"}) {
			t.Errorf("ListUnused = %v, want [h1 h2 h3]", hashesOf(got))
		}
		for _, c := range got {
			if c.UserID != userID || c.ID == "" {
				t.Errorf("code %+v should carry user id and id", c)
			}
		}
	})

	t.Run("mark used once", func(t *testing.T) {
		repo, newUser := newRepo(t)
		userID := newUser()
		_ = repo.Replace(ctx, userID, newCodes("h1", "h2"))

		ok, err := repo.MarkUsed(ctx, userID, "h1")
		if err != nil || !ok {
			t.Fatalf("first MarkUsed = %v, %v; want true", ok, err)
		}
		ok, err = repo.MarkUsed(ctx, userID, "h1")
		if err != nil || ok {
			t.Fatalf("second MarkUsed = %v, %v; want false", ok, err)
		}
		got, _ := repo.ListUnused(ctx, userID)
		if !equalStrings(hashesOf(got), []string{"h2"}) {
			t.Errorf("ListUnused = %v, want [h2]", hashesOf(got))
		}
	})

	t.Run("mark unknown", func(t *testing.T) {
		repo, newUser := newRepo(t)
		userID := newUser()
		_ = repo.Replace(ctx, userID, newCodes("h1"))
		ok, err := repo.MarkUsed(ctx, userID, "nope")
		if err != nil || ok {
			t.Errorf("MarkUsed(unknown) = %v, %v; want false", ok, err)
		}
		ok, err = repo.MarkUsed(ctx, newUser(), "h1")
		if err != nil || ok {
			t.Errorf("MarkUsed(other user) = %v, %v; want false", ok, err)
		}
	})

	t.Run("replace invalidates previous set", func(t *testing.T) {
		repo, newUser := newRepo(t)
		userID := newUser()
		_ = repo.Replace(ctx, userID, newCodes("old1", "old2"))
		_ = repo.Replace(ctx, userID, newCodes("new1"))

		if ok, _ := repo.MarkUsed(ctx, userID, "old1"); ok {
			t.Error("code from the previous set should not be consumable")
		}
		got, _ := repo.ListUnused(ctx, userID)
		if !equalStrings(hashesOf(got), []string{"new1"}) {
			t.Errorf("ListUnused = %v, want [new1]", hashesOf(got))
		}
	})

	t.Run("delete all", func(t *testing.T) {
		repo, newUser := newRepo(t)
		userID := newUser()
		_ = repo.Replace(ctx, userID, newCodes("h1"))
		if err := repo.DeleteAll(ctx, userID); err != nil {
			t.Fatalf("DeleteAll: %v", err)
		}
		got, _ := repo.ListUnused(ctx, userID)
		if len(got) != 0 {
			t.Errorf("ListUnused after DeleteAll = %v", hashesOf(got))
		}
	})

	t.Run("concurrent mark used", func(t *testing.T) {
		repo, newUser := newRepo(t)
		userID := newUser()
		_ = repo.Replace(ctx, userID, newCodes("h1"))

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := repo.MarkUsed(ctx, userID, "h1")
				if err != nil {
					t.Errorf("MarkUsed: %v", err)
					return
				}
				if ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		if wins.Load() != 1 {
			t.Errorf("successful MarkUsed calls = %d, want 1", wins.Load())
		}
	})
}

func TestMemoryRepository(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) (Repository, func() string) {
		return NewMemoryRepository(), uuid.NewString
	})
}

func TestMemoryRepository_ReplaceCopies(t *testing.T) {
	repo := NewMemoryRepository()
	codes := newCodes("h1")
	_ = repo.Replace(context.Background(), "u1", codes)
	codes[0].CodeHash = "mutated"

	got, _ := repo.ListUnused(context.Background(), "u1")
	if len(got) != 1 || got[0].CodeHash != "h1" {
		t.Errorf("stored set should not alias the caller's slice, got %v", hashesOf(got))
	}
}

func TestRedisRepository(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) (Repository, func() string) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return NewRedisRepository(client, ""), uuid.NewString
	})
}

func TestRedisRepository_KeysShareSlot(t *testing.T) {
	r := NewRedisRepository(nil, "bc")
	if r.stateKey("u1") != "bc:{u1}:state" || r.metaKey("u1") != "bc:{u1}:meta" {
		t.Errorf("keys = %q, %q", r.stateKey("u1"), r.metaKey("u1"))
	}
}

func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	conn, err := db.Open(context.Background(), dsn)
	if err != nil {
		t.Skipf("Database connection failed (expected in test environment): %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	newUser := func() string {
		accountID := uuid.NewString()
		userID := uuid.NewString()
		now := time.Now().UTC()
		if _, err := conn.Exec(`INSERT INTO accounts (id, username, created_at) VALUES ($1, $2, $3)`,
			accountID, "bc_"+accountID[:8], now); err != nil {
			t.Fatalf("insert account: %v", err)
		}
		if _, err := conn.Exec(`INSERT INTO users (id, account_id, email, encrypted_password, created_at, updated_at)
			VALUES ($1, $2, $3, '', $4, $4)`, userID, accountID, userID+"@example.com", now); err != nil {
			t.Fatalf("insert user: %v", err)
		}
		return userID
	}
	runRepositoryContract(t, func(t *testing.T) (Repository, func() string) {
		return NewPostgresRepository(conn), newUser
	})
}

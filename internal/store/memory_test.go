package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/userauth/apiserver/types"
)

func TestMemoryStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStore()

	created, err := s.Create(ctx, types.User{
		ID:           "id-1",
		Username:     "ana",
		Email:        "ana@x.com",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}

	byID, err := s.GetByID(ctx, "id-1")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID.Email != "ana@x.com" {
		t.Fatalf("unexpected email: %q", byID.Email)
	}

	byEmail, err := s.GetByEmail(ctx, "ana@x.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail.ID != "id-1" {
		t.Fatalf("unexpected id: %q", byEmail.ID)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStore()

	if _, err := s.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetByEmail(ctx, "missing@x.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStore()

	if _, err := s.Create(ctx, types.User{ID: "id-1", Email: "ana@x.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create(ctx, types.User{ID: "id-2", Email: "ana@x.com"}); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestMemoryStoreConcurrentDuplicateCreate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStore()

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Create(ctx, types.User{
				ID:    fmt.Sprintf("id-%d", i),
				Email: "ana@x.com",
			})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrDuplicateEmail):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one successful create, got %d", wins)
	}
	if losses != attempts-1 {
		t.Fatalf("expected %d duplicate errors, got %d", attempts-1, losses)
	}
}

package di

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/goliatone/go-repository-service/entity"
	"github.com/goliatone/go-repository-service/store"
	"github.com/goliatone/go-repository-service/store/memstore"
)

// User represents a test model for integration tests
type User struct {
	entity.BaseEntity
	Name  string `json:"name" bun:"name"`
	Email string `json:"email" bun:"email"`
}

// countingStore wraps a memstore and tracks FindOne calls to verify caching
// behavior.
type countingStore struct {
	*memstore.Store[User]
	mu      sync.Mutex
	findOne int
}

func newCountingStore() *countingStore {
	n := 0
	var mu sync.Mutex
	return &countingStore{Store: memstore.New[User](
		memstore.WithIDGenerator[User](func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("user-%d", n)
		}),
	)}
}

func (s *countingStore) FindOne(ctx context.Context, cond entity.Condition) (User, error) {
	s.mu.Lock()
	s.findOne++
	s.mu.Unlock()
	return s.Store.FindOne(ctx, cond)
}

func (s *countingStore) findOneCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findOne
}

func containerFor(t *testing.T, kind BackendKind) *Container {
	t.Helper()
	config := DefaultConfig()
	config.Backend = kind
	config.Cache.AppName = "App"
	if kind == BackendRedis {
		config.Redis.Addr = miniredis.RunT(t).Addr()
	}

	container, err := NewContainer(config)
	if err != nil {
		t.Fatalf("Failed to create DI container: %v", err)
	}
	t.Cleanup(func() { container.Close(context.Background()) })
	return container
}

func TestEndToEndServiceFlow(t *testing.T) {
	testCases := []struct {
		kind BackendKind
		// store lookups expected after three FindOne calls by email
		wantLookups int
	}{
		// miss, ref resolved through the store, hit
		{BackendSturdyc, 2},
		{BackendRistretto, 2},
		{BackendRedis, 2},
		{BackendNone, 3},
	}

	for _, tc := range testCases {
		t.Run(string(tc.kind), func(t *testing.T) {
			container := containerFor(t, tc.kind)
			st := newCountingStore()

			svc, err := NewService[User](container, st, "|user")
			if err != nil {
				t.Fatalf("NewService() failed: %v", err)
			}
			defer svc.Wait()

			if got := svc.Enabled(); got != (tc.kind != BackendNone) {
				t.Fatalf("Expected Enabled()=%v, got %v", tc.kind != BackendNone, got)
			}

			ctx := context.Background()
			created, err := svc.Create(ctx, User{Name: "Ann", Email: "a@x.com"})
			if err != nil {
				t.Fatalf("Create() failed: %v", err)
			}

			byEmail := entity.Where("email", "a@x.com")
			for i := 0; i < 3; i++ {
				got, err := svc.FindOne(ctx, byEmail)
				if err != nil {
					t.Fatalf("FindOne() #%d failed: %v", i, err)
				}
				if got.ID != created.ID {
					t.Fatalf("Expected id %q, got %q", created.ID, got.ID)
				}
				svc.Wait()
			}

			if got := st.findOneCalls(); got != tc.wantLookups {
				t.Errorf("Expected %d store lookups, got %d", tc.wantLookups, got)
			}

			if _, err := svc.UpdateByID(ctx, created.ID, entity.Patch{"name": "Annie"}); err != nil {
				t.Fatalf("UpdateByID() failed: %v", err)
			}
			svc.Wait()

			got, err := svc.FindOne(ctx, byEmail)
			if err != nil {
				t.Fatalf("FindOne() after update failed: %v", err)
			}
			if got.Name != "Annie" {
				t.Errorf("Expected the reference to resolve to the updated record, got %q", got.Name)
			}
		})
	}
}

func TestCacheKeysShareContainerConfig(t *testing.T) {
	container := containerFor(t, BackendSturdyc)

	svc, err := NewService[User](container, newCountingStore(), "")
	if err != nil {
		t.Fatalf("NewService() failed: %v", err)
	}

	if got := svc.CacheKey(entity.ByID("u1")); got != "App|user|id_u1" {
		t.Errorf("Expected derived unique key, got %q", got)
	}
}

func TestDeleteDropsCachedRecord(t *testing.T) {
	container := containerFor(t, BackendSturdyc)
	st := newCountingStore()
	svc, err := NewService[User](container, st, "|user")
	if err != nil {
		t.Fatalf("NewService() failed: %v", err)
	}
	defer svc.Wait()

	ctx := context.Background()
	created, _ := svc.Create(ctx, User{Name: "Ann", Email: "a@x.com"})

	if _, err := svc.FindOne(ctx, entity.ByID(created.ID)); err != nil {
		t.Fatalf("FindOne() failed: %v", err)
	}
	svc.Wait()

	if ok, err := svc.DeleteByID(ctx, created.ID); err != nil || !ok {
		t.Fatalf("DeleteByID() = %v, %v", ok, err)
	}
	svc.Wait()

	_, err = svc.FindOne(ctx, entity.ByID(created.ID))
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

// TestConcurrentAccess runs many lookups against a shared container.
func TestConcurrentAccess(t *testing.T) {
	container := containerFor(t, BackendSturdyc)
	st := newCountingStore()
	svc, err := NewService[User](container, st, "|user")
	if err != nil {
		t.Fatalf("NewService() failed: %v", err)
	}
	defer svc.Wait()

	ctx := context.Background()
	ids := make([]string, 20)
	for i := range ids {
		u, err := st.Create(ctx, User{Name: fmt.Sprintf("User %d", i), Email: fmt.Sprintf("user%d@example.com", i)})
		if err != nil {
			t.Fatalf("seed failed: %v", err)
		}
		ids[i] = u.ID
	}

	const numGoroutines = 20
	const operationsPerGoroutine = 25

	var wg sync.WaitGroup
	errs := make(chan error, numGoroutines*operationsPerGoroutine)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := 0; j < operationsPerGoroutine; j++ {
				n := (workerID + j) % len(ids)
				cond := entity.ByID(ids[n])
				if j%2 == 1 {
					cond = entity.Where("email", fmt.Sprintf("user%d@example.com", n))
				}
				got, err := svc.FindOne(ctx, cond)
				if err != nil {
					errs <- fmt.Errorf("worker %d operation %d failed: %v", workerID, j, err)
					continue
				}
				if got.ID != ids[n] {
					errs <- fmt.Errorf("worker %d operation %d: expected %s, got %s", workerID, j, ids[n], got.ID)
				}
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	if got := st.findOneCalls(); got >= numGoroutines*operationsPerGoroutine {
		t.Errorf("Expected the cache to absorb lookups, store saw %d", got)
	}
}

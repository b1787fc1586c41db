package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-repository-service/cache"
	"github.com/goliatone/go-repository-service/entity"
	"github.com/goliatone/go-repository-service/store"
	"github.com/goliatone/go-repository-service/store/memstore"
)

type user struct {
	entity.BaseEntity
	Name  string `json:"name"`
	Email string `json:"email"`
}

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type setCall struct {
	key   string
	value string
	mode  cache.SetMode
	ttl   time.Duration
}

// recordingBackend is an in-memory backend that records every call.
type recordingBackend struct {
	mu    sync.Mutex
	data  map[string]string
	calls []string
	sets  []setCall
	// block, when set, makes Set wait for ctx to finish.
	block bool
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{data: make(map[string]string)}
}

func (b *recordingBackend) record(call string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
}

func (b *recordingBackend) getCalls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *recordingBackend) getSets() []setCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]setCall(nil), b.sets...)
}

func (b *recordingBackend) raw(key string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	return v, ok
}

func (b *recordingBackend) put(key, value string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
}

func (b *recordingBackend) Get(_ context.Context, key string) (string, bool, error) {
	b.record("Get " + key)
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	return v, ok, nil
}

func (b *recordingBackend) Set(ctx context.Context, key, value string, mode cache.SetMode, ttl time.Duration) error {
	b.record("Set " + key)
	if b.block {
		<-ctx.Done()
		return ctx.Err()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
	b.sets = append(b.sets, setCall{key: key, value: value, mode: mode, ttl: ttl})
	return nil
}

func (b *recordingBackend) Del(_ context.Context, key string) (int64, error) {
	b.record("Del " + key)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.data[key]; !ok {
		return 0, nil
	}
	delete(b.data, key)
	return 1, nil
}

func (b *recordingBackend) Expire(_ context.Context, key string, _ time.Duration) (bool, error) {
	b.record("Expire " + key)
	return false, nil
}

func (b *recordingBackend) IncrBy(_ context.Context, key string, n int64) (int64, error) {
	b.record("IncrBy " + key)
	return n, nil
}

func (b *recordingBackend) DecrBy(_ context.Context, key string, n int64) (int64, error) {
	b.record("DecrBy " + key)
	return -n, nil
}

var errBackendDown = errors.New("backend down")

// failingBackend rejects every call.
type failingBackend struct{}

func (failingBackend) Get(context.Context, string) (string, bool, error) {
	return "", false, errBackendDown
}
func (failingBackend) Set(context.Context, string, string, cache.SetMode, time.Duration) error {
	return errBackendDown
}
func (failingBackend) Del(context.Context, string) (int64, error) { return 0, errBackendDown }
func (failingBackend) Expire(context.Context, string, time.Duration) (bool, error) {
	return false, errBackendDown
}
func (failingBackend) IncrBy(context.Context, string, int64) (int64, error) { return 0, errBackendDown }
func (failingBackend) DecrBy(context.Context, string, int64) (int64, error) { return 0, errBackendDown }

// panickingBackend panics on every call.
type panickingBackend struct{}

func (panickingBackend) Get(context.Context, string) (string, bool, error) { panic("get exploded") }
func (panickingBackend) Set(context.Context, string, string, cache.SetMode, time.Duration) error {
	panic("set exploded")
}
func (panickingBackend) Del(context.Context, string) (int64, error) { panic("del exploded") }
func (panickingBackend) Expire(context.Context, string, time.Duration) (bool, error) {
	panic("expire exploded")
}
func (panickingBackend) IncrBy(context.Context, string, int64) (int64, error) { panic("incr exploded") }
func (panickingBackend) DecrBy(context.Context, string, int64) (int64, error) { panic("decr exploded") }

type logEntry struct {
	msg    string
	fields cache.Fields
}

// recordingLogger keeps warn entries.
type recordingLogger struct {
	mu    sync.Mutex
	warns []logEntry
}

func (l *recordingLogger) Debug(string, cache.Fields) {}
func (l *recordingLogger) Info(string, cache.Fields)  {}
func (l *recordingLogger) Error(string, cache.Fields) {}
func (l *recordingLogger) Warn(msg string, f cache.Fields) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, logEntry{msg: msg, fields: f})
}

func (l *recordingLogger) getWarns() []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]logEntry(nil), l.warns...)
}

// recordingHooks keeps a textual trace of cache events.
type recordingHooks struct {
	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) add(e string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *recordingHooks) Hit(key string, viaRef bool) { h.add(fmt.Sprintf("hit %s ref=%v", key, viaRef)) }
func (h *recordingHooks) Miss(key string)             { h.add("miss " + key) }
func (h *recordingHooks) RefRepaired(refKey, id string) {
	h.add("repaired " + refKey + " " + id)
}
func (h *recordingHooks) Error(op, key string, _ error) { h.add("error " + op + " " + key) }

func (h *recordingHooks) getEvents() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

// countingStore wraps a memstore, counts FindOne calls and can fail them.
type countingStore struct {
	*memstore.Store[user]
	mu          sync.Mutex
	findOne     int
	findOneErr  error
	updateErr   error
	updateFound *bool
	// afterFindOne runs once, after the record was read and before it is
	// returned.
	afterFindOne func(entity.Condition)
}

func newCountingStore() *countingStore {
	n := 0
	return &countingStore{Store: memstore.New[user](
		memstore.WithIDGenerator[user](func() string { n++; return fmt.Sprintf("u%d", n) }),
		memstore.WithClock[user](func() time.Time { return fixedNow }),
	)}
}

func (s *countingStore) FindOne(ctx context.Context, cond entity.Condition) (user, error) {
	s.mu.Lock()
	s.findOne++
	err := s.findOneErr
	after := s.afterFindOne
	s.afterFindOne = nil
	s.mu.Unlock()
	if err != nil {
		return user{}, err
	}

	record, err := s.Store.FindOne(ctx, cond)
	if after != nil {
		after(cond)
	}
	return record, err
}

func (s *countingStore) UpdateByID(ctx context.Context, id string, patch entity.Patch) (bool, error) {
	if s.updateErr != nil {
		return false, s.updateErr
	}
	if s.updateFound != nil {
		return *s.updateFound, nil
	}
	return s.Store.UpdateByID(ctx, id, patch)
}

func (s *countingStore) findOneCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findOne
}

var _ store.Store[user] = (*countingStore)(nil)

func testConfig() cache.Config {
	cfg := cache.DefaultConfig()
	cfg.AppName = "App"
	cfg.UniqueKey = "|user"
	cfg.TTL = 60 * time.Second
	return cfg
}

type fixture struct {
	svc     *Service[user]
	store   *countingStore
	backend *recordingBackend
	logger  *recordingLogger
	hooks   *recordingHooks
}

func newFixture(t *testing.T, cfg cache.Config) *fixture {
	t.Helper()
	f := &fixture{
		store:   newCountingStore(),
		backend: newRecordingBackend(),
		logger:  &recordingLogger{},
		hooks:   &recordingHooks{},
	}
	svc, err := New[user](f.store, f.backend, cfg,
		WithLogger[user](f.logger),
		WithHooks[user](f.hooks),
	)
	if err != nil {
		t.Fatalf("unexpected error building service: %v", err)
	}
	f.svc = svc
	t.Cleanup(svc.Wait)
	return f
}

func (f *fixture) seed(t *testing.T, u user) user {
	t.Helper()
	created, err := f.store.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return created
}

package storage

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"fileflow/internal/dialect"
)

type fakeSession struct {
	released int
}

func (s *fakeSession) Exec(ctx context.Context, query string) error { return nil }
func (s *fakeSession) Query(ctx context.Context, query string) (*ResultSet, error) {
	return &ResultSet{}, nil
}
func (s *fakeSession) InTx(ctx context.Context, fn func(Execer) error) error { return fn(s) }
func (s *fakeSession) Release()                                              { s.released++ }

type fakeRepo struct {
	mu       sync.Mutex
	sessions []*fakeSession
	err      error
	closed   int
}

func (r *fakeRepo) Session(ctx context.Context) (Session, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &fakeSession{}
	r.sessions = append(r.sessions, s)
	return s, nil
}

func (r *fakeRepo) Dialect() dialect.Dialect {
	d, _ := dialect.For(dialect.SQLite)
	return d
}

func (r *fakeRepo) Close() { r.closed++ }

// withFactories swaps the global registry for the duration of a test.
func withFactories(t *testing.T) {
	t.Helper()
	mu.Lock()
	saved := factories
	factories = map[string]Factory{}
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		factories = saved
		mu.Unlock()
	})
}

func TestNew_ResolvesAliasToRegisteredKind(t *testing.T) {
	withFactories(t)

	var got Config
	Register("sqlite", func(ctx context.Context, cfg Config) (Repository, error) {
		got = cfg
		return &fakeRepo{}, nil
	})

	repo, err := New(context.Background(), Config{Kind: "SQLite3", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if repo == nil {
		t.Fatalf("New returned nil repo")
	}
	if got.Kind != "sqlite" || got.DSN != ":memory:" {
		t.Fatalf("factory got cfg=%+v", got)
	}
	if kinds := Kinds(); len(kinds) != 1 || kinds[0] != "sqlite" {
		t.Fatalf("Kinds() = %v", kinds)
	}
}

func TestNew_Errors(t *testing.T) {
	withFactories(t)

	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for empty kind")
	}
	if _, err := New(context.Background(), Config{Kind: "oracle"}); !errors.Is(err, dialect.ErrUnsupported) {
		t.Fatalf("unknown kind err = %v, want dialect.ErrUnsupported", err)
	}
	_, err := New(context.Background(), Config{Kind: "postgres"})
	if err == nil || !strings.Contains(err.Error(), "no backend registered") {
		t.Fatalf("unregistered kind err = %v", err)
	}
}

func TestRegister_Panics(t *testing.T) {
	withFactories(t)

	f := func(ctx context.Context, cfg Config) (Repository, error) { return nil, nil }

	mustPanic := func(name string, fn func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Fatalf("%s: expected panic", name)
			}
		}()
		fn()
	}

	mustPanic("empty kind", func() { Register("", f) })
	mustPanic("nil factory", func() { Register("mysql", nil) })
	Register("mysql", f)
	mustPanic("duplicate", func() { Register("mysql", f) })
}

func TestGuard_DoReleasesSession(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	g := NewGuard(repo)

	calls := 0
	err := g.Do(context.Background(), func(s Session) error {
		calls++
		return s.Exec(context.Background(), "SELECT 1")
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 1 {
		t.Fatalf("fn calls = %d, want 1", calls)
	}
	if len(repo.sessions) != 1 || repo.sessions[0].released != 1 {
		t.Fatalf("session not released exactly once: %+v", repo.sessions)
	}
	if g.Dialect().Tag() != dialect.SQLite {
		t.Fatalf("Dialect() = %v", g.Dialect().Tag())
	}
}

func TestGuard_DoPropagatesErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")

	g := NewGuard(&fakeRepo{err: boom})
	if err := g.Do(context.Background(), func(Session) error { return nil }); !errors.Is(err, boom) {
		t.Fatalf("session error = %v, want boom", err)
	}

	repo := &fakeRepo{}
	g = NewGuard(repo)
	if err := g.Do(context.Background(), func(Session) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("fn error = %v, want boom", err)
	}
	if repo.sessions[0].released != 1 {
		t.Fatalf("session not released after fn error")
	}
}

func TestGuard_SerializesOperations(t *testing.T) {
	t.Parallel()

	g := NewGuard(&fakeRepo{})

	var (
		wg      sync.WaitGroup
		active  int
		maxSeen int
		m       sync.Mutex
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = g.Do(context.Background(), func(Session) error {
				m.Lock()
				active++
				if active > maxSeen {
					maxSeen = active
				}
				m.Unlock()

				time.Sleep(time.Millisecond)

				m.Lock()
				active--
				m.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("max concurrent operations = %d, want 1", maxSeen)
	}
}

type stringer struct{}

func (stringer) String() string { return "S" }

func TestText(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		in     any
		want   string
		wantOK bool
	}{
		{nil, "", true},
		{"x", "x", true},
		{[]byte("b"), "b", true},
		{true, "true", true},
		{int64(-42), "-42", true},
		{int32(7), "7", true},
		{uint64(9), "9", true},
		{1.5, "1.5", true},
		{float32(0.25), "0.25", true},
		{ts, "2024-01-02T03:04:05Z", true},
		{big.NewInt(12345), "12345", true},
		{stringer{}, "S", true},
		{map[string]int{"a": 1}, "", false},
		{[]int{1}, "", false},
	}
	for _, tt := range tests {
		got, ok := Text(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Fatalf("Text(%#v) = (%q,%v), want (%q,%v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestNormalizeRow(t *testing.T) {
	t.Parallel()

	row := NormalizeRow([]any{[]byte("a"), int64(1), nil})
	if row[0] != "a" || row[1] != int64(1) || row[2] != nil {
		t.Fatalf("NormalizeRow = %#v", row)
	}
}

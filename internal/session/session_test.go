package session

import (
	"io"
	"testing"
	"time"

	"github.com/unklab-dev/kampusbot-go/internal/logger"
)

func testManager(ttl time.Duration) *Manager {
	return NewManager(ttl, logger.NewWithWriter("error", io.Discard))
}

func TestGet_CreatesAndReuses(t *testing.T) {
	t.Parallel()
	m := testManager(time.Minute)

	id := m.NewID()
	s := m.Get(id)
	s.SetName("Budi")

	again := m.Get(id)
	if again != s {
		t.Error("Expected same session instance for same id")
	}
	if again.Name() != "Budi" {
		t.Errorf("Expected remembered name 'Budi', got %q", again.Name())
	}

	other := m.Get(m.NewID())
	if other.Name() != "" {
		t.Errorf("Expected fresh session to have no name, got %q", other.Name())
	}
	if m.Len() != 2 {
		t.Errorf("Expected 2 live sessions, got %d", m.Len())
	}
}

func TestChance_Bounds(t *testing.T) {
	t.Parallel()
	m := testManager(time.Minute)
	s := m.Get(m.NewID())

	if s.Chance(0) {
		t.Error("Chance(0) should never fire")
	}
	if !s.Chance(1) {
		t.Error("Chance(1) should always fire")
	}
}

func TestChance_SeededReproducible(t *testing.T) {
	t.Parallel()
	m := testManager(time.Minute)

	a := m.Get(m.NewID())
	b := m.Get(m.NewID())
	a.Reseed(42)
	b.Reseed(42)

	for i := 0; i < 20; i++ {
		if a.Chance(0.5) != b.Chance(0.5) {
			t.Fatal("Sessions with equal seeds should agree")
		}
	}
}

func TestReap_RemovesExpired(t *testing.T) {
	t.Parallel()
	m := testManager(10 * time.Millisecond)

	stale := m.Get(m.NewID())
	_ = stale
	time.Sleep(30 * time.Millisecond)
	fresh := m.Get(m.NewID())
	_ = fresh

	m.reap()

	if m.Len() != 1 {
		t.Errorf("Expected 1 session after reaping, got %d", m.Len())
	}
}

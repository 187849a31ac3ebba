package engine

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMock_LiveTracking(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	h1, err := m.Load(ctx, "a", Options{AutoPlay: true, Volume: 0.5}, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	h2, _ := m.Load(ctx, "b", Options{}, nil)

	if m.Live() != 2 || m.MaxLive() != 2 {
		t.Fatalf("live=%d max=%d, want 2/2", m.Live(), m.MaxLive())
	}

	_ = h1.Unload(ctx)
	_ = h1.Unload(ctx)
	if m.Live() != 1 {
		t.Errorf("Live() = %d after double unload, want 1", m.Live())
	}

	if err := h1.Play(ctx); !errors.Is(err, ErrUnloaded) {
		t.Errorf("Play after unload = %v, want ErrUnloaded", err)
	}
	_ = h2.Unload(ctx)
	if m.Live() != 0 {
		t.Errorf("Live() = %d, want 0", m.Live())
	}
}

func TestMock_HoldLoads(t *testing.T) {
	m := NewMock()
	release := m.HoldLoads()

	done := make(chan error, 1)
	go func() {
		_, err := m.Load(context.Background(), "a", Options{}, nil)
		done <- err
	}()

	select {
	case url := <-m.LoadStarted():
		if url != "a" {
			t.Fatalf("started %q, want a", url)
		}
	case <-time.After(time.Second):
		t.Fatal("load did not start")
	}

	select {
	case <-done:
		t.Fatal("load returned before release")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	release()
	if err := <-done; err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestMockHandle_EmitAfterUnload(t *testing.T) {
	m := NewMock()
	calls := 0
	h, _ := m.Load(context.Background(), "a", Options{}, func(Status) { calls++ })
	mh := h.(*MockHandle)

	mh.Emit(Status{IsLoaded: true})
	_ = mh.Unload(context.Background())
	mh.Finish()

	if calls != 1 {
		t.Errorf("onStatus called %d times, want 1", calls)
	}
}

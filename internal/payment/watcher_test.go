package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type scriptedGateway struct {
	mu      sync.Mutex
	replies []func() (Status, error)
	calls   int
}

func (g *scriptedGateway) CreatePayment(context.Context, CreateRequest) (*Payment, error) {
	return nil, fmt.Errorf("not used")
}

func (g *scriptedGateway) GetStatus(context.Context, string) (Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	g.calls++
	if i >= len(g.replies) {
		i = len(g.replies) - 1
	}
	return g.replies[i]()
}

func reply(status Status, err error) func() (Status, error) {
	return func() (Status, error) { return status, err }
}

func TestWatcher_ReturnsOnTerminalStatus(t *testing.T) {
	gateway := &scriptedGateway{replies: []func() (Status, error){
		reply(StatusPending, nil),
		reply(StatusPending, nil),
		reply(StatusSucceeded, nil),
	}}
	watcher := NewWatcher(gateway, time.Millisecond, zap.NewNop())

	status, err := watcher.Wait(context.Background(), "pay-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusSucceeded {
		t.Fatalf("expected %q, got %q", StatusSucceeded, status)
	}
	if gateway.calls < 3 {
		t.Fatalf("expected at least 3 polls, got %d", gateway.calls)
	}
}

func TestWatcher_RetriesAfterPollErrors(t *testing.T) {
	pollErr := errors.New("gateway timeout")
	gateway := &scriptedGateway{replies: []func() (Status, error){
		reply("", pollErr),
		reply("", pollErr),
		reply(StatusFailed, nil),
	}}
	watcher := NewWatcher(gateway, time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := watcher.Wait(ctx, "pay-1")
	if err != nil {
		t.Fatalf("poll errors must be retried, got %v", err)
	}
	if status != StatusFailed {
		t.Fatalf("expected %q, got %q", StatusFailed, status)
	}
}

func TestWatcher_StopsOnContextCancel(t *testing.T) {
	gateway := &scriptedGateway{replies: []func() (Status, error){
		reply(StatusPending, nil),
	}}
	watcher := NewWatcher(gateway, time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := watcher.Wait(ctx, "pay-1")
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestStatus_Terminal(t *testing.T) {
	terminal := []Status{StatusSucceeded, StatusFailed, StatusCanceled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%q must be terminal", s)
		}
	}
	if StatusPending.Terminal() {
		t.Error("pending must not be terminal")
	}
	if Status("waiting_for_capture").Terminal() {
		t.Error("unknown intermediate status must not be terminal")
	}
}

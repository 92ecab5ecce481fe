package bot

import (
	"testing"

	"go.uber.org/zap"
)

func TestScreenRegistry_ClearDeletesAllAndResets(t *testing.T) {
	api := newFakeMessenger()
	registry := NewScreenRegistry(api, zap.NewNop())

	registry.Record(42, 1)
	registry.Record(42, 2)
	registry.Record(42, 3)

	registry.Clear(42)

	if got := len(api.deleted); got != 3 {
		t.Fatalf("expected 3 deletions, got %d", got)
	}
	if got := registry.Recorded(42); len(got) != 0 {
		t.Fatalf("expected empty screen after clear, got %v", got)
	}
}

// After render N completes the registry must hold exactly the ids of
// render N and nothing from earlier renders.
func TestScreenRegistry_ReplacementInvariant(t *testing.T) {
	api := newFakeMessenger()
	registry := NewScreenRegistry(api, zap.NewNop())

	registry.Record(42, 1)
	registry.Record(42, 2)

	registry.Clear(42)
	registry.Record(42, 10)
	registry.Record(42, 11)

	got := registry.Recorded(42)
	if len(got) != 2 || got[0] != 10 || got[1] != 11 {
		t.Fatalf("expected exactly [10 11], got %v", got)
	}
}

func TestScreenRegistry_DeleteFailureIsSwallowed(t *testing.T) {
	api := newFakeMessenger()
	api.failDelete[2] = true
	registry := NewScreenRegistry(api, zap.NewNop())

	registry.Record(42, 1)
	registry.Record(42, 2)
	registry.Record(42, 3)

	registry.Clear(42)

	// The failed delete must not stop the rest or keep the record.
	if got := len(api.deleted); got != 2 {
		t.Fatalf("expected 2 successful deletions, got %d", got)
	}
	if got := registry.Recorded(42); len(got) != 0 {
		t.Fatalf("expected empty screen after clear, got %v", got)
	}
}

func TestScreenRegistry_ClearUnknownUserIsNoop(t *testing.T) {
	api := newFakeMessenger()
	registry := NewScreenRegistry(api, zap.NewNop())

	registry.Clear(99)

	if len(api.deleted) != 0 {
		t.Fatalf("expected no deletions, got %d", len(api.deleted))
	}
}

func TestSendScreen_FailedSendRecordsNothing(t *testing.T) {
	repo := newFakeRepository()
	api := newFakeMessenger()
	b := newTestBot(repo, api, &fakeGateway{}, newFakeLedger(), &fakeSubs{subscribed: true})

	api.failSend = true
	b.sendScreen(42, "привет", nil)

	if got := b.screens.Recorded(42); len(got) != 0 {
		t.Fatalf("expected no recorded ids after failed send, got %v", got)
	}
}

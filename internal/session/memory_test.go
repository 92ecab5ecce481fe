package session

import (
	"context"
	"testing"
)

func TestMemoryStore_GetMissingReturnsIdle(t *testing.T) {
	store := NewMemoryStore()

	state, err := store.Get(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Step != StepIdle {
		t.Fatalf("expected idle state for unknown user, got %q", state.Step)
	}
}

func TestMemoryStore_LastWriteWins(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first := State{Step: StepAwaitQuantity, ProductID: 1, ProductName: "Кружка", Price: 350}
	second := State{Step: StepAwaitQuantity, ProductID: 2, ProductName: "Футболка", Price: 1200}

	if err := store.Save(ctx, 42, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, 42, second); err != nil {
		t.Fatalf("save: %v", err)
	}

	state, err := store.Get(ctx, 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if state.ProductID != 2 || state.ProductName != "Футболка" {
		t.Fatalf("expected the second entry to replace the first, got %+v", state)
	}
}

func TestMemoryStore_ClearAndIsolation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_ = store.Save(ctx, 42, State{Step: StepAwaitConfirm, ProductID: 1, Quantity: 3})
	_ = store.Save(ctx, 43, State{Step: StepAwaitDelivery})

	if err := store.Clear(ctx, 42); err != nil {
		t.Fatalf("clear: %v", err)
	}

	state, _ := store.Get(ctx, 42)
	if state.Step != StepIdle {
		t.Fatalf("expected cleared state, got %+v", state)
	}

	other, _ := store.Get(ctx, 43)
	if other.Step != StepAwaitDelivery {
		t.Fatalf("clearing one user must not touch another, got %+v", other)
	}

	// Clearing an absent entry is a no-op, not an error.
	if err := store.Clear(ctx, 99); err != nil {
		t.Fatalf("clear of unknown user: %v", err)
	}
}

package session

import "context"

// Conversation steps. An empty step means no multi-step flow is active.
const (
	StepIdle                = ""
	StepAwaitQuantity       = "await_quantity"
	StepAwaitUpdateQuantity = "await_update_quantity"
	StepAwaitConfirm        = "await_confirm"
	StepAwaitDelivery       = "await_delivery"
)

// State is the per-user pending entry: at most one multi-step flow is active
// at a time, starting a new flow overwrites the previous one.
type State struct {
	Step        string  `json:"step"`
	ProductID   int64   `json:"product_id,omitempty"`
	ProductName string  `json:"product_name,omitempty"`
	// Price is captured when the flow starts and is used for display only;
	// checkout re-reads prices from the catalog.
	Price    float64 `json:"price,omitempty"`
	Quantity int     `json:"quantity,omitempty"`
}

// Store keeps pending conversation state keyed by the Telegram user id.
// State is ephemeral: losing it on restart only forces the user to restart
// the current flow.
type Store interface {
	Get(ctx context.Context, userID int64) (State, error)
	Save(ctx context.Context, userID int64, state State) error
	Clear(ctx context.Context, userID int64) error
}

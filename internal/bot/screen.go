package bot

import (
	"sync"

	"go.uber.org/zap"
)

// ScreenRegistry tracks which message ids make up the screen each user
// currently sees, so the whole screen can be retired before the next render.
// A screen may span several messages: a product page is N photo cards plus
// one navigation message.
type ScreenRegistry struct {
	mu      sync.Mutex
	screens map[int64][]int
	api     Messenger
	logger  *zap.Logger
}

func NewScreenRegistry(api Messenger, logger *zap.Logger) *ScreenRegistry {
	return &ScreenRegistry{
		screens: make(map[int64][]int),
		api:     api,
		logger:  logger,
	}
}

// Clear requests deletion of every recorded message for the user and resets
// the record. Deletion is best-effort: an already-gone message must not fail
// the render that follows. Clearing a user with no recorded screen is a no-op.
func (r *ScreenRegistry) Clear(userID int64) {
	r.mu.Lock()
	ids := r.screens[userID]
	delete(r.screens, userID)
	r.mu.Unlock()

	for _, messageID := range ids {
		if err := r.api.DeleteMessage(userID, messageID); err != nil {
			r.logger.Warn("Failed to delete screen message",
				zap.Int64("user_id", userID),
				zap.Int("message_id", messageID),
				zap.Error(err))
		}
	}
}

// Record appends a message id to the user's current screen. Callers must
// record an id only after the corresponding send succeeded.
func (r *ScreenRegistry) Record(userID int64, messageID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.screens[userID] = append(r.screens[userID], messageID)
}

// Recorded returns a copy of the ids currently registered for the user.
func (r *ScreenRegistry) Recorded(userID int64) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int, len(r.screens[userID]))
	copy(ids, r.screens[userID])
	return ids
}

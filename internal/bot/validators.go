package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseQuantity accepts only a positive integer.
func ParseQuantity(text string) (int, error) {
	quantity, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("quantity must be a number: %w", err)
	}
	if quantity <= 0 {
		return 0, fmt.Errorf("quantity must be positive, got %d", quantity)
	}
	return quantity, nil
}

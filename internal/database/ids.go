package database

import (
	"fmt"
	"strconv"
)

// ParseID converts a URL id into a catalog id. Only positive integers are valid.
func ParseID(id string) (int, error) {
	n, err := strconv.Atoi(id)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", id, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid id %q", id)
	}
	return n, nil
}

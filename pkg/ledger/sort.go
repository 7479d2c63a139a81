package ledger

import (
	"fmt"
	"strings"
)

// SortKey names a sortable transaction column.
type SortKey string

const (
	SortByTimestamp    SortKey = "timestamp"
	SortByType         SortKey = "type"
	SortByCounterparty SortKey = "counterparty"
	SortByAmount       SortKey = "amount"
	SortByStatus       SortKey = "status"
)

// SortDirection orders a sort ascending or descending.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// SortKeys lists every accepted key in column order.
func SortKeys() []SortKey {
	return []SortKey{SortByTimestamp, SortByType, SortByCounterparty, SortByAmount, SortByStatus}
}

// ParseSortKey validates a column name. "other_party" is accepted as an alias of counterparty.
func ParseSortKey(raw string) (SortKey, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "other_party" {
		return SortByCounterparty, nil
	}
	for _, key := range SortKeys() {
		if string(key) == normalized {
			return key, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSortKey, raw)
}

// ParseSortDirection validates a direction.
func ParseSortDirection(raw string) (SortDirection, error) {
	switch SortDirection(strings.ToLower(strings.TrimSpace(raw))) {
	case SortAscending:
		return SortAscending, nil
	case SortDescending:
		return SortDescending, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSortDirection, raw)
}

// Reversed returns the opposite direction.
func (direction SortDirection) Reversed() SortDirection {
	if direction == SortAscending {
		return SortDescending
	}
	return SortAscending
}

// SortCriterion is the active column and direction of the history table.
type SortCriterion struct {
	Key       SortKey
	Direction SortDirection
}

// DefaultSortCriterion shows the most recent transactions first.
func DefaultSortCriterion() SortCriterion {
	return SortCriterion{Key: SortByTimestamp, Direction: SortDescending}
}

// Toggle flips the direction when key is already active and otherwise
// switches to key in descending order.
func (criterion SortCriterion) Toggle(key SortKey) SortCriterion {
	if criterion.Key == key {
		return SortCriterion{Key: key, Direction: criterion.Direction.Reversed()}
	}
	return SortCriterion{Key: key, Direction: SortDescending}
}

// String renders "key direction".
func (criterion SortCriterion) String() string {
	return string(criterion.Key) + " " + string(criterion.Direction)
}

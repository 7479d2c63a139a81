package viewmodel

import (
	"slices"
	"strings"

	"github.com/MarkoPoloResearchLab/walletctl/pkg/ledger"
)

// Order returns a sorted copy of transactions. The sort is stable in both
// directions: rows that compare equal keep the order the server sent them in.
func Order(transactions []ledger.Transaction, criterion ledger.SortCriterion) []ledger.Transaction {
	ordered := slices.Clone(transactions)
	compare := comparatorFor(criterion.Key)
	if criterion.Direction == ledger.SortDescending {
		ascending := compare
		compare = func(left, right ledger.Transaction) int { return ascending(right, left) }
	}
	slices.SortStableFunc(ordered, compare)
	return ordered
}

func comparatorFor(key ledger.SortKey) func(left, right ledger.Transaction) int {
	switch key {
	case ledger.SortByType:
		return func(left, right ledger.Transaction) int {
			return strings.Compare(string(left.Type), string(right.Type))
		}
	case ledger.SortByCounterparty:
		return func(left, right ledger.Transaction) int {
			return strings.Compare(left.Counterparty, right.Counterparty)
		}
	case ledger.SortByAmount:
		return func(left, right ledger.Transaction) int {
			return left.Amount.Cmp(right.Amount)
		}
	case ledger.SortByStatus:
		return func(left, right ledger.Transaction) int {
			return strings.Compare(string(left.Status), string(right.Status))
		}
	default:
		return func(left, right ledger.Transaction) int {
			return left.Timestamp.Compare(right.Timestamp)
		}
	}
}

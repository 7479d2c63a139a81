package viewmodel

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/walletctl/pkg/ledger"
	"github.com/shopspring/decimal"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func transaction(id int64, minutes int, transactionType ledger.TransactionType, counterparty string, cents int64, status ledger.TransactionStatus) ledger.Transaction {
	return ledger.Transaction{
		ID:           id,
		Timestamp:    baseTime.Add(time.Duration(minutes) * time.Minute),
		Type:         transactionType,
		Counterparty: counterparty,
		Amount:       ledger.NewAmount(decimal.New(cents, -2)),
		Status:       status,
	}
}

func sampleHistory() []ledger.Transaction {
	return []ledger.Transaction{
		transaction(1, 0, ledger.TransactionSent, "bob", 5000, ledger.StatusSuccess),
		transaction(2, 10, ledger.TransactionReceived, "carol", 900, ledger.StatusSuccess),
		transaction(3, 5, ledger.TransactionSent, "bob", 10000, ledger.StatusFailed),
		transaction(4, 20, ledger.TransactionReceived, "alice", 5000, ledger.StatusSuccess),
	}
}

func ids(transactions []ledger.Transaction) []int64 {
	result := make([]int64, 0, len(transactions))
	for _, item := range transactions {
		result = append(result, item.ID)
	}
	return result
}

func amountOf(text string) ledger.Amount {
	return ledger.NewAmount(decimal.RequireFromString(text))
}

func TestOrderByKey(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name      string
		criterion ledger.SortCriterion
		want      []int64
	}{
		{name: "timestamp desc", criterion: ledger.DefaultSortCriterion(), want: []int64{4, 2, 3, 1}},
		{name: "timestamp asc", criterion: ledger.SortCriterion{Key: ledger.SortByTimestamp, Direction: ledger.SortAscending}, want: []int64{1, 3, 2, 4}},
		{name: "amount is numeric", criterion: ledger.SortCriterion{Key: ledger.SortByAmount, Direction: ledger.SortAscending}, want: []int64{2, 1, 4, 3}},
		{name: "amount desc keeps ties in server order", criterion: ledger.SortCriterion{Key: ledger.SortByAmount, Direction: ledger.SortDescending}, want: []int64{3, 1, 4, 2}},
		{name: "counterparty asc", criterion: ledger.SortCriterion{Key: ledger.SortByCounterparty, Direction: ledger.SortAscending}, want: []int64{4, 1, 3, 2}},
		{name: "type desc", criterion: ledger.SortCriterion{Key: ledger.SortByType, Direction: ledger.SortDescending}, want: []int64{1, 3, 2, 4}},
		{name: "status asc", criterion: ledger.SortCriterion{Key: ledger.SortByStatus, Direction: ledger.SortAscending}, want: []int64{3, 1, 2, 4}},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			got := ids(Order(sampleHistory(), testCase.criterion))
			if fmt.Sprint(got) != fmt.Sprint(testCase.want) {
				test.Fatalf("expected %v, got %v", testCase.want, got)
			}
		})
	}
}

func TestOrderIsStablePermutation(test *testing.T) {
	test.Parallel()
	random := rand.New(rand.NewSource(42))
	counterparties := []string{"alice", "bob", "carol"}
	for round := 0; round < 50; round++ {
		size := random.Intn(30)
		input := make([]ledger.Transaction, 0, size)
		for index := 0; index < size; index++ {
			transactionType := ledger.TransactionSent
			if random.Intn(2) == 0 {
				transactionType = ledger.TransactionReceived
			}
			input = append(input, transaction(int64(index), random.Intn(5), transactionType, counterparties[random.Intn(3)], int64(random.Intn(4))*100, ledger.StatusSuccess))
		}
		for _, key := range ledger.SortKeys() {
			for _, direction := range []ledger.SortDirection{ledger.SortAscending, ledger.SortDescending} {
				criterion := ledger.SortCriterion{Key: key, Direction: direction}
				ordered := Order(input, criterion)
				if len(ordered) != len(input) {
					test.Fatalf("%s: expected %d rows, got %d", criterion, len(input), len(ordered))
				}
				seen := make(map[int64]bool, len(ordered))
				for _, item := range ordered {
					seen[item.ID] = true
				}
				if len(seen) != len(input) {
					test.Fatalf("%s: output is not a permutation", criterion)
				}
				compare := comparatorFor(key)
				for index := 1; index < len(ordered); index++ {
					previous, current := ordered[index-1], ordered[index]
					result := compare(previous, current)
					if direction == ledger.SortDescending {
						result = -result
					}
					if result > 0 {
						test.Fatalf("%s: rows %d and %d out of order", criterion, previous.ID, current.ID)
					}
					if result == 0 && previous.ID > current.ID {
						test.Fatalf("%s: tie between %d and %d lost server order", criterion, previous.ID, current.ID)
					}
				}
			}
		}
	}
}

func TestOrderDoesNotMutateInput(test *testing.T) {
	test.Parallel()
	input := sampleHistory()
	Order(input, ledger.SortCriterion{Key: ledger.SortByAmount, Direction: ledger.SortAscending})
	if fmt.Sprint(ids(input)) != fmt.Sprint([]int64{1, 2, 3, 4}) {
		test.Fatalf("input was reordered: %v", ids(input))
	}
}

func TestSetSortCriterionToggles(test *testing.T) {
	test.Parallel()
	model := New()
	model.ReplaceTransactions(sampleHistory())
	initial := ids(model.OrderedView().Rows)

	if criterion := model.SetSortCriterion(ledger.SortByTimestamp); criterion.Direction != ledger.SortAscending {
		test.Fatalf("expected ascending after toggle, got %s", criterion)
	}
	model.SetSortCriterion(ledger.SortByTimestamp)
	if fmt.Sprint(ids(model.OrderedView().Rows)) != fmt.Sprint(initial) {
		test.Fatalf("double toggle must restore the original ordering")
	}
	if criterion := model.SetSortCriterion(ledger.SortByCounterparty); criterion.Direction != ledger.SortDescending {
		test.Fatalf("expected new key to start descending, got %s", criterion)
	}
}

func TestOrderedViewEmptyState(test *testing.T) {
	test.Parallel()
	model := New()
	view := model.OrderedView()
	if view.State != StateEmpty || view.Placeholder != EmptyPlaceholder || len(view.Rows) != 0 {
		test.Fatalf("unexpected empty view %+v", view)
	}
	model.ReplaceTransactions(sampleHistory())
	view = model.OrderedView()
	if view.State != StatePopulated || view.Placeholder != "" || len(view.Rows) != 4 {
		test.Fatalf("unexpected populated view %+v", view)
	}
	model.ReplaceTransactions(nil)
	if model.OrderedView().State != StateEmpty {
		test.Fatalf("expected wholesale replace to empty the view")
	}
}

func TestReplaceTransactionsCopiesInput(test *testing.T) {
	test.Parallel()
	model := New()
	input := sampleHistory()
	model.ReplaceTransactions(input)
	input[0].Counterparty = "mallory"
	for _, row := range model.OrderedView().Rows {
		if row.Counterparty == "mallory" {
			test.Fatalf("model shares the caller's slice")
		}
	}
}

func TestStaleAppliesAreDiscarded(test *testing.T) {
	test.Parallel()
	model := New()
	if err := model.ApplySnapshot(2, amountOf("80"), sampleHistory()); err != nil {
		test.Fatalf("apply failed: %v", err)
	}
	if err := model.ApplyBalance(1, amountOf("999")); !errors.Is(err, ErrStaleSequence) {
		test.Fatalf("expected ErrStaleSequence, got %v", err)
	}
	if err := model.ApplySnapshot(1, amountOf("999"), nil); !errors.Is(err, ErrStaleSequence) {
		test.Fatalf("expected ErrStaleSequence, got %v", err)
	}
	if model.FormattedBalance() != "80.00" || len(model.OrderedView().Rows) != 4 || model.LastApplied() != 2 {
		test.Fatalf("stale applies changed state: balance=%s rows=%d", model.FormattedBalance(), len(model.OrderedView().Rows))
	}
	if err := model.ApplyBalance(3, amountOf("50.5")); err != nil {
		test.Fatalf("apply balance failed: %v", err)
	}
	if model.FormattedBalance() != "50.50" || len(model.OrderedView().Rows) != 4 {
		test.Fatalf("balance apply must leave history alone")
	}
}

func TestFormattedBalanceBeforeFirstFetch(test *testing.T) {
	test.Parallel()
	model := New()
	if _, ok := model.Balance(); ok {
		test.Fatalf("expected no balance")
	}
	if model.FormattedBalance() != "--" {
		test.Fatalf("unexpected placeholder %q", model.FormattedBalance())
	}
}

func TestSnapshotIsAtomicUnderConcurrency(test *testing.T) {
	test.Parallel()
	model := New()
	var sequencer Sequencer
	short := sampleHistory()[:1]
	long := sampleHistory()
	var group sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		group.Add(1)
		go func(worker int) {
			defer group.Done()
			for iteration := 0; iteration < 100; iteration++ {
				if worker%2 == 0 {
					_ = model.ApplySnapshot(sequencer.Next(), amountOf("1"), short)
				} else {
					_ = model.ApplySnapshot(sequencer.Next(), amountOf("4"), long)
				}
			}
		}(worker)
	}
	done := make(chan struct{})
	go func() {
		group.Wait()
		close(done)
	}()
	for {
		model.mu.RLock()
		balance, rows := model.balance.Fixed2(), len(model.transactions)
		model.mu.RUnlock()
		if rows != 0 && ((balance == "1.00") != (rows == 1)) {
			test.Fatalf("observed torn snapshot: balance=%s rows=%d", balance, rows)
		}
		select {
		case <-done:
			if model.LastApplied() > sequencer.Last() {
				test.Fatalf("applied sequence ahead of issued")
			}
			return
		default:
		}
	}
}

func TestResetAndListeners(test *testing.T) {
	test.Parallel()
	model := New()
	changes := 0
	model.OnChange(func() { changes++ })
	model.ReplaceTransactions(sampleHistory())
	model.SetSortCriterion(ledger.SortByAmount)
	_ = model.ApplyBalance(1, amountOf("3"))
	model.Reset()
	if changes != 4 {
		test.Fatalf("expected 4 notifications, got %d", changes)
	}
	if model.FormattedBalance() != "--" || model.OrderedView().State != StateEmpty || model.SortCriterion() != ledger.DefaultSortCriterion() {
		test.Fatalf("reset left state behind")
	}
}

func TestOnChangeUnregister(test *testing.T) {
	test.Parallel()
	model := New()
	kept, removed := 0, 0
	model.OnChange(func() { kept++ })
	unregister := model.OnChange(func() { removed++ })
	model.ReplaceTransactions(sampleHistory())
	unregister()
	unregister()
	model.ReplaceTransactions(nil)
	if kept != 2 || removed != 1 {
		test.Fatalf("expected unregistered listener to stop, kept=%d removed=%d", kept, removed)
	}
}

func TestSequencerIsMonotonic(test *testing.T) {
	test.Parallel()
	var sequencer Sequencer
	if sequencer.Last() != 0 {
		test.Fatalf("expected zero before first use")
	}
	previous := int64(0)
	for index := 0; index < 10; index++ {
		next := sequencer.Next()
		if next <= previous {
			test.Fatalf("sequence went backwards: %d after %d", next, previous)
		}
		previous = next
	}
}

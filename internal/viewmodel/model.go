// Package viewmodel owns the balance, the transaction set, and the sort
// criterion shown to the user, and derives the rendered ordering from them.
package viewmodel

import (
	"slices"
	"sync"

	"github.com/MarkoPoloResearchLab/walletctl/pkg/ledger"
)

const (
	// EmptyPlaceholder is shown instead of rows when the history is empty.
	EmptyPlaceholder = "No transactions yet"
	unknownBalance   = "--"
)

// ViewState distinguishes an empty history from a populated one.
type ViewState int

const (
	StateEmpty ViewState = iota
	StatePopulated
)

// View is the ordered, render-ready history.
type View struct {
	State       ViewState
	Placeholder string
	Criterion   ledger.SortCriterion
	Rows        []ledger.Transaction
}

// Model is safe for concurrent use. Every mutation happens under one lock so
// a snapshot apply is never observed half done.
type Model struct {
	mu           sync.RWMutex
	balance      ledger.Amount
	hasBalance   bool
	transactions []ledger.Transaction
	criterion    ledger.SortCriterion
	lastApplied  int64
	listeners    []listener
	nextListener int
}

type listener struct {
	id       int
	callback func()
}

// New returns an empty model sorted by most recent first.
func New() *Model {
	return &Model{criterion: ledger.DefaultSortCriterion()}
}

// OnChange registers a callback invoked after every accepted mutation. The
// returned func unregisters it.
func (model *Model) OnChange(callback func()) func() {
	if callback == nil {
		return func() {}
	}
	model.mu.Lock()
	defer model.mu.Unlock()
	model.nextListener++
	id := model.nextListener
	model.listeners = append(model.listeners, listener{id: id, callback: callback})
	return func() {
		model.mu.Lock()
		defer model.mu.Unlock()
		model.listeners = slices.DeleteFunc(slices.Clone(model.listeners), func(entry listener) bool {
			return entry.id == id
		})
	}
}

// ApplySnapshot installs a balance and a full history fetched together.
// Both are applied or neither is.
func (model *Model) ApplySnapshot(sequence int64, balance ledger.Amount, transactions []ledger.Transaction) error {
	model.mu.Lock()
	if sequence < model.lastApplied {
		model.mu.Unlock()
		return ErrStaleSequence
	}
	model.lastApplied = sequence
	model.balance = balance
	model.hasBalance = true
	model.transactions = slices.Clone(transactions)
	listeners := model.listeners
	model.mu.Unlock()
	notify(listeners)
	return nil
}

// ApplyBalance installs a balance reported outside of a refresh, such as a
// transfer confirmation.
func (model *Model) ApplyBalance(sequence int64, balance ledger.Amount) error {
	model.mu.Lock()
	if sequence < model.lastApplied {
		model.mu.Unlock()
		return ErrStaleSequence
	}
	model.lastApplied = sequence
	model.balance = balance
	model.hasBalance = true
	listeners := model.listeners
	model.mu.Unlock()
	notify(listeners)
	return nil
}

// ReplaceTransactions overwrites the transaction set without sequencing.
func (model *Model) ReplaceTransactions(transactions []ledger.Transaction) {
	model.mu.Lock()
	model.transactions = slices.Clone(transactions)
	listeners := model.listeners
	model.mu.Unlock()
	notify(listeners)
}

// SetSortCriterion toggles the direction for the active key or switches to key descending.
func (model *Model) SetSortCriterion(key ledger.SortKey) ledger.SortCriterion {
	model.mu.Lock()
	model.criterion = model.criterion.Toggle(key)
	criterion := model.criterion
	listeners := model.listeners
	model.mu.Unlock()
	notify(listeners)
	return criterion
}

// SortCriterion returns the active criterion.
func (model *Model) SortCriterion() ledger.SortCriterion {
	model.mu.RLock()
	defer model.mu.RUnlock()
	return model.criterion
}

// OrderedView returns the current set ordered by the active criterion.
func (model *Model) OrderedView() View {
	model.mu.RLock()
	transactions := model.transactions
	criterion := model.criterion
	model.mu.RUnlock()

	if len(transactions) == 0 {
		return View{State: StateEmpty, Placeholder: EmptyPlaceholder, Criterion: criterion}
	}
	return View{State: StatePopulated, Criterion: criterion, Rows: Order(transactions, criterion)}
}

// Balance returns the last applied balance and whether one was ever applied.
func (model *Model) Balance() (ledger.Amount, bool) {
	model.mu.RLock()
	defer model.mu.RUnlock()
	return model.balance, model.hasBalance
}

// FormattedBalance renders the balance with two decimals.
func (model *Model) FormattedBalance() string {
	balance, ok := model.Balance()
	if !ok {
		return unknownBalance
	}
	return balance.Fixed2()
}

// LastApplied returns the sequence number of the most recent accepted apply.
func (model *Model) LastApplied() int64 {
	model.mu.RLock()
	defer model.mu.RUnlock()
	return model.lastApplied
}

// Reset drops everything, as on logout.
func (model *Model) Reset() {
	model.mu.Lock()
	model.balance = ledger.Amount{}
	model.hasBalance = false
	model.transactions = nil
	model.criterion = ledger.DefaultSortCriterion()
	listeners := model.listeners
	model.mu.Unlock()
	notify(listeners)
}

func notify(listeners []listener) {
	for _, entry := range listeners {
		entry.callback()
	}
}

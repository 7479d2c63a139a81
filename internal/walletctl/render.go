package walletctl

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/MarkoPoloResearchLab/walletctl/internal/ledgerclient"
	"github.com/MarkoPoloResearchLab/walletctl/internal/viewmodel"
	"github.com/MarkoPoloResearchLab/walletctl/pkg/ledger"
	"github.com/Rhymond/go-money"
)

const (
	currencyCode     = money.USD
	timestampDisplay = "2006-01-02 15:04:05"
	arrowAscending   = "↑"
	arrowDescending  = "↓"
)

var historyColumns = []struct {
	key   ledger.SortKey
	label string
}{
	{key: ledger.SortByTimestamp, label: "DATE"},
	{key: ledger.SortByType, label: "TYPE"},
	{key: ledger.SortByCounterparty, label: "WITH"},
	{key: ledger.SortByAmount, label: "AMOUNT"},
	{key: ledger.SortByStatus, label: "STATUS"},
}

// RenderBalance prints "Balance: $100.50", or "Balance: --" before the first fetch.
func RenderBalance(writer io.Writer, model *viewmodel.Model) error {
	balance, ok := model.Balance()
	if !ok {
		_, err := fmt.Fprintf(writer, "Balance: %s\n", model.FormattedBalance())
		return err
	}
	_, err := fmt.Fprintf(writer, "Balance: %s\n", FormatMoney(balance))
	return err
}

// RenderHistory prints the ordered table. The active sort column carries an arrow.
func RenderHistory(writer io.Writer, view viewmodel.View) error {
	table := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
	headers := make([]string, 0, len(historyColumns))
	for _, column := range historyColumns {
		label := column.label
		if column.key == view.Criterion.Key {
			label += " " + directionArrow(view.Criterion.Direction)
		}
		headers = append(headers, label)
	}
	fmt.Fprintln(table, strings.Join(headers, "\t"))
	if view.State == viewmodel.StateEmpty {
		fmt.Fprintln(table, view.Placeholder)
		return table.Flush()
	}
	for _, row := range view.Rows {
		fmt.Fprintln(table, strings.Join([]string{
			row.Timestamp.Format(timestampDisplay),
			string(row.Type),
			row.Counterparty,
			SignedAmount(row),
			string(row.Status),
		}, "\t"))
	}
	return table.Flush()
}

// RenderUsers prints the receiver directory, one username per line.
func RenderUsers(writer io.Writer, users []ledgerclient.User) error {
	if len(users) == 0 {
		_, err := fmt.Fprintln(writer, "No other users")
		return err
	}
	for _, user := range users {
		if _, err := fmt.Fprintln(writer, user.Username); err != nil {
			return err
		}
	}
	return nil
}

// RenderWatchFrame prints a timestamped balance and history block.
func RenderWatchFrame(writer io.Writer, model *viewmodel.Model, now time.Time) error {
	if _, err := fmt.Fprintf(writer, "\n[%s]\n", now.Format(timestampDisplay)); err != nil {
		return err
	}
	if err := RenderBalance(writer, model); err != nil {
		return err
	}
	return RenderHistory(writer, model.OrderedView())
}

// FormatMoney renders amount in dollars with two decimals.
func FormatMoney(amount ledger.Amount) string {
	return money.New(amount.Cents(), currencyCode).Display()
}

// SignedAmount renders sent amounts as "-$50.00" and received ones as "+$50.00".
func SignedAmount(transaction ledger.Transaction) string {
	cents := transaction.Amount.Cents()
	if transaction.Type == ledger.TransactionSent {
		return money.New(-cents, currencyCode).Display()
	}
	return "+" + money.New(cents, currencyCode).Display()
}

func directionArrow(direction ledger.SortDirection) string {
	if direction == ledger.SortAscending {
		return arrowAscending
	}
	return arrowDescending
}

package ledgerclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/walletctl/pkg/ledger"
	"github.com/shopspring/decimal"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

type balanceResponse struct {
	Balance *decimal.Decimal `json:"balance"`
}

type historyResponse struct {
	Transactions []transactionPayload `json:"transactions"`
}

type transactionPayload struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	OtherParty  string          `json:"other_party"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	Timestamp   string          `json:"timestamp"`
	Description string          `json:"description"`
}

type transferRequest struct {
	ReceiverUsername string      `json:"receiver_username"`
	Amount           json.Number `json:"amount"`
}

type transferResponse struct {
	Message       string           `json:"message"`
	NewBalance    *decimal.Decimal `json:"new_balance"`
	TransactionID int64            `json:"transaction_id"`
}

type usersResponse struct {
	Users []userPayload `json:"users"`
}

type userPayload struct {
	ID       flexibleID `json:"id"`
	Username string     `json:"username"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string     `json:"access_token"`
	UserID      flexibleID `json:"user_id"`
	Username    string     `json:"username"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// flexibleID accepts identifiers encoded as JSON numbers or strings.
type flexibleID string

func (id *flexibleID) UnmarshalJSON(raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*id = flexibleID(text)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(trimmed, &number); err != nil {
		return err
	}
	*id = flexibleID(number.String())
	return nil
}

func (payload transactionPayload) toTransaction() (ledger.Transaction, error) {
	transactionType, err := ledger.ParseTransactionType(payload.Type)
	if err != nil {
		return ledger.Transaction{}, err
	}
	status, err := ledger.ParseTransactionStatus(payload.Status)
	if err != nil {
		return ledger.Transaction{}, err
	}
	timestamp, err := parseTimestamp(payload.Timestamp)
	if err != nil {
		return ledger.Transaction{}, err
	}
	return ledger.Transaction{
		ID:           payload.ID,
		Timestamp:    timestamp,
		Type:         transactionType,
		Counterparty: payload.OtherParty,
		Amount:       ledger.NewAmount(payload.Amount),
		Status:       status,
		Description:  payload.Description,
	}, nil
}

// parseTimestamp reads ISO-8601 values; values without a zone are UTC.
func parseTimestamp(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, trimmed)
		if err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

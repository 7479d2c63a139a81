package ledgerclient

import (
	"context"
	"net/http"
	"strings"

	"github.com/MarkoPoloResearchLab/walletctl/pkg/ledger"
)

// Login exchanges credentials for a session. It does not establish the
// session; the caller decides where it is kept.
func (client *Client) Login(ctx context.Context, username string, password string) (ledger.Session, error) {
	session, err := client.login(ctx, username, password)
	ledger.LogOperation(ctx, client.logger, ledger.OperationLog{
		Operation: ledger.OperationLogin,
		UserID:    session.UserID,
		Error:     err,
	})
	return session, err
}

func (client *Client) login(ctx context.Context, username string, password string) (ledger.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ledger.Session{}, ledger.WrapError(ledger.OperationLogin, errorSubjectInput, errorCodeMissing, ledger.ErrMissingCredentials)
	}
	var response loginResponse
	err := client.do(ctx, call{
		operation: ledger.OperationLogin,
		method:    http.MethodPost,
		path:      pathLogin,
		body:      loginRequest{Username: username, Password: password},
	}, &response)
	if err != nil {
		return ledger.Session{}, err
	}
	displayName := response.Username
	if displayName == "" {
		displayName = username
	}
	session, err := ledger.NewSession(string(response.UserID), displayName, response.AccessToken)
	if err != nil {
		return ledger.Session{}, malformed(ledger.OperationLogin, "%v", err)
	}
	return session, nil
}

// Register creates a new account. The user logs in separately afterwards.
func (client *Client) Register(ctx context.Context, username string, email string, password string) error {
	err := client.register(ctx, username, email, password)
	ledger.LogOperation(ctx, client.logger, ledger.OperationLog{
		Operation: ledger.OperationRegister,
		Error:     err,
	})
	return err
}

func (client *Client) register(ctx context.Context, username string, email string, password string) error {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return ledger.WrapError(ledger.OperationRegister, errorSubjectInput, errorCodeMissing, ledger.ErrMissingCredentials)
	}
	return client.do(ctx, call{
		operation: ledger.OperationRegister,
		method:    http.MethodPost,
		path:      pathRegister,
		body:      registerRequest{Username: username, Email: email, Password: password},
	}, nil)
}

package ledgerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/walletctl/internal/session"
	"github.com/MarkoPoloResearchLab/walletctl/pkg/ledger"
	"github.com/google/uuid"
)

const (
	defaultTimeout     = 5 * time.Second
	maxResponseBytes   = 1 << 20
	headerAuthorize    = "Authorization"
	headerContentType  = "Content-Type"
	headerAccept       = "Accept"
	headerRequestID    = "X-Request-ID"
	headerIdempotency  = "Idempotency-Key"
	contentTypeJSON    = "application/json"
	bearerPrefix       = "Bearer "
	pathBalance        = "/balance"
	pathTransfer       = "/transfer"
	pathTransactions   = "/transactions/"
	pathUsers          = "/users"
	pathLogin          = "/login"
	pathRegister       = "/register"
	errorSubjectInput  = "input"
	errorSubjectReply  = "response"
	errorSubjectSess   = "session"
	errorSubjectWire   = "transport"
	errorCodeMalformed = "malformed"
	errorCodeMissing   = "missing"
	errorCodeRejected  = "rejected"
	errorCodeStatus    = "status"
	errorCodeDenied    = "unauthorized"
	errorCodeEncode    = "encode"
	errorCodeFailed    = "unreachable"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(client *Client) {
		if httpClient != nil {
			client.httpClient = httpClient
		}
	}
}

// WithTimeout bounds every round trip.
func WithTimeout(timeout time.Duration) Option {
	return func(client *Client) {
		if timeout > 0 {
			client.timeout = timeout
		}
	}
}

// WithOperationLogger wires a logger that receives callbacks for every call.
func WithOperationLogger(logger ledger.OperationLogger) Option {
	return func(client *Client) {
		client.logger = logger
	}
}

// WithRequestIDs overrides the generator for X-Request-ID and Idempotency-Key values.
func WithRequestIDs(next func() string) Option {
	return func(client *Client) {
		if next != nil {
			client.newID = next
		}
	}
}

// Client performs single request/response calls against the ledger server.
// It never retries. A 401 on an authenticated call invalidates the session
// before ErrUnauthorized is returned, so callers only need to stop.
type Client struct {
	baseURL    *url.URL
	session    *session.Context
	httpClient *http.Client
	timeout    time.Duration
	logger     ledger.OperationLogger
	newID      func() string
}

// New wires a Client for baseURL.
func New(baseURL string, sessionContext *session.Context, options ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid ledger base url %q", baseURL)
	}
	if sessionContext == nil {
		return nil, errors.New("session context is nil")
	}
	client := &Client{
		baseURL:    parsed,
		session:    sessionContext,
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
		newID:      uuid.NewString,
	}
	for _, option := range options {
		if option != nil {
			option(client)
		}
	}
	return client, nil
}

// Session returns the session context the client authenticates with.
func (client *Client) Session() *session.Context {
	return client.session
}

type call struct {
	operation     string
	method        string
	path          string
	body          any
	authenticated bool
	idempotent    bool
}

func (client *Client) do(ctx context.Context, request call, out any) error {
	header := http.Header{}
	header.Set(headerAccept, contentTypeJSON)
	header.Set(headerRequestID, client.newID())
	var credential ledger.Credential
	if request.authenticated {
		held, err := client.session.Credential()
		if err != nil {
			client.session.Invalidate(ctx)
			return ledger.WrapError(request.operation, errorSubjectSess, errorCodeMissing, err)
		}
		credential = held
		header.Set(headerAuthorize, bearerPrefix+credential.String())
	}
	if request.idempotent {
		header.Set(headerIdempotency, client.newID())
	}

	var payload io.Reader
	if request.body != nil {
		encoded, err := json.Marshal(request.body)
		if err != nil {
			return ledger.WrapError(request.operation, errorSubjectInput, errorCodeEncode, fmt.Errorf("%w: %v", ledger.ErrValidation, err))
		}
		payload = bytes.NewReader(encoded)
		header.Set(headerContentType, contentTypeJSON)
	}

	requestCtx, cancel := context.WithTimeout(ctx, client.timeout)
	defer cancel()
	httpRequest, err := http.NewRequestWithContext(requestCtx, request.method, client.baseURL.String()+request.path, payload)
	if err != nil {
		return ledger.WrapError(request.operation, errorSubjectInput, errorCodeEncode, fmt.Errorf("%w: %v", ledger.ErrValidation, err))
	}
	httpRequest.Header = header

	response, err := client.httpClient.Do(httpRequest)
	if err != nil {
		return ledger.WrapError(request.operation, errorSubjectWire, errorCodeFailed, fmt.Errorf("%w: %v", ledger.ErrNetwork, err))
	}
	defer response.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return ledger.WrapError(request.operation, errorSubjectWire, errorCodeFailed, fmt.Errorf("%w: %v", ledger.ErrNetwork, err))
	}

	if response.StatusCode == http.StatusUnauthorized && request.authenticated {
		// A newer login is left alone.
		client.session.InvalidateCredential(ctx, credential)
		return ledger.WrapError(request.operation, errorSubjectReply, errorCodeDenied, ledger.ErrUnauthorized)
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return ledger.WrapError(request.operation, errorSubjectReply, failureCode(response.StatusCode), classifyStatus(response.StatusCode, decodeErrorMessage(raw)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return ledger.WrapError(request.operation, errorSubjectReply, errorCodeMalformed, fmt.Errorf("%w: %v", ledger.ErrServer, err))
	}
	return nil
}

// classifyStatus maps a non-success status to the taxonomy. Client-side
// rejections the user can fix are validation failures; everything else is a
// server error.
func classifyStatus(code int, message string) error {
	switch code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity:
		return ledger.NewServerMessageError(ledger.ErrValidation, code, message)
	}
	return ledger.NewServerMessageError(ledger.ErrServer, code, message)
}

func failureCode(code int) string {
	if code >= 400 && code < 500 {
		return errorCodeRejected
	}
	return errorCodeStatus
}

// decodeErrorMessage accepts {"error":"text"} and {"error":{"code":..,"message":..}}.
func decodeErrorMessage(raw []byte) string {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ""
	}
	if len(envelope.Error) > 0 {
		var text string
		if err := json.Unmarshal(envelope.Error, &text); err == nil {
			return strings.TrimSpace(text)
		}
		var payload struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(envelope.Error, &payload); err == nil {
			if payload.Message != "" {
				return strings.TrimSpace(payload.Message)
			}
			return strings.TrimSpace(payload.Code)
		}
	}
	return strings.TrimSpace(envelope.Message)
}

func (client *Client) currentUserID() ledger.UserID {
	current, ok := client.session.Current()
	if !ok {
		return ledger.UserID{}
	}
	return current.UserID
}

func malformed(operation string, format string, args ...any) error {
	return ledger.WrapError(operation, errorSubjectReply, errorCodeMalformed, fmt.Errorf("%w: "+format, append([]any{ledger.ErrServer}, args...)...))
}

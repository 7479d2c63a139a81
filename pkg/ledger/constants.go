package ledger

// Operation names reported through OperationLogger and OperationError.
const (
	OperationFetchBalance   = "fetch_balance"
	OperationFetchHistory   = "fetch_history"
	OperationSubmitTransfer = "submit_transfer"
	OperationListUsers      = "list_users"
	OperationLogin          = "login"
	OperationRegister       = "register"
	OperationRefresh        = "refresh"
	OperationTransfer       = "transfer"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	subjectDraft = "draft"

	codeMissingField  = "missing_field"
	codeInvalidAmount = "invalid_amount"
)

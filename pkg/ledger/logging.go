package ledger

import "context"

// OperationLogger records client-side events such as fetches, transfers, and refresh ticks.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a single ledger interaction observed by the client.
type OperationLog struct {
	Operation string
	UserID    UserID
	Receiver  string
	Amount    Amount
	Sequence  int64
	Status    string
	Error     error
}

// WithStatus fills Status from Error when it was left empty.
func (entry OperationLog) WithStatus() OperationLog {
	if entry.Status != "" {
		return entry
	}
	if entry.Error != nil {
		entry.Status = operationStatusError
	} else {
		entry.Status = operationStatusOK
	}
	return entry
}

// LogOperation forwards entry to logger when one is configured.
func LogOperation(ctx context.Context, logger OperationLogger, entry OperationLog) {
	if logger == nil {
		return
	}
	logger.LogOperation(ctx, entry.WithStatus())
}

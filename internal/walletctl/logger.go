package walletctl

import (
	"context"

	"github.com/MarkoPoloResearchLab/walletctl/pkg/ledger"
	"go.uber.org/zap"
)

// NewLogger builds the process logger. Verbose output uses the development config.
func NewLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// ZapOperationLogger forwards ledger operation callbacks to zap.
type ZapOperationLogger struct {
	logger *zap.Logger
}

// NewZapOperationLogger wraps logger. A nil logger discards everything.
func NewZapOperationLogger(logger *zap.Logger) *ZapOperationLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapOperationLogger{logger: logger}
}

// LogOperation records entry. Failures are logged as warnings, successes at debug.
func (operationLogger *ZapOperationLogger) LogOperation(_ context.Context, entry ledger.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
	}
	if !entry.UserID.IsZero() {
		fields = append(fields, zap.String("user_id", entry.UserID.String()))
	}
	if entry.Receiver != "" {
		fields = append(fields, zap.String("receiver", entry.Receiver))
	}
	if entry.Amount != (ledger.Amount{}) {
		fields = append(fields, zap.String("amount", entry.Amount.String()))
	}
	if entry.Sequence > 0 {
		fields = append(fields, zap.Int64("sequence", entry.Sequence))
	}
	if entry.Error != nil {
		fields = append(fields, zap.String("kind", ledger.KindOf(entry.Error).String()), zap.Error(entry.Error))
		operationLogger.logger.Warn("ledger operation failed", fields...)
		return
	}
	operationLogger.logger.Debug("ledger operation", fields...)
}

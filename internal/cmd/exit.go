package cmd

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
)

// osExit is replaced in tests.
var osExit = os.Exit

// ExitWithCode logs err with the foundry exit code metadata and exits.
// A nil logger falls back to stderr.
func ExitWithCode(logger *logging.Logger, exitCode foundry.ExitCode, msg string, err error) {
	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		fmt.Fprintf(os.Stderr, "FATAL: %s: %v (exit code: %d)\n", msg, err, exitCode)
		osExit(int(exitCode))
		return
	}
	if logger == nil {
		writeFatal(os.Stderr, msg, err)
		fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
		osExit(info.Code)
		return
	}

	fields := []zap.Field{
		zap.Int("exit_code", info.Code),
		zap.String("exit_name", info.Name),
		zap.String("exit_category", info.Category),
	}
	if envelope := asEnvelope(err); envelope != nil {
		fields = append(fields,
			zap.String("error_code", envelope.Code),
			zap.String("error_message", envelope.Message),
			zap.String("correlation_id", envelope.CorrelationID),
		)
		if envelope.Context != nil {
			fields = append(fields, zap.Any("error_context", envelope.Context))
		}
		if original, ok := envelope.Original.(error); ok {
			err = original
		}
	}
	fields = append(fields, zap.Error(err))
	logger.Error(msg, fields...)
	osExit(info.Code)
}

// ExitWithCodeStderr exits without a logger, for failures before logging
// is initialised.
func ExitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		fmt.Fprintf(os.Stderr, "FATAL: %s: %v (exit code: %d)\n", msg, err, exitCode)
		osExit(int(exitCode))
		return
	}
	writeFatal(os.Stderr, msg, err)
	fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
	osExit(info.Code)
}

func writeFatal(w io.Writer, msg string, err error) {
	switch envelope := asEnvelope(err); {
	case envelope != nil:
		fmt.Fprintf(w, "FATAL: %s [%s]: %s (correlation: %s)\n",
			msg, envelope.Code, envelope.Message, envelope.CorrelationID)
		if original, ok := envelope.Original.(error); ok {
			fmt.Fprintf(w, "Underlying error: %v\n", original)
		}
	case err != nil:
		fmt.Fprintf(w, "FATAL: %s: %v\n", msg, err)
	default:
		fmt.Fprintf(w, "FATAL: %s\n", msg)
	}
}

func asEnvelope(err error) *errors.ErrorEnvelope {
	var envelope *errors.ErrorEnvelope
	if stderrors.As(err, &envelope) {
		return envelope
	}
	return nil
}

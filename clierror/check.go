// Package clierror converts core errors into user-facing messages and
// process exit codes.
package clierror

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fam007e/securepass/vaulterrors"
)

// Exit codes reported by the securepass binary.
const (
	ExitOK          = 0
	ExitAuthFailed  = 1
	ExitUsageError  = 2
	ExitIoError     = 3
	ExitCryptoError = 4
)

var (
	// errHandler is the function used to handle cli errors.
	errHandler = FatalErrHandler

	// errWriter is used to output cli error messages.
	errWriter io.Writer = os.Stderr

	// fprintf is the function used to format and print errors.
	fprintf = fmt.Fprintf

	// debugMode enables always printing raw error values.
	debugMode bool
)

// SetErrorHandler overrides the default [FatalErrHandler] error handler.
func SetErrorHandler(f func(string, int)) {
	errHandler = f
}

// ResetErrorHandler restores the default error handler.
func ResetErrorHandler() {
	errHandler = FatalErrHandler
}

// SetErrWriter overrides the default error output writer [os.Stderr].
func SetErrWriter(w io.Writer) {
	errWriter = w
}

// ResetErrWriter restores the default error output writer to [os.Stderr].
func ResetErrWriter() {
	errWriter = os.Stderr
}

// DebugMode sets whether debug logging is enabled.
//
// When enabled, raw error values are printed to stderr.
func DebugMode(enabled bool) {
	debugMode = enabled
}

// FatalErrHandler prints the message provided and then exits with the given code.
func FatalErrHandler(msg string, code int) {
	printError(msg)

	//nolint:revive // Intentional exit after fatal error.
	os.Exit(code)
}

func PrintErrHandler(msg string, _ int) {
	printError(msg)
}

func printError(msg string) {
	if len(msg) == 0 {
		return
	}

	// add newline if needed
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}

	_, _ = fprintf(errWriter, msg)
}

func debugPrint(err error) {
	if !debugMode {
		return
	}

	_, _ = fprintf(errWriter, "DEBUG %+v\n", err)
}

// ErrExit may be passed to Check to instruct it to output nothing but exit
// with the usage error status.
var ErrExit = errors.New("exit")

// Check prints a user-friendly error message and invokes the configured error handler.
//
// When the [FatalErrHandler] is used, the program will exit before this function returns.
func Check(err error) error {
	check(err, errHandler)
	return err
}

//nolint:revive
func check(err error, handleErr func(string, int)) {
	if err == nil {
		return
	}

	debugPrint(err)

	switch {
	case errors.Is(err, ErrExit):
		handleErr("", ExitUsageError)
	case errors.Is(err, vaulterrors.ErrAuthFailed):
		handleErr("securepass: incorrect passphrase or corrupted vault\nPlease check your passphrase and try again.", ExitAuthFailed)
	case errors.Is(err, vaulterrors.ErrVaultFileExists):
		handleErr("securepass: vault file already exists\nConsider deleting the file first before running 'create' to create a new vault at the specified path.", ExitUsageError)
	case errors.Is(err, vaulterrors.ErrVaultFileNotFound):
		handleErr("securepass: "+err.Error()+"\nUse the `create` command to create a new vault file.", ExitUsageError)
	case errors.Is(err, vaulterrors.ErrEmptyPassphrase),
		errors.Is(err, vaulterrors.ErrInvalidInput),
		errors.Is(err, vaulterrors.ErrInvalidPolicy),
		errors.Is(err, vaulterrors.ErrInvalidSecret),
		errors.Is(err, vaulterrors.ErrNotFound):
		handleErr(prefixed(err), ExitUsageError)
	case errors.Is(err, vaulterrors.ErrCorrupt),
		errors.Is(err, vaulterrors.ErrCrypto),
		errors.Is(err, vaulterrors.ErrEntropyFailure):
		handleErr(prefixed(err), ExitCryptoError)
	case errors.Is(err, vaulterrors.ErrIo):
		handleErr(prefixed(err), ExitIoError)
	default:
		handleErr(prefixed(err), ExitUsageError)
	}
}

func prefixed(err error) string {
	msg := err.Error()
	if !strings.HasPrefix(msg, "securepass: ") {
		msg = "securepass: " + msg
	}

	return msg
}

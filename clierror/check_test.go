package clierror

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/fam007e/securepass/vaulterrors"
)

func TestCheck_ExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{
			name:     "auth failed",
			err:      vaulterrors.ErrAuthFailed,
			wantCode: ExitAuthFailed,
		},
		{
			name:     "wrapped auth failed",
			err:      fmt.Errorf("vault.open: %w", vaulterrors.ErrAuthFailed),
			wantCode: ExitAuthFailed,
		},
		{
			name:     "invalid input",
			err:      vaulterrors.ErrInvalidInput,
			wantCode: ExitUsageError,
		},
		{
			name:     "not found",
			err:      vaulterrors.ErrNotFound,
			wantCode: ExitUsageError,
		},
		{
			name:     "io",
			err:      vaulterrors.ErrIo,
			wantCode: ExitIoError,
		},
		{
			name:     "corrupt",
			err:      vaulterrors.ErrCorrupt,
			wantCode: ExitCryptoError,
		},
		{
			name:     "entropy",
			err:      vaulterrors.ErrEntropyFailure,
			wantCode: ExitCryptoError,
		},
		{
			name:     "unknown",
			err:      errors.New("boom"),
			wantCode: ExitUsageError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotCode := -1

			check(tt.err, func(_ string, code int) {
				gotCode = code
			})

			if gotCode != tt.wantCode {
				t.Errorf("exit code = %d, want %d", gotCode, tt.wantCode)
			}
		})
	}
}

func TestCheck_NilError(t *testing.T) {
	called := false

	check(nil, func(string, int) { called = true })

	if called {
		t.Error("handler invoked for nil error")
	}
}

func TestCheck_MessagePrefix(t *testing.T) {
	var msg string

	check(errors.New("something broke"), func(m string, _ int) { msg = m })

	if want := "securepass: something broke"; msg != want {
		t.Errorf("message = %q, want %q", msg, want)
	}
}

func TestPrintErrHandler(t *testing.T) {
	var buf bytes.Buffer

	SetErrWriter(&buf)
	defer ResetErrWriter()

	PrintErrHandler("securepass: oops", 1)

	if got, want := buf.String(), "securepass: oops\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

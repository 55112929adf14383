// Package input provides terminal prompt helpers for reading user input,
// including secure passphrase entry with echo suppressed.
package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/fam007e/securepass/secmem"
)

func IsPipedOrRedirected(fi os.FileInfo) bool {
	return (fi.Mode() & os.ModeCharDevice) == 0
}

// PromptRead prompts via w for input and reads it from r until a newline is entered.
func PromptRead(w io.Writer, r io.Reader, prompt string, a ...any) (string, error) {
	fmt.Fprintf(w, prompt, a...)

	reader := bufio.NewReader(r)

	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("prompt read: %w", err)
	}

	return strings.TrimSpace(line), nil
}

// PromptReadSecure prompts the user via w for input and securely reads it
// from the given file descriptor with echo suppressed.
func PromptReadSecure(w io.Writer, fd int, prompt string, a ...any) ([]byte, error) {
	fmt.Fprintf(w, prompt, a...)
	defer fmt.Fprintln(w)

	bs, err := term.ReadPassword(fd)
	if err != nil {
		return nil, fmt.Errorf("term read password: %w", err)
	}

	return bs, nil
}

// PromptPassphrase prompts the user to enter the current vault passphrase.
func PromptPassphrase(w io.Writer, fd int, path string) ([]byte, error) {
	return PromptReadSecure(w, fd, "[securepass] Passphrase for %q: ", path)
}

// PromptNewPassphrase prompts for a new passphrase of at least minLength
// and asks for it twice. The first read is wiped if confirmation fails.
func PromptNewPassphrase(w io.Writer, fd int, minLength int) ([]byte, error) {
	var pass []byte

	for len(pass) < minLength {
		p, err := PromptReadSecure(w, fd, "Enter new passphrase: ")
		if err != nil {
			return nil, fmt.Errorf("prompt new passphrase: %w", err)
		}

		pass = p

		if len(pass) < minLength {
			fmt.Fprintf(w, "Passphrase must be at least %d characters. Please try again.\n", minLength)
		}
	}

	pass2, err := PromptReadSecure(w, fd, "Retype passphrase: ")
	if err != nil {
		secmem.Wipe(pass)
		return nil, fmt.Errorf("prompt new passphrase: %w", err)
	}
	defer secmem.Wipe(pass2) //nolint:wsl

	if !secmem.Equal(pass, pass2) {
		secmem.Wipe(pass)
		return nil, errors.New("prompt new passphrase: passphrases do not match")
	}

	return pass, nil
}

// Package prompt reads passwords from the user.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNoInput is returned when input ends before a password was entered.
var ErrNoInput = errors.New("no password entered")

// Prompter asks for a password.
type Prompter interface {
	Password(label string) (string, error)
}

// Reader prompts on out and reads from in. When in is a terminal the
// password is read without echo; otherwise one line is read, which lets
// scripts pipe passwords on stdin.
type Reader struct {
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

// New creates a Reader.
func New(in io.Reader, out io.Writer) *Reader {
	return &Reader{
		in:     in,
		out:    out,
		reader: bufio.NewReader(in),
	}
}

// Password prints label and returns the entered password with surrounding
// whitespace removed.
func (r *Reader) Password(label string) (string, error) {
	_, _ = fmt.Fprint(r.out, label)

	if f, ok := r.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(r.out) // newline after hidden input
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimSpace(string(password)), nil
	}

	line, err := r.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line == "" {
			return "", ErrNoInput
		}
		if !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
	}
	return strings.TrimSpace(line), nil
}

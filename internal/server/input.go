package server

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"golang.org/x/term"
)

// lineSource yields console input lines without their terminator.
type lineSource interface {
	ReadLine() (string, error)
}

// newLineSource returns the reader for a session. Terminals get the x/term
// line editor, which prints the prompt, echoes input and handles escape
// sequences. Plain streams are read line by line.
func newLineSource(rw io.ReadWriter, isPty bool, width, height int) lineSource {
	if !isPty {
		return &plainLines{w: rw, r: bufio.NewReader(rw)}
	}
	t := term.NewTerminal(rw, prompt)
	if width > 0 && height > 0 {
		t.SetSize(width, height)
	}
	return t
}

// plainLines reads newline-terminated input and writes the prompt before
// every line.
type plainLines struct {
	w io.Writer
	r *bufio.Reader
}

func (p *plainLines) ReadLine() (string, error) {
	io.WriteString(p.w, prompt)
	line, err := p.r.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

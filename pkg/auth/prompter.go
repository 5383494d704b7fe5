package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const loginHelp = `You need to log in to archive Instagram content. Enter your username and password below,
or run once with --headless=false and --user-data, log in directly in the browser window,
then restart keeping the --user-data option.`

// Prompter asks for credentials on a terminal. The password is read
// without echo when input is a terminal.
type Prompter struct {
	in     *bufio.Reader
	out    io.Writer
	fd     int
	isTerm func(fd int) bool
	readPw func(fd int) ([]byte, error)
}

// NewTerminalPrompter prompts on stdin/stderr
func NewTerminalPrompter() *Prompter {
	p := NewPrompter(os.Stdin, os.Stderr)
	p.fd = int(os.Stdin.Fd())
	return p
}

// NewPrompter prompts on arbitrary streams; input is read line by line
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:     bufio.NewReader(in),
		out:    out,
		fd:     -1,
		isTerm: term.IsTerminal,
		readPw: term.ReadPassword,
	}
}

// Prompt asks for a password, and for the username when it is not given
func (p *Prompter) Prompt(ctx context.Context, username string) (*Credentials, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fmt.Fprintln(p.out, loginHelp)

	if username == "" {
		fmt.Fprint(p.out, "Enter Instagram username: ")
		line, err := p.readLine()
		if err != nil {
			return nil, fmt.Errorf("failed to read username: %w", err)
		}
		username = line
	}
	if username == "" {
		return nil, ErrInvalidCredentials
	}

	fmt.Fprint(p.out, "Enter Instagram password: ")
	password, err := p.readPassword()
	fmt.Fprintln(p.out)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return nil, ErrInvalidCredentials
	}

	return &Credentials{Username: username, Password: password}, nil
}

func (p *Prompter) readPassword() (string, error) {
	if p.fd >= 0 && p.isTerm(p.fd) {
		b, err := p.readPw(p.fd)
		return string(b), err
	}
	return p.readLine()
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

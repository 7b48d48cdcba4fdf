package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Prompter reads operator input line by line. Reads happen on their own goroutine
// so a pending prompt returns as soon as the context is cancelled.
type Prompter struct {
	out   io.Writer
	lines chan string
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{out: out, lines: make(chan string)}
	go func() {
		defer close(p.lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			p.lines <- sc.Text()
		}
	}()
	return p
}

// Ask prints prompt and waits for one line. io.EOF means input is exhausted.
func (p *Prompter) Ask(ctx context.Context, prompt string) (string, error) {
	if prompt != "" {
		fmt.Fprint(p.out, prompt)
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-p.lines:
		if !ok {
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	}
}

// Confirm implements session.Confirmer with a y/n question.
func (p *Prompter) Confirm(ctx context.Context, _ string) (bool, error) {
	answer, err := p.Ask(ctx, "Operation failed. Retry? (y/n): ")
	if err != nil {
		return false, err
	}
	return strings.HasPrefix(strings.ToLower(answer), "y"), nil
}

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/joule/internal/presentation/tui"
	"github.com/aretw0/joule/pkg/chat"
	"github.com/aretw0/joule/pkg/ports"
)

// ChatOptions configures an interactive chat session.
type ChatOptions struct {
	SessionID string
	Timezone  string
	UserMail  string
	In        io.Reader
	Out       io.Writer
	// Render formats answers. Defaults to tui.Plain.
	Render tui.Renderer
}

var exitCommands = map[string]bool{"q": true, "quit": true, "exit": true}

// RunChat reads one message per line from opts.In and prints each answer
// until the input ends, an exit command is typed or ctx is cancelled.
func RunChat(ctx context.Context, svc ports.ChatService, opts ChatOptions) error {
	if opts.Render == nil {
		opts.Render = tui.Plain
	}
	printSystemMessage(opts.Out, "Session '%s' active. Type 'exit' to leave.", opts.SessionID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(opts.In)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		err := scanner.Err()
		if err == nil {
			err = io.EOF
		}
		readErr <- err
	}()

	for {
		fmt.Fprint(opts.Out, "> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(opts.Out)
			printSystemMessage(opts.Out, "Interrupted.")
			return ctx.Err()
		case err := <-readErr:
			fmt.Fprintln(opts.Out)
			return err
		case line = <-lines:
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if exitCommands[strings.ToLower(line)] {
			printSystemMessage(opts.Out, "Bye.")
			return nil
		}

		resp, err := svc.HandleTurn(ctx, ports.TurnRequest{
			Query:     line,
			SessionID: opts.SessionID,
			Timezone:  opts.Timezone,
			UserMail:  opts.UserMail,
		})
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, chat.ErrInvalidRequest):
			printSystemMessage(opts.Out, "%v", err)
			continue
		default:
			printSystemMessage(opts.Out, "The turn failed, nothing was recorded: %v", err)
			continue
		}

		out, err := opts.Render(resp.Answer)
		if err != nil {
			out = resp.Answer + "\n"
		}
		fmt.Fprint(opts.Out, out)
	}
}

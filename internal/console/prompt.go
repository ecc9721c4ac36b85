package console

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	prompt "github.com/c-bata/go-prompt"
	"github.com/xtxerr/telemetryd/internal/constants"
	"golang.org/x/term"
)

var commandSuggestions = []prompt.Suggest{
	{Text: constants.CommandList, Description: "every peer and its latest report"},
	{Text: constants.CommandShow, Description: "one peer's report"},
	{Text: constants.CommandAverage, Description: "mean of each metric"},
	{Text: constants.CommandSummary, Description: "mean, min, max and percentiles"},
	{Text: constants.CommandStatus, Description: "acceptor counters"},
	{Text: constants.CommandHelp, Description: "list commands"},
	{Text: constants.CommandQuit, Description: "stop the server"},
}

func terminalFD(in io.Reader) (int, bool) {
	f, ok := in.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

// =============================================================================
// Interactive Mode
// =============================================================================

// runInteractive drives go-prompt. The prompt cannot be interrupted, so on
// ctx cancellation the terminal state is restored and the prompt goroutine
// is abandoned to process exit.
func (c *Console) runInteractive(ctx context.Context, fd int) error {
	state, err := term.GetState(fd)
	if err != nil {
		log.Warn("could not save terminal state", "error", err)
	}

	p := prompt.New(
		func(line string) { c.Execute(line) },
		c.complete,
		prompt.OptionPrefix(c.cfg.Prompt),
		prompt.OptionTitle("telemetryd"),
		prompt.OptionMaxSuggestion(uint16(len(commandSuggestions))),
		prompt.OptionSetExitCheckerOnInput(func(string, bool) bool {
			return c.Quitting()
		}),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if state != nil {
			if err := term.Restore(fd, state); err != nil {
				log.Warn("could not restore terminal", "error", err)
			}
		}
		return nil
	}
}

// complete suggests commands for the first word and known addresses for
// the argument of show.
func (c *Console) complete(d prompt.Document) []prompt.Suggest {
	before := d.TextBeforeCursor()
	fields := strings.Fields(before)
	word := d.GetWordBeforeCursor()

	if len(fields) == 0 || (len(fields) == 1 && word != "") {
		return prompt.FilterHasPrefix(commandSuggestions, word, true)
	}
	if strings.ToLower(fields[0]) != constants.CommandShow {
		return nil
	}
	return prompt.FilterHasPrefix(c.addressSuggestions(), word, false)
}

func (c *Console) addressSuggestions() []prompt.Suggest {
	addrs := c.cfg.Reader.Addresses()
	out := make([]prompt.Suggest, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, prompt.Suggest{Text: addr})
	}
	return out
}

// =============================================================================
// Line Mode
// =============================================================================

// runLines executes one command per input line. End of input stops the
// console without quitting the process.
func (c *Console) runLines(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				var err error
				select {
				case err = <-scanErr:
				default:
				}
				if err != nil {
					return err
				}
				log.Debug("console input closed")
				return nil
			}
			if c.Execute(line) {
				return nil
			}
		}
	}
}

// Package console is the operator surface over the telemetry store.
//
// Commands:
//
//	list             table of every peer and its latest record
//	show <address>   one peer's record
//	average          mean of each metric across peers
//	summary          mean, min, max and approximate percentiles
//	status           acceptor counters and uptime
//	help             command list
//	quit | exit      shut the process down
//
// On a terminal the console runs an interactive prompt with completion;
// otherwise it reads one command per line. Query failures are printed and
// the console keeps going.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/xtxerr/telemetryd/internal/constants"
	"github.com/xtxerr/telemetryd/internal/logging"
	"github.com/xtxerr/telemetryd/internal/server"
	"github.com/xtxerr/telemetryd/internal/store"
)

var log = logging.Component("console")

// Reader is the read side of the store.
type Reader interface {
	ReadAll() map[string]store.Record
	ReadOne(addr string) (store.Record, bool)
	Addresses() []string
	Average() (store.Summary, error)
	Summary() (store.Summary, error)
}

// =============================================================================
// Console Configuration
// =============================================================================

// Config holds console configuration.
type Config struct {
	// Reader answers queries (required).
	Reader Reader

	// Stats reports acceptor counters for the status command. Optional.
	Stats func() server.Stats

	// Out receives command output (required).
	Out io.Writer

	// Prompt is the interactive prompt prefix.
	Prompt string

	// Color enables coloured output.
	Color bool

	// OnQuit is called once when the operator asks to quit.
	OnQuit func()
}

// Console executes operator commands.
type Console struct {
	cfg     *Config
	out     io.Writer
	started time.Time

	errColor  *color.Color
	headColor *color.Color
	dimColor  *color.Color

	quit     atomic.Bool
	quitOnce atomic.Bool
}

// New creates a console.
func New(cfg *Config) *Console {
	if cfg.Prompt == "" {
		cfg.Prompt = "telemetry> "
	}

	c := &Console{
		cfg:       cfg,
		out:       cfg.Out,
		started:   time.Now(),
		errColor:  color.New(color.FgRed, color.Bold),
		headColor: color.New(color.FgCyan, color.Bold),
		dimColor:  color.New(color.Faint),
	}
	for _, col := range []*color.Color{c.errColor, c.headColor, c.dimColor} {
		if cfg.Color {
			col.EnableColor()
		} else {
			col.DisableColor()
		}
	}
	return c
}

// Quitting reports whether a quit command has been executed.
func (c *Console) Quitting() bool {
	return c.quit.Load()
}

// =============================================================================
// Dispatch
// =============================================================================

// Execute runs one command line. It returns true when the line asked the
// console to quit.
func (c *Console) Execute(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	log.Debug("command", "cmd", cmd, "args", len(args))

	switch cmd {
	case constants.CommandList:
		c.list()
	case constants.CommandShow:
		if len(args) != 1 {
			c.errorf("usage: show <address>")
			return false
		}
		c.show(args[0])
	case constants.CommandAverage:
		c.average()
	case constants.CommandSummary:
		c.summary()
	case constants.CommandStatus:
		c.status()
	case constants.CommandHelp, "?":
		c.help()
	case constants.CommandQuit, constants.CommandExit:
		c.requestQuit()
		return true
	default:
		c.errorf("unknown command %q (type %q for a list)", fields[0], constants.CommandHelp)
	}
	return false
}

func (c *Console) requestQuit() {
	c.quit.Store(true)
	if c.quitOnce.CompareAndSwap(false, true) && c.cfg.OnQuit != nil {
		c.cfg.OnQuit()
	}
}

// Run serves commands until quit, end of input, or ctx is done. in is
// used interactively when it is a terminal.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	if fd, ok := terminalFD(in); ok {
		log.Debug("interactive console")
		return c.runInteractive(ctx, fd)
	}
	log.Debug("line console")
	return c.runLines(ctx, in)
}

func (c *Console) errorf(format string, args ...any) {
	c.errColor.Fprint(c.out, "error: ")
	fmt.Fprintf(c.out, format+"\n", args...)
}

func (c *Console) help() {
	c.headColor.Fprintln(c.out, "commands:")
	fmt.Fprintln(c.out, "  list             every peer and its latest report")
	fmt.Fprintln(c.out, "  show <address>   one peer's report")
	fmt.Fprintln(c.out, "  average          mean of each metric across peers")
	fmt.Fprintln(c.out, "  summary          mean, min, max, p50 and p90 per metric")
	fmt.Fprintln(c.out, "  status           acceptor counters")
	fmt.Fprintln(c.out, "  quit             stop the server")
}

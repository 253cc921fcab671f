// Package httpie implements the actual functionality exposed via the CLI.
package httpie

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.followtheprocess.codes/httpie/internal/command"
	"go.followtheprocess.codes/httpie/internal/send"
	"go.followtheprocess.codes/hue"
	"go.followtheprocess.codes/log"
	"go.followtheprocess.codes/msg"
)

// DefaultTimeout is the timeout applied to a sent request when none is given.
const DefaultTimeout = 30 * time.Second

const (
	methodStyle  = hue.Cyan | hue.Bold
	successStyle = hue.Green | hue.Bold
	failureStyle = hue.Red | hue.Bold
)

// Names of the subcommands httpie knows about.
const (
	GetCommand  = "get"
	PostCommand = "post"
)

var subcommands = [...]string{GetCommand, PostCommand}

// ErrUnknownSubcommand is the sentinel matched by every [UnknownSubcommandError].
var ErrUnknownSubcommand = errors.New("unknown subcommand")

// UnknownSubcommandError is returned when httpie is invoked with a subcommand
// other than [GetCommand] or [PostCommand], or none at all.
type UnknownSubcommandError struct {
	Name string // The offending first argument, empty if there wasn't one
}

// Error implements the error interface for [UnknownSubcommandError].
func (e *UnknownSubcommandError) Error() string {
	expected := strings.Join(subcommands[:], ", ")
	if e.Name == "" {
		return fmt.Sprintf("missing subcommand, expected one of (%s), see --help for usage", expected)
	}

	return fmt.Sprintf("unknown subcommand %q, expected one of (%s), see --help for usage", e.Name, expected)
}

// Is reports whether target is [ErrUnknownSubcommand].
func (e *UnknownSubcommandError) Is(target error) bool {
	return target == ErrUnknownSubcommand
}

// UnknownSubcommand returns the error for a bare invocation of httpie with args, args
// here is whatever was left after looking for a known subcommand.
func UnknownSubcommand(args []string) error {
	if len(args) == 0 {
		return &UnknownSubcommandError{}
	}

	return &UnknownSubcommandError{Name: args[0]}
}

// Options are the flags shared by the `httpie get` and `httpie post` subcommands.
type Options struct {
	Timeout time.Duration // Timeout for a sent request
	JSON    bool          // Output the parsed command as JSON
	Verbose bool          // Enable debug logging
	Send    bool          // Actually send the request
}

// Httpie holds the state of the program.
type Httpie struct {
	stdout io.Writer   // Normal program output is written here
	stderr io.Writer   // Logs and debug info
	sender send.Sender // Dispatches requests when asked to
}

// New returns a new instance of [Httpie].
func New(stdout, stderr io.Writer, sender send.Sender) Httpie {
	return Httpie{
		stdout: stdout,
		stderr: stderr,
		sender: sender,
	}
}

// Get implements the `httpie get` subcommand.
func (h Httpie) Get(ctx context.Context, url string, options Options) error {
	logger := h.logger(options)

	cmd, err := command.Get(url)
	if err != nil {
		return err
	}

	logger.Debug("Validated URL", "method", cmd.Method, "url", cmd.URL)

	return h.finish(ctx, logger, cmd, options)
}

// Post implements the `httpie post` subcommand, tokens are the key=value
// pairs that make up the request body.
func (h Httpie) Post(ctx context.Context, url string, tokens []string, options Options) error {
	logger := h.logger(options)

	cmd, err := command.Post(url, tokens)
	if err != nil {
		return err
	}

	logger.Debug("Validated URL", "method", cmd.Method, "url", cmd.URL)
	logger.Debug("Parsed body", "fields", len(cmd.Body))

	return h.finish(ctx, logger, cmd, options)
}

// finish does whatever is asked of a fully validated command, either showing it
// or sending it.
func (h Httpie) finish(ctx context.Context, logger *log.Logger, cmd command.Command, options Options) error {
	if !options.Send {
		return h.show(cmd, options)
	}

	if h.sender == nil {
		return errors.New("no sender configured")
	}

	timeout := options.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Debug("Sending request", "method", cmd.Method, "url", cmd.URL, "timeout", timeout)

	start := time.Now()

	response, err := h.sender.Send(ctx, cmd)
	if err != nil {
		return err
	}

	logger.Debug("Got response", "status", response.StatusCode, "duration", time.Since(start))

	style := successStyle
	if response.StatusCode >= 400 {
		style = failureStyle
		msg.Fwarn(h.stderr, "%s %s returned %s", cmd.Method, cmd.URL, response.Status)
	}

	style.Fprintln(h.stdout, response.Status)
	fmt.Fprintln(h.stdout, string(response.Body))

	return nil
}

// show writes the command to stdout.
func (h Httpie) show(cmd command.Command, options Options) error {
	if options.JSON {
		return json.NewEncoder(h.stdout).Encode(cmd)
	}

	// The request line gets a bit of colour, the rest is what the command says it is
	_, rest, _ := strings.Cut(cmd.String(), " ")

	fmt.Fprintf(h.stdout, "%s %s", methodStyle.Sprint(cmd.Method), rest)

	return nil
}

// logger returns the logger to use for this invocation.
func (h Httpie) logger(options Options) *log.Logger {
	level := log.LevelInfo
	if options.Verbose {
		level = log.LevelDebug
	}

	return log.New(h.stderr, log.WithLevel(level))
}

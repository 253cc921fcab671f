// Package cmd implements httpie's CLI.
package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"

	"go.followtheprocess.codes/cli"
	"go.followtheprocess.codes/httpie/internal/httpie"
	"go.followtheprocess.codes/httpie/internal/send"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

// Build returns the root httpie CLI command, options are applied after
// httpie's own and are mostly there for tests.
func Build(options ...cli.Option) (*cli.Command, error) {
	rootOptions := []cli.Option{
		cli.Short("A naive httpie, send GET and POST requests from the command line"),
		cli.Example("Show a GET request", "httpie get https://example.com/path?x=1"),
		cli.Example("Show a POST request with a JSON body", "httpie post https://example.com name=bob age=42"),
		cli.Example("Actually send it", "httpie post https://example.com name=bob --send"),
		cli.Version(version),
		cli.Commit(commit),
		cli.BuildDate(date),
		cli.Run(func(cmd *cli.Command, args []string) error {
			// Anything that got here did not match a subcommand
			usage(cmd.Stderr())
			return httpie.UnknownSubcommand(args)
		}),
		cli.SubCommands(get, post),
	}

	return cli.New("httpie", append(rootOptions, options...)...)
}

// get returns the get subcommand.
func get() (*cli.Command, error) {
	var options httpie.Options
	return cli.New(
		httpie.GetCommand,
		cli.Short("Feed get with a URL and we will retrieve the response for you"),
		cli.Allow(cli.ExactArgs(1)),
		cli.Example("Show the request", "httpie get https://example.com"),
		cli.Flag(&options.JSON, "json", 'j', false, "Output the parsed request as JSON"),
		cli.Flag(&options.Verbose, "verbose", 'v', false, "Enable debug logging"),
		cli.Flag(&options.Send, "send", cli.NoShortHand, false, "Send the request and show the response"),
		cli.Flag(&options.Timeout, "timeout", cli.NoShortHand, httpie.DefaultTimeout, "Timeout for a sent request"),
		cli.Run(func(cmd *cli.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			app := httpie.New(cmd.Stdout(), cmd.Stderr(), sender())
			return app.Get(ctx, args[0], options)
		}),
	)
}

const postLong = `
Every argument after the URL must be a key=value pair, together they
make up a JSON object body with fields in the order given.

Only the first '=' separates the key from the value, so 'a=b=c' is the
key 'a' with the value 'b=c'.
`

// post returns the post subcommand.
func post() (*cli.Command, error) {
	var options httpie.Options
	return cli.New(
		httpie.PostCommand,
		cli.Short("Feed post with a URL and optional key=value pairs"),
		cli.Long(postLong),
		cli.Allow(cli.MinArgs(1)),
		cli.Example("Show the request", "httpie post https://example.com a=1 b=2"),
		cli.Flag(&options.JSON, "json", 'j', false, "Output the parsed request as JSON"),
		cli.Flag(&options.Verbose, "verbose", 'v', false, "Enable debug logging"),
		cli.Flag(&options.Send, "send", cli.NoShortHand, false, "Send the request and show the response"),
		cli.Flag(&options.Timeout, "timeout", cli.NoShortHand, httpie.DefaultTimeout, "Timeout for a sent request"),
		cli.Run(func(cmd *cli.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			app := httpie.New(cmd.Stdout(), cmd.Stderr(), sender())
			return app.Post(ctx, args[0], args[1:], options)
		}),
	)
}

// usage writes the root help to w.
func usage(w io.Writer) {
	root, err := Build(cli.OverrideArgs([]string{"--help"}), cli.Stdout(w), cli.Stderr(w))
	if err != nil {
		return
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintf(w, "could not show usage: %v\n", err)
	}
}

// sender returns the [send.Sender] used by the subcommands.
func sender() send.Sender {
	return send.New(&http.Client{})
}

package httpie_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"go.followtheprocess.codes/httpie/internal/command"
	"go.followtheprocess.codes/httpie/internal/httpie"
	"go.followtheprocess.codes/httpie/internal/send"
	"go.followtheprocess.codes/httpie/internal/syntax"
	"go.followtheprocess.codes/hue"
	"go.followtheprocess.codes/test"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// Exact output comparisons, no colour
	hue.Enabled(false)
	os.Exit(m.Run())
}

// recorder is a [send.Sender] that remembers what it was asked to send.
type recorder struct {
	err      error
	sent     []command.Command
	response send.Response
}

func (r *recorder) Send(ctx context.Context, cmd command.Command) (send.Response, error) {
	r.sent = append(r.sent, cmd)
	return r.response, r.err
}

func TestGet(t *testing.T) {
	tests := []struct {
		name    string         // Name of the test case
		url     string         // URL argument
		stdout  string         // Expected stdout
		errMsg  string         // If we wanted an error, what should it say
		options httpie.Options // Flags
		wantErr bool           // Whether we want an error
	}{
		{
			name:   "show",
			url:    "https://example.com/path?x=1",
			stdout: "GET https://example.com/path?x=1\n",
		},
		{
			name:    "json",
			url:     "http://example.com",
			options: httpie.Options{JSON: true},
			stdout:  `{"method":"GET","url":"http://example.com"}` + "\n",
		},
		{
			name:    "invalid",
			url:     "not-a-url",
			wantErr: true,
			errMsg:  `invalid URL "not-a-url": missing scheme`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer goleak.VerifyNone(t)

			stdout := &bytes.Buffer{}
			stderr := &bytes.Buffer{}
			sender := &recorder{}

			app := httpie.New(stdout, stderr, sender)

			err := app.Get(context.Background(), tt.url, tt.options)
			test.WantErr(t, err, tt.wantErr)

			if err != nil {
				test.Equal(t, err.Error(), tt.errMsg)
				test.True(t, errors.Is(err, syntax.ErrInvalidURL))
			}

			test.Equal(t, stdout.String(), tt.stdout)
			test.Equal(t, stderr.String(), "")
			test.Equal(t, len(sender.sent), 0, test.Context("nothing should be sent without --send"))
		})
	}
}

func TestPost(t *testing.T) {
	tests := []struct {
		name    string         // Name of the test case
		url     string         // URL argument
		stdout  string         // Expected stdout
		errMsg  string         // If we wanted an error, what should it say
		tokens  []string       // Body tokens
		options httpie.Options // Flags
		wantErr bool           // Whether we want an error
	}{
		{
			name:   "show",
			url:    "http://example.com",
			tokens: []string{"a=1", "b=2"},
			stdout: "POST http://example.com\n\n{\"a\":\"1\",\"b\":\"2\"}\n",
		},
		{
			name:   "no body",
			url:    "http://example.com",
			stdout: "POST http://example.com\n",
		},
		{
			name:    "json",
			url:     "http://example.com",
			tokens:  []string{"a=b=c"},
			options: httpie.Options{JSON: true},
			stdout:  `{"method":"POST","url":"http://example.com","body":[{"key":"a","value":"b=c"}]}` + "\n",
		},
		{
			name:    "missing separator",
			url:     "http://example.com",
			tokens:  []string{"foo"},
			wantErr: true,
			errMsg:  `bad key value pair "foo": expected key=value`,
		},
		{
			name:    "invalid url",
			url:     "example.com",
			tokens:  []string{"a=1"},
			wantErr: true,
			errMsg:  `invalid URL "example.com": missing scheme`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer goleak.VerifyNone(t)

			stdout := &bytes.Buffer{}
			stderr := &bytes.Buffer{}
			sender := &recorder{}

			app := httpie.New(stdout, stderr, sender)

			err := app.Post(context.Background(), tt.url, tt.tokens, tt.options)
			test.WantErr(t, err, tt.wantErr)

			if err != nil {
				test.Equal(t, err.Error(), tt.errMsg)
			}

			test.Equal(t, stdout.String(), tt.stdout)
			test.Equal(t, len(sender.sent), 0)
		})
	}
}

func TestVerbose(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	app := httpie.New(stdout, stderr, &recorder{})

	err := app.Post(context.Background(), "http://example.com", []string{"a=1"}, httpie.Options{Verbose: true})
	test.Ok(t, err)

	test.True(t, strings.Contains(stderr.String(), "Validated URL"), test.Context("stderr: %s", stderr.String()))
	test.True(t, strings.Contains(stderr.String(), "Parsed body"), test.Context("stderr: %s", stderr.String()))
}

func TestSend(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}
		sender := &recorder{
			response: send.Response{Status: "200 OK", StatusCode: http.StatusOK, Body: []byte(`{"stuff": "here"}`)},
		}

		app := httpie.New(stdout, stderr, sender)

		err := app.Post(context.Background(), "http://example.com", []string{"a=1"}, httpie.Options{Send: true})
		test.Ok(t, err)

		test.Equal(t, len(sender.sent), 1)
		test.Equal(t, sender.sent[0].URL, "http://example.com")
		test.Equal(t, sender.sent[0].Method, command.MethodPost)

		test.Equal(t, stdout.String(), "200 OK\n{\"stuff\": \"here\"}\n")
		test.Equal(t, stderr.String(), "")
	})

	t.Run("error status", func(t *testing.T) {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}
		sender := &recorder{
			response: send.Response{Status: "404 Not Found", StatusCode: http.StatusNotFound, Body: []byte("nope")},
		}

		app := httpie.New(stdout, stderr, sender)

		err := app.Get(context.Background(), "http://example.com/missing", httpie.Options{Send: true})
		test.Ok(t, err)

		test.Equal(t, stdout.String(), "404 Not Found\nnope\n")
		test.True(t, strings.Contains(stderr.String(), "GET http://example.com/missing returned 404 Not Found"))
	})

	t.Run("sender error", func(t *testing.T) {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}
		sender := &recorder{err: errors.New("HTTP: connection refused")}

		app := httpie.New(stdout, stderr, sender)

		err := app.Get(context.Background(), "http://example.com", httpie.Options{Send: true})
		test.Err(t, err)
		test.Equal(t, err.Error(), "HTTP: connection refused")
		test.Equal(t, stdout.String(), "")
	})

	t.Run("never sent when invalid", func(t *testing.T) {
		sender := &recorder{}
		app := httpie.New(&bytes.Buffer{}, &bytes.Buffer{}, sender)

		err := app.Post(context.Background(), "http://example.com", []string{"a=1", "foo"}, httpie.Options{Send: true})
		test.Err(t, err)
		test.Equal(t, len(sender.sent), 0)
	})

	t.Run("no sender", func(t *testing.T) {
		app := httpie.New(&bytes.Buffer{}, &bytes.Buffer{}, nil)

		err := app.Get(context.Background(), "http://example.com", httpie.Options{Send: true})
		test.Err(t, err)
		test.Equal(t, err.Error(), "no sender configured")
	})
}

func TestSendHTTP(t *testing.T) {
	testHandler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"method": %q}`, r.Method)
	}

	server := httptest.NewServer(http.HandlerFunc(testHandler))
	defer server.Close()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	app := httpie.New(stdout, stderr, send.New(server.Client()))

	options := httpie.Options{
		Send:    true,
		Timeout: 1 * time.Second,
	}

	err := app.Post(context.Background(), server.URL, []string{"a=1"}, options)
	test.Ok(t, err)

	want := `200 OK
{"method": "POST"}
`

	test.Diff(t, stdout.String(), want)
}

func TestUnknownSubcommand(t *testing.T) {
	tests := []struct {
		name   string   // Name of the test case
		errMsg string   // Expected error message
		args   []string // Leftover args
	}{
		{
			name:   "unknown",
			args:   []string{"delete", "http://example.com"},
			errMsg: `unknown subcommand "delete", expected one of (get, post), see --help for usage`,
		},
		{
			name:   "uppercase",
			args:   []string{"GET"},
			errMsg: `unknown subcommand "GET", expected one of (get, post), see --help for usage`,
		},
		{
			name:   "missing",
			args:   nil,
			errMsg: "missing subcommand, expected one of (get, post), see --help for usage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := httpie.UnknownSubcommand(tt.args)
			test.Err(t, err)
			test.Equal(t, err.Error(), tt.errMsg)
			test.True(t, errors.Is(err, httpie.ErrUnknownSubcommand))
		})
	}
}

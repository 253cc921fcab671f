// Package command implements the validated model of a single httpie invocation, built
// from the raw command line tokens.
package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"go.followtheprocess.codes/httpie/internal/syntax"
)

// Method is the HTTP method a [Command] will use, each one has it's own subcommand.
type Method int

const (
	MethodGet  Method = iota // GET
	MethodPost               // POST
)

// String returns the HTTP method as it would appear on the wire.
func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// MarshalText implements [encoding.TextMarshaler] for a [Method].
func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Command is a fully validated request, ready to be shown or sent.
//
// It may only be constructed with [Get] or [Post], either of which guarantees
// the URL is absolute and every body token was a valid key=value pair.
type Command struct {
	// The HTTP method, determined by the subcommand
	Method Method `json:"method"`

	// The URL exactly as given, validated but not normalised
	URL string `json:"url"`

	// Body fields in the order they were given, only ever set for POST
	Body []syntax.KeyValue `json:"body,omitempty"`
}

// Get returns a GET [Command] for rawURL.
func Get(rawURL string) (Command, error) {
	url, err := syntax.ValidateURL(rawURL)
	if err != nil {
		return Command{}, err
	}

	return Command{Method: MethodGet, URL: url}, nil
}

// Post returns a POST [Command] for rawURL, each of tokens must be a key=value
// pair and will become a field in the JSON body.
func Post(rawURL string, tokens []string) (Command, error) {
	url, err := syntax.ValidateURL(rawURL)
	if err != nil {
		return Command{}, err
	}

	body, err := syntax.ParseKeyValues(tokens)
	if err != nil {
		return Command{}, err
	}

	return Command{Method: MethodPost, URL: url, Body: body}, nil
}

// BodyJSON returns the body as a JSON object, fields are written in the order
// they were given on the command line.
//
// Should a key be given more than once, it stays where it first appeared but takes
// the last value. Keys are compared once encoded, so two keys that only differ in
// invalid UTF-8 (which encodes as U+FFFD) count as the same key. A command with
// no body returns nil.
func (c Command) BodyJSON() ([]byte, error) {
	if len(c.Body) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(c.Body))
	values := make(map[string][]byte, len(c.Body))
	for _, pair := range c.Body {
		k, err := json.Marshal(pair.Key)
		if err != nil {
			return nil, fmt.Errorf("could not encode key %q: %w", pair.Key, err)
		}

		v, err := json.Marshal(pair.Value)
		if err != nil {
			return nil, fmt.Errorf("could not encode value for key %q: %w", pair.Key, err)
		}

		if _, seen := values[string(k)]; !seen {
			keys = append(keys, string(k))
		}

		values[string(k)] = v
	}

	buf := &bytes.Buffer{}
	buf.WriteByte('{')

	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		buf.WriteString(key)
		buf.WriteByte(':')
		buf.Write(values[key])
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// String implements [fmt.Stringer] for a [Command].
//
// The format mirrors a request in a .http file, the request line followed by
// the JSON body (if there is one) after a blank line.
func (c Command) String() string {
	builder := &strings.Builder{}

	fmt.Fprintf(builder, "%s %s\n", c.Method, c.URL)

	body, err := c.BodyJSON()
	if err != nil {
		fmt.Fprintf(builder, "\n<bad body: %v>\n", err)
		return builder.String()
	}

	if body != nil {
		fmt.Fprintf(builder, "\n%s\n", body)
	}

	return builder.String()
}

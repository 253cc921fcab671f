// Package send dispatches a validated [command.Command] over HTTP.
//
// The rest of httpie only ever sees the [Sender] interface so that everything up to
// this point can be tested without touching the network.
package send

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.followtheprocess.codes/httpie/internal/command"
)

// Sender sends a [command.Command] and returns the [Response].
type Sender interface {
	Send(ctx context.Context, cmd command.Command) (Response, error)
}

// Doer performs a single HTTP round trip, a [*http.Client] is a Doer.
type Doer interface {
	Do(request *http.Request) (*http.Response, error)
}

// Response is the bits of a HTTP response httpie cares about.
type Response struct {
	Status     string // e.g. "200 OK"
	Body       []byte // The raw response body
	StatusCode int    // e.g. 200
}

// HTTP is a [Sender] that issues real HTTP requests through a [Doer].
type HTTP struct {
	client Doer
}

// New returns a new [HTTP] sender using client, if client is nil then
// [http.DefaultClient] is used.
func New(client Doer) HTTP {
	if client == nil {
		client = http.DefaultClient
	}

	return HTTP{client: client}
}

// Send implements [Sender] for [HTTP].
func (h HTTP) Send(ctx context.Context, cmd command.Command) (Response, error) {
	body, err := cmd.BodyJSON()
	if err != nil {
		return Response{}, err
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	request, err := http.NewRequestWithContext(ctx, cmd.Method.String(), cmd.URL, reader)
	if err != nil {
		return Response{}, fmt.Errorf("could not build request: %w", err)
	}

	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := h.client.Do(request)
	if err != nil {
		return Response{}, fmt.Errorf("HTTP: %w", err)
	}

	if response == nil {
		return Response{}, errors.New("nil response")
	}

	defer response.Body.Close()

	contents, err := io.ReadAll(response.Body)
	if err != nil {
		return Response{}, fmt.Errorf("could not read response body: %w", err)
	}

	return Response{
		Status:     response.Status,
		StatusCode: response.StatusCode,
		Body:       contents,
	}, nil
}

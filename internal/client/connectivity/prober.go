package connectivity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/tailorkeeper/internal/common"
)

var ErrUnexpectedPing = errors.New("unexpected ping response")

// HTTPProber calls the server's liveness endpoint. Only a 200 response with
// body {"message":"pong"} counts as reachable.
type HTTPProber struct {
	url    string
	client *http.Client
}

func NewHTTPProber(url string, client *http.Client) *HTTPProber {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProber{url: url, client: client}
}

func (p *HTTPProber) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnexpectedPing, resp.StatusCode)
	}

	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1024)).Decode(&body); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedPing, err)
	}
	if body.Message != common.PingMessage {
		return fmt.Errorf("%w: message %q", ErrUnexpectedPing, body.Message)
	}
	return nil
}

package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const remoteBodyLimit int64 = 64 << 10

// RemoteProber queries a peer temperature service over HTTP. The peer
// responds with {"temperature": <celsius>, "timestamp": ..., "unit": ...}.
type RemoteProber struct {
	url    string
	client *http.Client
}

// NewRemoteProber constructs a RemoteProber with the given URL and timeout.
func NewRemoteProber(url string, timeout time.Duration) (*RemoteProber, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("probe url must not be empty")
	}
	if timeout <= 0 {
		return nil, errors.New("timeout must be greater than zero")
	}

	return &RemoteProber{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Probe implements Prober.
func (p *RemoteProber) Probe(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("query remote probe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var payload struct {
		Temperature *float64 `json:"temperature"`
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, remoteBodyLimit))
	if err != nil {
		return 0, fmt.Errorf("read probe response: %w", err)
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("decode probe response: %w", err)
	}
	if payload.Temperature == nil {
		return 0, errors.New("probe response missing temperature")
	}

	return *payload.Temperature, nil
}

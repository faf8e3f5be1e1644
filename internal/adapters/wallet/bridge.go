// Package wallet talks to an external wallet bridge that owns the keys.
// The bridge reports the connected account and signs transaction bytes;
// no key material ever reaches this process.
package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"villa_dnft/internal/adapters/observability"
)

var ErrRejected = errors.New("wallet: signature rejected")

type Bridge struct {
	base string
	hc   *http.Client
}

func New(base string) (*Bridge, error) {
	if strings.TrimSpace(base) == "" {
		return nil, fmt.Errorf("wallet bridge url is required")
	}
	return &Bridge{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 60 * time.Second}, // signing may wait on the user
	}, nil
}

// CurrentAccount returns ok=false when no wallet is connected.
func (b *Bridge) CurrentAccount(ctx context.Context) (string, bool, error) {
	var out struct {
		Address string `json:"address"`
	}
	status, err := b.do(ctx, http.MethodGet, "/account", nil, &out)
	if status == http.StatusNotFound || status == http.StatusNoContent {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	addr := strings.TrimSpace(out.Address)
	return addr, addr != "", nil
}

// Sign returns the serialized signature for base64 txBytes.
func (b *Bridge) Sign(ctx context.Context, address, txBytes string) (string, error) {
	in := map[string]string{"address": address, "tx_bytes": txBytes}
	var out struct {
		Signature string `json:"signature"`
	}
	status, err := b.do(ctx, http.MethodPost, "/sign", in, &out)
	if status == http.StatusForbidden || status == http.StatusConflict {
		return "", ErrRejected
	}
	if err != nil {
		return "", err
	}
	if out.Signature == "" {
		return "", fmt.Errorf("wallet: empty signature")
	}
	return out.Signature, nil
}

func (b *Bridge) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.base+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := b.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("wallet", path, 0, time.Since(start))
		return 0, err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("wallet", path, resp.StatusCode, time.Since(start))

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.StatusCode, json.NewDecoder(resp.Body).Decode(out)
	case http.StatusNoContent:
		return resp.StatusCode, nil
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, fmt.Errorf("wallet bridge %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
}

// internal/adapters/sui/client.go
package sui

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"villa_dnft/internal/adapters/observability"
	"villa_dnft/internal/domain"
)

const (
	pageLimit = 50
	maxPages  = 40
)

type Client struct {
	url    string
	hc     *http.Client
	rl     *rate.Limiter
	cb     *gobreaker.CircuitBreaker
	nextID atomic.Uint64

	signer    domain.Signer
	gasBudget uint64
}

type Option func(*Client)

// WithSigner enables Execute; without a signer the client is query-only.
func WithSigner(s domain.Signer) Option { return func(c *Client) { c.signer = s } }

func WithGasBudget(mist uint64) Option { return func(c *Client) { c.gasBudget = mist } }

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

func New(url string, rps int, opts ...Option) (*Client, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if rps <= 0 {
		rps = 5
	}
	c := &Client{
		url:       url,
		hc:        &http.Client{Timeout: 20 * time.Second},
		rl:        rate.NewLimiter(rate.Limit(rps), rps),
		gasBudget: 50_000_000,
	}
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sui-rpc",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// node-side rejections mean the node is up
		IsSuccessful: func(err error) bool {
			var re *RPCError
			return err == nil || errors.As(err, &re) || errors.Is(err, context.Canceled)
		},
	})
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// ---- Query collaborator ----

type ownedObjectsPage struct {
	Data        []map[string]any `json:"data"`
	NextCursor  *string          `json:"nextCursor"`
	HasNextPage bool             `json:"hasNextPage"`
}

// ListOwnedObjects pages through suix_getOwnedObjects for owner, filtered to structType.
func (c *Client) ListOwnedObjects(ctx context.Context, owner, structType string) ([]map[string]any, error) {
	query := map[string]any{
		"filter":  map[string]any{"StructType": structType},
		"options": map[string]any{"showType": true, "showContent": true, "showOwner": true},
	}
	var (
		out    []map[string]any
		cursor *string
	)
	for page := 0; page < maxPages; page++ {
		var res ownedObjectsPage
		if err := c.call(ctx, "suix_getOwnedObjects", []any{owner, query, cursor, pageLimit}, &res, true); err != nil {
			return nil, err
		}
		out = append(out, res.Data...)
		if !res.HasNextPage || res.NextCursor == nil {
			return out, nil
		}
		cursor = res.NextCursor
	}
	return out, fmt.Errorf("owned objects for %s exceed %d pages", owner, maxPages)
}

// ---- Execution collaborator ----

var ErrNoSigner = errors.New("sui: no signer configured")

type txBytesResult struct {
	TxBytes string `json:"txBytes"`
}

type executeResult struct {
	Digest  string `json:"digest"`
	Effects struct {
		Status struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"status"`
	} `json:"effects"`
	ObjectChanges []struct {
		Type       string `json:"type"`
		ObjectType string `json:"objectType"`
		ObjectID   string `json:"objectId"`
	} `json:"objectChanges"`
}

// createdVilla returns the first VillaNFT the transaction created.
func (r executeResult) createdVilla() string {
	for _, ch := range r.ObjectChanges {
		if ch.Type == "created" && strings.HasSuffix(ch.ObjectType, "::"+domain.ModuleName+"::"+domain.VillaStruct) {
			return ch.ObjectID
		}
	}
	return ""
}

// Execute asks the node to assemble call for sender, has the signer sign the
// bytes and submits them. It does not retry once the signed bytes are sent.
func (c *Client) Execute(ctx context.Context, sender string, call domain.MoveCall) (domain.ExecutionResult, error) {
	if c.signer == nil {
		return domain.ExecutionResult{}, ErrNoSigner
	}
	args, err := EncodeArgs(call.Arguments)
	if err != nil {
		return domain.ExecutionResult{}, err
	}

	var tx txBytesResult
	params := []any{sender, call.Package, call.Module, call.Function, []string{}, args, nil, strconv.FormatUint(c.gasBudget, 10)}
	if err := c.call(ctx, "unsafe_moveCall", params, &tx, true); err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("prepare %s: %w", call.Target(), err)
	}

	sig, err := c.signer.Sign(ctx, sender, tx.TxBytes)
	if err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("sign: %w", err)
	}

	var res executeResult
	opts := map[string]any{"showEffects": true, "showObjectChanges": true}
	if err := c.call(ctx, "sui_executeTransactionBlock", []any{tx.TxBytes, []string{sig}, opts, "WaitForLocalExecution"}, &res, false); err != nil {
		return domain.ExecutionResult{}, err
	}
	out := domain.ExecutionResult{Digest: res.Digest, Status: res.Effects.Status.Status, VillaID: res.createdVilla()}
	if out.Status != "success" {
		return out, fmt.Errorf("effects status %q: %s", out.Status, res.Effects.Status.Error)
	}
	return out, nil
}

// EncodeArgs renders positional arguments as Sui JSON values: u64 as decimal
// strings, Option<u64> as a zero- or one-element array.
func EncodeArgs(in []domain.Arg) ([]any, error) {
	out := make([]any, 0, len(in))
	for i, a := range in {
		switch v := a.(type) {
		case domain.Object:
			out = append(out, string(v))
		case domain.Address:
			out = append(out, string(v))
		case domain.String:
			out = append(out, string(v))
		case domain.U8:
			out = append(out, uint8(v))
		case domain.U64:
			out = append(out, strconv.FormatUint(uint64(v), 10))
		case domain.Bool:
			out = append(out, bool(v))
		case domain.StringVector:
			out = append(out, append([]string{}, v...))
		case domain.OptionU64:
			if v.Value == nil {
				out = append(out, []string{})
			} else {
				out = append(out, []string{strconv.FormatUint(*v.Value, 10)})
			}
		default:
			return nil, fmt.Errorf("argument %d: unsupported kind %T", i, a)
		}
	}
	return out, nil
}

// ---- Internals ----

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return fmt.Sprintf("sui rpc %d: %s", e.Code, e.Message) }

func (c *Client) call(ctx context.Context, method string, params []any, out any, retry bool) error {
	start := time.Now()
	status := 0
	_, err := c.cb.Execute(func() (interface{}, error) {
		var e error
		status, e = c.post(ctx, method, params, out, retry)
		return nil, e
	})
	observability.ObserveExternal("sui", method, status, time.Since(start))
	return err
}

// post sends one JSON-RPC request with client-side rate limiting. When retry
// is set it retries on 429 and transient 5xx, honoring Retry-After.
func (c *Client) post(ctx context.Context, method string, params []any, out any, retry bool) (int, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return 0, err
	}
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params})
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}
	attempts := 1
	if retry {
		attempts = 4
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return 0, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "villa-dnft/1.0")

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			lastErr = err
			if i < attempts-1 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			return 0, lastErr
		}

		switch resp.StatusCode {
		case http.StatusOK:
			var rr rpcResponse
			err := json.NewDecoder(resp.Body).Decode(&rr)
			resp.Body.Close()
			if err != nil {
				return resp.StatusCode, fmt.Errorf("decode %s response: %w", method, err)
			}
			if rr.Error != nil {
				return resp.StatusCode, rr.Error
			}
			if out != nil && len(rr.Result) > 0 {
				if err := json.Unmarshal(rr.Result, out); err != nil {
					return resp.StatusCode, fmt.Errorf("decode %s result: %w", method, err)
				}
			}
			return resp.StatusCode, nil

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < attempts-1 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return resp.StatusCode, ctx.Err()
			}
			return resp.StatusCode, lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return resp.StatusCode, fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}
	return 0, lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}

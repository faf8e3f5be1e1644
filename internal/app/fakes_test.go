package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"villa_dnft/internal/domain"
)

// ---- fakes ----

type fakeChain struct {
	mu      sync.Mutex
	calls   int
	types   []string
	recs    []map[string]any
	err     error
	entered chan struct{} // signalled on each call when set
	release chan struct{} // calls block until closed when set
}

func (f *fakeChain) ListOwnedObjects(ctx context.Context, owner, structType string) ([]map[string]any, error) {
	f.mu.Lock()
	f.calls++
	f.types = append(f.types, structType)
	recs, err := f.recs, f.err
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return recs, err
}

func (f *fakeChain) set(recs []map[string]any, err error) {
	f.mu.Lock()
	f.recs, f.err = recs, err
	f.mu.Unlock()
}

func (f *fakeChain) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeCache stores JSON like the redis adapter does.
type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

type fakeExecutor struct {
	mu     sync.Mutex
	calls  []domain.MoveCall
	sender string
	res    domain.ExecutionResult
	err    error
}

func (f *fakeExecutor) Execute(ctx context.Context, sender string, call domain.MoveCall) (domain.ExecutionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	f.sender = sender
	return f.res, f.err
}

type fakeAccounts struct {
	addr string
	err  error
}

func (f fakeAccounts) CurrentAccount(ctx context.Context) (string, bool, error) {
	return f.addr, f.addr != "", f.err
}

type fakeEvents struct {
	mu      sync.Mutex
	events  map[string]domain.Event
	order   []string
	failAll bool
}

var errStorage = errors.New("storage down")

func (f *fakeEvents) InsertEvent(ctx context.Context, e domain.Event) error {
	if f.failAll {
		return errStorage
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.events == nil {
		f.events = map[string]domain.Event{}
	}
	f.events[e.ID] = e
	f.order = append(f.order, e.ID)
	return nil
}

func (f *fakeEvents) UpdateEventStatus(ctx context.Context, id string, st domain.EventStatus, digest, villaID string) error {
	if f.failAll {
		return errStorage
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Status = st
	if digest != "" {
		e.TxDigest = digest
	}
	if e.VillaID == "" {
		e.VillaID = villaID
	}
	f.events[id] = e
	return nil
}

func (f *fakeEvents) ListEvents(ctx context.Context, villaID string, limit int) ([]domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Event{}
	for i := len(f.order) - 1; i >= 0 && len(out) < limit; i-- {
		if e := f.events[f.order[i]]; e.VillaID == villaID {
			out = append(out, e)
		}
	}
	return out, nil
}

// villaRecord is one suix_getOwnedObjects entry as the RPC returns it.
func villaRecord(id, name string, score any) map[string]any {
	return map[string]any{
		"data": map[string]any{
			"objectId": id,
			"type":     "0xpkg::villa_dnft::VillaNFT",
			"owner":    map[string]any{"AddressOwner": "0xa11ce"},
			"content": map[string]any{
				"dataType": "moveObject",
				"fields": map[string]any{
					"id":                     map[string]any{"id": id},
					"name":                   name,
					"condition_score":        score,
					"occupied":               false,
					"undergoing_maintenance": true,
					"renovated_at_ms":        "1700000000000",
					"tags":                   []any{"pool", "sea"},
				},
			},
		},
	}
}

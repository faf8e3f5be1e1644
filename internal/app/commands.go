package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"villa_dnft/internal/adapters/observability"
	"villa_dnft/internal/domain"
)

// Receipt is returned for every submission that reached the executor.
type Receipt struct {
	EventID string          `json:"event_id"`
	Sender  string          `json:"sender"`
	Call    domain.MoveCall `json:"call"`
	Digest  string          `json:"digest"`
	Status  string          `json:"status"`
	VillaID string          `json:"villa_id,omitempty"`
}

type CommandService struct {
	builder  *Builder
	exec     domain.Executor
	accounts domain.AccountProvider
	events   domain.EventRepository
	refresh  *RefreshService
	now      func() time.Time
}

// NewCommandService wires the submission workflow. accounts, events and
// refresh may be nil.
func NewCommandService(b *Builder, x domain.Executor, a domain.AccountProvider, ev domain.EventRepository, r *RefreshService) *CommandService {
	return &CommandService{builder: b, exec: x, accounts: a, events: ev, refresh: r, now: time.Now}
}

// Preview builds op without sending anything.
func (s *CommandService) Preview(ctx context.Context, op Operation, sender string) (domain.MoveCall, error) {
	if _, ok := op.(MintVilla); ok {
		sender = s.resolveSender(ctx, sender)
	}
	return s.builder.Build(op, sender)
}

// Submit builds op, records a pending event, executes it and records the
// outcome. Builder errors return before any network call. Execution errors
// are wrapped with domain.ErrExecutionFailed and are not retried.
func (s *CommandService) Submit(ctx context.Context, op Operation, sender string) (Receipt, error) {
	sender = s.resolveSender(ctx, sender)
	if sender == "" {
		return Receipt{}, domain.ErrNoAccount
	}
	call, err := s.builder.Build(op, sender)
	if err != nil {
		return Receipt{}, err
	}
	if s.exec == nil {
		return Receipt{}, fmt.Errorf("%w: no executor configured", domain.ErrExecutionFailed)
	}

	ev := domain.Event{
		ID:          uuid.NewString(),
		VillaID:     op.targetVilla(),
		Kind:        op.eventKind(),
		Description: describe(op),
		Status:      domain.StatusPending,
		Initiator:   sender,
		Metadata:    metadata(op),
		CreatedAt:   s.now().UTC(),
	}
	ev.UpdatedAt = ev.CreatedAt
	s.recordEvent(ctx, ev)

	res, err := s.exec.Execute(ctx, sender, call)
	if err != nil {
		err = fmt.Errorf("%w: %s: %v", domain.ErrExecutionFailed, call.Target(), err)
		log.Error().Err(err).Str("op", op.opName()).Str("sender", sender).Str("event", ev.ID).Msg("transaction failed")
		observability.ObserveSubmit(op.opName(), string(domain.StatusFailed))
		s.updateEvent(ctx, ev.ID, domain.StatusFailed, res)
		return Receipt{EventID: ev.ID, Sender: sender, Call: call, Digest: res.Digest, Status: string(domain.StatusFailed)}, err
	}

	observability.ObserveSubmit(op.opName(), string(domain.StatusSuccess))
	s.updateEvent(ctx, ev.ID, domain.StatusSuccess, res)
	log.Info().Str("op", op.opName()).Str("sender", sender).Str("digest", res.Digest).Msg("transaction executed")

	if s.refresh != nil {
		s.refresh.Refresh(ctx, sender)
	}
	villa := ev.VillaID
	if villa == "" {
		villa = res.VillaID
	}
	return Receipt{EventID: ev.ID, Sender: sender, Call: call, Digest: res.Digest, Status: string(domain.StatusSuccess), VillaID: villa}, nil
}

// Events lists the recorded log for one villa, newest first.
func (s *CommandService) Events(ctx context.Context, villaID string, limit int) ([]domain.Event, error) {
	if s.events == nil {
		return []domain.Event{}, nil
	}
	if strings.TrimSpace(villaID) == "" {
		return nil, domain.ErrInvalidIdentity
	}
	if limit <= 0 {
		limit = 50
	}
	return s.events.ListEvents(ctx, villaID, limit)
}

// resolveSender prefers the explicit sender, then the connected wallet account.
func (s *CommandService) resolveSender(ctx context.Context, sender string) string {
	if sender = strings.TrimSpace(sender); sender != "" || s.accounts == nil {
		return sender
	}
	addr, ok, err := s.accounts.CurrentAccount(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("wallet account lookup failed")
		return ""
	}
	if !ok {
		return ""
	}
	return addr
}

// event log is best-effort; a storage failure never blocks a submission
func (s *CommandService) recordEvent(ctx context.Context, ev domain.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.InsertEvent(ctx, ev); err != nil {
		log.Error().Err(err).Str("event", ev.ID).Msg("insert event failed")
	}
}

// updateEvent records the outcome. A mint learns its villa ID only here.
func (s *CommandService) updateEvent(ctx context.Context, id string, st domain.EventStatus, res domain.ExecutionResult) {
	if s.events == nil {
		return
	}
	if err := s.events.UpdateEventStatus(ctx, id, st, res.Digest, res.VillaID); err != nil {
		log.Error().Err(err).Str("event", id).Msg("update event failed")
	}
}

func describe(op Operation) string {
	switch o := op.(type) {
	case MintVilla:
		return fmt.Sprintf("Villa %q minted", o.Name)
	case RecordInspection:
		return fmt.Sprintf("Property inspection recorded - condition score %d", o.ConditionScore)
	case SetMaintenance:
		if o.Active {
			return "Maintenance started"
		}
		return "Maintenance completed"
	case SetOccupancy:
		if o.Occupied {
			return "Villa marked occupied"
		}
		return "Villa marked vacant"
	}
	return op.opName()
}

func metadata(op Operation) map[string]any {
	switch o := op.(type) {
	case MintVilla:
		return map[string]any{
			"name":            o.Name,
			"condition_score": o.ConditionScore,
			"occupied":        o.Occupied,
			"evidence_uri":    o.EvidenceURI,
			"tags":            ParseTags(o.Tags),
			"recipient":       o.Recipient,
		}
	case RecordInspection:
		return map[string]any{
			"condition_score": o.ConditionScore,
			"evidence_uri":    o.EvidenceURI,
			"tags":            ParseTags(o.Tags),
		}
	case SetMaintenance:
		m := map[string]any{"active": o.Active}
		if ts := strings.TrimSpace(o.RenovatedAtMs); ts != "" {
			m["renovated_at_ms"] = ts
		}
		return m
	case SetOccupancy:
		return map[string]any{"occupied": o.Occupied}
	}
	return nil
}

package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"villa_dnft/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func valJSON(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) InsertEvent(ctx context.Context, e domain.Event) error {
	meta, err := valJSON(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal event metadata: %w", err)
	}
	_, err = r.db.ExecContext(ctx, insertEventSQL,
		e.ID,
		valStr(e.VillaID),
		string(e.Kind),
		e.Description,
		valStr(e.TxDigest),
		string(e.Status),
		e.Initiator,
		meta,
		e.CreatedAt,
		e.UpdatedAt,
	)
	return err
}

func (r *Repo) UpdateEventStatus(ctx context.Context, id string, status domain.EventStatus, digest, villaID string) error {
	res, err := r.db.ExecContext(ctx, updateEventStatusSQL, string(status), digest, villaID, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) ListEvents(ctx context.Context, villaID string, limit int) ([]domain.Event, error) {
	rows, err := r.db.QueryContext(ctx, listEventsSQL, villaID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Event{}
	for rows.Next() {
		var (
			e             domain.Event
			villa, digest sql.NullString
			kind, status  string
			meta          sql.RawBytes
		)
		if err := rows.Scan(
			&e.ID,
			&villa,
			&kind,
			&e.Description,
			&digest,
			&status,
			&e.Initiator,
			&meta,
			&e.CreatedAt,
			&e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		e.Kind = domain.EventKind(kind)
		e.Status = domain.EventStatus(status)
		if villa.Valid {
			e.VillaID = villa.String
		}
		if digest.Valid {
			e.TxDigest = digest.String
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &e.Metadata)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

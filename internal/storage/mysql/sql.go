package mysql

const insertEventSQL = `
INSERT INTO villa_events
  (id, villa_id, kind, description, tx_digest, status, initiator, metadata, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// digest is kept when the update carries none (failed before submission).
// villa_id is only filled for mints, which are logged before the object exists.
const updateEventStatusSQL = `
UPDATE villa_events
SET status     = ?,
    tx_digest  = COALESCE(NULLIF(?, ''), tx_digest),
    villa_id   = COALESCE(villa_id, NULLIF(?, '')),
    updated_at = CURRENT_TIMESTAMP(3)
WHERE id = ?
`

// Newest first; aligns with index (villa_id, created_at).
const listEventsSQL = `
SELECT id, villa_id, kind, description, tx_digest, status, initiator, metadata, created_at, updated_at
FROM villa_events
WHERE villa_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`

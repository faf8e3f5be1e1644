package domain

import "time"

type EventKind string

const (
	EventMint        EventKind = "MintVilla"
	EventInspection  EventKind = "InspectionUpdate"
	EventMaintenance EventKind = "MaintenanceStatusUpdate"
	EventOccupancy   EventKind = "OccupancyUpdate"
)

type EventStatus string

const (
	StatusPending EventStatus = "pending"
	StatusSuccess EventStatus = "success"
	StatusFailed  EventStatus = "failed"
)

// Event is one submitted transaction as recorded by this service.
type Event struct {
	ID          string         `json:"id"`
	VillaID     string         `json:"villa_id,omitempty"` // empty for a mint until it lands
	Kind        EventKind      `json:"event"`
	Description string         `json:"description"`
	TxDigest    string         `json:"tx_digest,omitempty"`
	Status      EventStatus    `json:"status"`
	Initiator   string         `json:"initiator"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ExecutionResult is what the execution collaborator reports back. VillaID is
// the VillaNFT object a mint created, empty otherwise.
type ExecutionResult struct {
	Digest  string `json:"digest"`
	Status  string `json:"status"`
	VillaID string `json:"villa_id,omitempty"`
}

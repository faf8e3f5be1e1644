package app

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"villa_dnft/internal/adapters/observability"
	"villa_dnft/internal/domain"
)

const (
	fnMint        = "mint_villa_entry"
	fnInspection  = "set_inspection"
	fnMaintenance = "set_maintenance_status"
	fnOccupancy   = "set_occupied"
)

// Operation is one of MintVilla, RecordInspection, SetMaintenance, SetOccupancy.
type Operation interface {
	opName() string
	eventKind() domain.EventKind
	targetVilla() string
}

// MintVilla creates a new villa. Tags is comma-separated form input;
// a blank Recipient means the sender.
type MintVilla struct {
	Name           string
	Description    string
	ImageURL       string
	ConditionScore int
	Occupied       bool
	EvidenceURI    string
	GalleryURI     string
	Tags           string
	Recipient      string
}

type RecordInspection struct {
	VillaID        string
	ConditionScore int
	EvidenceURI    string
	Tags           string
}

// SetMaintenance carries the renovation timestamp as raw input:
// blank means "no renovation recorded", which is not the same as "0".
type SetMaintenance struct {
	VillaID       string
	Active        bool
	RenovatedAtMs string
}

type SetOccupancy struct {
	VillaID  string
	Occupied bool
}

func (MintVilla) opName() string        { return "mint" }
func (RecordInspection) opName() string { return "inspection" }
func (SetMaintenance) opName() string   { return "maintenance" }
func (SetOccupancy) opName() string     { return "occupancy" }

func (MintVilla) eventKind() domain.EventKind        { return domain.EventMint }
func (RecordInspection) eventKind() domain.EventKind { return domain.EventInspection }
func (SetMaintenance) eventKind() domain.EventKind   { return domain.EventMaintenance }
func (SetOccupancy) eventKind() domain.EventKind     { return domain.EventOccupancy }

func (MintVilla) targetVilla() string          { return "" }
func (o RecordInspection) targetVilla() string { return o.VillaID }
func (o SetMaintenance) targetVilla() string   { return o.VillaID }
func (o SetOccupancy) targetVilla() string     { return o.VillaID }

// OpName is the short operation name used in logs and metrics.
func OpName(op Operation) string { return op.opName() }

// Builder turns operations into call descriptions. It never touches the network.
type Builder struct {
	contract *domain.Contract
}

func NewBuilder(c *domain.Contract) *Builder {
	return &Builder{contract: c}
}

// Build validates op and assembles its arguments in entry-point order.
// sender is only consulted when a mint has no explicit recipient.
func (b *Builder) Build(op Operation, sender string) (domain.MoveCall, error) {
	if op == nil {
		observability.ObserveBuild("unknown", "rejected")
		return domain.MoveCall{}, fmt.Errorf("%w: nil operation", domain.ErrInvalidInput)
	}
	call, err := b.build(op, sender)
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	observability.ObserveBuild(op.opName(), result)
	return call, err
}

// Handles come first so an unconfigured deployment reports the missing
// authorization; the package id is checked once they are present.
func (b *Builder) build(op Operation, sender string) (domain.MoveCall, error) {
	if b.contract == nil {
		return domain.MoveCall{}, fmt.Errorf("%w: no contract handles", domain.ErrMissingAuthorization)
	}
	if err := handle("collection", b.contract.CollectionID); err != nil {
		return domain.MoveCall{}, err
	}
	if err := b.capability(op); err != nil {
		return domain.MoveCall{}, err
	}
	if !b.contract.Configured() {
		return domain.MoveCall{}, domain.ErrNotConfigured
	}

	switch o := op.(type) {
	case MintVilla:
		return b.mint(o, sender)
	case RecordInspection:
		return b.inspection(o)
	case SetMaintenance:
		return b.maintenance(o)
	case SetOccupancy:
		return b.occupancy(o)
	default:
		return domain.MoveCall{}, fmt.Errorf("%w: unsupported operation %T", domain.ErrInvalidInput, op)
	}
}

// capability checks the handle the op's entry point is gated on.
func (b *Builder) capability(op Operation) error {
	switch op.(type) {
	case MintVilla:
		return handle("minter capability", b.contract.MinterCapID)
	case RecordInspection, SetMaintenance, SetOccupancy:
		return handle("asset manager capability", b.contract.AssetCapID)
	}
	return nil
}

func (b *Builder) mint(o MintVilla, sender string) (domain.MoveCall, error) {
	if err := validText(o.Name, o.Description, o.ImageURL, o.EvidenceURI, o.GalleryURI, o.Tags); err != nil {
		return domain.MoveCall{}, err
	}
	score, err := conditionScore(o.ConditionScore)
	if err != nil {
		return domain.MoveCall{}, err
	}
	recipient := strings.TrimSpace(o.Recipient)
	if recipient == "" {
		recipient = strings.TrimSpace(sender)
	}
	if recipient == "" {
		return domain.MoveCall{}, fmt.Errorf("%w: recipient unset and no sender", domain.ErrNoAccount)
	}

	return b.call(fnMint,
		domain.Object(b.contract.CollectionID),
		domain.Object(b.contract.MinterCapID),
		domain.String(o.Name),
		domain.String(o.Description),
		domain.String(o.ImageURL),
		score,
		domain.Bool(o.Occupied),
		domain.String(o.EvidenceURI),
		domain.String(o.GalleryURI),
		domain.StringVector(ParseTags(o.Tags)),
		domain.Address(recipient),
		domain.Object(domain.ClockObjectID),
	), nil
}

func (b *Builder) inspection(o RecordInspection) (domain.MoveCall, error) {
	villa, err := b.managed(o.VillaID)
	if err != nil {
		return domain.MoveCall{}, err
	}
	score, err := conditionScore(o.ConditionScore)
	if err != nil {
		return domain.MoveCall{}, err
	}
	if err := validText(o.EvidenceURI, o.Tags); err != nil {
		return domain.MoveCall{}, err
	}
	return b.call(fnInspection,
		domain.Object(b.contract.CollectionID),
		villa,
		domain.Object(b.contract.AssetCapID),
		score,
		domain.String(o.EvidenceURI),
		domain.StringVector(ParseTags(o.Tags)),
		domain.Object(domain.ClockObjectID),
	), nil
}

func (b *Builder) maintenance(o SetMaintenance) (domain.MoveCall, error) {
	villa, err := b.managed(o.VillaID)
	if err != nil {
		return domain.MoveCall{}, err
	}
	renovated, err := optionalMillis(o.RenovatedAtMs)
	if err != nil {
		return domain.MoveCall{}, err
	}
	return b.call(fnMaintenance,
		domain.Object(b.contract.CollectionID),
		villa,
		domain.Object(b.contract.AssetCapID),
		domain.Bool(o.Active),
		renovated,
		domain.Object(domain.ClockObjectID),
	), nil
}

func (b *Builder) occupancy(o SetOccupancy) (domain.MoveCall, error) {
	villa, err := b.managed(o.VillaID)
	if err != nil {
		return domain.MoveCall{}, err
	}
	return b.call(fnOccupancy,
		domain.Object(b.contract.CollectionID),
		villa,
		domain.Object(b.contract.AssetCapID),
		domain.Bool(o.Occupied),
		domain.Object(domain.ClockObjectID),
	), nil
}

// managed resolves the target of an asset-manager operation.
func (b *Builder) managed(villaID string) (domain.Object, error) {
	id := strings.TrimSpace(villaID)
	if id == "" {
		return "", fmt.Errorf("%w: villa id is empty", domain.ErrInvalidIdentity)
	}
	return domain.Object(id), nil
}

func (b *Builder) call(fn string, args ...domain.Arg) domain.MoveCall {
	return domain.MoveCall{
		Package:   strings.TrimSpace(b.contract.PackageID),
		Module:    domain.ModuleName,
		Function:  fn,
		Arguments: args,
	}
}

func handle(name, h string) error {
	if domain.IsPlaceholder(h) {
		return fmt.Errorf("%w: %s handle not set", domain.ErrMissingAuthorization, name)
	}
	return nil
}

// Move strings must be UTF-8; JSON encoding would otherwise replace bad bytes.
func validText(fields ...string) error {
	for _, f := range fields {
		if !utf8.ValidString(f) {
			return fmt.Errorf("%w: text is not valid UTF-8: %q", domain.ErrInvalidInput, f)
		}
	}
	return nil
}

func conditionScore(v int) (domain.U8, error) {
	if v < 0 || v > domain.MaxConditionScore {
		return 0, fmt.Errorf("%w: condition score %d not in 0..%d", domain.ErrOutOfRange, v, domain.MaxConditionScore)
	}
	return domain.U8(v), nil
}

func optionalMillis(in string) (domain.OptionU64, error) {
	s := strings.TrimSpace(in)
	if s == "" {
		return domain.NoneU64(), nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return domain.OptionU64{}, fmt.Errorf("%w: renovated_at_ms %q is not a millisecond timestamp", domain.ErrInvalidInput, in)
	}
	return domain.SomeU64(n), nil
}

package app

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"villa_dnft/internal/domain"
)

/********** alias registries (single source of truth) **********/

// Paths are relative to the Move struct's field map; Move uses snake_case,
// some indexers re-emit camelCase.
var villaAliases = map[string][]string{
	"name":        {"name"},
	"description": {"description"},
	"image":       {"image_url", "imageUrl", "url"},
	"evidence":    {"evidence_uri", "evidenceUri"},
	"gallery":     {"gallery_uri", "galleryUri"},
	"score":       {"condition_score", "conditionScore"},
	"occupied":    {"occupied"},
	"maintenance": {"undergoing_maintenance", "under_maintenance", "underMaintenance"},
	"renovated":   {"renovated_at_ms", "renovatedAtMs", "last_renovated_ms"},
	"tags":        {"tags"},
}

// Where the field map and identity sit inside one getOwnedObjects entry.
var (
	fieldsPaths = []string{"data.content.fields", "content.fields", "fields"}
	idPaths     = []string{"data.objectId", "objectId", "data.content.fields.id.id", "fields.id.id", "id.id"}
	ownerPaths  = []string{"data.owner.AddressOwner", "owner.AddressOwner", "data.owner.ObjectOwner"}
)

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func firstStr(m map[string]any, paths ...string) string {
	for _, p := range paths {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

func firstMap(m map[string]any, paths ...string) map[string]any {
	for _, p := range paths {
		if obj, ok := lookupAny(m, p).(map[string]any); ok {
			return obj
		}
	}
	return nil
}

// firstInt64Flexible: int64 from several paths (float64/int/string).
// u64 values arrive as decimal strings over JSON-RPC.
func firstInt64Flexible(m map[string]any, paths ...string) *int64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			x := int64(v)
			return &x
		case int:
			x := int64(v)
			return &x
		case int64:
			x := v
			return &x
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return &n
			}
		}
	}
	return nil
}

// firstUint64Option reads a Move Option<u64>: null, a bare value, or {"vec": [v]}.
func firstUint64Option(m map[string]any, paths ...string) *uint64 {
	for _, k := range paths {
		v := lookupAny(m, k)
		if obj, ok := v.(map[string]any); ok {
			if vec, ok := obj["vec"].([]any); ok {
				if len(vec) == 0 {
					return nil
				}
				v = vec[0]
			}
		}
		switch t := v.(type) {
		case float64:
			if t >= 0 {
				x := uint64(t)
				return &x
			}
		case string:
			if n, err := strconv.ParseUint(strings.TrimSpace(t), 10, 64); err == nil {
				return &n
			}
		}
	}
	return nil
}

func firstBool(m map[string]any, paths ...string) bool {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case bool:
			return v
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return b
			}
		}
	}
	return false
}

// firstSliceStrings: accept []any with either strings or {url/src/name}.
func firstSliceStrings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		if raw, ok := lookupAny(m, k).([]any); ok {
			out := make([]string, 0, len(raw))
			for _, it := range raw {
				switch t := it.(type) {
				case string:
					if t != "" {
						out = append(out, t)
					}
				case map[string]any:
					if u, ok := t["url"].(string); ok && u != "" {
						out = append(out, u)
						continue
					}
					if n, ok := t["name"].(string); ok && n != "" {
						out = append(out, n)
					}
				}
			}
			return out
		}
	}
	return nil
}

/********** villa mapper **********/

// mapVilla maps one raw owned-object record. ok is false when the record has
// no field map at all (deleted or non-move objects).
func mapVilla(rec map[string]any) (domain.Villa, bool) {
	f := firstMap(rec, fieldsPaths...)
	if f == nil {
		return domain.Villa{}, false
	}
	id := firstStr(rec, idPaths...)

	v := domain.Villa{
		ID:               id,
		Name:             firstStr(f, villaAliases["name"]...),
		Description:      firstStr(f, villaAliases["description"]...),
		ImageURL:         firstStr(f, villaAliases["image"]...),
		EvidenceURI:      firstStr(f, villaAliases["evidence"]...),
		GalleryURI:       firstStr(f, villaAliases["gallery"]...),
		Occupied:         firstBool(f, villaAliases["occupied"]...),
		UnderMaintenance: firstBool(f, villaAliases["maintenance"]...),
		RenovatedAtMs:    firstUint64Option(f, villaAliases["renovated"]...),
		Tags:             firstSliceStrings(f, villaAliases["tags"]...),
		Owner:            firstStr(rec, ownerPaths...),
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}

	if s := firstInt64Flexible(f, villaAliases["score"]...); s != nil {
		score := *s
		if score < 0 || score > domain.MaxConditionScore {
			log.Warn().Str("villa", id).Int64("score", score).Msg("condition score out of range, clamped")
			if score < 0 {
				score = 0
			} else {
				score = domain.MaxConditionScore
			}
		}
		v.ConditionScore = uint8(score)
	}
	return v, true
}

func mapVillas(in []map[string]any) []domain.Villa {
	out := make([]domain.Villa, 0, len(in))
	for _, rec := range in {
		v, ok := mapVilla(rec)
		if !ok {
			log.Debug().Str("object", firstStr(rec, idPaths...)).Msg("skipping record without fields")
			continue
		}
		out = append(out, v)
	}
	return out
}

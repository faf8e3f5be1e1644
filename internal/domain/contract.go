package domain

import (
	"fmt"
	"strings"
)

const (
	ModuleName    = "villa_dnft"
	VillaStruct   = "VillaNFT"
	ClockObjectID = "0x6"
)

// Dashboard defaults; a handle still holding one of these was never configured.
const (
	PlaceholderPackageID    = "0xYOUR_PACKAGE_ID"
	PlaceholderCollectionID = "0xCOLLECTION_OBJECT_ID"
	PlaceholderMinterCapID  = "0xMINTER_CAP_OBJECT_ID"
	PlaceholderAssetCapID   = "0xASSET_MANAGER_CAP_OBJECT_ID"
)

// Contract holds the deployed package and the authorization handles that
// every call description references.
type Contract struct {
	PackageID    string
	CollectionID string
	MinterCapID  string
	AssetCapID   string
}

func DefaultContract() Contract {
	return Contract{
		PackageID:    PlaceholderPackageID,
		CollectionID: PlaceholderCollectionID,
		MinterCapID:  PlaceholderMinterCapID,
		AssetCapID:   PlaceholderAssetCapID,
	}
}

// IsPlaceholder reports whether h is blank or still a template value.
// Object ids are hex, so an underscore marks a template.
func IsPlaceholder(h string) bool {
	h = strings.TrimSpace(h)
	if h == "" {
		return true
	}
	switch h {
	case PlaceholderPackageID, PlaceholderCollectionID, PlaceholderMinterCapID, PlaceholderAssetCapID:
		return true
	}
	return strings.Contains(h, "_")
}

func (c *Contract) Configured() bool {
	return c != nil && !IsPlaceholder(c.PackageID)
}

// VillaType is the struct-type filter used when listing owned villas.
func (c *Contract) VillaType() string {
	return fmt.Sprintf("%s::%s::%s", strings.TrimSpace(c.PackageID), ModuleName, VillaStruct)
}

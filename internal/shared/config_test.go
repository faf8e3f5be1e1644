package shared_test

import (
	"testing"
	"time"

	"villa_dnft/internal/domain"
	"villa_dnft/internal/shared"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PACKAGE_ID", "")
	c := shared.Load()
	if c.HTTPAddr != ":8080" || c.Workers != 8 || c.CacheTTL != 5*time.Minute {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.Contract.Configured() {
		t.Fatalf("blank package must not count as configured")
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("PACKAGE_ID", "0xabc")
	t.Setenv("COLLECTION_ID", "0xc01")
	t.Setenv("REFRESH_OWNERS", "0x1, 0x2 ,,")
	t.Setenv("CACHE_TTL_SECONDS", "30")

	c := shared.Load()
	if c.Contract.PackageID != "0xabc" || c.Contract.CollectionID != "0xc01" {
		t.Fatalf("contract not read from env: %+v", c.Contract)
	}
	if c.Contract.MinterCapID != domain.PlaceholderMinterCapID {
		t.Fatalf("unset cap should keep placeholder, got %q", c.Contract.MinterCapID)
	}
	if len(c.Owners) != 2 || c.Owners[1] != "0x2" {
		t.Fatalf("owners: %v", c.Owners)
	}
	if c.CacheTTL != 30*time.Second {
		t.Fatalf("ttl: %v", c.CacheTTL)
	}
}

//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"villa_dnft/internal/domain"
	mysqlrepo "villa_dnft/internal/storage/mysql"
)

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Skipf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/migrations)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=villa",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/villa?parseTime=true&multiStatements=true&charset=utf8mb4&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRepo_MySQL_EventLifecycle(t *testing.T) {
	mustEnv(t, "MIGRATIONS_DIR")
	db := startMySQL(t)
	applyMigrations(t, db)

	repo := mysqlrepo.New(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	older := domain.Event{
		ID: "00000000-0000-0000-0000-000000000001", VillaID: "0xvilla", Kind: domain.EventOccupancy,
		Description: "Villa marked occupied", Status: domain.StatusSuccess, TxDigest: "D0",
		Initiator: "0xops", CreatedAt: now.Add(-time.Hour), UpdatedAt: now.Add(-time.Hour),
	}
	newer := domain.Event{
		ID: "00000000-0000-0000-0000-000000000002", VillaID: "0xvilla", Kind: domain.EventInspection,
		Description: "Property inspection recorded", Status: domain.StatusPending,
		Initiator: "0xops", Metadata: map[string]any{"condition_score": 85},
		CreatedAt: now, UpdatedAt: now,
	}
	for _, e := range []domain.Event{older, newer} {
		if err := repo.InsertEvent(ctx, e); err != nil {
			t.Fatalf("InsertEvent: %v", err)
		}
	}

	if err := repo.UpdateEventStatus(ctx, newer.ID, domain.StatusSuccess, "D1", "0xother"); err != nil {
		t.Fatalf("UpdateEventStatus: %v", err)
	}
	if err := repo.UpdateEventStatus(ctx, "missing", domain.StatusFailed, "", ""); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}

	got, err := repo.ListEvents(ctx, "0xvilla", 10)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 2 || got[0].ID != newer.ID {
		t.Fatalf("expected newest first, got %+v", got)
	}
	if got[0].Status != domain.StatusSuccess || got[0].TxDigest != "D1" {
		t.Fatalf("status not updated: %+v", got[0])
	}
	if score, _ := got[0].Metadata["condition_score"].(float64); score != 85 {
		t.Fatalf("metadata not round-tripped: %+v", got[0].Metadata)
	}
}

func TestRepo_MySQL_MintGetsVillaOnUpdate(t *testing.T) {
	mustEnv(t, "MIGRATIONS_DIR")
	db := startMySQL(t)
	applyMigrations(t, db)

	repo := mysqlrepo.New(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	mint := domain.Event{
		ID: "00000000-0000-0000-0000-000000000003", Kind: domain.EventMint,
		Description: "Villa minted", Status: domain.StatusPending,
		Initiator: "0xops", CreatedAt: now, UpdatedAt: now,
	}
	if err := repo.InsertEvent(ctx, mint); err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}
	if err := repo.UpdateEventStatus(ctx, mint.ID, domain.StatusSuccess, "D2", "0xnew"); err != nil {
		t.Fatalf("UpdateEventStatus: %v", err)
	}

	got, err := repo.ListEvents(ctx, "0xnew", 10)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 1 || got[0].ID != mint.ID || got[0].VillaID != "0xnew" || got[0].TxDigest != "D2" {
		t.Fatalf("mint not attached to created villa: %+v", got)
	}
}

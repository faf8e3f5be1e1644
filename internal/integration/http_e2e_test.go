//go:build integration || !unit

package integration

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	server "villa_dnft/internal/adapters/http_server"
	redisad "villa_dnft/internal/adapters/redis"
	"villa_dnft/internal/adapters/sui"
	"villa_dnft/internal/adapters/wallet"
	"villa_dnft/internal/app"
	"villa_dnft/internal/domain"
	mysqlrepo "villa_dnft/internal/storage/mysql"
)

// ---------- helpers ----------

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

// ---------- fake full node + wallet bridge ----------

type fakeNode struct {
	mu      sync.Mutex
	methods []string
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     uint64 `json:"id"`
		Method string `json:"method"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	n.mu.Lock()
	n.methods = append(n.methods, req.Method)
	n.mu.Unlock()

	var result any
	switch req.Method {
	case "unsafe_moveCall":
		result = map[string]any{"txBytes": "AAAB"}
	case "sui_executeTransactionBlock":
		result = map[string]any{"digest": "E2EDIGEST", "effects": map[string]any{"status": map[string]any{"status": "success"}}}
	case "suix_getOwnedObjects":
		result = map[string]any{
			"hasNextPage": false,
			"data": []any{map[string]any{"data": map[string]any{
				"objectId": "0xv1",
				"content": map[string]any{"fields": map[string]any{
					"name": "Villa Sol", "condition_score": 58, "occupied": true, "tags": []any{"pool"},
				}},
			}}},
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
}

func walletBridge(addr string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/account", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"address": addr})
	})
	mux.HandleFunc("/sign", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"signature": "SIG"})
	})
	return mux
}

// ---------- the test ----------

func TestHTTP_EndToEnd_OccupancyUpdate(t *testing.T) {
	mustEnv(t, "MIGRATIONS_DIR")

	// Start isolated MySQL container
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env:        []string{"MYSQL_ROOT_PASSWORD=root", "MYSQL_DATABASE=villa"},
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
	applyMigrations(t, db)

	mr := miniredis.RunT(t)

	node := &fakeNode{}
	nodeSrv := httptest.NewServer(node)
	defer nodeSrv.Close()
	bridgeSrv := httptest.NewServer(walletBridge("0xa11ce"))
	defer bridgeSrv.Close()

	// wire like cmd/api
	br, err := wallet.New(bridgeSrv.URL)
	if err != nil {
		t.Fatal(err)
	}
	chain, err := sui.New(nodeSrv.URL, 100, sui.WithSigner(br))
	if err != nil {
		t.Fatal(err)
	}
	contract := domain.Contract{PackageID: "0xpkg", CollectionID: "0xcol", MinterCapID: "0xmint", AssetCapID: "0xcap"}
	refresh := app.NewRefreshService(chain, redisad.New(mr.Addr(), "", 0), &contract, time.Minute)
	cmds := app.NewCommandService(app.NewBuilder(&contract), chain, br, mysqlrepo.New(db), refresh)

	srv := server.New([]string{"*"})
	srv.MountHandlers(&server.Handlers{C: cmds, R: refresh, Accounts: br})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	// submit without a wallet header: the bridge account acts
	res, err := http.Post(ts.URL+"/v1/villas/0xv1/occupancy", "application/json", strings.NewReader(`{"occupied":false}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusAccepted {
		t.Fatalf("status %d", res.StatusCode)
	}

	node.mu.Lock()
	got := strings.Join(node.methods, ",")
	node.mu.Unlock()
	if got != "unsafe_moveCall,sui_executeTransactionBlock,suix_getOwnedObjects" {
		t.Fatalf("unexpected rpc sequence: %s", got)
	}

	// event log is persisted in MySQL
	res, err = http.Get(ts.URL + "/v1/villas/0xv1/events")
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	var events struct {
		Events []domain.Event `json:"events"`
	}
	if err := json.NewDecoder(res.Body).Decode(&events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	res.Body.Close()
	if len(events.Events) != 1 {
		t.Fatalf("expected 1 event, got %+v", events.Events)
	}
	ev := events.Events[0]
	if ev.Status != domain.StatusSuccess || ev.TxDigest != "E2EDIGEST" || ev.Initiator != "0xa11ce" || ev.Kind != domain.EventOccupancy {
		t.Fatalf("unexpected event: %+v", ev)
	}

	// the post-submit refresh is served from the snapshot cache
	res, err = http.Get(ts.URL + "/v1/villas?cached=true&owner=0xa11ce")
	if err != nil {
		t.Fatalf("GET villas: %v", err)
	}
	defer res.Body.Close()
	var body struct {
		Villas []struct {
			ID    string `json:"id"`
			Label string `json:"condition_label"`
		} `json:"villas"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Villas) != 1 || body.Villas[0].Label != "Fair" {
		t.Fatalf("unexpected villas: %+v", body.Villas)
	}
	if !mr.Exists("villas:0xpkg:0xa11ce") {
		t.Fatal("snapshot not written to redis")
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/ndvstudio/atelier/internal/db"
	"github.com/ndvstudio/atelier/internal/migrations"
	"github.com/ndvstudio/atelier/internal/pricing"
)

func newTestServer(t *testing.T) *server {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "server-test.db")
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	if err := migrations.Up(database, "../../migrations"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	return &server{db: database, log: zap.NewNop()}
}

func seedTestCatalog(t *testing.T, srv *server) {
	t.Helper()

	catalogs := map[string][]pricing.RateEntry{
		catalogMetal: {
			{Key: "gold-18k", Name: "Gold 18k", Rate: 60},
			{Key: "silver-925", Name: "Silver 925", Rate: 1.2},
		},
		catalogStone: {
			{Key: "ruby", Name: "Ruby", Rate: 25},
			{Key: "opal", Name: "Opal", Rate: 12.5},
		},
		catalogChain: {
			{Key: "cable", Name: "Cable chain", Rate: 2},
		},
	}
	for catalog, entries := range catalogs {
		if err := srv.replaceRateEntries(catalog, entries); err != nil {
			t.Fatalf("seed %s catalog: %v", catalog, err)
		}
	}
}

func saveTestMapping(t *testing.T, srv *server, m mapping) {
	t.Helper()

	if err := srv.saveMapping(m); err != nil {
		t.Fatalf("save mapping %s: %v", m.FormID, err)
	}
}

// doJSON runs a JSON request through the full router and decodes the
// response body into out when it is non-nil.
func doJSON(t *testing.T, srv *server, method, path string, payload, out any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode request payload: %v", err)
		}
		body = bytes.NewBuffer(encoded)
	} else {
		body = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	if out != nil && rec.Code < http.StatusBadRequest {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode response body %q: %v", rec.Body.String(), err)
		}
	}
	return rec
}

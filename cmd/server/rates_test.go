package main

import (
	"net/http"
	"testing"

	"github.com/ndvstudio/atelier/internal/pricing"
)

func TestHandleRatesPut_ReplacesCatalog(t *testing.T) {
	srv := newTestServer(t)

	first := []pricing.RateEntry{
		{Key: "gold-18k", Name: "Gold 18k", Rate: 60},
		{Key: "silver-925", Name: "Silver 925", Rate: 1.2},
	}
	rec := doJSON(t, srv, "PUT", "/api/admin/rates/metal", first, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d, body = %s", rec.Code, rec.Body.String())
	}

	replacement := []pricing.RateEntry{{Key: "gold-14k", Name: "Gold 14k", Rate: 45}}
	rec = doJSON(t, srv, "PUT", "/api/admin/rates/metal", replacement, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("replace status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var got []pricing.RateEntry
	rec = doJSON(t, srv, "GET", "/api/admin/rates/metal", nil, &got)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(got) != 1 || got[0].Key != "gold-14k" || got[0].Rate != 45 {
		t.Fatalf("unexpected catalog after replace: %+v", got)
	}
}

func TestHandleRatesPut_Validation(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name    string
		entries []pricing.RateEntry
	}{
		{"missing key", []pricing.RateEntry{{Name: "Gold", Rate: 60}}},
		{"missing name", []pricing.RateEntry{{Key: "gold", Rate: 60}}},
		{"negative rate", []pricing.RateEntry{{Key: "gold", Name: "Gold", Rate: -1}}},
		{"duplicate key", []pricing.RateEntry{
			{Key: "gold", Name: "Gold", Rate: 60},
			{Key: "gold", Name: "Gold again", Rate: 61},
		}},
	}

	for _, tc := range cases {
		rec := doJSON(t, srv, "PUT", "/api/admin/rates/metal", tc.entries, nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: status = %d, want 422", tc.name, rec.Code)
		}
	}
}

func TestHandleRates_UnknownCatalog(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, "GET", "/api/admin/rates/gems", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestLoadCatalogReadsAllThreeLists(t *testing.T) {
	srv := newTestServer(t)
	seedTestCatalog(t, srv)

	catalog, err := srv.loadCatalog()
	if err != nil {
		t.Fatalf("loadCatalog returned error: %v", err)
	}
	if len(catalog.Metals) != 2 || len(catalog.Stones) != 2 || len(catalog.Chains) != 1 {
		t.Fatalf("unexpected catalog sizes: %d metals, %d stones, %d chains",
			len(catalog.Metals), len(catalog.Stones), len(catalog.Chains))
	}
}

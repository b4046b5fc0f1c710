package main

import (
	"net/http"
	"testing"

	"github.com/ndvstudio/atelier/internal/pricing"
)

func TestHandleMappingSave_RoundTrip(t *testing.T) {
	srv := newTestServer(t)
	seedTestCatalog(t, srv)

	rec := doJSON(t, srv, "PUT", "/api/admin/mappings/pendant-builder", pendantTestMapping(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var got mapping
	rec = doJSON(t, srv, "GET", "/api/admin/mappings/pendant-builder", nil, &got)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", rec.Code, rec.Body.String())
	}

	if got.FormID != "pendant-builder" || got.Mode != pricing.ModePendant {
		t.Fatalf("unexpected mapping: %+v", got)
	}
	if got.Pendant == nil || got.Pendant.MetalWeight != 5 || got.Pendant.MarkupType != pricing.MarkupFixed {
		t.Fatalf("pendant config did not round-trip: %+v", got.Pendant)
	}
	if len(got.Pendant.AllowedMetals) != 1 || got.Pendant.AllowedMetals[0] != "gold-18k" {
		t.Fatalf("allowed metals did not round-trip: %+v", got.Pendant.AllowedMetals)
	}
}

func TestHandleMappingSave_RejectsUnknownMode(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, "PUT", "/api/admin/mappings/bad", map[string]any{
		"product_id":       1,
		"calculation_mode": "magic",
	}, nil)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestHandleMappingSave_RejectsUnknownOperator(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, "PUT", "/api/admin/mappings/bad", map[string]any{
		"product_id":       1,
		"calculation_mode": "rules",
		"rules": []map[string]any{
			{"field_id": "metal", "match_value": "gold", "operator": "subtract", "amount": 5},
		},
	}, nil)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestHandleMappingSave_DropsRulesWithoutFieldID(t *testing.T) {
	srv := newTestServer(t)

	var saved mapping
	rec := doJSON(t, srv, "PUT", "/api/admin/mappings/ring", map[string]any{
		"product_id":       1,
		"calculation_mode": "rules",
		"base_price":       20,
		"rules": []map[string]any{
			{"field_id": "", "match_value": "*", "operator": "add", "amount": 99},
			{"field_id": "metal", "match_value": "gold", "operator": "add", "amount": 15},
		},
	}, &saved)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(saved.Rules) != 1 || saved.Rules[0].FieldID != "metal" {
		t.Fatalf("expected the blank-field rule to be dropped: %+v", saved.Rules)
	}
}

func TestHandleMappingSave_RejectsUnknownCatalogKey(t *testing.T) {
	srv := newTestServer(t)
	seedTestCatalog(t, srv)

	m := pendantTestMapping()
	m.Pendant.AllowedMetals = []string{"gold-18k", "platinium"}

	rec := doJSON(t, srv, "PUT", "/api/admin/mappings/pendant-builder", m, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 for typo'd catalog key", rec.Code)
	}
}

func TestHandleMappingSave_RequiresPendantConfigForPendantMode(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, "PUT", "/api/admin/mappings/pendant-builder", map[string]any{
		"product_id":       1,
		"calculation_mode": "pendant",
	}, nil)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestHandleMappingSave_RequiresPositiveProductID(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, "PUT", "/api/admin/mappings/ring", map[string]any{
		"product_id":       0,
		"calculation_mode": "rules",
	}, nil)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestHandleMappingDelete(t *testing.T) {
	srv := newTestServer(t)
	saveTestMapping(t, srv, rulesTestMapping())

	rec := doJSON(t, srv, "DELETE", "/api/admin/mappings/ring-configurator", nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}

	rec = doJSON(t, srv, "DELETE", "/api/admin/mappings/ring-configurator", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}

func TestListMappingsOrderedByFormID(t *testing.T) {
	srv := newTestServer(t)
	saveTestMapping(t, srv, mapping{FormID: "zeta", ProductID: 1, Mode: pricing.ModeDirect})
	saveTestMapping(t, srv, mapping{FormID: "alpha", ProductID: 2, Mode: pricing.ModeDirect})

	var mappings []mapping
	rec := doJSON(t, srv, "GET", "/api/admin/mappings", nil, &mappings)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(mappings) != 2 || mappings[0].FormID != "alpha" || mappings[1].FormID != "zeta" {
		t.Fatalf("unexpected mappings order: %+v", mappings)
	}
}

package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ndvstudio/atelier/internal/pricing"
)

var errMappingNotFound = errors.New("mapping not found")

// fieldLabel pairs a form field ID with the clean label shown on cart and
// order records.
type fieldLabel struct {
	FieldID string `json:"field_id"`
	Label   string `json:"label"`
}

// mapping is the per-item configuration: which product a form prices, which
// engine prices it, and the engine's parameters. Rules and pendant
// parameters are stored as JSON documents and decoded into typed structs on
// load; anything that fails the enum parsers is rejected at save time, so
// evaluation never sees an operator or mode it does not know.
type mapping struct {
	FormID       string                 `json:"form_id"`
	ProductID    int64                  `json:"product_id"`
	Mode         pricing.Mode           `json:"calculation_mode"`
	BasePrice    float64                `json:"base_price"`
	PriceFieldID string                 `json:"price_field_id"`
	Rules        []pricing.Rule         `json:"rules"`
	Pendant      *pricing.PendantConfig `json:"pendant,omitempty"`
	FieldLabels  []fieldLabel           `json:"field_labels"`
}

func (s *server) handleMappingsList(w http.ResponseWriter, r *http.Request) {
	mappings, err := s.listMappings()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load mappings")
		return
	}
	s.writeJSON(w, http.StatusOK, mappings)
}

func (s *server) handleMappingGet(w http.ResponseWriter, r *http.Request) {
	m, err := s.getMapping(chi.URLParam(r, "formID"))
	if errors.Is(err, errMappingNotFound) {
		s.writeError(w, http.StatusNotFound, "mapping not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load mapping")
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *server) handleMappingSave(w http.ResponseWriter, r *http.Request) {
	var m mapping
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid mapping payload")
		return
	}
	m.FormID = strings.TrimSpace(chi.URLParam(r, "formID"))

	if err := s.validateMapping(&m); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.saveMapping(m); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to save mapping")
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *server) handleMappingDelete(w http.ResponseWriter, r *http.Request) {
	result, err := s.db.Exec(`DELETE FROM mappings WHERE form_id = ?`, chi.URLParam(r, "formID"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to delete mapping")
		return
	}
	affected, err := result.RowsAffected()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to delete mapping")
		return
	}
	if affected == 0 {
		s.writeError(w, http.StatusNotFound, "mapping not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// validateMapping enforces at save time what the engines tolerate at
// evaluation time: unknown modes, operators, and markup types are rejected
// here instead of silently no-op'ing later. Rules without a field ID are
// dropped, matching how the original admin screen saved them.
func (s *server) validateMapping(m *mapping) error {
	if m.FormID == "" {
		return fmt.Errorf("form_id is required")
	}
	if m.ProductID <= 0 {
		return fmt.Errorf("product_id must be positive")
	}

	mode, err := pricing.ParseMode(string(m.Mode))
	if err != nil {
		return err
	}
	m.Mode = mode

	kept := make([]pricing.Rule, 0, len(m.Rules))
	for _, rule := range m.Rules {
		if strings.TrimSpace(rule.FieldID) == "" {
			continue
		}
		op, err := pricing.ParseOperator(string(rule.Op))
		if err != nil {
			return fmt.Errorf("rule for field %q: %w", rule.FieldID, err)
		}
		rule.Op = op
		kept = append(kept, rule)
	}
	m.Rules = kept

	if m.Mode == pricing.ModePendant {
		if m.Pendant == nil {
			return fmt.Errorf("pendant configuration is required for pendant mode")
		}
		if err := s.validatePendantConfig(m.Pendant); err != nil {
			return err
		}
	}

	for _, fl := range m.FieldLabels {
		if strings.TrimSpace(fl.FieldID) == "" || strings.TrimSpace(fl.Label) == "" {
			return fmt.Errorf("field labels need both field_id and label")
		}
	}

	return nil
}

// validatePendantConfig checks the markup enum and verifies every
// allowed-key list against the stored catalogs. A typo'd key would
// otherwise price at zero at calculation time and silently under-charge.
func (s *server) validatePendantConfig(p *pricing.PendantConfig) error {
	if p.MarkupType == "" {
		p.MarkupType = pricing.MarkupFixed
	}
	mt, err := pricing.ParseMarkupType(string(p.MarkupType))
	if err != nil {
		return err
	}
	p.MarkupType = mt

	if p.MaxStones < 0 {
		return fmt.Errorf("max_stones must not be negative")
	}
	for _, length := range p.ChainLengths {
		if length <= 0 {
			return fmt.Errorf("chain lengths must be positive")
		}
	}

	checks := []struct {
		catalog string
		keys    []string
	}{
		{catalogMetal, p.AllowedMetals},
		{catalogStone, p.AllowedStones},
		{catalogChain, p.AllowedChains},
	}
	for _, check := range checks {
		known, err := s.catalogKeys(check.catalog)
		if err != nil {
			return fmt.Errorf("load %s keys: %w", check.catalog, err)
		}
		for _, key := range check.keys {
			if !known[key] {
				return fmt.Errorf("unknown %s key %q", check.catalog, key)
			}
		}
	}

	return nil
}

func (s *server) getMapping(formID string) (mapping, error) {
	row := s.db.QueryRow(`
		SELECT form_id, product_id, calculation_mode, base_price, price_field_id,
		       rules_json, COALESCE(pendant_json, ''), field_labels_json
		FROM mappings
		WHERE form_id = ?
	`, formID)

	m, err := scanMapping(row)
	if errors.Is(err, sql.ErrNoRows) {
		return mapping{}, errMappingNotFound
	}
	if err != nil {
		return mapping{}, fmt.Errorf("query mapping: %w", err)
	}
	return m, nil
}

func (s *server) listMappings() ([]mapping, error) {
	rows, err := s.db.Query(`
		SELECT form_id, product_id, calculation_mode, base_price, price_field_id,
		       rules_json, COALESCE(pendant_json, ''), field_labels_json
		FROM mappings
		ORDER BY form_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query mappings: %w", err)
	}
	defer rows.Close()

	mappings := make([]mapping, 0)
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mappings: %w", err)
	}
	return mappings, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMapping(row rowScanner) (mapping, error) {
	var m mapping
	var mode, rulesJSON, pendantJSON, labelsJSON string

	if err := row.Scan(&m.FormID, &m.ProductID, &mode, &m.BasePrice, &m.PriceFieldID,
		&rulesJSON, &pendantJSON, &labelsJSON); err != nil {
		return mapping{}, err
	}

	m.Mode = pricing.Mode(mode)
	if err := json.Unmarshal([]byte(rulesJSON), &m.Rules); err != nil {
		return mapping{}, fmt.Errorf("decode rules for %s: %w", m.FormID, err)
	}
	if pendantJSON != "" {
		m.Pendant = &pricing.PendantConfig{}
		if err := json.Unmarshal([]byte(pendantJSON), m.Pendant); err != nil {
			return mapping{}, fmt.Errorf("decode pendant config for %s: %w", m.FormID, err)
		}
	}
	if err := json.Unmarshal([]byte(labelsJSON), &m.FieldLabels); err != nil {
		return mapping{}, fmt.Errorf("decode field labels for %s: %w", m.FormID, err)
	}
	return m, nil
}

func (s *server) saveMapping(m mapping) error {
	rulesJSON, err := json.Marshal(m.Rules)
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	labelsJSON, err := json.Marshal(m.FieldLabels)
	if err != nil {
		return fmt.Errorf("encode field labels: %w", err)
	}

	var pendantJSON sql.NullString
	if m.Pendant != nil {
		encoded, err := json.Marshal(m.Pendant)
		if err != nil {
			return fmt.Errorf("encode pendant config: %w", err)
		}
		pendantJSON = sql.NullString{String: string(encoded), Valid: true}
	}

	_, err = s.db.Exec(`
		INSERT INTO mappings (form_id, product_id, calculation_mode, base_price, price_field_id, rules_json, pendant_json, field_labels_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(form_id) DO UPDATE SET
			product_id = excluded.product_id,
			calculation_mode = excluded.calculation_mode,
			base_price = excluded.base_price,
			price_field_id = excluded.price_field_id,
			rules_json = excluded.rules_json,
			pendant_json = excluded.pendant_json,
			field_labels_json = excluded.field_labels_json,
			updated_at = CURRENT_TIMESTAMP
	`, m.FormID, m.ProductID, string(m.Mode), m.BasePrice, m.PriceFieldID,
		string(rulesJSON), pendantJSON, string(labelsJSON))
	if err != nil {
		return fmt.Errorf("upsert mapping: %w", err)
	}
	return nil
}

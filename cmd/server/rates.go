package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ndvstudio/atelier/internal/pricing"
)

const (
	catalogMetal = "metal"
	catalogStone = "stone"
	catalogChain = "chain"
)

func validCatalog(name string) bool {
	return name == catalogMetal || name == catalogStone || name == catalogChain
}

func (s *server) handleRatesGet(w http.ResponseWriter, r *http.Request) {
	catalog := chi.URLParam(r, "catalog")
	if !validCatalog(catalog) {
		s.writeError(w, http.StatusNotFound, "unknown catalog")
		return
	}

	entries, err := s.listRateEntries(catalog)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load rates")
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}

// handleRatesPut replaces a catalog's entries wholesale, the way the
// original admin screen saved the whole rate table at once.
func (s *server) handleRatesPut(w http.ResponseWriter, r *http.Request) {
	catalog := chi.URLParam(r, "catalog")
	if !validCatalog(catalog) {
		s.writeError(w, http.StatusNotFound, "unknown catalog")
		return
	}

	var entries []pricing.RateEntry
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid rates payload")
		return
	}

	if err := validateRateEntries(entries); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.replaceRateEntries(catalog, entries); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to save rates")
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func validateRateEntries(entries []pricing.RateEntry) error {
	seen := make(map[string]bool, len(entries))
	for i := range entries {
		entries[i].Key = strings.TrimSpace(entries[i].Key)
		entries[i].Name = strings.TrimSpace(entries[i].Name)

		if entries[i].Key == "" {
			return fmt.Errorf("entry #%d: key is required", i)
		}
		if entries[i].Name == "" {
			return fmt.Errorf("entry %q: name is required", entries[i].Key)
		}
		if entries[i].Rate < 0 {
			return fmt.Errorf("entry %q: rate must not be negative", entries[i].Key)
		}
		if seen[entries[i].Key] {
			return fmt.Errorf("duplicate key %q", entries[i].Key)
		}
		seen[entries[i].Key] = true
	}
	return nil
}

func (s *server) listRateEntries(catalog string) ([]pricing.RateEntry, error) {
	rows, err := s.db.Query(`
		SELECT key, name, unit_rate
		FROM rate_entries
		WHERE catalog = ? AND active
		ORDER BY id
	`, catalog)
	if err != nil {
		return nil, fmt.Errorf("query %s rates: %w", catalog, err)
	}
	defer rows.Close()

	entries := make([]pricing.RateEntry, 0)
	for rows.Next() {
		var e pricing.RateEntry
		if err := rows.Scan(&e.Key, &e.Name, &e.Rate); err != nil {
			return nil, fmt.Errorf("scan %s rate: %w", catalog, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rates: %w", catalog, err)
	}
	return entries, nil
}

func (s *server) replaceRateEntries(catalog string, entries []pricing.RateEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin rates transaction: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM rate_entries WHERE catalog = ?`, catalog); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear %s rates: %w", catalog, err)
	}
	for _, e := range entries {
		if _, err := tx.Exec(`
			INSERT INTO rate_entries (catalog, key, name, unit_rate, active)
			VALUES (?, ?, ?, ?, TRUE)
		`, catalog, e.Key, e.Name, e.Rate); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert %s rate %q: %w", catalog, e.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rates transaction: %w", err)
	}
	return nil
}

// loadCatalog reads all three active rate lists for the pendant engine.
func (s *server) loadCatalog() (pricing.Catalog, error) {
	var catalog pricing.Catalog
	var err error

	if catalog.Metals, err = s.listRateEntries(catalogMetal); err != nil {
		return pricing.Catalog{}, err
	}
	if catalog.Stones, err = s.listRateEntries(catalogStone); err != nil {
		return pricing.Catalog{}, err
	}
	if catalog.Chains, err = s.listRateEntries(catalogChain); err != nil {
		return pricing.Catalog{}, err
	}
	return catalog, nil
}

// catalogKeys returns the set of active keys in one catalog, used to
// validate mapping references at save time.
func (s *server) catalogKeys(catalog string) (map[string]bool, error) {
	entries, err := s.listRateEntries(catalog)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]bool, len(entries))
	for _, e := range entries {
		keys[e.Key] = true
	}
	return keys, nil
}

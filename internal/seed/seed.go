package seed

import (
	"database/sql"
	"fmt"
)

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

type rateSeed struct {
	catalog string
	key     string
	name    string
	rate    float64
}

var defaultRates = []rateSeed{
	{"metal", "gold-18k", "Gold 18k", 60},
	{"metal", "silver-925", "Silver 925", 1.2},
	{"stone", "ruby", "Ruby", 25},
	{"stone", "opal", "Opal", 12.5},
	{"chain", "cable", "Cable chain", 2},
	{"chain", "rope", "Rope chain", 3.5},
}

// Run executes the startup seed in an idempotent way: default rate entries
// so a fresh install has something to price with, and a demo pendant
// mapping wired to them.
func Run(db *sql.DB) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := ensureRates(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureDemoMapping(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureRates(tx *sql.Tx, stats *Stats) error {
	for _, r := range defaultRates {
		var exists bool
		if err := tx.QueryRow(`
			SELECT EXISTS(SELECT 1 FROM rate_entries WHERE catalog = ? AND key = ? LIMIT 1)
		`, r.catalog, r.key).Scan(&exists); err != nil {
			return fmt.Errorf("check rate %s/%s existence: %w", r.catalog, r.key, err)
		}
		if exists {
			continue
		}

		if _, err := tx.Exec(`
			INSERT INTO rate_entries (catalog, key, name, unit_rate, active)
			VALUES (?, ?, ?, ?, TRUE)
		`, r.catalog, r.key, r.name, r.rate); err != nil {
			return fmt.Errorf("insert rate %s/%s: %w", r.catalog, r.key, err)
		}
		stats.Inserts++
	}
	return nil
}

func ensureDemoMapping(tx *sql.Tx, stats *Stats) error {
	const formID = "pendant-demo"

	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM mappings WHERE form_id = ? LIMIT 1)`, formID).Scan(&exists); err != nil {
		return fmt.Errorf("check demo mapping existence: %w", err)
	}
	if exists {
		return nil
	}

	pendantJSON := `{
		"metal_weight": 5,
		"allow_weight_override": false,
		"allowed_metals": ["gold-18k", "silver-925"],
		"allowed_stones": ["ruby", "opal"],
		"max_stones": 5,
		"allowed_chains": ["cable", "rope"],
		"chain_lengths": [40, 45, 50],
		"labor": 20,
		"markup": 25,
		"markup_type": "fixed"
	}`
	labelsJSON := `[
		{"field_id": "metal", "label": "Metal"},
		{"field_id": "stones", "label": "Stones"},
		{"field_id": "chain", "label": "Chain"}
	]`

	if _, err := tx.Exec(`
		INSERT INTO mappings (form_id, product_id, calculation_mode, base_price, price_field_id, rules_json, pendant_json, field_labels_json)
		VALUES (?, ?, 'pendant', 0, '', '[]', ?, ?)
	`, formID, 1, pendantJSON, labelsJSON); err != nil {
		return fmt.Errorf("insert demo mapping: %w", err)
	}
	stats.Inserts++
	return nil
}

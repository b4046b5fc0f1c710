package pricing

import (
	"fmt"
	"strings"
)

// MarkupType selects how the configured markup is applied to the subtotal.
type MarkupType string

const (
	// MarkupFixed adds the markup amount as-is.
	MarkupFixed MarkupType = "fixed"
	// MarkupPercent adds amount percent of the subtotal.
	MarkupPercent MarkupType = "percent"
)

// ParseMarkupType validates a stored markup type string.
func ParseMarkupType(s string) (MarkupType, error) {
	switch mt := MarkupType(s); mt {
	case MarkupFixed, MarkupPercent:
		return mt, nil
	}
	return "", fmt.Errorf("unknown markup type %q", s)
}

// RateEntry is one priced catalog item. The rate's unit depends on the
// catalog: per gram for metals, per stone for stones, per centimetre for
// chains.
type RateEntry struct {
	Key  string  `json:"key"`
	Name string  `json:"name"`
	Rate float64 `json:"rate"`
}

// Catalog holds the three shared rate lists referenced by pendant
// configurations. It is owned externally and passed by value into each
// calculation.
type Catalog struct {
	Metals []RateEntry
	Stones []RateEntry
	Chains []RateEntry
}

// lookup finds an entry by key, returning a zero entry when the key is
// unknown. Unknown keys price at zero with a blank name rather than
// failing the calculation.
func lookup(entries []RateEntry, key string) (RateEntry, bool) {
	for _, e := range entries {
		if e.Key == key {
			return e, true
		}
	}
	return RateEntry{}, false
}

// PendantConfig is the per-item parameter set for the pendant formula.
// The allowed-key lists filter the shared catalog down to what the item
// offers in its form; the engine itself trusts the submitted keys and
// resolves them directly against the catalog.
type PendantConfig struct {
	MetalWeight         float64    `json:"metal_weight"`
	AllowWeightOverride bool       `json:"allow_weight_override"`
	AllowedMetals       []string   `json:"allowed_metals"`
	AllowedStones       []string   `json:"allowed_stones"`
	MaxStones           int        `json:"max_stones"`
	AllowedChains       []string   `json:"allowed_chains"`
	ChainLengths        []float64  `json:"chain_lengths"`
	Labor               float64    `json:"labor"`
	Markup              float64    `json:"markup"`
	MarkupType          MarkupType `json:"markup_type"`
}

// StoneSelection is one chosen stone with its quantity.
type StoneSelection struct {
	Key      string `json:"stone_key"`
	Quantity int    `json:"quantity"`
}

// Selections is the customer's pendant input.
type Selections struct {
	MetalKey       string           `json:"metal_key"`
	Stones         []StoneSelection `json:"stones"`
	ChainKey       string           `json:"chain_key"`
	ChainLength    float64          `json:"chain_length"`
	WeightOverride float64          `json:"weight_override"`
}

// StoneLine is one priced stone row in the breakdown, in input order.
type StoneLine struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	UnitRate float64 `json:"unit_rate"`
	LineCost float64 `json:"line_cost"`
}

// Breakdown itemises the pendant cost components for display and order
// records. Component costs are rounded to two decimals.
type Breakdown struct {
	MetalCost  float64     `json:"metal_cost"`
	MetalName  string      `json:"metal_name"`
	StoneTotal float64     `json:"stone_total"`
	StoneLines []StoneLine `json:"stone_lines"`
	ChainCost  float64     `json:"chain_cost"`
	ChainName  string      `json:"chain_name"`
	Labor      float64     `json:"labor"`
	Markup     float64     `json:"markup"`
}

// PendantResult is the outcome of a pendant calculation.
type PendantResult struct {
	Price     float64
	Breakdown Breakdown
	Trace     []string
}

// EvaluatePendant computes a pendant price as
//
//	(weight × metal rate) + Σ(stone rate × qty) + (chain rate × length) + labor + markup
//
// Each component is independent: an unknown key or zero quantity degrades
// that component to zero cost without affecting the others, and the final
// total is rounded to two decimals and floored at zero.
func EvaluatePendant(cfg PendantConfig, catalog Catalog, sel Selections) PendantResult {
	var trace []string

	// Metal cost. The configured weight wins unless overrides are enabled
	// and the customer supplied a positive one.
	weight := cfg.MetalWeight
	if cfg.AllowWeightOverride && sel.WeightOverride > 0 {
		weight = sel.WeightOverride
	}

	metal, _ := lookup(catalog.Metals, sel.MetalKey)
	metalCost := weight * metal.Rate
	trace = append(trace, fmt.Sprintf("metal: %s (%s), weight=%vg, rate=%v/g, cost=%.2f",
		metal.Name, sel.MetalKey, weight, metal.Rate, metalCost))

	// Stone cost, one line per selection in input order.
	var stoneTotal float64
	stoneLines := make([]StoneLine, 0, len(sel.Stones))
	for _, s := range sel.Stones {
		if s.Key == "" || s.Quantity <= 0 {
			continue
		}
		entry, found := lookup(catalog.Stones, s.Key)
		name := entry.Name
		if !found {
			name = s.Key
		}
		lineCost := entry.Rate * float64(s.Quantity)
		stoneTotal += lineCost
		stoneLines = append(stoneLines, StoneLine{
			Name:     name,
			Quantity: s.Quantity,
			UnitRate: entry.Rate,
			LineCost: lineCost,
		})
		trace = append(trace, fmt.Sprintf("stone: %s x %d @ %v = %.2f", name, s.Quantity, entry.Rate, lineCost))
	}

	// Chain cost applies only with a real chain selection and a positive
	// length.
	var chainCost float64
	var chainName string
	chainKey := strings.TrimSpace(sel.ChainKey)
	if chainKey != "" && chainKey != "none" && sel.ChainLength > 0 {
		if entry, found := lookup(catalog.Chains, chainKey); found {
			chainName = entry.Name
			chainCost = entry.Rate * sel.ChainLength
		}
	}
	trace = append(trace, fmt.Sprintf("chain: %s (%s), length=%vcm, cost=%.2f",
		chainName, chainKey, sel.ChainLength, chainCost))

	trace = append(trace, fmt.Sprintf("labor: %.2f", cfg.Labor))

	subtotal := metalCost + stoneTotal + chainCost + cfg.Labor

	var markup float64
	if cfg.MarkupType == MarkupPercent {
		markup = subtotal * cfg.Markup / 100
	} else {
		markup = cfg.Markup
	}
	trace = append(trace, fmt.Sprintf("subtotal: %.2f, markup(%s): %.2f", subtotal, cfg.MarkupType, markup))

	total := ClampPrice(subtotal + markup)
	trace = append(trace, fmt.Sprintf("total: %.2f", total))

	return PendantResult{
		Price: total,
		Breakdown: Breakdown{
			MetalCost:  round2(metalCost),
			MetalName:  metal.Name,
			StoneTotal: round2(stoneTotal),
			StoneLines: stoneLines,
			ChainCost:  round2(chainCost),
			ChainName:  chainName,
			Labor:      round2(cfg.Labor),
			Markup:     round2(markup),
		},
		Trace: trace,
	}
}

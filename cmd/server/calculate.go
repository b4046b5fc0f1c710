package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ndvstudio/atelier/internal/pricing"
)

// calculateRequest is a configure-form submission. Values carries the
// rule-evaluator fields (scalars or checkbox lists), Selections the pendant
// choices, Price a caller-supplied price for direct-mode mappings.
type calculateRequest struct {
	FormID     string              `json:"form_id"`
	Values     map[string]any      `json:"values"`
	Selections *pricing.Selections `json:"selections"`
	Price      float64             `json:"price"`
}

type calculateResponse struct {
	Price     float64            `json:"price"`
	Mode      pricing.Mode       `json:"calculation_mode"`
	Trace     []string           `json:"trace,omitempty"`
	Breakdown *pricing.Breakdown `json:"breakdown,omitempty"`
}

func (s *server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid calculate payload")
		return
	}

	m, err := s.getMapping(req.FormID)
	if errors.Is(err, errMappingNotFound) {
		s.writeError(w, http.StatusNotFound, "form configuration not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load form configuration")
		return
	}

	resp, err := s.computePrice(m, req)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// computePrice dispatches to the engine the mapping's calculation mode
// selects. Direct mode bypasses both engines and trusts the submitted
// price, applying only the final rounding and floor.
func (s *server) computePrice(m mapping, req calculateRequest) (calculateResponse, error) {
	switch m.Mode {
	case pricing.ModeRules:
		result := pricing.EvaluateRules(
			pricing.RuleConfig{BasePrice: m.BasePrice, Rules: m.Rules},
			decodeFormValues(req.Values),
		)
		s.log.Debug("rule evaluation", zap.String("form_id", m.FormID), zap.Strings("trace", result.Trace))
		return calculateResponse{Price: result.Price, Mode: m.Mode, Trace: result.Trace}, nil

	case pricing.ModePendant:
		if m.Pendant == nil {
			return calculateResponse{}, fmt.Errorf("mapping has no pendant configuration")
		}
		catalog, err := s.loadCatalog()
		if err != nil {
			return calculateResponse{}, fmt.Errorf("load rate catalog: %w", err)
		}
		var sel pricing.Selections
		if req.Selections != nil {
			sel = *req.Selections
		}
		result := pricing.EvaluatePendant(*m.Pendant, catalog, sel)
		s.log.Debug("pendant evaluation", zap.String("form_id", m.FormID), zap.Strings("trace", result.Trace))
		return calculateResponse{Price: result.Price, Mode: m.Mode, Breakdown: &result.Breakdown, Trace: result.Trace}, nil

	case pricing.ModeDirect:
		// The price arrives precomputed, either in a designated form field
		// or in the request's price field.
		price := req.Price
		if m.PriceFieldID != "" {
			if v, ok := decodeFormValues(req.Values)[m.PriceFieldID]; ok && !v.IsEmpty() {
				price = v.Numeric()
			}
		}
		return calculateResponse{Price: pricing.ClampPrice(price), Mode: m.Mode}, nil
	}

	// Unreachable for stored mappings: modes are validated at save time.
	return calculateResponse{}, fmt.Errorf("unknown calculation mode %q", m.Mode)
}

// decodeFormValues turns loosely-typed JSON form data into the tagged
// scalar/multi values the rule evaluator matches against. Arrays become
// multi values, everything else a scalar; comma-joined strings split
// inside Scalar.
func decodeFormValues(raw map[string]any) pricing.FormValues {
	values := make(pricing.FormValues, len(raw))
	for field, v := range raw {
		switch tv := v.(type) {
		case []any:
			parts := make([]string, 0, len(tv))
			for _, item := range tv {
				parts = append(parts, stringify(item))
			}
			values[field] = pricing.Multi(parts)
		default:
			values[field] = pricing.Scalar(stringify(v))
		}
	}
	return values
}

func stringify(v any) string {
	switch tv := v.(type) {
	case string:
		return tv
	case float64:
		return strconv.FormatFloat(tv, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(tv)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", tv)
	}
}

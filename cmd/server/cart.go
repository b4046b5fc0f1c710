package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ndvstudio/atelier/internal/pricing"
)

type cartAddRequest struct {
	calculateRequest
	Quantity int `json:"quantity"`
}

// metaEntry is one labelled selection carried on a cart line for display
// and order records.
type metaEntry struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type cartItem struct {
	ID        string      `json:"id"`
	ProductID int64       `json:"product_id"`
	Quantity  int         `json:"quantity"`
	UnitPrice float64     `json:"unit_price"`
	FormID    string      `json:"form_id"`
	Metadata  []metaEntry `json:"metadata"`
	CreatedAt string      `json:"created_at"`
}

// handleCartAdd prices the submission server-side and creates a cart line
// carrying the computed price plus labelled selections. The client's price
// is only trusted for direct-mode mappings; engine-priced items are always
// recomputed here.
func (s *server) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	var req cartAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid cart payload")
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
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

	resp, err := s.computePrice(m, req.calculateRequest)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	// A non-positive result means a broken configuration, not a free
	// product.
	if resp.Price <= 0 {
		s.writeError(w, http.StatusUnprocessableEntity, "calculated price must be positive")
		return
	}

	item := cartItem{
		ID:        uuid.NewString(),
		ProductID: m.ProductID,
		Quantity:  req.Quantity,
		UnitPrice: resp.Price,
		FormID:    m.FormID,
		Metadata:  buildMetadata(m.FieldLabels, decodeFormValues(req.Values)),
	}

	if err := s.insertCartItem(item); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to add to cart")
		return
	}

	s.log.Info("cart item added",
		zap.String("id", item.ID),
		zap.String("form_id", item.FormID),
		zap.Float64("unit_price", item.UnitPrice),
	)
	s.writeJSON(w, http.StatusCreated, item)
}

func (s *server) handleCartList(w http.ResponseWriter, r *http.Request) {
	items, err := s.listCartItems()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}
	s.writeJSON(w, http.StatusOK, items)
}

// buildMetadata resolves submitted values to their configured display
// labels, in the mapping's label order. Unlabelled fields and blank values
// are left off the order record.
func buildMetadata(labels []fieldLabel, values pricing.FormValues) []metaEntry {
	metadata := make([]metaEntry, 0, len(labels))
	for _, fl := range labels {
		value, ok := values[fl.FieldID]
		if !ok || value.IsEmpty() {
			continue
		}
		metadata = append(metadata, metaEntry{Label: fl.Label, Value: value.Joined()})
	}
	return metadata
}

func (s *server) insertCartItem(item cartItem) error {
	metadataJSON, err := json.Marshal(item.Metadata)
	if err != nil {
		return fmt.Errorf("encode cart metadata: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO cart_items (id, product_id, quantity, unit_price, form_id, metadata_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`, item.ID, item.ProductID, item.Quantity, item.UnitPrice, item.FormID, string(metadataJSON))
	if err != nil {
		return fmt.Errorf("insert cart item: %w", err)
	}
	return nil
}

func (s *server) listCartItems() ([]cartItem, error) {
	rows, err := s.db.Query(`
		SELECT id, product_id, quantity, unit_price, form_id, metadata_json, created_at
		FROM cart_items
		ORDER BY datetime(created_at) DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	items := make([]cartItem, 0)
	for rows.Next() {
		var item cartItem
		var metadataJSON string
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Quantity, &item.UnitPrice,
			&item.FormID, &metadataJSON, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &item.Metadata); err != nil {
			return nil, fmt.Errorf("decode cart metadata: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}
	return items, nil
}

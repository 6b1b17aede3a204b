package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/AakashRadical/rg-bulk-editor/internal/core/domain"
	"github.com/AakashRadical/rg-bulk-editor/internal/core/service"
	"github.com/AakashRadical/rg-bulk-editor/internal/port"
)

type HTTPHandler struct {
	reconciler *service.ReconcileService
	products   *service.ProductService
	catalog    port.CatalogAPI
	db         port.DatabaseRepository
	logger     *zap.Logger
}

func NewHTTPHandler(
	reconciler *service.ReconcileService,
	products *service.ProductService,
	catalog port.CatalogAPI,
	db port.DatabaseRepository,
	logger *zap.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		reconciler: reconciler,
		products:   products,
		catalog:    catalog,
		db:         db,
		logger:     logger,
	}
}

// Register wires all routes onto the mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/inventorylevel", h.RecentInventoryLevels)
	mux.HandleFunc("PUT /api/inventorylevel/{id}", h.UpdateInventoryLevel)
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("PUT /api/products/{id}", h.UpdateProduct)
	mux.HandleFunc("GET /api/collections", h.ListCollections)
	mux.HandleFunc("PUT /api/product-collections/{id}", h.UpdateProductCollections)
	mux.HandleFunc("POST /api/reconcile/bulk", h.BulkReconcile)
	mux.HandleFunc("GET /api/locations", h.ListLocations)
	mux.HandleFunc("GET /api/adjustments", h.ListAdjustments)
	mux.HandleFunc("GET /health", h.HealthCheck)
}

type inventoryLevelRequest struct {
	Available  any    `json:"available"`
	LocationID string `json:"locationId"`
	SKU        string `json:"sku"`
	RequestID  string `json:"requestId"`
}

type updatedInventoryResponse struct {
	Available *int   `json:"available"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

type reconcileResponse struct {
	Success          bool                      `json:"success"`
	Message          string                    `json:"message,omitempty"`
	Error            string                    `json:"error,omitempty"`
	Details          string                    `json:"details,omitempty"`
	UpdatedInventory *updatedInventoryResponse `json:"updatedInventory,omitempty"`
	Mismatch         bool                      `json:"mismatch,omitempty"`
}

func (h *HTTPHandler) UpdateInventoryLevel(w http.ResponseWriter, r *http.Request) {
	var req inventoryLevelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, reconcileResponse{Success: false, Error: "invalid request body"})
		return
	}

	quantity, err := quantityFromBody(req.Available)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, reconcileResponse{Success: false, Error: "invalid quantity", Details: err.Error()})
		return
	}

	intent := domain.VariantInventoryIntent{
		RequestID:       req.RequestID,
		InventoryItemID: r.PathValue("id"),
		SKU:             req.SKU,
		Tracked:         true,
		Quantity:        quantity,
		LocationID:      req.LocationID,
	}

	result, err := h.reconciler.Reconcile(r.Context(), intent)
	if err != nil {
		h.writeReconcileError(w, err)
		return
	}
	h.writeReconcileResult(w, result)
}

func (h *HTTPHandler) writeReconcileError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrDuplicateRequest):
		writeJSON(w, http.StatusConflict, reconcileResponse{Success: false, Error: "duplicate request"})
	case errors.Is(err, service.ErrItemBusy):
		writeJSON(w, http.StatusConflict, reconcileResponse{Success: false, Error: "inventory item is busy, retry shortly"})
	default:
		h.logger.Error("reconciliation error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, reconcileResponse{Success: false, Error: "failed to update inventory"})
	}
}

func (h *HTTPHandler) writeReconcileResult(w http.ResponseWriter, result domain.ReconciliationResult) {
	if result.Succeeded() {
		resp := reconcileResponse{
			Success:  true,
			Message:  "inventory updated successfully",
			Mismatch: result.QuantityMismatch,
		}
		if result.FinalQuantity != nil {
			resp.UpdatedInventory = &updatedInventoryResponse{Available: result.FinalQuantity}
			if result.UpdatedAt != nil {
				resp.UpdatedInventory.UpdatedAt = result.UpdatedAt.Format(time.RFC3339)
			}
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	status := http.StatusBadRequest
	errMsg := "invalid intent"
	switch result.Reason {
	case domain.ReasonNotFound:
		status = http.StatusNotFound
		errMsg = "inventory item not found"
	case domain.ReasonRemoteRejected:
		errMsg = "remote api rejected the update"
	case domain.ReasonThrottled:
		status = http.StatusTooManyRequests
		errMsg = "remote api throttled, retry later"
	}
	writeJSON(w, status, reconcileResponse{Success: false, Error: errMsg, Details: result.Detail})
}

type productRequest struct {
	Product struct {
		Title           string   `json:"title"`
		DescriptionHTML string   `json:"descriptionHtml"`
		Vendor          string   `json:"vendor"`
		ProductType     string   `json:"productType"`
		Tags            []string `json:"tags"`
		Status          string   `json:"status"`
		Variants        []struct {
			ID                  string `json:"id"`
			Price               any    `json:"price"`
			CompareAtPrice      any    `json:"compare_at_price"`
			InventoryPolicy     string `json:"inventory_policy"`
			SKU                 string `json:"sku"`
			InventoryManagement string `json:"inventory_management"`
			InventoryQuantity   any    `json:"inventory_quantity"`
			LocationID          string `json:"location_id"`
			InventoryItemID     string `json:"inventory_item_id"`
		} `json:"variants"`
	} `json:"product"`
}

type productResponse struct {
	Success  bool             `json:"success"`
	Error    string           `json:"error,omitempty"`
	Details  string           `json:"details,omitempty"`
	Variants []variantOutcome `json:"updatedInventory,omitempty"`
}

type variantOutcome struct {
	VariantID string `json:"variantId"`
	Outcome   string `json:"outcome"`
	Available *int   `json:"available,omitempty"`
	Mismatch  bool   `json:"mismatch,omitempty"`
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, productResponse{Success: false, Error: "invalid request body"})
		return
	}

	update := domain.ProductUpdate{
		ID:              r.PathValue("id"),
		Title:           req.Product.Title,
		DescriptionHTML: req.Product.DescriptionHTML,
		Vendor:          req.Product.Vendor,
		ProductType:     req.Product.ProductType,
		Tags:            req.Product.Tags,
		Status:          domain.ProductStatus(req.Product.Status),
	}
	for _, v := range req.Product.Variants {
		variant := domain.VariantUpdate{
			ID:                  v.ID,
			Price:               stringFromBody(v.Price),
			CompareAtPrice:      stringFromBody(v.CompareAtPrice),
			InventoryPolicy:     v.InventoryPolicy,
			SKU:                 v.SKU,
			InventoryManagement: v.InventoryManagement,
			InventoryItemID:     v.InventoryItemID,
			LocationID:          v.LocationID,
		}
		if v.InventoryQuantity != nil {
			quantity, err := quantityFromBody(v.InventoryQuantity)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, productResponse{Success: false, Error: "invalid quantity", Details: err.Error()})
				return
			}
			variant.InventoryQuantity = &quantity
		}
		update.Variants = append(update.Variants, variant)
	}

	reconciled, err := h.products.UpdateProduct(r.Context(), update)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, productResponse{Success: false, Error: verr.Code, Details: verr.Message})
			return
		}
		if errors.Is(err, port.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, productResponse{Success: false, Error: "product not found"})
			return
		}
		h.logger.Error("product update failed", zap.String("product_id", update.ID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, productResponse{Success: false, Error: "failed to update product"})
		return
	}

	resp := productResponse{Success: true}
	for _, vr := range reconciled {
		resp.Variants = append(resp.Variants, variantOutcome{
			VariantID: vr.VariantID,
			Outcome:   string(vr.Result.Outcome),
			Available: vr.Result.FinalQuantity,
			Mismatch:  vr.Result.QuantityMismatch,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type collectionsRequest struct {
	Collections []string `json:"collections"`
}

func (h *HTTPHandler) UpdateProductCollections(w http.ResponseWriter, r *http.Request) {
	var req collectionsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid request body"})
		return
	}

	err := h.products.ReplaceCollections(r.Context(), r.PathValue("id"), req.Collections)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "product not found"})
			return
		}
		h.logger.Error("collections update failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "failed to update collections"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "collections updated successfully"})
}

type bulkReconcileRequest struct {
	Intents []struct {
		InventoryItemID string `json:"inventory_item_id"`
		LocationID      string `json:"location_id"`
		SKU             string `json:"sku"`
		Available       any    `json:"available"`
		RequestID       string `json:"request_id"`
	} `json:"intents"`
}

func (h *HTTPHandler) BulkReconcile(w http.ResponseWriter, r *http.Request) {
	var req bulkReconcileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid request body"})
		return
	}
	if len(req.Intents) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "no intents provided"})
		return
	}

	for i, in := range req.Intents {
		quantity, err := quantityFromBody(in.Available)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   fmt.Sprintf("invalid quantity at index %d", i),
				"details": err.Error(),
			})
			return
		}
		h.reconciler.Enqueue(domain.VariantInventoryIntent{
			RequestID:       in.RequestID,
			InventoryItemID: in.InventoryItemID,
			SKU:             in.SKU,
			Tracked:         true,
			Quantity:        quantity,
			LocationID:      in.LocationID,
		})
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"success": true, "queued": len(req.Intents)})
}

type variantSummaryResponse struct {
	ID                string `json:"id"`
	SKU               string `json:"sku"`
	Price             string `json:"price"`
	CompareAtPrice    string `json:"compare_at_price,omitempty"`
	InventoryQuantity int    `json:"inventory_quantity"`
	InventoryItemID   string `json:"inventory_item_id"`
}

type collectionResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type productSummaryResponse struct {
	ID              string                   `json:"id"`
	Title           string                   `json:"title"`
	Handle          string                   `json:"handle"`
	DescriptionHTML string                   `json:"descriptionHtml,omitempty"`
	ProductType     string                   `json:"productType,omitempty"`
	Vendor          string                   `json:"vendor,omitempty"`
	Tags            []string                 `json:"tags,omitempty"`
	Status          string                   `json:"status"`
	TotalInventory  int                      `json:"totalInventory"`
	FeaturedImage   string                   `json:"featuredImage,omitempty"`
	Variants        []variantSummaryResponse `json:"variants"`
	Collections     []collectionResponse     `json:"collections,omitempty"`
	CreatedAt       string                   `json:"createdAt,omitempty"`
	UpdatedAt       string                   `json:"updatedAt,omitempty"`
}

// ListProducts walks the whole catalog, following the remote cursor until
// the last page, and returns it as one list the edit grid can render.
func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products := []productSummaryResponse{}
	cursor := ""
	for {
		page, err := h.catalog.ListProducts(r.Context(), cursor)
		if err != nil {
			h.logger.Error("failed to fetch products", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to fetch products"})
			return
		}
		for _, p := range page.Products {
			products = append(products, toProductSummaryResponse(p))
		}
		if !page.HasNextPage {
			break
		}
		cursor = page.EndCursor
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func toProductSummaryResponse(p domain.ProductSummary) productSummaryResponse {
	out := productSummaryResponse{
		ID:              p.ID,
		Title:           p.Title,
		Handle:          p.Handle,
		DescriptionHTML: p.DescriptionHTML,
		ProductType:     p.ProductType,
		Vendor:          p.Vendor,
		Tags:            p.Tags,
		Status:          string(p.Status),
		TotalInventory:  p.TotalInventory,
		FeaturedImage:   p.FeaturedImage,
		Variants:        []variantSummaryResponse{},
	}
	if !p.CreatedAt.IsZero() {
		out.CreatedAt = p.CreatedAt.Format(time.RFC3339)
	}
	if !p.UpdatedAt.IsZero() {
		out.UpdatedAt = p.UpdatedAt.Format(time.RFC3339)
	}
	for _, v := range p.Variants {
		out.Variants = append(out.Variants, variantSummaryResponse{
			ID:                v.ID,
			SKU:               v.SKU,
			Price:             v.Price,
			CompareAtPrice:    v.CompareAtPrice,
			InventoryQuantity: v.InventoryQuantity,
			InventoryItemID:   v.InventoryItemID,
		})
	}
	for _, c := range p.Collections {
		out.Collections = append(out.Collections, collectionResponse{ID: c.ID, Title: c.Title})
	}
	return out
}

func (h *HTTPHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.catalog.ListCollections(r.Context())
	if err != nil {
		h.logger.Error("failed to fetch collections", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to fetch collections"})
		return
	}

	out := make([]collectionResponse, 0, len(collections))
	for _, c := range collections {
		out = append(out, collectionResponse{ID: c.ID, Title: c.Title, Description: c.Description})
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": out})
}

// RecentInventoryLevels reports levels that changed in the last second at
// the shop's first location, for the grid's refresh poll after an update.
func (h *HTTPHandler) RecentInventoryLevels(w http.ResponseWriter, r *http.Request) {
	locations, err := h.catalog.ListLocations(r.Context())
	if err != nil {
		h.logger.Error("failed to fetch locations", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to fetch inventory levels"})
		return
	}
	if len(locations) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "no location found in shop"})
		return
	}

	since := time.Now().Add(-time.Second)
	changes, err := h.catalog.ListRecentInventoryLevels(r.Context(), locations[0].ID, since)
	if err != nil {
		h.logger.Error("failed to fetch inventory levels", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to fetch inventory levels"})
		return
	}

	type levelResponse struct {
		ID        string `json:"id"`
		Available int    `json:"available"`
		Item      struct {
			ID string `json:"id"`
		} `json:"item"`
		UpdatedAt string `json:"updatedAt"`
	}
	out := make([]levelResponse, 0, len(changes))
	for _, change := range changes {
		lr := levelResponse{
			ID:        change.LevelID,
			Available: change.Available,
			UpdatedAt: change.UpdatedAt.Format(time.RFC3339),
		}
		lr.Item.ID = change.InventoryItemID
		out = append(out, lr)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.catalog.ListLocations(r.Context())
	if err != nil {
		h.logger.Error("failed to fetch locations", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to fetch locations"})
		return
	}

	type locationResponse struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		City    string `json:"city,omitempty"`
		Country string `json:"country,omitempty"`
	}
	out := make([]locationResponse, 0, len(locations))
	for _, loc := range locations {
		out = append(out, locationResponse{ID: loc.ID, Name: loc.Name, City: loc.City, Country: loc.Country})
	}
	writeJSON(w, http.StatusOK, map[string]any{"locations": out})
}

func (h *HTTPHandler) ListAdjustments(w http.ResponseWriter, r *http.Request) {
	itemID := r.URL.Query().Get("item")
	if itemID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "item query parameter is required"})
		return
	}

	adjustments, err := h.db.ListAdjustments(r.Context(), itemID, 50)
	if err != nil {
		h.logger.Error("failed to list adjustments", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to list adjustments"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"adjustments": adjustments})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeJSON(r *http.Request, out any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	return decoder.Decode(out)
}

// quantityFromBody accepts the quantity however the edit UI sends it: a JSON
// number, a user-typed string, or absent.
func quantityFromBody(v any) (int, error) {
	switch q := v.(type) {
	case nil:
		return 0, nil
	case string:
		return service.NormalizeQuantity(q)
	case json.Number:
		return service.NormalizeQuantity(q.String())
	default:
		return 0, fmt.Errorf("unsupported quantity type %T", v)
	}
}

func stringFromBody(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

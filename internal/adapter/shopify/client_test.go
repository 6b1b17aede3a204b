package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/AakashRadical/rg-bulk-editor/internal/core/domain"
	"github.com/AakashRadical/rg-bulk-editor/internal/port"
)

func productUpdateFixture() domain.ProductUpdate {
	return domain.ProductUpdate{
		ID:     "1",
		Title:  "Shirt",
		Tags:   []string{"summer", "sale"},
		Status: domain.ProductStatusActive,
	}
}

type stubShopify struct {
	status   int
	response string

	lastQuery     string
	lastVariables map[string]any
}

func (s *stubShopify) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Shopify-Access-Token"); got != "test-token" {
			t.Errorf("missing access token header, got %q", got)
		}

		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		s.lastQuery = req.Query
		s.lastVariables = req.Variables

		if s.status != 0 {
			w.WriteHeader(s.status)
		}
		w.Write([]byte(s.response))
	}
}

func newTestClient(t *testing.T, stub *stubShopify) (*Client, func()) {
	server := httptest.NewServer(stub.handler(t))
	client := NewClient(Config{
		Shop:        "test.myshopify.com",
		AccessToken: "test-token",
		APIVersion:  "2025-04",
		BaseURL:     server.URL,
	}, zap.NewNop())
	return client, server.Close
}

func TestGetInventoryItem_ParsesState(t *testing.T) {
	stub := &stubShopify{response: `{
		"data": {
			"inventoryItem": {
				"id": "gid://shopify/InventoryItem/123",
				"tracked": true,
				"sku": "ABC",
				"inventoryLevel": {
					"id": "gid://shopify/InventoryLevel/1",
					"quantities": [{"name": "available", "quantity": 7}],
					"updatedAt": "2025-05-01T10:00:00Z"
				}
			}
		}
	}`}
	client, done := newTestClient(t, stub)
	defer done()

	state, err := client.GetInventoryItem(context.Background(), "123", "456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !state.Tracked {
		t.Error("expected tracked")
	}
	if state.SKU != "ABC" {
		t.Errorf("expected sku ABC, got %s", state.SKU)
	}
	if state.Level == nil || state.Level.Available != 7 {
		t.Errorf("expected available 7, got %+v", state.Level)
	}

	// Bare numeric ids must be sent in gid form.
	if got := stub.lastVariables["id"]; got != "gid://shopify/InventoryItem/123" {
		t.Errorf("expected gid-normalized item id, got %v", got)
	}
	if got := stub.lastVariables["locationId"]; got != "gid://shopify/Location/456" {
		t.Errorf("expected gid-normalized location id, got %v", got)
	}
}

func TestGetInventoryItem_AbsentFieldIsNotFound(t *testing.T) {
	stub := &stubShopify{response: `{"data": {"inventoryItem": null}}`}
	client, done := newTestClient(t, stub)
	defer done()

	_, err := client.GetInventoryItem(context.Background(), "123", "456")
	if !errors.Is(err, port.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetInventoryItem_AbsentLevel(t *testing.T) {
	stub := &stubShopify{response: `{
		"data": {
			"inventoryItem": {
				"id": "gid://shopify/InventoryItem/123",
				"tracked": false,
				"sku": "",
				"inventoryLevel": null
			}
		}
	}`}
	client, done := newTestClient(t, stub)
	defer done()

	state, err := client.GetInventoryItem(context.Background(), "123", "456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Level != nil {
		t.Errorf("expected absent level, got %+v", state.Level)
	}
}

func TestGraphQL_HTTP429IsThrottled(t *testing.T) {
	stub := &stubShopify{status: http.StatusTooManyRequests, response: `{}`}
	client, done := newTestClient(t, stub)
	defer done()

	err := client.SetOnHandQuantity(context.Background(), "123", "456", 10, "correction")
	if !errors.Is(err, port.ErrThrottled) {
		t.Errorf("expected ErrThrottled, got %v", err)
	}
}

func TestGraphQL_ThrottledExtensionCode(t *testing.T) {
	stub := &stubShopify{response: `{
		"errors": [{"message": "Throttled", "extensions": {"code": "THROTTLED"}}]
	}`}
	client, done := newTestClient(t, stub)
	defer done()

	err := client.SetOnHandQuantity(context.Background(), "123", "456", 10, "correction")
	if !errors.Is(err, port.ErrThrottled) {
		t.Errorf("expected ErrThrottled, got %v", err)
	}
}

func TestSetSKU_UserErrors(t *testing.T) {
	stub := &stubShopify{response: `{
		"data": {
			"inventoryItemUpdate": {
				"inventoryItem": null,
				"userErrors": [{"field": ["input", "sku"], "message": "SKU already in use"}]
			}
		}
	}`}
	client, done := newTestClient(t, stub)
	defer done()

	err := client.SetSKU(context.Background(), "123", "ABC")

	var userErrs *port.UserErrorsError
	if !errors.As(err, &userErrs) {
		t.Fatalf("expected UserErrorsError, got %v", err)
	}
	if userErrs.Op != "inventoryItemUpdate" {
		t.Errorf("expected op inventoryItemUpdate, got %s", userErrs.Op)
	}
	if len(userErrs.Errors) != 1 || userErrs.Errors[0].Field != "input.sku" {
		t.Errorf("unexpected user errors: %+v", userErrs.Errors)
	}
}

func TestSetOnHandQuantity_SendsAbsoluteQuantity(t *testing.T) {
	stub := &stubShopify{response: `{
		"data": {"inventorySetOnHandQuantities": {"userErrors": []}}
	}`}
	client, done := newTestClient(t, stub)
	defer done()

	if err := client.SetOnHandQuantity(context.Background(), "123", "456", 10, "correction"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	input, ok := stub.lastVariables["input"].(map[string]any)
	if !ok {
		t.Fatalf("missing input variable: %v", stub.lastVariables)
	}
	if input["reason"] != "correction" {
		t.Errorf("expected reason correction, got %v", input["reason"])
	}
	setQuantities, ok := input["setQuantities"].([]any)
	if !ok || len(setQuantities) != 1 {
		t.Fatalf("expected one setQuantities entry, got %v", input["setQuantities"])
	}
	entry := setQuantities[0].(map[string]any)
	if entry["quantity"] != float64(10) {
		t.Errorf("expected quantity 10, got %v", entry["quantity"])
	}
}

func TestActivateAtLocation_ReturnsLevel(t *testing.T) {
	stub := &stubShopify{response: `{
		"data": {
			"inventoryActivate": {
				"inventoryLevel": {
					"id": "gid://shopify/InventoryLevel/1",
					"quantities": [{"name": "available", "quantity": 0}],
					"updatedAt": "2025-05-01T10:00:00Z"
				},
				"userErrors": []
			}
		}
	}`}
	client, done := newTestClient(t, stub)
	defer done()

	level, err := client.ActivateAtLocation(context.Background(), "123", "456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if level.Available != 0 {
		t.Errorf("expected available 0, got %d", level.Available)
	}
}

func TestActivateAtLocation_MissingLevelIsError(t *testing.T) {
	stub := &stubShopify{response: `{
		"data": {"inventoryActivate": {"inventoryLevel": null, "userErrors": []}}
	}`}
	client, done := newTestClient(t, stub)
	defer done()

	_, err := client.ActivateAtLocation(context.Background(), "123", "456")
	if err == nil {
		t.Error("expected error when activation returns no level")
	}
}

func TestListLocations(t *testing.T) {
	stub := &stubShopify{response: `{
		"data": {
			"locations": {
				"edges": [
					{"node": {"id": "gid://shopify/Location/1", "name": "Main", "address": {"city": "Pune", "country": "India"}}}
				]
			}
		}
	}`}
	client, done := newTestClient(t, stub)
	defer done()

	locations, err := client.ListLocations(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(locations) != 1 || locations[0].Name != "Main" {
		t.Errorf("unexpected locations: %+v", locations)
	}
}

func TestUpdateProduct_JoinsTags(t *testing.T) {
	stub := &stubShopify{response: `{
		"data": {"productUpdate": {"product": {"id": "gid://shopify/Product/1"}, "userErrors": []}}
	}`}
	client, done := newTestClient(t, stub)
	defer done()

	err := client.UpdateProduct(context.Background(), productUpdateFixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	input := stub.lastVariables["input"].(map[string]any)
	if input["tags"] != "summer,sale" {
		t.Errorf("expected comma-joined tags, got %v", input["tags"])
	}
	if input["status"] != "ACTIVE" {
		t.Errorf("expected status ACTIVE, got %v", input["status"])
	}
}

func TestListProducts_ParsesPage(t *testing.T) {
	stub := &stubShopify{response: `{
		"data": {
			"products": {
				"edges": [
					{
						"node": {
							"id": "gid://shopify/Product/1",
							"title": "Shirt",
							"handle": "shirt",
							"productType": "Apparel",
							"vendor": "Acme",
							"tags": ["summer", "sale"],
							"status": "ACTIVE",
							"totalInventory": 14,
							"createdAt": "2024-03-01T10:00:00Z",
							"updatedAt": "2024-04-01T10:00:00Z",
							"featuredImage": {"originalSrc": "https://cdn/img.png"},
							"variants": {
								"edges": [
									{
										"node": {
											"id": "gid://shopify/ProductVariant/11",
											"sku": "SHIRT-1",
											"price": "19.90",
											"compareAtPrice": "25.00",
											"inventoryQuantity": 14,
											"inventoryItem": {"id": "gid://shopify/InventoryItem/21"}
										}
									}
								]
							},
							"collections": {
								"edges": [
									{"node": {"id": "gid://shopify/Collection/3", "title": "Summer"}}
								]
							}
						},
						"cursor": "cursor-1"
					}
				],
				"pageInfo": {"hasNextPage": true, "endCursor": "cursor-1"}
			}
		}
	}`}
	client, done := newTestClient(t, stub)
	defer done()

	page, err := client.ListProducts(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, set := stub.lastVariables["cursor"]; set {
		t.Error("first page must not send a cursor")
	}
	if !page.HasNextPage || page.EndCursor != "cursor-1" {
		t.Errorf("unexpected page info: hasNext=%t cursor=%q", page.HasNextPage, page.EndCursor)
	}
	if len(page.Products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(page.Products))
	}
	p := page.Products[0]
	if p.Title != "Shirt" || p.Status != domain.ProductStatusActive || p.TotalInventory != 14 {
		t.Errorf("unexpected product: %+v", p)
	}
	if p.FeaturedImage != "https://cdn/img.png" {
		t.Errorf("unexpected featured image: %q", p.FeaturedImage)
	}
	if len(p.Variants) != 1 || p.Variants[0].InventoryItemID != "gid://shopify/InventoryItem/21" {
		t.Errorf("unexpected variants: %+v", p.Variants)
	}
	if len(p.Collections) != 1 || p.Collections[0].Title != "Summer" {
		t.Errorf("unexpected collections: %+v", p.Collections)
	}

	if _, err := client.ListProducts(context.Background(), "cursor-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := stub.lastVariables["cursor"]; got != "cursor-1" {
		t.Errorf("expected cursor to be forwarded, got %v", got)
	}
}

func TestListCollections(t *testing.T) {
	stub := &stubShopify{response: `{
		"data": {
			"collections": {
				"edges": [
					{"node": {"id": "gid://shopify/Collection/1", "title": "Summer", "description": "Summer picks"}},
					{"node": {"id": "gid://shopify/Collection/2", "title": "Sale", "description": ""}}
				]
			}
		}
	}`}
	client, done := newTestClient(t, stub)
	defer done()

	collections, err := client.ListCollections(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(collections) != 2 {
		t.Fatalf("expected 2 collections, got %d", len(collections))
	}
	if collections[0].Title != "Summer" || collections[0].Description != "Summer picks" {
		t.Errorf("unexpected collection: %+v", collections[0])
	}
}

func TestListRecentInventoryLevels(t *testing.T) {
	stub := &stubShopify{response: `{
		"data": {
			"location": {
				"inventoryLevels": {
					"edges": [
						{
							"node": {
								"id": "gid://shopify/InventoryLevel/7",
								"quantities": [{"name": "available", "quantity": 12}],
								"item": {"id": "gid://shopify/InventoryItem/21"},
								"updatedAt": "2024-04-01T10:00:00Z"
							}
						}
					]
				}
			}
		}
	}`}
	client, done := newTestClient(t, stub)
	defer done()

	since := time.Date(2024, 4, 1, 9, 59, 59, 0, time.UTC)
	changes, err := client.ListRecentInventoryLevels(context.Background(), "1", since)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := stub.lastVariables["locationId"]; got != "gid://shopify/Location/1" {
		t.Errorf("expected location gid, got %v", got)
	}
	if got := stub.lastVariables["query"]; got != "updated_at:>2024-04-01T09:59:59Z" {
		t.Errorf("unexpected query filter: %v", got)
	}

	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	if changes[0].Available != 12 || changes[0].InventoryItemID != "gid://shopify/InventoryItem/21" {
		t.Errorf("unexpected change: %+v", changes[0])
	}
}

func TestListRecentInventoryLevels_AbsentLocation(t *testing.T) {
	stub := &stubShopify{response: `{"data": {"location": null}}`}
	client, done := newTestClient(t, stub)
	defer done()

	_, err := client.ListRecentInventoryLevels(context.Background(), "missing", time.Now())
	if !errors.Is(err, port.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

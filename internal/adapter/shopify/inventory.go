package shopify

import (
	"context"
	"fmt"
	"time"

	"github.com/AakashRadical/rg-bulk-editor/internal/core/domain"
	"github.com/AakashRadical/rg-bulk-editor/internal/port"
)

const inventoryItemQuery = `
query inventoryItem($id: ID!, $locationId: ID!) {
  inventoryItem(id: $id) {
    id
    tracked
    sku
    inventoryLevel(locationId: $locationId) {
      id
      quantities(names: ["available"]) {
        name
        quantity
      }
      updatedAt
    }
  }
}`

const inventoryItemWithoutLevelQuery = `
query inventoryItem($id: ID!) {
  inventoryItem(id: $id) {
    id
    tracked
    sku
  }
}`

const inventoryItemUpdateMutation = `
mutation inventoryItemUpdate($id: ID!, $input: InventoryItemInput!) {
  inventoryItemUpdate(id: $id, input: $input) {
    inventoryItem {
      id
      sku
      tracked
    }
    userErrors {
      field
      message
    }
  }
}`

const inventoryActivateMutation = `
mutation inventoryActivate($inventoryItemId: ID!, $locationId: ID!) {
  inventoryActivate(inventoryItemId: $inventoryItemId, locationId: $locationId) {
    inventoryLevel {
      id
      quantities(names: ["available"]) {
        name
        quantity
      }
      updatedAt
    }
    userErrors {
      field
      message
    }
  }
}`

const inventorySetOnHandMutation = `
mutation inventorySetOnHandQuantities($input: InventorySetOnHandQuantitiesInput!) {
  inventorySetOnHandQuantities(input: $input) {
    userErrors {
      field
      message
    }
  }
}`

const inventoryLevelQuery = `
query inventoryLevel($id: ID!, $locationId: ID!) {
  inventoryItem(id: $id) {
    inventoryLevel(locationId: $locationId) {
      id
      quantities(names: ["available"]) {
        name
        quantity
      }
      updatedAt
    }
  }
}`

const recentInventoryLevelsQuery = `
query recentInventoryLevels($locationId: ID!, $query: String) {
  location(id: $locationId) {
    inventoryLevels(first: 250, query: $query) {
      edges {
        node {
          id
          quantities(names: ["available"]) {
            name
            quantity
          }
          item {
            id
          }
          updatedAt
        }
      }
    }
  }
}`

const locationsQuery = `
{
  locations(first: 10) {
    edges {
      node {
        id
        name
        address {
          city
          country
        }
      }
    }
  }
}`

type rawInventoryLevel struct {
	ID         string          `json:"id"`
	Quantities []quantityField `json:"quantities"`
	UpdatedAt  string          `json:"updatedAt"`
}

func (l *rawInventoryLevel) toDomain(locationID string) *domain.InventoryLevel {
	level := &domain.InventoryLevel{
		LocationID: locationID,
		Available:  availableQuantity(l.Quantities),
	}
	if ts, err := time.Parse(time.RFC3339, l.UpdatedAt); err == nil {
		level.UpdatedAt = ts
	}
	return level
}

func (c *Client) GetInventoryItem(ctx context.Context, itemID, locationID string) (*domain.InventoryItemState, error) {
	var out struct {
		InventoryItem *struct {
			ID             string             `json:"id"`
			Tracked        bool               `json:"tracked"`
			SKU            string             `json:"sku"`
			InventoryLevel *rawInventoryLevel `json:"inventoryLevel"`
		} `json:"inventoryItem"`
	}

	itemGID := gid("InventoryItem", itemID)
	if locationID == "" {
		if err := c.graphql(ctx, inventoryItemWithoutLevelQuery, map[string]any{"id": itemGID}, &out); err != nil {
			return nil, err
		}
	} else {
		vars := map[string]any{
			"id":         itemGID,
			"locationId": gid("Location", locationID),
		}
		if err := c.graphql(ctx, inventoryItemQuery, vars, &out); err != nil {
			return nil, err
		}
	}

	// An absent item comes back as a null field, not a transport error.
	if out.InventoryItem == nil {
		return nil, fmt.Errorf("inventory item %s: %w", itemID, port.ErrNotFound)
	}

	state := &domain.InventoryItemState{
		ID:      out.InventoryItem.ID,
		Tracked: out.InventoryItem.Tracked,
		SKU:     out.InventoryItem.SKU,
	}
	if out.InventoryItem.InventoryLevel != nil {
		state.Level = out.InventoryItem.InventoryLevel.toDomain(locationID)
	}
	return state, nil
}

func (c *Client) SetTracked(ctx context.Context, itemID string, tracked bool) error {
	return c.updateInventoryItem(ctx, itemID, map[string]any{"tracked": tracked})
}

func (c *Client) SetSKU(ctx context.Context, itemID, sku string) error {
	return c.updateInventoryItem(ctx, itemID, map[string]any{"sku": sku})
}

func (c *Client) updateInventoryItem(ctx context.Context, itemID string, input map[string]any) error {
	var out struct {
		InventoryItemUpdate struct {
			UserErrors []rawUserError `json:"userErrors"`
		} `json:"inventoryItemUpdate"`
	}
	vars := map[string]any{
		"id":    gid("InventoryItem", itemID),
		"input": input,
	}
	if err := c.graphql(ctx, inventoryItemUpdateMutation, vars, &out); err != nil {
		return err
	}
	return userErrorsFrom("inventoryItemUpdate", out.InventoryItemUpdate.UserErrors)
}

func (c *Client) ActivateAtLocation(ctx context.Context, itemID, locationID string) (*domain.InventoryLevel, error) {
	var out struct {
		InventoryActivate struct {
			InventoryLevel *rawInventoryLevel `json:"inventoryLevel"`
			UserErrors     []rawUserError     `json:"userErrors"`
		} `json:"inventoryActivate"`
	}
	vars := map[string]any{
		"inventoryItemId": gid("InventoryItem", itemID),
		"locationId":      gid("Location", locationID),
	}
	if err := c.graphql(ctx, inventoryActivateMutation, vars, &out); err != nil {
		return nil, err
	}
	if err := userErrorsFrom("inventoryActivate", out.InventoryActivate.UserErrors); err != nil {
		return nil, err
	}
	if out.InventoryActivate.InventoryLevel == nil {
		return nil, fmt.Errorf("inventoryActivate returned no inventory level")
	}
	return out.InventoryActivate.InventoryLevel.toDomain(locationID), nil
}

func (c *Client) SetOnHandQuantity(ctx context.Context, itemID, locationID string, quantity int, reason string) error {
	var out struct {
		InventorySetOnHandQuantities struct {
			UserErrors []rawUserError `json:"userErrors"`
		} `json:"inventorySetOnHandQuantities"`
	}
	vars := map[string]any{
		"input": map[string]any{
			"setQuantities": []map[string]any{
				{
					"inventoryItemId": gid("InventoryItem", itemID),
					"locationId":      gid("Location", locationID),
					"quantity":        quantity,
				},
			},
			"reason": reason,
		},
	}
	if err := c.graphql(ctx, inventorySetOnHandMutation, vars, &out); err != nil {
		return err
	}
	return userErrorsFrom("inventorySetOnHandQuantities", out.InventorySetOnHandQuantities.UserErrors)
}

func (c *Client) GetInventoryLevel(ctx context.Context, itemID, locationID string) (*domain.InventoryLevel, error) {
	var out struct {
		InventoryItem *struct {
			InventoryLevel *rawInventoryLevel `json:"inventoryLevel"`
		} `json:"inventoryItem"`
	}
	vars := map[string]any{
		"id":         gid("InventoryItem", itemID),
		"locationId": gid("Location", locationID),
	}
	if err := c.graphql(ctx, inventoryLevelQuery, vars, &out); err != nil {
		return nil, err
	}
	if out.InventoryItem == nil || out.InventoryItem.InventoryLevel == nil {
		return nil, fmt.Errorf("inventory level for item %s at %s: %w", itemID, locationID, port.ErrNotFound)
	}
	return out.InventoryItem.InventoryLevel.toDomain(locationID), nil
}

func (c *Client) ListRecentInventoryLevels(ctx context.Context, locationID string, since time.Time) ([]domain.InventoryLevelChange, error) {
	var out struct {
		Location *struct {
			InventoryLevels struct {
				Edges []struct {
					Node struct {
						ID         string          `json:"id"`
						Quantities []quantityField `json:"quantities"`
						Item       struct {
							ID string `json:"id"`
						} `json:"item"`
						UpdatedAt string `json:"updatedAt"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"inventoryLevels"`
		} `json:"location"`
	}

	vars := map[string]any{
		"locationId": gid("Location", locationID),
		"query":      "updated_at:>" + since.UTC().Format(time.RFC3339),
	}
	if err := c.graphql(ctx, recentInventoryLevelsQuery, vars, &out); err != nil {
		return nil, err
	}
	if out.Location == nil {
		return nil, fmt.Errorf("location %s: %w", locationID, port.ErrNotFound)
	}

	changes := make([]domain.InventoryLevelChange, 0, len(out.Location.InventoryLevels.Edges))
	for _, edge := range out.Location.InventoryLevels.Edges {
		change := domain.InventoryLevelChange{
			LevelID:         edge.Node.ID,
			InventoryItemID: edge.Node.Item.ID,
			Available:       availableQuantity(edge.Node.Quantities),
		}
		if ts, err := time.Parse(time.RFC3339, edge.Node.UpdatedAt); err == nil {
			change.UpdatedAt = ts
		}
		changes = append(changes, change)
	}
	return changes, nil
}

func (c *Client) ListLocations(ctx context.Context) ([]domain.Location, error) {
	var out struct {
		Locations struct {
			Edges []struct {
				Node struct {
					ID      string `json:"id"`
					Name    string `json:"name"`
					Address struct {
						City    string `json:"city"`
						Country string `json:"country"`
					} `json:"address"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"locations"`
	}
	if err := c.graphql(ctx, locationsQuery, nil, &out); err != nil {
		return nil, err
	}

	locations := make([]domain.Location, 0, len(out.Locations.Edges))
	for _, edge := range out.Locations.Edges {
		locations = append(locations, domain.Location{
			ID:      edge.Node.ID,
			Name:    edge.Node.Name,
			City:    edge.Node.Address.City,
			Country: edge.Node.Address.Country,
		})
	}
	return locations, nil
}

package shopify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AakashRadical/rg-bulk-editor/internal/core/domain"
	"github.com/AakashRadical/rg-bulk-editor/internal/port"
)

const productsQuery = `
query products($cursor: String) {
  products(first: 50, after: $cursor) {
    edges {
      node {
        id
        title
        handle
        descriptionHtml
        productType
        vendor
        tags
        status
        totalInventory
        createdAt
        updatedAt
        featuredImage {
          originalSrc
        }
        variants(first: 10) {
          edges {
            node {
              id
              sku
              price
              compareAtPrice
              inventoryQuantity
              inventoryItem {
                id
              }
            }
          }
        }
        collections(first: 10) {
          edges {
            node {
              id
              title
            }
          }
        }
      }
      cursor
    }
    pageInfo {
      hasNextPage
      endCursor
    }
  }
}`

const collectionsQuery = `
{
  collections(first: 50) {
    edges {
      node {
        id
        title
        description
      }
    }
  }
}`

const productUpdateMutation = `
mutation productUpdate($input: ProductInput!) {
  productUpdate(input: $input) {
    product {
      id
      title
      status
    }
    userErrors {
      field
      message
    }
  }
}`

const productVariantsBulkUpdateMutation = `
mutation productVariantsBulkUpdate($productId: ID!, $variants: [ProductVariantsBulkInput!]!) {
  productVariantsBulkUpdate(productId: $productId, variants: $variants) {
    product {
      id
    }
    userErrors {
      field
      message
    }
  }
}`

const productCollectionsQuery = `
query productCollections($id: ID!) {
  product(id: $id) {
    id
    collections(first: 250) {
      edges {
        node {
          id
        }
      }
    }
  }
}`

const collectionAddProductsMutation = `
mutation collectionAddProducts($id: ID!, $productIds: [ID!]!) {
  collectionAddProducts(id: $id, productIds: $productIds) {
    userErrors {
      field
      message
    }
  }
}`

const collectionRemoveProductsMutation = `
mutation collectionRemoveProducts($id: ID!, $productIds: [ID!]!) {
  collectionRemoveProducts(id: $id, productIds: $productIds) {
    userErrors {
      field
      message
    }
  }
}`

type rawProduct struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Handle          string   `json:"handle"`
	DescriptionHTML string   `json:"descriptionHtml"`
	ProductType     string   `json:"productType"`
	Vendor          string   `json:"vendor"`
	Tags            []string `json:"tags"`
	Status          string   `json:"status"`
	TotalInventory  int      `json:"totalInventory"`
	CreatedAt       string   `json:"createdAt"`
	UpdatedAt       string   `json:"updatedAt"`
	FeaturedImage   *struct {
		OriginalSrc string `json:"originalSrc"`
	} `json:"featuredImage"`
	Variants struct {
		Edges []struct {
			Node struct {
				ID                string `json:"id"`
				SKU               string `json:"sku"`
				Price             string `json:"price"`
				CompareAtPrice    string `json:"compareAtPrice"`
				InventoryQuantity int    `json:"inventoryQuantity"`
				InventoryItem     struct {
					ID string `json:"id"`
				} `json:"inventoryItem"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
	Collections struct {
		Edges []struct {
			Node struct {
				ID    string `json:"id"`
				Title string `json:"title"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"collections"`
}

func (p *rawProduct) toDomain() domain.ProductSummary {
	summary := domain.ProductSummary{
		ID:              p.ID,
		Title:           p.Title,
		Handle:          p.Handle,
		DescriptionHTML: p.DescriptionHTML,
		ProductType:     p.ProductType,
		Vendor:          p.Vendor,
		Tags:            p.Tags,
		Status:          domain.ProductStatus(p.Status),
		TotalInventory:  p.TotalInventory,
	}
	if p.FeaturedImage != nil {
		summary.FeaturedImage = p.FeaturedImage.OriginalSrc
	}
	if ts, err := time.Parse(time.RFC3339, p.CreatedAt); err == nil {
		summary.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339, p.UpdatedAt); err == nil {
		summary.UpdatedAt = ts
	}
	for _, edge := range p.Variants.Edges {
		summary.Variants = append(summary.Variants, domain.VariantSummary{
			ID:                edge.Node.ID,
			SKU:               edge.Node.SKU,
			Price:             edge.Node.Price,
			CompareAtPrice:    edge.Node.CompareAtPrice,
			InventoryQuantity: edge.Node.InventoryQuantity,
			InventoryItemID:   edge.Node.InventoryItem.ID,
		})
	}
	for _, edge := range p.Collections.Edges {
		summary.Collections = append(summary.Collections, domain.Collection{
			ID:    edge.Node.ID,
			Title: edge.Node.Title,
		})
	}
	return summary
}

func (c *Client) ListProducts(ctx context.Context, cursor string) (*domain.ProductPage, error) {
	var out struct {
		Products struct {
			Edges []struct {
				Node rawProduct `json:"node"`
			} `json:"edges"`
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
		} `json:"products"`
	}

	vars := map[string]any{}
	if cursor != "" {
		vars["cursor"] = cursor
	}
	if err := c.graphql(ctx, productsQuery, vars, &out); err != nil {
		return nil, err
	}

	page := &domain.ProductPage{
		EndCursor:   out.Products.PageInfo.EndCursor,
		HasNextPage: out.Products.PageInfo.HasNextPage,
	}
	for _, edge := range out.Products.Edges {
		page.Products = append(page.Products, edge.Node.toDomain())
	}
	return page, nil
}

func (c *Client) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	var out struct {
		Collections struct {
			Edges []struct {
				Node struct {
					ID          string `json:"id"`
					Title       string `json:"title"`
					Description string `json:"description"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"collections"`
	}
	if err := c.graphql(ctx, collectionsQuery, nil, &out); err != nil {
		return nil, err
	}

	collections := make([]domain.Collection, 0, len(out.Collections.Edges))
	for _, edge := range out.Collections.Edges {
		collections = append(collections, domain.Collection{
			ID:          edge.Node.ID,
			Title:       edge.Node.Title,
			Description: edge.Node.Description,
		})
	}
	return collections, nil
}

func (c *Client) UpdateProduct(ctx context.Context, update domain.ProductUpdate) error {
	input := map[string]any{"id": gid("Product", update.ID)}
	if update.Title != "" {
		input["title"] = update.Title
	}
	if update.DescriptionHTML != "" {
		input["descriptionHtml"] = update.DescriptionHTML
	}
	if update.Vendor != "" {
		input["vendor"] = update.Vendor
	}
	if update.ProductType != "" {
		input["productType"] = update.ProductType
	}
	if update.Tags != nil {
		input["tags"] = strings.Join(update.Tags, ",")
	}
	if update.Status != "" {
		input["status"] = string(update.Status)
	}

	var out struct {
		ProductUpdate struct {
			UserErrors []rawUserError `json:"userErrors"`
		} `json:"productUpdate"`
	}
	if err := c.graphql(ctx, productUpdateMutation, map[string]any{"input": input}, &out); err != nil {
		return err
	}
	return userErrorsFrom("productUpdate", out.ProductUpdate.UserErrors)
}

func (c *Client) BulkUpdateVariants(ctx context.Context, productID string, variants []domain.VariantUpdate) error {
	inputs := make([]map[string]any, 0, len(variants))
	for _, v := range variants {
		input := map[string]any{"id": gid("ProductVariant", v.ID)}
		if v.Price != "" {
			input["price"] = v.Price
		}
		if v.CompareAtPrice != "" {
			input["compareAtPrice"] = v.CompareAtPrice
		}
		if v.InventoryPolicy != "" {
			input["inventoryPolicy"] = strings.ToUpper(v.InventoryPolicy)
		}
		inputs = append(inputs, input)
	}

	var out struct {
		ProductVariantsBulkUpdate struct {
			UserErrors []rawUserError `json:"userErrors"`
		} `json:"productVariantsBulkUpdate"`
	}
	vars := map[string]any{
		"productId": gid("Product", productID),
		"variants":  inputs,
	}
	if err := c.graphql(ctx, productVariantsBulkUpdateMutation, vars, &out); err != nil {
		return err
	}
	return userErrorsFrom("productVariantsBulkUpdate", out.ProductVariantsBulkUpdate.UserErrors)
}

func (c *Client) ListProductCollections(ctx context.Context, productID string) ([]string, error) {
	var out struct {
		Product *struct {
			Collections struct {
				Edges []struct {
					Node struct {
						ID string `json:"id"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"collections"`
		} `json:"product"`
	}
	vars := map[string]any{"id": gid("Product", productID)}
	if err := c.graphql(ctx, productCollectionsQuery, vars, &out); err != nil {
		return nil, err
	}
	if out.Product == nil {
		return nil, fmt.Errorf("product %s: %w", productID, port.ErrNotFound)
	}

	ids := make([]string, 0, len(out.Product.Collections.Edges))
	for _, edge := range out.Product.Collections.Edges {
		ids = append(ids, edge.Node.ID)
	}
	return ids, nil
}

func (c *Client) AddToCollection(ctx context.Context, collectionID, productID string) error {
	return c.changeCollection(ctx, collectionAddProductsMutation, "collectionAddProducts", collectionID, productID)
}

func (c *Client) RemoveFromCollection(ctx context.Context, collectionID, productID string) error {
	return c.changeCollection(ctx, collectionRemoveProductsMutation, "collectionRemoveProducts", collectionID, productID)
}

func (c *Client) changeCollection(ctx context.Context, mutation, op, collectionID, productID string) error {
	var out map[string]struct {
		UserErrors []rawUserError `json:"userErrors"`
	}
	vars := map[string]any{
		"id":         gid("Collection", collectionID),
		"productIds": []string{gid("Product", productID)},
	}
	if err := c.graphql(ctx, mutation, vars, &out); err != nil {
		return err
	}
	return userErrorsFrom(op, out[op].UserErrors)
}

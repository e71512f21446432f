package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Products lists the catalogue.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.getJSON(ctx, "/products", &products); err != nil {
		return nil, err
	}

	return products, nil
}

// Product fetches a single catalogue item by ID.
func (c *Client) Product(ctx context.Context, id int64) (*Product, error) {
	var product Product
	if err := c.getJSON(ctx, fmt.Sprintf("/products/%d", id), &product); err != nil {
		return nil, err
	}

	return &product, nil
}

// ProductByBarcode resolves a scanned barcode to a catalogue item.
func (c *Client) ProductByBarcode(ctx context.Context, code string) (*Product, error) {
	var product Product
	if err := c.getJSON(ctx, "/products/barcode/"+url.PathEscape(code), &product); err != nil {
		return nil, err
	}

	return &product, nil
}

// SearchProducts queries the catalogue by name or SKU fragment.
func (c *Client) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	var products []Product

	path := "/products?q=" + url.QueryEscape(query)
	if err := c.getJSON(ctx, path, &products); err != nil {
		return nil, err
	}

	return products, nil
}

// CreateProduct adds a catalogue item. The response may be a synthetic
// offline acknowledgement; check Response.Queued.
func (c *Client) CreateProduct(ctx context.Context, product Product) (*Response, error) {
	return c.sendJSON(ctx, http.MethodPost, "/products", product)
}

// UpdateProduct replaces a catalogue item.
func (c *Client) UpdateProduct(ctx context.Context, id int64, product Product) (*Response, error) {
	return c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/products/%d", id), product)
}

// DeleteProduct removes a catalogue item.
func (c *Client) DeleteProduct(ctx context.Context, id int64) (*Response, error) {
	return c.sendJSON(ctx, http.MethodDelete, fmt.Sprintf("/products/%d", id), nil)
}

// AdjustStock changes the on-hand quantity by delta (negative to deduct).
func (c *Client) AdjustStock(ctx context.Context, id int64, delta int64) (*Response, error) {
	payload := map[string]int64{"delta": delta}

	return c.sendJSON(ctx, http.MethodPost, fmt.Sprintf("/products/%d/adjust", id), payload)
}

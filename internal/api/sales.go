package api

import (
	"context"
	"fmt"
	"net/http"
)

// Sales lists recent sales.
func (c *Client) Sales(ctx context.Context) ([]Sale, error) {
	var sales []Sale
	if err := c.getJSON(ctx, "/sales", &sales); err != nil {
		return nil, err
	}

	return sales, nil
}

// Sale fetches a single sale by ID.
func (c *Client) Sale(ctx context.Context, id int64) (*Sale, error) {
	var sale Sale
	if err := c.getJSON(ctx, fmt.Sprintf("/sales/%d", id), &sale); err != nil {
		return nil, err
	}

	return &sale, nil
}

// CreateSale records a sale. Offline, the sale is queued and the response is
// a synthetic acknowledgement (Response.Queued).
func (c *Client) CreateSale(ctx context.Context, sale Sale) (*Response, error) {
	return c.sendJSON(ctx, http.MethodPost, "/sales", sale)
}

// Invoices lists issued invoices.
func (c *Client) Invoices(ctx context.Context) ([]Invoice, error) {
	var invoices []Invoice
	if err := c.getJSON(ctx, "/invoices", &invoices); err != nil {
		return nil, err
	}

	return invoices, nil
}

// Invoice fetches a single invoice by ID.
func (c *Client) Invoice(ctx context.Context, id int64) (*Invoice, error) {
	var invoice Invoice
	if err := c.getJSON(ctx, fmt.Sprintf("/invoices/%d", id), &invoice); err != nil {
		return nil, err
	}

	return &invoice, nil
}

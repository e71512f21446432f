package api

import (
	"context"
	"fmt"
	"net/http"
)

// WorkOrders lists repair tickets, optionally filtered to one kanban stage.
func (c *Client) WorkOrders(ctx context.Context, stage string) ([]WorkOrder, error) {
	path := "/workorders"
	if stage != "" {
		path += "?stage=" + stage
	}

	var orders []WorkOrder
	if err := c.getJSON(ctx, path, &orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// WorkOrder fetches a single repair ticket by ID.
func (c *Client) WorkOrder(ctx context.Context, id int64) (*WorkOrder, error) {
	var order WorkOrder
	if err := c.getJSON(ctx, fmt.Sprintf("/workorders/%d", id), &order); err != nil {
		return nil, err
	}

	return &order, nil
}

// CreateWorkOrder opens a repair ticket in the intake stage.
func (c *Client) CreateWorkOrder(ctx context.Context, order WorkOrder) (*Response, error) {
	return c.sendJSON(ctx, http.MethodPost, "/workorders", order)
}

// MoveWorkOrder moves a ticket to another kanban stage.
func (c *Client) MoveWorkOrder(ctx context.Context, id int64, stage string) (*Response, error) {
	payload := map[string]string{"stage": stage}

	return c.sendJSON(ctx, http.MethodPatch, fmt.Sprintf("/workorders/%d/stage", id), payload)
}

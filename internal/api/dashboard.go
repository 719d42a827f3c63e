package api

import (
	"context"
	"net/http"
)

// Dashboard fetches the headline counters.
func (c *Client) Dashboard(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	if err := c.do(ctx, http.MethodGet, "/dashboard", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Movements fetches the per-day stock entry/exit series.
func (c *Client) Movements(ctx context.Context) ([]Movement, error) {
	var movements []Movement
	if err := c.do(ctx, http.MethodGet, "/dashboard/movements", nil, nil, &movements); err != nil {
		return nil, err
	}
	return movements, nil
}

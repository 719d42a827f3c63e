package api

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// Audits lists audit records with the given filters.
func (c *Client) Audits(ctx context.Context, q AuditQuery) (*Page[AuditRecord], error) {
	query := url.Values{}
	if q.Entity != "" {
		query.Set("entity", q.Entity)
	}
	if q.UserEmail != "" {
		query.Set("userEmail", q.UserEmail)
	}
	if q.Action != "" {
		query.Set("action", string(q.Action))
	}
	if q.From != "" {
		query.Set("from", q.From)
	}
	if q.To != "" {
		query.Set("to", q.To)
	}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		query.Set("pageSize", strconv.Itoa(q.PageSize))
	}

	var page Page[AuditRecord]
	if err := c.do(ctx, http.MethodGet, "/audit", query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ExportAudits streams the backend's CSV export of the audit log to w.
func (c *Client) ExportAudits(ctx context.Context, w io.Writer) error {
	return c.download(ctx, "/audit/export", w)
}

package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
)

// Products lists products with the given filters.
func (c *Client) Products(ctx context.Context, q ProductQuery) (*Page[Product], error) {
	query := url.Values{}
	if q.Q != "" {
		query.Set("q", q.Q)
	}
	if q.Category != "" {
		query.Set("category", q.Category)
	}
	if q.Sort != "" {
		query.Set("sort", q.Sort)
	}
	if q.Order != "" {
		query.Set("order", q.Order)
	}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		query.Set("pageSize", strconv.Itoa(q.PageSize))
	}

	var page Page[Product]
	if err := c.do(ctx, http.MethodGet, "/products", query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreateProduct creates a product.
func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	var p Product
	if err := c.do(ctx, http.MethodPost, "/products", nil, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProduct patches an existing product.
func (c *Client) UpdateProduct(ctx context.Context, id string, in ProductInput) (*Product, error) {
	var p Product
	if err := c.do(ctx, http.MethodPatch, "/products/"+url.PathEscape(id), nil, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProduct deletes a product.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/products/"+url.PathEscape(id), nil, nil, nil)
}

// Categories returns the known product categories. Responses are cached
// briefly; the list changes only when products do.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	key := cacheKey("/products/categories")
	if cats, ok := c.categories.Get(key); ok {
		return cats, nil
	}

	var cats []string
	if err := c.do(ctx, http.MethodGet, "/products/categories", nil, nil, &cats); err != nil {
		return nil, err
	}
	c.categories.Put(key, cats)
	return cats, nil
}

// ExportProducts streams the backend's CSV export to w.
func (c *Client) ExportProducts(ctx context.Context, w io.Writer) error {
	return c.download(ctx, "/products/export", w)
}

// ImportProducts uploads a CSV file as multipart/form-data and returns
// the backend's import report.
func (c *Client) ImportProducts(ctx context.Context, filename string, r io.Reader) (*ImportReport, error) {
	body, contentType, err := multipartFile("file", filename, r)
	if err != nil {
		return nil, err
	}

	var report ImportReport
	err = c.upload(ctx, "/products/import", contentType, body, &report)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// multipartFile builds an in-memory multipart body with a single file
// part. Import files are small CSVs; buffering the whole body keeps the
// request repeatable for the pipeline's single retry.
func multipartFile(field, filename string, r io.Reader) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, "", fmt.Errorf("copy file into form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/stock-deck/stockdeck/internal/domain/session"
)

// Page is the pagination envelope shared by the products and audit
// listings.
type Page[T any] struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Pages    int `json:"pages"`
	Items    []T `json:"items"`
}

// Decimal is a float that also accepts JSON string encoding.
// The backend serializes money columns as strings ("12.50").
type Decimal float64

// UnmarshalJSON accepts both a JSON number and a numeric string.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parse decimal %q: %w", s, err)
		}
		*d = Decimal(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*d = Decimal(f)
	return nil
}

// MarshalJSON emits a plain JSON number.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(d))
}

// Product is one inventory item.
type Product struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Price     Decimal `json:"price"`
	Stock     int     `json:"stock"`
	Version   int     `json:"version"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

// ProductInput is the create/update payload for a product.
type ProductInput struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
}

// ProductQuery holds the list filters for GET /products.
type ProductQuery struct {
	Q        string
	Category string
	Sort     string
	Order    string // "ASC" or "DESC"
	Page     int
	PageSize int
}

// UserAccount is a backend user as returned by GET /users.
type UserAccount struct {
	ID        string       `json:"id"`
	Email     string       `json:"email"`
	Role      session.Role `json:"role"`
	CreatedAt string       `json:"createdAt,omitempty"`
	UpdatedAt string       `json:"updatedAt,omitempty"`
}

// UserInput is the create payload for a user.
type UserInput struct {
	Email    string       `json:"email"`
	Password string       `json:"password"`
	Role     session.Role `json:"role"`
}

// AuditAction is the kind of change recorded in an audit entry.
type AuditAction string

const (
	AuditCreate AuditAction = "create"
	AuditUpdate AuditAction = "update"
	AuditDelete AuditAction = "delete"
)

// AuditRecord is one entry in the audit log.
// Before and After hold the raw entity snapshots around the change.
type AuditRecord struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	UserEmail string          `json:"userEmail"`
	Action    AuditAction     `json:"action"`
	Entity    string          `json:"entity"`
	EntityID  string          `json:"entityId"`
	Before    json.RawMessage `json:"before,omitempty"`
	After     json.RawMessage `json:"after,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// AuditQuery holds the list filters for GET /audit.
type AuditQuery struct {
	Entity    string
	UserEmail string
	Action    AuditAction
	From      string // ISO date, inclusive
	To        string // ISO date, inclusive
	Page      int
	PageSize  int
}

// ImportReport summarizes a CSV product import.
type ImportReport struct {
	TotalRows      int             `json:"totalRows"`
	Inserted       int             `json:"inserted"`
	Invalid        int             `json:"invalid"`
	InvalidDetails []InvalidDetail `json:"invalidDetails"`
}

// InvalidDetail describes one rejected import row.
type InvalidDetail struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// DashboardStats are the headline counters on the dashboard.
type DashboardStats struct {
	Products int `json:"products"`
	Stock    int `json:"stock"`
	Users    int `json:"users"`
}

// Movement is one day of stock entries and exits.
type Movement struct {
	Date    string `json:"date"`
	Entries int    `json:"entries"`
	Exits   int    `json:"exits"`
}

// loginResponse is the body of POST /auth/login.
type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// refreshResponse is the body of POST /auth/refresh.
type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stock-deck/stockdeck/internal/domain/session"
)

func TestProductsQueryParameters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "widget" || q.Get("category") != "tools" {
			t.Errorf("unexpected filter params: %v", q)
		}
		if q.Get("sort") != "name" || q.Get("order") != "ASC" {
			t.Errorf("unexpected sort params: %v", q)
		}
		if q.Get("page") != "2" || q.Get("pageSize") != "25" {
			t.Errorf("unexpected paging params: %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Page[Product]{Total: 51, Page: 2, PageSize: 25, Pages: 3})
	}))
	defer server.Close()

	store := newTestStore(session.Session{AccessToken: "A"})
	client := NewClient(store, WithBaseURL(server.URL), WithLogger(testLogger()))

	page, err := client.Products(context.Background(), ProductQuery{
		Q: "widget", Category: "tools", Sort: "name", Order: "ASC", Page: 2, PageSize: 25,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 51 || page.Pages != 3 {
		t.Errorf("unexpected envelope: %+v", page)
	}
}

func TestProductPriceAcceptsStringAndNumber(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The backend serializes decimals as strings.
		io.WriteString(w, `{"total":2,"page":1,"pageSize":10,"pages":1,"items":[
			{"id":"p1","name":"A","price":"12.50","stock":3},
			{"id":"p2","name":"B","price":7,"stock":1}
		]}`)
	}))
	defer server.Close()

	store := newTestStore(session.Session{AccessToken: "A"})
	client := NewClient(store, WithBaseURL(server.URL), WithLogger(testLogger()))

	page, err := client.Products(context.Background(), ProductQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Items[0].Price != 12.5 {
		t.Errorf("string price = %v, want 12.5", page.Items[0].Price)
	}
	if page.Items[1].Price != 7 {
		t.Errorf("numeric price = %v, want 7", page.Items[1].Price)
	}
}

func TestCategoriesAreCached(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]string{"tools", "toys"})
	}))
	defer server.Close()

	store := newTestStore(session.Session{AccessToken: "A"})
	client := NewClient(store, WithBaseURL(server.URL), WithLogger(testLogger()))

	for i := 0; i < 3; i++ {
		cats, err := client.Categories(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cats) != 2 || cats[0] != "tools" {
			t.Errorf("unexpected categories: %v", cats)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected 1 backend call for 3 lookups, got %d", n)
	}

	// Logout empties the cache.
	client.Logout()
	store.Set(session.Session{AccessToken: "A"})
	if _, err := client.Categories(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("expected cache miss after logout, got %d calls", n)
	}
}

func TestImportProductsSendsMultipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/import" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("not a multipart request: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		defer file.Close()
		if header.Filename != "products.csv" {
			t.Errorf("filename = %q", header.Filename)
		}
		content, _ := io.ReadAll(file)
		if !strings.HasPrefix(string(content), "name,category") {
			t.Errorf("unexpected file content: %q", content)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ImportReport{
			TotalRows: 3,
			Inserted:  2,
			Invalid:   1,
			InvalidDetails: []InvalidDetail{
				{Row: 3, Reason: "price must be positive"},
			},
		})
	}))
	defer server.Close()

	store := newTestStore(session.Session{AccessToken: "A"})
	client := NewClient(store, WithBaseURL(server.URL), WithLogger(testLogger()))

	csv := "name,category,price,stock\nWidget,tools,9.99,4\nGadget,tools,3.50,1\nBroken,tools,-1,0\n"
	report, err := client.ImportProducts(context.Background(), "products.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TotalRows != 3 || report.Inserted != 2 || report.Invalid != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
	if len(report.InvalidDetails) != 1 || report.InvalidDetails[0].Row != 3 {
		t.Errorf("unexpected invalid details: %+v", report.InvalidDetails)
	}
}

func TestExportProductsStreamsCSV(t *testing.T) {
	const csv = "id,name,category,price,stock\np1,Widget,tools,9.99,4\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/export" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/csv")
		io.WriteString(w, csv)
	}))
	defer server.Close()

	store := newTestStore(session.Session{AccessToken: "A"})
	client := NewClient(store, WithBaseURL(server.URL), WithLogger(testLogger()))

	var buf bytes.Buffer
	if err := client.ExportProducts(context.Background(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != csv {
		t.Errorf("exported content mismatch: %q", buf.String())
	}
}

func TestDeleteProduct(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/products/p1" {
			t.Errorf("unexpected call: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	store := newTestStore(session.Session{AccessToken: "A"})
	client := NewClient(store, WithBaseURL(server.URL), WithLogger(testLogger()))

	if err := client.DeleteProduct(context.Background(), "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{URL: server.URL, Token: "secret"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestClientSearch(t *testing.T) {
	t.Parallel()

	var gotPath, gotQuery, gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("q")
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"items":[{"id":1,"name":"Mouse","price":"19.99","currency":"USD"},{"id":2,"name":"Pad","price":5,"currency":"USD"}]}`)
	})

	items, err := client.Search(context.Background(), "wireless mice", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if gotPath != "/products/search" || gotQuery != "wireless mice" {
		t.Fatalf("unexpected request path=%q q=%q", gotPath, gotQuery)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Price.String() != "19.99" || items[1].Price.String() != "5" {
		t.Fatalf("unexpected prices: %q %q", items[0].Price, items[1].Price)
	}
}

func TestClientProductNotFound(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := client.Product(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Product() error = %v, want ErrNotFound", err)
	}
}

func TestClientUserProductsEscapesID(t *testing.T) {
	t.Parallel()

	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		fmt.Fprint(w, `{"items":[]}`)
	})

	items, err := client.UserProducts(context.Background(), "user/1")
	if err != nil {
		t.Fatalf("UserProducts() error = %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
	if gotPath != "/users/user%2F1/products" {
		t.Fatalf("path = %q", gotPath)
	}
}

func TestClientServerError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	if _, err := client.Search(context.Background(), "x", 0); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestNewClientRequiresURL(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error for empty url")
	}
}

//go:build integration

package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"content-marketplace/internal/domain/model"
	"content-marketplace/internal/infra/db/postgres"
)

// cleanup truncates all tables for this test package.
func cleanup(t *testing.T) {
	t.Helper()
	if _, err := testPool.Exec(context.Background(), `TRUNCATE purchases`); err != nil {
		t.Fatalf("Failed to clean up database: %v", err)
	}
}

func TestPurchaseFlow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	// 1. Setup
	defer cleanup(t)
	ctx := context.Background()
	env := newTestEnv(postgres.NewPostgresPurchaseRepo(testPool), nil)
	tok, err := env.auth.Mint(httptest.NewRecorder(), model.Identity{UserIdentifier: "user-7"})
	if err != nil {
		t.Fatal(err)
	}
	handler := env.server.Routes()

	post := func(path, body string, hdr map[string]string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+tok)
		for k, v := range hdr {
			req.Header.Set(k, v)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	// 2. Checkout
	rr := post("/api/create-checkout-session", `{"contentId":"book-42","price":1800,"title":"Go Book","contentType":"book"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("checkout: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var res checkoutResponse
	_ = json.NewDecoder(rr.Body).Decode(&res)

	// 3. Concurrent duplicate deliveries
	body, sig, _, err := env.gateway.CompleteSession(res.SessionID, model.PaymentStatusPaid)
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	codes := make([]int, 8)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = post("/api/webhooks/payment", string(body), map[string]string{"X-Signature": sig}).Code
		}(i)
	}
	wg.Wait()
	for i, c := range codes {
		if c != http.StatusOK {
			t.Errorf("delivery %d: expected 200, got %d", i, c)
		}
	}

	// 4. Verify a single row
	var n int
	if err := testPool.QueryRow(ctx, `SELECT count(*) FROM purchases WHERE user_identifier=$1 AND content_id=$2`, "user-7", "book-42").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected exactly one purchase row, got %d", n)
	}

	// 5. Access is granted
	req := httptest.NewRequest(http.MethodGet, "/books/book-42/2.deep", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected chapter access after purchase, got %d", rr.Code)
	}
}

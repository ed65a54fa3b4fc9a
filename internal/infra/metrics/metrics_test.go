//go:build !integration

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	t.Run("should normalise label values", func(t *testing.T) {
		before := testutil.ToFloat64(checkoutTotal.WithLabelValues("already_purchased"))
		IncCheckout("  Already_Purchased ")
		if got := testutil.ToFloat64(checkoutTotal.WithLabelValues("already_purchased")); got != before+1 {
			t.Errorf("expected counter to grow by 1, got %v -> %v", before, got)
		}
	})

	t.Run("should ignore non-positive revenue", func(t *testing.T) {
		before := testutil.ToFloat64(purchaseRevenueTotal)
		AddPurchaseRevenue(0)
		AddPurchaseRevenue(-10)
		AddPurchaseRevenue(1800)
		if got := testutil.ToFloat64(purchaseRevenueTotal); got != before+1800 {
			t.Errorf("expected revenue to grow by 1800, got %v", got-before)
		}
	})

	t.Run("should label store operations by result", func(t *testing.T) {
		IncStoreOp("memory", "insert", errors.New("boom"))
		if got := testutil.ToFloat64(storeOpsTotal.WithLabelValues("memory", "insert", "error")); got < 1 {
			t.Errorf("expected an error sample, got %v", got)
		}
	})

	t.Run("should record webhook outcome and duration", func(t *testing.T) {
		ObserveWebhook("noop", "recorded", 20*time.Millisecond)
		if got := testutil.ToFloat64(webhookTotal.WithLabelValues("noop", "recorded")); got < 1 {
			t.Errorf("expected a recorded sample, got %v", got)
		}
	})
}

func TestMustRegister_IsIdempotent(t *testing.T) {
	MustRegister()
	MustRegister()
}

package order_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/petalcrumb/pos-engine/internal/common"
	"github.com/petalcrumb/pos-engine/internal/ledger"
	"github.com/petalcrumb/pos-engine/internal/order"
	"github.com/petalcrumb/pos-engine/internal/pricing"
)

func validSubmission(t *testing.T) order.Submission {
	t.Helper()
	cash, err := ledger.NewCash(210, 250)
	require.NoError(t, err)
	return order.Submission{
		SessionID: "sess-1",
		Items: []order.Item{{
			ProductID: "prod-cake",
			Slug:      "celebration-cake",
			Name:      "Celebration Cake",
			Category:  "cakes",
			Selection: pricing.Selection{Quantity: 1},
			Quote:     pricing.LineQuote{UnitPrice: 210, LineTotal: 210},
		}},
		Customer: order.Customer{Name: "Amal", Phone: "+971500000001"},
		Fulfillment: order.Fulfillment{
			Type: order.FulfillmentPickup,
			Date: "2026-03-14",
			Slot: "16:00-18:00",
		},
		Totals:        pricing.Totals{Subtotal: 210, FinalTotal: 210},
		Payments:      ledger.Records([]ledger.Entry{cash}),
		PaymentMethod: ledger.MethodCash,
		AmountPaid:    210,
		BalanceDue:    0,
		SubmittedAt:   time.Now().UTC(),
	}
}

func field(t *testing.T, err error) string {
	t.Helper()
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	details, _ := appErr.Details.(map[string]string)
	return details["field"]
}

func TestValidateReportsFirstMissingField(t *testing.T) {
	sub := validSubmission(t)
	require.NoError(t, order.Validate(sub))

	empty := sub
	empty.Items = nil
	require.Equal(t, "cart", field(t, order.Validate(empty)))

	noName := sub
	noName.Customer.Name = " "
	require.Equal(t, "customerName", field(t, order.Validate(noName)))

	noPhone := sub
	noPhone.Customer.Phone = ""
	require.Equal(t, "customerPhone", field(t, order.Validate(noPhone)))

	badType := sub
	badType.Fulfillment.Type = "COURIER"
	require.Equal(t, "fulfillmentType", field(t, order.Validate(badType)))

	delivery := sub
	delivery.Fulfillment = order.Fulfillment{Type: order.FulfillmentDelivery, Date: "2026-03-14", Slot: "16:00-18:00"}
	require.Equal(t, "deliveryAddress", field(t, order.Validate(delivery)))
	delivery.Fulfillment.Address = "Villa 12, Palm St"
	require.Equal(t, "deliveryArea", field(t, order.Validate(delivery)))

	noSlot := sub
	noSlot.Fulfillment.Slot = ""
	require.Equal(t, "fulfillmentSlot", field(t, order.Validate(noSlot)))

	noPay := sub
	noPay.Payments = nil
	require.Equal(t, "payment", field(t, order.Validate(noPay)))
}

func TestValidatePartialPayment(t *testing.T) {
	sub := validSubmission(t)
	sub.AmountPaid = 100
	sub.BalanceDue = 110

	err := order.Validate(sub)
	require.Equal(t, "payment", field(t, err))

	sub.AllowPartialPayment = true
	require.NoError(t, order.Validate(sub))
}

func TestLocalSubmitterSequencesPerDay(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	day := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	submitter := &order.LocalSubmitter{R: client, Now: func() time.Time { return day }}

	sub := validSubmission(t)
	first, err := submitter.Submit(context.Background(), sub)
	require.NoError(t, err)
	second, err := submitter.Submit(context.Background(), sub)
	require.NoError(t, err)

	require.Equal(t, "PC-20260314-0001", first.OrderNumber)
	require.Equal(t, "PC-20260314-0002", second.OrderNumber)
	require.NotEqual(t, first.OrderID, second.OrderID)

	// A new day restarts the sequence.
	submitter.Now = func() time.Time { return day.Add(24 * time.Hour) }
	next, err := submitter.Submit(context.Background(), sub)
	require.NoError(t, err)
	require.Equal(t, "PC-20260315-0001", next.OrderNumber)
}

func TestHTTPSubmitter(t *testing.T) {
	var received order.Submission
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orders", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"orderId":"ord-9","orderNumber":"PC-20260314-0042"}}`))
	}))
	t.Cleanup(srv.Close)

	submitter := &order.HTTPSubmitter{BaseURL: srv.URL}
	receipt, err := submitter.Submit(context.Background(), validSubmission(t))
	require.NoError(t, err)
	require.Equal(t, "ord-9", receipt.OrderID)
	require.Equal(t, "PC-20260314-0042", receipt.OrderNumber)
	require.Equal(t, "sess-1", received.SessionID)
	require.Len(t, received.Payments, 1)
	require.Equal(t, string(ledger.MethodCash), string(received.Payments[0].Method))
}

func TestHTTPSubmitterUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	submitter := &order.HTTPSubmitter{BaseURL: srv.URL}
	_, err := submitter.Submit(context.Background(), validSubmission(t))
	require.Error(t, err)
	require.False(t, errors.Is(err, context.DeadlineExceeded))
}

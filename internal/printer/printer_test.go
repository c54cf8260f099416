package printer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petalcrumb/pos-engine/internal/ledger"
	"github.com/petalcrumb/pos-engine/internal/pricing"
)

func sampleJob() Job {
	return Job{
		OrderID:     "ord-1",
		OrderNumber: "PC-20260314-0001",
		Terminal:    "COUNTER-1",
		Items: []Line{
			{Name: "Celebration Cake", Quantity: 1, UnitPrice: 145, LineTotal: 145, Details: []string{"Size: Large", "Topper: Gold"}},
		},
		Totals: pricing.Totals{Subtotal: 145, FinalTotal: 145},
		Payments: []ledger.Record{
			{Method: ledger.MethodCash, Amount: 150},
		},
		ChangeDue: 5,
		IssuedAt:  time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
	}
}

func TestHTTPClientPrint(t *testing.T) {
	var got Job
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/print", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := &HTTPClient{BaseURL: srv.URL}
	require.NoError(t, c.Print(context.Background(), sampleJob()))
	require.Equal(t, "PC-20260314-0001", got.OrderNumber)
	require.Len(t, got.Items, 1)
	require.Equal(t, ledger.MethodCash, got.Payments[0].Method)
	require.InDelta(t, 5.0, float64(got.ChangeDue), 0.001)
}

func TestHTTPClientPrintFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "printer jammed", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := &HTTPClient{BaseURL: srv.URL}
	err := c.Print(context.Background(), sampleJob())
	require.Error(t, err)
	require.Contains(t, err.Error(), "503")
}

func TestMockClientRecordsJobs(t *testing.T) {
	m := &MockClient{}
	require.NoError(t, m.Print(context.Background(), sampleJob()))
	require.NoError(t, m.Print(context.Background(), sampleJob()))
	require.Len(t, m.Jobs(), 2)
}

package exact

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchInvoices_FilterAndConversion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		filter := r.URL.Query().Get("$filter")
		assert.Equal(t, "Status eq 50 and InvoiceDate ge datetime'2025-01-01' and InvoiceDate le datetime'2025-12-31'", filter)
		fmt.Fprint(w, `{"d":{"results":[
			{"InvoiceID":"inv-1","InvoiceDate":"/Date(1735689600000)/","AmountDC":1210.50,"InvoiceTo":"cust-1","InvoiceToName":"Acme"},
			{"InvoiceID":"inv-2","InvoiceDate":null,"AmountDC":99.0,"InvoiceTo":"cust-2","InvoiceToName":"Beta"}
		]}}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{})
	invoices, err := client.FetchInvoices(context.Background(), 7095, "2025-01-01", "2025-12-31")
	require.NoError(t, err)

	// The dateless row is dropped at the boundary.
	require.Len(t, invoices, 1)
	assert.Equal(t, Invoice{
		ID:           "inv-1",
		Date:         "2025-01-01",
		Amount:       1210.50,
		CustomerID:   "cust-1",
		CustomerName: "Acme",
	}, invoices[0])
}

func TestGroupInvoicesByPeriod(t *testing.T) {
	periods := []Period{
		{Key: "2025-01", Start: "2025-01-01", End: "2025-01-31"},
		{Key: "2025-02", Start: "2025-02-01", End: "2025-02-28"},
	}
	invoices := []Invoice{
		{ID: "a", Date: "2025-01-15", Amount: 100},
		{ID: "b", Date: "2025-02-01", Amount: 200},
		{ID: "c", Date: "2025-03-05", Amount: 300}, // outside all periods
	}

	grouped := GroupInvoicesByPeriod(invoices, periods)
	require.Len(t, grouped, 2)
	assert.Len(t, grouped["2025-01"], 1)
	assert.Len(t, grouped["2025-02"], 1)
	assert.Equal(t, "b", grouped["2025-02"][0].ID)
}

func TestPeriodRevenue(t *testing.T) {
	revenue, count := PeriodRevenue([]Invoice{
		{Amount: 100.10},
		{Amount: 200.15},
	})
	assert.InDelta(t, 300.25, revenue, 0.0001)
	assert.Equal(t, 2, count)

	revenue, count = PeriodRevenue(nil)
	assert.Zero(t, revenue)
	assert.Zero(t, count)
}

func TestAggregateByCustomer(t *testing.T) {
	invoices := []Invoice{
		{CustomerID: "c1", CustomerName: "Acme", Amount: 600},
		{CustomerID: "c2", CustomerName: "Beta", Amount: 300},
		{CustomerID: "c1", CustomerName: "Acme", Amount: 100},
	}

	customers := AggregateByCustomer(invoices)
	require.Len(t, customers, 2)

	assert.Equal(t, "c1", customers[0].CustomerID, "sorted by revenue descending")
	assert.Equal(t, 700.0, customers[0].Revenue)
	assert.Equal(t, 2, customers[0].InvoiceCount)
	assert.Equal(t, 70.0, customers[0].PercentageOfTotal)

	assert.Equal(t, 30.0, customers[1].PercentageOfTotal)
}

func TestAggregateByCustomer_MissingIdentity(t *testing.T) {
	customers := AggregateByCustomer([]Invoice{{Amount: 50}})
	require.Len(t, customers, 1)
	assert.Equal(t, "unknown", customers[0].CustomerID)
	assert.Equal(t, "Unknown", customers[0].CustomerName)
	assert.Equal(t, 100.0, customers[0].PercentageOfTotal)
}

func TestAggregateByProject(t *testing.T) {
	lines := []InvoiceLine{
		{ProjectID: "p1", Amount: 500},
		{ProjectID: "p1", Amount: 250},
		{ProjectID: "p2", Amount: 100},
		{ProjectID: "", Amount: 999}, // no project reference
	}
	projects := map[string]Project{
		"p1": {ID: "p1", Code: "PRJ-1", Name: "Website", ClientID: "c1", ClientName: "Acme"},
	}
	hours := map[string]float64{"p1": 12.5}

	result := AggregateByProject(lines, projects, hours)
	require.Len(t, result, 2)

	first := result[0]
	assert.Equal(t, "p1", first.ProjectID)
	assert.Equal(t, 750.0, first.Revenue)
	assert.Equal(t, 2, first.InvoiceCount)
	require.NotNil(t, first.ClientName)
	assert.Equal(t, "Acme", *first.ClientName)
	require.NotNil(t, first.Hours)
	assert.Equal(t, 12.5, *first.Hours)

	second := result[1]
	assert.Equal(t, "Unknown Project", second.ProjectName, "projects without metadata get a fallback name")
	assert.Nil(t, second.ClientID)
	assert.Nil(t, second.Hours)
}

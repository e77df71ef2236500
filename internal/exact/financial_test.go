package exact

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateBalanceSheet(t *testing.T) {
	balances := []GLAccountBalance{
		{AccountType: 12, Amount: 5000},  // Bank -> assets
		{AccountType: 12, Amount: 2500},  // Bank -> assets, same category
		{AccountType: 20, Amount: 1200},  // Accounts receivable -> assets
		{AccountType: 22, Amount: -800},  // Accounts payable -> liabilities
		{AccountType: 45, Amount: 7900},  // Equity
		{AccountType: 60, Amount: 99999}, // Revenue -> P&L, skipped
	}

	summary := AggregateBalanceSheet(balances, 7095, 2025, 8)

	assert.Equal(t, 7095, summary.Division)
	assert.Equal(t, 2025, summary.ReportingYear)
	assert.Equal(t, 8, summary.ReportingPeriod)

	require.Len(t, summary.Assets, 2)
	assert.Equal(t, "Bank", summary.Assets[0].Name, "categories sorted by amount descending")
	assert.Equal(t, 7500.0, summary.Assets[0].Amount)
	assert.Equal(t, 2, summary.Assets[0].AccountCount)

	assert.Equal(t, 8700.0, summary.TotalAssets)
	assert.Equal(t, -800.0, summary.TotalLiabilities)
	assert.Equal(t, 7900.0, summary.TotalEquity)
}

func TestAggregateBalanceSheet_UnknownTypeDefaultsToAssets(t *testing.T) {
	summary := AggregateBalanceSheet([]GLAccountBalance{
		{AccountType: 999, AccountTypeDescription: "Weird stuff", Amount: 10},
		{AccountType: 998, Amount: 20},
	}, 1, 2025, 1)

	require.Len(t, summary.Assets, 2)
	names := []string{summary.Assets[0].Name, summary.Assets[1].Name}
	assert.Contains(t, names, "Weird stuff")
	assert.Contains(t, names, "Unknown")
}

func TestFetchAgingReceivables_MapsBuckets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/7095/read/financial/AgingReceivablesList", r.URL.Path)
		fmt.Fprint(w, `{"d":[
			{"AccountId":"a1","AccountCode":" 1300","AccountName":"Acme","TotalAmount":4000,
			 "AgeGroup1Amount":1000,"AgeGroup2Amount":2000,"AgeGroup3Amount":500,"AgeGroup4Amount":500}
		]}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{})
	entries, err := client.FetchAgingReceivables(context.Background(), 7095)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, "Acme", entry.AccountName)
	assert.Equal(t, 1000.0, entry.Age0To30)
	assert.Equal(t, 2000.0, entry.Age31To60)
	assert.Equal(t, 500.0, entry.Age61To90)
	assert.Equal(t, 500.0, entry.AgeOver90)
	assert.Equal(t, "EUR", entry.CurrencyCode, "missing currency defaults to EUR")
}

func TestFetchOpenReceivables_SignConvention(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		filter := r.URL.Query().Get("$filter")
		assert.Contains(t, filter, "IsFullyPaid eq false")
		fmt.Fprint(w, `{"d":{"results":[
			{"AccountCode":" 1300 ","AccountName":"Acme","InvoiceNumber":42,
			 "InvoiceDate":"/Date(1735689600000)/","DueDate":"/Date(1738368000000)/",
			 "TransactionAmountDC":-1210.0,"AmountDC":-605.0,
			 "Description":"Invoice 42","PaymentConditionDescription":"14 days","Currency":"EUR"},
			{"AccountCode":"1400","AccountName":"Beta","InvoiceNumber":43,
			 "InvoiceDate":"/Date(1735689600000)/","DueDate":"/Date(1738368000000)/",
			 "TransactionAmountDC":250.0,"AmountDC":250.0,
			 "Description":"Credit note","PaymentConditionDescription":"","Currency":""}
		]}}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{})
	client.now = func() time.Time { return time.Date(2025, 8, 28, 12, 0, 0, 0, time.UTC) }

	receivables, err := client.FetchOpenReceivables(context.Background(), 7095, 100, "", false)
	require.NoError(t, err)
	require.Len(t, receivables, 2)

	open := receivables[0]
	assert.Equal(t, "1300", open.AccountCode, "account codes are trimmed")
	assert.Equal(t, 605.0, open.RemainingAmount, "negative upstream amount becomes positive remaining amount")
	assert.Equal(t, 1210.0, open.OriginalAmount)
	assert.False(t, open.IsCredit)
	assert.Equal(t, "2025-02-01", open.DueDate)
	// Due 2025-02-01, today 2025-08-28.
	assert.Equal(t, 208, open.DaysOverdue)

	credit := receivables[1]
	assert.True(t, credit.IsCredit, "positive upstream amount is a credit")
	assert.Equal(t, 250.0, credit.RemainingAmount)
	assert.Equal(t, "EUR", credit.Currency)
}

func TestFetchOpenReceivables_OverdueFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		filter := r.URL.Query().Get("$filter")
		assert.Contains(t, filter, "trim(AccountCode) eq '1300'")
		assert.Contains(t, filter, "DueDate lt datetime'2025-08-28'")
		fmt.Fprint(w, `{"d":{"results":[]}}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{})
	client.now = func() time.Time { return time.Date(2025, 8, 28, 12, 0, 0, 0, time.UTC) }

	receivables, err := client.FetchOpenReceivables(context.Background(), 7095, 10, " 1300 ", true)
	require.NoError(t, err)
	assert.Empty(t, receivables)
}

func TestFetchBankTransactions_SignPreserved(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Date desc", r.URL.Query().Get("$orderby"))
		fmt.Fprint(w, `{"d":{"results":[
			{"ID":"t1","Date":"/Date(1735689600000)/","Description":"Rent","AmountDC":-605.0,
			 "AccountCode":"2001","AccountName":"Landlord","GLAccountCode":"1055",
			 "GLAccountDescription":"Bank","EntryNumber":101,"DocumentSubject":"","Notes":"","OurRef":"R-1"}
		]}}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{})
	transactions, err := client.FetchBankTransactions(context.Background(), 7095, 50, "", "", "")
	require.NoError(t, err)
	require.Len(t, transactions, 1)

	tx := transactions[0]
	assert.Equal(t, -605.0, tx.Amount, "bank amounts keep the upstream sign")
	assert.Equal(t, "2025-01-01", tx.Date)
	assert.Equal(t, "R-1", tx.Reference)
}

func TestFetchPurchaseInvoices_ModuleMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{})
	_, err := client.FetchPurchaseInvoices(context.Background(), 7095, 10, "", "", "")
	require.Error(t, err)
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindModuleNotAvailable, apiErr.Kind, "403 on the purchase endpoint means the module is missing")
	assert.NotEmpty(t, apiErr.Action)
}

func TestFetchPurchaseInvoices_Maps(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"d":{"results":[
			{"ID":"pi-1","InvoiceNumber":7,"InvoiceDate":"/Date(1735689600000)/","DueDate":"/Date(1738368000000)/",
			 "SupplierCode":" S100 ","SupplierName":"Supplies BV","AmountDC":320.5,"Currency":"EUR",
			 "Status":30,"StatusDescription":"Open","Description":"Office chairs","PaymentConditionDescription":"30 days"}
		]}}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{})
	invoices, err := client.FetchPurchaseInvoices(context.Background(), 7095, 10, "2025-01-01", "2025-12-31", "")
	require.NoError(t, err)
	require.Len(t, invoices, 1)

	invoice := invoices[0]
	assert.Equal(t, 7, invoice.InvoiceNumber)
	assert.Equal(t, "S100", invoice.SupplierCode)
	assert.Equal(t, "2025-01-01", invoice.InvoiceDate)
	assert.Equal(t, 320.5, invoice.Amount)
}

func TestFetchProfitLossOverview_EmptyAdministration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"d":[]}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{})
	client.now = func() time.Time { return time.Date(2025, 8, 28, 0, 0, 0, 0, time.UTC) }

	overview, err := client.FetchProfitLossOverview(context.Background(), 7095)
	require.NoError(t, err)
	assert.Equal(t, 2025, overview.CurrentYear)
	assert.Equal(t, 2024, overview.PreviousYear)
	assert.Zero(t, overview.RevenueCurrentYear)
	assert.Equal(t, "EUR", overview.CurrencyCode)
}

func TestFetchGLAccountByCode_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("$filter"), "Code eq '9999'")
		fmt.Fprint(w, `{"d":{"results":[]}}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{})
	account, err := client.FetchGLAccountByCode(context.Background(), 7095, "9999")
	require.NoError(t, err)
	assert.Nil(t, account)
}

func TestFetchTransactionLines_Filters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		filter := r.URL.Query().Get("$filter")
		assert.Contains(t, filter, "GLAccount eq guid'gl-1'")
		assert.Contains(t, filter, "FinancialYear eq 2025")
		fmt.Fprint(w, `{"d":{"results":[
			{"ID":"l1","Date":"/Date(1735689600000)/","FinancialYear":2025,"FinancialPeriod":1,
			 "GLAccountCode":"1300","GLAccountDescription":"Debtors","Description":"Payment",
			 "AmountDC":-100.0,"EntryNumber":55,"JournalCode":"70"}
		]}}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{})
	lines, err := client.FetchTransactionLines(context.Background(), 7095, "gl-1", 2025, 0, "", "", 100)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "2025-01-01", lines[0].Date)
	assert.Equal(t, -100.0, lines[0].Amount)
}

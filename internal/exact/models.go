package exact

import "strings"

// Division is one administration the authenticated user can access.
type Division struct {
	Code      int    `json:"code"`
	Name      string `json:"name"`
	IsCurrent bool   `json:"is_current"`
}

// Endpoint is one entry of the curated API catalog.
type Endpoint struct {
	Path        string `json:"path"`
	Category    string `json:"category"`
	Description string `json:"description"`
	TypicalUse  string `json:"typical_use"`
}

// ExplorationResult holds a sample of raw records from an arbitrary endpoint.
type ExplorationResult struct {
	Endpoint        string           `json:"endpoint"`
	Division        int              `json:"division"`
	Count           int              `json:"count"`
	Data            []map[string]any `json:"data"`
	AvailableFields []string         `json:"available_fields"`
}

// RevenuePeriod is revenue for one period with a year-over-year comparison.
type RevenuePeriod struct {
	PeriodKey        string   `json:"period_key"`
	StartDate        string   `json:"start_date"`
	EndDate          string   `json:"end_date"`
	Revenue          float64  `json:"revenue"`
	InvoiceCount     int      `json:"invoice_count"`
	PreviousRevenue  *float64 `json:"previous_revenue"`
	ChangePercentage *float64 `json:"change_percentage"`
}

// CustomerRevenue is aggregated invoice revenue for one customer.
type CustomerRevenue struct {
	CustomerID        string  `json:"customer_id"`
	CustomerName      string  `json:"customer_name"`
	Revenue           float64 `json:"revenue"`
	InvoiceCount      int     `json:"invoice_count"`
	PercentageOfTotal float64 `json:"percentage_of_total"`
}

// ProjectRevenue is aggregated invoice-line revenue for one project.
type ProjectRevenue struct {
	ProjectID    string   `json:"project_id"`
	ProjectCode  string   `json:"project_code"`
	ProjectName  string   `json:"project_name"`
	ClientID     *string  `json:"client_id"`
	ClientName   *string  `json:"client_name"`
	Revenue      float64  `json:"revenue"`
	InvoiceCount int      `json:"invoice_count"`
	Hours        *float64 `json:"hours,omitempty"`
}

// ProfitLossOverview is the upstream P&L summary with a year-over-year view.
type ProfitLossOverview struct {
	Division             int     `json:"division"`
	CurrentYear          int     `json:"current_year"`
	PreviousYear         int     `json:"previous_year"`
	CurrencyCode         string  `json:"currency_code"`
	RevenueCurrentYear   float64 `json:"revenue_current_year"`
	RevenuePreviousYear  float64 `json:"revenue_previous_year"`
	CostsCurrentYear     float64 `json:"costs_current_year"`
	CostsPreviousYear    float64 `json:"costs_previous_year"`
	ResultCurrentYear    float64 `json:"result_current_year"`
	ResultPreviousYear   float64 `json:"result_previous_year"`
	CurrentPeriod        int     `json:"current_period"`
	RevenueCurrentPeriod float64 `json:"revenue_current_period"`
	CostsCurrentPeriod   float64 `json:"costs_current_period"`
	ResultCurrentPeriod  float64 `json:"result_current_period"`
}

// GLAccountBalance is one general-ledger balance row from ReportingBalance.
type GLAccountBalance struct {
	GLAccountID            string  `json:"gl_account_id"`
	GLAccountCode          string  `json:"gl_account_code"`
	GLAccountDescription   string  `json:"gl_account_description"`
	Amount                 float64 `json:"amount"`
	AmountDebit            float64 `json:"amount_debit"`
	AmountCredit           float64 `json:"amount_credit"`
	BalanceType            string  `json:"balance_type"`
	AccountType            int     `json:"account_type"`
	AccountTypeDescription string  `json:"account_type_description"`
	ReportingYear          int     `json:"reporting_year"`
	ReportingPeriod        int     `json:"reporting_period"`
}

// BalanceSheetCategory is one aggregated line of the balance sheet.
type BalanceSheetCategory struct {
	Name         string  `json:"name"`
	Amount       float64 `json:"amount"`
	AccountCount int     `json:"account_count"`
}

// BalanceSheetSummary is the categorized balance sheet for one period.
type BalanceSheetSummary struct {
	Division         int                    `json:"division"`
	ReportingYear    int                    `json:"reporting_year"`
	ReportingPeriod  int                    `json:"reporting_period"`
	CurrencyCode     string                 `json:"currency_code"`
	TotalAssets      float64                `json:"total_assets"`
	TotalLiabilities float64                `json:"total_liabilities"`
	TotalEquity      float64                `json:"total_equity"`
	Assets           []BalanceSheetCategory `json:"assets"`
	Liabilities      []BalanceSheetCategory `json:"liabilities"`
	Equity           []BalanceSheetCategory `json:"equity"`
}

// AgingEntry is one account row of an aging receivables or payables report.
type AgingEntry struct {
	AccountID    string  `json:"account_id"`
	AccountCode  string  `json:"account_code"`
	AccountName  string  `json:"account_name"`
	TotalAmount  float64 `json:"total_amount"`
	Age0To30     float64 `json:"age_0_30"`
	Age31To60    float64 `json:"age_31_60"`
	Age61To90    float64 `json:"age_61_90"`
	AgeOver90    float64 `json:"age_over_90"`
	CurrencyCode string  `json:"currency_code"`
}

// OpenReceivable is one unpaid invoice or credit from cashflow/Receivables.
// RemainingAmount and OriginalAmount are absolute values; IsCredit carries
// the direction.
type OpenReceivable struct {
	AccountCode     string  `json:"account_code"`
	AccountName     string  `json:"account_name"`
	InvoiceNumber   int     `json:"invoice_number"`
	InvoiceDate     string  `json:"invoice_date"`
	DueDate         string  `json:"due_date"`
	OriginalAmount  float64 `json:"original_amount"`
	RemainingAmount float64 `json:"remaining_amount"`
	IsCredit        bool    `json:"is_credit"`
	Description     string  `json:"description"`
	PaymentTerms    string  `json:"payment_terms"`
	DaysOverdue     int     `json:"days_overdue"`
	Currency        string  `json:"currency"`
}

// TransactionLine is one journal entry line for a GL account.
type TransactionLine struct {
	ID                   string  `json:"id"`
	Date                 string  `json:"date"`
	FinancialYear        int     `json:"financial_year"`
	FinancialPeriod      int     `json:"financial_period"`
	GLAccountCode        string  `json:"gl_account_code"`
	GLAccountDescription string  `json:"gl_account_description"`
	Description          string  `json:"description"`
	Amount               float64 `json:"amount"`
	EntryNumber          int     `json:"entry_number"`
	JournalCode          string  `json:"journal_code"`
}

// BankTransaction is one bank entry line. Amount keeps the upstream sign:
// negative means money out, positive means money in.
type BankTransaction struct {
	ID                   string  `json:"id"`
	Date                 string  `json:"date"`
	Description          string  `json:"description"`
	Amount               float64 `json:"amount"`
	AccountCode          string  `json:"account_code"`
	AccountName          string  `json:"account_name"`
	GLAccountCode        string  `json:"gl_account_code"`
	GLAccountDescription string  `json:"gl_account_description"`
	EntryNumber          int     `json:"entry_number"`
	DocumentSubject      string  `json:"document_subject"`
	Notes                string  `json:"notes"`
	Reference            string  `json:"reference"`
}

// PurchaseInvoice is one supplier invoice header.
type PurchaseInvoice struct {
	ID                string  `json:"id"`
	InvoiceNumber     int     `json:"invoice_number"`
	InvoiceDate       string  `json:"invoice_date"`
	DueDate           string  `json:"due_date"`
	SupplierCode      string  `json:"supplier_code"`
	SupplierName      string  `json:"supplier_name"`
	Amount            float64 `json:"amount"`
	Currency          string  `json:"currency"`
	Status            int     `json:"status"`
	StatusDescription string  `json:"status_description"`
	Description       string  `json:"description"`
	PaymentTerms      string  `json:"payment_terms"`
}

// trimmed strips the whitespace padding upstream adds to code fields.
func trimmed(value string) string {
	return strings.TrimSpace(value)
}

// mapString reads a string field from a raw record, tolerating nulls.
func mapString(record map[string]any, key string) string {
	if v, ok := record[key].(string); ok {
		return v
	}
	return ""
}

// mapFloat reads a numeric field from a raw record. Upstream numbers decode
// as float64; string-typed numbers and nulls yield 0.
func mapFloat(record map[string]any, key string) float64 {
	if v, ok := record[key].(float64); ok {
		return v
	}
	return 0
}

// mapInt reads an integer field from a raw record.
func mapInt(record map[string]any, key string) int {
	if v, ok := record[key].(float64); ok {
		return int(v)
	}
	return 0
}

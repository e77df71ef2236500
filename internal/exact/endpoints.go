package exact

import "sort"

// KnownEndpoints is the curated catalog of commonly useful API endpoints,
// grouped by category. It is advisory: explore works against any path.
var KnownEndpoints = []Endpoint{
	{
		Path:        "crm/Accounts",
		Category:    "crm",
		Description: "Customer and supplier accounts",
		TypicalUse:  "Look up customer details, search for accounts by name",
	},
	{
		Path:        "crm/Contacts",
		Category:    "crm",
		Description: "Contact persons linked to accounts",
		TypicalUse:  "Find contact details for a customer",
	},
	{
		Path:        "crm/Addresses",
		Category:    "crm",
		Description: "Addresses linked to accounts",
		TypicalUse:  "Get delivery or invoice addresses",
	},
	{
		Path:        "salesinvoice/SalesInvoices",
		Category:    "sales",
		Description: "Sales invoices header data with amounts and status",
		TypicalUse:  "Revenue analysis, list invoices, check invoice status",
	},
	{
		Path:        "salesinvoice/SalesInvoiceLines",
		Category:    "sales",
		Description: "Invoice line items with project links",
		TypicalUse:  "Project-based revenue, get invoice line details",
	},
	{
		Path:        "salesorder/SalesOrders",
		Category:    "sales",
		Description: "Sales orders header data",
		TypicalUse:  "Track order status, list pending orders",
	},
	{
		Path:        "salesorder/SalesOrderLines",
		Category:    "sales",
		Description: "Line items on sales orders",
		TypicalUse:  "Get order line details",
	},
	{
		Path:        "financial/GLAccounts",
		Category:    "financial",
		Description: "General ledger accounts",
		TypicalUse:  "Look up account codes and descriptions",
	},
	{
		Path:        "financialtransaction/TransactionLines",
		Category:    "financial",
		Description: "Transaction lines (journal entries)",
		TypicalUse:  "Analyze financial transactions",
	},
	{
		Path:        "cashflow/Receivables",
		Category:    "financial",
		Description: "Outstanding receivables",
		TypicalUse:  "Check unpaid invoices, aging analysis",
	},
	{
		Path:        "cashflow/Payables",
		Category:    "financial",
		Description: "Outstanding payables",
		TypicalUse:  "Check bills to pay, cash flow planning",
	},
	{
		Path:        "budget/Budgets",
		Category:    "financial",
		Description: "Budget definitions",
		TypicalUse:  "Review budget allocations",
	},
	{
		Path:        "read/financial/ProfitLossOverview",
		Category:    "financial",
		Description: "Profit & loss summary with year-over-year comparison",
		TypicalUse:  "Get P&L overview, revenue vs costs comparison",
	},
	{
		Path:        "financial/ReportingBalance",
		Category:    "financial",
		Description: "GL account balances by reporting period",
		TypicalUse:  "Check account balances, balance sheet data",
	},
	{
		Path:        "read/financial/AgingReceivablesList",
		Category:    "financial",
		Description: "Outstanding receivables with aging buckets",
		TypicalUse:  "Analyze overdue customer invoices by age",
	},
	{
		Path:        "read/financial/AgingPayablesList",
		Category:    "financial",
		Description: "Outstanding payables with aging buckets",
		TypicalUse:  "Analyze overdue supplier invoices by age",
	},
	{
		Path:        "financial/FinancialPeriods",
		Category:    "financial",
		Description: "Fiscal year and period definitions",
		TypicalUse:  "Get period boundaries for reporting",
	},
	{
		Path:        "project/Projects",
		Category:    "project",
		Description: "Project definitions",
		TypicalUse:  "List active projects, project status",
	},
	{
		Path:        "project/TimeTransactions",
		Category:    "project",
		Description: "Time entries on projects",
		TypicalUse:  "Review logged hours, time analysis",
	},
	{
		Path:        "project/CostTransactions",
		Category:    "project",
		Description: "Cost entries on projects",
		TypicalUse:  "Track project costs",
	},
	{
		Path:        "logistics/Items",
		Category:    "logistics",
		Description: "Product/item master data",
		TypicalUse:  "Look up products, check stock items",
	},
	{
		Path:        "inventory/StockPositions",
		Category:    "logistics",
		Description: "Current stock levels",
		TypicalUse:  "Check inventory, stock availability",
	},
	{
		Path:        "purchaseorder/PurchaseOrders",
		Category:    "logistics",
		Description: "Purchase orders header data",
		TypicalUse:  "Track purchase orders",
	},
}

// EndpointsByCategory returns catalog entries in the given category, or the
// full catalog when category is empty.
func EndpointsByCategory(category string) []Endpoint {
	if category == "" {
		return KnownEndpoints
	}
	var filtered []Endpoint
	for _, ep := range KnownEndpoints {
		if ep.Category == category {
			filtered = append(filtered, ep)
		}
	}
	return filtered
}

// Categories returns the sorted set of catalog categories.
func Categories() []string {
	seen := map[string]bool{}
	var categories []string
	for _, ep := range KnownEndpoints {
		if !seen[ep.Category] {
			seen[ep.Category] = true
			categories = append(categories, ep.Category)
		}
	}
	sort.Strings(categories)
	return categories
}

const (
	categoryAssets      = "assets"
	categoryLiabilities = "liabilities"
	categoryEquity      = "equity"
	categoryProfitLoss  = "pl"
)

type accountTypeCategory struct {
	category string
	name     string
}

// accountTypeCategories maps Exact Online GL account type codes to balance
// sheet categories. P&L types are present so they can be skipped explicitly;
// unknown balance sheet types default to assets under their own description.
var accountTypeCategories = map[int]accountTypeCategory{
	10: {categoryAssets, "Cash"},
	12: {categoryAssets, "Bank"},
	14: {categoryAssets, "Credit card"},
	16: {categoryAssets, "Payment services"},
	20: {categoryAssets, "Accounts receivable"},
	21: {categoryAssets, "Prepayments"},
	26: {categoryAssets, "Prepaid expenses"},
	29: {categoryAssets, "Fixed assets"},
	30: {categoryAssets, "Other assets"},
	32: {categoryAssets, "Accumulated depreciation"},
	35: {categoryAssets, "Inventory"},
	22: {categoryLiabilities, "Accounts payable"},
	24: {categoryLiabilities, "VAT payable"},
	25: {categoryLiabilities, "Employees payable"},
	27: {categoryLiabilities, "Accrued expenses"},
	28: {categoryLiabilities, "Income taxes payable"},
	40: {categoryLiabilities, "Provisions"},
	45: {categoryEquity, "Equity"},
	60: {categoryProfitLoss, "Revenue"},
	66: {categoryProfitLoss, "Cost of goods sold"},
	70: {categoryProfitLoss, "Costs"},
	80: {categoryProfitLoss, "Results"},
	90: {categoryProfitLoss, "General"},
}

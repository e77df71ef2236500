// Package tools exposes Exact Online accounting data as MCP tools. Every
// tool is read-only; failures come back as structured fields inside the tool
// result, never as protocol errors.
package tools

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/TimPelgrim/exactonline-mcp/internal/exact"
)

// NewServer creates the MCP server with all tools registered.
func NewServer(version string, client *exact.Client, logger *slog.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "exactonline-mcp",
		Version: version,
	}, nil)
	registerTools(server, &toolset{client: client, logger: logger})
	return server
}

// toolset carries the shared dependencies of all tool handlers.
type toolset struct {
	client *exact.Client
	logger *slog.Logger
}

func boolPtr(b bool) *bool {
	return &b
}

// readOnlyAnnotations marks a tool as side-effect free against a closed
// world: the accounting data behind it.
func readOnlyAnnotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		ReadOnlyHint:   true,
		IdempotentHint: true,
		OpenWorldHint:  boolPtr(false),
	}
}

func registerTools(server *mcp.Server, ts *toolset) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_divisions",
		Description: "List all Exact Online divisions (administrations) the authenticated user can access, with the current division flagged.",
		Annotations: readOnlyAnnotations(),
	}, ts.listDivisions)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_endpoints",
		Description: "Browse the catalog of known Exact Online API endpoints, optionally filtered by category (crm, sales, financial, project, logistics).",
		Annotations: readOnlyAnnotations(),
	}, ts.listEndpoints)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "explore_endpoint",
		Description: "Fetch a small sample of raw records from any API endpoint and report the available field names. Useful for discovering an endpoint's shape before querying it.",
		Annotations: readOnlyAnnotations(),
	}, ts.exploreEndpoint)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_revenue_by_period",
		Description: "Revenue totals grouped by month, quarter or year with year-over-year comparison. Calculated from processed sales invoices only.",
		Annotations: readOnlyAnnotations(),
	}, ts.revenueByPeriod)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_revenue_by_customer",
		Description: "Customer revenue ranking with invoice counts and percentage of total, sorted by revenue descending.",
		Annotations: readOnlyAnnotations(),
	}, ts.revenueByCustomer)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_revenue_by_project",
		Description: "Project-based revenue from invoice lines, optionally enriched with logged hours from time transactions.",
		Annotations: readOnlyAnnotations(),
	}, ts.revenueByProject)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_profit_loss_overview",
		Description: "Profit and loss summary with revenue, costs and result for the current and previous year plus the current period.",
		Annotations: readOnlyAnnotations(),
	}, ts.profitLossOverview)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_balance_sheet",
		Description: "Balance sheet summary with assets, liabilities and equity aggregated per account type category.",
		Annotations: readOnlyAnnotations(),
	}, ts.balanceSheet)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_gl_account_balance",
		Description: "Balance of one general ledger account looked up by its code, optionally pinned to a reporting year and period.",
		Annotations: readOnlyAnnotations(),
	}, ts.glAccountBalance)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_gl_account_balances",
		Description: "General ledger balances with optional balance-type (B/W), account-type, year and period filters, ordered by account code.",
		Annotations: readOnlyAnnotations(),
	}, ts.glAccountBalances)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_transaction_lines",
		Description: "Journal entry lines for one general ledger account, newest first, with optional year/period or date range filters.",
		Annotations: readOnlyAnnotations(),
	}, ts.transactionLines)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_aging_receivables",
		Description: "Outstanding customer receivables per account with 0-30, 31-60, 61-90 and over-90 day aging buckets.",
		Annotations: readOnlyAnnotations(),
	}, ts.agingReceivables)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_aging_payables",
		Description: "Outstanding supplier payables per account with 0-30, 31-60, 61-90 and over-90 day aging buckets.",
		Annotations: readOnlyAnnotations(),
	}, ts.agingPayables)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_open_receivables",
		Description: "Unpaid invoices and credit notes with remaining amounts, due dates and days overdue, ordered by due date.",
		Annotations: readOnlyAnnotations(),
	}, ts.openReceivables)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_overdue_receivables",
		Description: "Unpaid invoices past their due date, sorted by days overdue descending. Supports a minimum days-overdue threshold.",
		Annotations: readOnlyAnnotations(),
	}, ts.overdueReceivables)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_bank_transactions",
		Description: "Bank entry lines newest first, with optional date range and bank GL account filters. Amounts keep their sign: negative is money out.",
		Annotations: readOnlyAnnotations(),
	}, ts.bankTransactions)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_purchase_invoices",
		Description: "Purchase invoice headers newest first, with optional date range and supplier filters. Requires the Purchase module on the division.",
		Annotations: readOnlyAnnotations(),
	}, ts.purchaseInvoices)
}

// ErrorInfo carries a structured failure inside a tool result. A zero value
// means success.
type ErrorInfo struct {
	Error      string `json:"error,omitempty"`
	Message    string `json:"message,omitempty"`
	Action     string `json:"action,omitempty"`
	RetryAfter int    `json:"retry_after_seconds,omitempty"`
}

// errorInfo converts any failure into the structured form. Typed API errors
// keep their kind and recovery action; anything else becomes upstream_error.
func (ts *toolset) errorInfo(tool string, err error) ErrorInfo {
	if apiErr, ok := exact.AsError(err); ok {
		ts.logger.Error("tool failed", "tool", tool, "kind", string(apiErr.Kind), "message", apiErr.Message)
		return ErrorInfo{
			Error:      string(apiErr.Kind),
			Message:    apiErr.Message,
			Action:     apiErr.Action,
			RetryAfter: apiErr.RetryAfter,
		}
	}
	ts.logger.Error("tool failed", "tool", tool, "error", err)
	return ErrorInfo{
		Error:   string(exact.KindUpstreamError),
		Message: err.Error(),
		Action:  "Check server logs for details",
	}
}

// resolveDivision substitutes the user's current division for a zero value.
func (ts *toolset) resolveDivision(ctx context.Context, division int) (int, error) {
	if division != 0 {
		return division, nil
	}
	return ts.client.CurrentDivision(ctx)
}

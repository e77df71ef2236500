package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/TimPelgrim/exactonline-mcp/internal/exact"
)

type bankTransactionsInput struct {
	Division      int    `json:"division,omitempty"`
	Top           int    `json:"top,omitempty"`
	StartDate     string `json:"start_date,omitempty"`
	EndDate       string `json:"end_date,omitempty"`
	GLAccountCode string `json:"gl_account_code,omitempty"`
}

type bankTransactionsOutput struct {
	ErrorInfo
	Division     int                     `json:"division,omitempty"`
	Count        int                     `json:"count"`
	TotalIn      float64                 `json:"total_in"`
	TotalOut     float64                 `json:"total_out"`
	Transactions []exact.BankTransaction `json:"transactions"`
}

func (ts *toolset) bankTransactions(ctx context.Context, _ *mcp.CallToolRequest, input bankTransactionsInput) (*mcp.CallToolResult, bankTransactionsOutput, error) {
	fail := func(err error) (*mcp.CallToolResult, bankTransactionsOutput, error) {
		return nil, bankTransactionsOutput{ErrorInfo: ts.errorInfo("get_bank_transactions", err)}, nil
	}

	if input.StartDate != "" && input.EndDate != "" {
		if err := exact.ValidateDateRange(input.StartDate, input.EndDate); err != nil {
			return fail(err)
		}
	}

	division, err := ts.resolveDivision(ctx, input.Division)
	if err != nil {
		return fail(err)
	}

	transactions, err := ts.client.FetchBankTransactions(ctx, division, input.Top, input.StartDate, input.EndDate, input.GLAccountCode)
	if err != nil {
		return fail(err)
	}
	if transactions == nil {
		transactions = []exact.BankTransaction{}
	}

	output := bankTransactionsOutput{Division: division, Count: len(transactions), Transactions: transactions}
	for _, tx := range transactions {
		if tx.Amount >= 0 {
			output.TotalIn += tx.Amount
		} else {
			output.TotalOut += tx.Amount
		}
	}
	output.TotalIn = round2(output.TotalIn)
	output.TotalOut = round2(output.TotalOut)
	return nil, output, nil
}

type purchaseInvoicesInput struct {
	Division     int    `json:"division,omitempty"`
	Top          int    `json:"top,omitempty"`
	StartDate    string `json:"start_date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`
	SupplierCode string `json:"supplier_code,omitempty"`
}

type purchaseInvoicesOutput struct {
	ErrorInfo
	Division    int                     `json:"division,omitempty"`
	Count       int                     `json:"count"`
	TotalAmount float64                 `json:"total_amount"`
	Invoices    []exact.PurchaseInvoice `json:"invoices"`
}

func (ts *toolset) purchaseInvoices(ctx context.Context, _ *mcp.CallToolRequest, input purchaseInvoicesInput) (*mcp.CallToolResult, purchaseInvoicesOutput, error) {
	fail := func(err error) (*mcp.CallToolResult, purchaseInvoicesOutput, error) {
		return nil, purchaseInvoicesOutput{ErrorInfo: ts.errorInfo("get_purchase_invoices", err)}, nil
	}

	if input.StartDate != "" && input.EndDate != "" {
		if err := exact.ValidateDateRange(input.StartDate, input.EndDate); err != nil {
			return fail(err)
		}
	}

	division, err := ts.resolveDivision(ctx, input.Division)
	if err != nil {
		return fail(err)
	}

	invoices, err := ts.client.FetchPurchaseInvoices(ctx, division, input.Top, input.StartDate, input.EndDate, input.SupplierCode)
	if err != nil {
		return fail(err)
	}
	if invoices == nil {
		invoices = []exact.PurchaseInvoice{}
	}

	output := purchaseInvoicesOutput{Division: division, Count: len(invoices), Invoices: invoices}
	for _, invoice := range invoices {
		output.TotalAmount += invoice.Amount
	}
	output.TotalAmount = round2(output.TotalAmount)
	return nil, output, nil
}

package tools

import (
	"context"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/TimPelgrim/exactonline-mcp/internal/exact"
)

type agingInput struct {
	Division int `json:"division,omitempty"`
}

type agingOutput struct {
	ErrorInfo
	Division    int                `json:"division,omitempty"`
	TotalAmount float64            `json:"total_amount"`
	Count       int                `json:"count"`
	Entries     []exact.AgingEntry `json:"entries"`
}

func (ts *toolset) agingReceivables(ctx context.Context, _ *mcp.CallToolRequest, input agingInput) (*mcp.CallToolResult, agingOutput, error) {
	return ts.agingReport(ctx, "get_aging_receivables", input.Division, ts.client.FetchAgingReceivables)
}

func (ts *toolset) agingPayables(ctx context.Context, _ *mcp.CallToolRequest, input agingInput) (*mcp.CallToolResult, agingOutput, error) {
	return ts.agingReport(ctx, "get_aging_payables", input.Division, ts.client.FetchAgingPayables)
}

func (ts *toolset) agingReport(ctx context.Context, tool string, division int, fetch func(context.Context, int) ([]exact.AgingEntry, error)) (*mcp.CallToolResult, agingOutput, error) {
	resolved, err := ts.resolveDivision(ctx, division)
	if err != nil {
		return nil, agingOutput{ErrorInfo: ts.errorInfo(tool, err)}, nil
	}
	entries, err := fetch(ctx, resolved)
	if err != nil {
		return nil, agingOutput{ErrorInfo: ts.errorInfo(tool, err)}, nil
	}
	if entries == nil {
		entries = []exact.AgingEntry{}
	}

	output := agingOutput{Division: resolved, Count: len(entries), Entries: entries}
	for _, entry := range entries {
		output.TotalAmount += entry.TotalAmount
	}
	output.TotalAmount = round2(output.TotalAmount)
	return nil, output, nil
}

type openReceivablesInput struct {
	Division    int    `json:"division,omitempty"`
	Top         int    `json:"top,omitempty"`
	AccountCode string `json:"account_code,omitempty"`
	OverdueOnly bool   `json:"overdue_only,omitempty"`
}

type openReceivablesOutput struct {
	ErrorInfo
	Division       int                    `json:"division,omitempty"`
	Count          int                    `json:"count"`
	TotalRemaining float64                `json:"total_remaining"`
	Receivables    []exact.OpenReceivable `json:"receivables"`
}

func (ts *toolset) openReceivables(ctx context.Context, _ *mcp.CallToolRequest, input openReceivablesInput) (*mcp.CallToolResult, openReceivablesOutput, error) {
	fail := func(err error) (*mcp.CallToolResult, openReceivablesOutput, error) {
		return nil, openReceivablesOutput{ErrorInfo: ts.errorInfo("get_open_receivables", err)}, nil
	}

	division, err := ts.resolveDivision(ctx, input.Division)
	if err != nil {
		return fail(err)
	}

	receivables, err := ts.client.FetchOpenReceivables(ctx, division, input.Top, input.AccountCode, input.OverdueOnly)
	if err != nil {
		return fail(err)
	}
	if receivables == nil {
		receivables = []exact.OpenReceivable{}
	}

	output := openReceivablesOutput{Division: division, Count: len(receivables), Receivables: receivables}
	for _, receivable := range receivables {
		if receivable.IsCredit {
			output.TotalRemaining -= receivable.RemainingAmount
		} else {
			output.TotalRemaining += receivable.RemainingAmount
		}
	}
	output.TotalRemaining = round2(output.TotalRemaining)
	return nil, output, nil
}

type overdueReceivablesInput struct {
	Division       int `json:"division,omitempty"`
	Top            int `json:"top,omitempty"`
	MinDaysOverdue int `json:"min_days_overdue,omitempty"`
}

type overdueReceivablesOutput struct {
	ErrorInfo
	Division       int                    `json:"division,omitempty"`
	Count          int                    `json:"count"`
	TotalRemaining float64                `json:"total_remaining"`
	Receivables    []exact.OpenReceivable `json:"receivables"`
}

func (ts *toolset) overdueReceivables(ctx context.Context, _ *mcp.CallToolRequest, input overdueReceivablesInput) (*mcp.CallToolResult, overdueReceivablesOutput, error) {
	fail := func(err error) (*mcp.CallToolResult, overdueReceivablesOutput, error) {
		return nil, overdueReceivablesOutput{ErrorInfo: ts.errorInfo("get_overdue_receivables", err)}, nil
	}

	division, err := ts.resolveDivision(ctx, input.Division)
	if err != nil {
		return fail(err)
	}

	receivables, err := ts.client.FetchOpenReceivables(ctx, division, input.Top, "", true)
	if err != nil {
		return fail(err)
	}

	filtered := make([]exact.OpenReceivable, 0, len(receivables))
	for _, receivable := range receivables {
		if receivable.DaysOverdue < input.MinDaysOverdue {
			continue
		}
		filtered = append(filtered, receivable)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].DaysOverdue > filtered[j].DaysOverdue
	})

	output := overdueReceivablesOutput{Division: division, Count: len(filtered), Receivables: filtered}
	for _, receivable := range filtered {
		if receivable.IsCredit {
			output.TotalRemaining -= receivable.RemainingAmount
		} else {
			output.TotalRemaining += receivable.RemainingAmount
		}
	}
	output.TotalRemaining = round2(output.TotalRemaining)
	return nil, output, nil
}

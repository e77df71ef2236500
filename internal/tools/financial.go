package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/TimPelgrim/exactonline-mcp/internal/exact"
)

type profitLossInput struct {
	Division int `json:"division,omitempty"`
}

type profitLossOutput struct {
	ErrorInfo
	Overview *exact.ProfitLossOverview `json:"overview,omitempty"`
}

func (ts *toolset) profitLossOverview(ctx context.Context, _ *mcp.CallToolRequest, input profitLossInput) (*mcp.CallToolResult, profitLossOutput, error) {
	division, err := ts.resolveDivision(ctx, input.Division)
	if err != nil {
		return nil, profitLossOutput{ErrorInfo: ts.errorInfo("get_profit_loss_overview", err)}, nil
	}
	overview, err := ts.client.FetchProfitLossOverview(ctx, division)
	if err != nil {
		return nil, profitLossOutput{ErrorInfo: ts.errorInfo("get_profit_loss_overview", err)}, nil
	}
	return nil, profitLossOutput{Overview: overview}, nil
}

type balanceSheetInput struct {
	Division int `json:"division,omitempty"`
	Year     int `json:"year,omitempty"`
	Period   int `json:"period,omitempty"`
}

type balanceSheetOutput struct {
	ErrorInfo
	Summary *exact.BalanceSheetSummary `json:"summary,omitempty"`
}

func (ts *toolset) balanceSheet(ctx context.Context, _ *mcp.CallToolRequest, input balanceSheetInput) (*mcp.CallToolResult, balanceSheetOutput, error) {
	fail := func(err error) (*mcp.CallToolResult, balanceSheetOutput, error) {
		return nil, balanceSheetOutput{ErrorInfo: ts.errorInfo("get_balance_sheet", err)}, nil
	}

	division, err := ts.resolveDivision(ctx, input.Division)
	if err != nil {
		return fail(err)
	}
	balances, err := ts.client.FetchBalanceSheetBalances(ctx, division, input.Year, input.Period)
	if err != nil {
		return fail(err)
	}

	year, period := input.Year, input.Period
	if year == 0 || period == 0 {
		// Default to the latest (year, period) pair the books contain, so
		// the period always belongs to the year it is reported under.
		derivedYear, derivedPeriod := 0, 0
		for _, balance := range balances {
			switch {
			case balance.ReportingYear > derivedYear:
				derivedYear = balance.ReportingYear
				derivedPeriod = balance.ReportingPeriod
			case balance.ReportingYear == derivedYear && balance.ReportingPeriod > derivedPeriod:
				derivedPeriod = balance.ReportingPeriod
			}
		}
		if year == 0 {
			year = derivedYear
		}
		if period == 0 {
			period = derivedPeriod
		}
	}

	summary := exact.AggregateBalanceSheet(balances, division, year, period)
	return nil, balanceSheetOutput{Summary: &summary}, nil
}

type glAccountBalanceInput struct {
	AccountCode string `json:"account_code"`
	Division    int    `json:"division,omitempty"`
	Year        int    `json:"year,omitempty"`
	Period      int    `json:"period,omitempty"`
}

type glAccountBalanceOutput struct {
	ErrorInfo
	AccountCode        string                  `json:"account_code,omitempty"`
	AccountDescription string                  `json:"account_description,omitempty"`
	BalanceType        string                  `json:"balance_type,omitempty"`
	Balance            *exact.GLAccountBalance `json:"balance,omitempty"`
}

func (ts *toolset) glAccountBalance(ctx context.Context, _ *mcp.CallToolRequest, input glAccountBalanceInput) (*mcp.CallToolResult, glAccountBalanceOutput, error) {
	fail := func(err error) (*mcp.CallToolResult, glAccountBalanceOutput, error) {
		return nil, glAccountBalanceOutput{ErrorInfo: ts.errorInfo("get_gl_account_balance", err)}, nil
	}

	code := strings.TrimSpace(input.AccountCode)
	if code == "" {
		return fail(exact.NewInvalidParameter("account_code is required"))
	}

	division, err := ts.resolveDivision(ctx, input.Division)
	if err != nil {
		return fail(err)
	}

	account, err := ts.client.FetchGLAccountByCode(ctx, division, code)
	if err != nil {
		return fail(err)
	}
	if account == nil {
		return fail(exact.NewInvalidParameter(fmt.Sprintf("GL account %s not found", code)))
	}

	accountID, _ := account["ID"].(string)
	balance, err := ts.client.FetchReportingBalance(ctx, division, accountID, input.Year, input.Period)
	if err != nil {
		return fail(err)
	}

	output := glAccountBalanceOutput{
		AccountCode: code,
		Balance:     balance,
	}
	if description, ok := account["Description"].(string); ok {
		output.AccountDescription = description
	}
	if balanceType, ok := account["BalanceType"].(string); ok {
		output.BalanceType = balanceType
	}
	return nil, output, nil
}

type glAccountBalancesInput struct {
	Division    int    `json:"division,omitempty"`
	BalanceType string `json:"balance_type,omitempty"`
	AccountType int    `json:"account_type,omitempty"`
	Year        int    `json:"year,omitempty"`
	Period      int    `json:"period,omitempty"`
}

type glAccountBalancesOutput struct {
	ErrorInfo
	Division int                      `json:"division,omitempty"`
	Count    int                      `json:"count"`
	Balances []exact.GLAccountBalance `json:"balances"`
}

func (ts *toolset) glAccountBalances(ctx context.Context, _ *mcp.CallToolRequest, input glAccountBalancesInput) (*mcp.CallToolResult, glAccountBalancesOutput, error) {
	fail := func(err error) (*mcp.CallToolResult, glAccountBalancesOutput, error) {
		return nil, glAccountBalancesOutput{ErrorInfo: ts.errorInfo("get_gl_account_balances", err)}, nil
	}

	balanceType := strings.ToUpper(strings.TrimSpace(input.BalanceType))
	if balanceType != "" && balanceType != "B" && balanceType != "W" {
		return fail(exact.NewInvalidParameter("balance_type must be 'B' (balance sheet) or 'W' (profit and loss)"))
	}

	division, err := ts.resolveDivision(ctx, input.Division)
	if err != nil {
		return fail(err)
	}

	balances, err := ts.client.FetchFilteredBalances(ctx, division, balanceType, input.AccountType, input.Year, input.Period)
	if err != nil {
		return fail(err)
	}
	if balances == nil {
		balances = []exact.GLAccountBalance{}
	}
	return nil, glAccountBalancesOutput{Division: division, Count: len(balances), Balances: balances}, nil
}

type transactionLinesInput struct {
	AccountCode string `json:"account_code"`
	Division    int    `json:"division,omitempty"`
	Year        int    `json:"year,omitempty"`
	Period      int    `json:"period,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

type transactionLinesOutput struct {
	ErrorInfo
	Division    int                     `json:"division,omitempty"`
	AccountCode string                  `json:"account_code,omitempty"`
	Count       int                     `json:"count"`
	Lines       []exact.TransactionLine `json:"lines"`
}

func (ts *toolset) transactionLines(ctx context.Context, _ *mcp.CallToolRequest, input transactionLinesInput) (*mcp.CallToolResult, transactionLinesOutput, error) {
	fail := func(err error) (*mcp.CallToolResult, transactionLinesOutput, error) {
		return nil, transactionLinesOutput{ErrorInfo: ts.errorInfo("get_transaction_lines", err)}, nil
	}

	code := strings.TrimSpace(input.AccountCode)
	if code == "" {
		return fail(exact.NewInvalidParameter("account_code is required"))
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

	account, err := ts.client.FetchGLAccountByCode(ctx, division, code)
	if err != nil {
		return fail(err)
	}
	if account == nil {
		return fail(exact.NewInvalidParameter(fmt.Sprintf("GL account %s not found", code)))
	}
	accountID, _ := account["ID"].(string)

	lines, err := ts.client.FetchTransactionLines(ctx, division, accountID, input.Year, input.Period, input.StartDate, input.EndDate, input.Limit)
	if err != nil {
		return fail(err)
	}
	if lines == nil {
		lines = []exact.TransactionLine{}
	}
	return nil, transactionLinesOutput{
		Division:    division,
		AccountCode: code,
		Count:       len(lines),
		Lines:       lines,
	}, nil
}

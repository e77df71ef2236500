package tools

import (
	"context"
	"math"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/TimPelgrim/exactonline-mcp/internal/exact"
)

type revenueByPeriodInput struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	GroupBy   string `json:"group_by,omitempty"`
	Division  int    `json:"division,omitempty"`
}

type revenueByPeriodOutput struct {
	ErrorInfo
	Division      int                   `json:"division,omitempty"`
	StartDate     string                `json:"start_date,omitempty"`
	EndDate       string                `json:"end_date,omitempty"`
	GroupBy       string                `json:"group_by,omitempty"`
	TotalRevenue  float64               `json:"total_revenue"`
	TotalInvoices int                   `json:"total_invoices"`
	Periods       []exact.RevenuePeriod `json:"periods"`
}

func (ts *toolset) revenueByPeriod(ctx context.Context, _ *mcp.CallToolRequest, input revenueByPeriodInput) (*mcp.CallToolResult, revenueByPeriodOutput, error) {
	fail := func(err error) (*mcp.CallToolResult, revenueByPeriodOutput, error) {
		return nil, revenueByPeriodOutput{ErrorInfo: ts.errorInfo("get_revenue_by_period", err)}, nil
	}

	groupBy := input.GroupBy
	if groupBy == "" {
		groupBy = exact.GroupByMonth
	}
	if err := exact.ValidateDateRange(input.StartDate, input.EndDate); err != nil {
		return fail(err)
	}
	if err := exact.ValidateGroupBy(groupBy); err != nil {
		return fail(err)
	}

	division, err := ts.resolveDivision(ctx, input.Division)
	if err != nil {
		return fail(err)
	}

	periods, err := exact.PeriodBoundaries(input.StartDate, input.EndDate, groupBy)
	if err != nil {
		return fail(err)
	}

	invoices, err := ts.client.FetchInvoices(ctx, division, input.StartDate, input.EndDate)
	if err != nil {
		return fail(err)
	}

	output := revenueByPeriodOutput{
		Division:  division,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
		GroupBy:   groupBy,
		Periods:   []exact.RevenuePeriod{},
	}

	// No matching invoices at all: report zero totals without a period
	// breakdown rather than a run of empty periods.
	if len(invoices) == 0 {
		return nil, output, nil
	}

	prevStart, err := exact.ShiftDateByYear(input.StartDate)
	if err != nil {
		return fail(err)
	}
	prevEnd, err := exact.ShiftDateByYear(input.EndDate)
	if err != nil {
		return fail(err)
	}
	prevPeriods, err := exact.PeriodBoundaries(prevStart, prevEnd, groupBy)
	if err != nil {
		return fail(err)
	}
	prevInvoices, err := ts.client.FetchInvoices(ctx, division, prevStart, prevEnd)
	if err != nil {
		return fail(err)
	}

	grouped := exact.GroupInvoicesByPeriod(invoices, periods)
	prevGrouped := exact.GroupInvoicesByPeriod(prevInvoices, prevPeriods)

	for _, period := range periods {
		revenue, count := exact.PeriodRevenue(grouped[period.Key])
		output.TotalRevenue += revenue
		output.TotalInvoices += count

		entry := exact.RevenuePeriod{
			PeriodKey:    period.Key,
			StartDate:    period.Start,
			EndDate:      period.End,
			Revenue:      revenue,
			InvoiceCount: count,
		}

		prevKey := exact.PreviousYearKey(period.Key, groupBy)
		if prevRevenue, _ := exact.PeriodRevenue(prevGrouped[prevKey]); prevRevenue != 0 {
			entry.PreviousRevenue = &prevRevenue
			change := round2((revenue - prevRevenue) / prevRevenue * 100)
			entry.ChangePercentage = &change
		}

		output.Periods = append(output.Periods, entry)
	}
	output.TotalRevenue = round2(output.TotalRevenue)

	return nil, output, nil
}

type revenueByCustomerInput struct {
	Division  int    `json:"division,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Top       int    `json:"top,omitempty"`
}

type revenueByCustomerOutput struct {
	ErrorInfo
	Division      int                     `json:"division,omitempty"`
	StartDate     string                  `json:"start_date,omitempty"`
	EndDate       string                  `json:"end_date,omitempty"`
	TotalRevenue  float64                 `json:"total_revenue"`
	TotalInvoices int                     `json:"total_invoices"`
	CustomerCount int                     `json:"customer_count"`
	Customers     []exact.CustomerRevenue `json:"customers"`
}

// customerTopCap bounds the ranking size; it is deliberately tighter than
// the upstream page cap.
const customerTopCap = 100

func (ts *toolset) revenueByCustomer(ctx context.Context, _ *mcp.CallToolRequest, input revenueByCustomerInput) (*mcp.CallToolResult, revenueByCustomerOutput, error) {
	fail := func(err error) (*mcp.CallToolResult, revenueByCustomerOutput, error) {
		return nil, revenueByCustomerOutput{ErrorInfo: ts.errorInfo("get_revenue_by_customer", err)}, nil
	}

	top := input.Top
	switch {
	case top < 1:
		top = 10
	case top > customerTopCap:
		top = customerTopCap
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

	invoices, err := ts.client.FetchInvoices(ctx, division, input.StartDate, input.EndDate)
	if err != nil {
		return fail(err)
	}

	customers := exact.AggregateByCustomer(invoices)

	output := revenueByCustomerOutput{
		Division:      division,
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		CustomerCount: len(customers),
		Customers:     []exact.CustomerRevenue{},
	}
	for _, customer := range customers {
		output.TotalRevenue += customer.Revenue
		output.TotalInvoices += customer.InvoiceCount
	}
	output.TotalRevenue = round2(output.TotalRevenue)

	if len(customers) > top {
		customers = customers[:top]
	}
	output.Customers = customers
	return nil, output, nil
}

type revenueByProjectInput struct {
	Division     int    `json:"division,omitempty"`
	StartDate    string `json:"start_date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`
	IncludeHours *bool  `json:"include_hours,omitempty"`
}

type revenueByProjectOutput struct {
	ErrorInfo
	Division     int                    `json:"division,omitempty"`
	StartDate    string                 `json:"start_date,omitempty"`
	EndDate      string                 `json:"end_date,omitempty"`
	TotalRevenue float64                `json:"total_revenue"`
	ProjectCount int                    `json:"project_count"`
	Projects     []exact.ProjectRevenue `json:"projects"`
}

func (ts *toolset) revenueByProject(ctx context.Context, _ *mcp.CallToolRequest, input revenueByProjectInput) (*mcp.CallToolResult, revenueByProjectOutput, error) {
	fail := func(err error) (*mcp.CallToolResult, revenueByProjectOutput, error) {
		return nil, revenueByProjectOutput{ErrorInfo: ts.errorInfo("get_revenue_by_project", err)}, nil
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

	lines, err := ts.client.FetchInvoiceLinesWithProjects(ctx, division)
	if err != nil {
		return fail(err)
	}
	projects, err := ts.client.FetchProjects(ctx, division)
	if err != nil {
		return fail(err)
	}

	var hours map[string]float64
	if input.IncludeHours == nil || *input.IncludeHours {
		hours, err = ts.client.FetchProjectHours(ctx, division, input.StartDate, input.EndDate)
		if err != nil {
			return fail(err)
		}
	}

	ranked := exact.AggregateByProject(lines, projects, hours)

	output := revenueByProjectOutput{
		Division:     division,
		StartDate:    input.StartDate,
		EndDate:      input.EndDate,
		ProjectCount: len(ranked),
		Projects:     ranked,
	}
	for _, project := range ranked {
		output.TotalRevenue += project.Revenue
	}
	output.TotalRevenue = round2(output.TotalRevenue)
	return nil, output, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

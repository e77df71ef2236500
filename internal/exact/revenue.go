package exact

import (
	"context"
	"math"
	"sort"
)

// processedInvoiceStatus marks finalized sales invoices. Draft and open
// invoices are excluded from all revenue figures.
const processedInvoiceStatus = 50

// Invoice is a processed sales invoice header. Date is ISO, already
// normalized from the wire format.
type Invoice struct {
	ID           string
	Date         string
	Amount       float64
	CustomerID   string
	CustomerName string
}

// InvoiceLine is one sales invoice line that references a project.
type InvoiceLine struct {
	ID        string
	InvoiceID string
	ProjectID string
	Amount    float64
}

// Project is project master data.
type Project struct {
	ID         string
	Code       string
	Name       string
	ClientID   string
	ClientName string
}

// FetchInvoices returns all processed sales invoices, optionally restricted
// to an invoice date range. Raw records are converted to typed invoices at
// this boundary; rows without a parseable date are dropped.
func (c *Client) FetchInvoices(ctx context.Context, division int, startDate, endDate string) ([]Invoice, error) {
	filter := NewFilter().EqInt("Status", processedInvoiceStatus)
	if startDate != "" && endDate != "" {
		filter = filter.DateGE("InvoiceDate", startDate).DateLE("InvoiceDate", endDate)
	}
	expr, err := filter.Build()
	if err != nil {
		return nil, err
	}

	records, err := c.GetAllPaginated(ctx, division, "salesinvoice/SalesInvoices", QuerySpec{
		Select: []string{"InvoiceID", "InvoiceDate", "AmountDC", "InvoiceTo", "InvoiceToName"},
		Filter: expr,
	})
	if err != nil {
		return nil, err
	}

	invoices := make([]Invoice, 0, len(records))
	for _, record := range records {
		isoDate, err := ParseWireDate(mapString(record, "InvoiceDate"))
		if err != nil || isoDate == "" {
			continue
		}
		invoices = append(invoices, Invoice{
			ID:           mapString(record, "InvoiceID"),
			Date:         isoDate,
			Amount:       mapFloat(record, "AmountDC"),
			CustomerID:   mapString(record, "InvoiceTo"),
			CustomerName: mapString(record, "InvoiceToName"),
		})
	}
	return invoices, nil
}

// GroupInvoicesByPeriod buckets invoices into the given periods by invoice
// date. Every period key is present in the result, empty periods included.
func GroupInvoicesByPeriod(invoices []Invoice, periods []Period) map[string][]Invoice {
	grouped := make(map[string][]Invoice, len(periods))
	for _, p := range periods {
		grouped[p.Key] = nil
	}

	for _, invoice := range invoices {
		for _, p := range periods {
			if invoice.Date >= p.Start && invoice.Date <= p.End {
				grouped[p.Key] = append(grouped[p.Key], invoice)
				break
			}
		}
	}
	return grouped
}

// PeriodRevenue sums invoice amounts, rounded to cents.
func PeriodRevenue(invoices []Invoice) (float64, int) {
	total := 0.0
	for _, invoice := range invoices {
		total += invoice.Amount
	}
	return round2(total), len(invoices)
}

// AggregateByCustomer rolls invoices up per customer, sorted by revenue
// descending. Percentages are relative to the total over all customers.
func AggregateByCustomer(invoices []Invoice) []CustomerRevenue {
	type bucket struct {
		name    string
		revenue float64
		count   int
	}
	buckets := map[string]*bucket{}
	totalRevenue := 0.0

	for _, invoice := range invoices {
		customerID := invoice.CustomerID
		if customerID == "" {
			customerID = "unknown"
		}
		customerName := invoice.CustomerName
		if customerName == "" {
			customerName = "Unknown"
		}

		b, ok := buckets[customerID]
		if !ok {
			b = &bucket{}
			buckets[customerID] = b
		}
		b.name = customerName
		b.revenue += invoice.Amount
		b.count++
		totalRevenue += invoice.Amount
	}

	customers := make([]CustomerRevenue, 0, len(buckets))
	for id, b := range buckets {
		pct := 0.0
		if totalRevenue > 0 {
			pct = b.revenue / totalRevenue * 100
		}
		customers = append(customers, CustomerRevenue{
			CustomerID:        id,
			CustomerName:      b.name,
			Revenue:           round2(b.revenue),
			InvoiceCount:      b.count,
			PercentageOfTotal: round2(pct),
		})
	}

	sort.Slice(customers, func(i, j int) bool { return customers[i].Revenue > customers[j].Revenue })
	return customers
}

// FetchInvoiceLinesWithProjects returns invoice lines that reference a
// project. The endpoint has no date field, so date scoping happens on the
// invoice side.
func (c *Client) FetchInvoiceLinesWithProjects(ctx context.Context, division int) ([]InvoiceLine, error) {
	expr, err := NewFilter().NotNull("Project").Build()
	if err != nil {
		return nil, err
	}
	records, err := c.GetAllPaginated(ctx, division, "salesinvoice/SalesInvoiceLines", QuerySpec{
		Select: []string{"ID", "InvoiceID", "Project", "AmountDC"},
		Filter: expr,
	})
	if err != nil {
		return nil, err
	}

	lines := make([]InvoiceLine, 0, len(records))
	for _, record := range records {
		lines = append(lines, InvoiceLine{
			ID:        mapString(record, "ID"),
			InvoiceID: mapString(record, "InvoiceID"),
			ProjectID: mapString(record, "Project"),
			Amount:    mapFloat(record, "AmountDC"),
		})
	}
	return lines, nil
}

// FetchProjects returns project metadata keyed by project GUID.
func (c *Client) FetchProjects(ctx context.Context, division int) (map[string]Project, error) {
	records, err := c.GetAllPaginated(ctx, division, "project/Projects", QuerySpec{
		Select: []string{"ID", "Code", "Description", "Account", "AccountName"},
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Project, len(records))
	for _, record := range records {
		id := mapString(record, "ID")
		if id == "" {
			continue
		}
		byID[id] = Project{
			ID:         id,
			Code:       mapString(record, "Code"),
			Name:       mapString(record, "Description"),
			ClientID:   mapString(record, "Account"),
			ClientName: mapString(record, "AccountName"),
		}
	}
	return byID, nil
}

// FetchProjectHours sums logged hours per project GUID, optionally restricted
// to a date range.
func (c *Client) FetchProjectHours(ctx context.Context, division int, startDate, endDate string) (map[string]float64, error) {
	filter := NewFilter()
	if startDate != "" && endDate != "" {
		filter = filter.DateGE("Date", startDate).DateLE("Date", endDate)
	}
	expr, err := filter.Build()
	if err != nil {
		return nil, err
	}

	records, err := c.GetAllPaginated(ctx, division, "project/TimeTransactions", QuerySpec{
		Select: []string{"ID", "Project", "Quantity"},
		Filter: expr,
	})
	if err != nil {
		return nil, err
	}

	hours := map[string]float64{}
	for _, record := range records {
		if projectID := mapString(record, "Project"); projectID != "" {
			hours[projectID] += mapFloat(record, "Quantity")
		}
	}
	return hours, nil
}

// AggregateByProject rolls invoice lines up per project, enriched with
// project metadata and optional hours, sorted by revenue descending.
func AggregateByProject(lines []InvoiceLine, projects map[string]Project, hours map[string]float64) []ProjectRevenue {
	type bucket struct {
		revenue float64
		count   int
	}
	buckets := map[string]*bucket{}

	for _, line := range lines {
		if line.ProjectID == "" {
			continue
		}
		b, ok := buckets[line.ProjectID]
		if !ok {
			b = &bucket{}
			buckets[line.ProjectID] = b
		}
		b.revenue += line.Amount
		b.count++
	}

	result := make([]ProjectRevenue, 0, len(buckets))
	for projectID, b := range buckets {
		project := projects[projectID]
		name := project.Name
		if name == "" {
			name = "Unknown Project"
		}

		entry := ProjectRevenue{
			ProjectID:    projectID,
			ProjectCode:  project.Code,
			ProjectName:  name,
			Revenue:      round2(b.revenue),
			InvoiceCount: b.count,
		}
		if project.ClientID != "" {
			clientID := project.ClientID
			entry.ClientID = &clientID
		}
		if project.ClientName != "" {
			clientName := project.ClientName
			entry.ClientName = &clientName
		}
		if hours != nil {
			if h, ok := hours[projectID]; ok {
				rounded := round2(h)
				entry.Hours = &rounded
			}
		}
		result = append(result, entry)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Revenue > result[j].Revenue })
	return result
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package exact

import (
	"context"
	"math"
	"sort"
	"time"
)

// reportingBalanceSelect is the field set every ReportingBalance query uses.
var reportingBalanceSelect = []string{
	"ID", "GLAccountID", "GLAccountCode", "GLAccountDescription",
	"Amount", "AmountDebit", "AmountCredit",
	"BalanceType", "Type", "TypeDescription",
	"ReportingYear", "ReportingPeriod",
}

// FetchProfitLossOverview returns the upstream P&L summary. When the
// endpoint returns no rows (a fresh administration) a zeroed overview for
// the current calendar year comes back instead of an error.
func (c *Client) FetchProfitLossOverview(ctx context.Context, division int) (*ProfitLossOverview, error) {
	records, err := c.Get(ctx, division, "read/financial/ProfitLossOverview", QuerySpec{})
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		year := c.now().Year()
		return &ProfitLossOverview{
			Division:      division,
			CurrentYear:   year,
			PreviousYear:  year - 1,
			CurrencyCode:  "EUR",
			CurrentPeriod: 1,
		}, nil
	}

	record := records[0]
	currency := mapString(record, "CurrencyCode")
	if currency == "" {
		currency = "EUR"
	}
	return &ProfitLossOverview{
		Division:             division,
		CurrentYear:          mapInt(record, "CurrentYear"),
		PreviousYear:         mapInt(record, "PreviousYear"),
		CurrencyCode:         currency,
		RevenueCurrentYear:   mapFloat(record, "RevenueCurrentYear"),
		RevenuePreviousYear:  mapFloat(record, "RevenuePreviousYear"),
		CostsCurrentYear:     mapFloat(record, "CostsCurrentYear"),
		CostsPreviousYear:    mapFloat(record, "CostsPreviousYear"),
		ResultCurrentYear:    mapFloat(record, "ResultCurrentYear"),
		ResultPreviousYear:   mapFloat(record, "ResultPreviousYear"),
		CurrentPeriod:        mapInt(record, "CurrentPeriod"),
		RevenueCurrentPeriod: mapFloat(record, "RevenueCurrentPeriod"),
		CostsCurrentPeriod:   mapFloat(record, "CostsCurrentPeriod"),
		ResultCurrentPeriod:  mapFloat(record, "ResultCurrentPeriod"),
	}, nil
}

// FetchGLAccountByCode looks up one general ledger account. Returns nil when
// no account matches the code.
func (c *Client) FetchGLAccountByCode(ctx context.Context, division int, accountCode string) (map[string]any, error) {
	expr, err := NewFilter().EqString("Code", accountCode).Build()
	if err != nil {
		return nil, err
	}

	records, err := c.Get(ctx, division, "financial/GLAccounts", QuerySpec{
		Select: []string{"ID", "Code", "Description", "BalanceType", "Type", "TypeDescription"},
		Filter: expr,
		Top:    1,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// FetchReportingBalance returns the most recent balance row for one GL
// account, optionally pinned to a year and period. Returns nil when the
// account has no balance rows.
func (c *Client) FetchReportingBalance(ctx context.Context, division int, glAccountID string, year, period int) (*GLAccountBalance, error) {
	filter := NewFilter().EqGUID("GLAccountID", glAccountID)
	if year > 0 {
		filter = filter.EqInt("ReportingYear", year)
	}
	if period > 0 {
		filter = filter.EqInt("ReportingPeriod", period)
	}
	expr, err := filter.Build()
	if err != nil {
		return nil, err
	}

	records, err := c.Get(ctx, division, "financial/ReportingBalance", QuerySpec{
		Select:  reportingBalanceSelect,
		Filter:  expr,
		Top:     1,
		OrderBy: "ReportingYear desc,ReportingPeriod desc",
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	balance := balanceFromRecord(records[0])
	return &balance, nil
}

// FetchBalanceSheetBalances returns all balance sheet rows (BalanceType 'B'),
// optionally pinned to a year and period.
func (c *Client) FetchBalanceSheetBalances(ctx context.Context, division int, year, period int) ([]GLAccountBalance, error) {
	filter := NewFilter().EqString("BalanceType", "B")
	if year > 0 {
		filter = filter.EqInt("ReportingYear", year)
	}
	if period > 0 {
		filter = filter.EqInt("ReportingPeriod", period)
	}
	expr, err := filter.Build()
	if err != nil {
		return nil, err
	}

	records, err := c.GetAllPaginated(ctx, division, "financial/ReportingBalance", QuerySpec{
		Select: reportingBalanceSelect,
		Filter: expr,
	})
	if err != nil {
		return nil, err
	}
	return balancesFromRecords(records), nil
}

// FetchFilteredBalances returns GL balances with optional balance-type,
// account-type, year and period filters, ordered by account code.
func (c *Client) FetchFilteredBalances(ctx context.Context, division int, balanceType string, accountType, year, period int) ([]GLAccountBalance, error) {
	filter := NewFilter()
	if balanceType != "" {
		filter = filter.EqString("BalanceType", balanceType)
	}
	if accountType > 0 {
		filter = filter.EqInt("Type", accountType)
	}
	if year > 0 {
		filter = filter.EqInt("ReportingYear", year)
	}
	if period > 0 {
		filter = filter.EqInt("ReportingPeriod", period)
	}
	expr, err := filter.Build()
	if err != nil {
		return nil, err
	}

	records, err := c.GetAllPaginated(ctx, division, "financial/ReportingBalance", QuerySpec{
		Select:  reportingBalanceSelect,
		Filter:  expr,
		OrderBy: "GLAccountCode",
	})
	if err != nil {
		return nil, err
	}
	return balancesFromRecords(records), nil
}

func balanceFromRecord(record map[string]any) GLAccountBalance {
	return GLAccountBalance{
		GLAccountID:            mapString(record, "GLAccountID"),
		GLAccountCode:          mapString(record, "GLAccountCode"),
		GLAccountDescription:   mapString(record, "GLAccountDescription"),
		Amount:                 mapFloat(record, "Amount"),
		AmountDebit:            mapFloat(record, "AmountDebit"),
		AmountCredit:           mapFloat(record, "AmountCredit"),
		BalanceType:            mapString(record, "BalanceType"),
		AccountType:            mapInt(record, "Type"),
		AccountTypeDescription: mapString(record, "TypeDescription"),
		ReportingYear:          mapInt(record, "ReportingYear"),
		ReportingPeriod:        mapInt(record, "ReportingPeriod"),
	}
}

func balancesFromRecords(records []map[string]any) []GLAccountBalance {
	balances := make([]GLAccountBalance, 0, len(records))
	for _, record := range records {
		balances = append(balances, balanceFromRecord(record))
	}
	return balances
}

// AggregateBalanceSheet groups balance rows into assets, liabilities and
// equity using the account type table. P&L accounts are skipped; unknown
// types land under assets keyed by their type description. Category lists
// are sorted by amount descending.
func AggregateBalanceSheet(balances []GLAccountBalance, division, year, period int) BalanceSheetSummary {
	type bucket struct {
		category string
		name     string
		amount   float64
		count    int
	}
	buckets := map[string]*bucket{}

	for _, balance := range balances {
		category, name := categorizeAccountType(balance.AccountType, balance.AccountTypeDescription)
		if category == categoryProfitLoss {
			continue
		}
		key := category + ":" + name
		b, ok := buckets[key]
		if !ok {
			b = &bucket{category: category, name: name}
			buckets[key] = b
		}
		b.amount += balance.Amount
		b.count++
	}

	var assets, liabilities, equity []BalanceSheetCategory
	for _, b := range buckets {
		entry := BalanceSheetCategory{
			Name:         b.name,
			Amount:       round2(b.amount),
			AccountCount: b.count,
		}
		switch b.category {
		case categoryAssets:
			assets = append(assets, entry)
		case categoryLiabilities:
			liabilities = append(liabilities, entry)
		case categoryEquity:
			equity = append(equity, entry)
		}
	}

	byAmountDesc := func(categories []BalanceSheetCategory) {
		sort.Slice(categories, func(i, j int) bool { return categories[i].Amount > categories[j].Amount })
	}
	byAmountDesc(assets)
	byAmountDesc(liabilities)
	byAmountDesc(equity)

	return BalanceSheetSummary{
		Division:         division,
		ReportingYear:    year,
		ReportingPeriod:  period,
		CurrencyCode:     "EUR",
		TotalAssets:      round2(sumCategories(assets)),
		TotalLiabilities: round2(sumCategories(liabilities)),
		TotalEquity:      round2(sumCategories(equity)),
		Assets:           assets,
		Liabilities:      liabilities,
		Equity:           equity,
	}
}

func categorizeAccountType(accountType int, typeDescription string) (string, string) {
	if info, ok := accountTypeCategories[accountType]; ok {
		return info.category, info.name
	}
	if typeDescription == "" {
		typeDescription = "Unknown"
	}
	return categoryAssets, typeDescription
}

func sumCategories(categories []BalanceSheetCategory) float64 {
	total := 0.0
	for _, c := range categories {
		total += c.Amount
	}
	return total
}

// FetchAgingReceivables returns the receivables aging report, one row per
// customer with 0-30/31-60/61-90/>90 day buckets.
func (c *Client) FetchAgingReceivables(ctx context.Context, division int) ([]AgingEntry, error) {
	return c.fetchAgingList(ctx, division, "read/financial/AgingReceivablesList")
}

// FetchAgingPayables returns the payables aging report, one row per supplier.
func (c *Client) FetchAgingPayables(ctx context.Context, division int) ([]AgingEntry, error) {
	return c.fetchAgingList(ctx, division, "read/financial/AgingPayablesList")
}

func (c *Client) fetchAgingList(ctx context.Context, division int, endpoint string) ([]AgingEntry, error) {
	records, err := c.Get(ctx, division, endpoint, QuerySpec{})
	if err != nil {
		return nil, err
	}

	entries := make([]AgingEntry, 0, len(records))
	for _, record := range records {
		currency := mapString(record, "CurrencyCode")
		if currency == "" {
			currency = "EUR"
		}
		entries = append(entries, AgingEntry{
			AccountID:    mapString(record, "AccountId"),
			AccountCode:  mapString(record, "AccountCode"),
			AccountName:  mapString(record, "AccountName"),
			TotalAmount:  mapFloat(record, "TotalAmount"),
			Age0To30:     mapFloat(record, "AgeGroup1Amount"),
			Age31To60:    mapFloat(record, "AgeGroup2Amount"),
			Age61To90:    mapFloat(record, "AgeGroup3Amount"),
			AgeOver90:    mapFloat(record, "AgeGroup4Amount"),
			CurrencyCode: currency,
		})
	}
	return entries, nil
}

// FetchOpenReceivables returns unpaid invoices and credits. A negative
// upstream AmountDC means money owed to us; it is exposed as a positive
// remaining amount with IsCredit false, positive amounts become credits.
func (c *Client) FetchOpenReceivables(ctx context.Context, division, top int, accountCode string, overdueOnly bool) ([]OpenReceivable, error) {
	today := c.now().UTC().Format(isoDateLayout)

	filter := NewFilter().EqBool("IsFullyPaid", false)
	if accountCode != "" {
		filter = filter.EqTrimmedString("AccountCode", accountCode)
	}
	if overdueOnly {
		filter = filter.DateLT("DueDate", today)
	}
	expr, err := filter.Build()
	if err != nil {
		return nil, err
	}

	if top <= 0 {
		top = DefaultTop
	}
	records, err := c.Get(ctx, division, "cashflow/Receivables", QuerySpec{
		Select: []string{
			"AccountCode", "AccountName", "InvoiceNumber", "InvoiceDate", "DueDate",
			"TransactionAmountDC", "AmountDC", "Description",
			"PaymentConditionDescription", "Currency",
		},
		Filter:  expr,
		Top:     top,
		OrderBy: "DueDate",
	})
	if err != nil {
		return nil, err
	}

	receivables := make([]OpenReceivable, 0, len(records))
	for _, record := range records {
		invoiceDate, _ := ParseWireDate(mapString(record, "InvoiceDate"))
		dueDate, _ := ParseWireDate(mapString(record, "DueDate"))

		daysOverdue := 0
		if dueDate != "" {
			if due, err := time.Parse(isoDateLayout, dueDate); err == nil {
				now, _ := time.Parse(isoDateLayout, today)
				daysOverdue = int(now.Sub(due).Hours() / 24)
			}
		}

		amount := mapFloat(record, "AmountDC")
		original := mapFloat(record, "TransactionAmountDC")
		currency := mapString(record, "Currency")
		if currency == "" {
			currency = "EUR"
		}

		receivables = append(receivables, OpenReceivable{
			AccountCode:     trimmed(mapString(record, "AccountCode")),
			AccountName:     mapString(record, "AccountName"),
			InvoiceNumber:   mapInt(record, "InvoiceNumber"),
			InvoiceDate:     invoiceDate,
			DueDate:         dueDate,
			OriginalAmount:  math.Abs(original),
			RemainingAmount: math.Abs(amount),
			IsCredit:        amount > 0,
			Description:     mapString(record, "Description"),
			PaymentTerms:    mapString(record, "PaymentConditionDescription"),
			DaysOverdue:     daysOverdue,
			Currency:        currency,
		})
	}
	return receivables, nil
}

// FetchTransactionLines returns journal entry lines for one GL account,
// newest first, with optional year/period and date range filters.
func (c *Client) FetchTransactionLines(ctx context.Context, division int, glAccountID string, year, period int, startDate, endDate string, limit int) ([]TransactionLine, error) {
	filter := NewFilter().EqGUID("GLAccount", glAccountID)
	if year > 0 {
		filter = filter.EqInt("FinancialYear", year)
	}
	if period > 0 {
		filter = filter.EqInt("FinancialPeriod", period)
	}
	if startDate != "" && endDate != "" {
		filter = filter.DateGE("Date", startDate).DateLE("Date", endDate)
	}
	expr, err := filter.Build()
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultTop
	}
	records, err := c.Get(ctx, division, "financialtransaction/TransactionLines", QuerySpec{
		Select: []string{
			"ID", "Date", "FinancialYear", "FinancialPeriod",
			"GLAccountCode", "GLAccountDescription", "Description",
			"AmountDC", "EntryNumber", "JournalCode",
		},
		Filter:  expr,
		Top:     limit,
		OrderBy: "Date desc",
	})
	if err != nil {
		return nil, err
	}

	lines := make([]TransactionLine, 0, len(records))
	for _, record := range records {
		date, _ := ParseWireDate(mapString(record, "Date"))
		lines = append(lines, TransactionLine{
			ID:                   mapString(record, "ID"),
			Date:                 date,
			FinancialYear:        mapInt(record, "FinancialYear"),
			FinancialPeriod:      mapInt(record, "FinancialPeriod"),
			GLAccountCode:        mapString(record, "GLAccountCode"),
			GLAccountDescription: mapString(record, "GLAccountDescription"),
			Description:          mapString(record, "Description"),
			Amount:               mapFloat(record, "AmountDC"),
			EntryNumber:          mapInt(record, "EntryNumber"),
			JournalCode:          mapString(record, "JournalCode"),
		})
	}
	return lines, nil
}

// FetchBankTransactions returns bank entry lines, newest first. Amounts keep
// the upstream sign.
func (c *Client) FetchBankTransactions(ctx context.Context, division, top int, startDate, endDate, glAccountCode string) ([]BankTransaction, error) {
	filter := NewFilter()
	if startDate != "" {
		filter = filter.DateGE("Date", startDate)
	}
	if endDate != "" {
		filter = filter.DateLE("Date", endDate)
	}
	if glAccountCode != "" {
		filter = filter.EqTrimmedString("GLAccountCode", glAccountCode)
	}
	expr, err := filter.Build()
	if err != nil {
		return nil, err
	}

	if top <= 0 {
		top = DefaultTop
	}
	records, err := c.Get(ctx, division, "financialtransaction/BankEntryLines", QuerySpec{
		Select: []string{
			"ID", "Date", "Description", "AmountDC", "AccountCode", "AccountName",
			"GLAccountCode", "GLAccountDescription", "EntryNumber",
			"DocumentSubject", "Notes", "OurRef",
		},
		Filter:  expr,
		Top:     top,
		OrderBy: "Date desc",
	})
	if err != nil {
		return nil, err
	}

	transactions := make([]BankTransaction, 0, len(records))
	for _, record := range records {
		date, _ := ParseWireDate(mapString(record, "Date"))
		transactions = append(transactions, BankTransaction{
			ID:                   mapString(record, "ID"),
			Date:                 date,
			Description:          mapString(record, "Description"),
			Amount:               mapFloat(record, "AmountDC"),
			AccountCode:          trimmed(mapString(record, "AccountCode")),
			AccountName:          mapString(record, "AccountName"),
			GLAccountCode:        trimmed(mapString(record, "GLAccountCode")),
			GLAccountDescription: mapString(record, "GLAccountDescription"),
			EntryNumber:          mapInt(record, "EntryNumber"),
			DocumentSubject:      mapString(record, "DocumentSubject"),
			Notes:                mapString(record, "Notes"),
			Reference:            mapString(record, "OurRef"),
		})
	}
	return transactions, nil
}

// FetchPurchaseInvoices returns supplier invoice headers, newest first. The
// purchase endpoint needs its own module subscription; a 403 on this path
// means the module is missing, not that the division is inaccessible.
func (c *Client) FetchPurchaseInvoices(ctx context.Context, division, top int, startDate, endDate, supplierCode string) ([]PurchaseInvoice, error) {
	filter := NewFilter()
	if startDate != "" {
		filter = filter.DateGE("InvoiceDate", startDate)
	}
	if endDate != "" {
		filter = filter.DateLE("InvoiceDate", endDate)
	}
	if supplierCode != "" {
		filter = filter.EqTrimmedString("SupplierCode", supplierCode)
	}
	expr, err := filter.Build()
	if err != nil {
		return nil, err
	}

	if top <= 0 {
		top = DefaultTop
	}
	records, err := c.Get(ctx, division, "purchase/PurchaseInvoices", QuerySpec{
		Select: []string{
			"ID", "InvoiceNumber", "InvoiceDate", "DueDate",
			"SupplierCode", "SupplierName", "AmountDC", "Currency",
			"Status", "StatusDescription", "Description", "PaymentConditionDescription",
		},
		Filter:  expr,
		Top:     top,
		OrderBy: "InvoiceDate desc",
	})
	if err != nil {
		if apiErr, ok := AsError(err); ok {
			if apiErr.Kind == KindDivisionNotAccessible || apiErr.Kind == KindEndpointNotFound {
				return nil, newModuleNotAvailable("purchase")
			}
		}
		return nil, err
	}

	invoices := make([]PurchaseInvoice, 0, len(records))
	for _, record := range records {
		invoiceDate, _ := ParseWireDate(mapString(record, "InvoiceDate"))
		dueDate, _ := ParseWireDate(mapString(record, "DueDate"))
		currency := mapString(record, "Currency")
		if currency == "" {
			currency = "EUR"
		}
		invoices = append(invoices, PurchaseInvoice{
			ID:                mapString(record, "ID"),
			InvoiceNumber:     mapInt(record, "InvoiceNumber"),
			InvoiceDate:       invoiceDate,
			DueDate:           dueDate,
			SupplierCode:      trimmed(mapString(record, "SupplierCode")),
			SupplierName:      mapString(record, "SupplierName"),
			Amount:            mapFloat(record, "AmountDC"),
			Currency:          currency,
			Status:            mapInt(record, "Status"),
			StatusDescription: mapString(record, "StatusDescription"),
			Description:       mapString(record, "Description"),
			PaymentTerms:      mapString(record, "PaymentConditionDescription"),
		})
	}
	return invoices, nil
}

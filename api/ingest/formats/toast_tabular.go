package formats

import (
	"context"
	"strings"
	"time"

	"RestoLedger/api/ingest/salesdata"
)

// Toast sales-summary sheets are section based: labeled blocks separated by
// blank rows, each either label/value pairs or a small table with its own
// header row.
var toastSections = []string{
	"revenue summary",
	"net sales summary",
	"service mode summary",
	"payments summary",
	"void summary",
	"cash activity",
	"check discounts",
	"tax summary",
}

func isToastTabular(rows [][]string) bool {
	limit := len(rows)
	if limit > 40 {
		limit = 40
	}
	hits := 0
	for i := 0; i < limit; i++ {
		first := strings.ToLower(cellAt(rows[i], 0))
		if strings.Contains(first, "salessummary") || strings.Contains(first, "sales summary") {
			hits += 2
		}
		for _, sec := range toastSections {
			if strings.Contains(first, sec) {
				hits++
				break
			}
		}
	}
	return hits >= 2
}

func toastTabularConfidence(rows [][]string) float64 {
	found := 0
	for _, sec := range toastSections {
		if findSection(rows, sec) >= 0 {
			found++
		}
	}
	conf := 50 + float64(found)*8
	if conf > 100 {
		conf = 100
	}
	return conf
}

// findSection returns the row index whose first cell names the section, or
// -1 when the sheet lacks it.
func findSection(rows [][]string, name string) int {
	for i, row := range rows {
		if strings.Contains(strings.ToLower(cellAt(row, 0)), name) {
			return i
		}
	}
	return -1
}

// labelValue scans up to 30 rows below a section for a label and returns the
// first non-empty cell to its right.
func labelValue(rows [][]string, sectionStart int, label string) (string, bool) {
	end := sectionStart + 30
	if end > len(rows) {
		end = len(rows)
	}
	for i := sectionStart; i < end; i++ {
		row := rows[i]
		for j, cell := range row {
			if !strings.Contains(strings.ToLower(cell), label) {
				continue
			}
			for k := j + 1; k < len(row); k++ {
				if row[k] != "" {
					return row[k], true
				}
			}
		}
		if i > sectionStart && allEmptyRow(row) {
			break
		}
	}
	return "", false
}

// tableSection reads a section laid out as a table: the first row after the
// section header with at least two non-empty cells is the column header, and
// data runs until a blank row or the next section header.
func tableSection(rows [][]string, sectionStart int) (header []string, body [][]string) {
	i := sectionStart + 1
	for i < len(rows) && nonEmptyCount(rows[i]) < 2 {
		if allEmptyRow(rows[i]) && i > sectionStart+3 {
			return nil, nil
		}
		i++
	}
	if i >= len(rows) {
		return nil, nil
	}
	header = rows[i]
	for j := i + 1; j < len(rows); j++ {
		row := rows[j]
		if allEmptyRow(row) {
			break
		}
		if nonEmptyCount(row) < 3 && isSectionHeader(row) {
			break
		}
		body = append(body, row)
	}
	return header, body
}

func isSectionHeader(row []string) bool {
	first := strings.ToLower(cellAt(row, 0))
	for _, sec := range toastSections {
		if strings.Contains(first, sec) {
			return true
		}
	}
	return false
}

// headerIndex searches header cells starting at from. Column 0 is always
// the row label, so value columns search from 1 to avoid matching headers
// like "Payment Type".
func headerIndex(header []string, from int, names ...string) int {
	for i := from; i < len(header); i++ {
		lc := strings.ToLower(header[i])
		for _, name := range names {
			if strings.Contains(lc, name) {
				return i
			}
		}
	}
	return -1
}

// ToastTabularExtractor parses Toast section-based sales summary sheets.
type ToastTabularExtractor struct{}

func (e *ToastTabularExtractor) Extract(ctx context.Context, doc Document) (*Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows := doc.Rows

	var extractedDate *time.Time
	if t, ok := extractDateFromFilename(doc.FileName); ok {
		extractedDate = &t
	} else {
		limit := len(rows)
		if limit > 10 {
			limit = 10
		}
		for i := 0; i < limit && extractedDate == nil; i++ {
			for _, cell := range rows[i] {
				if t, err := parseDate(cell); err == nil {
					extractedDate = &t
					break
				}
			}
		}
	}
	date := doc.FallbackDate
	if extractedDate != nil {
		date = *extractedDate
	}

	rec := &salesdata.SalesData{
		TeamID:    doc.TeamID,
		Date:      date,
		POSSystem: string(FormatToast),
		Location:  toastLocation(rows),
	}
	var findings []salesdata.ValidationFinding
	sectionsFound := 0

	if idx := findSection(rows, "net sales summary"); idx >= 0 {
		sectionsFound++
		if v, ok := labelValue(rows, idx, "net sales"); ok {
			if amt, ok := parseAmount(v); ok {
				rec.NetSales = amt
			}
		}
		if v, ok := labelValue(rows, idx, "gross"); ok {
			if amt, ok := parseAmount(v); ok {
				rec.GrossSales = amt
			}
		}
		if v, ok := labelValue(rows, idx, "order"); ok {
			if n, ok := parseCount(v); ok {
				rec.OrderCount = n
			}
		}
	}
	if idx := findSection(rows, "revenue summary"); idx >= 0 {
		sectionsFound++
		if rec.GrossSales == 0 {
			if v, ok := labelValue(rows, idx, "total"); ok {
				if amt, ok := parseAmount(v); ok {
					rec.GrossSales = amt
				}
			}
		}
		rec.RevenueItems = toastBreakdown(rows, idx)
	}
	if idx := findSection(rows, "service mode summary"); idx >= 0 {
		sectionsFound++
		rec.Destinations = toastBreakdown(rows, idx)
	}
	if idx := findSection(rows, "payments summary"); idx >= 0 {
		sectionsFound++
		tenders := toastTenders(rows, idx)
		if len(tenders) > 0 {
			rec.Tenders = tenders
			rec.PaymentBreakdown = paymentsFromTenders(tenders)
		}
	} else {
		findings = append(findings, salesdata.ValidationFinding{
			Field:    "tenders",
			Message:  "payments summary section not found",
			Severity: salesdata.SeverityInfo,
		})
	}
	if idx := findSection(rows, "void summary"); idx >= 0 {
		sectionsFound++
		if v, ok := labelValue(rows, idx, "void"); ok {
			if amt, ok := parseAmount(v); ok {
				rec.Voids = amt
			}
		}
	}
	if idx := findSection(rows, "cash activity"); idx >= 0 {
		sectionsFound++
		cm := &salesdata.CashManagement{}
		if v, ok := labelValue(rows, idx, "deposit"); ok {
			cm.Deposits, _ = parseAmount(v)
		}
		if v, ok := labelValue(rows, idx, "paid in"); ok {
			cm.PaidIn, _ = parseAmount(v)
		}
		if v, ok := labelValue(rows, idx, "paid out"); ok {
			cm.PaidOut, _ = parseAmount(v)
		}
		rec.CashManagement = cm
	}
	if idx := findSection(rows, "check discounts"); idx >= 0 {
		sectionsFound++
		rec.Discounts = toastBreakdown(rows, idx)
	}
	if idx := findSection(rows, "tax summary"); idx >= 0 {
		sectionsFound++
		rec.Taxes = toastBreakdown(rows, idx)
	}

	if rec.GrossSales == 0 && rec.NetSales == 0 {
		return nil, ErrMissingRequiredField
	}
	if rec.GrossSales == 0 {
		rec.GrossSales = rec.NetSales
	}
	if rec.NetSales == 0 {
		rec.NetSales = rec.GrossSales
	}
	if rec.OrderCount > 0 {
		rec.OrderAverage = rec.GrossSales / float64(rec.OrderCount)
	}

	conf := 50 + float64(sectionsFound)*8
	if conf > 100 {
		conf = 100
	}
	return &Extraction{
		Data:          rec,
		ExtractedDate: extractedDate,
		Confidence:    conf,
		Findings:      findings,
	}, nil
}

func toastLocation(rows [][]string) string {
	limit := len(rows)
	if limit > 5 {
		limit = 5
	}
	for i := 0; i < limit; i++ {
		first := cellAt(rows[i], 0)
		lc := strings.ToLower(first)
		if first == "" || strings.Contains(lc, "salessummary") || strings.Contains(lc, "sales summary") {
			continue
		}
		if _, err := parseDate(first); err == nil {
			continue
		}
		if isSectionHeader(rows[i]) {
			return ""
		}
		return first
	}
	return ""
}

// toastBreakdown reads a name/amount table section into breakdown items,
// skipping the section's own total line.
func toastBreakdown(rows [][]string, sectionStart int) []salesdata.BreakdownItem {
	header, body := tableSection(rows, sectionStart)
	if header == nil {
		return nil
	}
	nameIdx := 0
	qtyIdx := headerIndex(header, 1, "quantity", "qty", "count")
	totalIdx := headerIndex(header, 1, "total", "amount", "sales")
	pctIdx := headerIndex(header, 1, "percent", "%")
	if totalIdx < 0 {
		totalIdx = len(header) - 1
	}
	var items []salesdata.BreakdownItem
	for _, row := range body {
		name := cellAt(row, nameIdx)
		if name == "" || strings.EqualFold(name, "total") {
			continue
		}
		item := salesdata.BreakdownItem{Name: name}
		if amt, ok := parseAmount(cellAt(row, totalIdx)); ok {
			item.Total = amt
		}
		if qtyIdx >= 0 {
			item.Quantity, _ = parseCount(cellAt(row, qtyIdx))
		}
		if pctIdx >= 0 {
			item.Percent, _ = parseAmount(cellAt(row, pctIdx))
		}
		items = append(items, item)
	}
	return items
}

func toastTenders(rows [][]string, sectionStart int) []salesdata.TenderItem {
	header, body := tableSection(rows, sectionStart)
	if header == nil {
		return nil
	}
	nameIdx := 0
	qtyIdx := headerIndex(header, 1, "quantity", "qty", "count")
	payIdx := headerIndex(header, 1, "payments", "payment", "amount")
	tipIdx := headerIndex(header, 1, "tip", "gratuity")
	totalIdx := headerIndex(header, 1, "total")
	pctIdx := headerIndex(header, 1, "percent", "%")
	var tenders []salesdata.TenderItem
	for _, row := range body {
		name := cellAt(row, nameIdx)
		if name == "" || strings.EqualFold(name, "total") {
			continue
		}
		t := salesdata.TenderItem{Name: name}
		if qtyIdx >= 0 {
			t.Quantity, _ = parseCount(cellAt(row, qtyIdx))
		}
		if payIdx >= 0 {
			t.Payments, _ = parseAmount(cellAt(row, payIdx))
		}
		if tipIdx >= 0 {
			t.Tips, _ = parseAmount(cellAt(row, tipIdx))
		}
		if totalIdx >= 0 {
			t.Total, _ = parseAmount(cellAt(row, totalIdx))
		}
		if t.Total == 0 {
			t.Total = t.Payments + t.Tips
		}
		if pctIdx >= 0 {
			t.Percent, _ = parseAmount(cellAt(row, pctIdx))
		}
		tenders = append(tenders, t)
	}
	return tenders
}

// paymentsFromTenders splits tender totals into cash and non-cash by tender
// name. Calculated cash backs the tip payouts out of the drawer total.
func paymentsFromTenders(tenders []salesdata.TenderItem) *salesdata.PaymentBreakdown {
	pb := &salesdata.PaymentBreakdown{}
	for _, t := range tenders {
		if strings.Contains(strings.ToLower(t.Name), "cash") {
			pb.TotalCash += t.Payments
		} else {
			pb.NonCash += t.Payments
		}
		pb.Tips += t.Tips
	}
	pb.CalculatedCash = pb.TotalCash - pb.Tips
	return pb
}

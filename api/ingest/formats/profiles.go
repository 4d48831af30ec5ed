package formats

import "regexp"

// documentProfile drives regex extraction for one vendor's text reports.
// Field patterns capture the first amount group; keywords weigh twice as
// much as matching field patterns during detection.
type documentProfile struct {
	Format   Format
	Keywords []string
	Fields   map[string]*regexp.Regexp
}

func amountPat(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + label + `[\s:$]*\(?\$?\s*(-?[0-9,]+\.?[0-9]*)\)?`)
}

var documentProfiles = []documentProfile{
	{
		Format:   FormatBrink,
		Keywords: []string{"Brink POS", "brinkpos.com", "ParTech"},
		Fields: map[string]*regexp.Regexp{
			"gross_sales": amountPat(`Gross\s+Sales`),
			"net_sales":   amountPat(`Net\s+Sales`),
			"order_count": amountPat(`(?:Order|Guest|Check)\s+Count`),
			"total_cash":  amountPat(`(?:Total\s+)?Cash(?:\s+Payments?)?`),
			"non_cash":    amountPat(`Non[-\x{2013}\x{2014}\x{2011}\s]?Cash\s+Payments?`),
			"tips":        amountPat(`(?:Credit\s+Card\s+)?Tips`),
			"labor_hours": amountPat(`(?:Total\s+)?Labor\s+Hours`),
			"labor_cost":  amountPat(`Labor\s+Cost`),
			"voids":       amountPat(`Voids?`),
			"refunds":     amountPat(`Refunds?`),
		},
	},
	{
		Format:   FormatSquare,
		Keywords: []string{"Square", "squareup.com", "Square Point of Sale"},
		Fields: map[string]*regexp.Regexp{
			"gross_sales": amountPat(`Gross\s+Sales`),
			"net_sales":   amountPat(`Net\s+(?:Sales|Total)`),
			"order_count": amountPat(`(?:Transactions?|Payments?\s+Collected\s+Count|Sales\s+Count)`),
			"total_cash":  amountPat(`Cash`),
			"non_cash":    amountPat(`(?:Card|Credit)`),
			"tips":        amountPat(`Tips?`),
			"refunds":     amountPat(`Refunds?\s+by\s+Amount|Refunds?`),
		},
	},
	{
		Format:   FormatToast,
		Keywords: []string{"Toast", "toasttab.com", "Toast POS"},
		Fields: map[string]*regexp.Regexp{
			"gross_sales": amountPat(`Gross\s+(?:Sales|Amount)`),
			"net_sales":   amountPat(`Net\s+Sales`),
			"order_count": amountPat(`(?:Orders?|Checks?)\s*(?:Count)?`),
			"total_cash":  amountPat(`Cash\s*(?:Payments?)?`),
			"non_cash":    amountPat(`(?:Credit|Non[-\s]?Cash)`),
			"tips":        amountPat(`(?:Total\s+)?Tips`),
			"labor_hours": amountPat(`Labor\s+Hours`),
		},
	},
	{
		Format:   FormatLightspeed,
		Keywords: []string{"Lightspeed", "lightspeedhq.com", "Lightspeed Restaurant"},
		Fields: map[string]*regexp.Regexp{
			"gross_sales": amountPat(`(?:Gross\s+Sales|Total\s+Revenue)`),
			"net_sales":   amountPat(`Net\s+Sales`),
			"order_count": amountPat(`(?:Receipts?|Invoices?|Orders?)`),
			"total_cash":  amountPat(`Cash`),
			"non_cash":    amountPat(`(?:Card|Electronic)`),
			"tips":        amountPat(`Tips?`),
		},
	},
	{
		Format:   FormatClover,
		Keywords: []string{"Clover", "clover.com", "Clover Dashboard"},
		Fields: map[string]*regexp.Regexp{
			"gross_sales": amountPat(`(?:Gross\s+Sales|Amount\s+Collected)`),
			"net_sales":   amountPat(`Net\s+(?:Sales|Revenue)`),
			"order_count": amountPat(`(?:Payments?|Orders?)\s*(?:Count)?`),
			"total_cash":  amountPat(`Cash`),
			"non_cash":    amountPat(`(?:Credit|Debit|Card)`),
			"tips":        amountPat(`Tips?`),
			"refunds":     amountPat(`Refunds?`),
		},
	},
}

var genericDocumentProfile = documentProfile{
	Format: FormatGenericDocument,
	Fields: map[string]*regexp.Regexp{
		"gross_sales": amountPat(`(?:Gross\s+Sales|Total\s+Sales|Total\s+Revenue)`),
		"net_sales":   amountPat(`Net\s+Sales`),
		"order_count": amountPat(`(?:Orders?|Transactions?|Checks?|Guests?)`),
		"total_cash":  amountPat(`Cash`),
		"non_cash":    amountPat(`(?:Card|Credit|Non[-\s]?Cash)`),
		"tips":        amountPat(`Tips?`),
	},
}

func profileFor(f Format) documentProfile {
	for _, p := range documentProfiles {
		if p.Format == f {
			return p
		}
	}
	return genericDocumentProfile
}

// detectDocumentFormat scores every vendor profile against the text: two
// points per keyword hit, one per matching field pattern. The winner needs
// at least one keyword or three field hits.
func detectDocumentFormat(text string) (Format, float64) {
	if text == "" {
		return "", 0
	}
	best := Format("")
	bestScore := 0
	for _, p := range documentProfiles {
		score := 0
		keywordHit := false
		for _, kw := range p.Keywords {
			if containsFold(text, kw) {
				score += 2
				keywordHit = true
			}
		}
		fieldHits := 0
		for _, re := range p.Fields {
			if re.MatchString(text) {
				fieldHits++
			}
		}
		score += fieldHits
		if !keywordHit && fieldHits < 3 {
			continue
		}
		if score > bestScore {
			bestScore = score
			best = p.Format
		}
	}
	if best == "" {
		return "", 0
	}
	conf := 50 + float64(bestScore)*5
	if conf > 100 {
		conf = 100
	}
	return best, conf
}

package narrative

import (
	"fmt"
	"strings"

	"github.com/kjannette/valuator-backend/internal/format"
	"github.com/kjannette/valuator-backend/internal/models"
)

const DefaultLanguage = "English"

const promptTemplate = `Act as an expert financial analyst. Based on the following data for %s (%s), provide a concise, easy-to-understand summary (in %s) of its financial health for a retail investor. Highlight key strengths and potential risks.

Company Profile:
- Industry: %s
- Price: $%.2f
- Market Cap: $%s

Key Metrics (TTM):
- P/E Ratio: %s
- P/B Ratio: %s
- EPS: $%s
- Dividend Yield: %s
- ROE: %s
- Debt/Equity: %s

Please provide the analysis in a single, well-structured paragraph.`

// BuildPrompt fills the analyst template from r. Missing values print as
// a dash.
func BuildPrompt(r *models.FinancialRecord, language string) string {
	if strings.TrimSpace(language) == "" {
		language = DefaultLanguage
	}
	mc := r.Profile.MarketCap
	industry := r.Profile.Industry
	if industry == "" {
		industry = format.Missing
	}
	return fmt.Sprintf(promptTemplate,
		r.Profile.CompanyName, r.Profile.Symbol, language,
		industry,
		r.Profile.Price,
		format.Number(&mc),
		format.Number(r.PE()),
		format.Number(r.PriceToBook()),
		format.Number(r.EPS()),
		format.Ratio(r.DividendYield()),
		format.Ratio(r.ROE()),
		format.Number(r.DebtToEquity()),
	)
}

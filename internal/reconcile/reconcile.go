package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kjannette/valuator-backend/internal/models"
)

// MaxHistoricalPoints caps the income-statement history kept on a record.
const MaxHistoricalPoints = 5

var ErrNotFound = errors.New("ticker not found")

// NotFoundError is returned when the profile snapshot is empty.
type NotFoundError struct {
	Symbol string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no data found for ticker %q", e.Symbol)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Reconcile merges the raw snapshots of one lookup into a canonical record.
// An empty profile snapshot means the ticker is unknown; no partial record
// is returned in that case.
func Reconcile(s models.Snapshots) (*models.FinancialRecord, error) {
	if s.Profile.Empty() {
		return nil, &NotFoundError{Symbol: strings.ToUpper(strings.TrimSpace(s.Symbol))}
	}

	src := newSources(s)

	symbol := Symbol.Resolve(src)
	if symbol == "" {
		symbol = strings.ToUpper(strings.TrimSpace(s.Symbol))
	}

	rec := &models.FinancialRecord{
		Profile: models.Profile{
			Symbol:      symbol,
			CompanyName: CompanyName.Resolve(src),
			Exchange:    Exchange.Resolve(src),
			Industry:    Industry.Resolve(src),
			Website:     Website.Resolve(src),
			Image:       Image.Resolve(src),
			Price:       Price.ResolveOr(src, 0),
			Change:      Change.ResolveOr(src, 0),
			MarketCap:   MarketCap.ResolveOr(src, 0),
		},
		Metrics: models.Metrics{
			EPS:             MetricsEPS.Resolve(src),
			PriceToBook:     MetricsPriceToBook.Resolve(src),
			DividendYield:   MetricsDividendYield.Resolve(src),
			ROE:             MetricsROE.Resolve(src),
			DebtToEquity:    MetricsDebtToEquity.Resolve(src),
			RevenuePerShare: MetricsRevenuePerShare.Resolve(src),
			GrowthEPS:       MetricsGrowthEPS.Resolve(src),
		},
		Ratios: models.Ratios{
			PE:            RatiosPE.Resolve(src),
			PriceToBook:   RatiosPriceToBook.Resolve(src),
			DividendYield: RatiosDividendYield.Resolve(src),
			ROE:           RatiosROE.Resolve(src),
			DebtToEquity:  RatiosDebtToEquity.Resolve(src),
		},
		Quote: models.Quote{
			PE:  QuotePE.Resolve(src),
			EPS: QuoteEPS.Resolve(src),
		},
		HistoricalEarnings: historicalEarnings(s.Income),
		Peers:              ParsePeers(s.Peers),
	}
	return rec, nil
}

// historicalEarnings keeps upstream order; chronology is the provider's job.
func historicalEarnings(income models.RawSnapshot) []models.EarningsPoint {
	n := len(income)
	if n > MaxHistoricalPoints {
		n = MaxHistoricalPoints
	}
	out := make([]models.EarningsPoint, 0, n)
	for _, row := range income[:n] {
		if row == nil {
			row = map[string]any{}
		}
		out = append(out, models.EarningsPoint{
			Date: incomeDate(row),
			EPS:  IncomeEPS.resolveRow(SourceIncome, row),
		})
	}
	return out
}

func incomeDate(row map[string]any) string {
	for _, key := range IncomeDate {
		if s, ok := row[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// ParsePeers converts a raw peer list into summaries; rows without a symbol
// are dropped, provider order is kept.
func ParsePeers(raw models.RawSnapshot) []models.PeerSummary {
	out := make([]models.PeerSummary, 0, len(raw))
	for _, row := range raw {
		sym, _ := row["symbol"].(string)
		if strings.TrimSpace(sym) == "" {
			continue
		}
		out = append(out, models.PeerSummary{
			Symbol:    sym,
			PE:        PeerPE.resolveRow(SourceQuote, row),
			MarketCap: PeerMarketCap.resolveRow(SourceQuote, row),
		})
	}
	return out
}

package models

type Profile struct {
	Symbol      string  `json:"symbol"`
	CompanyName string  `json:"companyName"`
	Exchange    string  `json:"exchange"`
	Industry    string  `json:"industry"`
	Website     string  `json:"website"`
	Image       string  `json:"image"`
	Price       float64 `json:"price"`
	Change      float64 `json:"change"`
	MarketCap   float64 `json:"marketCap"`
}

type Metrics struct {
	EPS             *float64 `json:"epsTTM,omitempty"`
	PriceToBook     *float64 `json:"priceToBookTTM,omitempty"`
	DividendYield   *float64 `json:"dividendYieldTTM,omitempty"`
	ROE             *float64 `json:"returnOnEquityTTM,omitempty"`
	DebtToEquity    *float64 `json:"debtToEquityTTM,omitempty"`
	RevenuePerShare *float64 `json:"revenuePerShareTTM,omitempty"`
	GrowthEPS       *float64 `json:"growthEPS,omitempty"`
}

type Ratios struct {
	PE            *float64 `json:"priceEarningsRatioTTM,omitempty"`
	PriceToBook   *float64 `json:"priceToBookRatioTTM,omitempty"`
	DividendYield *float64 `json:"dividendYieldTTM,omitempty"`
	ROE           *float64 `json:"returnOnEquityTTM,omitempty"`
	DebtToEquity  *float64 `json:"debtToEquityRatioTTM,omitempty"`
}

type Quote struct {
	PE  *float64 `json:"pe,omitempty"`
	EPS *float64 `json:"eps,omitempty"`
}

type EarningsPoint struct {
	Date string   `json:"date"`
	EPS  *float64 `json:"eps"`
}

type PeerSummary struct {
	Symbol    string   `json:"symbol"`
	PE        *float64 `json:"pe"`
	MarketCap *float64 `json:"marketCap"`
}

// FinancialRecord is the canonical, reconciled view of one company.
// It is built once per lookup and never mutated afterwards.
type FinancialRecord struct {
	Profile            Profile         `json:"profile"`
	Metrics            Metrics         `json:"metrics"`
	Ratios             Ratios          `json:"ratios"`
	Quote              Quote           `json:"quote"`
	HistoricalEarnings []EarningsPoint `json:"historicalEarnings"`
	Peers              []PeerSummary   `json:"peers"`
}

// PE prefers the quote-level ratio and falls back to the TTM ratio.
func (r *FinancialRecord) PE() *float64 {
	return firstOf(r.Quote.PE, r.Ratios.PE)
}

// EPS prefers the quote-level EPS and falls back to the TTM metric.
func (r *FinancialRecord) EPS() *float64 {
	return firstOf(r.Quote.EPS, r.Metrics.EPS)
}

func (r *FinancialRecord) PriceToBook() *float64 {
	return firstOf(r.Metrics.PriceToBook, r.Ratios.PriceToBook)
}

func (r *FinancialRecord) DividendYield() *float64 {
	return firstOf(r.Metrics.DividendYield, r.Ratios.DividendYield)
}

func (r *FinancialRecord) ROE() *float64 {
	return firstOf(r.Metrics.ROE, r.Ratios.ROE)
}

func (r *FinancialRecord) DebtToEquity() *float64 {
	return firstOf(r.Metrics.DebtToEquity, r.Ratios.DebtToEquity)
}

// Summary is the record's own row in a peer comparison.
func (r *FinancialRecord) Summary() PeerSummary {
	mc := r.Profile.MarketCap
	return PeerSummary{
		Symbol:    r.Profile.Symbol,
		PE:        r.PE(),
		MarketCap: &mc,
	}
}

func firstOf(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

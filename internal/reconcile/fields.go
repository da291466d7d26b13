package reconcile

// Synonym chains for every canonical field. Upstream naming has drifted
// across at least three schema revisions; order here is priority order.

var (
	Symbol = TextResolver{"symbol", []Candidate{
		{SourceProfile, "symbol"},
		{SourceQuote, "symbol"},
	}}
	CompanyName = TextResolver{"companyName", []Candidate{
		{SourceProfile, "companyName"},
		{SourceQuote, "name"},
	}}
	Exchange = TextResolver{"exchange", []Candidate{
		{SourceProfile, "exchangeShortName"},
		{SourceProfile, "exchange"},
		{SourceQuote, "exchange"},
	}}
	Industry = TextResolver{"industry", []Candidate{
		{SourceProfile, "industry"},
	}}
	Website = TextResolver{"website", []Candidate{
		{SourceProfile, "website"},
	}}
	Image = TextResolver{"image", []Candidate{
		{SourceProfile, "image"},
	}}
)

var (
	Price = NumberResolver{"price", []Candidate{
		{SourceProfile, "price"},
		{SourceQuote, "price"},
	}}
	Change = NumberResolver{"change", []Candidate{
		{SourceProfile, "changes"},
		{SourceProfile, "change"},
		{SourceQuote, "change"},
	}}
	MarketCap = NumberResolver{"marketCap", []Candidate{
		{SourceProfile, "mktCap"},
		{SourceProfile, "marketCap"},
	}}
)

var (
	QuotePE = NumberResolver{"quote.pe", []Candidate{
		{SourceQuote, "pe"},
		{SourceQuote, "priceEarnings"},
	}}
	// QuoteEPS trusts the latest reported income statement over the quote feed.
	QuoteEPS = NumberResolver{"quote.eps", []Candidate{
		{SourceIncome, "eps"},
		{SourceIncome, "epsDiluted"},
		{SourceIncome, "epsdiluted"},
		{SourceQuote, "eps"},
	}}
)

var (
	MetricsEPS = NumberResolver{"metrics.epsTTM", []Candidate{
		{SourceMetrics, "epsTTM"},
		{SourceMetrics, "netIncomePerShareTTM"},
		{SourceIncome, "eps"},
	}}
	MetricsPriceToBook = NumberResolver{"metrics.priceToBookTTM", []Candidate{
		{SourceMetrics, "priceToBookRatioTTM"},
		{SourceMetrics, "pbRatioTTM"},
	}}
	MetricsDividendYield = NumberResolver{"metrics.dividendYieldTTM", []Candidate{
		{SourceMetrics, "dividendYieldTTM"},
		{SourceMetrics, "dividendYield"},
	}}
	MetricsROE = NumberResolver{"metrics.returnOnEquityTTM", []Candidate{
		{SourceMetrics, "returnOnEquityTTM"},
		{SourceMetrics, "roeTTM"},
	}}
	MetricsDebtToEquity = NumberResolver{"metrics.debtToEquityTTM", []Candidate{
		{SourceMetrics, "debtToEquityTTM"},
		{SourceMetrics, "debtToEquityRatioTTM"},
	}}
	MetricsRevenuePerShare = NumberResolver{"metrics.revenuePerShareTTM", []Candidate{
		{SourceMetrics, "revenuePerShareTTM"},
		{SourceMetrics, "revenuePerShare"},
	}}
	MetricsGrowthEPS = NumberResolver{"metrics.growthEPS", []Candidate{
		{SourceGrowth, "growthEPS"},
		{SourceGrowth, "growthEps"},
	}}
)

var (
	RatiosPE = NumberResolver{"ratios.priceEarningsRatioTTM", []Candidate{
		{SourceRatios, "priceEarningsRatioTTM"},
		{SourceRatios, "peRatioTTM"},
		{SourceRatios, "priceToEarningsRatioTTM"},
	}}
	RatiosPriceToBook = NumberResolver{"ratios.priceToBookRatioTTM", []Candidate{
		{SourceRatios, "priceToBookRatioTTM"},
		{SourceRatios, "priceBookValueRatioTTM"},
	}}
	RatiosDividendYield = NumberResolver{"ratios.dividendYieldTTM", []Candidate{
		{SourceRatios, "dividendYieldTTM"},
		{SourceRatios, "dividendYield"},
	}}
	RatiosROE = NumberResolver{"ratios.returnOnEquityTTM", []Candidate{
		{SourceRatios, "returnOnEquityTTM"},
		{SourceRatios, "roeTTM"},
	}}
	RatiosDebtToEquity = NumberResolver{"ratios.debtToEquityRatioTTM", []Candidate{
		{SourceRatios, "debtToEquityRatioTTM"},
		{SourceRatios, "debtEquityRatioTTM"},
		{SourceRatios, "debtToEquityTTM"},
	}}
)

// Per-row resolvers for historical income statements.
var (
	IncomeDate = []string{"date", "fiscalDateEnding", "calendarYear"}
	IncomeEPS  = NumberResolver{"income.eps", []Candidate{
		{SourceIncome, "eps"},
		{SourceIncome, "epsDiluted"},
		{SourceIncome, "epsdiluted"},
	}}
)

// Peer fields as they appear in peer-list payloads.
var (
	PeerPE = NumberResolver{"peer.pe", []Candidate{
		{SourceQuote, "pe"},
		{SourceQuote, "priceEarnings"},
		{SourceQuote, "priceEarningsRatio"},
	}}
	PeerMarketCap = NumberResolver{"peer.marketCap", []Candidate{
		{SourceQuote, "mktCap"},
		{SourceQuote, "marketCap"},
	}}
)

// NumberResolvers lists every numeric chain, for inspection and tests.
func NumberResolvers() []NumberResolver {
	return []NumberResolver{
		Price, Change, MarketCap,
		QuotePE, QuoteEPS,
		MetricsEPS, MetricsPriceToBook, MetricsDividendYield, MetricsROE,
		MetricsDebtToEquity, MetricsRevenuePerShare, MetricsGrowthEPS,
		RatiosPE, RatiosPriceToBook, RatiosDividendYield, RatiosROE, RatiosDebtToEquity,
	}
}

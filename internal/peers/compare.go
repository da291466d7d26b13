package peers

import (
	"math"

	"github.com/kjannette/valuator-backend/internal/models"
)

const AverageLabel = "Sector Average"

type Row struct {
	Symbol    string   `json:"symbol"`
	PE        *float64 `json:"pe"`
	MarketCap *float64 `json:"marketCap"`
	IsMain    bool     `json:"isMain"`
	IsAverage bool     `json:"isAverage"`
}

// Average holds the sector means; nil means no peer had both fields.
type Average struct {
	PE        *float64 `json:"pe"`
	MarketCap *float64 `json:"marketCap"`
	Count     int      `json:"count"`
}

type Comparison struct {
	Rows          []Row   `json:"rows"`
	SectorAverage Average `json:"sectorAverage"`
}

// Compare builds the comparison table: main first, peers in provider order,
// then the average row.
func Compare(list []models.PeerSummary, main models.PeerSummary) Comparison {
	avg := SectorAverage(list)

	rows := make([]Row, 0, len(list)+2)
	rows = append(rows, Row{
		Symbol:    main.Symbol,
		PE:        main.PE,
		MarketCap: main.MarketCap,
		IsMain:    true,
	})
	for _, p := range list {
		rows = append(rows, Row{
			Symbol:    p.Symbol,
			PE:        p.PE,
			MarketCap: p.MarketCap,
		})
	}
	rows = append(rows, Row{
		Symbol:    AverageLabel,
		PE:        avg.PE,
		MarketCap: avg.MarketCap,
		IsAverage: true,
	})

	return Comparison{Rows: rows, SectorAverage: avg}
}

// SectorAverage averages P/E and market cap over the peers that carry both.
func SectorAverage(list []models.PeerSummary) Average {
	var sumPE, sumCap float64
	n := 0
	for _, p := range list {
		if !usable(p.PE) || !usable(p.MarketCap) {
			continue
		}
		sumPE += *p.PE
		sumCap += *p.MarketCap
		n++
	}
	if n == 0 {
		return Average{}
	}
	pe := sumPE / float64(n)
	mc := sumCap / float64(n)
	avg := Average{Count: n}
	if usable(&pe) {
		avg.PE = &pe
	}
	if usable(&mc) {
		avg.MarketCap = &mc
	}
	return avg
}

func usable(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

package crossover

import "time"

// Summary describes the outcome of a crossover run over a decorated series
type Summary struct {
	Bars     int
	Entries  int
	Exits    int
	Position int
	LastDate time.Time
	// MarketReturn is the compounded close-to-close return over the series.
	MarketReturn float64
	// StrategyReturn compounds only the bars entered while long, i.e. bar i
	// counts when the position at bar i-1 was 1.
	StrategyReturn float64
}

// Summarize counts the transitions in rows and compares holding the
// instrument throughout with holding it only while the position is long.
func Summarize(rows []Row) Summary {
	s := Summary{Bars: len(rows)}
	if len(rows) == 0 {
		return s
	}

	market, strategy := 1.0, 1.0
	for i, row := range rows {
		switch {
		case row.Signal > 0:
			s.Entries++
		case row.Signal < 0:
			s.Exits++
		}

		if i == 0 || rows[i-1].Close == 0 {
			continue
		}
		growth := row.Close / rows[i-1].Close
		market *= growth
		if rows[i-1].Position == 1 {
			strategy *= growth
		}
	}

	last := rows[len(rows)-1]
	s.Position = last.Position
	s.LastDate = last.Date
	s.MarketReturn = market - 1
	s.StrategyReturn = strategy - 1
	return s
}

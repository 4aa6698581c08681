package deckhand

const maxRecords = 10

// RoundRecord captures what one captain saw at the end of a fishing phase.
type RoundRecord struct {
	Round int
	Catch float64
	Price float64
	Cash  float64
}

// Logbook keeps a ring of recent round records.
type Logbook struct {
	Records []RoundRecord
}

// Add appends a record, trimming to the most recent maxRecords.
// A repeated round replaces the earlier entry.
func (l *Logbook) Add(r RoundRecord) {
	if n := len(l.Records); n > 0 && l.Records[n-1].Round == r.Round {
		l.Records[n-1] = r
		return
	}
	l.Records = append(l.Records, r)
	if len(l.Records) > maxRecords {
		l.Records = l.Records[len(l.Records)-maxRecords:]
	}
}

// AvgCatch is the mean catch over the last n records (all if n <= 0).
func (l *Logbook) AvgCatch(n int) float64 {
	recs := l.Records
	if n > 0 && len(recs) > n {
		recs = recs[len(recs)-n:]
	}
	if len(recs) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range recs {
		sum += r.Catch
	}
	return sum / float64(len(recs))
}

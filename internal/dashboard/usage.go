package dashboard

import (
	"fmt"

	"github.com/smarta/server/internal/model"
)

// Timeframe selects the consumption chart granularity
type Timeframe string

const (
	Weekly  Timeframe = "weekly"
	Monthly Timeframe = "monthly"
)

var (
	weekdayLabels = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	weekLabels    = []string{"Week 1", "Week 2", "Week 3", "Week 4"}
)

// ParseTimeframe maps a query value to a Timeframe; empty means Weekly
func ParseTimeframe(value string) (Timeframe, error) {
	switch Timeframe(value) {
	case "", Weekly:
		return Weekly, nil
	case Monthly:
		return Monthly, nil
	default:
		return "", fmt.Errorf("unknown timeframe %q", value)
	}
}

func (t Timeframe) readingLimit() int {
	if t == Monthly {
		return 30
	}
	return 7
}

func (t Timeframe) labels() []string {
	src := weekdayLabels
	if t == Monthly {
		src = weekLabels
	}
	return append([]string(nil), src...)
}

func emptyUsage(t Timeframe) model.WaterUsage {
	labels := t.labels()
	return model.WaterUsage{Labels: labels, Usage: make([]float64, len(labels))}
}

// bucketUsage places readings into chart slots. Weekly slots are Monday
// indexed and a later reading replaces an earlier one on the same weekday.
// Monthly slots are 7-day blocks of the month and sum; days 29-31 fall
// outside the four blocks and are dropped.
func bucketUsage(readings []model.MeterReading, t Timeframe) model.WaterUsage {
	usage := emptyUsage(t)
	for _, r := range readings {
		var consumption float64
		if r.Consumption != nil {
			consumption = *r.Consumption
		}
		date := r.ReadingDate.UTC()

		if t == Monthly {
			week := (date.Day() - 1) / 7
			if week < len(usage.Usage) {
				usage.Usage[week] += consumption
			}
			continue
		}
		usage.Usage[(int(date.Weekday())+6)%7] = consumption
	}
	return usage
}

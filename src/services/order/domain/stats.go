package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	PeriodToday = "today"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodAll   = "all"
)

type OrderStats struct {
	Period      string         `json:"period"`
	From        *time.Time     `json:"from,omitempty"`
	To          time.Time      `json:"to"`
	TotalOrders int            `json:"totalOrders"`
	ByStatus    map[Status]int `json:"byStatus"`
	Revenue     float64        `json:"revenue"`
}

// PeriodRange resolves a period name to the creation-time window ending at
// now. A nil from means unbounded.
func PeriodRange(period string, now time.Time) (string, *time.Time, error) {
	period = strings.ToLower(strings.TrimSpace(period))
	var from time.Time
	switch period {
	case "", PeriodToday:
		period = PeriodToday
		y, m, d := now.Date()
		from = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case PeriodWeek:
		from = now.AddDate(0, 0, -7)
	case PeriodMonth:
		y, m, _ := now.Date()
		from = time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	case PeriodAll:
		return period, nil, nil
	default:
		return "", nil, &ValidationError{Field: "period", Message: "period must be one of today, week, month, all"}
	}
	return period, &from, nil
}

// Aggregate counts orders per status and sums the revenue of delivered
// orders. It has no side effects.
func Aggregate(orders []Order) OrderStats {
	stats := OrderStats{ByStatus: make(map[Status]int, len(AllStatuses))}
	for _, s := range AllStatuses {
		stats.ByStatus[s] = 0
	}

	revenue := decimal.Zero
	for _, o := range orders {
		stats.TotalOrders++
		stats.ByStatus[o.OrderStatus]++
		if o.OrderStatus == StatusDelivered {
			revenue = revenue.Add(decimal.NewFromFloat(o.TotalAmount))
		}
	}
	stats.Revenue = revenue.InexactFloat64()
	return stats
}

package sync

import (
	"sort"

	"github.com/storepulse/backend/pkg/models"
)

// MergeDaily folds per-source daily rows into one metric row per civil date.
// Dates present in any source get a row; fields for absent sources stay zero.
// Each source overwrites only its own fields, so a rerun with one source
// missing never clobbers another source's data within the same merge.
func MergeDaily(storeID int, orders []models.OrderStat, facebook, google []models.DailySpend) []models.DailyMetric {
	byDate := make(map[string]*models.DailyMetric)

	get := func(date string) *models.DailyMetric {
		if m, ok := byDate[date]; ok {
			return m
		}
		m := &models.DailyMetric{StoreID: storeID, Date: date}
		byDate[date] = m
		return m
	}

	for _, o := range orders {
		m := get(o.Date)
		m.ShopifyOrderCount = o.OrderCount
		m.ShopifyOrderValue = o.OrderValue
		m.ShopifyItemCount = o.ItemCount
	}
	for _, s := range facebook {
		get(s.Date).FacebookAdSpend = s.Amount
	}
	for _, s := range google {
		get(s.Date).GoogleAdSpend = s.Amount
	}

	merged := make([]models.DailyMetric, 0, len(byDate))
	for _, m := range byDate {
		merged = append(merged, *m)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date < merged[j].Date })
	return merged
}

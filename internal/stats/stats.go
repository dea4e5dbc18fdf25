package stats

import "QiitaAnalyzer/internal/domain"

// Aggregate sums engagement counters over the collection.
func Aggregate(articles []domain.Article) domain.CollectionStats {
	var out domain.CollectionStats
	for _, art := range articles {
		out.TotalLikes += art.Likes
		out.TotalStocks += art.Stocks
	}
	out.Count = len(articles)
	return out
}

// Average divides total by count, returning zero for an empty collection.
func Average(total, count int) float64 {
	if count <= 0 {
		return 0
	}
	return float64(total) / float64(count)
}

// AverageLikes is the per-article like average.
func AverageLikes(s domain.CollectionStats) float64 {
	return Average(s.TotalLikes, s.Count)
}

// AverageStocks is the per-article bookmark average.
func AverageStocks(s domain.CollectionStats) float64 {
	return Average(s.TotalStocks, s.Count)
}

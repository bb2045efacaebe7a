// Package explain 把推荐结果转换成可读的解释与分布摘要，
// 供运营排查与离线调参使用，不在推荐热路径上。
package explain

import (
	"fmt"
	"sort"

	"github.com/materialmarkt/matkit/core"
)

// Summary 是一次推荐结果的分布摘要。
type Summary struct {
	UserID   string
	Total    int
	Fallback int
	Baseline bool
	Reason   string

	// 结果里各类目/学段/价格档的出现次数
	Categories map[string]int
	Grades     map[string]int
	Prices     map[core.PriceBucket]int

	// 新鲜度分布：fresh(乘数 > 1) / recent(= 1) / stale(< 1)
	Fresh  int
	Recent int
	Stale  int

	// 各维度分量的平均值（仅统计非 fallback 候选）
	MeanComponents core.ComponentScores
}

// Summarize 汇总推荐结果的分布。
func Summarize(result *core.RecommendationResult, buckets core.PriceBuckets) *Summary {
	s := &Summary{
		UserID:     result.UserID,
		Total:      len(result.Items),
		Fallback:   result.FallbackCount(),
		Baseline:   result.Baseline,
		Reason:     result.Reason,
		Categories: make(map[string]int),
		Grades:     make(map[string]int),
		Prices:     make(map[core.PriceBucket]int),
	}

	scored := 0
	for _, it := range result.Items {
		m := it.Material
		if m == nil {
			continue
		}
		for _, c := range m.Categories {
			s.Categories[c]++
		}
		for _, g := range m.Grades {
			s.Grades[g]++
		}
		s.Prices[buckets.Bucket(m.Price)]++

		switch {
		case it.Components.Freshness > 1:
			s.Fresh++
		case it.Components.Freshness == 1:
			s.Recent++
		case it.Components.Freshness > 0:
			s.Stale++
		}

		if it.Fallback {
			continue
		}
		scored++
		s.MeanComponents.Category += it.Components.Category
		s.MeanComponents.Grade += it.Components.Grade
		s.MeanComponents.Price += it.Components.Price
		s.MeanComponents.Content += it.Components.Content
		s.MeanComponents.Popularity += it.Components.Popularity
		s.MeanComponents.Freshness += it.Components.Freshness
	}

	if scored > 0 {
		n := float64(scored)
		s.MeanComponents.Category /= n
		s.MeanComponents.Grade /= n
		s.MeanComponents.Price /= n
		s.MeanComponents.Content /= n
		s.MeanComponents.Popularity /= n
		s.MeanComponents.Freshness /= n
	}
	return s
}

// ItemReasons 把候选的贡献因素翻译成可读的推荐理由。
// 因素按贡献大小降序，同大小按出现顺序。
func ItemReasons(it *core.Item) []string {
	factors := make([]core.Factor, len(it.Factors))
	copy(factors, it.Factors)
	sort.SliceStable(factors, func(i, j int) bool {
		return factors[i].Magnitude > factors[j].Magnitude
	})

	reasons := make([]string, 0, len(factors))
	for _, f := range factors {
		switch f.Kind {
		case core.FactorSimilarToLiked:
			reasons = append(reasons, fmt.Sprintf("similar to material %s you liked (%.0f%%)", f.RelatedID, f.Magnitude*100))
		case core.FactorCategoryMatch:
			reasons = append(reasons, fmt.Sprintf("matches your preferred subject %s", f.RelatedID))
		case core.FactorGradeMatch:
			reasons = append(reasons, fmt.Sprintf("matches your preferred grade %s", f.RelatedID))
		case core.FactorSeasonalRelevance:
			reasons = append(reasons, fmt.Sprintf("relevant for season %s", f.Season))
		case core.FactorPopularityBaseline:
			reasons = append(reasons, "popular with other teachers")
		}
	}
	if it.Fallback && len(reasons) == 0 {
		reasons = append(reasons, "popular with other teachers")
	}
	return reasons
}

// ProfileDigest 把画像压缩成一行可读摘要（日志排查用）。
func ProfileDigest(p *core.UserProfile) string {
	if p == nil || p.IsColdStart() {
		return "cold start"
	}
	return fmt.Sprintf("categories=%v grades=%v price=%s events=%d",
		p.PreferredCategories, p.PreferredGrades, p.PricePreference, totalEvents(p))
}

func totalEvents(p *core.UserProfile) int {
	n := 0
	for _, c := range p.EventCounts {
		n += c
	}
	return n
}

package core

import "github.com/materialmarkt/matkit/pkg/utils"

// ComponentScores 是单个候选在各个维度上的匹配分，均落在 [0,1]
// （Freshness 例外，它是乘数 0.7 / 1.0 / 1.5）。
type ComponentScores struct {
	Category   float64
	Grade      float64
	Price      float64
	Content    float64
	Popularity float64
	Freshness  float64
}

// Factor 记录一条对最终得分有贡献的因素，用于 explain。
type Factor struct {
	Kind      string  // similar_to_liked / category_match / seasonal_relevance / popularity_baseline ...
	RelatedID string  // similar_to_liked 时为相似的已购/已收藏素材 ID
	Season    string  // seasonal_relevance 时为匹配到的季节
	Magnitude float64 // 该因素的贡献大小
}

// 贡献因素的 Kind 常量。
const (
	FactorSimilarToLiked     = "similar_to_liked"
	FactorCategoryMatch      = "category_match"
	FactorGradeMatch         = "grade_match"
	FactorSeasonalRelevance  = "seasonal_relevance"
	FactorPopularityBaseline = "popularity_baseline"
)

// Item 是推荐链路中的统一承载结构：候选素材、各维度分数、贡献因素、标签。
// Labels 用于解释与策略驱动；Score 用于排序决策。
type Item struct {
	ID       string
	Score    float64
	Material *Material

	Components ComponentScores
	Factors    []Factor

	// Fallback 为 true 表示该候选来自低置信度的 fallback 池
	// （缺关键字段未参与打分，或被作者多样性约束挤出），仅按热度×新鲜度排序。
	Fallback bool

	Labels map[string]utils.Label
}

func NewItem(id string) *Item {
	return &Item{
		ID:     id,
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// AddFactor 追加一条贡献因素。
func (it *Item) AddFactor(f Factor) {
	it.Factors = append(it.Factors, f)
}

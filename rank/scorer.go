package rank

import (
	"sort"
	"time"

	"github.com/materialmarkt/matkit/core"
	"github.com/materialmarkt/matkit/feature"
)

// ScorerConfig 汇集打分的全部可调参数。
// 默认值来自对真实购买数据的离线回放调参，不同历史版本见 config 包预设。
type ScorerConfig struct {
	// 各维度在综合分里的权重
	CategoryWeight   float64
	GradeWeight      float64
	PriceWeight      float64
	PopularityWeight float64
	ContentWeight    float64

	// RelatedCategoryBonus 是候选类目与偏好类目相关（非精确匹配）时的保底分
	RelatedCategoryBonus float64

	// AffinityNorm 亲和度加成的归一化分母：bonus = weight / AffinityNorm
	AffinityNorm float64

	// SignificanceThreshold 相似度超过该值才计入内容分并记为 similar_to_liked 因素
	SignificanceThreshold float64

	// 新鲜度：LatestDate 距今 < FreshDays 乘 FreshFactor，
	// < RecentDays 乘 1.0，否则乘 StaleFactor
	FreshDays   float64
	RecentDays  float64
	FreshFactor float64
	StaleFactor float64

	// PopularityCeiling 热度分的归一化分母（rating / ceiling 封顶 1.0）
	PopularityCeiling float64

	// 季节加成：精确命中加 SeasonBoost，全年素材加 YearRoundBoost
	SeasonBoost    float64
	YearRoundBoost float64

	// YearRoundLabel 是目录里表示全年适用的季节标签
	YearRoundLabel string
}

// DefaultScorerConfig 返回默认打分参数。
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		CategoryWeight:        0.35,
		GradeWeight:           0.25,
		PriceWeight:           0.15,
		PopularityWeight:      0.15,
		ContentWeight:         0.10,
		RelatedCategoryBonus:  0.3,
		AffinityNorm:          100,
		SignificanceThreshold: 0.5,
		FreshDays:             90,
		RecentDays:            365,
		FreshFactor:           1.5,
		StaleFactor:           0.7,
		PopularityCeiling:     1000,
		SeasonBoost:           0.2,
		YearRoundBoost:        0.1,
		YearRoundLabel:        "ganzjährig",
	}
}

// Scorer 对单个候选计算各维度分数与综合分。
// 无内部状态，可被多个 goroutine 并发调用。
type Scorer struct {
	Config  ScorerConfig
	Buckets core.PriceBuckets

	// Now 提供当前时间（新鲜度基准），便于测试与重放。为 nil 时取墙钟。
	Now func() time.Time
}

// NewScorer 创建默认参数的 Scorer。
func NewScorer() *Scorer {
	return &Scorer{
		Config:  DefaultScorerConfig(),
		Buckets: core.DefaultPriceBuckets(),
	}
}

func (s *Scorer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Score 计算候选的综合分并回填各维度分数与贡献因素。
// 缺关键字段（类目/学段）的素材不参与个性化打分，
// 标记 Fallback 并按热度×新鲜度给分。
func (s *Scorer) Score(p *core.UserProfile, idx *feature.Index, season string, it *core.Item) {
	m := it.Material
	if m == nil || !m.HasRequiredFields() {
		it.Fallback = true
		it.Score = s.FallbackScore(m)
		if m != nil {
			it.Components.Popularity = s.popularityScore(m)
			it.Components.Freshness = s.freshnessFactor(m)
		}
		return
	}

	cfg := s.Config
	it.Components.Category = s.categoryScore(p, m, it)
	it.Components.Grade = s.gradeScore(p, m, it)
	it.Components.Price = s.priceScore(p, m)
	it.Components.Content = s.contentScore(p, idx, it)
	it.Components.Popularity = s.popularityScore(m)
	it.Components.Freshness = s.freshnessFactor(m)

	base := cfg.CategoryWeight*it.Components.Category +
		cfg.GradeWeight*it.Components.Grade +
		cfg.PriceWeight*it.Components.Price +
		cfg.PopularityWeight*it.Components.Popularity +
		cfg.ContentWeight*it.Components.Content

	score := base * it.Components.Freshness
	score += s.seasonalBoost(season, m, it)
	it.Score = score
}

// FallbackScore 是 fallback 池的排序分：热度 × 新鲜度。
// 作者多样性约束挤出的候选也用它重新定序。
func (s *Scorer) FallbackScore(m *core.Material) float64 {
	if m == nil {
		return 0
	}
	return s.popularityScore(m) * s.freshnessFactor(m)
}

// categoryScore 计算类目与偏好的排名加权重叠：
// 每个命中的偏好类目按排名贡献 1/(rank+1)，再加亲和度小幅加成；
// 与偏好类目相关（词面重叠）的类目贡献保底分；全部累加后封顶 1.0。
func (s *Scorer) categoryScore(p *core.UserProfile, m *core.Material, it *core.Item) float64 {
	if p == nil || len(p.PreferredCategories) == 0 {
		return 0
	}
	cfg := s.Config

	total := 0.0
	best := 0.0
	bestLabel := ""
	for _, c := range m.Categories {
		contrib := 0.0
		if rank := indexOf(p.PreferredCategories, c); rank >= 0 {
			contrib = 1.0 / float64(rank+1)
			if cfg.AffinityNorm > 0 {
				contrib += p.CategoryWeights[c] / cfg.AffinityNorm
			}
		} else if relatedToAny(c, p.PreferredCategories) {
			contrib = cfg.RelatedCategoryBonus
		}
		total += contrib
		if contrib > best {
			best = contrib
			bestLabel = c
		}
	}
	if total > 1 {
		total = 1
	}
	if total > 0 && bestLabel != "" {
		it.AddFactor(core.Factor{Kind: core.FactorCategoryMatch, RelatedID: bestLabel, Magnitude: total})
	}
	return total
}

// gradeScore 与 categoryScore 同构，但学段没有"相关"概念，只有精确命中。
func (s *Scorer) gradeScore(p *core.UserProfile, m *core.Material, it *core.Item) float64 {
	if p == nil || len(p.PreferredGrades) == 0 {
		return 0
	}
	cfg := s.Config

	total := 0.0
	best := 0.0
	bestLabel := ""
	for _, g := range m.Grades {
		rank := indexOf(p.PreferredGrades, g)
		if rank < 0 {
			continue
		}
		contrib := 1.0 / float64(rank+1)
		if cfg.AffinityNorm > 0 {
			contrib += p.GradeWeights[g] / cfg.AffinityNorm
		}
		total += contrib
		if contrib > best {
			best = contrib
			bestLabel = g
		}
	}
	if total > 1 {
		total = 1
	}
	if total > 0 && bestLabel != "" {
		it.AddFactor(core.Factor{Kind: core.FactorGradeMatch, RelatedID: bestLabel, Magnitude: total})
	}
	return total
}

// priceScore 按价格分档匹配：同档 1.0，相邻档 0.5，其余 0.2。
// 无价格偏好（冷启动）时给中性分 0.5。
func (s *Scorer) priceScore(p *core.UserProfile, m *core.Material) float64 {
	if p == nil || p.PricePreference == "" {
		return 0.5
	}
	bucket := s.Buckets.Bucket(m.Price)
	switch {
	case bucket == p.PricePreference:
		return 1.0
	case s.Buckets.Adjacent(bucket, p.PricePreference):
		return 0.5
	default:
		return 0.2
	}
}

// contentScore 取候选与已购/已收藏素材的显著相似度均值：
// 只统计超过显著阈值的相似度，一个都没超过时记 0（弱相似不算信号）。
// similar_to_liked 因素指向其中最相似的那份素材。
// 相似度遍历按 ID 排序，平手时归因到固定素材。
func (s *Scorer) contentScore(p *core.UserProfile, idx *feature.Index, it *core.Item) float64 {
	if p == nil || idx == nil || len(p.Liked) == 0 {
		return 0
	}

	liked := make([]string, 0, len(p.Liked))
	for id := range p.Liked {
		if id != it.ID {
			liked = append(liked, id)
		}
	}
	sort.Strings(liked)

	sum := 0.0
	n := 0
	best := 0.0
	bestID := ""
	for _, id := range liked {
		sim := idx.CombinedSimilarity(it.ID, id)
		if sim <= s.Config.SignificanceThreshold {
			continue
		}
		sum += sim
		n++
		if sim > best {
			best = sim
			bestID = id
		}
	}
	if n == 0 {
		return 0
	}
	it.AddFactor(core.Factor{Kind: core.FactorSimilarToLiked, RelatedID: bestID, Magnitude: best})
	return sum / float64(n)
}

// popularityScore 归一化畅销评分，封顶 1.0。
func (s *Scorer) popularityScore(m *core.Material) float64 {
	ceiling := s.Config.PopularityCeiling
	if ceiling <= 0 {
		ceiling = 1000
	}
	score := m.BestsellerRating / ceiling
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

// freshnessFactor 按素材最近更新时间给乘数。
// 无日期信息按最旧处理。
func (s *Scorer) freshnessFactor(m *core.Material) float64 {
	cfg := s.Config
	latest := m.LatestDate()
	if latest.IsZero() {
		return cfg.StaleFactor
	}
	days := s.now().Sub(latest).Hours() / 24
	switch {
	case days < cfg.FreshDays:
		return cfg.FreshFactor
	case days < cfg.RecentDays:
		return 1.0
	default:
		return cfg.StaleFactor
	}
}

// seasonalBoost 按请求季节加成：精确命中 > 全年适用。
func (s *Scorer) seasonalBoost(season string, m *core.Material, it *core.Item) float64 {
	if season == "" || len(m.Seasons) == 0 {
		return 0
	}
	cfg := s.Config
	for _, ms := range m.Seasons {
		if ms == season {
			it.AddFactor(core.Factor{Kind: core.FactorSeasonalRelevance, Season: season, Magnitude: cfg.SeasonBoost})
			return cfg.SeasonBoost
		}
	}
	for _, ms := range m.Seasons {
		if ms == cfg.YearRoundLabel {
			it.AddFactor(core.Factor{Kind: core.FactorSeasonalRelevance, Season: ms, Magnitude: cfg.YearRoundBoost})
			return cfg.YearRoundBoost
		}
	}
	return 0
}

func indexOf(list []string, v string) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}

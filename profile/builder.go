package profile

import (
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/materialmarkt/matkit/core"
)

// Builder 把一个用户的原始事件流构建成行为画像。
//
// 关键约束：
//   - 构建是 (events, catalog, 权重表) 的纯函数，相同输入重建得到逐位一致的亲和度。
//     为此参考时间取事件数据里最新的时间戳，绝不读墙钟；所有 map 遍历都先排序。
//   - 缺 user_id 的脏事件跳过并记录 warning，不影响其他事件。
//   - 无事件用户得到合法的空画像（冷启动），不是错误。
type Builder struct {
	Weights WeightTable
	Buckets core.PriceBuckets
	Logger  zerolog.Logger
}

// NewBuilder 创建 Builder；Logger 默认静默。
func NewBuilder(weights WeightTable, buckets core.PriceBuckets) *Builder {
	return &Builder{
		Weights: weights,
		Buckets: buckets,
		Logger:  zerolog.Nop(),
	}
}

// Build 构建用户画像。events 中不属于该用户的事件被忽略。
func (b *Builder) Build(userID string, events []core.RawEvent, catalog map[string]*core.Material) *core.UserProfile {
	p := core.NewUserProfile(userID)

	own := make([]core.RawEvent, 0, len(events))
	skipped := 0
	for _, e := range events {
		if e.UserID == "" {
			skipped++
			continue
		}
		if e.UserID != userID {
			continue
		}
		own = append(own, e)
	}
	if skipped > 0 {
		b.Logger.Warn().
			Str("user_id", userID).
			Int("skipped", skipped).
			Msg("profile: events without user_id skipped")
	}
	if len(own) == 0 {
		return p
	}

	p.ReferenceTime = referenceTime(own)
	decay := b.Weights.Decay()

	byType := make(map[core.EventType][]core.RawEvent, len(core.EventPriority))
	for _, e := range own {
		byType[e.Type] = append(byType[e.Type], e)
		p.EventCounts[e.Type]++
	}

	acc := newAccumulator()

	// 固定优先级顺序消费事件，保证重建可复现
	for _, et := range core.EventPriority {
		typed := byType[et]
		if len(typed) == 0 {
			continue
		}
		var contrib *core.Contribution
		switch et {
		case core.EventSearch:
			contrib = b.processSearches(typed, decay, p.ReferenceTime, catalog, acc, p)
		case core.EventCartRemove, core.EventBounce:
			contrib = b.processNegatives(typed, p)
		default:
			contrib = b.processMaterialEvents(et, typed, decay, p.ReferenceTime, catalog, acc, p)
		}
		contrib.Count = len(typed)
		p.Contributions[et] = contrib
	}

	b.finalize(p, acc)
	return p
}

// referenceTime 返回事件中最新的可解析时间戳；全部缺失时为零值。
func referenceTime(events []core.RawEvent) time.Time {
	var ref time.Time
	for _, e := range events {
		if !e.Time.IsZero() && e.Time.After(ref) {
			ref = e.Time
		}
	}
	return ref
}

// accumulator 聚合各维度的亲和度与平手仲裁所需的最近贡献时间。
type accumulator struct {
	categories map[string]float64
	grades     map[string]float64
	prices     map[core.PriceBucket]float64

	catTouch   map[string]time.Time
	gradeTouch map[string]time.Time
}

func newAccumulator() *accumulator {
	return &accumulator{
		categories: make(map[string]float64),
		grades:     make(map[string]float64),
		prices:     make(map[core.PriceBucket]float64),
		catTouch:   make(map[string]time.Time),
		gradeTouch: make(map[string]time.Time),
	}
}

func (a *accumulator) addCategory(label string, w float64, at time.Time) {
	if label == "" || w <= 0 {
		return
	}
	a.categories[label] += w
	if at.After(a.catTouch[label]) {
		a.catTouch[label] = at
	}
}

func (a *accumulator) addGrade(label string, w float64, at time.Time) {
	if label == "" || w <= 0 {
		return
	}
	a.grades[label] += w
	if at.After(a.gradeTouch[label]) {
		a.gradeTouch[label] = at
	}
}

// processMaterialEvents 处理带 material_id 的事件：
// contribution = event_weight(type, dimension) × time_decay。
// 素材不在目录里时退回事件自带的类目/学段字段。
func (b *Builder) processMaterialEvents(
	et core.EventType,
	events []core.RawEvent,
	decay Decay,
	ref time.Time,
	catalog map[string]*core.Material,
	acc *accumulator,
	p *core.UserProfile,
) *core.Contribution {
	catW := b.Weights.CategoryWeight(et)
	gradeW := b.Weights.GradeWeight(et)
	local := newAccumulator()

	for i := range events {
		e := events[i]
		if e.MaterialID == "" {
			continue
		}

		cats, grades := e.Categories, e.Grades
		if m, ok := catalog[e.MaterialID]; ok {
			cats, grades = m.Categories, m.Grades
		}

		d := decay.Factor(e.Time, ref)
		for _, c := range cats {
			acc.addCategory(c, catW*d, e.Time)
			local.addCategory(c, catW*d, e.Time)
		}
		for _, g := range grades {
			acc.addGrade(g, gradeW*d, e.Time)
			local.addGrade(g, gradeW*d, e.Time)
		}

		b.recordBehavior(et, e, d, acc, p)
	}

	return &core.Contribution{
		TopCategories:  rankedTop(local.categories, local.catTouch, 3),
		TopGrades:      rankedTop(local.grades, local.gradeTouch, 3),
		CategoryWeight: catW,
		GradeWeight:    gradeW,
	}
}

// recordBehavior 维护行为集合、价格计数与最近行为指针。
func (b *Builder) recordBehavior(et core.EventType, e core.RawEvent, d float64, acc *accumulator, p *core.UserProfile) {
	switch et {
	case core.EventPurchase:
		p.Liked[e.MaterialID] = struct{}{}
		acc.prices[b.Buckets.Bucket(e.Price)] += d
		if p.LastPurchase == nil || e.Time.After(p.LastPurchase.Time) {
			ev := e
			p.LastPurchase = &ev
		}
	case core.EventFavorite:
		p.Liked[e.MaterialID] = struct{}{}
	case core.EventDownload:
		p.Downloaded[e.MaterialID] = struct{}{}
	case core.EventView:
		if p.LastView == nil || e.Time.After(p.LastView.Time) {
			ev := e
			p.LastView = &ev
		}
	case core.EventPreview:
		if p.LastPreview == nil || e.Time.After(p.LastPreview.Time) {
			ev := e
			p.LastPreview = &ev
		}
	}
}

// processSearches 从搜索词反推类目/学段：
// 把目录里的标签小写后做子串匹配，命中即按搜索权重 × 衰减 × 搜索频次累加。
// 这是刻意保留的粗糙启发式，权重低于直接信号；学段命中再乘 SearchGradeDamp。
func (b *Builder) processSearches(
	events []core.RawEvent,
	decay Decay,
	ref time.Time,
	catalog map[string]*core.Material,
	acc *accumulator,
	p *core.UserProfile,
) *core.Contribution {
	catW := b.Weights.CategoryWeight(core.EventSearch)
	damp := b.Weights.SearchGradeDamp
	if damp <= 0 {
		damp = 0.5
	}
	local := newAccumulator()

	// 目录标签去重后排序匹配：同一标签出现在多少素材上与兴趣强度无关，
	// 且固定遍历顺序保证重建逐位一致
	categories, grades := catalogLabels(catalog)

	var last *core.RawEvent
	for i := range events {
		e := events[i]
		query := strings.ToLower(e.Query)
		if query == "" {
			continue
		}
		freq := float64(e.Frequency)
		if freq < 1 {
			freq = 1
		}
		w := catW * decay.Factor(e.Time, ref) * freq

		for _, c := range categories {
			if strings.Contains(query, strings.ToLower(c)) {
				acc.addCategory(c, w, e.Time)
				local.addCategory(c, w, e.Time)
			}
		}
		for _, g := range grades {
			if strings.Contains(query, strings.ToLower(g)) {
				acc.addGrade(g, w*damp, e.Time)
				local.addGrade(g, w*damp, e.Time)
			}
		}

		if last == nil || e.Time.After(last.Time) {
			ev := e
			last = &ev
		}
	}

	// LastSearch 在这里回填（搜索没有 material_id，不走 recordBehavior）
	if last != nil {
		p.LastSearch = last
	}

	return &core.Contribution{
		TopCategories:  rankedTop(local.categories, local.catTouch, 3),
		TopGrades:      rankedTop(local.grades, local.gradeTouch, 3),
		CategoryWeight: catW,
		GradeWeight:    catW * damp,
	}
}

// catalogLabels 返回目录里去重排序后的类目与学段标签。
func catalogLabels(catalog map[string]*core.Material) (categories, grades []string) {
	catSet := make(map[string]struct{})
	gradeSet := make(map[string]struct{})
	for _, m := range catalog {
		for _, c := range m.Categories {
			if c != "" {
				catSet[c] = struct{}{}
			}
		}
		for _, g := range m.Grades {
			if g != "" {
				gradeSet[g] = struct{}{}
			}
		}
	}
	categories = make([]string, 0, len(catSet))
	for c := range catSet {
		categories = append(categories, c)
	}
	grades = make([]string, 0, len(gradeSet))
	for g := range gradeSet {
		grades = append(grades, g)
	}
	sort.Strings(categories)
	sort.Strings(grades)
	return categories, grades
}

// processNegatives 处理显式负反馈：只进 Disliked 集合，不贡献亲和度。
func (b *Builder) processNegatives(events []core.RawEvent, p *core.UserProfile) *core.Contribution {
	for _, e := range events {
		if e.MaterialID != "" {
			p.Disliked[e.MaterialID] = struct{}{}
		}
	}
	return &core.Contribution{}
}

// finalize 归一化价格权重并派生排名偏好。
func (b *Builder) finalize(p *core.UserProfile, acc *accumulator) {
	p.CategoryWeights = acc.categories
	p.GradeWeights = acc.grades

	total := 0.0
	for _, v := range acc.prices {
		total += v
	}
	if total > 0 {
		for k, v := range acc.prices {
			p.PriceWeights[k] = v / total
		}
		p.PricePreference = topBucket(p.PriceWeights)
	} else {
		// 有行为但无购买证据：沿用 medium 兜底
		p.PricePreference = core.PriceMedium
	}

	p.PreferredCategories = rankedTop(acc.categories, acc.catTouch, 3)
	p.PreferredGrades = rankedTop(acc.grades, acc.gradeTouch, 3)
}

// rankedTop 按权重降序取前 n 个 label；
// 平手时最近贡献事件在前，再平手按 label 字典序，保证确定性。
func rankedTop(weights map[string]float64, touch map[string]time.Time, n int) []string {
	labels := make([]string, 0, len(weights))
	for l := range weights {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		wi, wj := weights[labels[i]], weights[labels[j]]
		if wi != wj {
			return wi > wj
		}
		ti, tj := touch[labels[i]], touch[labels[j]]
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return labels[i] < labels[j]
	})
	if len(labels) > n {
		labels = labels[:n]
	}
	return labels
}

// topBucket 返回权重最高的价格分档，平手取固定顺序靠前的档位。
func topBucket(weights map[core.PriceBucket]float64) core.PriceBucket {
	best := core.PriceMedium
	bestW := -1.0
	for _, bucket := range core.PriceBucketOrder {
		if w, ok := weights[bucket]; ok && w > bestW {
			best = bucket
			bestW = w
		}
	}
	return best
}

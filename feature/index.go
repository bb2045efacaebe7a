package feature

import (
	"github.com/materialmarkt/matkit/core"
)

// Index 是目录的相似度索引：文本 TF-IDF 向量 + 类别属性行。
// 构建后只读，可被多个 goroutine 并发查询。
type Index struct {
	textWeight   float64
	vectors      map[string]map[string]float64
	rows         map[string]*categoricalRow
	textDegraded bool
}

// categoricalRow 是一份素材参与类别相似度计算的属性快照。
type categoricalRow struct {
	categories []string
	grades     []string
	seasons    []string
	format     string
	complexity string
	approach   string
	bundle     bool
}

// TextDegraded 报告文本索引是否因词表为空而降级。
// 降级时 CombinedSimilarity 只看类别属性。
func (idx *Index) TextDegraded() bool {
	return idx.textDegraded
}

// Len 返回索引中的素材数量。
func (idx *Index) Len() int {
	return len(idx.rows)
}

// Has 报告素材是否在索引中。
func (idx *Index) Has(materialID string) bool {
	_, ok := idx.rows[materialID]
	return ok
}

// TextSimilarity 返回两份素材文本向量的余弦相似度。
// 任一向量缺失（空文本或索引降级）时为 0。
func (idx *Index) TextSimilarity(a, b string) float64 {
	if idx.textDegraded {
		return 0
	}
	return cosine(idx.vectors[a], idx.vectors[b])
}

// CategoricalSimilarity 返回类别属性相似度：
// 多值字段（类目/学段/季节）取 Jaccard，单值字段（形式/难度/教学法/是否套装）
// 取精确匹配，结果为双方都有值的字段的平均分。双方都没有可比字段时为 0。
func (idx *Index) CategoricalSimilarity(a, b string) float64 {
	ra, rb := idx.rows[a], idx.rows[b]
	if ra == nil || rb == nil {
		return 0
	}

	var sum float64
	var n int

	if len(ra.categories) > 0 && len(rb.categories) > 0 {
		sum += jaccard(ra.categories, rb.categories)
		n++
	}
	if len(ra.grades) > 0 && len(rb.grades) > 0 {
		sum += jaccard(ra.grades, rb.grades)
		n++
	}
	if len(ra.seasons) > 0 && len(rb.seasons) > 0 {
		sum += jaccard(ra.seasons, rb.seasons)
		n++
	}
	if ra.format != "" && rb.format != "" {
		sum += exact(ra.format, rb.format)
		n++
	}
	if ra.complexity != "" && rb.complexity != "" {
		sum += exact(ra.complexity, rb.complexity)
		n++
	}
	if ra.approach != "" && rb.approach != "" {
		sum += exact(ra.approach, rb.approach)
		n++
	}
	// 布尔字段永远有值，总是参与平均
	if ra.bundle == rb.bundle {
		sum += 1
	}
	n++

	return sum / float64(n)
}

// CombinedSimilarity 返回加权综合相似度：
// text_weight × 文本 + (1 - text_weight) × 类别。
// 文本索引降级时退化为纯类别相似度（权重不再分摊给文本）。
func (idx *Index) CombinedSimilarity(a, b string) float64 {
	cat := idx.CategoricalSimilarity(a, b)
	if idx.textDegraded {
		return cat
	}
	return idx.textWeight*idx.TextSimilarity(a, b) + (1-idx.textWeight)*cat
}

// jaccard 计算两个标签集合的 Jaccard 系数。
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, x := range a {
		set[x] = struct{}{}
	}
	union := len(set)
	inter := 0
	seen := make(map[string]struct{}, len(b))
	for _, y := range b {
		if _, dup := seen[y]; dup {
			continue
		}
		seen[y] = struct{}{}
		if _, ok := set[y]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func exact(a, b string) float64 {
	if a == b {
		return 1
	}
	return 0
}

func newRow(m *core.Material) *categoricalRow {
	return &categoricalRow{
		categories: m.Categories,
		grades:     m.Grades,
		seasons:    m.Seasons,
		format:     m.Format,
		complexity: m.Complexity,
		approach:   m.TeachingApproach,
		bundle:     m.IsBundle,
	}
}

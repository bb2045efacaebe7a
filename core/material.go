package core

import (
	"strings"
	"time"
)

// Material 是素材目录的一条快照记录，加载后不可变。
// 价格与评分缺失时为 0；时间字段缺失时为零值，由下游按默认年龄兜底。
type Material struct {
	ID    string
	Title string
	// Description 是自由文本描述，与 Title/Topics 等一起参与文本相似度。
	Description string
	AuthorID    string

	// Categories / Grades 允许多值（目录里常见 "Mathematik, Sachunterricht"）
	Categories []string
	Grades     []string

	// Price 单位为欧元，>= 0
	Price float64
	// BestsellerRating 作为热度代理值，>= 0，通常 0-1000
	BestsellerRating float64

	CreatedAt time.Time
	UpdatedAt time.Time

	// 分类特征（可选），参与类别相似度计算
	Format           string
	Complexity       string
	TeachingApproach string
	Topics           []string
	Competencies     []string
	// Seasons 是季节标签，例如 ["Winter", "ganzjährig"]
	Seasons  []string
	IsBundle bool
}

// ContentText 把所有描述性文本字段拼成一个文档，供 TF-IDF 向量化。
func (m *Material) ContentText() string {
	parts := make([]string, 0, 8+len(m.Topics)+len(m.Competencies))
	parts = append(parts, m.Title, m.Description)
	parts = append(parts, m.Categories...)
	parts = append(parts, m.Grades...)
	parts = append(parts, m.Topics...)
	parts = append(parts, m.Competencies...)
	if m.TeachingApproach != "" {
		parts = append(parts, m.TeachingApproach)
	}
	if m.Format != "" {
		parts = append(parts, m.Format)
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// LatestDate 返回创建/更新时间中较新的一个；两者都缺失时返回零值。
func (m *Material) LatestDate() time.Time {
	if m.UpdatedAt.After(m.CreatedAt) {
		return m.UpdatedAt
	}
	return m.CreatedAt
}

// HasRequiredFields 判断素材是否具备打分所需的关键字段。
// 缺失类目或学段的素材不参与个性化打分，只能进入 fallback 池。
func (m *Material) HasRequiredFields() bool {
	return len(m.Categories) > 0 && len(m.Grades) > 0
}

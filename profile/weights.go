package profile

import "github.com/materialmarkt/matkit/core"

// WeightTable 是事件权重表：事件类型 → (类目权重, 学段权重)，外加衰减参数。
// 权重来自对购买行为的相关性分析，纯数据，不同历史版本收敛为 config 包里的预设。
type WeightTable struct {
	// Category / Grade 分别是类目与学段维度的事件权重
	Category map[core.EventType]float64
	Grade    map[core.EventType]float64

	// HalfLifeDays 衰减半衰期（天）
	HalfLifeDays float64

	// DefaultAgeDays 无法解析时间戳时的兜底年龄（天）
	DefaultAgeDays float64

	// SearchGradeDamp 搜索词推断学段时的额外折减。
	// 搜索没有直接学段字段，只能子串匹配，置信度低于直接信号。
	SearchGradeDamp float64
}

// DefaultWeightTable 返回默认权重表（相关性分析得出的基准值：
// 购买始终为满权重，浏览/预览次之，收藏最弱）。
func DefaultWeightTable() WeightTable {
	return WeightTable{
		Category: map[core.EventType]float64{
			core.EventPurchase:  1.0,
			core.EventView:      0.52,
			core.EventPreview:   0.36,
			core.EventSearch:    0.29,
			core.EventAddToCart: 0.23,
			core.EventDownload:  0.12,
			core.EventFavorite:  0.11,
		},
		Grade: map[core.EventType]float64{
			core.EventPurchase:  1.0,
			core.EventView:      0.46,
			core.EventPreview:   0.32,
			core.EventSearch:    0, // 搜索对学段无直接信号，仅靠推断
			core.EventAddToCart: 0.20,
			core.EventDownload:  0.11,
			core.EventFavorite:  0.10,
		},
		HalfLifeDays:    30,
		DefaultAgeDays:  365,
		SearchGradeDamp: 0.5,
	}
}

// CategoryWeight 返回事件类型在类目维度的权重，未配置为 0。
func (t WeightTable) CategoryWeight(et core.EventType) float64 {
	return t.Category[et]
}

// GradeWeight 返回事件类型在学段维度的权重，未配置为 0。
func (t WeightTable) GradeWeight(et core.EventType) float64 {
	return t.Grade[et]
}

// Decay 返回权重表对应的衰减函数。
func (t WeightTable) Decay() Decay {
	return Decay{HalfLifeDays: t.HalfLifeDays, DefaultAgeDays: t.DefaultAgeDays}
}

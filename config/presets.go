package config

import (
	"github.com/materialmarkt/matkit/core"
	"github.com/materialmarkt/matkit/engine"
	"github.com/materialmarkt/matkit/profile"
	"github.com/materialmarkt/matkit/rank"
)

// Preset 是一组经过离线回放验证的参数组合。
// 预设之间只有数据不同，打分与画像逻辑完全一致。
type Preset struct {
	Name string

	Weights                profile.WeightTable
	Scorer                 rank.ScorerConfig
	PerAuthor              int
	FallbackPoolMultiplier int
}

// PresetRealPrototype 是默认预设：事件权重来自对真实购买数据的相关性分析。
func PresetRealPrototype() Preset {
	return Preset{
		Name:                   "real_prototype",
		Weights:                profile.DefaultWeightTable(),
		Scorer:                 rank.DefaultScorerConfig(),
		PerAuthor:              3,
		FallbackPoolMultiplier: 2,
	}
}

// PresetRuleBasedV1 是第一版手工规则权重：间隔均匀的保守取值，
// 作者上限收紧到 2，多样性优先。
func PresetRuleBasedV1() Preset {
	weights := profile.WeightTable{
		Category: map[core.EventType]float64{
			core.EventPurchase:  1.0,
			core.EventView:      0.5,
			core.EventPreview:   0.4,
			core.EventSearch:    0.3,
			core.EventAddToCart: 0.2,
			core.EventDownload:  0.15,
			core.EventFavorite:  0.1,
		},
		Grade: map[core.EventType]float64{
			core.EventPurchase:  1.0,
			core.EventView:      0.5,
			core.EventPreview:   0.4,
			core.EventSearch:    0,
			core.EventAddToCart: 0.2,
			core.EventDownload:  0.15,
			core.EventFavorite:  0.1,
		},
		HalfLifeDays:    30,
		DefaultAgeDays:  365,
		SearchGradeDamp: 0.5,
	}
	return Preset{
		Name:                   "rule_based_v1",
		Weights:                weights,
		Scorer:                 rank.DefaultScorerConfig(),
		PerAuthor:              2,
		FallbackPoolMultiplier: 2,
	}
}

// PresetRuleBasedV2 是第二版手工规则权重：整体抬高非购买信号，
// 类目维度在学段基础上再乘 1.2（封顶 1.0）。
func PresetRuleBasedV2() Preset {
	grade := map[core.EventType]float64{
		core.EventPurchase:  1.0,
		core.EventView:      0.7,
		core.EventPreview:   0.5,
		core.EventSearch:    0,
		core.EventAddToCart: 0.4,
		core.EventDownload:  0.3,
		core.EventFavorite:  0.2,
	}
	category := make(map[core.EventType]float64, len(grade))
	for et, w := range grade {
		v := w * 1.2
		if v > 1 {
			v = 1
		}
		category[et] = v
	}
	category[core.EventSearch] = 0.3

	return Preset{
		Name: "rule_based_v2",
		Weights: profile.WeightTable{
			Category:        category,
			Grade:           grade,
			HalfLifeDays:    30,
			DefaultAgeDays:  365,
			SearchGradeDamp: 0.5,
		},
		Scorer:                 rank.DefaultScorerConfig(),
		PerAuthor:              3,
		FallbackPoolMultiplier: 2,
	}
}

// Presets 按名称返回预设，未知名称回落到默认预设。
func Presets(name string) Preset {
	switch name {
	case "rule_based_v1":
		return PresetRuleBasedV1()
	case "rule_based_v2":
		return PresetRuleBasedV2()
	default:
		return PresetRealPrototype()
	}
}

// EngineOptions 把预设展开为引擎装配配置。
func (p Preset) EngineOptions() engine.Options {
	return engine.Options{
		Weights:                p.Weights,
		Buckets:                core.DefaultPriceBuckets(),
		Scorer:                 p.Scorer,
		PerAuthor:              p.PerAuthor,
		FallbackPoolMultiplier: p.FallbackPoolMultiplier,
	}
}

package core

import "github.com/materialmarkt/matkit/pkg/utils"

// RecommendContext 承载用户/请求信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID string

	// Profile 是本次请求构建的行为画像；冷启动时为空画像而非 nil。
	Profile *UserProfile

	// Limit 是期望的结果条数（>= 1）。
	Limit int

	// DiversityFactor ∈ [0,1]，最终分 = combined·(1−d) + random·d。
	DiversityFactor float64

	// Season 是请求时的季节标签（由调用方给出，打分内部不读墙钟）。
	// 为空时不做季节加成。
	Season string

	// Params 请求级上下文参数（调试开关、实验参数等）。
	Params map[string]any

	// Labels 是用户级标签，可驱动 Pipeline 行为（规则过滤等）。
	Labels map[string]utils.Label
}

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}

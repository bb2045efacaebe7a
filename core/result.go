package core

// 结果为空时的原因代码，便于调用方区分"目录为空"和"用户看遍了"。
const (
	// ReasonOK 表示正常返回
	ReasonOK = "OK"
	// ReasonEmptyCatalog 表示目录里没有任何素材
	ReasonEmptyCatalog = "EMPTY_CATALOG"
	// ReasonExhausted 表示有目录但过滤后无候选（用户已消费/否定全部素材）
	ReasonExhausted = "CANDIDATES_EXHAUSTED"
)

// RecommendationResult 是一次推荐调用的结构化输出。
// Items 按最终得分降序，fallback 候选排在非 fallback 候选之后，
// 长度 = min(limit, 可用候选 + fallback 池)。
type RecommendationResult struct {
	UserID string
	Items  []*Item

	// Baseline 为 true 表示冷启动用户走了纯热度兜底路径。
	Baseline bool

	// Reason 在 Items 为空时说明原因（见 Reason* 常量），否则为 ReasonOK。
	Reason string
}

// IsEmptyCatalog 判断结果是否因目录为空而为空。
func (r *RecommendationResult) IsEmptyCatalog() bool {
	return r.Reason == ReasonEmptyCatalog
}

// IsExhausted 判断结果是否因候选被全部过滤而为空。
func (r *RecommendationResult) IsExhausted() bool {
	return r.Reason == ReasonExhausted
}

// FallbackCount 返回结果中 fallback 候选的数量。
func (r *RecommendationResult) FallbackCount() int {
	n := 0
	for _, it := range r.Items {
		if it != nil && it.Fallback {
			n++
		}
	}
	return n
}

package filter

import (
	"context"

	"github.com/materialmarkt/matkit/core"
)

// InteractedFilter 剔除用户已交互过的素材：
// 已购买/已收藏（重复推荐无意义）、已下载、以及显式负反馈过的素材。
// 冷启动（无画像或空画像）时全部放行。
type InteractedFilter struct{}

func (InteractedFilter) Name() string { return "filter.interacted" }

func (InteractedFilter) Keep(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	p := rctx.Profile
	if p == nil {
		return true, nil
	}
	return !p.Seen(item.ID), nil
}

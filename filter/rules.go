package filter

import (
	"context"

	"github.com/materialmarkt/matkit/core"
	"github.com/materialmarkt/matkit/pkg/dsl"
)

// RulesFilter 按 CEL 规则表达式剔除候选：任一规则命中即剔除。
// 规则里可访问 item 与 user 两个变量，例如排除高价套装：
//
//	item.is_bundle && item.price > 7.0
type RulesFilter struct {
	Rules []string

	eval *dsl.Evaluator
}

func NewRulesFilter(rules []string) *RulesFilter {
	return &RulesFilter{
		Rules: rules,
		eval:  dsl.NewEvaluator(),
	}
}

func (f *RulesFilter) Name() string { return "filter.rules" }

func (f *RulesFilter) Keep(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	if len(f.Rules) == 0 {
		return true, nil
	}

	vars := map[string]any{
		"item": itemVars(item),
		"user": userVars(rctx.Profile),
	}
	for _, rule := range f.Rules {
		hit, err := f.eval.EvalBool(rule, vars)
		if err != nil {
			return false, err
		}
		if hit {
			return false, nil
		}
	}
	return true, nil
}

// itemVars 把候选素材展开为表达式可读的 map。
func itemVars(item *core.Item) map[string]any {
	vars := map[string]any{
		"id":       item.ID,
		"score":    item.Score,
		"fallback": item.Fallback,
	}
	if m := item.Material; m != nil {
		vars["title"] = m.Title
		vars["author_id"] = m.AuthorID
		vars["categories"] = m.Categories
		vars["grades"] = m.Grades
		vars["price"] = m.Price
		vars["bestseller_rating"] = m.BestsellerRating
		vars["format"] = m.Format
		vars["complexity"] = m.Complexity
		vars["is_bundle"] = m.IsBundle
		vars["seasons"] = m.Seasons
	}
	return vars
}

// userVars 把画像摘要展开为表达式可读的 map。
func userVars(p *core.UserProfile) map[string]any {
	if p == nil {
		return map[string]any{"cold_start": true}
	}
	return map[string]any{
		"user_id":              p.UserID,
		"cold_start":           p.IsColdStart(),
		"preferred_categories": p.PreferredCategories,
		"preferred_grades":     p.PreferredGrades,
		"price_preference":     string(p.PricePreference),
	}
}

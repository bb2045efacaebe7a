package rank

import (
	"strings"
	"unicode"
)

// relatedToAny 判断类目与任一偏好类目是否相关。
func relatedToAny(category string, preferred []string) bool {
	for _, p := range preferred {
		if related(category, p) {
			return true
		}
	}
	return false
}

// related 用词面重叠近似类目相关性：
// 小写后一方包含另一方，或共享一个长度 >= 4 的词。
// 例如 "Deutsch als Zweitsprache" 与 "Deutsch" 相关，
// "Mathematik" 与 "Kunst" 不相关。纯启发式，误报率可接受。
func related(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la == "" || lb == "" || la == lb {
		return false
	}
	if strings.Contains(la, lb) || strings.Contains(lb, la) {
		return true
	}
	for _, wa := range words(la) {
		if len([]rune(wa)) < 4 {
			continue
		}
		for _, wb := range words(lb) {
			if wa == wb {
				return true
			}
		}
	}
	return false
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

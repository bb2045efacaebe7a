package profile

import (
	"math"
	"time"
)

// Decay 计算事件的时间衰减系数：2^(-days/half_life)。
// 越近的事件权重越高；30 天半衰期意味着一个月前的事件只剩一半分量。
type Decay struct {
	// HalfLifeDays 半衰期（天），<= 0 时取 30
	HalfLifeDays float64

	// DefaultAgeDays 时间戳缺失/不可解析（零值）时的兜底年龄，<= 0 时取 365
	DefaultAgeDays float64
}

// Factor 返回衰减系数 ∈ (0, 1]。
// 事件时间晚于参考时间（时钟偏差）按 0 天处理，系数为 1。
func (d Decay) Factor(eventTime, reference time.Time) float64 {
	half := d.HalfLifeDays
	if half <= 0 {
		half = 30
	}
	return math.Pow(2, -d.ageDays(eventTime, reference)/half)
}

func (d Decay) ageDays(eventTime, reference time.Time) float64 {
	if eventTime.IsZero() {
		if d.DefaultAgeDays > 0 {
			return d.DefaultAgeDays
		}
		return 365
	}
	days := reference.Sub(eventTime).Hours() / 24
	if days < 0 {
		days = 0
	}
	return days
}

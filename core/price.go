package core

import "math"

// PriceBucket 是固定的价格分档，按 free ≤ low ≤ medium ≤ high 排序。
type PriceBucket string

const (
	PriceFree   PriceBucket = "free"
	PriceLow    PriceBucket = "low"
	PriceMedium PriceBucket = "medium"
	PriceHigh   PriceBucket = "high"
)

// PriceBucketOrder 是分档的固定顺序，用于相邻档位判断。
var PriceBucketOrder = []PriceBucket{PriceFree, PriceLow, PriceMedium, PriceHigh}

// PriceBuckets 定义分档边界（可配置，但档位本身固定且不重叠）。
// 默认：0 → free；(0, 2] → low；(2, 7] → medium；(7, ∞) → high。
type PriceBuckets struct {
	LowMax    float64
	MediumMax float64
}

// DefaultPriceBuckets 返回默认分档边界。
func DefaultPriceBuckets() PriceBuckets {
	return PriceBuckets{LowMax: 2, MediumMax: 7}
}

// Bucket 返回价格所属的分档。负价按 0 处理。
func (b PriceBuckets) Bucket(price float64) PriceBucket {
	if price <= 0 || math.IsNaN(price) {
		return PriceFree
	}
	switch {
	case price <= b.LowMax:
		return PriceLow
	case price <= b.MediumMax:
		return PriceMedium
	default:
		return PriceHigh
	}
}

// Adjacent 判断两个分档在固定顺序上是否相邻（相同不算相邻）。
func (b PriceBuckets) Adjacent(x, y PriceBucket) bool {
	xi, yi := bucketIndex(x), bucketIndex(y)
	if xi < 0 || yi < 0 || xi == yi {
		return false
	}
	if xi-yi == 1 || yi-xi == 1 {
		return true
	}
	return false
}

func bucketIndex(b PriceBucket) int {
	for i, v := range PriceBucketOrder {
		if v == b {
			return i
		}
	}
	return -1
}

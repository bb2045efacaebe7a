package core

import "time"

// EventType 标识一条用户行为事件的类型。
type EventType string

const (
	EventPurchase  EventType = "purchase"
	EventView      EventType = "view"
	EventPreview   EventType = "preview"
	EventAddToCart EventType = "add_to_cart"
	EventSearch    EventType = "search"
	EventDownload  EventType = "download"
	EventFavorite  EventType = "favorite"

	// 显式负反馈信号，来源系统存在时才有
	EventCartRemove EventType = "cart_remove"
	EventBounce     EventType = "bounce"
)

// EventPriority 是事件类型的固定处理顺序（重要性从高到低）。
// 画像构建严格按此顺序消费事件，保证重建结果可复现。
var EventPriority = []EventType{
	EventPurchase,
	EventView,
	EventPreview,
	EventAddToCart,
	EventSearch,
	EventDownload,
	EventFavorite,
	EventCartRemove,
	EventBounce,
}

// RawEvent 是一条不可变的原始行为事件。
// 上游加载层负责解析时间戳：解析失败时保持 Time 为零值，
// 画像层会按配置的默认年龄兜底，绝不因此失败。
type RawEvent struct {
	Type       EventType
	UserID     string
	MaterialID string // search 事件为空

	// 事件自带的类目/学段信息，素材不在目录里时作为兜底
	Categories []string
	Grades     []string

	Price float64
	Time  time.Time

	// 仅 search 事件使用
	Query     string
	Frequency int // 搜索次数，缺省按 1 处理
}

// IsNegative 判断事件是否为显式负反馈。
func (e *RawEvent) IsNegative() bool {
	return e.Type == EventCartRemove || e.Type == EventBounce
}

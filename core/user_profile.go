package core

import "time"

// UserProfile 是行为画像：把一个用户的原始事件流压缩成
// 带衰减权重的偏好信号，驱动 Recall / Rank / ReRank。
//
// 画像每次请求从事件流重建，构建完成后只读；
// 相同输入重建必须得到逐位一致的亲和度（参考时间取自事件数据，不取墙钟）。
type UserProfile struct {
	UserID string

	// 亲和度（长期兴趣）：label → 累积衰减权重
	CategoryWeights map[string]float64
	GradeWeights    map[string]float64

	// 价格偏好：分档 → 相对权重（归一化后和为 1）
	PriceWeights map[PriceBucket]float64

	// 排名靠前的偏好（按亲和度取前 3，平手取最近贡献事件）
	PreferredCategories []string
	PreferredGrades     []string

	// PricePreference 为空字符串表示冷启动（完全无购买证据时为 medium 兜底）
	PricePreference PriceBucket

	// 行为集合：候选过滤的依据
	Liked      map[string]struct{} // 已购 + 已收藏
	Disliked   map[string]struct{} // 显式负反馈（移出购物车、跳出）
	Downloaded map[string]struct{}

	// 最近行为指针
	LastPurchase *RawEvent
	LastView     *RawEvent
	LastPreview  *RawEvent
	LastSearch   *RawEvent

	// ReferenceTime 是衰减计算的参考时间 = 用户事件中最新的时间戳。
	// 无可解析时间戳时为零值，此时所有事件按默认年龄衰减。
	ReferenceTime time.Time

	EventCounts map[EventType]int

	// Contributions 按事件类型拆解画像来源，用于 explain / 调参。
	Contributions map[EventType]*Contribution
}

// Contribution 描述某一事件类型对画像的贡献。
type Contribution struct {
	Count          int
	TopCategories  []string
	TopGrades      []string
	CategoryWeight float64 // 该类型在类目维度的配置权重
	GradeWeight    float64
}

// NewUserProfile 创建一个空画像（冷启动形态）。
func NewUserProfile(userID string) *UserProfile {
	return &UserProfile{
		UserID:          userID,
		CategoryWeights: make(map[string]float64),
		GradeWeights:    make(map[string]float64),
		PriceWeights:    make(map[PriceBucket]float64),
		Liked:           make(map[string]struct{}),
		Disliked:        make(map[string]struct{}),
		Downloaded:      make(map[string]struct{}),
		EventCounts:     make(map[EventType]int),
		Contributions:   make(map[EventType]*Contribution),
	}
}

// IsColdStart 判断是否为冷启动用户：没有任何亲和度证据。
// 调用方应将其视为"走热度兜底"，而不是错误。
func (p *UserProfile) IsColdStart() bool {
	if p == nil {
		return true
	}
	return len(p.CategoryWeights) == 0 && len(p.GradeWeights) == 0 &&
		len(p.Liked) == 0 && len(p.Downloaded) == 0
}

// TopCategory 返回亲和度最高的类目；冷启动时返回 ("", false)。
func (p *UserProfile) TopCategory() (string, bool) {
	if len(p.PreferredCategories) == 0 {
		return "", false
	}
	return p.PreferredCategories[0], true
}

// TopGrade 返回亲和度最高的学段；冷启动时返回 ("", false)。
func (p *UserProfile) TopGrade() (string, bool) {
	if len(p.PreferredGrades) == 0 {
		return "", false
	}
	return p.PreferredGrades[0], true
}

// Seen 判断素材是否已被用户消费或否定过（不应再作为候选）。
func (p *UserProfile) Seen(materialID string) bool {
	if p == nil {
		return false
	}
	if _, ok := p.Liked[materialID]; ok {
		return true
	}
	if _, ok := p.Disliked[materialID]; ok {
		return true
	}
	_, ok := p.Downloaded[materialID]
	return ok
}

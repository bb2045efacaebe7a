package core

import "context"

// CatalogSource 提供素材目录快照。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 引擎把目录视为抽象输入，不关心它来自文件、数据库还是缓存
type CatalogSource interface {
	// Materials 返回目录快照（material_id → Material），调用方只读。
	Materials(ctx context.Context) (map[string]*Material, error)

	// Version 返回快照版本号；版本不变时特征索引不重建。
	Version(ctx context.Context) (string, error)
}

// EventSource 提供用户的原始行为事件。
type EventSource interface {
	// UserEvents 返回指定用户的全部事件；未知用户返回空切片，不是错误。
	UserEvents(ctx context.Context, userID string) ([]RawEvent, error)
}

// Store 是通用 KV 存储的领域接口，由 store 包实现（内存 / Redis）。
type Store interface {
	// Name 返回存储后端名称（用于日志/观测）
	Name() string

	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl ...int) error
	Delete(ctx context.Context, key string) error

	// BatchGet 批量读取（减少网络往返）
	BatchGet(ctx context.Context, keys []string) (map[string][]byte, error)
	BatchSet(ctx context.Context, kvs map[string][]byte, ttl ...int) error

	Close() error
}

// KeyValueStore 是 Store 的扩展接口，增加有序集合操作。
// 热度榜（"hot:materials"）即以 zset 存放；不支持的后端可返回 ErrStoreNotSupported。
type KeyValueStore interface {
	Store

	// ZAdd 向有序集合添加成员（热度榜、GMV 榜等）
	ZAdd(ctx context.Context, key string, score float64, member string) error

	// ZRange 按分数降序获取成员（用于 TopN 召回）
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// ZScore 获取成员分数
	ZScore(ctx context.Context, key string, member string) (float64, error)
}

// Store 错误定义（使用统一的 DomainError）
var (
	// ErrStoreNotFound 表示 key 不存在
	ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")

	// ErrStoreNotSupported 表示操作不支持
	ErrStoreNotSupported = NewDomainError(ModuleStore, ErrorCodeNotSupported, "store: operation not supported")
)

// IsStoreNotFound 检查错误是否为 key 不存在。
func IsStoreNotFound(err error) bool {
	domainErr := GetDomainError(err)
	return domainErr != nil && domainErr.Module == ModuleStore && domainErr.Code == ErrorCodeNotFound
}

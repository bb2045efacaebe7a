package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/materialmarkt/matkit/core"
)

// MemoryStore 是基于内存的 KV 存储实现。
//
// 适用场景：
//   - 单机部署、离线实验
//   - 单元测试
//
// 支持 TTL 过期（惰性删除）与有序集合操作。
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	expiry map[string]time.Time
	zsets  map[string]map[string]float64
}

// NewMemoryStore 创建内存存储。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:   make(map[string][]byte),
		expiry: make(map[string]time.Time),
		zsets:  make(map[string]map[string]float64),
	}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	value, ok := s.data[key]
	exp, hasExp := s.expiry[key]
	s.mu.RUnlock()

	if !ok {
		return nil, core.ErrStoreNotFound
	}
	if hasExp && time.Now().After(exp) {
		s.mu.Lock()
		delete(s.data, key)
		delete(s.expiry, key)
		s.mu.Unlock()
		return nil, core.ErrStoreNotFound
	}
	return value, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	if len(ttl) > 0 && ttl[0] > 0 {
		s.expiry[key] = time.Now().Add(time.Duration(ttl[0]) * time.Second)
	} else {
		delete(s.expiry, key)
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	delete(s.expiry, key)
	delete(s.zsets, key)
	return nil
}

func (s *MemoryStore) BatchGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	for _, key := range keys {
		value, err := s.Get(ctx, key)
		if err != nil {
			if core.IsStoreNotFound(err) {
				continue
			}
			return nil, err
		}
		result[key] = value
	}
	return result, nil
}

func (s *MemoryStore) BatchSet(ctx context.Context, kvs map[string][]byte, ttl ...int) error {
	for key, value := range kvs {
		if err := s.Set(ctx, key, value, ttl...); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	zset, ok := s.zsets[key]
	if !ok {
		zset = make(map[string]float64)
		s.zsets[key] = zset
	}
	zset[member] = score
	return nil
}

// ZRange 按分数降序返回 [start, stop] 区间的成员（含两端），
// stop 为 -1 表示取到末尾。同分成员按字典序，结果确定。
func (s *MemoryStore) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.RLock()
	zset, ok := s.zsets[key]
	if !ok {
		s.mu.RUnlock()
		return nil, nil
	}
	members := make([]string, 0, len(zset))
	for m := range zset {
		members = append(members, m)
	}
	scores := make(map[string]float64, len(zset))
	for m, sc := range zset {
		scores[m] = sc
	}
	s.mu.RUnlock()

	sort.Slice(members, func(i, j int) bool {
		si, sj := scores[members[i]], scores[members[j]]
		if si != sj {
			return si > sj
		}
		return members[i] < members[j]
	})

	n := int64(len(members))
	if stop < 0 || stop >= n {
		stop = n - 1
	}
	if start < 0 {
		start = 0
	}
	if start > stop {
		return nil, nil
	}
	return members[start : stop+1], nil
}

func (s *MemoryStore) ZScore(ctx context.Context, key string, member string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	zset, ok := s.zsets[key]
	if !ok {
		return 0, core.ErrStoreNotFound
	}
	score, ok := zset[member]
	if !ok {
		return 0, core.ErrStoreNotFound
	}
	return score, nil
}

func (s *MemoryStore) Close() error { return nil }

// MemoryCatalog 是基于内存的目录快照源，每次替换素材集合时版本号递增。
type MemoryCatalog struct {
	mu        sync.RWMutex
	materials map[string]*core.Material
	revision  uint64
}

// NewMemoryCatalog 创建目录源并载入初始素材。
func NewMemoryCatalog(materials map[string]*core.Material) *MemoryCatalog {
	c := &MemoryCatalog{}
	c.Replace(materials)
	return c
}

// Replace 整体替换目录快照并递增版本号。
func (c *MemoryCatalog) Replace(materials map[string]*core.Material) {
	snapshot := make(map[string]*core.Material, len(materials))
	for id, m := range materials {
		snapshot[id] = m
	}
	c.mu.Lock()
	c.materials = snapshot
	c.revision++
	c.mu.Unlock()
}

// Materials 返回目录快照，调用方只读。
func (c *MemoryCatalog) Materials(ctx context.Context) (map[string]*core.Material, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.materials, nil
}

// Version 返回当前快照版本号。
func (c *MemoryCatalog) Version(ctx context.Context) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fmt.Sprintf("mem-%d", c.revision), nil
}

// MemoryEvents 是基于内存的事件源，按追加顺序保存全量事件。
type MemoryEvents struct {
	mu     sync.RWMutex
	events []core.RawEvent
}

// NewMemoryEvents 创建事件源并载入初始事件。
func NewMemoryEvents(events []core.RawEvent) *MemoryEvents {
	s := &MemoryEvents{}
	s.Append(events...)
	return s
}

// Append 追加事件。
func (s *MemoryEvents) Append(events ...core.RawEvent) {
	s.mu.Lock()
	s.events = append(s.events, events...)
	s.mu.Unlock()
}

// UserEvents 返回指定用户的全部事件；未知用户返回空切片。
func (s *MemoryEvents) UserEvents(ctx context.Context, userID string) ([]core.RawEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.RawEvent, 0, 16)
	for _, e := range s.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

// UserGMV 是用户的购买金额汇总。
type UserGMV struct {
	UserID string
	GMV    float64
	Orders int
}

// TopUsersByGMV 返回购买金额最高的前 n 个用户（离线分析用）。
// 同金额按 user_id 字典序，结果确定。
func (s *MemoryEvents) TopUsersByGMV(ctx context.Context, n int) ([]UserGMV, error) {
	s.mu.RLock()
	totals := make(map[string]*UserGMV)
	for _, e := range s.events {
		if e.Type != core.EventPurchase || e.UserID == "" {
			continue
		}
		t, ok := totals[e.UserID]
		if !ok {
			t = &UserGMV{UserID: e.UserID}
			totals[e.UserID] = t
		}
		t.GMV += e.Price
		t.Orders++
	}
	s.mu.RUnlock()

	out := make([]UserGMV, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GMV != out[j].GMV {
			return out[i].GMV > out[j].GMV
		}
		return out[i].UserID < out[j].UserID
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

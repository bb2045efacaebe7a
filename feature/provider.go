package feature

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/materialmarkt/matkit/core"
)

// DefaultTextWeight 是综合相似度里文本分量的默认权重。
const DefaultTextWeight = 0.6

// Provider 按目录版本缓存相似度索引。
//
// 同一版本的并发请求通过 singleflight 合并为一次构建；
// 版本变化时重建并替换缓存。索引构建是 CPU 密集操作
// （目录全量 TF-IDF 拟合），绝不能放在每次推荐的热路径上。
type Provider struct {
	Vectorizer Vectorizer
	TextWeight float64
	Logger     zerolog.Logger

	group singleflight.Group

	mu      sync.RWMutex
	version string
	index   *Index
}

// NewProvider 创建 Provider；Logger 默认静默。
func NewProvider() *Provider {
	return &Provider{
		TextWeight: DefaultTextWeight,
		Logger:     zerolog.Nop(),
	}
}

// Get 返回当前目录版本对应的索引，必要时构建。
// 词表为空时返回降级索引（TextDegraded）而不是错误，推荐流程继续走类别相似度。
func (p *Provider) Get(ctx context.Context, source core.CatalogSource) (*Index, error) {
	version, err := source.Version(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	if p.index != nil && p.version == version {
		idx := p.index
		p.mu.RUnlock()
		return idx, nil
	}
	p.mu.RUnlock()

	v, err, _ := p.group.Do(version, func() (any, error) {
		// double check：等锁期间可能已有人建完
		p.mu.RLock()
		if p.index != nil && p.version == version {
			idx := p.index
			p.mu.RUnlock()
			return idx, nil
		}
		p.mu.RUnlock()

		materials, err := source.Materials(ctx)
		if err != nil {
			return nil, err
		}

		idx := p.build(materials)
		p.mu.Lock()
		p.version = version
		p.index = idx
		p.mu.Unlock()

		p.Logger.Info().
			Str("catalog_version", version).
			Int("materials", idx.Len()).
			Bool("text_degraded", idx.TextDegraded()).
			Msg("feature: similarity index built")
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Index), nil
}

// Invalidate 丢弃缓存的索引，下次 Get 强制重建。
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.version = ""
	p.index = nil
	p.mu.Unlock()
}

// build 从目录快照构建索引。
func (p *Provider) build(materials map[string]*core.Material) *Index {
	textWeight := p.TextWeight
	if textWeight <= 0 || textWeight > 1 {
		textWeight = DefaultTextWeight
	}

	docs := make(map[string]string, len(materials))
	rows := make(map[string]*categoricalRow, len(materials))
	for id, m := range materials {
		docs[id] = m.ContentText()
		rows[id] = newRow(m)
	}

	idx := &Index{
		textWeight: textWeight,
		rows:       rows,
	}

	vectors, err := p.Vectorizer.FitTransform(docs)
	if err != nil {
		// 词表为空只降级文本分量，类别相似度照常工作
		idx.textDegraded = true
		p.Logger.Warn().
			Err(err).
			Int("materials", len(materials)).
			Msg("feature: text index degraded, falling back to categorical similarity")
		return idx
	}

	idx.vectors = vectors
	return idx
}

// BuildIndex 直接从目录快照构建索引，不走版本缓存。
// 供测试与离线分析使用；线上路径应使用 Provider.Get。
func BuildIndex(materials map[string]*core.Material, vectorizer Vectorizer, textWeight float64) *Index {
	p := &Provider{
		Vectorizer: vectorizer,
		TextWeight: textWeight,
		Logger:     zerolog.Nop(),
	}
	return p.build(materials)
}

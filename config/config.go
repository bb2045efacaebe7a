// Package config 负责引擎的配置加载、参数预设与 Pipeline 节点注册。
package config

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/materialmarkt/matkit/core"
	"github.com/materialmarkt/matkit/engine"
	"github.com/materialmarkt/matkit/store"
)

// EngineConfig 是引擎的文件配置（YAML）。
// 缺省字段取所选预设的值；显式设置的字段覆盖预设。
type EngineConfig struct {
	// Preset 预设名称：real_prototype / rule_based_v1 / rule_based_v2
	Preset string `yaml:"preset"`

	// PerAuthor 覆盖作者多样性上限（0 = 用预设值）
	PerAuthor int `yaml:"per_author"`

	// FallbackPoolMultiplier 覆盖 fallback 池容量倍数（0 = 用预设值）
	FallbackPoolMultiplier int `yaml:"fallback_pool_multiplier"`

	// Concurrency 打分并发上限
	Concurrency int `yaml:"concurrency"`

	// Rules 额外的 CEL 过滤规则
	Rules []string `yaml:"rules"`

	// Redis 可选的 Redis 存储配置；缺省走纯内存
	Redis *store.RedisConfig `yaml:"redis"`
}

// Load 从 YAML 文件加载引擎配置。
func Load(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg EngineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Build 按配置装配引擎。
func (c *EngineConfig) Build(catalog core.CatalogSource, events core.EventSource, logger zerolog.Logger) (*engine.Engine, error) {
	opts := Presets(c.Preset).EngineOptions()
	if c.PerAuthor > 0 {
		opts.PerAuthor = c.PerAuthor
	}
	if c.FallbackPoolMultiplier > 0 {
		opts.FallbackPoolMultiplier = c.FallbackPoolMultiplier
	}
	opts.Concurrency = c.Concurrency
	opts.Rules = c.Rules
	opts.Logger = logger

	if c.Redis != nil {
		kv, err := store.NewRedisStore(*c.Redis)
		if err != nil {
			return nil, err
		}
		opts.KV = kv
	}

	return engine.New(catalog, events, opts), nil
}

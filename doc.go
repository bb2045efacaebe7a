// Package matkit 是教学素材市场的行为画像与多信号推荐工具包。
//
// 设计要点：
// - Profile-first: 画像每次请求从事件流重建，相同输入逐位一致，无训练状态
// - Pipeline-first: 推荐逻辑通过 Node 串联（Recall → Filter → Rank → ReRank）
// - Explain-first: 每个候选携带分量分数与贡献因素，结果可逐条解释
package matkit

import "github.com/materialmarkt/matkit/pipeline"

// 轻量 facade：便于用户直接 import "matkit" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)

package feature

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/materialmarkt/matkit/core"
)

// ErrEmptyVocabulary 表示语料为空或全部被停用词过滤，文本索引无法构建。
// 该错误只应导致相似度降级为纯类别匹配，不应让推荐调用失败。
var ErrEmptyVocabulary = core.NewDomainError(core.ModuleFeature, core.ErrorCodeEmptyVocab, "feature: empty vocabulary")

// Vectorizer 把文档集合拟合成 TF-IDF 词项权重模型。
// 词项为 uni-gram + bi-gram，词表按语料词频封顶；向量做 L2 归一化，
// 余弦相似度退化为稀疏点积。
type Vectorizer struct {
	// MaxFeatures 词表上限，<= 0 时取 1000
	MaxFeatures int

	// NGramMax 最大 n-gram 长度，<= 0 时取 2
	NGramMax int

	// StopWords 为 nil 时使用内置英文停用词表
	StopWords map[string]struct{}
}

// DefaultStopWords 是内置的英文停用词表（目录里德语词汇不受影响）。
var DefaultStopWords = func() map[string]struct{} {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
		"has", "he", "in", "is", "it", "its", "of", "on", "that", "the",
		"to", "was", "were", "will", "with", "this", "these", "those",
		"or", "not", "but", "all", "can", "you", "your",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// FitTransform 在全部文档上拟合词表并返回每个文档的 L2 归一化 TF-IDF 向量。
// 语料为空（无有效词项）时返回 ErrEmptyVocabulary。
func (v *Vectorizer) FitTransform(docs map[string]string) (map[string]map[string]float64, error) {
	maxFeatures := v.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = 1000
	}

	// 文档按 ID 排序处理，词表选择与浮点累加顺序固定
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	termCounts := make(map[string]map[string]float64, len(docs)) // docID → term → count
	corpusCount := make(map[string]float64)
	docFreq := make(map[string]float64)

	for _, id := range ids {
		terms := v.terms(docs[id])
		if len(terms) == 0 {
			continue
		}
		counts := make(map[string]float64, len(terms))
		for _, t := range terms {
			counts[t]++
		}
		termCounts[id] = counts
		for t, c := range counts {
			corpusCount[t] += c
			docFreq[t]++
		}
	}

	if len(corpusCount) == 0 {
		return nil, ErrEmptyVocabulary
	}

	vocab := selectVocabulary(corpusCount, maxFeatures)

	// smooth idf: ln((1+n)/(1+df)) + 1
	n := float64(len(termCounts))
	idf := make(map[string]float64, len(vocab))
	for t := range vocab {
		idf[t] = math.Log((1+n)/(1+docFreq[t])) + 1
	}

	vectors := make(map[string]map[string]float64, len(termCounts))
	for id, counts := range termCounts {
		vec := make(map[string]float64)
		norm := 0.0
		for t, c := range counts {
			if _, ok := vocab[t]; !ok {
				continue
			}
			w := c * idf[t]
			vec[t] = w
			norm += w * w
		}
		if len(vec) == 0 {
			continue
		}
		norm = math.Sqrt(norm)
		for t := range vec {
			vec[t] /= norm
		}
		vectors[id] = vec
	}

	return vectors, nil
}

// selectVocabulary 按语料词频取 TopN，平手按词项字典序，保证拟合确定性。
func selectVocabulary(corpusCount map[string]float64, maxFeatures int) map[string]struct{} {
	if len(corpusCount) <= maxFeatures {
		vocab := make(map[string]struct{}, len(corpusCount))
		for t := range corpusCount {
			vocab[t] = struct{}{}
		}
		return vocab
	}

	terms := make([]string, 0, len(corpusCount))
	for t := range corpusCount {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		ci, cj := corpusCount[terms[i]], corpusCount[terms[j]]
		if ci != cj {
			return ci > cj
		}
		return terms[i] < terms[j]
	})

	vocab := make(map[string]struct{}, maxFeatures)
	for _, t := range terms[:maxFeatures] {
		vocab[t] = struct{}{}
	}
	return vocab
}

// terms 生成文档的 uni-gram + bi-gram 词项。
func (v *Vectorizer) terms(doc string) []string {
	stop := v.StopWords
	if stop == nil {
		stop = DefaultStopWords
	}
	ngramMax := v.NGramMax
	if ngramMax <= 0 {
		ngramMax = 2
	}

	raw := tokenize(doc)
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if _, ok := stop[t]; ok {
			continue
		}
		tokens = append(tokens, t)
	}

	out := make([]string, 0, len(tokens)*ngramMax)
	out = append(out, tokens...)
	for n := 2; n <= ngramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

// tokenize 小写化并按非字母数字切分，丢弃单字符 token。
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			out = append(out, f)
		}
	}
	return out
}

// cosine 计算两个稀疏向量的余弦相似度。
func cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	// 遍历较小的向量
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot, normA, normB float64
	for t, va := range a {
		normA += va * va
		if vb, ok := b[t]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		normB += vb * vb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

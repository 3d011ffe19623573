package config

// Routing holds the retrieval-routing policy: similarity thresholds, context
// budgets, chunking geometry, and the vocabulary lists the classifier, quality
// filter, and relevance gate match against.
//
// All values here are policy, not mechanism. They are loaded once at process
// start and injected as immutable data; no component reads them as globals.
type Routing struct {
	// Retrieval cascade
	HighSimilarity     float64 `mapstructure:"high_similarity" json:"high_similarity"`         // first-pass vector threshold
	StandardSimilarity float64 `mapstructure:"standard_similarity" json:"standard_similarity"` // relaxed retry threshold
	TopK               int     `mapstructure:"top_k" json:"top_k"`
	MaxKeywordResults  int     `mapstructure:"max_keyword_results" json:"max_keyword_results"` // cap on merged results incl. keyword hits

	// Context assembly
	MaxContextChars  int `mapstructure:"max_context_chars" json:"max_context_chars"`   // base budget for full assembly
	FastContextChars int `mapstructure:"fast_context_chars" json:"fast_context_chars"` // fixed budget for streaming fast path

	// Answer quality
	MinAnswerChars   int `mapstructure:"min_answer_chars" json:"min_answer_chars"`     // relevance gate minimum, post reasoning removal
	MinFragmentChars int `mapstructure:"min_fragment_chars" json:"min_fragment_chars"` // quality filter minimum

	// Chunking geometry
	ChunkSize    int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// Multi-round extraction/synthesis
	EnableMultiRound bool `mapstructure:"enable_multi_round" json:"enable_multi_round"`
	MaxRounds        int  `mapstructure:"max_rounds" json:"max_rounds"`

	// Classifier vocabularies. Empty slices fall back to the built-in
	// defaults below; overriding any list in config.yaml replaces it wholesale.
	Greetings       []string `mapstructure:"greetings" json:"greetings"`
	DomainKeywords  []string `mapstructure:"domain_keywords" json:"domain_keywords"`
	FactualMarkers  []string `mapstructure:"factual_markers" json:"factual_markers"`
	CreativeMarkers []string `mapstructure:"creative_markers" json:"creative_markers"`

	// Quality filter and relevance gate phrase lists.
	BoilerplatePhrases []string `mapstructure:"boilerplate_phrases" json:"boilerplate_phrases"`
	NegativeIndicators []string `mapstructure:"negative_indicators" json:"negative_indicators"`
}

// Default vocabulary lists. The corpus and its users are bilingual, so each
// list carries English and Chinese entries side by side.
var (
	defaultGreetings = []string{
		"你好", "您好", "hello", "hi", "嗨", "早上好", "下午好", "晚上好",
		"谢谢", "感谢", "再见", "拜拜", "bye", "thanks", "thank you",
		"good morning", "good afternoon", "good evening",
	}

	defaultDomainKeywords = []string{
		"图书", "期刊", "论文", "数据库", "馆藏", "借阅", "文献", "资料",
		"书籍", "杂志", "学术", "研究", "参考", "查阅", "检索", "索引",
		"library", "journal", "paper", "database", "catalog", "document",
		"mysql", "sql", "编程", "技术", "配置", "安装", "设置",
	}

	defaultFactualMarkers = []string{
		"什么是", "是什么", "如何", "怎样", "怎么", "定义", "解释", "默认", "端口", "配置",
		"what is", "how to", "how do", "define", "explain", "default", "port", "configure",
	}

	defaultCreativeMarkers = []string{
		"写一个", "创作", "设计", "想法", "建议", "帮我", "生成",
		"write me", "write a", "compose", "design", "suggest", "generate", "brainstorm",
	}

	defaultBoilerplatePhrases = []string{
		"版权所有", "保留所有权利", "免责声明", "未经许可",
		"all rights reserved", "copyright", "legal notice", "terms of service",
		"table of contents", "目录",
	}

	defaultNegativeIndicators = []string{
		"无法找到相关信息", "没有找到相关信息", "未找到相关信息",
		"无法找到", "没有找到", "未找到", "找不到",
		"没有相关", "无相关", "无关信息",
		"文档中没有", "文档中未", "文档中无",
		"抱歉", "无法", "不能",
		"cannot find", "could not find", "no relevant information",
		"not mentioned in the document", "sorry, unable to", "i'm sorry",
	}
)

// applyDefaults fills empty vocabulary lists with the built-in defaults.
// Slices are copied so callers can never mutate the package-level defaults.
func (r *Routing) applyDefaults() {
	fill := func(dst *[]string, def []string) {
		if len(*dst) == 0 {
			*dst = append([]string(nil), def...)
		}
	}
	fill(&r.Greetings, defaultGreetings)
	fill(&r.DomainKeywords, defaultDomainKeywords)
	fill(&r.FactualMarkers, defaultFactualMarkers)
	fill(&r.CreativeMarkers, defaultCreativeMarkers)
	fill(&r.BoilerplatePhrases, defaultBoilerplatePhrases)
	fill(&r.NegativeIndicators, defaultNegativeIndicators)
}

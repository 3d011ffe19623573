// Package retrieval implements the retrieval side of query routing: the
// cascading vector search with keyword augmentation, the content-quality
// filter that keeps boilerplate out of context, and the bounded context
// assembler.
//
// Fragments are immutable once produced. The cascade owns them during a
// query and only ever filters or reorders; nothing downstream mutates them,
// so no locking is needed on retrieval data.
package retrieval

// Fragment is a retrieval-unit slice of a source document with position
// metadata. Produced by the chunk splitter at ingestion time; immutable.
type Fragment struct {
	ID          string
	DocumentID  string
	Text        string
	ChunkIndex  int
	Category    string
	StartOffset int
	EndOffset   int
}

// Tier identifies which retrieval pass produced a result set.
type Tier int

const (
	// TierNone means no pass produced usable fragments. The absence itself
	// is the relevance signal; the router treats it as "answer ungrounded".
	TierNone Tier = iota

	// TierHigh is the strict first-pass similarity threshold.
	TierHigh

	// TierStandard is the relaxed retry threshold.
	TierStandard

	// TierUnbounded is best-effort top-K search without a threshold.
	TierUnbounded
)

// String returns a human-readable tier name for logging.
func (t Tier) String() string {
	switch t {
	case TierHigh:
		return "high_similarity"
	case TierStandard:
		return "standard_similarity"
	case TierUnbounded:
		return "unbounded"
	default:
		return "none"
	}
}

// Result is an ordered, deduplicated retrieval outcome tagged with the tier
// that produced it.
//
// Order matters: the first KeywordCount fragments came from exact keyword
// search and are deliberately placed ahead of vector hits so truncation
// during context assembly cannot drop them.
type Result struct {
	Fragments    []Fragment
	Tier         Tier
	KeywordCount int
}

// Empty reports whether the result carries no fragments.
func (r Result) Empty() bool {
	return len(r.Fragments) == 0
}

// Package chunk splits raw document text into overlapping retrieval units.
//
// The splitter walks the text in fixed-size windows and looks for a natural
// boundary (sentence end, newline, space) in the back half of each window, so
// fragments start and end on readable seams. Consecutive chunks overlap so
// that content near a boundary is retrievable from either side.
//
// Context assembly depends on the shape produced here: fragment offsets are
// rune offsets into the original text, and indices are stable across the
// batched large-document path.
package chunk

import (
	"fmt"
	"strings"

	"github.com/docent0/docent/internal/log"
)

const (
	// DefaultSize is the default chunk window size in runes.
	DefaultSize = 1000

	// DefaultOverlap is the default number of runes shared between
	// consecutive chunks.
	DefaultOverlap = 200

	// largeTextBytes is the input size above which splitting switches to
	// batched mode to bound peak memory.
	largeTextBytes = 10 << 20 // 10MB

	// batchRunes is the super-batch length for large inputs.
	batchRunes = 100_000

	// batchOverlapRunes is the extra overlap carried between super-batches
	// so no boundary content is lost to batching.
	batchOverlapRunes = 2000
)

// Chunk is one retrieval unit produced by the splitter.
// Start and End are rune offsets into the original input text; Text is the
// trimmed window content.
type Chunk struct {
	Text  string
	Index int
	Start int
	End   int
}

// Splitter splits text into overlapping chunks.
// A Splitter is immutable after construction and safe for concurrent use.
type Splitter struct {
	size    int
	overlap int
	logger  log.Logger
}

// NewSplitter creates a splitter with the given window size and overlap,
// both in runes. size must be positive and strictly greater than overlap,
// otherwise splitting could fail to advance.
func NewSplitter(size, overlap int, logger log.Logger) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, size), got overlap=%d size=%d", overlap, size)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Splitter{size: size, overlap: overlap, logger: logger}, nil
}

// Split splits text into ordered, trimmed, non-empty chunks.
//
// Texts shorter than the window yield a single chunk. Inputs above the
// large-text threshold are processed per super-batch with extra inter-batch
// overlap; chunk indices keep counting across batches.
func (s *Splitter) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if len(text) > largeTextBytes {
		return s.splitBatched([]rune(text))
	}
	return s.splitWindow([]rune(text), 0, 0)
}

// splitBatched applies the window algorithm per fixed-size super-batch so
// peak memory stays proportional to the batch, not the document.
func (s *Splitter) splitBatched(runes []rune) []Chunk {
	var chunks []Chunk
	n := len(runes)

	for start := 0; start < n; start += batchRunes {
		end := min(start+batchRunes+batchOverlapRunes, n)
		batch := s.splitWindow(runes[start:end], start, len(chunks))
		chunks = append(chunks, batch...)

		s.logger.Debug("split batch processed",
			"batch_start", start,
			"batch_end", end,
			"total_chunks", len(chunks))
	}

	return chunks
}

// splitWindow is the core windowed split over a rune slice.
// baseOffset is added to all chunk offsets; baseIndex seeds the chunk index.
func (s *Splitter) splitWindow(runes []rune, baseOffset, baseIndex int) []Chunk {
	n := len(runes)

	// Degenerate case: the whole text fits in one window.
	if n <= s.size {
		text := strings.TrimSpace(string(runes))
		if text == "" {
			return nil
		}
		return []Chunk{{Text: text, Index: baseIndex, Start: baseOffset, End: baseOffset + n}}
	}

	var chunks []Chunk
	index := baseIndex
	start := 0

	for start < n {
		end := min(start+s.size, n)

		// When the window boundary falls inside the text, pull it back to
		// the best natural split point in the window's back half.
		if end < n {
			if best := bestSplitPoint(runes, start+s.size/2, end); best > start {
				end = best
			}
		}

		if text := strings.TrimSpace(string(runes[start:end])); text != "" {
			chunks = append(chunks, Chunk{
				Text:  text,
				Index: index,
				Start: baseOffset + start,
				End:   baseOffset + end,
			})
			index++
		}

		// Overlap continuation; always advance by at least one rune to
		// guarantee termination.
		next := end - s.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks
}

// Split-point candidates in preference order: sentence terminators (half- and
// full-width), then newline, then plain space.
var splitClasses = [][]rune{
	{'。', '！', '？', '.', '!', '?'},
	{'\n'},
	{' '},
}

// bestSplitPoint searches backward in runes[minEnd:maxEnd] for the highest
// occurrence of the most preferred split class and returns the index just
// after it. Returns maxEnd when no candidate is found (hard split).
func bestSplitPoint(runes []rune, minEnd, maxEnd int) int {
	if minEnd < 0 {
		minEnd = 0
	}
	for _, class := range splitClasses {
		for i := maxEnd - 1; i >= minEnd; i-- {
			for _, c := range class {
				if runes[i] == c {
					return i + 1
				}
			}
		}
	}
	return maxEnd
}

package answer

import "strings"

// Reasoning-segment markers. Models that expose their deliberation wrap it
// in this pair; only content outside the pair is user-facing.
const (
	ReasoningStart = "<think>"
	ReasoningEnd   = "</think>"
)

// ExtractAnswer returns the user-facing portion of a model response,
// removing any reasoning segment.
//
// Fallback branches, in order:
//  1. Content after the last end marker, if non-empty.
//  2. Content before the first start marker, if non-empty.
//  3. The whole text with marker tokens stripped, as last resort.
//
// reasoningOnly is true when both markers are present but no content exists
// outside them; the returned text is then the model's deliberation, not an
// answer, and the relevance gate treats it as unusable.
func ExtractAnswer(text string) (answer string, reasoningOnly bool) {
	trimmed := strings.TrimSpace(text)

	hasStart := strings.Contains(trimmed, ReasoningStart)
	hasEnd := strings.Contains(trimmed, ReasoningEnd)
	if !hasStart && !hasEnd {
		return trimmed, false
	}

	if idx := strings.LastIndex(trimmed, ReasoningEnd); idx >= 0 {
		if after := strings.TrimSpace(trimmed[idx+len(ReasoningEnd):]); after != "" {
			return after, false
		}
	}

	if idx := strings.Index(trimmed, ReasoningStart); idx > 0 {
		if before := strings.TrimSpace(trimmed[:idx]); before != "" {
			return before, false
		}
	}

	stripped := strings.ReplaceAll(trimmed, ReasoningStart, "")
	stripped = strings.ReplaceAll(stripped, ReasoningEnd, "")
	return strings.TrimSpace(stripped), hasStart && hasEnd
}

// StreamFilter removes reasoning segments from a streaming response.
// Markers may arrive split across deltas, so text that could be a partial
// marker is held back until the next delta settles it; call Flush after the
// final delta to drain what remains.
type StreamFilter struct {
	pending     string
	inReasoning bool
}

// Feed consumes one delta and returns the user-facing text it released.
func (f *StreamFilter) Feed(delta string) string {
	f.pending += delta
	var out strings.Builder

	for {
		if f.inReasoning {
			idx := strings.Index(f.pending, ReasoningEnd)
			if idx < 0 {
				f.pending = markerTail(f.pending, ReasoningEnd)
				return out.String()
			}
			f.pending = f.pending[idx+len(ReasoningEnd):]
			f.inReasoning = false
			continue
		}

		idx := strings.Index(f.pending, ReasoningStart)
		if idx < 0 {
			tail := markerTail(f.pending, ReasoningStart)
			out.WriteString(f.pending[:len(f.pending)-len(tail)])
			f.pending = tail
			return out.String()
		}
		out.WriteString(f.pending[:idx])
		f.pending = f.pending[idx+len(ReasoningStart):]
		f.inReasoning = true
	}
}

// Flush returns any text still held back. An unterminated reasoning segment
// is discarded.
func (f *StreamFilter) Flush() string {
	out := f.pending
	f.pending = ""
	if f.inReasoning {
		return ""
	}
	return out
}

// markerTail returns the longest suffix of s that is a proper prefix of
// marker.
func markerTail(s, marker string) string {
	longest := min(len(s), len(marker)-1)
	for n := longest; n > 0; n-- {
		if strings.HasSuffix(s, marker[:n]) {
			return s[len(s)-n:]
		}
	}
	return ""
}

// ExtractReasoning returns the content of the first reasoning segment, or
// "" when the response carries none.
func ExtractReasoning(text string) string {
	start := strings.Index(text, ReasoningStart)
	if start < 0 {
		return ""
	}
	rest := text[start+len(ReasoningStart):]
	if end := strings.Index(rest, ReasoningEnd); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docent0/docent/internal/log"
)

func TestNewSplitter_Validation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{name: "valid", size: 1000, overlap: 200},
		{name: "zero overlap", size: 100, overlap: 0},
		{name: "zero size", size: 0, overlap: 0, wantErr: true},
		{name: "negative size", size: -1, overlap: 0, wantErr: true},
		{name: "negative overlap", size: 100, overlap: -1, wantErr: true},
		{name: "overlap equals size", size: 100, overlap: 100, wantErr: true},
		{name: "overlap exceeds size", size: 100, overlap: 150, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSplitter(tt.size, tt.overlap, log.NewNop())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	s, err := NewSplitter(100, 20, log.NewNop())
	require.NoError(t, err)

	assert.Nil(t, s.Split(""))
	assert.Nil(t, s.Split("   \n\t  "))
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	s, err := NewSplitter(100, 20, log.NewNop())
	require.NoError(t, err)

	chunks := s.Split("A short note about the library opening hours.")
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, "A short note about the library opening hours.", chunks[0].Text)
}

func TestSplit_WindowInvariants(t *testing.T) {
	s, err := NewSplitter(50, 10, log.NewNop())
	require.NoError(t, err)

	text := strings.Repeat("The catalog lists every title in the collection. ", 20)
	chunks := s.Split(text)
	require.NotEmpty(t, chunks)

	total := len([]rune(text))
	prevStart := -1
	for i, c := range chunks {
		assert.NotEmpty(t, c.Text, "chunk %d", i)
		assert.LessOrEqual(t, len([]rune(c.Text)), 50, "chunk %d exceeds window", i)
		assert.Equal(t, i, c.Index)
		assert.Greater(t, c.Start, prevStart, "chunk %d must advance", i)
		assert.Greater(t, c.End, c.Start)
		assert.LessOrEqual(t, c.End, total)
		prevStart = c.Start
	}

	// The final chunk reaches the end of the input: nothing is dropped.
	assert.Equal(t, total, chunks[len(chunks)-1].End)
}

func TestSplit_OverlapBetweenChunks(t *testing.T) {
	s, err := NewSplitter(40, 10, log.NewNop())
	require.NoError(t, err)

	text := strings.Repeat("abcdefghij", 20)
	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		assert.Less(t, chunks[i].Start, chunks[i-1].End,
			"chunk %d should overlap its predecessor", i)
	}
}

func TestSplit_PrefersSentenceBoundaries(t *testing.T) {
	s, err := NewSplitter(40, 10, log.NewNop())
	require.NoError(t, err)

	text := "The first sentence ends here. The second sentence continues for a while longer. A third one follows after that, and then some."
	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)

	// At least one non-final chunk should end at a sentence terminator.
	found := false
	for _, c := range chunks[:len(chunks)-1] {
		if strings.HasSuffix(c.Text, ".") {
			found = true
			break
		}
	}
	assert.True(t, found, "expected a chunk boundary on a sentence end")
}

func TestSplit_ChineseSentenceBoundaries(t *testing.T) {
	s, err := NewSplitter(30, 5, log.NewNop())
	require.NoError(t, err)

	text := strings.Repeat("图书馆每天早上九点开门。馆藏包括中外文图书和期刊。", 5)
	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c.Text)), 30, "chunk %d", i)
	}
	// Rune offsets, not byte offsets.
	assert.Equal(t, len([]rune(text)), chunks[len(chunks)-1].End)
}

func TestSplit_Termination(t *testing.T) {
	// Overlap close to size forces the minimum-advance path.
	s, err := NewSplitter(10, 9, log.NewNop())
	require.NoError(t, err)

	text := strings.Repeat("x", 200)
	chunks := s.Split(text)
	require.NotEmpty(t, chunks)
	assert.Equal(t, 200, chunks[len(chunks)-1].End)
}

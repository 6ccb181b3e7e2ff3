package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medrag/internal/domain"
)

func words(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("w%d", i)
	}
	return out
}

func TestNewRejectsInvalidSizes(t *testing.T) {
	for _, tc := range []struct{ chunk, overlap int }{{0, 0}, {-5, 0}, {10, -1}, {10, 10}, {10, 11}} {
		_, err := New(tc.chunk, tc.overlap)
		assert.ErrorIs(t, err, domain.ErrConfig, "chunk=%d overlap=%d", tc.chunk, tc.overlap)
	}
	c, err := New(200, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, c.Overlap())
}

func TestWindowsScenarios(t *testing.T) {
	c, err := New(200, 30)
	require.NoError(t, err)

	t.Run("450 words", func(t *testing.T) {
		w := words(450)
		got := c.Windows(w)
		require.Len(t, got, 3)
		assert.Equal(t, w[0:200], got[0])
		assert.Equal(t, w[170:370], got[1])
		assert.Equal(t, w[340:450], got[2])
	})

	t.Run("150 words", func(t *testing.T) {
		got := c.Windows(words(150))
		require.Len(t, got, 1)
		assert.Len(t, got[0], 150)
	})

	t.Run("exactly one window", func(t *testing.T) {
		got := c.Windows(words(200))
		require.Len(t, got, 1)
		assert.Len(t, got[0], 200)
	})

	t.Run("empty body", func(t *testing.T) {
		got := c.Windows(nil)
		require.Len(t, got, 1)
		assert.Empty(t, got[0])
	})
}

func TestWindowsCoverageAndOverlap(t *testing.T) {
	for _, params := range []struct{ chunk, overlap int }{{200, 30}, {10, 3}, {7, 0}, {5, 4}} {
		c, err := New(params.chunk, params.overlap)
		require.NoError(t, err)
		for _, n := range []int{1, params.chunk, params.chunk + 1, 3*params.chunk + 2, 1000} {
			w := words(n)
			got := c.Windows(w)

			want := 1
			if n > params.chunk {
				step := params.chunk - params.overlap
				want = (n - params.overlap + step - 1) / step
			}
			require.Len(t, got, want, "chunk=%d overlap=%d n=%d", params.chunk, params.overlap, n)

			var rebuilt []string
			for i, win := range got {
				require.NotEmpty(t, win)
				if i == 0 {
					rebuilt = append(rebuilt, win...)
					continue
				}
				prev := got[i-1]
				assert.Equal(t, prev[len(prev)-params.overlap:], win[:params.overlap])
				rebuilt = append(rebuilt, win[params.overlap:]...)
			}
			assert.Equal(t, w, rebuilt)
		}
	}
}

func TestChunkUsesTitleAndIndexes(t *testing.T) {
	c, err := New(4, 1)
	require.NoError(t, err)
	doc := domain.Document{ID: "Articles/heart", Title: "heart", Content: "Heart Failure\none two three four five six seven"}

	title, chunks := c.Chunk(doc)
	assert.Equal(t, "Heart Failure", title)
	require.Len(t, chunks, 2)
	assert.Equal(t, "one two three four", chunks[0].Text)
	assert.Equal(t, "four five six seven", chunks[1].Text)
	assert.Equal(t, 1, chunks[0].Index)
	assert.Equal(t, "Articles/heart/0002", chunks[1].ChunkID)
	assert.Equal(t, "Heart Failure", chunks[1].Title)
}

func TestChunkBlankTitleFallsBack(t *testing.T) {
	c, err := New(200, 30)
	require.NoError(t, err)
	title, chunks := c.Chunk(domain.Document{Title: "stem", Content: "\nbody words here"})
	assert.Equal(t, "stem", title)
	require.Len(t, chunks, 1)
	assert.Equal(t, "body words here", chunks[0].Text)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "a_b_c_ d", SanitizeName("  a/b:c?   d "))
	long := strings.Repeat("я", 150)
	assert.Equal(t, 120, len([]rune(SanitizeName(long))))
}

func TestNormalize(t *testing.T) {
	in := "\ufeffTitle  line\r\n\r\nfirst\t\t para  \rsecond   line   \n\n"
	assert.Equal(t, "Title line\n\nfirst para\nsecond line", Normalize(in))
}

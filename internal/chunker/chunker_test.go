package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowsShortText(t *testing.T) {
	out := Windows("a short note", DefaultOptions())
	require.Len(t, out, 1)
	assert.Equal(t, "a short note", out[0])

	assert.Empty(t, Windows("", DefaultOptions()))
	assert.Empty(t, Windows("   \n\n  ", DefaultOptions()))
}

func TestWindowsSplitsOnParagraphs(t *testing.T) {
	para := strings.Repeat("x", 400)
	text := para + "\n\n" + para + "\n\n" + para

	out := Windows(text, Options{WindowSize: 1000, MinWindow: 100})
	require.Len(t, out, 2, "paragraphs pack into windows without splitting mid-paragraph")
	assert.Len(t, out[0], 802, "two paragraphs joined by a blank line")
	assert.Len(t, out[1], 400)
}

func TestWindowsHardSplitsOversizedParagraph(t *testing.T) {
	text := strings.Repeat("y", 5000)

	out := Windows(text, Options{WindowSize: 1000, MinWindow: 100})
	require.Len(t, out, 5)
	total := 0
	for _, w := range out {
		assert.LessOrEqual(t, len(w), 1000)
		total += len(w)
	}
	assert.Equal(t, 5000, total, "no characters lost")
}

func TestFirstSentence(t *testing.T) {
	assert.Equal(t, "Reproduce before patching.",
		FirstSentence("Reproduce before patching. Then add a test.", 0))
	assert.Equal(t, "Does it compile?",
		FirstSentence("Does it compile? Ship it.", 0))
	assert.Equal(t, "first line",
		FirstSentence("first line\nsecond line", 0))
	assert.Equal(t, "no terminator at all",
		FirstSentence("no terminator at all", 0))
	assert.Equal(t, "", FirstSentence("   ", 0))
}

func TestFirstSentenceTruncates(t *testing.T) {
	long := strings.Repeat("word ", 100) + "."
	got := FirstSentence(long, 40)
	assert.LessOrEqual(t, len(got), 43)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestFirstSentenceTruncatesOnRuneBoundary(t *testing.T) {
	// "é" is two bytes; a byte-index cut at 6 would land inside the
	// second one.
	got := FirstSentence("caféé and more text without a terminator", 6)
	assert.True(t, utf8.ValidString(got), "truncation must not split a rune")
	assert.Equal(t, "café...", got)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "abcdef", Truncate("abcdef", 0), "zero max means no limit")

	// Multi-byte runes back the cut up to the previous boundary.
	got := Truncate("日本語のテキスト", 7)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "日本", got)
}

func TestHardSplitKeepsRunesIntact(t *testing.T) {
	long := strings.Repeat("語", 40) // 120 bytes, no line breaks
	for _, w := range Windows(long, Options{WindowSize: 50, MinWindow: 10}) {
		assert.True(t, utf8.ValidString(w))
		assert.LessOrEqual(t, len(w), 50)
	}
}

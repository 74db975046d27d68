// Package chunker splits free text into bounded windows for embedding
// and extracts leading sentences for principle synthesis.
package chunker

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultWindowSize = 2000
	DefaultMinWindow  = 200
)

// Options configures window splitting.
type Options struct {
	WindowSize int
	MinWindow  int
}

// DefaultOptions returns default window options.
func DefaultOptions() Options {
	return Options{WindowSize: DefaultWindowSize, MinWindow: DefaultMinWindow}
}

// Windows splits text into windows of at most opts.WindowSize characters,
// preferring paragraph boundaries. Short text returns a single window.
// Embedding providers cap input length; callers embed each window and
// average the vectors.
func Windows(text string, opts Options) []string {
	if opts.WindowSize == 0 {
		opts = DefaultOptions()
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= opts.WindowSize {
		return []string{text}
	}

	var windows []string
	var current strings.Builder

	flush := func() {
		t := strings.TrimSpace(current.String())
		if t != "" {
			windows = append(windows, t)
		}
		current.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		// Oversized paragraph: hard-split on line boundaries.
		if len(para) > opts.WindowSize {
			flush()
			windows = append(windows, hardSplit(para, opts.WindowSize)...)
			continue
		}
		if current.Len() > 0 && current.Len()+len(para)+2 > opts.WindowSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	return windows
}

// hardSplit breaks a block that exceeds max on line boundaries, falling
// back to raw slicing for single overlong lines.
func hardSplit(text string, max int) []string {
	var out []string
	var current strings.Builder

	for _, line := range strings.Split(text, "\n") {
		for len(line) > max {
			if current.Len() > 0 {
				out = append(out, strings.TrimSpace(current.String()))
				current.Reset()
			}
			cut := len(Truncate(line, max))
			out = append(out, line[:cut])
			line = line[cut:]
		}
		if current.Len()+len(line)+1 > max && current.Len() > 0 {
			out = append(out, strings.TrimSpace(current.String()))
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if t := strings.TrimSpace(current.String()); t != "" {
		out = append(out, t)
	}
	return out
}

// FirstSentence returns the first sentence of text, truncated to max
// characters. Used when synthesizing a principle from reflection output.
func FirstSentence(text string, max int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	end := len(text)
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			end = i + 1 // keep the terminator
			break
		}
		if r == '\n' {
			end = i
			break
		}
	}
	s := strings.TrimSpace(text[:end])
	if max > 0 && len(s) > max {
		s = strings.TrimSpace(Truncate(s, max)) + "..."
	}
	return s
}

// Truncate cuts s to at most max bytes without splitting a rune; the cut
// backs up to the nearest rune boundary.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		cut = max
	}
	return s[:cut]
}

package patch

import (
	"strings"
	"unicode"
)

// hunkPattern is a hunk prepared for matching at one fuzz level: up to fuzz
// context lines are dropped from each end of both projections, so a fuzzed
// match leaves the file's own lines in place where the context was ignored.
type hunkPattern struct {
	fuzz       LineNumber
	topTrim    LineNumber
	bottomTrim LineNumber
	oldLines   []string
	newLines   []string
}

func buildPattern(h *Hunk, fuzz LineNumber) hunkPattern {
	prefix := h.prefixContext()
	suffix := h.suffixContext()
	top := min(fuzz, prefix)
	bottom := min(fuzz, suffix)
	oldSide := h.oldLines()
	newSide := h.newLines()
	return hunkPattern{
		fuzz:       fuzz,
		topTrim:    top,
		bottomTrim: bottom,
		oldLines:   oldSide[top : LineNumber(len(oldSide))-bottom],
		newLines:   newSide[top : LineNumber(len(newSide))-bottom],
	}
}

// stripWhitespace is the loose-matching projection used by -l: all
// whitespace is removed before lines are compared.
func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// matchAt reports whether pattern occurs at the 1-based position pos.
func matchAt(lines []string, pos LineNumber, pattern []string, loose bool) bool {
	if pos < 1 || pos+LineNumber(len(pattern))-1 > LineNumber(len(lines)) {
		return false
	}
	for i, want := range pattern {
		got := lines[int(pos)-1+i]
		if loose {
			if stripWhitespace(got) != stripWhitespace(want) {
				return false
			}
		} else if got != want {
			return false
		}
	}
	return true
}

// locate finds pattern near expected, spiraling outward one line at a time
// and preferring the earlier position when two candidates are equally far.
// minPos keeps hunks from landing inside a region an earlier hunk already
// consumed. An empty pattern is an insertion point: it lands at expected,
// clamped into bounds.
func locate(lines []string, pattern []string, expected, minPos LineNumber, loose bool) (LineNumber, bool) {
	if len(pattern) == 0 {
		pos := expected
		if pos < minPos {
			pos = minPos
		}
		if limit := LineNumber(len(lines)) + 1; pos > limit {
			pos = limit
		}
		return pos, true
	}
	maxPos := LineNumber(len(lines)) - LineNumber(len(pattern)) + 1
	if maxPos < minPos {
		return 0, false
	}
	for d := LineNumber(0); ; d++ {
		lo, hi := expected-d, expected+d
		if lo < minPos && hi > maxPos {
			return 0, false
		}
		if lo >= minPos && lo <= maxPos && matchAt(lines, lo, pattern, loose) {
			return lo, true
		}
		if d > 0 && hi >= minPos && hi <= maxPos && matchAt(lines, hi, pattern, loose) {
			return hi, true
		}
	}
}

package patch

import (
	"math"
	"strconv"
	"strings"
)

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// stringToLineNumber parses an unsigned decimal line number. Only plain
// digit runs are accepted: no sign, no whitespace, and nothing past the
// largest int64.
func stringToLineNumber(s string) (LineNumber, bool) {
	if s == "" {
		return 0, false
	}
	var n int64
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return 0, false
		}
		d := int64(s[i] - '0')
		if n > (math.MaxInt64-d)/10 {
			return 0, false
		}
		n = n*10 + d
	}
	return LineNumber(n), true
}

// parseRangePair parses "l" or "l,c" from a unified range, where a missing
// count means one line.
func parseRangePair(s string) (Range, bool) {
	num, cnt, found := strings.Cut(s, ",")
	start, ok := stringToLineNumber(num)
	if !ok {
		return Range{}, false
	}
	count := LineNumber(1)
	if found {
		if count, ok = stringToLineNumber(cnt); !ok {
			return Range{}, false
		}
	}
	return Range{Start: start, Count: count}, true
}

// parseUnifiedRange parses a "@@ -l,c +l,c @@" range line into h, including
// any trailing function context. It is total: on failure h is untouched.
func parseUnifiedRange(h *Hunk, line string) bool {
	rest, ok := strings.CutPrefix(line, "@@ -")
	if !ok {
		return false
	}
	oldPart, rest, ok := strings.Cut(rest, " +")
	if !ok {
		return false
	}
	newPart, trailing, ok := strings.Cut(rest, " @@")
	if !ok {
		return false
	}
	oldRange, ok := parseRangePair(oldPart)
	if !ok {
		return false
	}
	newRange, ok := parseRangePair(newPart)
	if !ok {
		return false
	}
	h.OldRange = oldRange
	h.NewRange = newRange
	h.Context = strings.TrimPrefix(trailing, " ")
	return true
}

// parseContextRange parses the body of a context range such as "1,3" where
// the second number is an inclusive end line. A bare "0" is the empty side
// of a creation or deletion.
func parseContextRange(s string) (Range, bool) {
	first, second, found := strings.Cut(s, ",")
	start, ok := stringToLineNumber(first)
	if !ok {
		return Range{}, false
	}
	if !found {
		if start == 0 {
			return Range{Start: 0, Count: 0}, true
		}
		return Range{Start: start, Count: 1}, true
	}
	end, ok := stringToLineNumber(second)
	if !ok {
		return Range{}, false
	}
	if start == 0 && end == 0 {
		return Range{Start: 0, Count: 0}, true
	}
	if end < start {
		return Range{}, false
	}
	return Range{Start: start, Count: end - start + 1}, true
}

// parseContextOldRange parses "*** l[,r] ****".
func parseContextOldRange(line string) (Range, bool) {
	rest, ok := strings.CutPrefix(line, "*** ")
	if !ok {
		return Range{}, false
	}
	rest, ok = strings.CutSuffix(rest, " ****")
	if !ok {
		return Range{}, false
	}
	return parseContextRange(rest)
}

// parseContextNewRange parses "--- l[,r] ----".
func parseContextNewRange(line string) (Range, bool) {
	rest, ok := strings.CutPrefix(line, "--- ")
	if !ok {
		return Range{}, false
	}
	rest, ok = strings.CutSuffix(rest, " ----")
	if !ok {
		return Range{}, false
	}
	return parseContextRange(rest)
}

const contextHunkDelimiter = "***************"

// parseContextDelimiter recognizes the row of stars that opens a context
// hunk and returns any function context that trails it.
func parseContextDelimiter(line string) (string, bool) {
	rest, ok := strings.CutPrefix(line, contextHunkDelimiter)
	if !ok {
		return "", false
	}
	return strings.TrimPrefix(rest, " "), true
}

// normalCommand is a parsed ed-style diff command such as "4a5,6".
type normalCommand struct {
	kind     byte
	oldRange Range
	newRange Range
}

// parseNormalCommand parses "L[,L](a|c|d)L[,L]". Appends take a single line
// on the left, deletions a single line on the right; changes allow ranges on
// both sides. Ordering of a range's endpoints is checked later so that
// format detection matches the reference tool's lexical rule exactly.
func parseNormalCommand(line string) (normalCommand, bool) {
	i := 0
	for i < len(line) && (isDigit(line[i]) || line[i] == ',') {
		i++
	}
	if i == 0 || i == len(line) {
		return normalCommand{}, false
	}
	cmd := line[i]
	if cmd != 'a' && cmd != 'c' && cmd != 'd' {
		return normalCommand{}, false
	}
	left, leftComma, ok := parseNormalPair(line[:i])
	if !ok {
		return normalCommand{}, false
	}
	right, rightComma, ok := parseNormalPair(line[i+1:])
	if !ok {
		return normalCommand{}, false
	}
	if cmd == 'a' && leftComma {
		return normalCommand{}, false
	}
	if cmd == 'd' && rightComma {
		return normalCommand{}, false
	}
	nc := normalCommand{kind: cmd}
	switch cmd {
	case 'a':
		nc.oldRange = Range{Start: left.Start, Count: 0}
		nc.newRange = right
	case 'd':
		nc.oldRange = left
		nc.newRange = Range{Start: right.Start, Count: 0}
	default:
		nc.oldRange = left
		nc.newRange = right
	}
	return nc, true
}

// parseNormalPair parses "l" or "l,r" with r an inclusive end. The count may
// come out negative for misordered ranges; parseNormalCommand's callers turn
// that into a malformed-range error.
func parseNormalPair(s string) (Range, bool, bool) {
	first, second, found := strings.Cut(s, ",")
	start, ok := stringToLineNumber(first)
	if !ok {
		return Range{}, false, false
	}
	if !found {
		return Range{Start: start, Count: 1}, false, true
	}
	end, ok := stringToLineNumber(second)
	if !ok {
		return Range{}, false, false
	}
	return Range{Start: start, Count: end - start + 1}, true, true
}

// looksLikeNormalCommand reports whether line has the shape of an ed-style
// diff command. Detection commits on shape alone; semantic checks happen
// when the hunk is parsed.
func looksLikeNormalCommand(line string) bool {
	_, ok := parseNormalCommand(line)
	return ok
}

// parseFileLine splits the text after a "--- ", "+++ " or "*** " marker into
// a path and the raw timestamp that follows it. Unquoted paths end at the
// first tab; quoted paths use C-style escapes.
func parseFileLine(s string) (string, string) {
	if strings.HasPrefix(s, `"`) {
		if path, rest, ok := unquotePath(s); ok {
			return path, strings.TrimLeft(rest, " \t")
		}
	}
	path, timestamp, _ := strings.Cut(s, "\t")
	return path, timestamp
}

// unquotePath decodes a leading C-style quoted string and returns the text
// after the closing quote.
func unquotePath(s string) (string, string, bool) {
	end := -1
	for i := 1; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == '"' {
			end = i
			break
		}
	}
	if end < 0 {
		return "", "", false
	}
	path, err := strconv.Unquote(s[:end+1])
	if err != nil {
		return "", "", false
	}
	return path, s[end+1:], true
}

// parseGitDiffPaths splits the "a/old b/new" tail of a diff --git line.
// Quoted paths are decoded; otherwise the last " b/" is the boundary, which
// resolves the common case of equal paths containing spaces.
func parseGitDiffPaths(s string) (string, string) {
	if strings.HasPrefix(s, `"`) {
		oldPath, rest, ok := unquotePath(s)
		if !ok {
			return "", ""
		}
		rest = strings.TrimLeft(rest, " ")
		if strings.HasPrefix(rest, `"`) {
			if newPath, _, ok := unquotePath(rest); ok {
				return oldPath, newPath
			}
			return oldPath, ""
		}
		return oldPath, rest
	}
	if i := strings.LastIndex(s, " b/"); i >= 0 {
		return s[:i], s[i+1:]
	}
	oldPath, newPath, _ := strings.Cut(s, " ")
	return oldPath, newPath
}

package patch

import "fmt"

const noNewlineMarker = `\ No newline at end of file`

// renderReject turns the hunks that could not be placed back into patch
// text in the requested dialect. The rendered hunks keep the original line
// ranges, so the reject reads like the slice of the patch it came from.
// Normal rejects carry no file header; the other dialects restate the
// header pair.
func renderReject(p *Patch, hunks []Hunk, format Format) []string {
	var out []string
	if format == FormatNormal {
		for i := range hunks {
			out = append(out, renderNormalHunk(&hunks[i])...)
		}
		return out
	}
	oldPath, newPath := rejectHeaderPaths(p)
	if format == FormatContext {
		out = append(out,
			fileHeaderLine("*** ", oldPath, p.OldTime),
			fileHeaderLine("--- ", newPath, p.NewTime))
		for i := range hunks {
			out = append(out, renderContextHunk(&hunks[i])...)
		}
		return out
	}
	out = append(out,
		fileHeaderLine("--- ", oldPath, p.OldTime),
		fileHeaderLine("+++ ", newPath, p.NewTime))
	for i := range hunks {
		out = append(out, renderUnifiedHunk(&hunks[i])...)
	}
	return out
}

// rejectHeaderPaths picks the names for the reject's file header. Normal
// diffs name no files of their own, so the Index: path stands in.
func rejectHeaderPaths(p *Patch) (string, string) {
	oldPath, newPath := p.OldPath, p.NewPath
	if oldPath == "" {
		oldPath = p.IndexPath
	}
	if newPath == "" {
		newPath = p.IndexPath
	}
	return oldPath, newPath
}

func fileHeaderLine(prefix, path, timestamp string) string {
	s := prefix + path
	if timestamp != "" {
		s += "\t" + timestamp
	}
	return s
}

// unifiedRangeText renders start,count with the count omitted when it is 1.
func unifiedRangeText(r Range) string {
	if r.Count == 1 {
		return fmt.Sprintf("%d", r.Start)
	}
	return fmt.Sprintf("%d,%d", r.Start, r.Count)
}

// inclusiveRangeText renders the start,end form context and normal diffs
// share. A side with no lines names the line the change hangs off.
func inclusiveRangeText(r Range) string {
	if r.Count <= 1 {
		return fmt.Sprintf("%d", r.Start)
	}
	return fmt.Sprintf("%d,%d", r.Start, r.Start+r.Count-1)
}

func renderUnifiedHunk(h *Hunk) []string {
	head := fmt.Sprintf("@@ -%s +%s @@", unifiedRangeText(h.OldRange), unifiedRangeText(h.NewRange))
	if h.Context != "" {
		head += " " + h.Context
	}
	out := []string{head}
	for _, ln := range h.Lines {
		switch ln.Kind {
		case LineContext:
			out = append(out, " "+ln.Content)
		case LineDeletion:
			out = append(out, "-"+ln.Content)
		case LineInsertion:
			out = append(out, "+"+ln.Content)
		case LineNoNewline:
			out = append(out, noNewlineMarker)
		}
	}
	return out
}

// bodyRun is a maximal stretch of same-kind hunk lines. A deletion run
// directly followed by an insertion run renders as a change, marked "!" on
// both sides of a context hunk.
type bodyRun struct {
	kind      LineKind
	texts     []string
	noNewline bool
}

func hunkRuns(h *Hunk) []bodyRun {
	var runs []bodyRun
	for _, ln := range h.Lines {
		if ln.Kind == LineNoNewline {
			if n := len(runs); n > 0 {
				runs[n-1].noNewline = true
			}
			continue
		}
		if n := len(runs); n > 0 && runs[n-1].kind == ln.Kind && !runs[n-1].noNewline {
			runs[n-1].texts = append(runs[n-1].texts, ln.Content)
			continue
		}
		runs = append(runs, bodyRun{kind: ln.Kind, texts: []string{ln.Content}})
	}
	return runs
}

func renderContextHunk(h *Hunk) []string {
	head := contextHunkDelimiter
	if h.Context != "" {
		head += " " + h.Context
	}
	runs := hunkRuns(h)
	hasDel, hasIns := false, false
	for _, r := range runs {
		switch r.kind {
		case LineDeletion:
			hasDel = true
		case LineInsertion:
			hasIns = true
		}
	}

	out := []string{head, fmt.Sprintf("*** %s ****", inclusiveRangeText(h.OldRange))}
	if hasDel || !hasIns {
		for i, r := range runs {
			if r.kind == LineInsertion {
				continue
			}
			mark := "  "
			if r.kind == LineDeletion {
				mark = "- "
				if i+1 < len(runs) && runs[i+1].kind == LineInsertion {
					mark = "! "
				}
			}
			for _, t := range r.texts {
				out = append(out, mark+t)
			}
			if r.noNewline {
				out = append(out, noNewlineMarker)
			}
		}
	}

	out = append(out, fmt.Sprintf("--- %s ----", inclusiveRangeText(h.NewRange)))
	if hasIns || !hasDel {
		for i, r := range runs {
			if r.kind == LineDeletion {
				continue
			}
			mark := "  "
			if r.kind == LineInsertion {
				mark = "+ "
				if i > 0 && runs[i-1].kind == LineDeletion {
					mark = "! "
				}
			}
			for _, t := range r.texts {
				out = append(out, mark+t)
			}
			if r.noNewline {
				out = append(out, noNewlineMarker)
			}
		}
	}
	return out
}

// renderNormalHunk writes the hunk back as the ed command it was parsed
// from: deletions as "< " lines, insertions as "> " lines, a change
// separating the two with "---".
func renderNormalHunk(h *Hunk) []string {
	var olds, news []string
	oldNoNewline, newNoNewline := false, false
	last := LineContext
	for _, ln := range h.Lines {
		switch ln.Kind {
		case LineDeletion:
			olds = append(olds, ln.Content)
			last = LineDeletion
		case LineInsertion:
			news = append(news, ln.Content)
			last = LineInsertion
		case LineNoNewline:
			switch last {
			case LineDeletion:
				oldNoNewline = true
			case LineInsertion:
				newNoNewline = true
			}
		}
	}

	letter := "c"
	switch {
	case len(olds) == 0:
		letter = "a"
	case len(news) == 0:
		letter = "d"
	}
	out := []string{inclusiveRangeText(h.OldRange) + letter + inclusiveRangeText(h.NewRange)}
	for _, t := range olds {
		out = append(out, "< "+t)
	}
	if oldNoNewline {
		out = append(out, noNewlineMarker)
	}
	if letter == "c" {
		out = append(out, "---")
	}
	for _, t := range news {
		out = append(out, "> "+t)
	}
	if newNoNewline {
		out = append(out, noNewlineMarker)
	}
	return out
}

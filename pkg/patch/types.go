package patch

import "io/fs"

// LineNumber is a 1-based line position inside a file. The parser guarantees
// values fit in int64 and rejects anything larger.
type LineNumber int64

// Range addresses a run of lines in one side of a diff. Count may be zero,
// in which case Start names the line after which an insertion lands.
type Range struct {
	Start LineNumber
	Count LineNumber
}

// end returns the last line covered by the range. Only meaningful when
// Count > 0.
func (r Range) end() LineNumber {
	return r.Start + r.Count - 1
}

// LineKind classifies a single line in a hunk body.
type LineKind int

const (
	// LineContext is shared between the old and the new side.
	LineContext LineKind = iota
	// LineInsertion exists only on the new side.
	LineInsertion
	// LineDeletion exists only on the old side.
	LineDeletion
	// LineNoNewline records a "\ No newline at end of file" marker. It binds
	// to the immediately preceding line and never counts toward a range.
	LineNoNewline
)

func (k LineKind) String() string {
	switch k {
	case LineInsertion:
		return "insertion"
	case LineDeletion:
		return "deletion"
	case LineNoNewline:
		return "no-newline"
	default:
		return "context"
	}
}

// PatchLine is one body line of a hunk, without its line terminator.
// Carriage returns are content and survive round trips untouched.
type PatchLine struct {
	Kind    LineKind
	Content string
}

// Hunk is a contiguous edit: the old-side and new-side ranges it covers, the
// trailing text of its range header (function context, when present), and the
// body lines. Context and normal hunks are materialized into this same shape.
type Hunk struct {
	OldRange Range
	NewRange Range
	Context  string
	Lines    []PatchLine
}

// oldLines projects the old side of the hunk: context plus deletions.
func (h *Hunk) oldLines() []string {
	out := make([]string, 0, len(h.Lines))
	for _, ln := range h.Lines {
		if ln.Kind == LineContext || ln.Kind == LineDeletion {
			out = append(out, ln.Content)
		}
	}
	return out
}

// newLines projects the new side of the hunk: context plus insertions.
func (h *Hunk) newLines() []string {
	out := make([]string, 0, len(h.Lines))
	for _, ln := range h.Lines {
		if ln.Kind == LineContext || ln.Kind == LineInsertion {
			out = append(out, ln.Content)
		}
	}
	return out
}

// prefixContext counts the run of context lines at the top of the hunk.
func (h *Hunk) prefixContext() LineNumber {
	var n LineNumber
	for _, ln := range h.Lines {
		if ln.Kind != LineContext {
			break
		}
		n++
	}
	return n
}

// suffixContext counts the run of context lines at the bottom of the hunk,
// ignoring a trailing no-newline marker. A hunk that is pure context counts
// as prefix only, so prefix+suffix never exceeds the line total.
func (h *Hunk) suffixContext() LineNumber {
	var n LineNumber
	i := len(h.Lines) - 1
	for i >= 0 && h.Lines[i].Kind == LineNoNewline {
		i--
	}
	for ; i >= 0; i-- {
		if h.Lines[i].Kind != LineContext {
			break
		}
		n++
	}
	if pc := h.prefixContext(); pc+n > LineNumber(len(h.Lines)) {
		n = LineNumber(len(h.Lines)) - pc
	}
	return n
}

// oldEndsWithoutNewline reports whether the final old-side line carries a
// no-newline marker.
func (h *Hunk) oldEndsWithoutNewline() bool {
	return h.endsWithoutNewline(LineDeletion)
}

// newEndsWithoutNewline reports whether the final new-side line carries a
// no-newline marker.
func (h *Hunk) newEndsWithoutNewline() bool {
	return h.endsWithoutNewline(LineInsertion)
}

func (h *Hunk) endsWithoutNewline(side LineKind) bool {
	last := -1
	for i, ln := range h.Lines {
		if ln.Kind == LineContext || ln.Kind == side {
			last = i
		}
	}
	if last < 0 || last+1 >= len(h.Lines) {
		return false
	}
	return h.Lines[last+1].Kind == LineNoNewline
}

// reversed returns the hunk with old and new sides swapped, the form used to
// back out a previously applied patch.
func (h *Hunk) reversed() Hunk {
	out := Hunk{
		OldRange: h.NewRange,
		NewRange: h.OldRange,
		Context:  h.Context,
		Lines:    make([]PatchLine, len(h.Lines)),
	}
	for i, ln := range h.Lines {
		switch ln.Kind {
		case LineInsertion:
			ln.Kind = LineDeletion
		case LineDeletion:
			ln.Kind = LineInsertion
		}
		out.Lines[i] = ln
	}
	return out
}

// HeaderInfo records where a patch sat in the input stream and what the
// detector concluded. Prologue holds every line between HeaderStart and
// BodyStart verbatim, in order, for the reporter to echo.
type HeaderInfo struct {
	Format      Format
	HeaderStart int64
	BodyStart   int64
	BodyLine    int
	Prologue    []string
}

// Patch is one parsed file patch: header metadata plus its hunks. A stream
// may contain many of these back to back.
type Patch struct {
	Format    Format
	Operation Operation
	OldPath   string
	NewPath   string
	IndexPath string
	OldTime   string
	NewTime   string
	OldMode   fs.FileMode
	NewMode   fs.FileMode
	Prereq    string
	Hunks     []Hunk
	Header    HeaderInfo
}

// Reverse flips the patch in place so that applying it undoes the original.
func (p *Patch) Reverse() {
	p.OldPath, p.NewPath = p.NewPath, p.OldPath
	p.OldTime, p.NewTime = p.NewTime, p.OldTime
	p.OldMode, p.NewMode = p.NewMode, p.OldMode
	switch p.Operation {
	case OpAdd:
		p.Operation = OpDelete
	case OpDelete:
		p.Operation = OpAdd
	}
	for i := range p.Hunks {
		p.Hunks[i] = p.Hunks[i].reversed()
	}
}

package patch

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Parser decodes a stream of patches, any mix of unified, context, normal
// and git formats, one Patch per call to Next. Junk between patches is
// absorbed into the following patch's prologue the way patch(1) hunts for
// something that looks like a diff.
type Parser struct {
	r       *lineReader
	opts    Options
	count   int
	garbage bool
	done    bool
}

// NewParser returns a parser reading from r. opts may be nil; only Strip,
// FileSystem and Logger influence parsing.
func NewParser(r io.Reader, opts *Options) *Parser {
	var o Options
	if opts != nil {
		o = *opts
	}
	o.setDefaults()
	return &Parser{r: newLineReader(r), opts: o}
}

// Next returns the next patch in the stream, or io.EOF once the input is
// exhausted. A stream whose first patch cannot be recognized is an error;
// unrecognizable text after at least one good patch is skipped and recorded
// as trailing garbage.
func (ps *Parser) Next() (*Patch, error) {
	if ps.done {
		return nil, io.EOF
	}
	p := &Patch{}
	if err := ps.parseHeader(p); err != nil {
		return nil, err
	}
	if p.Format == FormatUnknown {
		if ps.count == 0 {
			ps.done = true
			return nil, &Error{Kind: ErrMalformedPatch, Message: "Only garbage was found in the patch input."}
		}
		if len(p.Header.Prologue) > 0 {
			ps.garbage = true
		}
		return nil, io.EOF
	}
	ps.count++
	ps.opts.Logger.Debug(context.Background(), "patch header parsed",
		Field("format", p.Format.String()),
		Field("operation", p.Operation.String()),
		Field("old", p.OldPath),
		Field("new", p.NewPath))
	if p.Operation == OpBinary {
		return p, nil
	}
	var err error
	switch p.Format {
	case FormatUnified:
		err = ps.parseUnifiedHunks(p)
	case FormatContext:
		err = ps.parseContextHunks(p)
	case FormatNormal:
		err = ps.parseNormalHunks(p)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// TrailingGarbage reports whether unparseable text followed the last patch.
func (ps *Parser) TrailingGarbage() bool { return ps.garbage }

// parseUnifiedHunks reads "@@" hunks until a line that is not a range line.
// Body lines are counted against the declared ranges; empty lines stand in
// for context lines whose leading space was stripped in transit.
func (ps *Parser) parseUnifiedHunks(p *Patch) error {
	for {
		ln, ok := ps.r.next()
		if !ok {
			return nil
		}
		var h Hunk
		if !parseUnifiedRange(&h, ln.text) {
			ps.r.unread(ln)
			return nil
		}
		oldLeft, newLeft := h.OldRange.Count, h.NewRange.Count
		for oldLeft > 0 || newLeft > 0 {
			bl, ok := ps.r.next()
			if !ok {
				return unexpectedEOF(ps.r.lineNumber())
			}
			t := bl.text
			var kind LineKind
			var content string
			switch {
			case t == "":
				kind, content = LineContext, ""
			case t[0] == ' ':
				kind, content = LineContext, t[1:]
			case t[0] == '+':
				kind, content = LineInsertion, t[1:]
			case t[0] == '-':
				kind, content = LineDeletion, t[1:]
			case t[0] == '\\':
				if len(h.Lines) == 0 {
					return malformedAt(ErrMalformedPatch, bl.number, t)
				}
				h.Lines = append(h.Lines, PatchLine{Kind: LineNoNewline})
				continue
			default:
				return malformedAt(ErrLineCountMismatch, bl.number, t)
			}
			switch kind {
			case LineContext:
				if oldLeft == 0 || newLeft == 0 {
					return malformedAt(ErrLineCountMismatch, bl.number, t)
				}
				oldLeft--
				newLeft--
			case LineInsertion:
				if newLeft == 0 {
					return malformedAt(ErrLineCountMismatch, bl.number, t)
				}
				newLeft--
			case LineDeletion:
				if oldLeft == 0 {
					return malformedAt(ErrLineCountMismatch, bl.number, t)
				}
				oldLeft--
			}
			h.Lines = append(h.Lines, PatchLine{Kind: kind, Content: content})
		}
		if bl, ok := ps.r.peek(); ok && strings.HasPrefix(bl.text, "\\") {
			ps.r.next()
			h.Lines = append(h.Lines, PatchLine{Kind: LineNoNewline})
		}
		p.Hunks = append(p.Hunks, h)
	}
}

// contextLine is one body line of a context hunk before the two sides are
// merged into the unified shape.
type contextLine struct {
	mark      byte
	text      string
	number    int
	noNewline bool
}

// parseContextBodyLine decodes a "mark space content" body line. side is
// 'o' for the old section (marks space, minus, bang) and 'n' for the new
// section (space, plus, bang). Lines trimmed down to nothing in transit are
// taken as empty context.
func parseContextBodyLine(t string, side byte) (byte, string, bool) {
	if t == "" || t == " " {
		return ' ', "", true
	}
	mark := t[0]
	switch mark {
	case ' ', '!':
	case '-':
		if side != 'o' {
			return 0, "", false
		}
	case '+':
		if side != 'n' {
			return 0, "", false
		}
	default:
		return 0, "", false
	}
	if len(t) == 1 {
		return mark, "", true
	}
	if t[1] != ' ' {
		return 0, "", false
	}
	return mark, t[2:], true
}

// parseContextHunks reads star-delimited context hunks. Either side's body
// may be omitted when that side carries no changes; the range lines are
// always present.
func (ps *Parser) parseContextHunks(p *Patch) error {
	for {
		ln, ok := ps.r.next()
		if !ok {
			return nil
		}
		hunkCtx, isDelim := parseContextDelimiter(ln.text)
		if !isDelim {
			ps.r.unread(ln)
			return nil
		}
		rl, ok := ps.r.next()
		if !ok {
			return unexpectedEOF(ps.r.lineNumber())
		}
		oldRange, okOld := parseContextOldRange(rl.text)
		if !okOld {
			return malformedAt(ErrMalformedRange, rl.number, rl.text)
		}
		oldSide, newRange, err := ps.readContextOldSide(oldRange)
		if err != nil {
			return err
		}
		newSide, err := ps.readContextNewSide(newRange)
		if err != nil {
			return err
		}
		h, err := materializeContextHunk(oldRange, newRange, hunkCtx, oldSide, newSide, rl.number)
		if err != nil {
			return err
		}
		p.Hunks = append(p.Hunks, *h)
	}
}

// readContextOldSide reads the old section's body and the "--- l,r ----"
// line that closes it. A nil slice means the body was omitted.
func (ps *Parser) readContextOldSide(oldRange Range) ([]contextLine, Range, error) {
	bl, ok := ps.r.peek()
	if !ok {
		return nil, Range{}, unexpectedEOF(ps.r.lineNumber())
	}
	if nr, ok2 := parseContextNewRange(bl.text); ok2 {
		ps.r.next()
		return nil, nr, nil
	}
	var side []contextLine
	for LineNumber(len(side)) < oldRange.Count {
		bl, ok := ps.r.next()
		if !ok {
			return nil, Range{}, unexpectedEOF(ps.r.lineNumber())
		}
		if strings.HasPrefix(bl.text, "\\") {
			if len(side) == 0 {
				return nil, Range{}, malformedAt(ErrMalformedPatch, bl.number, bl.text)
			}
			side[len(side)-1].noNewline = true
			continue
		}
		mark, content, ok2 := parseContextBodyLine(bl.text, 'o')
		if !ok2 {
			return nil, Range{}, malformedAt(ErrLineCountMismatch, bl.number, bl.text)
		}
		side = append(side, contextLine{mark: mark, text: content, number: bl.number})
	}
	if bl, ok := ps.r.peek(); ok && strings.HasPrefix(bl.text, "\\") && len(side) > 0 {
		ps.r.next()
		side[len(side)-1].noNewline = true
	}
	nl, ok := ps.r.next()
	if !ok {
		return nil, Range{}, unexpectedEOF(ps.r.lineNumber())
	}
	nr, ok2 := parseContextNewRange(nl.text)
	if !ok2 {
		return nil, Range{}, malformedAt(ErrMalformedRange, nl.number, nl.text)
	}
	return side, nr, nil
}

// readContextNewSide reads the new section's body when it is present.
func (ps *Parser) readContextNewSide(newRange Range) ([]contextLine, error) {
	bl, ok := ps.r.peek()
	if !ok {
		return nil, nil
	}
	if _, _, bodyLike := parseContextBodyLine(bl.text, 'n'); !bodyLike {
		return nil, nil
	}
	if _, isDelim := parseContextDelimiter(bl.text); isDelim {
		return nil, nil
	}
	var side []contextLine
	for LineNumber(len(side)) < newRange.Count {
		bl, ok := ps.r.next()
		if !ok {
			return nil, unexpectedEOF(ps.r.lineNumber())
		}
		if strings.HasPrefix(bl.text, "\\") {
			if len(side) == 0 {
				return nil, malformedAt(ErrMalformedPatch, bl.number, bl.text)
			}
			side[len(side)-1].noNewline = true
			continue
		}
		mark, content, ok2 := parseContextBodyLine(bl.text, 'n')
		if !ok2 {
			return nil, malformedAt(ErrLineCountMismatch, bl.number, bl.text)
		}
		side = append(side, contextLine{mark: mark, text: content, number: bl.number})
	}
	if bl, ok := ps.r.peek(); ok && strings.HasPrefix(bl.text, "\\") && len(side) > 0 {
		ps.r.next()
		side[len(side)-1].noNewline = true
	}
	return side, nil
}

// materializeContextHunk merges the two sides of a context hunk into the
// unified line sequence. Shared context must agree exactly; a run of "!"
// lines on one side pairs with the run on the other, and the runs may
// differ in length.
func materializeContextHunk(oldRange, newRange Range, hunkCtx string, oldSide, newSide []contextLine, at int) (*Hunk, error) {
	h := &Hunk{OldRange: oldRange, NewRange: newRange, Context: hunkCtx}

	emit := func(kind LineKind, cl contextLine) {
		h.Lines = append(h.Lines, PatchLine{Kind: kind, Content: cl.text})
		if cl.noNewline {
			h.Lines = append(h.Lines, PatchLine{Kind: LineNoNewline})
		}
	}
	mismatch := func(cl contextLine) error {
		return malformedAt(ErrMalformedPatch, cl.number, cl.text)
	}

	switch {
	case oldSide == nil && newSide == nil:
		if oldRange.Count != 0 || newRange.Count != 0 {
			return nil, &Error{
				Kind:    ErrLineCountMismatch,
				Line:    at,
				Message: fmt.Sprintf("malformed patch at line %d: context hunk has no body", at),
			}
		}
	case oldSide == nil:
		for _, cl := range newSide {
			switch cl.mark {
			case ' ':
				emit(LineContext, cl)
			case '+':
				emit(LineInsertion, cl)
			default:
				return nil, mismatch(cl)
			}
		}
	case newSide == nil:
		for _, cl := range oldSide {
			switch cl.mark {
			case ' ':
				emit(LineContext, cl)
			case '-':
				emit(LineDeletion, cl)
			default:
				return nil, mismatch(cl)
			}
		}
	default:
		i, j := 0, 0
		for i < len(oldSide) || j < len(newSide) {
			switch {
			case i < len(oldSide) && oldSide[i].mark == '-':
				emit(LineDeletion, oldSide[i])
				i++
			case j < len(newSide) && newSide[j].mark == '+':
				emit(LineInsertion, newSide[j])
				j++
			case i < len(oldSide) && oldSide[i].mark == '!':
				for i < len(oldSide) && oldSide[i].mark == '!' {
					emit(LineDeletion, oldSide[i])
					i++
				}
				if j >= len(newSide) || newSide[j].mark != '!' {
					return nil, mismatch(oldSide[i-1])
				}
				for j < len(newSide) && newSide[j].mark == '!' {
					emit(LineInsertion, newSide[j])
					j++
				}
			case i < len(oldSide) && j < len(newSide) && oldSide[i].mark == ' ' && newSide[j].mark == ' ':
				if oldSide[i].text != newSide[j].text {
					return nil, mismatch(newSide[j])
				}
				merged := oldSide[i]
				merged.noNewline = oldSide[i].noNewline || newSide[j].noNewline
				emit(LineContext, merged)
				i++
				j++
			case j < len(newSide) && newSide[j].mark == '!':
				return nil, mismatch(newSide[j])
			case i < len(oldSide):
				return nil, mismatch(oldSide[i])
			default:
				return nil, mismatch(newSide[j])
			}
		}
	}

	var gotOld, gotNew LineNumber
	for _, ln := range h.Lines {
		switch ln.Kind {
		case LineContext:
			gotOld++
			gotNew++
		case LineDeletion:
			gotOld++
		case LineInsertion:
			gotNew++
		}
	}
	// Zero-context diffs write a bare anchor line for the side that has
	// nothing, "*** 3 ****" meaning "after line 3". It lexes as a one-line
	// range; reconcile it with the empty body it stands for.
	if oldSide == nil && gotOld == 0 && oldRange.Count == 1 {
		oldRange.Count = 0
		h.OldRange = oldRange
	}
	if newSide == nil && gotNew == 0 && newRange.Count == 1 {
		newRange.Count = 0
		h.NewRange = newRange
	}
	if gotOld != oldRange.Count || gotNew != newRange.Count {
		return nil, &Error{
			Kind:    ErrLineCountMismatch,
			Line:    at,
			Message: fmt.Sprintf("malformed patch at line %d: context hunk body disagrees with its ranges", at),
		}
	}
	return h, nil
}

// parseNormalHunks reads consecutive ed-style commands with their "<" and
// ">" payloads.
func (ps *Parser) parseNormalHunks(p *Patch) error {
	for {
		ln, ok := ps.r.next()
		if !ok {
			return nil
		}
		nc, ok2 := parseNormalCommand(ln.text)
		if !ok2 {
			ps.r.unread(ln)
			return nil
		}
		if nc.oldRange.Count < 0 || nc.newRange.Count < 0 {
			return malformedAt(ErrMalformedRange, ln.number, ln.text)
		}
		h := Hunk{OldRange: nc.oldRange, NewRange: nc.newRange}
		if err := ps.readNormalSide(&h, "< ", LineDeletion, nc.oldRange.Count); err != nil {
			return err
		}
		if nc.kind == 'c' {
			sep, ok := ps.r.next()
			if !ok {
				return unexpectedEOF(ps.r.lineNumber())
			}
			if sep.text != "---" {
				return malformedAt(ErrMalformedPatch, sep.number, sep.text)
			}
		}
		if err := ps.readNormalSide(&h, "> ", LineInsertion, nc.newRange.Count); err != nil {
			return err
		}
		p.Hunks = append(p.Hunks, h)
	}
}

func (ps *Parser) readNormalSide(h *Hunk, prefix string, kind LineKind, count LineNumber) error {
	for i := LineNumber(0); i < count; i++ {
		bl, ok := ps.r.next()
		if !ok {
			return unexpectedEOF(ps.r.lineNumber())
		}
		content, ok2 := strings.CutPrefix(bl.text, prefix)
		if !ok2 {
			if bl.text == strings.TrimSuffix(prefix, " ") {
				content = ""
			} else {
				return malformedAt(ErrLineCountMismatch, bl.number, bl.text)
			}
		}
		h.Lines = append(h.Lines, PatchLine{Kind: kind, Content: content})
	}
	if count > 0 {
		if bl, ok := ps.r.peek(); ok && strings.HasPrefix(bl.text, "\\") {
			ps.r.next()
			h.Lines = append(h.Lines, PatchLine{Kind: LineNoNewline})
		}
	}
	return nil
}

package patch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// HunkResult records where one hunk landed, or where it should have.
type HunkResult struct {
	Number  int        `json:"number"`
	Applied bool       `json:"applied"`
	Line    LineNumber `json:"line"`
	Offset  LineNumber `json:"offset,omitempty"`
	Fuzz    LineNumber `json:"fuzz,omitempty"`
}

// FileResult is the outcome of applying one patch.
type FileResult struct {
	// Path is the file the patch was aimed at, after strip and best-name
	// selection. It may name a file that was never touched when the patch
	// was skipped.
	Path     string
	Hunks    []HunkResult
	Rejected int
	// Skipped marks a patch passed over wholesale: missing target, failed
	// prerequisite, or a reversal the policy refused.
	Skipped bool
	// Deleted marks a target removed because the result was empty.
	Deleted    bool
	RejectPath string
}

// Applier applies parsed patches to a file system. Hunks are matched against
// the original file: each one is searched for near where the previous hunk
// left off, sliding outward a line at a time and then retrying with context
// trimmed, up to MaxFuzz. The edits are spliced together only once every
// hunk has settled.
type Applier struct {
	opts Options
	fs   FileSystem
	rep  *Reporter
	log  Logger
}

// NewApplier validates opts and returns a ready Applier. A nil opts selects
// the zero-value defaults described on Options.
func NewApplier(opts *Options) (*Applier, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	o.setDefaults()
	if err := o.validate(); err != nil {
		return nil, err
	}
	return &Applier{opts: o, fs: o.FileSystem, rep: o.Reporter, log: o.Logger}, nil
}

// fileContext carries the resolved paths for one patch: the file being
// patched, the file its input is read from, and the rename or copy source
// when the patch moves content between names.
type fileContext struct {
	target      string
	source      string
	renamedFrom string
	copiedFrom  string
}

// Apply applies p and reports the outcome. A non-nil error means the run
// cannot continue; hunks that merely missed are reported through
// FileResult.Rejected and the reject file instead.
func (a *Applier) Apply(ctx context.Context, p *Patch) (*FileResult, error) {
	if p == nil {
		return nil, configError("apply: nil patch")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.rep.FormatDetected(&p.Header)

	if p.Operation == OpBinary {
		name := p.NewPath
		if name == "" || name == devNull {
			name = p.OldPath
		}
		return nil, &Error{
			Kind:    ErrUnsupportedBinary,
			Message: fmt.Sprintf("File %s: git binary diffs are not supported.", name),
		}
	}

	work := clonePatch(p)
	if a.opts.Reverse {
		work.Reverse()
	}

	if a.opts.TargetFile != "" {
		fc := fileContext{target: a.opts.TargetFile, source: a.opts.TargetFile}
		return a.applyToTarget(ctx, work, fc)
	}

	switch work.Operation {
	case OpRename, OpCopy:
		return a.applyRenameCopy(ctx, work)
	}

	var target string
	if work.Operation == OpAdd {
		target = work.NewPath
		if target == "" || target == devNull {
			target = work.OldPath
		}
	} else {
		target = bestTargetPath([]string{work.NewPath, work.OldPath, work.IndexPath}, a.fs)
	}
	return a.applyToTarget(ctx, work, fileContext{target: target, source: target})
}

// clonePatch copies p deeply enough that Reverse cannot disturb the
// caller's value. Hunk line slices are never mutated, so a shallow hunk
// copy is enough.
func clonePatch(p *Patch) *Patch {
	c := *p
	c.Hunks = append([]Hunk(nil), p.Hunks...)
	return &c
}

func (a *Applier) applyRenameCopy(ctx context.Context, p *Patch) (*FileResult, error) {
	src, dst := p.OldPath, p.NewPath
	fc := fileContext{target: dst, source: src}

	switch p.Operation {
	case OpRename:
		fc.renamedFrom = src
		if !fileExists(a.fs, src) && fileExists(a.fs, dst) {
			// The rename happened on a previous run; patch the
			// destination where it stands.
			fc = fileContext{target: dst, source: dst}
		} else if len(p.Hunks) == 0 {
			a.rep.PatchingFile(dst, a.opts.DryRun, "", src, "")
			if !a.opts.DryRun {
				if err := a.fs.Rename(src, dst); err != nil {
					return nil, ioFailure(src, err)
				}
			}
			return &FileResult{Path: dst}, nil
		}

	case OpCopy:
		fc.copiedFrom = src
		if len(p.Hunks) == 0 {
			a.rep.PatchingFile(dst, a.opts.DryRun, "", "", src)
			if !a.opts.DryRun {
				lines, finalNL, err := a.fs.ReadLines(src)
				if err != nil {
					return nil, ioFailure(src, err)
				}
				if err := a.fs.WriteLines(dst, lines, finalNL, p.NewMode); err != nil {
					return nil, ioFailure(dst, err)
				}
			}
			return &FileResult{Path: dst}, nil
		}
	}
	return a.applyToTarget(ctx, p, fc)
}

func (a *Applier) applyToTarget(ctx context.Context, p *Patch, fc fileContext) (*FileResult, error) {
	res := &FileResult{Path: fc.target}
	a.log.Debug(ctx, "patch target resolved",
		Field("target", fc.target),
		Field("operation", p.Operation.String()),
		Field("hunks", len(p.Hunks)))

	lines, srcNL, missing, err := a.readSource(fc.source)
	if err != nil {
		return nil, err
	}

	// A creation aimed at a file that already holds content.
	if p.Operation == OpAdd && !missing && len(lines) > 0 && !a.opts.Force {
		a.rep.AlreadyExists(fc.target)
		if a.opts.Forward || a.opts.Batch {
			a.rep.ReversedDetected()
			return a.skipPatch(p, res)
		}
		anyway, perr := a.opts.Prompter.Confirm(ctx, "Apply anyway? [n] ", false)
		if perr != nil {
			return nil, perr
		}
		if !anyway {
			a.rep.SkippingPatch()
			return a.skipPatch(p, res)
		}
	}

	if missing && p.Operation != OpAdd {
		a.rep.MissingFile(&p.Header, a.opts.Strip >= 0)
		for missing && !a.opts.Force && !a.opts.Batch {
			answer, perr := a.opts.Prompter.AskPath(ctx, "File to patch: ")
			if perr != nil {
				return nil, perr
			}
			if answer != "" {
				cand, candNL, candMissing, rerr := a.readSource(answer)
				if rerr != nil {
					return nil, rerr
				}
				if !candMissing {
					fc.target, fc.source = answer, answer
					res.Path = answer
					lines, srcNL, missing = cand, candNL, false
					break
				}
			}
			skip, perr := a.opts.Prompter.Confirm(ctx, "Skip this patch? [y] ", true)
			if perr != nil {
				return nil, perr
			}
			if skip {
				break
			}
		}
		if missing {
			a.rep.SkippingPatch()
			return a.skipPatch(p, res)
		}
	}

	if p.Prereq != "" && !containsWord(lines, p.Prereq) {
		switch {
		case a.opts.Force:
			a.rep.PrereqMismatch(p.Prereq)
		case a.opts.Batch:
			a.rep.SkippingPatch()
			return a.skipPatch(p, res)
		default:
			q := fmt.Sprintf("This file doesn't appear to be the %s version--patch anyway? [n] ", p.Prereq)
			anyway, perr := a.opts.Prompter.Confirm(ctx, q, false)
			if perr != nil {
				return nil, perr
			}
			if !anyway {
				a.rep.SkippingPatch()
				return a.skipPatch(p, res)
			}
		}
	}

	outPath := fc.target
	if a.opts.OutputFile != "" {
		outPath = a.opts.OutputFile
		a.rep.PatchingFile(outPath, a.opts.DryRun, fc.source, "", "")
	} else {
		a.rep.PatchingFile(fc.target, a.opts.DryRun, "", fc.renamedFrom, fc.copiedFrom)
	}

	applied, results, failed := a.attemptHunks(ctx, lines, p.Hunks, srcNL)

	// A forward patch whose first hunk misses everywhere may be a patch
	// that was already applied.
	if failed > 0 && !results[0].Applied && !a.opts.Force && !a.opts.Reverse {
		if a.looksReversed(lines, p) {
			flip := false
			switch {
			case a.opts.Forward:
				a.rep.ReversedDetected()
				return a.skipPatch(p, res)
			case a.opts.Batch:
				a.rep.AssumingReverse()
				flip = true
			default:
				assume, perr := a.opts.Prompter.Confirm(ctx,
					"Reversed (or previously applied) patch detected!  Assume -R? [n] ", false)
				if perr != nil {
					return nil, perr
				}
				if assume {
					flip = true
				} else {
					anyway, perr := a.opts.Prompter.Confirm(ctx, "Apply anyway? [n] ", false)
					if perr != nil {
						return nil, perr
					}
					if !anyway {
						a.rep.SkippingPatch()
						return a.skipPatch(p, res)
					}
				}
			}
			if flip {
				p.Reverse()
				applied, results, failed = a.attemptHunks(ctx, lines, p.Hunks, srcNL)
			}
		}
	}

	for _, hr := range results {
		if hr.Applied {
			a.rep.HunkSucceeded(hr)
		} else {
			a.rep.HunkFailed(hr.Number, hr.Line)
		}
	}
	res.Hunks = results
	res.Rejected = failed

	out := buildOutput(lines, applied)
	finalNL := finalNewlineState(srcNL, LineNumber(len(lines)), applied)
	if err := a.writeResult(p, fc, res, out, finalNL); err != nil {
		return nil, err
	}

	if failed > 0 {
		rejPath := a.rejectPath(res.Path)
		res.RejectPath = rejPath
		a.rep.RejectSummary(failed, len(p.Hunks), rejPath)
		if !a.opts.DryRun && rejPath != "" {
			if err := a.writeRejects(p, collectRejected(p.Hunks, results), rejPath); err != nil {
				return nil, err
			}
		}
	}
	return res, nil
}

func (a *Applier) readSource(path string) (lines []string, finalNL bool, missing bool, err error) {
	if path == "" {
		return []string{}, true, true, nil
	}
	lines, finalNL, rerr := a.fs.ReadLines(path)
	if rerr != nil {
		if errors.Is(rerr, fs.ErrNotExist) {
			return []string{}, true, true, nil
		}
		return nil, false, false, ioFailure(path, rerr)
	}
	return lines, finalNL, false, nil
}

// skipPatch records a wholesale skip: every hunk counts as ignored and the
// whole patch lands in the reject file.
func (a *Applier) skipPatch(p *Patch, res *FileResult) (*FileResult, error) {
	total := len(p.Hunks)
	res.Skipped = true
	res.Rejected = total
	if total == 0 {
		return res, nil
	}
	rejPath := a.rejectPath(res.Path)
	res.RejectPath = rejPath
	a.rep.IgnoredSummary(total, total, rejPath)
	if !a.opts.DryRun && rejPath != "" {
		if err := a.writeRejects(p, p.Hunks, rejPath); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (a *Applier) rejectPath(target string) string {
	if a.opts.RejectFile != "" {
		return a.opts.RejectFile
	}
	if target == "" {
		return ""
	}
	return target + ".rej"
}

// appliedHunk is a settled edit: pat matched the original file at pos.
type appliedHunk struct {
	hunk *Hunk
	pat  hunkPattern
	pos  LineNumber
}

// attemptHunks finds a home for each hunk in the original lines. Positions
// in the returned results are expressed in output coordinates, which is
// where the user will look for them; offsets are the running displacement
// from where the ranges said the text would be, which later hunks inherit
// as their starting guess.
func (a *Applier) attemptHunks(ctx context.Context, lines []string, hunks []Hunk, srcNL bool) ([]appliedHunk, []HunkResult, int) {
	var (
		applied    []appliedHunk
		results    []HunkResult
		failed     int
		lastOffset LineNumber
		outDelta   LineNumber
		minPos     = LineNumber(1)
	)
	loose := a.opts.IgnoreWhitespace

	for i := range hunks {
		h := &hunks[i]
		base := h.OldRange.Start
		if h.OldRange.Count == 0 {
			// Pure insertion: the old range names the line the new
			// text follows.
			base++
		}

		var (
			found bool
			pos   LineNumber
			pat   hunkPattern
			fuzz  LineNumber
		)
		for f := LineNumber(0); f <= a.opts.MaxFuzz; f++ {
			cand := buildPattern(h, f)
			if f > 0 && len(cand.oldLines) == 0 && len(h.oldLines()) > 0 {
				// Fuzz ate the whole pattern; a match would be
				// vacuous.
				break
			}
			expected := base + lastOffset + cand.topTrim
			p, ok := locate(lines, cand.oldLines, expected, minPos, loose)
			if ok && newlineAgrees(lines, h, cand, p, srcNL) {
				pos, pat, fuzz, found = p, cand, f, true
				break
			}
		}

		if !found {
			at := h.NewRange.Start + lastOffset
			if at < 1 {
				at = 1
			}
			a.log.Debug(ctx, "hunk placement failed",
				Field("hunk", i+1),
				Field("expected", int64(base+lastOffset)),
				Field("maxFuzz", int64(a.opts.MaxFuzz)))
			results = append(results, HunkResult{Number: i + 1, Line: at})
			failed++
			continue
		}

		start := pos - pat.topTrim
		if start < 1 {
			start = 1
		}
		reported := start + outDelta
		if reported < 1 {
			reported = 1
		}
		drift := pos - (base + lastOffset + pat.topTrim)
		lastOffset += drift
		a.log.Debug(ctx, "hunk placed",
			Field("hunk", i+1),
			Field("line", int64(pos)),
			Field("offset", int64(lastOffset)),
			Field("fuzz", int64(fuzz)))
		results = append(results, HunkResult{
			Number:  i + 1,
			Applied: true,
			Line:    reported,
			Offset:  lastOffset,
			Fuzz:    fuzz,
		})
		applied = append(applied, appliedHunk{hunk: h, pat: pat, pos: pos})

		outDelta += LineNumber(len(pat.newLines)) - LineNumber(len(pat.oldLines))
		minPos = pos + LineNumber(len(pat.oldLines))
		if len(pat.oldLines) == 0 {
			minPos = pos
		}
	}
	return applied, results, failed
}

// newlineAgrees rejects a candidate match whose pattern covers the last
// line of the file while disagreeing with it about the final newline. Fuzz
// that trims the bottom context makes the question moot.
func newlineAgrees(lines []string, h *Hunk, pat hunkPattern, pos LineNumber, srcNL bool) bool {
	if len(pat.oldLines) == 0 || pat.bottomTrim > 0 {
		return true
	}
	if pos+LineNumber(len(pat.oldLines))-1 != LineNumber(len(lines)) {
		return true
	}
	return srcNL == !h.oldEndsWithoutNewline()
}

// looksReversed probes whether the first hunk would apply with its sides
// swapped, which is the signature of an already-applied patch.
func (a *Applier) looksReversed(lines []string, p *Patch) bool {
	if len(p.Hunks) == 0 {
		return false
	}
	rh := p.Hunks[0].reversed()
	pat := buildPattern(&rh, 0)
	if len(pat.oldLines) == 0 {
		return false
	}
	base := rh.OldRange.Start
	if rh.OldRange.Count == 0 {
		base++
	}
	_, ok := locate(lines, pat.oldLines, base+pat.topTrim, 1, a.opts.IgnoreWhitespace)
	return ok
}

// buildOutput splices the settled edits into the original lines. Edits
// arrive ordered and non-overlapping.
func buildOutput(lines []string, applied []appliedHunk) []string {
	out := make([]string, 0, len(lines))
	cursor := LineNumber(1)
	for _, ah := range applied {
		for cursor < ah.pos {
			out = append(out, lines[cursor-1])
			cursor++
		}
		out = append(out, ah.pat.newLines...)
		cursor += LineNumber(len(ah.pat.oldLines))
	}
	for cursor <= LineNumber(len(lines)) {
		out = append(out, lines[cursor-1])
		cursor++
	}
	return out
}

// finalNewlineState decides whether the output ends in a newline: the last
// edit that reaches the original end of file dictates it, otherwise the
// original's state survives.
func finalNewlineState(srcNL bool, srcLen LineNumber, applied []appliedHunk) bool {
	finalNL := srcNL
	for _, ah := range applied {
		var reach bool
		if n := LineNumber(len(ah.pat.oldLines)); n > 0 {
			reach = ah.pos+n-1 == srcLen
		} else {
			reach = ah.pos == srcLen+1
		}
		if !reach {
			continue
		}
		switch {
		case len(ah.pat.newLines) == 0:
			// The tail was deleted; the preceding survivor kept its
			// newline.
			finalNL = true
		case ah.pat.bottomTrim > 0:
			// The marker-bearing line was trimmed as context and
			// never entered the pattern.
			finalNL = true
		default:
			finalNL = !ah.hunk.newEndsWithoutNewline()
		}
	}
	return finalNL
}

func (a *Applier) writeResult(p *Patch, fc fileContext, res *FileResult, out []string, finalNL bool) error {
	outPath := fc.target
	if a.opts.OutputFile != "" {
		outPath = a.opts.OutputFile
	}

	empty := len(out) == 0
	removeIt := empty && ((p.Operation == OpDelete && res.Rejected == 0) || a.opts.RemoveEmptyFiles)
	if p.Operation == OpDelete && !empty && res.Rejected == 0 {
		a.rep.NotDeleting(fc.target)
	}
	if a.opts.DryRun {
		res.Deleted = removeIt
		return nil
	}

	if a.opts.Backup && fileExists(a.fs, outPath) {
		if err := a.fs.Rename(outPath, outPath+a.opts.BackupSuffix); err != nil {
			return ioFailure(outPath, err)
		}
	}

	if removeIt {
		if fileExists(a.fs, outPath) {
			if err := a.fs.Remove(outPath); err != nil {
				return ioFailure(outPath, err)
			}
		}
		res.Deleted = true
	} else {
		if err := a.fs.WriteLines(outPath, out, finalNL, p.NewMode); err != nil {
			return ioFailure(outPath, err)
		}
		if p.NewMode != 0 {
			if err := a.fs.Chmod(outPath, p.NewMode); err != nil {
				return ioFailure(outPath, err)
			}
		}
	}

	if fc.renamedFrom != "" && fc.renamedFrom != outPath {
		if err := a.fs.Remove(fc.renamedFrom); err != nil {
			return ioFailure(fc.renamedFrom, err)
		}
	}
	return nil
}

func collectRejected(hunks []Hunk, results []HunkResult) []Hunk {
	var rej []Hunk
	for i, r := range results {
		if !r.Applied {
			rej = append(rej, hunks[i])
		}
	}
	return rej
}

func (a *Applier) writeRejects(p *Patch, hunks []Hunk, path string) error {
	// Rejects keep the dialect of the patch they came from unless the
	// caller forced one. Git input has already been normalized to unified.
	format := a.opts.RejectFormat
	if format == FormatUnknown {
		format = p.Format
	}
	lines := renderReject(p, hunks, format)
	if err := a.fs.WriteLines(path, lines, true, 0); err != nil {
		return ioFailure(path, err)
	}
	return nil
}

func containsWord(lines []string, word string) bool {
	for _, line := range lines {
		for _, f := range strings.Fields(line) {
			if f == word {
				return true
			}
		}
	}
	return false
}

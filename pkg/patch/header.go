package patch

import (
	"io/fs"
	"strconv"
	"strings"
)

// parseHeader scans forward for the next recognizable patch header, leaving
// the reader at the first body line. Lines consumed on the way, header lines
// included, are retained verbatim in p.Header.Prologue so the reporter can
// echo the text leading up to the patch. At end of input the patch is left
// with FormatUnknown.
//
// Detection rules, in the reference tool's priority order: a "--- " line
// directly followed by "+++ " commits to unified; a "*** " line directly
// followed by "--- " commits to context; a line shaped like an ed command
// commits to normal, with the command line itself left for the body; a
// "diff --git " line hands over to the extended-header parser. A bare range
// line such as "@@ -1,3 +1,4 @@" never commits on its own.
func (ps *Parser) parseHeader(p *Patch) error {
	info := &p.Header
	info.HeaderStart = ps.r.pos()

	for {
		ln, ok := ps.r.next()
		if !ok {
			if err := ps.r.readErr(); err != nil {
				return &Error{Kind: ErrIoFailure, Message: "reading patch input", Err: err}
			}
			ps.commitBody(p, FormatUnknown)
			return nil
		}
		s := ln.text

		switch {
		case strings.HasPrefix(s, "Index: "):
			p.IndexPath = stripPath(strings.TrimPrefix(s, "Index: "), ps.opts.Strip, ps.opts.FileSystem)

		case strings.HasPrefix(s, "Prereq: "):
			if fields := strings.Fields(strings.TrimPrefix(s, "Prereq: ")); len(fields) > 0 {
				p.Prereq = fields[0]
			}

		case strings.HasPrefix(s, "diff --git "):
			info.Prologue = append(info.Prologue, s)
			return ps.parseGitHeader(p, s)

		case strings.HasPrefix(s, "--- "):
			if next, ok2 := ps.r.peek(); ok2 && strings.HasPrefix(next.text, "+++ ") {
				ps.r.next()
				ps.setUnifiedPaths(p, s, next.text)
				info.Prologue = append(info.Prologue, s, next.text)
				ps.commitBody(p, FormatUnified)
				return nil
			}

		case strings.HasPrefix(s, "*** "):
			if next, ok2 := ps.r.peek(); ok2 && strings.HasPrefix(next.text, "--- ") {
				ps.r.next()
				ps.setContextPaths(p, s, next.text)
				info.Prologue = append(info.Prologue, s, next.text)
				ps.commitBody(p, FormatContext)
				return nil
			}

		default:
			if looksLikeNormalCommand(s) {
				ps.r.unread(ln)
				ps.commitBody(p, FormatNormal)
				return nil
			}
		}
		info.Prologue = append(info.Prologue, s)
	}
}

// commitBody pins down where the hunks start and the format both the patch
// and its header report.
func (ps *Parser) commitBody(p *Patch, f Format) {
	p.Format = f
	p.Header.Format = f
	p.Header.BodyStart = ps.r.pos()
	p.Header.BodyLine = ps.r.lineNumber()
}

// setUnifiedPaths fills paths and timestamps from a "--- old" / "+++ new"
// pair. Paths already chosen by git directives win; /dev/null on either
// side turns the patch into a creation or a deletion.
func (ps *Parser) setUnifiedPaths(p *Patch, oldLine, newLine string) {
	oldName, oldTime := parseFileLine(strings.TrimPrefix(oldLine, "--- "))
	newName, newTime := parseFileLine(strings.TrimPrefix(newLine, "+++ "))
	ps.adoptPaths(p, oldName, newName, oldTime, newTime)
}

// setContextPaths fills paths and timestamps from a "*** old" / "--- new"
// pair.
func (ps *Parser) setContextPaths(p *Patch, oldLine, newLine string) {
	oldName, oldTime := parseFileLine(strings.TrimPrefix(oldLine, "*** "))
	newName, newTime := parseFileLine(strings.TrimPrefix(newLine, "--- "))
	ps.adoptPaths(p, oldName, newName, oldTime, newTime)
}

func (ps *Parser) adoptPaths(p *Patch, oldName, newName, oldTime, newTime string) {
	p.OldTime, p.NewTime = oldTime, newTime
	if p.OldPath == "" {
		p.OldPath = stripPath(oldName, ps.opts.Strip, ps.opts.FileSystem)
	}
	if p.NewPath == "" {
		p.NewPath = stripPath(newName, ps.opts.Strip, ps.opts.FileSystem)
	}
	if p.Operation == OpChange {
		if oldName == devNull {
			p.Operation = OpAdd
		} else if newName == devNull {
			p.Operation = OpDelete
		}
	}
}

// parseGitHeader consumes the extended header lines after "diff --git",
// recording renames, copies, mode changes, creations, deletions and binary
// markers. The body, when there is one, is the unified body; the produced
// patch is normalized to FormatUnified, matching how the reference tool
// reports git input.
func (ps *Parser) parseGitHeader(p *Patch, diffLine string) error {
	info := &p.Header
	p.Format = FormatGit
	defaultOld, defaultNew := parseGitDiffPaths(strings.TrimPrefix(diffLine, "diff --git "))

	commit := func() {
		if p.OldPath == "" {
			p.OldPath = ps.stripGitPath(defaultOld)
		}
		if p.NewPath == "" {
			p.NewPath = ps.stripGitPath(defaultNew)
		}
		ps.commitBody(p, FormatUnified)
	}

	for {
		ln, ok := ps.r.next()
		if !ok {
			if err := ps.r.readErr(); err != nil {
				return &Error{Kind: ErrIoFailure, Message: "reading patch input", Err: err}
			}
			commit()
			return nil
		}
		s := ln.text

		switch {
		case strings.HasPrefix(s, "old mode "):
			p.OldMode = parseGitMode(strings.TrimPrefix(s, "old mode "))

		case strings.HasPrefix(s, "new mode "):
			p.NewMode = parseGitMode(strings.TrimPrefix(s, "new mode "))

		case strings.HasPrefix(s, "deleted file mode "):
			p.Operation = OpDelete
			p.OldMode = parseGitMode(strings.TrimPrefix(s, "deleted file mode "))

		case strings.HasPrefix(s, "new file mode "):
			p.Operation = OpAdd
			p.NewMode = parseGitMode(strings.TrimPrefix(s, "new file mode "))

		case strings.HasPrefix(s, "rename from "):
			p.Operation = OpRename
			p.OldPath = ps.stripGitPath(strings.TrimPrefix(s, "rename from "))

		case strings.HasPrefix(s, "rename to "):
			p.Operation = OpRename
			p.NewPath = ps.stripGitPath(strings.TrimPrefix(s, "rename to "))

		case strings.HasPrefix(s, "copy from "):
			p.Operation = OpCopy
			p.OldPath = ps.stripGitPath(strings.TrimPrefix(s, "copy from "))

		case strings.HasPrefix(s, "copy to "):
			p.Operation = OpCopy
			p.NewPath = ps.stripGitPath(strings.TrimPrefix(s, "copy to "))

		case strings.HasPrefix(s, "similarity index "),
			strings.HasPrefix(s, "dissimilarity index "):
			// Recorded in the prologue only.

		case strings.HasPrefix(s, "index "):
			if fields := strings.Fields(strings.TrimPrefix(s, "index ")); len(fields) == 2 {
				if mode := parseGitMode(fields[1]); mode != 0 {
					if p.OldMode == 0 {
						p.OldMode = mode
					}
					if p.NewMode == 0 {
						p.NewMode = mode
					}
				}
			}

		case s == "GIT binary patch":
			p.Operation = OpBinary
			info.Prologue = append(info.Prologue, s)
			ps.skipBinaryBody()
			commit()
			return nil

		case strings.HasPrefix(s, "Binary files "):
			p.Operation = OpBinary
			info.Prologue = append(info.Prologue, s)
			commit()
			return nil

		case strings.HasPrefix(s, "--- "):
			if next, ok2 := ps.r.peek(); ok2 && strings.HasPrefix(next.text, "+++ ") {
				ps.r.next()
				ps.setUnifiedPaths(p, s, next.text)
				info.Prologue = append(info.Prologue, s, next.text)
				commit()
				return nil
			}
			ps.r.unread(ln)
			commit()
			return nil

		case strings.HasPrefix(s, "@@ "):
			ps.r.unread(ln)
			commit()
			return nil

		default:
			ps.r.unread(ln)
			commit()
			return nil
		}
		info.Prologue = append(info.Prologue, s)
	}
}

// skipBinaryBody consumes the base85 payload of a GIT binary patch so the
// stream stays aligned for the next patch. The payload ends at a blank line
// or at the next diff header.
func (ps *Parser) skipBinaryBody() {
	for {
		ln, ok := ps.r.peek()
		if !ok || ln.text == "" || strings.HasPrefix(ln.text, "diff --git ") {
			return
		}
		ps.r.next()
	}
}

func (ps *Parser) stripGitPath(path string) string {
	return stripPath(path, ps.opts.Strip, ps.opts.FileSystem)
}

func parseGitMode(s string) fs.FileMode {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0
	}
	return fs.FileMode(v)
}

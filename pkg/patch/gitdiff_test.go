package patch

import (
	"io"
	"strings"
	"testing"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// These tests parse the same git diffs with this package and with
// go-gitdiff and require both to agree on structure. go-gitdiff has no
// notion of fuzz or strip, so agreement stops at the parsed form.

func parseStream(t *testing.T, text string, opts *Options) []*Patch {
	t.Helper()
	ps := NewParser(strings.NewReader(text), opts)
	var out []*Patch
	for {
		p, err := ps.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, p)
	}
}

func kindForOp(op gitdiff.LineOp) LineKind {
	switch op {
	case gitdiff.OpAdd:
		return LineInsertion
	case gitdiff.OpDelete:
		return LineDeletion
	default:
		return LineContext
	}
}

func TestGitParserAgreesWithGoGitdiff(t *testing.T) {
	t.Parallel()

	text := strings.Join([]string{
		"diff --git a/internal/server.go b/internal/server.go",
		"index 4b5fa63..9c2e1aa 100644",
		"--- a/internal/server.go",
		"+++ b/internal/server.go",
		"@@ -1,4 +1,5 @@",
		" package internal",
		" ",
		"+// Serve runs the loop.",
		" func Serve() {",
		" \tlisten()",
		"@@ -10,6 +11,5 @@ func shutdown() {",
		" func hangup() {",
		" \tdrain()",
		"-\tflush()",
		"-\tclose()",
		"+\tstop()",
		" \twait()",
		" }",
		"diff --git a/internal/notes.txt b/internal/notes.txt",
		"new file mode 100644",
		"index 0000000..f2a886f",
		"--- /dev/null",
		"+++ b/internal/notes.txt",
		"@@ -0,0 +1,2 @@",
		"+first",
		"+second",
	}, "\n") + "\n"

	mine := parseStream(t, text, &Options{Strip: 1})
	theirs, _, err := gitdiff.Parse(strings.NewReader(text))
	if err != nil {
		t.Fatalf("gitdiff.Parse: %v", err)
	}
	if len(mine) != 2 || len(theirs) != 2 {
		t.Fatalf("file counts: mine %d, gitdiff %d", len(mine), len(theirs))
	}

	edit, ref := mine[0], theirs[0]
	if edit.OldPath != ref.OldName || edit.NewPath != ref.NewName {
		t.Fatalf("paths: mine %q -> %q, gitdiff %q -> %q",
			edit.OldPath, edit.NewPath, ref.OldName, ref.NewName)
	}
	if len(edit.Hunks) != len(ref.TextFragments) {
		t.Fatalf("hunks: mine %d, gitdiff %d", len(edit.Hunks), len(ref.TextFragments))
	}
	for i, h := range edit.Hunks {
		frag := ref.TextFragments[i]
		if int64(h.OldRange.Start) != frag.OldPosition || int64(h.OldRange.Count) != frag.OldLines {
			t.Fatalf("hunk %d old range: mine %d,%d, gitdiff %d,%d",
				i+1, h.OldRange.Start, h.OldRange.Count, frag.OldPosition, frag.OldLines)
		}
		if int64(h.NewRange.Start) != frag.NewPosition || int64(h.NewRange.Count) != frag.NewLines {
			t.Fatalf("hunk %d new range: mine %d,%d, gitdiff %d,%d",
				i+1, h.NewRange.Start, h.NewRange.Count, frag.NewPosition, frag.NewLines)
		}
		if h.Context != frag.Comment {
			t.Fatalf("hunk %d context: mine %q, gitdiff %q", i+1, h.Context, frag.Comment)
		}
		if len(h.Lines) != len(frag.Lines) {
			t.Fatalf("hunk %d lines: mine %d, gitdiff %d", i+1, len(h.Lines), len(frag.Lines))
		}
		for j, ln := range h.Lines {
			refLine := frag.Lines[j]
			if ln.Kind != kindForOp(refLine.Op) {
				t.Fatalf("hunk %d line %d: kind %d, gitdiff op %v", i+1, j+1, ln.Kind, refLine.Op)
			}
			if ln.Content != strings.TrimSuffix(refLine.Line, "\n") {
				t.Fatalf("hunk %d line %d: mine %q, gitdiff %q", i+1, j+1, ln.Content, refLine.Line)
			}
		}
	}

	created, refNew := mine[1], theirs[1]
	if created.Operation != OpAdd || !refNew.IsNew {
		t.Fatalf("creation not agreed on: op %v, IsNew %v", created.Operation, refNew.IsNew)
	}
	if created.NewPath != refNew.NewName {
		t.Fatalf("new paths: mine %q, gitdiff %q", created.NewPath, refNew.NewName)
	}
	if len(created.Hunks) != 1 || len(refNew.TextFragments) != 1 {
		t.Fatalf("creation hunks: mine %d, gitdiff %d", len(created.Hunks), len(refNew.TextFragments))
	}
	h, frag := created.Hunks[0], refNew.TextFragments[0]
	if int64(h.NewRange.Start) != frag.NewPosition || int64(h.NewRange.Count) != frag.NewLines {
		t.Fatalf("creation range: mine %d,%d, gitdiff %d,%d",
			h.NewRange.Start, h.NewRange.Count, frag.NewPosition, frag.NewLines)
	}
}

func TestGitParserRenameAgreesWithGoGitdiff(t *testing.T) {
	t.Parallel()

	text := strings.Join([]string{
		"diff --git a/docs/old.md b/docs/new.md",
		"similarity index 100%",
		"rename from docs/old.md",
		"rename to docs/new.md",
	}, "\n") + "\n"

	mine := parseStream(t, text, &Options{Strip: 1})
	theirs, _, err := gitdiff.Parse(strings.NewReader(text))
	if err != nil {
		t.Fatalf("gitdiff.Parse: %v", err)
	}
	if len(mine) != 1 || len(theirs) != 1 {
		t.Fatalf("file counts: mine %d, gitdiff %d", len(mine), len(theirs))
	}
	p, ref := mine[0], theirs[0]
	if p.Operation != OpRename || !ref.IsRename {
		t.Fatalf("rename not agreed on: op %v, IsRename %v", p.Operation, ref.IsRename)
	}
	if p.OldPath != ref.OldName || p.NewPath != ref.NewName {
		t.Fatalf("paths: mine %q -> %q, gitdiff %q -> %q",
			p.OldPath, p.NewPath, ref.OldName, ref.NewName)
	}
	if len(p.Hunks) != 0 || len(ref.TextFragments) != 0 {
		t.Fatalf("hunkless rename grew hunks: mine %d, gitdiff %d",
			len(p.Hunks), len(ref.TextFragments))
	}
}

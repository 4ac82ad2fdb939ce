package patch

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

// scriptedPrompter replays canned answers and records every prompt it was
// shown.
type scriptedPrompter struct {
	paths   []string
	answers []bool
	prompts []string
}

func (s *scriptedPrompter) AskPath(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.paths) == 0 {
		return "", nil
	}
	p := s.paths[0]
	s.paths = s.paths[1:]
	return p, nil
}

func (s *scriptedPrompter) Confirm(_ context.Context, prompt string, def bool) (bool, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.answers) == 0 {
		return def, nil
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, nil
}

func mustApply(t *testing.T, opts *Options, patchText string) *FileResult {
	t.Helper()
	p := parseOne(t, patchText, opts)
	a, err := NewApplier(opts)
	if err != nil {
		t.Fatalf("NewApplier: %v", err)
	}
	res, err := a.Apply(context.Background(), p)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return res
}

func fileMustBe(t *testing.T, mfs *MemoryFileSystem, path, want string) {
	t.Helper()
	got, ok := mfs.FileContent(path)
	if !ok {
		t.Fatalf("%s does not exist", path)
	}
	if got != want {
		t.Fatalf("%s = %q, want %q", path, got, want)
	}
}

func TestApplyCleanChange(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	mfs.SetFile("f.txt", "one\ntwo\nthree\n")
	var buf bytes.Buffer
	opts := &Options{FileSystem: mfs, Reporter: NewReporter(&buf)}

	res := mustApply(t, opts, strings.Join([]string{
		"--- f.txt\tt",
		"+++ f.txt\tt",
		"@@ -1,3 +1,3 @@",
		" one",
		"-two",
		"+deux",
		" three",
	}, "\n")+"\n")

	fileMustBe(t, mfs, "f.txt", "one\ndeux\nthree\n")
	if res.Rejected != 0 || res.Skipped || len(res.Hunks) != 1 {
		t.Fatalf("result: %+v", res)
	}
	hr := res.Hunks[0]
	if !hr.Applied || hr.Line != 1 || hr.Offset != 0 || hr.Fuzz != 0 {
		t.Fatalf("hunk result: %+v", hr)
	}
	if buf.String() != "patching file f.txt\n" {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestApplyOffsetCarriesForward(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	mfs.SetFile("f.txt", "x\ny\none\ntwo\nthree\nfour\nfive\nsix\n")
	var buf bytes.Buffer
	opts := &Options{FileSystem: mfs, Reporter: NewReporter(&buf)}

	res := mustApply(t, opts, strings.Join([]string{
		"--- f.txt\tt",
		"+++ f.txt\tt",
		"@@ -1,3 +1,3 @@",
		" one",
		"-two",
		"+deux",
		" three",
		"@@ -5,2 +5,2 @@",
		"-five",
		"+cinq",
		" six",
	}, "\n")+"\n")

	fileMustBe(t, mfs, "f.txt", "x\ny\none\ndeux\nthree\nfour\ncinq\nsix\n")
	if res.Hunks[0].Line != 3 || res.Hunks[0].Offset != 2 {
		t.Fatalf("first hunk: %+v", res.Hunks[0])
	}
	if res.Hunks[1].Line != 7 || res.Hunks[1].Offset != 2 {
		t.Fatalf("second hunk: %+v", res.Hunks[1])
	}
	want := strings.Join([]string{
		"patching file f.txt",
		"Hunk #1 succeeded at 3 (offset 2 lines).",
		"Hunk #2 succeeded at 7 (offset 2 lines).",
	}, "\n") + "\n"
	if buf.String() != want {
		t.Fatalf("output = %q, want %q", buf.String(), want)
	}
}

func TestApplyWithFuzz(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	mfs.SetFile("f.txt", "ALPHA\ntwo\nthree\nfour\n")
	var buf bytes.Buffer
	opts := &Options{FileSystem: mfs, Reporter: NewReporter(&buf), MaxFuzz: 2}

	res := mustApply(t, opts, strings.Join([]string{
		"--- f.txt\tt",
		"+++ f.txt\tt",
		"@@ -1,4 +1,4 @@",
		" one",
		" two",
		"-three",
		"+trois",
		" four",
	}, "\n")+"\n")

	// The trimmed context stays as the file had it.
	fileMustBe(t, mfs, "f.txt", "ALPHA\ntwo\ntrois\nfour\n")
	if res.Hunks[0].Fuzz != 1 || res.Hunks[0].Offset != 0 || res.Hunks[0].Line != 1 {
		t.Fatalf("hunk result: %+v", res.Hunks[0])
	}
	want := "patching file f.txt\nHunk #1 succeeded at 1 with fuzz 1.\n"
	if buf.String() != want {
		t.Fatalf("output = %q, want %q", buf.String(), want)
	}
}

func TestApplyFailedHunkWritesReject(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	mfs.SetFile("f.txt", "alpha\nbeta\n")
	var buf bytes.Buffer
	opts := &Options{FileSystem: mfs, Reporter: NewReporter(&buf)}

	res := mustApply(t, opts, strings.Join([]string{
		"--- f.txt\tt",
		"+++ f.txt\tt",
		"@@ -1,1 +1,1 @@",
		"-alpha",
		"+ALPHA",
		"@@ -9,1 +9,1 @@",
		"-nope",
		"+NOPE",
	}, "\n")+"\n")

	// The good hunk still lands.
	fileMustBe(t, mfs, "f.txt", "ALPHA\nbeta\n")
	if res.Rejected != 1 || res.RejectPath != "f.txt.rej" {
		t.Fatalf("result: %+v", res)
	}
	if res.Hunks[1].Applied || res.Hunks[1].Line != 9 {
		t.Fatalf("failed hunk: %+v", res.Hunks[1])
	}
	want := strings.Join([]string{
		"patching file f.txt",
		"Hunk #2 FAILED at 9.",
		"1 out of 2 hunks FAILED -- saving rejects to file f.txt.rej",
	}, "\n") + "\n"
	if buf.String() != want {
		t.Fatalf("output = %q, want %q", buf.String(), want)
	}
	fileMustBe(t, mfs, "f.txt.rej", strings.Join([]string{
		"--- f.txt\tt",
		"+++ f.txt\tt",
		"@@ -9 +9 @@",
		"-nope",
		"+NOPE",
	}, "\n")+"\n")
}

func TestApplyMissingFileSkips(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	var buf bytes.Buffer
	opts := &Options{FileSystem: mfs, Reporter: NewReporter(&buf), Strip: -1}

	res := mustApply(t, opts, strings.Join([]string{
		"--- ghost.txt\tt",
		"+++ ghost.txt\tt",
		"@@ -1 +1 @@",
		"-x",
		"+y",
	}, "\n")+"\n")

	if !res.Skipped || res.Rejected != 1 {
		t.Fatalf("result: %+v", res)
	}
	want := strings.Join([]string{
		"can't find file to patch at input line 3",
		"Perhaps you should have used the -p or --strip option?",
		"The text leading up to this was:",
		"--------------------------",
		"|--- ghost.txt\tt",
		"|+++ ghost.txt\tt",
		"--------------------------",
		"Skipping patch.",
		"1 out of 1 hunk ignored -- saving rejects to file ghost.txt.rej",
	}, "\n") + "\n"
	if buf.String() != want {
		t.Fatalf("output = %q, want %q", buf.String(), want)
	}
	if _, ok := mfs.FileContent("ghost.txt.rej"); !ok {
		t.Fatalf("reject file not written")
	}
}

func TestApplyMissingFilePromptedPath(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	mfs.SetFile("real.txt", "x\n")
	prompter := &scriptedPrompter{paths: []string{"real.txt"}}
	opts := &Options{FileSystem: mfs, Prompter: prompter}

	res := mustApply(t, opts, strings.Join([]string{
		"--- ghost.txt\tt",
		"+++ ghost.txt\tt",
		"@@ -1 +1 @@",
		"-x",
		"+y",
	}, "\n")+"\n")

	if res.Path != "real.txt" || res.Skipped || res.Rejected != 0 {
		t.Fatalf("result: %+v", res)
	}
	fileMustBe(t, mfs, "real.txt", "y\n")
	if len(prompter.prompts) != 1 || prompter.prompts[0] != "File to patch: " {
		t.Fatalf("prompts: %q", prompter.prompts)
	}
}

func TestApplyCreateFile(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	var buf bytes.Buffer
	opts := &Options{FileSystem: mfs, Reporter: NewReporter(&buf)}

	res := mustApply(t, opts, strings.Join([]string{
		"--- /dev/null",
		"+++ created.txt",
		"@@ -0,0 +1,2 @@",
		"+hello",
		"+world",
	}, "\n")+"\n")

	fileMustBe(t, mfs, "created.txt", "hello\nworld\n")
	if res.Rejected != 0 || res.Hunks[0].Offset != 0 {
		t.Fatalf("result: %+v", res)
	}
	if buf.String() != "patching file created.txt\n" {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestApplyCreateOverExistingFile(t *testing.T) {
	t.Parallel()

	patchText := strings.Join([]string{
		"--- /dev/null",
		"+++ created.txt",
		"@@ -0,0 +1 @@",
		"+hello",
	}, "\n") + "\n"

	// Default prompter answers no.
	mfs := NewMemoryFileSystem()
	mfs.SetFile("created.txt", "something\n")
	var buf bytes.Buffer
	opts := &Options{FileSystem: mfs, Reporter: NewReporter(&buf)}
	res := mustApply(t, opts, patchText)
	if !res.Skipped {
		t.Fatalf("result: %+v", res)
	}
	fileMustBe(t, mfs, "created.txt", "something\n")
	want := strings.Join([]string{
		"The next patch would create the file created.txt,",
		"which already exists!",
		"Skipping patch.",
		"1 out of 1 hunk ignored -- saving rejects to file created.txt.rej",
	}, "\n") + "\n"
	if buf.String() != want {
		t.Fatalf("output = %q, want %q", buf.String(), want)
	}

	// -N treats it as an already applied patch.
	mfs = NewMemoryFileSystem()
	mfs.SetFile("created.txt", "something\n")
	buf.Reset()
	opts = &Options{FileSystem: mfs, Reporter: NewReporter(&buf), Forward: true}
	res = mustApply(t, opts, patchText)
	if !res.Skipped {
		t.Fatalf("result with -N: %+v", res)
	}
	if !strings.Contains(buf.String(), "Reversed (or previously applied) patch detected!  Skipping patch.\n") {
		t.Fatalf("missing -N message: %q", buf.String())
	}
}

func TestApplyDeleteFile(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	mfs.SetFile("gone.txt", "alpha\nbeta\n")
	var buf bytes.Buffer
	opts := &Options{FileSystem: mfs, Reporter: NewReporter(&buf)}

	res := mustApply(t, opts, strings.Join([]string{
		"--- gone.txt\tt",
		"+++ /dev/null\tt",
		"@@ -1,2 +0,0 @@",
		"-alpha",
		"-beta",
	}, "\n")+"\n")

	if !res.Deleted || res.Rejected != 0 {
		t.Fatalf("result: %+v", res)
	}
	if mfs.Exists("gone.txt") {
		t.Fatalf("file still present after deletion patch")
	}
	if buf.String() != "patching file gone.txt\n" {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestApplyDeleteLeavesResidue(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	mfs.SetFile("gone.txt", "alpha\nbeta\ngamma\n")
	var buf bytes.Buffer
	opts := &Options{FileSystem: mfs, Reporter: NewReporter(&buf)}

	res := mustApply(t, opts, strings.Join([]string{
		"--- gone.txt\tt",
		"+++ /dev/null\tt",
		"@@ -1,2 +0,0 @@",
		"-alpha",
		"-beta",
	}, "\n")+"\n")

	if res.Deleted {
		t.Fatalf("result: %+v", res)
	}
	fileMustBe(t, mfs, "gone.txt", "gamma\n")
	want := "patching file gone.txt\nNot deleting file gone.txt as content differs from patch\n"
	if buf.String() != want {
		t.Fatalf("output = %q, want %q", buf.String(), want)
	}
}

func TestApplyRenameWithoutHunks(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	mfs.SetFile("old.txt", "content\n")
	var buf bytes.Buffer
	opts := &Options{FileSystem: mfs, Reporter: NewReporter(&buf)}

	res := mustApply(t, opts, strings.Join([]string{
		"diff --git a/old.txt b/new.txt",
		"similarity index 100%",
		"rename from old.txt",
		"rename to new.txt",
	}, "\n")+"\n")

	if res.Path != "new.txt" {
		t.Fatalf("result: %+v", res)
	}
	if mfs.Exists("old.txt") {
		t.Fatalf("source still present after rename")
	}
	fileMustBe(t, mfs, "new.txt", "content\n")
	if buf.String() != "patching file new.txt (renamed from old.txt)\n" {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestApplyRenameWithHunks(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	mfs.SetFile("old.txt", "hello\n")
	var buf bytes.Buffer
	opts := &Options{FileSystem: mfs, Reporter: NewReporter(&buf)}

	mustApply(t, opts, strings.Join([]string{
		"diff --git a/old.txt b/new.txt",
		"similarity index 95%",
		"rename from old.txt",
		"rename to new.txt",
		"--- a/old.txt",
		"+++ b/new.txt",
		"@@ -1 +1 @@",
		"-hello",
		"+hello there",
	}, "\n")+"\n")

	if mfs.Exists("old.txt") {
		t.Fatalf("source still present after rename")
	}
	fileMustBe(t, mfs, "new.txt", "hello there\n")
	if buf.String() != "patching file new.txt (renamed from old.txt)\n" {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestApplyRenameAlreadyDone(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	mfs.SetFile("new.txt", "hello\n")
	var buf bytes.Buffer
	opts := &Options{FileSystem: mfs, Reporter: NewReporter(&buf)}

	mustApply(t, opts, strings.Join([]string{
		"diff --git a/old.txt b/new.txt",
		"rename from old.txt",
		"rename to new.txt",
		"--- a/old.txt",
		"+++ b/new.txt",
		"@@ -1 +1 @@",
		"-hello",
		"+goodbye",
	}, "\n")+"\n")

	fileMustBe(t, mfs, "new.txt", "goodbye\n")
	if buf.String() != "patching file new.txt\n" {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestApplyCopy(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	mfs.SetFile("base.txt", "shared\n")
	var buf bytes.Buffer
	opts := &Options{FileSystem: mfs, Reporter: NewReporter(&buf)}

	mustApply(t, opts, strings.Join([]string{
		"diff --git a/base.txt b/derived.txt",
		"copy from base.txt",
		"copy to derived.txt",
		"--- a/base.txt",
		"+++ b/derived.txt",
		"@@ -1 +1 @@",
		"-shared",
		"+derived",
	}, "\n")+"\n")

	fileMustBe(t, mfs, "base.txt", "shared\n")
	fileMustBe(t, mfs, "derived.txt", "derived\n")
	if buf.String() != "patching file derived.txt (copied from base.txt)\n" {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestApplyCopyWithoutHunks(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	mfs.SetFile("base.txt", "shared\n")
	opts := &Options{FileSystem: mfs}

	mustApply(t, opts, strings.Join([]string{
		"diff --git a/base.txt b/twin.txt",
		"similarity index 100%",
		"copy from base.txt",
		"copy to twin.txt",
	}, "\n")+"\n")

	fileMustBe(t, mfs, "base.txt", "shared\n")
	fileMustBe(t, mfs, "twin.txt", "shared\n")
}

func TestApplyReverseOption(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	mfs.SetFile("f.txt", "one\ndeux\nthree\n")
	opts := &Options{FileSystem: mfs, Reverse: true}

	res := mustApply(t, opts, strings.Join([]string{
		"--- f.txt\tt",
		"+++ f.txt\tt",
		"@@ -1,3 +1,3 @@",
		" one",
		"-two",
		"+deux",
		" three",
	}, "\n")+"\n")

	fileMustBe(t, mfs, "f.txt", "one\ntwo\nthree\n")
	if res.Rejected != 0 {
		t.Fatalf("result: %+v", res)
	}
}

func TestApplyReversedDetection(t *testing.T) {
	t.Parallel()

	patchText := strings.Join([]string{
		"--- f.txt\tt",
		"+++ f.txt\tt",
		"@@ -1,3 +1,3 @@",
		" one",
		"-two",
		"+deux",
		" three",
	}, "\n") + "\n"
	applied := "one\ndeux\nthree\n"

	t.Run("interactive assume", func(t *testing.T) {
		t.Parallel()
		mfs := NewMemoryFileSystem()
		mfs.SetFile("f.txt", applied)
		prompter := &scriptedPrompter{answers: []bool{true}}
		opts := &Options{FileSystem: mfs, Prompter: prompter}
		res := mustApply(t, opts, patchText)
		fileMustBe(t, mfs, "f.txt", "one\ntwo\nthree\n")
		if res.Rejected != 0 {
			t.Fatalf("result: %+v", res)
		}
		if len(prompter.prompts) != 1 ||
			prompter.prompts[0] != "Reversed (or previously applied) patch detected!  Assume -R? [n] " {
			t.Fatalf("prompts: %q", prompter.prompts)
		}
	})

	t.Run("interactive decline both", func(t *testing.T) {
		t.Parallel()
		mfs := NewMemoryFileSystem()
		mfs.SetFile("f.txt", applied)
		prompter := &scriptedPrompter{answers: []bool{false, false}}
		var buf bytes.Buffer
		opts := &Options{FileSystem: mfs, Prompter: prompter, Reporter: NewReporter(&buf)}
		res := mustApply(t, opts, patchText)
		fileMustBe(t, mfs, "f.txt", applied)
		if !res.Skipped {
			t.Fatalf("result: %+v", res)
		}
		if len(prompter.prompts) != 2 || prompter.prompts[1] != "Apply anyway? [n] " {
			t.Fatalf("prompts: %q", prompter.prompts)
		}
	})

	t.Run("batch assumes reverse", func(t *testing.T) {
		t.Parallel()
		mfs := NewMemoryFileSystem()
		mfs.SetFile("f.txt", applied)
		var buf bytes.Buffer
		opts := &Options{FileSystem: mfs, Batch: true, Reporter: NewReporter(&buf)}
		mustApply(t, opts, patchText)
		fileMustBe(t, mfs, "f.txt", "one\ntwo\nthree\n")
		want := "patching file f.txt\nReversed (or previously applied) patch detected!  Assuming -R.\n"
		if buf.String() != want {
			t.Fatalf("output = %q, want %q", buf.String(), want)
		}
	})

	t.Run("forward skips", func(t *testing.T) {
		t.Parallel()
		mfs := NewMemoryFileSystem()
		mfs.SetFile("f.txt", applied)
		var buf bytes.Buffer
		opts := &Options{FileSystem: mfs, Forward: true, Reporter: NewReporter(&buf)}
		res := mustApply(t, opts, patchText)
		fileMustBe(t, mfs, "f.txt", applied)
		if !res.Skipped || res.Rejected != 1 {
			t.Fatalf("result: %+v", res)
		}
		want := strings.Join([]string{
			"patching file f.txt",
			"Reversed (or previously applied) patch detected!  Skipping patch.",
			"1 out of 1 hunk ignored -- saving rejects to file f.txt.rej",
		}, "\n") + "\n"
		if buf.String() != want {
			t.Fatalf("output = %q, want %q", buf.String(), want)
		}
	})
}

func TestApplyDryRunTouchesNothing(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	mfs.SetFile("f.txt", "alpha\nbeta\n")
	var buf bytes.Buffer
	opts := &Options{FileSystem: mfs, Reporter: NewReporter(&buf), DryRun: true}

	res := mustApply(t, opts, strings.Join([]string{
		"--- f.txt\tt",
		"+++ f.txt\tt",
		"@@ -1 +1 @@",
		"-alpha",
		"+ALPHA",
		"@@ -9 +9 @@",
		"-nope",
		"+NOPE",
	}, "\n")+"\n")

	fileMustBe(t, mfs, "f.txt", "alpha\nbeta\n")
	if mfs.Exists("f.txt.rej") {
		t.Fatalf("dry run wrote a reject file")
	}
	if res.Rejected != 1 || res.RejectPath != "f.txt.rej" {
		t.Fatalf("result: %+v", res)
	}
	want := strings.Join([]string{
		"checking file f.txt",
		"Hunk #2 FAILED at 9.",
		"1 out of 2 hunks FAILED -- saving rejects to file f.txt.rej",
	}, "\n") + "\n"
	if buf.String() != want {
		t.Fatalf("output = %q, want %q", buf.String(), want)
	}
}

func TestApplyBackup(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	mfs.SetFile("f.txt", "old\n")
	opts := &Options{FileSystem: mfs, Backup: true}

	mustApply(t, opts, "--- f.txt\n+++ f.txt\n@@ -1 +1 @@\n-old\n+new\n")

	fileMustBe(t, mfs, "f.txt", "new\n")
	fileMustBe(t, mfs, "f.txt.orig", "old\n")
}

func TestApplyOutputFile(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	mfs.SetFile("f.txt", "old\n")
	var buf bytes.Buffer
	opts := &Options{FileSystem: mfs, Reporter: NewReporter(&buf), OutputFile: "out.txt"}

	mustApply(t, opts, "--- f.txt\n+++ f.txt\n@@ -1 +1 @@\n-old\n+new\n")

	fileMustBe(t, mfs, "f.txt", "old\n")
	fileMustBe(t, mfs, "out.txt", "new\n")
	if buf.String() != "patching file out.txt (read from f.txt)\n" {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestApplyRemoveEmptyFiles(t *testing.T) {
	t.Parallel()

	patchText := "--- f.txt\n+++ f.txt\n@@ -1,2 +0,0 @@\n-a\n-b\n"

	mfs := NewMemoryFileSystem()
	mfs.SetFile("f.txt", "a\nb\n")
	opts := &Options{FileSystem: mfs}
	mustApply(t, opts, patchText)
	fileMustBe(t, mfs, "f.txt", "")

	mfs = NewMemoryFileSystem()
	mfs.SetFile("f.txt", "a\nb\n")
	opts = &Options{FileSystem: mfs, RemoveEmptyFiles: true}
	res := mustApply(t, opts, patchText)
	if !res.Deleted || mfs.Exists("f.txt") {
		t.Fatalf("-E should remove the emptied file: %+v", res)
	}
}

func TestApplyFinalNewlineTransitions(t *testing.T) {
	t.Parallel()

	// The patch grants the missing final newline.
	mfs := NewMemoryFileSystem()
	mfs.SetFile("f.txt", "a\nb")
	opts := &Options{FileSystem: mfs}
	mustApply(t, opts, strings.Join([]string{
		"--- f.txt",
		"+++ f.txt",
		"@@ -2 +2 @@",
		"-b",
		"\\ No newline at end of file",
		"+b",
	}, "\n")+"\n")
	fileMustBe(t, mfs, "f.txt", "a\nb\n")

	// The patch takes the final newline away.
	mfs = NewMemoryFileSystem()
	mfs.SetFile("f.txt", "a\nb\n")
	opts = &Options{FileSystem: mfs}
	mustApply(t, opts, strings.Join([]string{
		"--- f.txt",
		"+++ f.txt",
		"@@ -2 +2 @@",
		"-b",
		"+b",
		"\\ No newline at end of file",
	}, "\n")+"\n")
	fileMustBe(t, mfs, "f.txt", "a\nb")
}

func TestApplyNewlineMarkerMustAgree(t *testing.T) {
	t.Parallel()

	// The patch says the old file had no final newline; this one does.
	mfs := NewMemoryFileSystem()
	mfs.SetFile("f.txt", "a\nb\n")
	opts := &Options{FileSystem: mfs}

	res := mustApply(t, opts, strings.Join([]string{
		"--- f.txt",
		"+++ f.txt",
		"@@ -2 +2 @@",
		"-b",
		"\\ No newline at end of file",
		"+c",
	}, "\n")+"\n")

	if res.Rejected != 1 {
		t.Fatalf("disagreeing newline state should reject the hunk: %+v", res)
	}
	fileMustBe(t, mfs, "f.txt", "a\nb\n")
}

func TestApplyPrereq(t *testing.T) {
	t.Parallel()

	patchText := strings.Join([]string{
		"Prereq: 2.0.1",
		"--- version.c\tt",
		"+++ version.c\tt",
		"@@ -1 +1 @@",
		"-char const version[] = \"2.0.2\";",
		"+char const version[] = \"2.0.3\";",
	}, "\n") + "\n"
	content := "char const version[] = \"2.0.2\";\n"

	t.Run("mismatch skips by default", func(t *testing.T) {
		t.Parallel()
		mfs := NewMemoryFileSystem()
		mfs.SetFile("version.c", content)
		prompter := &scriptedPrompter{}
		var buf bytes.Buffer
		opts := &Options{FileSystem: mfs, Prompter: prompter, Reporter: NewReporter(&buf)}
		res := mustApply(t, opts, patchText)
		if !res.Skipped {
			t.Fatalf("result: %+v", res)
		}
		fileMustBe(t, mfs, "version.c", content)
		if len(prompter.prompts) != 1 ||
			prompter.prompts[0] != "This file doesn't appear to be the 2.0.1 version--patch anyway? [n] " {
			t.Fatalf("prompts: %q", prompter.prompts)
		}
	})

	t.Run("force pushes on", func(t *testing.T) {
		t.Parallel()
		mfs := NewMemoryFileSystem()
		mfs.SetFile("version.c", content)
		var buf bytes.Buffer
		opts := &Options{FileSystem: mfs, Force: true, Reporter: NewReporter(&buf)}
		res := mustApply(t, opts, patchText)
		if res.Skipped || res.Rejected != 0 {
			t.Fatalf("result: %+v", res)
		}
		fileMustBe(t, mfs, "version.c", "char const version[] = \"2.0.3\";\n")
		if !strings.Contains(buf.String(), "This file doesn't appear to be the 2.0.1 version--patching anyway.\n") {
			t.Fatalf("output = %q", buf.String())
		}
	})

	t.Run("batch skips", func(t *testing.T) {
		t.Parallel()
		mfs := NewMemoryFileSystem()
		mfs.SetFile("version.c", content)
		opts := &Options{FileSystem: mfs, Batch: true}
		res := mustApply(t, opts, patchText)
		if !res.Skipped {
			t.Fatalf("result: %+v", res)
		}
	})

	t.Run("match anywhere passes silently", func(t *testing.T) {
		t.Parallel()
		mfs := NewMemoryFileSystem()
		mfs.SetFile("version.c", "char const version[] = \"2.0.2\";\n/* revision 2.0.1 */\n")
		var buf bytes.Buffer
		opts := &Options{FileSystem: mfs, Reporter: NewReporter(&buf)}
		res := mustApply(t, opts, patchText)
		if res.Skipped || res.Rejected != 0 {
			t.Fatalf("result: %+v", res)
		}
		if strings.Contains(buf.String(), "version--") {
			t.Fatalf("unexpected prerequisite chatter: %q", buf.String())
		}
	})
}

func TestApplyIgnoreWhitespace(t *testing.T) {
	t.Parallel()

	patchText := "--- f.txt\n+++ f.txt\n@@ -1 +1 @@\n-one   tab\n+two\n"

	mfs := NewMemoryFileSystem()
	mfs.SetFile("f.txt", "one\ttab\n")
	opts := &Options{FileSystem: mfs}
	res := mustApply(t, opts, patchText)
	if res.Rejected != 1 {
		t.Fatalf("strict match should reject: %+v", res)
	}

	mfs = NewMemoryFileSystem()
	mfs.SetFile("f.txt", "one\ttab\n")
	opts = &Options{FileSystem: mfs, IgnoreWhitespace: true}
	res = mustApply(t, opts, patchText)
	if res.Rejected != 0 {
		t.Fatalf("loose match should apply: %+v", res)
	}
	fileMustBe(t, mfs, "f.txt", "two\n")
}

func TestApplyNormalPatchViaIndex(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	mfs.SetFile("notes.txt", "one\ntwo\nthree\n")
	var buf bytes.Buffer
	opts := &Options{FileSystem: mfs, Reporter: NewReporter(&buf)}

	res := mustApply(t, opts, strings.Join([]string{
		"Index: notes.txt",
		"2c2",
		"< two",
		"---",
		"> deux",
	}, "\n")+"\n")

	fileMustBe(t, mfs, "notes.txt", "one\ndeux\nthree\n")
	if res.Path != "notes.txt" || res.Rejected != 0 {
		t.Fatalf("result: %+v", res)
	}
	if buf.String() != "patching file notes.txt\n" {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestApplyTargetFileOverride(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	mfs.SetFile("elsewhere.txt", "old\n")
	opts := &Options{FileSystem: mfs, TargetFile: "elsewhere.txt"}

	res := mustApply(t, opts, "--- f.txt\n+++ f.txt\n@@ -1 +1 @@\n-old\n+new\n")

	if res.Path != "elsewhere.txt" {
		t.Fatalf("result: %+v", res)
	}
	fileMustBe(t, mfs, "elsewhere.txt", "new\n")
}

func TestApplyBinaryPatchRefused(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	opts := &Options{FileSystem: mfs, Strip: 1}
	p := parseOne(t, strings.Join([]string{
		"diff --git a/img.bin b/img.bin",
		"index 1234567..89abcde 100644",
		"GIT binary patch",
		"delta 25",
		"xcmZo@U9+Y@:G7,B&)Sn{qvY#I",
	}, "\n")+"\n", opts)

	a, err := NewApplier(opts)
	if err != nil {
		t.Fatalf("NewApplier: %v", err)
	}
	_, err = a.Apply(context.Background(), p)
	if KindOf(err) != ErrUnsupportedBinary || !IsFatal(err) {
		t.Fatalf("error = %v", err)
	}
	if err.Error() != "File img.bin: git binary diffs are not supported." {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestApplyGuards(t *testing.T) {
	t.Parallel()

	opts := &Options{FileSystem: NewMemoryFileSystem()}
	a, err := NewApplier(opts)
	if err != nil {
		t.Fatalf("NewApplier: %v", err)
	}

	if _, err := a.Apply(context.Background(), nil); KindOf(err) != ErrInvalidConfiguration {
		t.Fatalf("nil patch error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := parseOne(t, "--- f\n+++ f\n@@ -1 +1 @@\n-x\n+y\n", opts)
	if _, err := a.Apply(ctx, p); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled context error = %v", err)
	}
}

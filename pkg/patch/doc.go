// Package patch parses and applies patches in the four classic diff
// dialects: unified, context, normal and git extended.
//
// A Parser reads a patch stream and yields one Patch per file, detecting
// the dialect from the headers the way patch(1) does. An Applier takes a
// parsed Patch to a FileSystem, searching for each hunk near its stated
// position and falling back to fuzzy context matching before giving up and
// writing a reject file. Both sides speak through small interfaces, so the
// package embeds cleanly in tools that patch in-memory trees or need to
// script the interactive questions.
package patch

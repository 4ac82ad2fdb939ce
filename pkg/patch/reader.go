package patch

import (
	"bufio"
	"io"
	"strings"
)

// scannedLine is one input line plus where it sat in the stream.
type scannedLine struct {
	text       string
	offset     int64
	number     int
	terminated bool
}

// lineReader hands out input lines one at a time with pushback, which is how
// the detector retries lines that turn out to belong to a hunk body. Lines
// split on '\n' only; carriage returns stay in the text so CRLF patches
// round-trip byte for byte.
type lineReader struct {
	br     *bufio.Reader
	offset int64
	number int
	pushed []scannedLine
	err    error
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{br: bufio.NewReader(r)}
}

// next returns the following line. ok is false once the input is exhausted
// or the stream failed; readErr distinguishes the two.
func (lr *lineReader) next() (scannedLine, bool) {
	if n := len(lr.pushed); n > 0 {
		ln := lr.pushed[n-1]
		lr.pushed = lr.pushed[:n-1]
		return ln, true
	}
	if lr.err != nil {
		return scannedLine{}, false
	}
	text, err := lr.br.ReadString('\n')
	if err != nil {
		lr.err = err
	}
	if text == "" {
		return scannedLine{}, false
	}
	ln := scannedLine{
		offset:     lr.offset,
		number:     lr.number + 1,
		terminated: strings.HasSuffix(text, "\n"),
	}
	ln.text = strings.TrimSuffix(text, "\n")
	lr.offset += int64(len(text))
	lr.number++
	return ln, true
}

// unread pushes ln back so the next call to next returns it again.
func (lr *lineReader) unread(ln scannedLine) {
	lr.pushed = append(lr.pushed, ln)
}

// peek returns the upcoming line without consuming it.
func (lr *lineReader) peek() (scannedLine, bool) {
	ln, ok := lr.next()
	if ok {
		lr.unread(ln)
	}
	return ln, ok
}

// pos is the byte offset of the next line next would produce.
func (lr *lineReader) pos() int64 {
	if n := len(lr.pushed); n > 0 {
		return lr.pushed[n-1].offset
	}
	return lr.offset
}

// lineNumber is the 1-based number of the next line next would produce.
func (lr *lineReader) lineNumber() int {
	if n := len(lr.pushed); n > 0 {
		return lr.pushed[n-1].number
	}
	return lr.number + 1
}

// readErr reports a stream failure other than normal end of input.
func (lr *lineReader) readErr() error {
	if lr.err == io.EOF {
		return nil
	}
	return lr.err
}

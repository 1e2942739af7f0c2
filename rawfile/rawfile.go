// Package rawfile reads raw-mode input files: newline-delimited entries
// where each non-comment line is one command to forward to the device
// verbatim.
package rawfile

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Entry is one forwardable line of a raw input file.
type Entry struct {
	// Line is the entry text, trimmed, exactly as it will be sent.
	Line string
	// Number is the 1-based line number in the source file, for
	// diagnostics.
	Number int
}

// Read parses raw input from r. Blank lines and lines starting with '#'
// are skipped; everything else is forwarded untouched, in order.
func Read(r io.Reader) ([]Entry, error) {
	var entries []Entry

	sc := bufio.NewScanner(r)
	num := 0
	for sc.Scan() {
		num++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, Entry{Line: line, Number: num})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("rawfile: read: %w", err)
	}
	return entries, nil
}

// Source re-renders entries as an input stream, one line per entry.
func Source(entries []Entry) io.Reader {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Line)
		b.WriteByte('\n')
	}
	return strings.NewReader(b.String())
}

// ResultPath returns the sibling path a raw session's responses are
// written to: the input path with its extension replaced by ".result".
func ResultPath(inputPath string) string {
	if i := strings.LastIndexByte(inputPath, '.'); i > strings.LastIndexByte(inputPath, '/') {
		return inputPath[:i] + ".result"
	}
	return inputPath + ".result"
}

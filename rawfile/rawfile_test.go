package rawfile

import (
	"io"
	"strings"
	"testing"
)

func TestReadSkipsCommentsAndBlanks(t *testing.T) {
	input := `# benchmark session
{"type":"ping"}

  # indented comment
{"type":"run","id":1,"iterations":10}
   {"type":"list"}
`

	entries, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	want := []Entry{
		{Line: `{"type":"ping"}`, Number: 2},
		{Line: `{"type":"run","id":1,"iterations":10}`, Number: 5},
		{Line: `{"type":"list"}`, Number: 6},
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries %v, want %d", len(entries), entries, len(want))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestReadEmpty(t *testing.T) {
	entries, err := Read(strings.NewReader("# only comments\n\n"))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
}

func TestSourceRoundTrip(t *testing.T) {
	entries := []Entry{
		{Line: "PING", Number: 1},
		{Line: "RUN 3 10", Number: 2},
	}

	b, err := io.ReadAll(Source(entries))
	if err != nil {
		t.Fatalf("read source: %v", err)
	}
	if string(b) != "PING\nRUN 3 10\n" {
		t.Errorf("source = %q", b)
	}

	again, err := Read(Source(entries))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(again) != 2 || again[0].Line != "PING" || again[1].Line != "RUN 3 10" {
		t.Errorf("round trip = %+v", again)
	}
}

func TestResultPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"session.bench", "session.result"},
		{"dir/session.bench", "dir/session.result"},
		{"noext", "noext.result"},
		{"dir.d/noext", "dir.d/noext.result"},
	}

	for _, tt := range tests {
		if got := ResultPath(tt.in); got != tt.want {
			t.Errorf("ResultPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

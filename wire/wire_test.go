package wire

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"testing"
)

func TestCommandRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
	}{
		{"ping", Ping{}},
		{"list", ListBenchmarks{}},
		{"run", RunBenchmark{ID: 3, Iterations: 10}},
		{"run_capture", RunBenchmark{ID: 7, Iterations: 1, Capture: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := EncodeCommand(tt.cmd)
			if err != nil {
				t.Fatalf("EncodeCommand failed: %v", err)
			}
			if frame[len(frame)-1] != '\n' {
				t.Error("frame is not newline-terminated")
			}

			got, err := DecodeCommand(bytes.TrimRight(frame, "\n"))
			if err != nil {
				t.Fatalf("DecodeCommand failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.cmd) {
				t.Errorf("round trip = %#v, want %#v", got, tt.cmd)
			}
		})
	}
}

func TestResponseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		resp Response
	}{
		{"ack", Ack{}},
		{"list", BenchmarkList{Benchmarks: []BenchmarkEntry{
			{ID: 1, Name: "sha256-digest", DefaultIterations: 16},
			{ID: 2, Name: "aes128-encrypt-block", DefaultIterations: 64},
		}}},
		{"result", BenchmarkResult{
			ID:         1,
			Iterations: 4,
			Cycles:     CycleAggregate{Count: 4, Total: 400, Min: 90, Max: 120},
		}},
		{"result_samples", BenchmarkResult{
			ID:         2,
			Iterations: 3,
			Cycles:     CycleAggregate{Count: 3, Total: 30, Min: 10, Max: 10},
			Samples:    []uint64{10, 10, 10},
		}},
		{"error", Error{Code: CodeUnknownID, Detail: "no benchmark 9999"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := EncodeResponse(tt.resp)
			if err != nil {
				t.Fatalf("EncodeResponse failed: %v", err)
			}

			got, err := DecodeResponse(bytes.TrimRight(frame, "\n"))
			if err != nil {
				t.Fatalf("DecodeResponse failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.resp) {
				t.Errorf("round trip = %#v, want %#v", got, tt.resp)
			}
		})
	}
}

func TestRawEncodesVerbatim(t *testing.T) {
	frame, err := EncodeCommand(Raw{Data: `{"type":"ping"}`})
	if err != nil {
		t.Fatalf("EncodeCommand failed: %v", err)
	}
	if string(frame) != "{\"type\":\"ping\"}\n" {
		t.Errorf("raw frame = %q, want payload + newline", frame)
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"not_json", "PING"},
		{"truncated", `{"type":"run","id":`},
		{"missing_tag", `{"id":3}`},
		{"wrong_field_type", `{"type":"run","id":"three"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCommand([]byte(tt.frame))
			var fe *FramingError
			if !errors.As(err, &fe) {
				t.Fatalf("err = %v, want *FramingError", err)
			}
		})
	}
}

func TestDecodeUnknownTag(t *testing.T) {
	_, err := DecodeCommand([]byte(`{"type":"selftest"}`))
	var ute *UnknownTagError
	if !errors.As(err, &ute) {
		t.Fatalf("err = %v, want *UnknownTagError", err)
	}
	if ute.Tag != "selftest" {
		t.Errorf("tag = %q, want selftest", ute.Tag)
	}

	_, err = DecodeResponse([]byte(`{"type":"telemetry"}`))
	if !errors.As(err, &ute) {
		t.Fatalf("response err = %v, want *UnknownTagError", err)
	}
}

// chunkReader delivers its content in fixed-size chunks to exercise
// incremental decoding as bytes trickle in.
type chunkReader struct {
	data  []byte
	chunk int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := c.chunk
	if n > len(c.data) {
		n = len(c.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}

func TestReaderIncremental(t *testing.T) {
	payload := "{\"type\":\"ping\"}\r\n\n{\"type\":\"run\",\"id\":3,\"iterations\":10}\n"

	for _, chunk := range []int{1, 2, 7} {
		r := NewReader(&chunkReader{data: []byte(payload), chunk: chunk})

		first, err := r.ReadFrame()
		if err != nil {
			t.Fatalf("chunk %d: first frame: %v", chunk, err)
		}
		if string(first) != `{"type":"ping"}` {
			t.Errorf("chunk %d: first frame = %q", chunk, first)
		}

		second, err := r.ReadFrame()
		if err != nil {
			t.Fatalf("chunk %d: second frame: %v", chunk, err)
		}
		cmd, err := DecodeCommand(second)
		if err != nil {
			t.Fatalf("chunk %d: decode second frame: %v", chunk, err)
		}
		run, ok := cmd.(RunBenchmark)
		if !ok || run.ID != 3 || run.Iterations != 10 {
			t.Errorf("chunk %d: second frame = %#v", chunk, cmd)
		}

		if _, err := r.ReadFrame(); err != io.EOF {
			t.Errorf("chunk %d: trailing read err = %v, want EOF", chunk, err)
		}
	}
}

func TestReaderTruncatedStream(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte(`{"type":"ping"`)))

	_, err := r.ReadFrame()
	var fe *FramingError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FramingError for mid-frame EOF", err)
	}
}

package wire

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Frame delimiter. A frame is everything up to and excluding the newline.
const frameDelim = '\n'

type pingFrame struct {
	Type string `json:"type"`
}

type runFrame struct {
	Type string `json:"type"`
	RunBenchmark
}

type listFrame struct {
	Type string `json:"type"`
	BenchmarkList
}

type resultFrame struct {
	Type string `json:"type"`
	BenchmarkResult
}

type errorFrame struct {
	Type string `json:"type"`
	Error
}

// EncodeCommand renders a Command as one newline-terminated frame.
// Encoding is total over the variant set; only a Command type outside
// the vocabulary fails.
func EncodeCommand(cmd Command) ([]byte, error) {
	switch c := cmd.(type) {
	case Ping:
		return marshalFrame(pingFrame{Type: c.commandTag()})
	case ListBenchmarks:
		return marshalFrame(pingFrame{Type: c.commandTag()})
	case RunBenchmark:
		return marshalFrame(runFrame{Type: c.commandTag(), RunBenchmark: c})
	case Raw:
		// Verbatim passthrough; the payload is the frame.
		return append([]byte(c.Data), frameDelim), nil
	default:
		return nil, fmt.Errorf("wire: cannot encode command %T", cmd)
	}
}

// EncodeResponse renders a Response as one newline-terminated frame.
func EncodeResponse(resp Response) ([]byte, error) {
	switch r := resp.(type) {
	case Ack:
		return marshalFrame(pingFrame{Type: r.responseTag()})
	case BenchmarkList:
		return marshalFrame(listFrame{Type: r.responseTag(), BenchmarkList: r})
	case BenchmarkResult:
		return marshalFrame(resultFrame{Type: r.responseTag(), BenchmarkResult: r})
	case Error:
		return marshalFrame(errorFrame{Type: r.responseTag(), Error: r})
	default:
		return nil, fmt.Errorf("wire: cannot encode response %T", resp)
	}
}

func marshalFrame(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal frame: %w", err)
	}
	return append(b, frameDelim), nil
}

// DecodeCommand parses one frame (without its newline) into a Command.
// A malformed frame yields *FramingError, an unrecognized tag
// *UnknownTagError; a partial match is never returned silently.
func DecodeCommand(frame []byte) (Command, error) {
	tag, err := frameTag(frame)
	if err != nil {
		return nil, err
	}

	switch tag {
	case "ping":
		return Ping{}, nil
	case "list":
		return ListBenchmarks{}, nil
	case "run":
		var f runFrame
		if err := json.Unmarshal(frame, &f); err != nil {
			return nil, &FramingError{Line: string(frame), Reason: err.Error()}
		}
		return f.RunBenchmark, nil
	default:
		return nil, &UnknownTagError{Tag: tag}
	}
}

// DecodeResponse parses one frame (without its newline) into a Response.
func DecodeResponse(frame []byte) (Response, error) {
	tag, err := frameTag(frame)
	if err != nil {
		return nil, err
	}

	switch tag {
	case "ack":
		return Ack{}, nil
	case "list":
		var f listFrame
		if err := json.Unmarshal(frame, &f); err != nil {
			return nil, &FramingError{Line: string(frame), Reason: err.Error()}
		}
		return f.BenchmarkList, nil
	case "result":
		var f resultFrame
		if err := json.Unmarshal(frame, &f); err != nil {
			return nil, &FramingError{Line: string(frame), Reason: err.Error()}
		}
		return f.BenchmarkResult, nil
	case "error":
		var f errorFrame
		if err := json.Unmarshal(frame, &f); err != nil {
			return nil, &FramingError{Line: string(frame), Reason: err.Error()}
		}
		return f.Error, nil
	default:
		return nil, &UnknownTagError{Tag: tag}
	}
}

func frameTag(frame []byte) (string, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(frame, &env); err != nil {
		return "", &FramingError{Line: string(frame), Reason: err.Error()}
	}
	if env.Type == "" {
		return "", &FramingError{Line: string(frame), Reason: "missing type tag"}
	}
	return env.Type, nil
}

// Reader assembles frames from a byte stream incrementally, as bytes
// trickle in. It owns buffering for the underlying reader; do not read
// from the stream around it.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps r for frame-at-a-time reading.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReader(r)}
}

// ReadFrame blocks until one complete frame arrives and returns it
// without the delimiter. Carriage returns are stripped and empty lines
// skipped, since serial endpoints may insert either. A stream that ends
// mid-frame yields *FramingError wrapping io.ErrUnexpectedEOF semantics.
func (r *Reader) ReadFrame() ([]byte, error) {
	for {
		line, err := r.br.ReadBytes(frameDelim)
		if err != nil {
			if err == io.EOF && len(bytes.TrimSpace(line)) > 0 {
				return nil, &FramingError{
					Line:   string(line),
					Reason: "stream ended mid-frame",
				}
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			continue
		}
		return line, nil
	}
}

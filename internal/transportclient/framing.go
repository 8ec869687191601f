package transportclient

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mcp-fleet/gateway/internal/catalog"
	"github.com/mcp-fleet/gateway/internal/port"
)

// Decode parses raw upstream response bytes into an Envelope according to
// the upstream's configured framing. This is the only place framing
// variance is expressed, so adding a new transport means extending the
// enum and this function - the router stays framing-agnostic.
func Decode(raw []byte, framing catalog.Framing) (*port.Envelope, error) {
	switch framing {
	case catalog.FramingSSE:
		return decodeSSE(raw)
	case catalog.FramingJSON, "":
		return decodeJSON(raw)
	default:
		return nil, fmt.Errorf("unknown framing %q", framing)
	}
}

func decodeJSON(raw []byte) (*port.Envelope, error) {
	var env port.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode json body: %w", err)
	}
	return &env, nil
}

// decodeSSE scans an SSE body for "data: " lines and returns the first one
// whose remainder parses as a JSON object; data lines that fail to parse are
// skipped. Lines that don't start with "data: " (event names, comments,
// blanks) are ignored.
func decodeSSE(raw []byte) (*port.Envelope, error) {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		const prefix = "data: "
		if len(line) < len(prefix) || line[:len(prefix)] != prefix {
			continue
		}
		payload := line[len(prefix):]
		var env port.Envelope
		if err := json.Unmarshal([]byte(payload), &env); err != nil {
			continue
		}
		return &env, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan sse body: %w", err)
	}
	return nil, fmt.Errorf("no parseable data: line in SSE body")
}

package tts

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Request message types sent to a worker.
const (
	typeSynthesize = "synthesize"
	typeShutdown   = "shutdown"
)

// Response message types received from a worker.
const (
	typeReady = "ready"
	typeDone  = "done"
	typeError = "error"
)

// request is an outbound worker message.
type request struct {
	Type   string `json:"type"`
	ID     uint64 `json:"id,omitempty"`
	Text   string `json:"text,omitempty"`
	Output string `json:"output,omitempty"`
}

// response is an inbound worker message.
type response struct {
	Type     string  `json:"type"`
	ID       uint64  `json:"id,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Message  string  `json:"message,omitempty"`
}

// decodeResponse parses and validates one worker protocol line. Unknown or
// malformed messages are protocol errors; a worker that emits them is broken
// and its pool slot is retired.
func decodeResponse(line []byte) (response, error) {
	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		return response{}, fmt.Errorf("tts protocol: malformed message %q: %w", truncate(string(line)), err)
	}
	switch resp.Type {
	case typeReady:
		return resp, nil
	case typeDone:
		if resp.ID == 0 {
			return response{}, fmt.Errorf("tts protocol: done message missing job id")
		}
		return resp, nil
	case typeError:
		if resp.ID == 0 {
			return response{}, fmt.Errorf("tts protocol: error message missing job id")
		}
		return resp, nil
	default:
		return response{}, fmt.Errorf("tts protocol: unknown message type %q", resp.Type)
	}
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}

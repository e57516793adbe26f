package serve

import (
	"encoding/json"

	"github.com/praetorian-inc/almanac/pkg/types"
)

// Request represents an incoming NDJSON request
type Request struct {
	Type    string          `json:"type"` // "lookup" | "resolve" | "solve" | "runs" | "close"
	Payload json.RawMessage `json:"payload"`
}

// LookupPayload is the payload for "lookup" requests
type LookupPayload struct {
	Values []uint64 `json:"values"`
}

// ResolvePayload is the payload for "resolve" requests
type ResolvePayload struct {
	Ranges []types.Interval `json:"ranges"`
}

// Response represents an outgoing NDJSON response
type Response struct {
	Success bool            `json:"success"`
	Type    string          `json:"type"` // "ready" | "lookup" | "resolve" | "solve" | "runs" | "decode" | "unknown"
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ReadyData is the data field for "ready" responses
type ReadyData struct {
	Version string   `json:"version"`
	Almanac string   `json:"almanac"`
	Stages  []string `json:"stages"`
}

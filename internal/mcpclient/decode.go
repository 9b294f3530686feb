package mcpclient

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mixtape-sh/mixtape/internal/mcp"
	"github.com/mixtape-sh/mixtape/internal/shared"
)

const (
	sseDataPrefix = "data: "
	sseDoneMarker = "[DONE]"

	// diagnosticLimit bounds how much of an unparseable body is echoed in errors.
	diagnosticLimit = 200
)

// DecodeEnvelope normalizes a raw response body into a JSON-RPC envelope.
//
// The body is parsed directly as JSON first. When that fails, it is treated as
// an event stream: the payloads of every `data: ` line are concatenated
// (skipping the [DONE] sentinel) and the concatenation is parsed instead.
// Bodies that fit neither shape fail with [shared.ErrUnparseableResponse].
func DecodeEnvelope(body []byte) (*mcp.Response, error) {
	var envelope mcp.Response
	if err := json.Unmarshal(body, &envelope); err == nil {
		return &envelope, nil
	}

	payload := extractEventData(string(body))
	if payload == "" {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnparseableResponse, truncate(string(body), diagnosticLimit))
	}

	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnparseableResponse, truncate(string(body), diagnosticLimit))
	}

	return &envelope, nil
}

// extractEventData concatenates the payloads of every `data: ` line in body.
func extractEventData(body string) string {
	var b strings.Builder

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if !strings.HasPrefix(line, sseDataPrefix) {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, sseDataPrefix))
		if payload == sseDoneMarker {
			continue
		}

		b.WriteString(payload)
	}

	return b.String()
}

// truncate shortens s to at most n characters for diagnostics.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultThrottleMargin is added to the server's wait hint before retrying.
const DefaultThrottleMargin = 5 * time.Millisecond

const throttleToken = "throttled"

// maxThrottleHint caps the server's wait hint. Larger values would overflow
// time.Duration.
const maxThrottleHint = 24 * time.Hour

// throttleEnvelope is the structured error body the API returns when it
// rejects a request for exceeding its rate limit.
type throttleEnvelope struct {
	Detail *string `json:"detail"`
}

// parseThrottle decodes a throttle signal from a response body. Only a JSON
// object whose detail contains "throttled" followed by a numeric token counts;
// empty or garbled bodies are never treated as throttling.
func parseThrottle(body []byte, margin time.Duration) (*ThrottledError, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}

	var env throttleEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil || env.Detail == nil {
		return nil, false
	}

	seconds, ok := waitHint(*env.Detail)
	if !ok {
		return nil, false
	}

	wait := maxThrottleHint
	if seconds < maxThrottleHint.Seconds() {
		wait = time.Duration(seconds*1000) * time.Millisecond
	}
	wait += margin
	return &ThrottledError{Wait: wait, Detail: *env.Detail}, true
}

// waitHint finds the first numeric token after the "throttled" token.
// Tokens may carry trailing punctuation or a seconds suffix ("3.", "3s").
func waitHint(detail string) (float64, bool) {
	tokens := strings.Fields(strings.ToLower(detail))
	seen := false
	for _, tok := range tokens {
		if !seen {
			seen = strings.Contains(tok, throttleToken)
			continue
		}
		tok = strings.TrimRight(tok, ".,;:!)")
		tok = strings.TrimSuffix(tok, "s")
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			continue
		}
		return v, true
	}
	return 0, false
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

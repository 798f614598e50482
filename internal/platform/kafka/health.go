package kafka

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// HealthChecker checks that at least one broker accepts TCP connections.
type HealthChecker struct {
	brokers string
	timeout time.Duration
}

// NewHealthChecker creates a broker connectivity check.
func NewHealthChecker(brokers string) *HealthChecker {
	return &HealthChecker{brokers: brokers, timeout: 5 * time.Second}
}

// Check returns nil if any configured broker is reachable.
func (h *HealthChecker) Check() error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	var lastErr error
	for _, broker := range strings.Split(h.brokers, ",") {
		broker = strings.TrimSpace(broker)
		if broker == "" {
			continue
		}
		dialer := net.Dialer{Timeout: h.timeout}
		conn, err := dialer.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		conn.Close()
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("no kafka brokers reachable: %w", lastErr)
	}
	return fmt.Errorf("kafka brokers not configured")
}

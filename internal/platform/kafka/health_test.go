package kafka

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker(t *testing.T) {
	t.Run("reachable broker", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer ln.Close()

		assert.NoError(t, NewHealthChecker("  ,"+ln.Addr().String()).Check())
	})

	t.Run("no brokers configured", func(t *testing.T) {
		err := NewHealthChecker("").Check()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not configured")
	})
}

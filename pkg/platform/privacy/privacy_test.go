package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"ipv4", "192.168.1.47", "192.168.1.0"},
		{"ipv4 localhost", "127.0.0.1", "127.0.0.0"},
		{"ipv6 compressed", "2001:db8:85a3::8a2e:370:7334", "2001:0db8:85a3::"},
		{"ipv6 loopback", "::1", "0000:0000:0000::"},
		{"empty", "", "unknown"},
		{"invalid", "not-an-ip", "invalid"},
		{"with port", "192.168.1.1:8080", "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AnonymizeIP(tt.input))
		})
	}
}

func TestRemoteIP(t *testing.T) {
	assert.Equal(t, "10.1.2.0", RemoteIP("10.1.2.3:51234"))
	assert.Equal(t, "10.1.2.0", RemoteIP("10.1.2.3"))
	assert.Equal(t, "2001:0db8:0000::", RemoteIP("[2001:db8::1]:443"))
}

func TestMaskURN(t *testing.T) {
	assert.Equal(t, "tel:********567", MaskURN("tel:+2783124567"))
	assert.Equal(t, "tel:***", MaskURN("tel:123"))
	assert.Equal(t, "*****890", MaskURN("07890890"))
	assert.Equal(t, []string{"tel:*234", "whatsapp:****321"}, MaskURNs([]string{"tel:1234", "whatsapp:4321321"}))
}

package region

import (
	"testing"

	"github.com/nicepick/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScope(t *testing.T) {
	tests := []struct {
		input   string
		want    []Region
		wantErr bool
	}{
		{"", All(), false},
		{"all", All(), false},
		{"ALL", All(), false},
		{"cn", []Region{CN}, false},
		{"intl", []Region{INTL}, false},
		{" cn ", []Region{CN}, false},
		{"eu", nil, true},
		{"cn,intl", nil, true},
	}
	for _, tt := range tests {
		got, err := ParseScope(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got)
	}
}

func TestAllOrderIsStable(t *testing.T) {
	assert.Equal(t, []Region{CN, INTL}, All())
}

func TestAvailabilityProxyable(t *testing.T) {
	assert.False(t, Availability{}.Proxyable())
	assert.False(t, Availability{ProxyOrigin: "http://x"}.Proxyable())
	assert.False(t, Availability{ProxySecret: "s"}.Proxyable())
	assert.True(t, Availability{ProxyOrigin: "http://x", ProxySecret: "s"}.Proxyable())
}

func TestMissingProxyReasons(t *testing.T) {
	assert.ElementsMatch(t, []string{"missing origin", "missing shared secret"}, Availability{}.MissingProxyReasons())
	assert.Equal(t, []string{"missing shared secret"}, Availability{ProxyOrigin: "http://x"}.MissingProxyReasons())
	assert.Equal(t, []string{"missing origin"}, Availability{ProxySecret: "s"}.MissingProxyReasons())
	assert.Empty(t, Availability{ProxyOrigin: "http://x", ProxySecret: "s"}.MissingProxyReasons())
}

func TestConfigFor(t *testing.T) {
	cfg := Config{
		CN:   Availability{DirectCredentials: true},
		INTL: Availability{ProxyOrigin: "http://sibling"},
	}
	assert.True(t, cfg.For(CN).DirectCredentials)
	assert.Equal(t, "http://sibling", cfg.For(INTL).ProxyOrigin)
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		RegionCN: config.RegionCNConfig{
			Addr: "localhost:6379", SecretID: "id", SecretKey: "key",
		},
		RegionINTL: config.RegionINTLConfig{
			DatabaseURL: "postgres://x", ServiceKey: "svc",
		},
		Proxy: config.ProxyConfig{
			CNOrigin: "http://cn.sibling", SharedSecret: "shhh",
		},
	}
	snap := FromAppConfig(cfg)
	assert.True(t, snap.CN.DirectCredentials)
	assert.True(t, snap.INTL.DirectCredentials)
	assert.True(t, snap.CN.Proxyable())
	assert.False(t, snap.INTL.Proxyable())

	// Partial CN credentials do not count as direct
	cfg.RegionCN.SecretKey = ""
	snap = FromAppConfig(cfg)
	assert.False(t, snap.CN.DirectCredentials)
}

func TestFromEnvRereadsEnvironment(t *testing.T) {
	t.Setenv(EnvCNAddr, "")
	t.Setenv(EnvCNSecretID, "")
	t.Setenv(EnvCNSecretKey, "")
	t.Setenv(EnvINTLDatabaseURL, "")
	t.Setenv(EnvINTLServiceKey, "")
	t.Setenv(EnvProxyCNOrigin, "")
	t.Setenv(EnvProxySharedSecret, "")

	snap := FromEnv()
	assert.False(t, snap.CN.DirectCredentials)
	assert.False(t, snap.INTL.DirectCredentials)
	assert.False(t, snap.CN.Proxyable())

	t.Setenv(EnvCNAddr, "localhost:6379")
	t.Setenv(EnvCNSecretID, "id")
	t.Setenv(EnvCNSecretKey, "key")
	t.Setenv(EnvProxyCNOrigin, "http://cn.sibling")
	t.Setenv(EnvProxySharedSecret, "shhh")

	snap = FromEnv()
	assert.True(t, snap.CN.DirectCredentials)
	assert.True(t, snap.CN.Proxyable())
	assert.Equal(t, "shhh", snap.INTL.ProxySecret)
}

func TestCNDBFromEnv(t *testing.T) {
	t.Setenv(EnvCNDB, "")
	assert.Equal(t, 0, CNDBFromEnv())
	t.Setenv(EnvCNDB, "3")
	assert.Equal(t, 3, CNDBFromEnv())
	t.Setenv(EnvCNDB, "junk")
	assert.Equal(t, 0, CNDBFromEnv())
}

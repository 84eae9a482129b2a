// Package region identifies the two deployment backends and resolves,
// per request, how each of them can be reached.
package region

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nicepick/backend/internal/infrastructure/config"
)

// Region tags one of the two deployment backends.
type Region string

const (
	// CN is the document-store backed deployment.
	CN Region = "cn"
	// INTL is the relational/object-store backed deployment.
	INTL Region = "intl"
)

// All returns both regions in canonical order. Merge results depend on
// this order for tie-breaking, so it must stay stable.
func All() []Region {
	return []Region{CN, INTL}
}

// Valid reports whether r is a known region
func (r Region) Valid() bool {
	return r == CN || r == INTL
}

// ParseScope parses a source query value into the set of regions to query.
// Accepts "all" (or empty), "cn" and "intl".
func ParseScope(s string) ([]Region, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return All(), nil
	case string(CN):
		return []Region{CN}, nil
	case string(INTL):
		return []Region{INTL}, nil
	default:
		return nil, fmt.Errorf("unknown source scope %q", s)
	}
}

// Availability describes how a single region can be reached.
type Availability struct {
	// DirectCredentials is true when every credential needed to talk to
	// the region's backend directly is present.
	DirectCredentials bool
	// ProxyOrigin is the sibling deployment base URL, if configured.
	ProxyOrigin string
	// ProxySecret is the shared secret for internal proxy hops.
	ProxySecret string
}

// Proxyable reports whether the region can be served via a sibling hop
func (a Availability) Proxyable() bool {
	return a.ProxyOrigin != "" && a.ProxySecret != ""
}

// MissingProxyReasons enumerates why a proxy hop is not possible.
func (a Availability) MissingProxyReasons() []string {
	var reasons []string
	if a.ProxyOrigin == "" {
		reasons = append(reasons, "missing origin")
	}
	if a.ProxySecret == "" {
		reasons = append(reasons, "missing shared secret")
	}
	return reasons
}

// Config is an explicitly-injected snapshot of both regions'
// availability. Handlers receive a value built per request instead of
// reading process state ad hoc, so tests can construct fixtures.
type Config struct {
	CN   Availability
	INTL Availability
}

// For returns the availability for the given region
func (c Config) For(r Region) Availability {
	if r == CN {
		return c.CN
	}
	return c.INTL
}

// FromAppConfig builds an availability snapshot from loaded configuration.
func FromAppConfig(cfg *config.Config) Config {
	return Config{
		CN: Availability{
			DirectCredentials: cfg.RegionCN.Addr != "" && cfg.RegionCN.SecretID != "" && cfg.RegionCN.SecretKey != "",
			ProxyOrigin:       cfg.Proxy.CNOrigin,
			ProxySecret:       cfg.Proxy.SharedSecret,
		},
		INTL: Availability{
			DirectCredentials: cfg.RegionINTL.DatabaseURL != "" && cfg.RegionINTL.ServiceKey != "",
			ProxyOrigin:       cfg.Proxy.INTLOrigin,
			ProxySecret:       cfg.Proxy.SharedSecret,
		},
	}
}

// Environment variable names consumed by FromEnv. They mirror the
// viper keys in the config package with the NICEPICK_ prefix.
const (
	EnvCNAddr      = "NICEPICK_REGION_CN_ADDR"
	EnvCNSecretID  = "NICEPICK_REGION_CN_SECRET_ID"
	EnvCNSecretKey = "NICEPICK_REGION_CN_SECRET_KEY"
	EnvCNDB        = "NICEPICK_REGION_CN_DB"

	EnvINTLDatabaseURL = "NICEPICK_REGION_INTL_DATABASE_URL"
	EnvINTLServiceKey  = "NICEPICK_REGION_INTL_SERVICE_KEY"

	EnvProxyCNOrigin     = "NICEPICK_PROXY_CN_ORIGIN"
	EnvProxyINTLOrigin   = "NICEPICK_PROXY_INTL_ORIGIN"
	EnvProxySharedSecret = "NICEPICK_PROXY_SHARED_SECRET"
)

// FromEnv builds an availability snapshot straight from the process
// environment. The environment is re-read on every call, never cached,
// so tests can mutate variables between calls.
func FromEnv() Config {
	secret := os.Getenv(EnvProxySharedSecret)
	return Config{
		CN: Availability{
			DirectCredentials: os.Getenv(EnvCNAddr) != "" &&
				os.Getenv(EnvCNSecretID) != "" &&
				os.Getenv(EnvCNSecretKey) != "",
			ProxyOrigin: os.Getenv(EnvProxyCNOrigin),
			ProxySecret: secret,
		},
		INTL: Availability{
			DirectCredentials: os.Getenv(EnvINTLDatabaseURL) != "" &&
				os.Getenv(EnvINTLServiceKey) != "",
			ProxyOrigin: os.Getenv(EnvProxyINTLOrigin),
			ProxySecret: secret,
		},
	}
}

// CNDBFromEnv returns the configured CN document-store database index.
func CNDBFromEnv() int {
	n, err := strconv.Atoi(os.Getenv(EnvCNDB))
	if err != nil {
		return 0
	}
	return n
}

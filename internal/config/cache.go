package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Cache key strategies.  The subject variant keeps one caller's responses
// away from every other caller.
const (
	KeyRoute             = "route"
	KeyRouteQuery        = "route_query"
	KeyMethodRouteQuery  = "method_route_query"
	KeySubjectRouteQuery = "subject_route_query"
)

// CacheConfig drives the response cache of the role and permission reads.
// Caching is off when Enabled is false or no Redis client is available.
type CacheConfig struct {
	Enabled      bool          `env:"CACHE_ENABLED" envDefault:"true"`
	Methods      MethodSet     `env:"CACHE_METHODS" envDefault:"GET"`
	TTL          time.Duration `env:"CACHE_TTL" envDefault:"30s"`
	KeyStrategy  string        `env:"CACHE_KEY_STRATEGY" envDefault:"subject_route_query"`
	Prefix       string        `env:"CACHE_PREFIX" envDefault:"idcache"`
	MaxBodyBytes int           `env:"CACHE_MAX_BODY_BYTES" envDefault:"1048576"`
}

func (c CacheConfig) validate() []error {
	var errs []error
	if len(c.Methods) == 0 {
		errs = append(errs, errors.New("CACHE_METHODS names no method"))
	}
	if c.TTL <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must be positive, got %s", c.TTL))
	}
	switch strings.ToLower(c.KeyStrategy) {
	case KeyRoute, KeyRouteQuery, KeyMethodRouteQuery, KeySubjectRouteQuery:
	default:
		errs = append(errs, fmt.Errorf("CACHE_KEY_STRATEGY %q is not one of %s, %s, %s, %s",
			c.KeyStrategy, KeyRoute, KeyRouteQuery, KeyMethodRouteQuery, KeySubjectRouteQuery))
	}
	if strings.TrimSpace(c.Prefix) == "" {
		errs = append(errs, errors.New("CACHE_PREFIX must not be blank"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes))
	}
	return errs
}

// MethodSet is a set of upper-cased HTTP methods parsed from a comma list.
type MethodSet map[string]bool

func (m *MethodSet) UnmarshalText(text []byte) error {
	set := MethodSet{}
	for _, p := range strings.Split(string(text), ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			set[p] = true
		}
	}
	*m = set
	return nil
}

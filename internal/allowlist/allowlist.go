package allowlist

import (
	"strings"

	"go.uber.org/zap"
)

// Checker reports whether a sender's domain is allowlisted, bypassing
// the scan pipeline entirely.
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new allowlist checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	// Normalize domains (lowercase)
	normalized := make([]string, len(domains))
	for i, domain := range domains {
		normalized[i] = strings.ToLower(strings.TrimSpace(domain))
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized sender allowlist", zap.Strings("domains", normalized))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// IsAllowed checks if the sender's domain is in the allowlist. The
// sender domain is everything after the last "@" of the From value.
func (c *Checker) IsAllowed(from string) bool {
	if len(c.domains) == 0 {
		return false
	}

	idx := strings.LastIndex(from, "@")
	if idx < 0 {
		return false
	}
	domain := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(from[idx+1:]), ">"))
	if domain == "" {
		return false
	}

	for _, allowed := range c.domains {
		if allowed == domain {
			if c.logger != nil {
				c.logger.Debug("Sender domain is allowlisted",
					zap.String("domain", domain),
					zap.String("sender", from))
			}
			return true
		}
	}
	return false
}

package auth

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xhit/go-str2duration/v2"
)

// DefaultTokenExpiry applies when neither the caller nor config names one.
const DefaultTokenExpiry = "7d"

const maxExpirySeconds = math.MaxInt64 / int64(time.Second)

// ParseExpiry converts "7d", "1h", "30m", "45s", "2w" or a bare number of seconds into a duration.
// Compound forms such as "1w2d" or "1h30m" are accepted too. Values that overflow are rejected.
func ParseExpiry(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty expiry")
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > maxExpirySeconds {
			return 0, fmt.Errorf("expiry %q is too large", s)
		}
		s += "s"
	}

	d, err := str2duration.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid expiry %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("expiry %q must be positive", s)
	}
	return d, nil
}

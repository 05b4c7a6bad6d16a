package cache

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// TTL bounds and environment overrides.
const (
	// DefaultTTL keeps statistics snapshots for a day; writes invalidate earlier.
	DefaultTTL = 24 * time.Hour

	// MinTTL is the smallest accepted TTL.
	MinTTL = time.Minute

	// MaxTTL is the largest accepted TTL (30 days).
	MaxTTL = 30 * 24 * time.Hour

	minutesPerHour = 60
	hoursPerDay    = 24

	// EnvTTL overrides the configured TTL ("3600" or "1h").
	EnvTTL = "ECOLIFE_CACHE_TTL"

	// EnvCacheBackend overrides the configured backend.
	EnvCacheBackend = "ECOLIFE_CACHE_BACKEND"

	// EnvCacheDir overrides the file cache directory.
	EnvCacheDir = "ECOLIFE_CACHE_DIR"
)

// ErrInvalidTTL indicates a TTL outside MinTTL..MaxTTL.
var ErrInvalidTTL = fmt.Errorf("TTL must be between %s and %s", FormatDuration(MinTTL), FormatDuration(MaxTTL))

// ParseTTL parses integer seconds ("3600") or a Go duration ("1h30m").
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	var d time.Duration
	if seconds, err := strconv.Atoi(s); err == nil {
		d = time.Duration(seconds) * time.Second
	} else {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return 0, fmt.Errorf("invalid TTL format %q: %w", s, perr)
		}
		d = parsed
	}
	if d < MinTTL || d > MaxTTL {
		return 0, fmt.Errorf("%w: got %s", ErrInvalidTTL, d)
	}
	return d, nil
}

// TTLFromEnv returns the EnvTTL override, or fallback when unset or invalid.
func TTLFromEnv(fallback time.Duration) time.Duration {
	v := os.Getenv(EnvTTL)
	if v == "" {
		return fallback
	}
	d, err := ParseTTL(v)
	if err != nil {
		return fallback
	}
	return d
}

// FormatDuration formats d compactly: "45s", "30m", "1h30m", "2d", "1d6h".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	if d < hoursPerDay*time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % minutesPerHour
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	days := int(d.Hours()) / hoursPerDay
	hours := int(d.Hours()) % hoursPerDay
	if hours == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd%dh", days, hours)
}

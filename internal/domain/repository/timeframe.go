package repository

import "strconv"

// Timeframes are whole minutes. The seeded whitelist matches the legacy
// defaults; registries may extend it at runtime.

// SeedTimeframes returns the initial whitelist.
func SeedTimeframes() []int { return []int{1, 5, 60, 1440} }

// DefaultTimeframe returns the timeframe used when a query omits one.
func DefaultTimeframe() int { return 1 }

// ParseTimeframe converts a raw path/query value to minutes, falling back to
// the default for empty or malformed input.
func ParseTimeframe(s string) int {
	if s == "" {
		return DefaultTimeframe()
	}
	tf, err := strconv.Atoi(s)
	if err != nil || tf <= 0 {
		return DefaultTimeframe()
	}
	return tf
}

// TimeframeSeconds converts minutes to the bar window in seconds.
func TimeframeSeconds(tf int) int64 { return int64(tf) * 60 }

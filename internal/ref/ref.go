package ref

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"
)

const (
	fallbackPrefix = "TXN_"
	dateFormat     = "20060102"
	bucketCount    = 10000
)

// Placeholder is the customer reference banks write when they have none.
const Placeholder = "NONREF"

// Fallback returns a deterministic reference like "TXN_20250407_0413" for a
// transaction the bank gave no reference. The suffix is an FNV-1a hash of raw
// modulo 10000, so two different raw lines on the same day can collide.
func Fallback(date time.Time, raw string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(raw))
	return fmt.Sprintf("%s%s_%04d", fallbackPrefix, date.Format(dateFormat), h.Sum32()%bucketCount)
}

// ParseFallback parses "TXN_20250407_0413" into its date and hash bucket.
func ParseFallback(ref string) (date time.Time, bucket int, err error) {
	rest, ok := strings.CutPrefix(ref, fallbackPrefix)
	if !ok {
		return time.Time{}, 0, fmt.Errorf("invalid fallback reference %q: missing %s prefix", ref, fallbackPrefix)
	}
	parts := strings.SplitN(rest, "_", 2)
	if len(parts) != 2 {
		return time.Time{}, 0, fmt.Errorf("invalid fallback reference format: %q", ref)
	}

	date, err = time.Parse(dateFormat, parts[0])
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid date in fallback reference %q: %w", ref, err)
	}

	if len(parts[1]) != 4 {
		return time.Time{}, 0, fmt.Errorf("invalid bucket in fallback reference %q", ref)
	}
	bucket, err = strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid bucket in fallback reference %q: %w", ref, err)
	}
	return date, bucket, nil
}

// IsFallback reports whether ref was synthesized by Fallback.
func IsFallback(ref string) bool {
	_, _, err := ParseFallback(ref)
	return err == nil
}

// IsPlaceholder reports whether ref carries no information ("" or NONREF).
func IsPlaceholder(ref string) bool {
	ref = strings.TrimSpace(ref)
	return ref == "" || strings.EqualFold(ref, Placeholder)
}

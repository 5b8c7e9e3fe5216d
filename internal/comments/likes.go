package comments

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultMinLikes keeps every comment with a non-negative like count.
const DefaultMinLikes = 0

var signedDecimal = regexp.MustCompile(`^[+-]?[0-9]+(?:_[0-9]+)*$`)

// FetchLikes is the lenient coercion applied while collecting. Empty and
// false-like values are 0, integers pass through, floats truncate toward
// zero, true is 1 and strings must hold a (possibly signed, whitespace
// padded) base-10 integer. Anything that fails to convert is 0.
func FetchLikes(v any) int {
	switch x := v.(type) {
	case nil:
		return 0
	case bool:
		if x {
			return 1
		}
		return 0
	case int:
		return x
	case int8:
		return int(x)
	case int16:
		return int(x)
	case int32:
		return int(x)
	case int64:
		return int(x)
	case uint:
		return int(x)
	case uint8:
		return int(x)
	case uint16:
		return int(x)
	case uint32:
		return int(x)
	case uint64:
		if x > math.MaxInt64 {
			return 0
		}
		return int(x)
	case float32:
		return truncFloat(float64(x))
	case float64:
		return truncFloat(x)
	case string:
		s := strings.TrimSpace(x)
		if !signedDecimal.MatchString(s) {
			return 0
		}
		n, err := strconv.ParseInt(strings.ReplaceAll(s, "_", ""), 10, 64)
		if err != nil {
			return 0
		}
		return int(n)
	default:
		return 0
	}
}

// SortLikes is the strict coercion used for ordering. Only non-negative
// integers and strings made purely of ASCII digits count; everything else,
// including signed or decimal strings, floats and booleans, is 0.
func SortLikes(v any) int {
	var n int
	switch x := v.(type) {
	case bool:
		return 0
	case int:
		n = x
	case int8:
		n = int(x)
	case int16:
		n = int(x)
	case int32:
		n = int(x)
	case int64:
		n = int(x)
	case uint, uint8, uint16, uint32, uint64:
		n = FetchLikes(x)
	case string:
		if !isASCIIDigits(x) {
			return 0
		}
		p, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0
		}
		n = int(p)
	default:
		return 0
	}
	if n < 0 {
		return 0
	}
	return n
}

func truncFloat(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0
	}
	return int(f)
}

func isASCIIDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

package pvec

import "math"

// indexKey reports whether a path key addresses a position in an indexed
// container, and which one.
func indexKey(k interface{}) (int, bool) {
	switch v := k.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		if v < math.MinInt || v > math.MaxInt {
			return 0, false
		}
		return int(v), true
	case uint:
		return uintKey(uint64(v))
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return uintKey(uint64(v))
	case uint64:
		return uintKey(v)
	}
	return 0, false
}

func uintKey(v uint64) (int, bool) {
	if v > math.MaxInt {
		return 0, false
	}
	return int(v), true
}

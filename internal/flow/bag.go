package flow

import (
	"encoding/json"
	"math"
	"strconv"
)

// Bag holds the answers collected so far in one session. Values survive a JSON round trip
// when sessions live in redis, so numbers may come back as float64.
type Bag map[string]interface{}

// String returns the value under key as text.
func (b Bag) String(key string) string {
	switch v := b[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

// Int64 returns the value under key as an integer.
func (b Bag) Int64(key string) (int64, bool) {
	switch v := b[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// Int returns the value under key as an int.
func (b Bag) Int(key string) (int, bool) {
	n, ok := b.Int64(key)
	return int(n), ok
}

// Has reports whether key was answered.
func (b Bag) Has(key string) bool {
	_, ok := b[key]
	return ok
}

func (b Bag) clone() Bag {
	out := make(Bag, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

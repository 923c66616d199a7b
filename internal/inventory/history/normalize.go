package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/timestamppb"
)

var (
	ErrMissingTimestamp     = errors.New("timestamp is missing")
	ErrUnsupportedTimestamp = errors.New("unsupported timestamp representation")
)

var stringLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// NormalizeTimestamp accepts the shapes stock history timestamps have been
// stored in over time: native times, protobuf timestamps, {seconds, nanoseconds}
// objects (also with leading underscores), RFC 3339 strings and raw JSON of
// any of those.
func NormalizeTimestamp(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, ErrMissingTimestamp
	case time.Time:
		return nonZero(t)
	case *time.Time:
		if t == nil {
			return time.Time{}, ErrMissingTimestamp
		}
		return nonZero(*t)
	case *timestamppb.Timestamp:
		if t == nil {
			return time.Time{}, ErrMissingTimestamp
		}
		if err := t.CheckValid(); err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrUnsupportedTimestamp, err)
		}
		return nonZero(t.AsTime())
	case json.RawMessage:
		return fromJSON(t)
	case []byte:
		return fromJSON(t)
	case string:
		return fromString(t)
	case map[string]interface{}:
		return fromSecondsMap(t)
	default:
		return time.Time{}, fmt.Errorf("%w: %T", ErrUnsupportedTimestamp, v)
	}
}

func nonZero(t time.Time) (time.Time, error) {
	if t.IsZero() {
		return time.Time{}, ErrMissingTimestamp
	}
	return t, nil
}

func fromJSON(raw []byte) (time.Time, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return time.Time{}, ErrMissingTimestamp
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrUnsupportedTimestamp, err)
	}

	switch v.(type) {
	case string, map[string]interface{}:
		return NormalizeTimestamp(v)
	default:
		return time.Time{}, fmt.Errorf("%w: json %T", ErrUnsupportedTimestamp, v)
	}
}

func fromString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrMissingTimestamp
	}
	for _, layout := range stringLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return nonZero(t)
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnsupportedTimestamp, s)
}

func fromSecondsMap(m map[string]interface{}) (time.Time, error) {
	rawSeconds, ok := firstKey(m, "seconds", "_seconds")
	if !ok {
		return time.Time{}, fmt.Errorf("%w: object without seconds", ErrUnsupportedTimestamp)
	}
	seconds, err := toInt64(rawSeconds)
	if err != nil {
		return time.Time{}, err
	}

	var nanos int64
	if rawNanos, ok := firstKey(m, "nanoseconds", "_nanoseconds", "nanos"); ok {
		if nanos, err = toInt64(rawNanos); err != nil {
			return time.Time{}, err
		}
	}

	return nonZero(time.Unix(seconds, nanos).UTC())
}

func firstKey(m map[string]interface{}, keys ...string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("%w: non-finite number", ErrUnsupportedTimestamp)
		}
		return int64(n), nil
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnsupportedTimestamp, err)
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("%w: seconds of type %T", ErrUnsupportedTimestamp, v)
	}
}

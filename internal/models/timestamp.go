package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// DocTimestamp accepts the timestamp shapes found in stored listings: a
// {seconds, nanoseconds} object, a raw millisecond count, or a SQL timestamp.
type DocTimestamp struct {
	Seconds      *int64 `json:"seconds,omitempty"`
	Nanoseconds  *int64 `json:"nanoseconds,omitempty"`
	Milliseconds *int64 `json:"milliseconds,omitempty"`
}

// TimestampFromTime builds a DocTimestamp from t.
func TimestampFromTime(t time.Time) *DocTimestamp {
	ms := t.UnixMilli()
	return &DocTimestamp{Milliseconds: &ms}
}

// TimestampFromMillis builds a DocTimestamp from an epoch millisecond value.
func TimestampFromMillis(ms int64) *DocTimestamp {
	return &DocTimestamp{Milliseconds: &ms}
}

// Millis returns the timestamp in epoch milliseconds. An explicit millisecond
// value wins over seconds/nanoseconds.
func (t DocTimestamp) Millis() (int64, bool) {
	if t.Milliseconds != nil {
		return *t.Milliseconds, true
	}
	if t.Seconds != nil {
		ms := *t.Seconds * 1000
		if t.Nanoseconds != nil {
			ms += *t.Nanoseconds / int64(time.Millisecond)
		}
		return ms, true
	}
	return 0, false
}

// Time converts the timestamp to UTC time.
func (t DocTimestamp) Time() (time.Time, bool) {
	ms, ok := t.Millis()
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

// Scan implements sql.Scanner.
func (t *DocTimestamp) Scan(src interface{}) error {
	*t = DocTimestamp{}
	switch v := src.(type) {
	case nil:
		return nil
	case time.Time:
		secs := v.Unix()
		nanos := int64(v.Nanosecond())
		t.Seconds, t.Nanoseconds = &secs, &nanos
		return nil
	case int64:
		t.Milliseconds = &v
		return nil
	case []byte:
		return t.scanString(string(v))
	case string:
		return t.scanString(v)
	default:
		return fmt.Errorf("unsupported timestamp source %T", src)
	}
}

func (t *DocTimestamp) scanString(s string) error {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		t.Milliseconds = &ms
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.Scan(parsed)
}

// Value implements driver.Valuer.
func (t DocTimestamp) Value() (driver.Value, error) {
	tm, ok := t.Time()
	if !ok {
		return nil, nil
	}
	return tm, nil
}

// MarshalJSON emits the normalized millisecond value or null.
func (t DocTimestamp) MarshalJSON() ([]byte, error) {
	ms, ok := t.Millis()
	if !ok {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(ms, 10)), nil
}

// UnmarshalJSON accepts a number of milliseconds, a {seconds, nanoseconds}
// object, an object with a milliseconds field, or null.
func (t *DocTimestamp) UnmarshalJSON(data []byte) error {
	*t = DocTimestamp{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] != '{' {
		var ms int64
		if err := json.Unmarshal(data, &ms); err != nil {
			return fmt.Errorf("decode timestamp millis: %w", err)
		}
		t.Milliseconds = &ms
		return nil
	}
	var raw struct {
		Seconds      *int64 `json:"seconds"`
		LegacySecs   *int64 `json:"_seconds"`
		Nanoseconds  *int64 `json:"nanoseconds"`
		LegacyNanos  *int64 `json:"_nanoseconds"`
		Milliseconds *int64 `json:"milliseconds"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode timestamp object: %w", err)
	}
	t.Seconds = firstNonNil(raw.Seconds, raw.LegacySecs)
	t.Nanoseconds = firstNonNil(raw.Nanoseconds, raw.LegacyNanos)
	t.Milliseconds = raw.Milliseconds
	return nil
}

func firstNonNil(values ...*int64) *int64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

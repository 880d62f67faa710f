// Package rfctime formats timestamps in API payloads as RFC3339 date-time.
package rfctime

import (
	"bytes"
	"encoding/json"
	"time"
)

// Layout for output. The offset is always numeric, never "Z".
const Layout = "2006-01-02T15:04:05.999-07:00"

// RFC3339 is time.Time which is (un)marshalled as RFC3339 date-time string.
type RFC3339 time.Time

func (t RFC3339) Time() time.Time {
	return time.Time(t)
}

// Equal reports both are nil, or both point the same instant.
func (t *RFC3339) Equal(other *RFC3339) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.Time().Equal(other.Time())
}

func (t RFC3339) String() string {
	return time.Time(t).Format(Layout)
}

// Parse accepts RFC3339 date-time, with "Z" or numeric offset.
func Parse(s string) (RFC3339, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return RFC3339{}, err
	}
	return RFC3339(t), nil
}

func (t RFC3339) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *RFC3339) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

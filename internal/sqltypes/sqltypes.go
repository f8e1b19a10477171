package sqltypes

import (
	"fmt"
	"time"
)

const format = "2006-01-02 15:04:05.999999999-07:00"

// FormatTime renders t the way TimeScanner expects to read it back. Values
// are always stored in UTC so that text ordering matches time ordering.
func FormatTime(t time.Time) string {
	return t.UTC().Format(format)
}

func parseTime(s string) (time.Time, error) {
	if v, err := time.Parse(format, s); err == nil {
		return v.UTC(), nil
	}

	v, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}

	return v.UTC(), nil
}

type TimeScanner struct {
	Value *time.Time
}

func (t *TimeScanner) Scan(src interface{}) error {
	switch src := src.(type) {
	case string:
		v, err := parseTime(src)
		if err != nil {
			return fmt.Errorf("sqltypes.TimeScanner: could not parse input value %q: %w", src, err)
		}
		*t.Value = v
		return nil
	case []byte:
		v, err := parseTime(string(src))
		if err != nil {
			return fmt.Errorf("sqltypes.TimeScanner: could not parse input value %q: %w", src, err)
		}
		*t.Value = v
		return nil
	case time.Time:
		*t.Value = src.UTC()
		return nil
	default:
		return fmt.Errorf("sqltypes.TimeScanner: could not scan input type of %T", src)
	}
}

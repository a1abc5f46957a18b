// Package timex UTC 时间工具
package timex

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Layout 对外输出的时间格式，ISO-8601 带时区
const Layout = "2006-01-02T15:04:05.000000Z07:00"

// Time 以 UTC ISO-8601 序列化的时间
type Time time.Time

// Now 返回当前 UTC 时间，精度截断到微秒，保证经过数据库往返后不变
func Now() Time {
	return Time(time.Now().UTC().Truncate(time.Microsecond))
}

// Max 返回多个时间中最晚的一个
func Max(first Time, rest ...Time) Time {
	m := first
	for _, t := range rest {
		if time.Time(t).After(time.Time(m)) {
			m = t
		}
	}
	return m
}

// Std 返回标准库时间
func (t Time) Std() time.Time {
	return time.Time(t)
}

func (t Time) IsZero() bool {
	return time.Time(t).IsZero()
}

func (t Time) Before(u Time) bool {
	return time.Time(t).Before(time.Time(u))
}

func (t Time) Unix() int64 {
	return time.Time(t).Unix()
}

func (t Time) UnixMilli() int64 {
	return time.Time(t).UnixMilli()
}

func (t Time) UnixMicro() int64 {
	return time.Time(t).UnixMicro()
}

func (t Time) UnixNano() int64 {
	return time.Time(t).UnixNano()
}

func (t Time) String() string {
	return time.Time(t).UTC().Format(Layout)
}

// MarshalJSON 输出 UTC ISO-8601 字符串
func (t Time) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON 解析 RFC3339 字符串
func (t *Time) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		*t = Time{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("timex: invalid time %s", s)
	}
	parsed, err := time.Parse(time.RFC3339Nano, s[1:len(s)-1])
	if err != nil {
		return err
	}
	*t = Time(parsed.UTC())
	return nil
}

// Value 实现 driver.Valuer
func (t Time) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return time.Time(t).UTC(), nil
}

// Scan 实现 sql.Scanner
func (t *Time) Scan(v any) error {
	switch value := v.(type) {
	case nil:
		*t = Time{}
	case time.Time:
		*t = Time(value.UTC())
	case string:
		return t.scanString(value)
	case []byte:
		return t.scanString(string(value))
	default:
		return fmt.Errorf("timex: cannot scan %T into Time", v)
	}
	return nil
}

var scanLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
}

func (t *Time) scanString(s string) error {
	for _, layout := range scanLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = Time(parsed.UTC())
			return nil
		}
	}
	return fmt.Errorf("timex: cannot parse %q", s)
}

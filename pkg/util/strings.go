package util

import "strings"

// TrimAll trims every element, keeping blank ones in place
// TrimAll 去除每个元素两端空白，保留空元素
func TrimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

// TrimNonEmpty trims every element and drops blank ones
// TrimNonEmpty 去除每个元素两端空白并丢弃空元素
func TrimNonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SplitComma splits s on commas, a backslash escapes a comma or another backslash
// SplitComma 按逗号拆分，\, 表示字面逗号，\\ 表示字面反斜杠
func SplitComma(s string) []string {
	var out []string
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '\\' && i+1 < len(s) && (s[i+1] == ',' || s[i+1] == '\\') {
			b.WriteByte(s[i+1])
			i++
			continue
		}
		if ch == ',' {
			out = append(out, b.String())
			b.Reset()
			continue
		}
		b.WriteByte(ch)
	}
	return append(out, b.String())
}

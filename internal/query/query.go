// Package query 将检索条件翻译为条目谓词和 SQL 预过滤
//
// 匹配规则:
//   - Query: 不区分大小写的子串，命中 content、任意一个 tag、任意一个 keyword 或 summary 之一即可
//   - Tags: 条目必须包含列表中的每一个标签，逐个区分大小写完全匹配
//   - TagContains: 至少一个标签包含该子串，区分大小写
//   - AnyTags: 至少包含列表中的一个标签，区分大小写完全匹配
//
// 各条件之间为 AND 关系，空条件视为不过滤
package query

import (
	"strings"

	"github.com/haierkeys/memory-server/internal/domain"

	"golang.org/x/text/cases"
)

// Match 判断条目是否满足检索条件
func Match(f domain.MemoryFilter, m *domain.Memory) bool {
	if m == nil {
		return false
	}
	if f.Query != "" && !matchText(f.Query, m) {
		return false
	}
	if len(f.Tags) > 0 && !containsAll(m.Tags, f.Tags) {
		return false
	}
	if f.TagContains != "" && !anyContains(m.Tags, f.TagContains) {
		return false
	}
	if len(f.AnyTags) > 0 && !containsAny(m.Tags, f.AnyTags) {
		return false
	}
	return true
}

// fold 完整的 Unicode 大小写折叠
// cases.Caser 有状态，不能跨 goroutine 共享，每次调用新建
func fold(s string) string {
	return cases.Fold().String(s)
}

func matchText(q string, m *domain.Memory) bool {
	needle := fold(q)
	if strings.Contains(fold(m.Content), needle) {
		return true
	}
	for _, tag := range m.Tags {
		if strings.Contains(fold(tag), needle) {
			return true
		}
	}
	for _, kw := range m.Keywords {
		if strings.Contains(fold(kw), needle) {
			return true
		}
	}
	return strings.Contains(fold(m.Summary), needle)
}

func containsAll(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[h] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}

func containsAny(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}

func anyContains(have []string, sub string) bool {
	for _, h := range have {
		if strings.Contains(h, sub) {
			return true
		}
	}
	return false
}

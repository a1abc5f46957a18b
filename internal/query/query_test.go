package query

import (
	"strings"
	"testing"

	"github.com/haierkeys/memory-server/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	e1 := &domain.Memory{ID: 1, Content: "PEP8 rules", Tags: []string{"rule"}}
	e2 := &domain.Memory{ID: 2, Content: "unrelated", Tags: []string{"other"}}
	both := []*domain.Memory{e2, e1}

	tests := []struct {
		name   string
		filter domain.MemoryFilter
		want   []*domain.Memory
	}{
		{"query on content", domain.MemoryFilter{Query: "PEP8"}, []*domain.Memory{e1}},
		{"query is case-insensitive", domain.MemoryFilter{Query: "pep8"}, []*domain.Memory{e1}},
		{"tag filter", domain.MemoryFilter{Tags: []string{"rule"}}, []*domain.Memory{e1}},
		{"and across families", domain.MemoryFilter{Query: "PEP8", Tags: []string{"other"}}, []*domain.Memory{}},
		{"empty filter matches all", domain.MemoryFilter{}, both},
		{"tag is case-sensitive", domain.MemoryFilter{Tags: []string{"Rule"}}, []*domain.Memory{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := []*domain.Memory{}
			for _, m := range both {
				if Match(tt.filter, m) {
					got = append(got, m)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatch_QueryHitsEveryTextField(t *testing.T) {
	m := &domain.Memory{
		Content:  "body",
		Tags:     []string{"プロジェクト"},
		Keywords: []string{"Golang"},
		Summary:  "Short Summary",
	}

	assert.True(t, Match(domain.MemoryFilter{Query: "BOD"}, m))
	assert.True(t, Match(domain.MemoryFilter{Query: "ジェク"}, m))
	assert.True(t, Match(domain.MemoryFilter{Query: "golang"}, m))
	assert.True(t, Match(domain.MemoryFilter{Query: "summary"}, m))
	assert.False(t, Match(domain.MemoryFilter{Query: "missing"}, m))
}

func TestMatch_UnicodeFolding(t *testing.T) {
	m := &domain.Memory{Content: "ÉCOLE Straße"}
	assert.True(t, Match(domain.MemoryFilter{Query: "école"}, m))
	assert.True(t, Match(domain.MemoryFilter{Query: "STRASSE"}, m))
}

func TestMatch_TagFilterIsAnd(t *testing.T) {
	m := &domain.Memory{Tags: []string{"a", "b"}}

	assert.True(t, Match(domain.MemoryFilter{Tags: []string{"a", "b"}}, m))
	assert.True(t, Match(domain.MemoryFilter{Tags: []string{"a"}}, m))
	assert.False(t, Match(domain.MemoryFilter{Tags: []string{"a", "c"}}, m))
}

func TestMatch_TagContains(t *testing.T) {
	m := &domain.Memory{Tags: []string{"project-alpha", "misc"}}

	assert.True(t, Match(domain.MemoryFilter{TagContains: "alpha"}, m))
	assert.False(t, Match(domain.MemoryFilter{TagContains: "ALPHA"}, m))
	assert.False(t, Match(domain.MemoryFilter{TagContains: "beta"}, m))
}

func TestMatch_AnyTags(t *testing.T) {
	rule := &domain.Memory{Tags: []string{"x", "規則"}}
	plain := &domain.Memory{Tags: []string{"rulebook"}}

	f := domain.MemoryFilter{AnyTags: domain.RuleTags}
	assert.True(t, Match(f, rule))
	assert.False(t, Match(f, plain))
}

func TestTagPattern(t *testing.T) {
	assert.Equal(t, `%"rule"%`, tagPattern("rule"))
	assert.Equal(t, `%"50!%_off"%`, tagPattern("50%_off"))
	assert.Equal(t, `%"a!!b"%`, tagPattern("a!b"))
	assert.Equal(t, `%"ルール"%`, tagPattern("ルール"))
	assert.Equal(t, `%"q\"uote"%`, tagPattern(`q"uote`))
}

func TestPrefilterable(t *testing.T) {
	assert.True(t, prefilterable("プロジェクト"))
	assert.False(t, prefilterable("a<b"))
	assert.False(t, prefilterable("tab\there"))
	assert.False(t, allPrefilterable([]string{"ok", "R&D"}))
}

func genTags() gopter.Gen {
	return gen.SliceOf(gen.OneConstOf("a", "b", "c", "rule", "ルール", "Rule"))
}

func genMemory() gopter.Gen {
	return gopter.CombineGens(
		gen.AlphaString(),
		genTags(),
		gen.SliceOf(gen.AlphaString()),
		gen.AlphaString(),
	).Map(func(v []interface{}) *domain.Memory {
		return &domain.Memory{
			Content:  v[0].(string),
			Tags:     v[1].([]string),
			Keywords: v[2].([]string),
			Summary:  v[3].(string),
		}
	})
}

func TestProperty_FilterFamiliesAreConjunctive(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	// 组合条件等于各条件分别匹配的交集
	properties.Property("query and tags combine with AND", prop.ForAll(
		func(m *domain.Memory, q string, tags []string) bool {
			both := Match(domain.MemoryFilter{Query: q, Tags: tags}, m)
			onlyQ := Match(domain.MemoryFilter{Query: q}, m)
			onlyT := Match(domain.MemoryFilter{Tags: tags}, m)
			return both == (onlyQ && onlyT)
		},
		genMemory(),
		gen.AlphaString(),
		genTags(),
	))

	// 标签过滤列表越长，匹配越严格
	properties.Property("adding a required tag never widens the match", prop.ForAll(
		func(m *domain.Memory, tags []string, extra string) bool {
			wider := Match(domain.MemoryFilter{Tags: tags}, m)
			narrower := Match(domain.MemoryFilter{Tags: append(append([]string{}, tags...), extra)}, m)
			return !narrower || wider
		},
		genMemory(),
		genTags(),
		gen.OneConstOf("a", "b", "rule", "z"),
	))

	// 内容中的任意子串都能被检索到，不论大小写
	properties.Property("any content substring matches case-insensitively", prop.ForAll(
		func(content string, i, j int) bool {
			if len(content) == 0 {
				return true
			}
			i, j = i%len(content), j%len(content)
			if i > j {
				i, j = j, i
			}
			m := &domain.Memory{Content: content}
			return Match(domain.MemoryFilter{Query: strings.ToUpper(content[i : j+1])}, m)
		},
		gen.AlphaString(),
		gen.IntRange(0, 1000),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}

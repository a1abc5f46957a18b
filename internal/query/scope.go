package query

import (
	"encoding/json"
	"strings"

	"github.com/haierkeys/memory-server/internal/domain"

	"gorm.io/gorm"
)

// likeEscape LIKE 转义字符，避开各数据库对反斜杠的不同处理
const likeEscape = "!"

var likeReplacer = strings.NewReplacer(
	likeEscape, likeEscape+likeEscape,
	"%", likeEscape+"%",
	"_", likeEscape+"_",
)

// Newest 按 created_at DESC, id DESC 排序
func Newest(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("id DESC")
}

// Scope 返回 SQL 预过滤条件
// 预过滤结果是最终结果的超集，最终由 Match 精确判断
// 只对精确标签使用，自由文本的大小写折叠在 SQL 中不可移植，不做预过滤
func Scope(f domain.MemoryFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, tag := range f.Tags {
			if prefilterable(tag) {
				db = db.Where("tags LIKE ? ESCAPE '"+likeEscape+"'", tagPattern(tag))
			}
		}
		if len(f.AnyTags) > 0 && allPrefilterable(f.AnyTags) {
			or := db.Session(&gorm.Session{NewDB: true})
			for i, tag := range f.AnyTags {
				if i == 0 {
					or = or.Where("tags LIKE ? ESCAPE '"+likeEscape+"'", tagPattern(tag))
				} else {
					or = or.Or("tags LIKE ? ESCAPE '"+likeEscape+"'", tagPattern(tag))
				}
			}
			db = db.Where(or)
		}
		return db
	}
}

// tagPattern 构造匹配 JSON 数组中某个元素的 LIKE 模式
// 编码方式与写入列时一致（encoding/json）
func tagPattern(tag string) string {
	encoded, _ := json.Marshal(tag)
	return "%" + likeReplacer.Replace(string(encoded)) + "%"
}

// prefilterable 标签的 JSON 编码在各数据库中是否一致
// encoding/json 会转义 HTML 字符和控制字符，而 MySQL JSON 列会规范化为原字符，这类标签不做预过滤
func prefilterable(tag string) bool {
	for _, r := range tag {
		if r < 0x20 || r == '<' || r == '>' || r == '&' || r == '\u2028' || r == '\u2029' {
			return false
		}
	}
	return true
}

func allPrefilterable(tags []string) bool {
	for _, tag := range tags {
		if !prefilterable(tag) {
			return false
		}
	}
	return true
}

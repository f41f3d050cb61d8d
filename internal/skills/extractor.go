// Package skills 实现技能提取、技能匹配评分以及基于匹配结果的导出和学习计划。
package skills

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"careercraft-go/internal/catalog"
)

// shortSkillLen 不超过该长度的技能只做整词匹配，避免 "r"、"go" 之类误命中
const shortSkillLen = 2

// Extractor 基于固定词表的技能提取器，构建后只读，可并发使用
type Extractor struct {
	entries []entry
}

type entry struct {
	name     string
	patterns []string
}

// NewExtractor 根据词表构建提取器。名称和别名在构建时归一化一次。
func NewExtractor(vocab []catalog.Skill) *Extractor {
	e := &Extractor{entries: make([]entry, 0, len(vocab))}
	for _, s := range vocab {
		name := strings.ToLower(strings.TrimSpace(s.Name))
		if name == "" {
			continue
		}
		ent := entry{name: name}
		for _, raw := range append([]string{s.Name}, s.Aliases...) {
			if p := Normalize(raw); p != "" {
				ent.patterns = append(ent.patterns, p)
			}
		}
		e.entries = append(e.entries, ent)
	}
	return e
}

// Normalize 转小写，把 + # . 以外的标点替换为空格并合并空白。
// 词首词尾的 "." 视为句号去掉，"node.js" 这类中间的点保留。
func Normalize(text string) string {
	lowered := strings.ToLower(text)
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case r == '+', r == '#', r == '.':
			return r
		default:
			return ' '
		}
	}, lowered)

	fields := strings.Fields(mapped)
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".")
		if f != "" {
			out = append(out, f)
		}
	}
	return strings.Join(out, " ")
}

// Extract 返回文本中出现的词表技能（规范名），排序去重。
// 空文本返回空切片而不是 nil。
func (e *Extractor) Extract(text string) []string {
	found := []string{}
	normalized := Normalize(text)
	if normalized == "" {
		return found
	}
	padded := " " + normalized + " "

	seen := make(map[string]bool)
	for _, ent := range e.entries {
		if seen[ent.name] {
			continue
		}
		for _, p := range ent.patterns {
			if containsSkill(padded, p) {
				seen[ent.name] = true
				found = append(found, ent.name)
				break
			}
		}
	}
	sort.Strings(found)
	return found
}

func containsSkill(padded, pattern string) bool {
	if utf8.RuneCountInString(pattern) <= shortSkillLen {
		return strings.Contains(padded, " "+pattern+" ")
	}
	return strings.Contains(padded, pattern)
}

package skills

import (
	"math"
	"strings"

	"careercraft-go/internal/catalog"
)

// MatchResult 技能匹配结果，Matched 与 Missing 保持 required 的顺序
type MatchResult struct {
	Matched []string `json:"matched"`
	Missing []string `json:"missing"`
	Score   int      `json:"score"`
}

// CategoryCoverage 单个分组的覆盖情况
type CategoryCoverage struct {
	Category string   `json:"category"`
	Weight   float64  `json:"weight"`
	Matched  []string `json:"matched"`
	Missing  []string `json:"missing"`
	Score    int      `json:"score"`
}

// WeightedResult 分组加权匹配结果
type WeightedResult struct {
	Categories []CategoryCoverage `json:"categories"`
	Score      int                `json:"score"`
}

// Match 比较用户技能与要求技能，忽略大小写。
// Score = floor(匹配数 / 要求数 × 100)，没有要求时为 100。
func Match(userSkills, required []string) MatchResult {
	res := MatchResult{Matched: []string{}, Missing: []string{}}

	have := toSet(userSkills)
	req := dedupeLower(required)
	if len(req) == 0 {
		res.Score = 100
		return res
	}

	for _, s := range req {
		if have[s] {
			res.Matched = append(res.Matched, s)
		} else {
			res.Missing = append(res.Missing, s)
		}
	}
	res.Score = percent(len(res.Matched), len(req))
	return res
}

// MatchRole 按角色名匹配；未知角色视为没有要求
func MatchRole(userSkills []string, c *catalog.Catalog, role string) MatchResult {
	r, ok := c.Role(role)
	if !ok {
		return Match(userSkills, nil)
	}
	return Match(userSkills, r.Required)
}

// WeightedMatch 按 core/tools/advanced 分组计算覆盖率并加权。
// 权重只在非空分组之间重新归一化；所有分组都为空时得分为 100。
func WeightedMatch(userSkills []string, cats catalog.Categories, w catalog.Weights) WeightedResult {
	groups := []struct {
		name   string
		skills []string
		weight float64
	}{
		{"core", cats.Core, w.Core},
		{"tools", cats.Tools, w.Tools},
		{"advanced", cats.Advanced, w.Advanced},
	}

	totalWeight := 0.0
	nonEmpty := 0
	for _, g := range groups {
		if len(g.skills) > 0 {
			totalWeight += g.weight
			nonEmpty++
		}
	}

	res := WeightedResult{Categories: []CategoryCoverage{}}
	if nonEmpty == 0 {
		res.Score = 100
		return res
	}

	sum := 0.0
	for _, g := range groups {
		if len(g.skills) == 0 {
			continue
		}
		weight := 1.0 / float64(nonEmpty)
		if totalWeight > 0 {
			weight = g.weight / totalWeight
		}
		m := Match(userSkills, g.skills)
		res.Categories = append(res.Categories, CategoryCoverage{
			Category: g.name,
			Weight:   weight,
			Matched:  m.Matched,
			Missing:  m.Missing,
			Score:    m.Score,
		})
		coverage := 100.0
		if n := len(m.Matched) + len(m.Missing); n > 0 {
			coverage = float64(len(m.Matched)) / float64(n) * 100
		}
		sum += weight * coverage
	}
	res.Score = clamp(int(math.Floor(sum + 1e-9)))
	return res
}

// WeightedMatchRole 按角色名做分组加权匹配；未知角色得分 100
func WeightedMatchRole(userSkills []string, c *catalog.Catalog, role string) WeightedResult {
	r, ok := c.Role(role)
	if !ok {
		return WeightedMatch(userSkills, catalog.Categories{}, c.Weights)
	}
	return WeightedMatch(userSkills, r.Categories, c.Weights)
}

// BestRole 返回得分最高的角色，得分相同时取靠前的角色
func BestRole(userSkills []string, c *catalog.Catalog) (string, MatchResult) {
	bestName := ""
	best := MatchResult{Score: -1}
	for _, r := range c.Roles {
		m := Match(userSkills, r.Required)
		if m.Score > best.Score {
			bestName, best = r.Name, m
		}
	}
	return bestName, best
}

func percent(part, total int) int {
	if total == 0 {
		return 100
	}
	return clamp(part * 100 / total)
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if k := strings.ToLower(strings.TrimSpace(v)); k != "" {
			set[k] = true
		}
	}
	return set
}

func dedupeLower(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		k := strings.ToLower(strings.TrimSpace(v))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

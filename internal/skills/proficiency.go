package skills

import (
	"strings"

	"careercraft-go/internal/catalog"
)

// 熟练度估计值：掌握的技能取 75（不超过目标值），未掌握的取 25
const (
	knownLevel   = 75
	unknownLevel = 25
)

// ProficiencyPoint 雷达图上的一个点
type ProficiencyPoint struct {
	Skill   string `json:"skill"`
	Target  int    `json:"target"`
	Current int    `json:"current"`
}

// Proficiency 估算用户在角色各项能力上的当前水平。未知角色使用第一个角色的数据。
// 两个名称互相包含（忽略大小写）即认为用户具备该能力。
func Proficiency(userSkills []string, c *catalog.Catalog, role string) []ProficiencyPoint {
	r, ok := c.Role(role)
	if !ok {
		r = c.DefaultRole()
	}

	have := make([]string, 0, len(userSkills))
	for _, s := range userSkills {
		if k := strings.ToLower(strings.TrimSpace(s)); k != "" {
			have = append(have, k)
		}
	}

	points := make([]ProficiencyPoint, 0, len(r.Proficiency))
	for _, p := range r.Proficiency {
		current := unknownLevel
		if hasRelated(have, strings.ToLower(p.Skill)) {
			current = min(p.Target, knownLevel)
		}
		points = append(points, ProficiencyPoint{Skill: p.Skill, Target: p.Target, Current: current})
	}
	return points
}

func hasRelated(have []string, skill string) bool {
	for _, h := range have {
		if strings.Contains(skill, h) || strings.Contains(h, skill) {
			return true
		}
	}
	return false
}

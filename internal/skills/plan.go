package skills

import (
	"fmt"

	"careercraft-go/internal/catalog"
	"careercraft-go/internal/constants"
)

// weeksPerMonth 学习计划按每月 4 周折算
const weeksPerMonth = 4

// AllSkillsMessage 没有缺失技能时的提示
const AllSkillsMessage = "You already have all the required skills!"

// PlanItem 学习计划中的一项
type PlanItem struct {
	Skill      string `json:"skill"`
	Priority   string `json:"priority"`
	Weeks      int    `json:"duration_weeks"`
	Difficulty string `json:"difficulty"`
	StartWeek  int    `json:"start_week"`
	EndWeek    int    `json:"end_week"`
}

// LearningPlan 按顺序排布的学习计划
type LearningPlan struct {
	Message    string     `json:"message,omitempty"`
	TotalWeeks int        `json:"total_duration_weeks"`
	Items      []PlanItem `json:"plan"`
	Completion string     `json:"completion_rate,omitempty"`
	Deferred   []string   `json:"deferred,omitempty"`
}

// BuildLearningPlan 依次排布缺失技能，总时长不超过 months×4 周；放不下的技能记入 Deferred。
// months 不大于 0 时使用默认月数。
func BuildLearningPlan(missing []string, c *catalog.Catalog, months int) LearningPlan {
	if months <= 0 {
		months = constants.DefaultPlanMonths
	}

	skills := dedupeLower(missing)
	plan := LearningPlan{Items: []PlanItem{}}
	if len(skills) == 0 {
		plan.Message = AllSkillsMessage
		return plan
	}

	budget := months * weeksPerMonth
	for _, s := range skills {
		hint := c.LearningHint(s)
		if plan.TotalWeeks+hint.Weeks > budget {
			plan.Deferred = append(plan.Deferred, s)
			continue
		}
		plan.Items = append(plan.Items, PlanItem{
			Skill:      s,
			Priority:   hint.Priority,
			Weeks:      hint.Weeks,
			Difficulty: hint.Difficulty,
			StartWeek:  plan.TotalWeeks + 1,
			EndWeek:    plan.TotalWeeks + hint.Weeks,
		})
		plan.TotalWeeks += hint.Weeks
	}
	plan.Completion = fmt.Sprintf("%d/%d skills", len(plan.Items), len(skills))
	return plan
}

package ats

import "strings"

// ImprovementReport 综合改进报告
type ImprovementReport struct {
	OverallScore       int      `json:"overall_score"`
	Feedback           []string `json:"feedback"`
	PriorityActions    []string `json:"priority_actions"`
	KeywordSuggestions []string `json:"keyword_suggestions"`
	NextSteps          []string `json:"next_steps"`
}

var (
	lowScoreActions = []string{
		"Add more relevant keywords naturally throughout the resume",
		"Include quantifiable achievements with numbers and percentages",
		"Ensure all standard sections are present and clearly labeled",
		"Use action verbs to describe your accomplishments",
	}
	midScoreActions = []string{
		"Optimize keyword density without stuffing",
		"Add more technical skills relevant to the role",
		"Include metrics and numbers to quantify achievements",
		"Improve readability and formatting",
	}
	highScoreActions = []string{
		"Fine-tune keyword placement",
		"Add more specific technical details",
		"Consider adding relevant certifications or projects",
	}
)

// KeywordSuggestions 返回角色建议关键词中 current 尚未包含的部分；未知角色返回空列表
func (s *Scorer) KeywordSuggestions(role string, current []string) []string {
	out := []string{}
	r, ok := s.catalog.Role(role)
	if !ok {
		return out
	}
	have := make(map[string]bool, len(current))
	for _, c := range current {
		have[strings.ToLower(strings.TrimSpace(c))] = true
	}
	for _, sug := range r.KeywordSuggestions {
		if !have[strings.ToLower(sug)] {
			out = append(out, sug)
		}
	}
	return out
}

// ImprovementReport 按得分区间给出优先行动项，并附上角色相关的下一步建议。
// 简历中已经出现的建议关键词不再重复推荐。
func (s *Scorer) ImprovementReport(text, role string) ImprovementReport {
	res := s.Score(text, role)

	var actions []string
	switch {
	case res.Score < 60:
		actions = lowScoreActions
	case res.Score < 80:
		actions = midScoreActions
	default:
		actions = highScoreActions
	}

	lower := strings.ToLower(text)
	var present []string
	if r, ok := s.catalog.Role(role); ok {
		for _, sug := range r.KeywordSuggestions {
			if strings.Contains(lower, strings.ToLower(sug)) {
				present = append(present, sug)
			}
		}
	}

	nextSteps := []string{}
	if r, ok := s.catalog.Role(role); ok && r.NextSteps != nil {
		nextSteps = r.NextSteps
	}

	return ImprovementReport{
		OverallScore:       res.Score,
		Feedback:           res.Feedback,
		PriorityActions:    append([]string(nil), actions...),
		KeywordSuggestions: s.KeywordSuggestions(role, present),
		NextSteps:          nextSteps,
	}
}

package handler

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"

	"careercraft-go/internal/catalog"
	"careercraft-go/internal/constants"
	"careercraft-go/internal/resume"
	"careercraft-go/internal/skills"
)

// resolveRole 角色为空时按技能推断最佳角色
func (h *Handler) resolveRole(role string, userSkills []string) string {
	if role = strings.TrimSpace(role); role != "" {
		return role
	}
	best, _ := skills.BestRole(userSkills, h.Catalog)
	return best
}

// ExtractSkills POST /skills/extract
func (h *Handler) ExtractSkills(ctx context.Context, c *app.RequestContext) {
	var req TextRequest
	if !bind(c, &req) {
		return
	}
	found := h.Skills.Extract(req.Text)
	c.JSON(http.StatusOK, utils.H{
		"skills":  found,
		"contact": resume.ExtractContactInfo(req.Text),
	})
}

// MatchSkills POST /skills/match
func (h *Handler) MatchSkills(ctx context.Context, c *app.RequestContext) {
	var req SkillsRequest
	if !bind(c, &req) {
		return
	}
	role := h.resolveRole(req.Role, req.Skills)
	c.JSON(http.StatusOK, utils.H{
		"role":        role,
		"match":       skills.MatchRole(req.Skills, h.Catalog, role),
		"weighted":    skills.WeightedMatchRole(req.Skills, h.Catalog, role),
		"proficiency": skills.Proficiency(req.Skills, h.Catalog, role),
	})
}

// ExportSkills POST /skills/export，返回 text/csv
func (h *Handler) ExportSkills(ctx context.Context, c *app.RequestContext) {
	var req SkillsRequest
	if !bind(c, &req) {
		return
	}
	role := h.resolveRole(req.Role, req.Skills)

	var buf bytes.Buffer
	if err := skills.WriteCSV(&buf, skills.MatchRole(req.Skills, h.Catalog, role)); err != nil {
		h.logger.Error().Err(err).Msg("导出 CSV 失败")
		writeError(c, http.StatusInternalServerError, "导出 CSV 失败")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="skill_match.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ScoreATS POST /ats/score
func (h *Handler) ScoreATS(ctx context.Context, c *app.RequestContext) {
	var req TextRequest
	if !bind(c, &req) {
		return
	}
	text := resume.Clean(req.Text)
	role := h.resolveRole(req.Role, h.Skills.Extract(text))
	c.JSON(http.StatusOK, h.ATS.Score(text, role))
}

// ATSReport POST /ats/report
func (h *Handler) ATSReport(ctx context.Context, c *app.RequestContext) {
	var req TextRequest
	if !bind(c, &req) {
		return
	}
	text := resume.Clean(req.Text)
	role := h.resolveRole(req.Role, h.Skills.Extract(text))
	c.JSON(http.StatusOK, h.ATS.ImprovementReport(text, role))
}

// LearningPlan POST /learning-plan，skills 为已掌握的技能
func (h *Handler) LearningPlan(ctx context.Context, c *app.RequestContext) {
	var req LearningPlanRequest
	if !bind(c, &req) {
		return
	}
	months := req.Months
	if months == 0 {
		months = constants.DefaultPlanMonths
	}
	role := h.resolveRole(req.Role, req.Skills)
	match := skills.MatchRole(req.Skills, h.Catalog, role)
	c.JSON(http.StatusOK, utils.H{
		"role":           role,
		"missing":        match.Missing,
		"plan":           skills.BuildLearningPlan(match.Missing, h.Catalog, months),
		"certifications": h.Catalog.Certifications(role),
	})
}

// Courses GET /courses?skills=a,b
func (h *Handler) Courses(ctx context.Context, c *app.RequestContext) {
	courses := []catalog.Course{}
	unknown := []string{}
	for _, s := range strings.Split(c.Query("skills"), ",") {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if course, ok := h.Catalog.Course(s); ok {
			courses = append(courses, course)
		} else {
			unknown = append(unknown, s)
		}
	}
	c.JSON(http.StatusOK, utils.H{"courses": courses, "no_course": unknown})
}

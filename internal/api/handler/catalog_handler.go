package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"

	"careercraft-go/internal/catalog"
)

// lookupRole 未知角色返回 404
func (h *Handler) lookupRole(c *app.RequestContext) (catalog.Role, bool) {
	name := c.Param("role")
	r, ok := h.Catalog.Role(name)
	if !ok {
		writeError(c, http.StatusNotFound, "未知角色: "+name)
		return catalog.Role{}, false
	}
	return r, true
}

// Roles GET /roles
func (h *Handler) Roles(ctx context.Context, c *app.RequestContext) {
	c.JSON(http.StatusOK, utils.H{"roles": h.Catalog.RoleNames()})
}

// Role GET /roles/:role
func (h *Handler) Role(ctx context.Context, c *app.RequestContext) {
	r, ok := h.lookupRole(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, utils.H{
		"role":            r,
		"resume_template": h.Catalog.ResumeTemplateURL(r.Name),
	})
}

// Salary GET /roles/:role/salary
func (h *Handler) Salary(ctx context.Context, c *app.RequestContext) {
	r, ok := h.lookupRole(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, utils.H{"role": r.Name, "salary_bands": r.SalaryBands})
}

// Progression GET /roles/:role/progression
func (h *Handler) Progression(ctx context.Context, c *app.RequestContext) {
	r, ok := h.lookupRole(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, utils.H{
		"role":        r.Name,
		"progression": r.Progression,
		"portfolio":   r.Portfolio,
		"next_steps":  r.NextSteps,
	})
}

// InterviewPrep GET /roles/:role/interview
func (h *Handler) InterviewPrep(ctx context.Context, c *app.RequestContext) {
	r, ok := h.lookupRole(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, utils.H{
		"role":       r.Name,
		"questions":  h.Interview.Questions(r.Name),
		"prep_links": h.Interview.PrepLinks(),
	})
}

// Jobs GET /jobs?role=&location=&remote=
func (h *Handler) Jobs(ctx context.Context, c *app.RequestContext) {
	remote, _ := strconv.ParseBool(c.DefaultQuery("remote", "false"))
	jobs := h.Catalog.FindJobs(catalog.JobQuery{
		Role:       c.Query("role"),
		Location:   c.Query("location"),
		RemoteOnly: remote,
	})
	if jobs == nil {
		jobs = []catalog.JobPosting{}
	}
	c.JSON(http.StatusOK, utils.H{"jobs": jobs, "count": len(jobs)})
}

// Communities GET /communities
func (h *Handler) Communities(ctx context.Context, c *app.RequestContext) {
	c.JSON(http.StatusOK, utils.H{"communities": h.Catalog.Communities()})
}

package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, []string{"Data Analyst", "Backend Developer", "ML Engineer", "Frontend Developer", "DevOps Engineer"}, c.RoleNames())
	assert.NotEmpty(t, c.Vocabulary())
	assert.InDelta(t, 1.0, c.Weights.Core+c.Weights.Tools+c.Weights.Advanced, 1e-9)
}

func TestRoleLookupIsCaseInsensitive(t *testing.T) {
	c := MustDefault()

	for _, name := range []string{"Data Analyst", "data analyst", "  DATA   analyst "} {
		r, ok := c.Role(name)
		require.True(t, ok, name)
		assert.Equal(t, []string{"python", "sql", "excel", "statistics"}, r.Required)
	}

	_, ok := c.Role("Astronaut")
	assert.False(t, ok)
}

func TestEveryRequiredSkillIsInVocabulary(t *testing.T) {
	c := MustDefault()
	vocab := make(map[string]bool)
	for _, s := range c.Vocabulary() {
		vocab[s.Name] = true
	}
	for _, r := range c.Roles {
		for _, s := range r.Required {
			assert.True(t, vocab[s], "角色 %s 的技能 %s 不在词表中", r.Name, s)
		}
		assert.NotEmpty(t, r.ATSKeywords, r.Name)
		assert.Len(t, r.SimulatorQuestions, 5, r.Name)
	}
}

func TestJobsAndFindJobs(t *testing.T) {
	c := MustDefault()

	assert.Len(t, c.JobsForRole("ML Engineer"), 10)
	assert.Empty(t, c.JobsForRole("unknown"))
	assert.NotNil(t, c.JobsForRole("unknown"))

	remote := c.FindJobs(JobQuery{Role: "Backend Developer", RemoteOnly: true})
	require.NotEmpty(t, remote)
	for _, j := range remote {
		assert.True(t, j.IsRemote())
	}

	chennai := c.FindJobs(JobQuery{Location: "chennai"})
	require.NotEmpty(t, chennai)
	for _, j := range chennai {
		assert.Equal(t, "Chennai", j.Location)
	}
}

func TestCourseAndLearningHint(t *testing.T) {
	c := MustDefault()

	course, ok := c.Course("SQL")
	require.True(t, ok)
	assert.Equal(t, "https://www.coursera.org/learn/sql-for-data-science", course.URL)

	_, ok = c.Course("cobol")
	assert.False(t, ok)

	assert.Equal(t, 12, c.LearningHint("Machine Learning").Weeks)
	h := c.LearningHint("excel")
	assert.Equal(t, "medium", h.Priority)
	assert.Equal(t, 4, h.Weeks)
	assert.Equal(t, "excel", h.Skill)
}

func TestResumeTemplateFallback(t *testing.T) {
	c := MustDefault()
	assert.Contains(t, c.ResumeTemplateURL("ML Engineer"), "machine-learning-engineer")
	assert.Equal(t, "https://www.overleaf.com/gallery", c.ResumeTemplateURL("Chef"))
	assert.Empty(t, c.Certifications("Chef"))
	assert.Len(t, c.Certifications("Data Analyst"), 6)
}

func TestValidateRejectsBadData(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no roles", "skills: [{name: python}]"},
		{"duplicate role", "roles: [{name: A}, {name: a}]"},
		{"uppercase required", "roles: [{name: A, required: [Python]}]"},
		{"uppercase alias", "roles: [{name: A}]\nskills: [{name: go, aliases: [Golang]}]"},
		{"duplicate skill", "roles: [{name: A}]\nskills: [{name: go}, {name: go}]"},
		{"negative weight", "roles: [{name: A}]\nweights: {core: -1}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `
roles:
  - name: Tester
    required: [qa]
skills:
  - name: qa
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	r, ok := c.Role("tester")
	require.True(t, ok)
	assert.Equal(t, []string{"qa"}, r.Required)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

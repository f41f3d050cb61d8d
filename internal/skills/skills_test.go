package skills

import (
	"bytes"
	"strings"
	"testing"

	"careercraft-go/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testExtractor(t *testing.T) (*Extractor, *catalog.Catalog) {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	return NewExtractor(c.Vocabulary()), c
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "c++ c# node.js and go", Normalize("C++, C#; Node.js and Go."))
	assert.Equal(t, "ci cd pipelines", Normalize("CI/CD   pipelines!"))
	assert.Equal(t, "", Normalize("  \t\n "))
}

func TestExtract(t *testing.T) {
	e, _ := testExtractor(t)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", []string{}},
		{"whitespace", "   \n\t", []string{}},
		{"basic", "Experienced in Python, SQL and Excel.", []string{"excel", "python", "sql"}},
		{"alias maps to canonical name", "Built dashboards in PowerBI on K8s", []string{"kubernetes", "power bi"}},
		{"short skill needs whole word", "Strong background in algorithms and ergonomics", []string{}},
		{"short skill as word", "I write Go and R daily.", []string{"go", "r"}},
		{"punctuation inside skill", "Set up CI/CD with Docker", []string{"ci/cd", "docker"}},
		{"multi word", "Applied machine learning and deep learning", []string{"deep learning", "machine learning"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.text)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractIsIdempotentUnderLowercase(t *testing.T) {
	e, _ := testExtractor(t)
	inputs := []string{
		"PYTHON Developer with SQL, AWS and TensorFlow",
		"Node.JS, React.js, TypeScript; HTML/CSS",
		"Excel-Statistics-Tableau",
		"",
	}
	for _, in := range inputs {
		assert.Equal(t, e.Extract(in), e.Extract(strings.ToLower(in)), in)
	}
}

func TestMatchDataAnalystExample(t *testing.T) {
	got := Match([]string{"Python", "Statistics"}, []string{"python", "sql", "excel", "statistics"})
	assert.Equal(t, []string{"python", "statistics"}, got.Matched)
	assert.Equal(t, []string{"sql", "excel"}, got.Missing)
	assert.Equal(t, 50, got.Score)
}

func TestMatchProperties(t *testing.T) {
	_, c := testExtractor(t)

	for _, r := range c.Roles {
		empty := Match(nil, r.Required)
		assert.Empty(t, empty.Matched, r.Name)
		assert.Equal(t, r.Required, empty.Missing, r.Name)
		assert.Equal(t, 0, empty.Score, r.Name)

		full := Match(r.Required, r.Required)
		assert.Equal(t, 100, full.Score, r.Name)
		assert.Empty(t, full.Missing, r.Name)

		// 逐个加入要求技能，得分不下降
		var have []string
		last := 0
		for _, s := range r.Required {
			have = append(have, strings.ToUpper(s))
			score := Match(have, r.Required).Score
			assert.GreaterOrEqual(t, score, last, r.Name)
			assert.LessOrEqual(t, score, 100)
			last = score
		}
	}
}

func TestMatchZeroRequiredAndUnknownRole(t *testing.T) {
	got := Match([]string{"python"}, nil)
	assert.Equal(t, 100, got.Score)
	assert.NotNil(t, got.Matched)
	assert.NotNil(t, got.Missing)

	_, c := testExtractor(t)
	unknown := MatchRole([]string{"python"}, c, "Space Pirate")
	assert.Equal(t, 100, unknown.Score)
	assert.Empty(t, unknown.Matched)
	assert.Empty(t, unknown.Missing)
}

func TestMatchFloorsScore(t *testing.T) {
	got := Match([]string{"a"}, []string{"a", "b", "c"})
	assert.Equal(t, 33, got.Score)
}

func TestWeightedMatch(t *testing.T) {
	cats := catalog.Categories{
		Core:     []string{"python", "sql"},
		Tools:    []string{"excel"},
		Advanced: []string{"machine learning"},
	}
	w := catalog.Weights{Core: 0.5, Tools: 0.3, Advanced: 0.2}

	got := WeightedMatch([]string{"python", "excel"}, cats, w)
	// 0.5*50 + 0.3*100 + 0.2*0 = 55
	assert.Equal(t, 55, got.Score)
	require.Len(t, got.Categories, 3)
	assert.Equal(t, "core", got.Categories[0].Category)

	// 空分组的权重重新分配：core 0.5/0.8, tools 0.3/0.8
	noAdvanced := WeightedMatch([]string{"python", "sql"}, catalog.Categories{Core: cats.Core, Tools: cats.Tools}, w)
	assert.Equal(t, 62, noAdvanced.Score)
	assert.Len(t, noAdvanced.Categories, 2)

	assert.Equal(t, 100, WeightedMatch(nil, catalog.Categories{}, w).Score)
	assert.Equal(t, 100, WeightedMatch([]string{"python", "sql", "excel", "machine learning"}, cats, w).Score)
}

func TestBestRole(t *testing.T) {
	_, c := testExtractor(t)
	name, m := BestRole([]string{"docker", "kubernetes", "ci/cd", "aws", "linux", "terraform"}, c)
	assert.Equal(t, "DevOps Engineer", name)
	assert.Equal(t, 100, m.Score)

	name, _ = BestRole(nil, c)
	assert.Equal(t, "Data Analyst", name, "得分相同取第一个角色")
}

func TestCSVRoundTrip(t *testing.T) {
	in := Match([]string{"python", "statistics"}, []string{"python", "sql", "excel", "statistics"})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, in))
	assert.True(t, strings.HasPrefix(buf.String(), "status,skill\n"))

	out, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.ElementsMatch(t, in.Matched, out.Matched)
	assert.ElementsMatch(t, in.Missing, out.Missing)
	assert.Equal(t, in.Score, out.Score)
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
	_, err = ReadCSV(strings.NewReader("a,b\n"))
	assert.Error(t, err)
	_, err = ReadCSV(strings.NewReader("status,skill\nmaybe,python\n"))
	assert.Error(t, err)
}

func TestBuildLearningPlan(t *testing.T) {
	_, c := testExtractor(t)

	done := BuildLearningPlan(nil, c, 6)
	assert.Equal(t, AllSkillsMessage, done.Message)
	assert.Empty(t, done.Items)

	// 2 个月 = 8 周: python(8) 放得下, sql(6) 放不下, excel(默认4) 放不下
	plan := BuildLearningPlan([]string{"python", "sql", "excel"}, c, 2)
	require.Len(t, plan.Items, 1)
	assert.Equal(t, PlanItem{Skill: "python", Priority: "high", Weeks: 8, Difficulty: "medium", StartWeek: 1, EndWeek: 8}, plan.Items[0])
	assert.Equal(t, 8, plan.TotalWeeks)
	assert.Equal(t, "1/3 skills", plan.Completion)
	assert.Equal(t, []string{"sql", "excel"}, plan.Deferred)

	full := BuildLearningPlan([]string{"sql", "excel"}, c, 0)
	require.Len(t, full.Items, 2)
	assert.Equal(t, 7, full.Items[1].StartWeek)
	assert.Equal(t, 10, full.Items[1].EndWeek)
	assert.LessOrEqual(t, full.TotalWeeks, 24)
}

func TestProficiencyIsDeterministic(t *testing.T) {
	_, c := testExtractor(t)

	points := Proficiency([]string{"python", "machine learning"}, c, "Data Analyst")
	require.Len(t, points, 8)
	byName := map[string]ProficiencyPoint{}
	for _, p := range points {
		byName[p.Skill] = p
	}
	assert.Equal(t, 75, byName["Python"].Current)
	assert.Equal(t, 70, byName["Machine Learning"].Current, "不超过目标值")
	assert.Equal(t, 25, byName["SQL"].Current)

	assert.Equal(t, points, Proficiency([]string{"python", "machine learning"}, c, "Data Analyst"))
	assert.Equal(t, Proficiency(nil, c, "Data Analyst"), Proficiency(nil, c, "Unknown"))
}

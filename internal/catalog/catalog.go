// Package catalog 提供角色、技能词表、岗位、课程等静态数据及其类型化访问。
// 数据来自内置的 catalog.yaml，也可以通过配置指定外部文件覆盖。
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// Skill 技能词表条目，名称与别名均为小写
type Skill struct {
	Name    string   `yaml:"name" json:"name"`
	Aliases []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
}

// Categories 加权匹配使用的技能分组
type Categories struct {
	Core     []string `yaml:"core" json:"core"`
	Tools    []string `yaml:"tools" json:"tools"`
	Advanced []string `yaml:"advanced" json:"advanced"`
}

// KeywordCategory ATS 关键词分组，按声明顺序参与评分
type KeywordCategory struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// CoverLetterTemplate 求职信段落模板，[Company] 为公司名占位符
type CoverLetterTemplate struct {
	Opening string `yaml:"opening" json:"opening"`
	Body    string `yaml:"body" json:"body"`
	Closing string `yaml:"closing" json:"closing"`
}

// Stage 职业发展阶段
type Stage struct {
	Title    string   `yaml:"title" json:"title"`
	Duration string   `yaml:"duration" json:"duration"`
	Skills   []string `yaml:"skills" json:"skills"`
}

// SalaryBand 按工作年限划分的薪资区间(USD)
type SalaryBand struct {
	Experience string `yaml:"experience" json:"experience"`
	Min        int    `yaml:"min" json:"min"`
	Max        int    `yaml:"max" json:"max"`
}

// ProficiencyTarget 角色对某项能力的目标熟练度(0-100)
type ProficiencyTarget struct {
	Skill  string `yaml:"skill" json:"skill"`
	Target int    `yaml:"target" json:"target"`
}

// Portfolio 作品集建议
type Portfolio struct {
	Projects []string `yaml:"projects" json:"projects"`
	Tools    []string `yaml:"tools" json:"tools"`
}

// Certification 认证路线中的一项
type Certification struct {
	Level    string `yaml:"level" json:"level"`
	Name     string `yaml:"name" json:"name"`
	Provider string `yaml:"provider" json:"provider"`
	Duration string `yaml:"duration" json:"duration"`
	Cost     string `yaml:"cost" json:"cost"`
}

// JobPosting 静态岗位信息，运行期间不会被修改
type JobPosting struct {
	Title        string   `yaml:"title" json:"title"`
	Company      string   `yaml:"company" json:"company"`
	Location     string   `yaml:"location" json:"location"`
	Link         string   `yaml:"link" json:"link"`
	Salary       string   `yaml:"salary,omitempty" json:"salary,omitempty"`
	Requirements []string `yaml:"requirements,omitempty" json:"requirements,omitempty"`
	Remote       bool     `yaml:"remote,omitempty" json:"remote"`
}

// Role 目标岗位类别
type Role struct {
	Name                string              `yaml:"name" json:"name"`
	Required            []string            `yaml:"required" json:"required"`
	Categories          Categories          `yaml:"categories" json:"categories"`
	ATSKeywords         []KeywordCategory   `yaml:"ats_keywords" json:"ats_keywords"`
	KeywordSuggestions  []string            `yaml:"keyword_suggestions" json:"keyword_suggestions"`
	NextSteps           []string            `yaml:"next_steps" json:"next_steps"`
	InterviewQuestions  []string            `yaml:"interview_questions" json:"interview_questions"`
	SimulatorQuestions  []string            `yaml:"simulator_questions" json:"simulator_questions"`
	CoverLetterTips     []string            `yaml:"cover_letter_tips" json:"cover_letter_tips"`
	CoverLetterTemplate CoverLetterTemplate `yaml:"cover_letter_template" json:"cover_letter_template"`
	ResumeTemplateURL   string              `yaml:"resume_template_url" json:"resume_template_url"`
	Progression         []Stage             `yaml:"progression" json:"progression"`
	SalaryBands         []SalaryBand        `yaml:"salary_bands" json:"salary_bands"`
	Proficiency         []ProficiencyTarget `yaml:"proficiency" json:"proficiency"`
	Portfolio           Portfolio           `yaml:"portfolio" json:"portfolio"`
	Certifications      []Certification     `yaml:"certifications,omitempty" json:"certifications,omitempty"`
	Jobs                []JobPosting        `yaml:"jobs" json:"-"`
}

// Course 技能对应的课程链接
type Course struct {
	Skill    string `yaml:"skill" json:"skill"`
	URL      string `yaml:"url" json:"url"`
	Provider string `yaml:"provider,omitempty" json:"provider,omitempty"`
}

// LearningHint 学习计划中某个技能的优先级、耗时和难度
type LearningHint struct {
	Skill      string `yaml:"skill" json:"skill"`
	Priority   string `yaml:"priority" json:"priority"`
	Weeks      int    `yaml:"weeks" json:"weeks"`
	Difficulty string `yaml:"difficulty" json:"difficulty"`
}

// PrepLink 面试准备资源
type PrepLink struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// Platform 社区平台及推荐去处
type Platform struct {
	Name  string `yaml:"name" json:"name"`
	Links string `yaml:"links" json:"links"`
}

// Community 某个技术方向的社区推荐
type Community struct {
	Domain    string     `yaml:"domain" json:"domain"`
	Platforms []Platform `yaml:"platforms" json:"platforms"`
}

// Weights 分组加权匹配的权重
type Weights struct {
	Core     float64 `yaml:"core" json:"core"`
	Tools    float64 `yaml:"tools" json:"tools"`
	Advanced float64 `yaml:"advanced" json:"advanced"`
}

// Catalog 全部静态数据
type Catalog struct {
	Version                string         `yaml:"version"`
	Weights                Weights        `yaml:"weights"`
	DefaultTemplateURL     string         `yaml:"default_template_url"`
	Skills                 []Skill        `yaml:"skills"`
	Roles                  []Role         `yaml:"roles"`
	GeneralCoverLetterTips []string       `yaml:"general_cover_letter_tips"`
	Courses                []Course       `yaml:"courses"`
	LearningHints          []LearningHint `yaml:"learning_hints"`
	PrepLinksList          []PrepLink     `yaml:"prep_links"`
	CommunityList          []Community    `yaml:"communities"`

	roleIndex   map[string]int
	courseIndex map[string]int
	hintIndex   map[string]int
}

// DefaultLearningHint 词表中没有学习提示的技能使用的默认值
var DefaultLearningHint = LearningHint{Priority: "medium", Weeks: 4, Difficulty: "medium"}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default 返回内置数据构成的 Catalog，只解析一次
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(embeddedCatalog)
	})
	return defaultCatalog, defaultErr
}

// MustDefault 与 Default 相同，解析失败时 panic。内置数据在测试中已校验。
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(fmt.Sprintf("加载内置 catalog 失败: %v", err))
	}
	return c
}

// Load 从文件加载 Catalog；path 为空时使用内置数据
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取 catalog 文件 %s 失败: %w", path, err)
	}
	return Parse(data)
}

// Parse 解析 YAML 并校验
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("解析 catalog 失败: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.buildIndex()
	return &c, nil
}

// Validate 检查角色名唯一、技能名为小写、权重非负
func (c *Catalog) Validate() error {
	if len(c.Roles) == 0 {
		return fmt.Errorf("catalog 中没有角色")
	}

	seenRoles := make(map[string]bool, len(c.Roles))
	for _, r := range c.Roles {
		key := roleKey(r.Name)
		if key == "" {
			return fmt.Errorf("角色名不能为空")
		}
		if seenRoles[key] {
			return fmt.Errorf("重复的角色名: %s", r.Name)
		}
		seenRoles[key] = true

		lists := [][]string{r.Required, r.Categories.Core, r.Categories.Tools, r.Categories.Advanced}
		for _, list := range lists {
			if err := checkLowercase(r.Name, list); err != nil {
				return err
			}
		}
		for _, kc := range r.ATSKeywords {
			if err := checkLowercase(r.Name, kc.Keywords); err != nil {
				return err
			}
		}
	}

	seenSkills := make(map[string]bool, len(c.Skills))
	for _, s := range c.Skills {
		if err := checkLowercase("skills", append([]string{s.Name}, s.Aliases...)); err != nil {
			return err
		}
		if seenSkills[s.Name] {
			return fmt.Errorf("重复的技能: %s", s.Name)
		}
		seenSkills[s.Name] = true
	}

	for _, course := range c.Courses {
		if err := checkLowercase("courses", []string{course.Skill}); err != nil {
			return err
		}
	}
	for _, h := range c.LearningHints {
		if err := checkLowercase("learning_hints", []string{h.Skill}); err != nil {
			return err
		}
		if h.Weeks <= 0 {
			return fmt.Errorf("技能 %s 的学习周数必须为正数", h.Skill)
		}
	}

	if c.Weights.Core < 0 || c.Weights.Tools < 0 || c.Weights.Advanced < 0 {
		return fmt.Errorf("分组权重不能为负数")
	}
	return nil
}

func checkLowercase(owner string, values []string) error {
	for _, v := range values {
		if v == "" {
			return fmt.Errorf("%s: 技能名不能为空", owner)
		}
		if v != strings.ToLower(v) {
			return fmt.Errorf("%s: 技能名必须为小写: %q", owner, v)
		}
	}
	return nil
}

func (c *Catalog) buildIndex() {
	c.roleIndex = make(map[string]int, len(c.Roles))
	for i, r := range c.Roles {
		c.roleIndex[roleKey(r.Name)] = i
	}
	c.courseIndex = make(map[string]int, len(c.Courses))
	for i, course := range c.Courses {
		c.courseIndex[course.Skill] = i
	}
	c.hintIndex = make(map[string]int, len(c.LearningHints))
	for i, h := range c.LearningHints {
		c.hintIndex[h.Skill] = i
	}
}

func roleKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Role 按名称查找角色，忽略大小写和多余空白
func (c *Catalog) Role(name string) (Role, bool) {
	i, ok := c.roleIndex[roleKey(name)]
	if !ok {
		return Role{}, false
	}
	return c.Roles[i], true
}

// RoleNames 按声明顺序返回全部角色名
func (c *Catalog) RoleNames() []string {
	names := make([]string, 0, len(c.Roles))
	for _, r := range c.Roles {
		names = append(names, r.Name)
	}
	return names
}

// Vocabulary 返回技能词表
func (c *Catalog) Vocabulary() []Skill {
	return c.Skills
}

// JobsForRole 返回角色的静态岗位列表；未知角色返回空列表
func (c *Catalog) JobsForRole(role string) []JobPosting {
	r, ok := c.Role(role)
	if !ok {
		return []JobPosting{}
	}
	return r.Jobs
}

// JobQuery 岗位过滤条件，空字段表示不过滤
type JobQuery struct {
	Role       string
	Location   string
	RemoteOnly bool
}

// FindJobs 按条件过滤岗位。Role 为空时检索所有角色。
func (c *Catalog) FindJobs(q JobQuery) []JobPosting {
	var source []JobPosting
	if strings.TrimSpace(q.Role) != "" {
		source = c.JobsForRole(q.Role)
	} else {
		for _, r := range c.Roles {
			source = append(source, r.Jobs...)
		}
	}

	location := strings.ToLower(strings.TrimSpace(q.Location))
	out := make([]JobPosting, 0, len(source))
	for _, j := range source {
		if q.RemoteOnly && !j.IsRemote() {
			continue
		}
		if location != "" && !strings.Contains(strings.ToLower(j.Location), location) {
			continue
		}
		out = append(out, j)
	}
	return out
}

// IsRemote 岗位是否支持远程
func (j JobPosting) IsRemote() bool {
	return j.Remote || strings.EqualFold(j.Location, "remote")
}

// Course 查找技能对应的课程
func (c *Catalog) Course(skill string) (Course, bool) {
	i, ok := c.courseIndex[strings.ToLower(strings.TrimSpace(skill))]
	if !ok {
		return Course{}, false
	}
	return c.Courses[i], true
}

// LearningHint 返回技能的学习提示，没有配置时返回默认值
func (c *Catalog) LearningHint(skill string) LearningHint {
	key := strings.ToLower(strings.TrimSpace(skill))
	if i, ok := c.hintIndex[key]; ok {
		return c.LearningHints[i]
	}
	h := DefaultLearningHint
	h.Skill = key
	return h
}

// PrepLinks 面试准备资源
func (c *Catalog) PrepLinks() []PrepLink {
	return c.PrepLinksList
}

// Communities 社区推荐
func (c *Catalog) Communities() []Community {
	return c.CommunityList
}

// Certifications 返回角色的认证路线；未知角色返回空列表
func (c *Catalog) Certifications(role string) []Certification {
	r, ok := c.Role(role)
	if !ok || r.Certifications == nil {
		return []Certification{}
	}
	return r.Certifications
}

// ResumeTemplateURL 返回角色的简历模板链接，未知角色返回通用模板库
func (c *Catalog) ResumeTemplateURL(role string) string {
	if r, ok := c.Role(role); ok && r.ResumeTemplateURL != "" {
		return r.ResumeTemplateURL
	}
	return c.DefaultTemplateURL
}

// DefaultRole 返回第一个角色，用于未知角色的 ATS 关键词回退
func (c *Catalog) DefaultRole() Role {
	return c.Roles[0]
}

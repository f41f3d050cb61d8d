// Package ats 计算简历的 ATS 兼容性评分并生成改进建议。
// 评分由四项启发式组成：关键词、格式结构、内容质量、ATS 兼容性。
package ats

import (
	"fmt"
	"regexp"
	"strings"

	"careercraft-go/internal/catalog"
)

// 各分项名称，同时作为 Result.Components 的键
const (
	ComponentKeywords      = "keywords"
	ComponentFormat        = "format"
	ComponentContent       = "content"
	ComponentCompatibility = "compatibility"
)

// NoTextFeedback 空输入时的唯一反馈
const NoTextFeedback = "No resume text provided"

// Weights 四个分项的权重。默认值是经验值，可通过配置调整。
type Weights struct {
	Keywords      float64 `json:"keywords"`
	Format        float64 `json:"format"`
	Content       float64 `json:"content"`
	Compatibility float64 `json:"compatibility"`
}

// DefaultWeights 默认权重 0.40/0.25/0.20/0.15
var DefaultWeights = Weights{Keywords: 0.40, Format: 0.25, Content: 0.20, Compatibility: 0.15}

func (w Weights) isZero() bool {
	return w.Keywords == 0 && w.Format == 0 && w.Content == 0 && w.Compatibility == 0
}

// Result ATS 评分结果。Components 为各分项 0-100 的原始分。
type Result struct {
	Score      int                `json:"score"`
	Feedback   []string           `json:"feedback"`
	Components map[string]float64 `json:"components"`
	Role       string             `json:"role"`
}

// Scorer ATS 评分器，构建后只读
type Scorer struct {
	catalog *catalog.Catalog
	weights Weights
}

// NewScorer 创建评分器；权重全为 0 时使用默认权重
func NewScorer(c *catalog.Catalog, w Weights) *Scorer {
	if w.isZero() {
		w = DefaultWeights
	}
	return &Scorer{catalog: c, weights: w}
}

// Weights 返回评分器使用的权重
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score 计算简历得分和反馈。空文本得 0 分；未知角色使用第一个角色的关键词。
func (s *Scorer) Score(text, role string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{
			Score:      0,
			Feedback:   []string{NoTextFeedback},
			Components: map[string]float64{},
			Role:       role,
		}
	}

	r, ok := s.catalog.Role(role)
	if !ok {
		r = s.catalog.DefaultRole()
	}

	feedback := []string{}
	components := make(map[string]float64, 4)

	kw, kwFeedback := analyzeKeywords(text, r.ATSKeywords)
	components[ComponentKeywords] = kw
	feedback = append(feedback, kwFeedback...)

	format, formatFeedback := analyzeFormat(text)
	components[ComponentFormat] = format
	feedback = append(feedback, formatFeedback...)

	content, contentFeedback := analyzeContent(text)
	components[ComponentContent] = content
	feedback = append(feedback, contentFeedback...)

	compat, compatFeedback := analyzeCompatibility(text)
	components[ComponentCompatibility] = compat
	feedback = append(feedback, compatFeedback...)

	total := kw*s.weights.Keywords +
		format*s.weights.Format +
		content*s.weights.Content +
		compat*s.weights.Compatibility

	feedback = append([]string{verdict(total)}, feedback...)

	return Result{
		Score:      clampScore(int(total)),
		Feedback:   feedback,
		Components: components,
		Role:       r.Name,
	}
}

func verdict(total float64) string {
	switch {
	case total >= 80:
		return "✅ Excellent! Your resume is well-optimized for ATS systems."
	case total >= 60:
		return "⚠️ Good resume, but there's room for improvement."
	default:
		return "❌ Your resume needs significant improvements for ATS optimization."
	}
}

func clampScore(score int) int {
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}

// analyzeKeywords 关键词覆盖率与密度
func analyzeKeywords(text string, categories []catalog.KeywordCategory) (float64, []string) {
	lower := strings.ToLower(text)
	feedback := []string{}
	total, found := 0, 0

	for _, cat := range categories {
		catFound := 0
		var missing []string
		for _, kw := range cat.Keywords {
			total++
			if strings.Contains(lower, strings.ToLower(kw)) {
				catFound++
				found++
			} else {
				missing = append(missing, kw)
			}
		}

		switch {
		case catFound == 0:
			feedback = append(feedback, fmt.Sprintf("❌ No %s keywords found. Consider adding: %s", cat.Name, strings.Join(firstN(missing, 3), ", ")))
		case float64(catFound) < float64(len(cat.Keywords))*0.5:
			feedback = append(feedback, fmt.Sprintf("⚠️ Few %s keywords found. Consider adding: %s", cat.Name, strings.Join(firstN(missing, 2), ", ")))
		default:
			feedback = append(feedback, fmt.Sprintf("✅ Good %s keyword coverage!", cat.Name))
		}
	}

	score := 0.0
	if total > 0 {
		score = float64(found) / float64(total) * 100
	}

	words := len(strings.Fields(text))
	density := float64(found) / float64(words) * 100
	switch {
	case density > 3:
		feedback = append(feedback, "⚠️ Keyword density is too high. Avoid keyword stuffing.")
		score *= 0.9
	case density < 0.5:
		feedback = append(feedback, "❌ Keyword density is too low. Include more relevant keywords naturally.")
	}
	return score, feedback
}

var formatSections = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"contact", regexp.MustCompile(`(?i)(email|phone|linkedin|github)`)},
	{"summary", regexp.MustCompile(`(?i)(summary|objective|profile|about)`)},
	{"experience", regexp.MustCompile(`(?i)(experience|employment|work|career)`)},
	{"education", regexp.MustCompile(`(?i)(education|degree|university|college)`)},
	{"skills", regexp.MustCompile(`(?i)(skills|competencies|technical)`)},
}

var numberPattern = regexp.MustCompile(`\d+`)

// analyzeFormat 章节完整性、篇幅、项目符号和量化数据
func analyzeFormat(text string) (float64, []string) {
	score := 100.0
	feedback := []string{}

	var missing []string
	for _, sec := range formatSections {
		if !sec.pattern.MatchString(text) {
			missing = append(missing, sec.name)
			score -= 15
		}
	}
	if len(missing) > 0 {
		feedback = append(feedback, "❌ Missing sections: "+strings.Join(missing, ", "))
	}

	words := len(strings.Fields(text))
	switch {
	case words < 300:
		feedback = append(feedback, "❌ Resume is too short. Aim for 300-800 words.")
		score -= 20
	case words > 1000:
		feedback = append(feedback, "⚠️ Resume is quite long. Consider condensing to 600-800 words.")
		score -= 10
	default:
		feedback = append(feedback, "✅ Good resume length!")
	}

	bullets := strings.Count(text, "•") + strings.Count(text, "-") + strings.Count(text, "*")
	if bullets < 5 {
		feedback = append(feedback, "⚠️ Use more bullet points to improve readability.")
		score -= 10
	}

	if len(numberPattern.FindAllString(text, -1)) < 3 {
		feedback = append(feedback, "❌ Add more quantifiable achievements (numbers, percentages, etc.).")
		score -= 15
	}

	return max(0, score), feedback
}

var actionVerbs = []string{
	"achieved", "developed", "managed", "led", "created", "implemented",
	"designed", "optimized", "analyzed", "built", "improved", "increased",
}

var passiveIndicators = []string{"was", "were", "been", "being"}

// analyzeContent 可读性、动作动词、被动语态和重复用词
func analyzeContent(text string) (float64, []string) {
	score := 100.0
	feedback := []string{}
	lower := strings.ToLower(text)

	if ease, ok := FleschReadingEase(text); ok {
		switch {
		case ease < 30:
			feedback = append(feedback, "❌ Text is too complex. Simplify language for better readability.")
			score -= 20
		case ease > 80:
			feedback = append(feedback, "⚠️ Text might be too simple. Add more professional terminology.")
			score -= 10
		default:
			feedback = append(feedback, "✅ Good readability level!")
		}
	}

	verbs := 0
	for _, v := range actionVerbs {
		if strings.Contains(lower, v) {
			verbs++
		}
	}
	if verbs < 3 {
		feedback = append(feedback, "❌ Use more action verbs to describe your achievements.")
		score -= 15
	}

	words := strings.Fields(lower)
	passive := 0
	for _, p := range passiveIndicators {
		passive += strings.Count(lower, p)
	}
	if float64(passive)/float64(len(words)) > 0.1 {
		feedback = append(feedback, "⚠️ Reduce passive voice. Use more active voice statements.")
		score -= 10
	}

	if repeated := repetitiveWords(words); len(repeated) > 0 {
		feedback = append(feedback, "⚠️ Words used too frequently: "+strings.Join(firstN(repeated, 3), ", "))
		score -= 10
	}

	return max(0, score), feedback
}

// repetitiveWords 返回出现超过 5 次且长度大于 4 的词，按首次出现顺序
func repetitiveWords(words []string) []string {
	counts := make(map[string]int, len(words))
	var order []string
	for _, w := range words {
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	var out []string
	for _, w := range order {
		if counts[w] > 5 && len(w) > 4 {
			out = append(out, w)
		}
	}
	return out
}

var problematicChars = []string{"@", "#", "$", "%", "^", "&", "*", "(", ")", "[", "]", "{", "}"}

var (
	standardHeaders    = []string{"experience", "education", "skills", "summary"}
	nonStandardHeaders = []string{"expertise", "qualifications", "competencies"}
)

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`),
	regexp.MustCompile(`\b\d{4}[/-]\d{1,2}[/-]\d{1,2}\b`),
	regexp.MustCompile(`\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d{4}\b`),
}

// analyzeCompatibility 特殊字符、表格、标准标题、邮箱和日期格式
func analyzeCompatibility(text string) (float64, []string) {
	score := 100.0
	feedback := []string{}
	lower := strings.ToLower(text)

	special := 0
	for _, ch := range problematicChars {
		special += strings.Count(text, ch)
	}
	if special > 10 {
		feedback = append(feedback, "⚠️ Reduce special characters that might confuse ATS systems.")
		score -= 15
	}

	if strings.ContainsAny(text, "\t|") {
		feedback = append(feedback, "⚠️ Avoid tables and columns. Use simple formatting.")
		score -= 20
	}

	if !containsAny(lower, standardHeaders) && containsAny(lower, nonStandardHeaders) {
		feedback = append(feedback, "⚠️ Use standard section headers (Experience, Education, Skills, etc.).")
		score -= 10
	}

	if !strings.Contains(text, "@") {
		feedback = append(feedback, "❌ Include email address in standard format.")
		score -= 20
	}

	dated := false
	for _, p := range datePatterns {
		if p.MatchString(text) {
			dated = true
			break
		}
	}
	if !dated {
		feedback = append(feedback, "⚠️ Include dates in standard format (Jan 2020, 01/2020, etc.).")
		score -= 10
	}

	return max(0, score), feedback
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func firstN(values []string, n int) []string {
	if len(values) > n {
		return values[:n]
	}
	return values
}

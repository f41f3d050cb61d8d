package resume

import (
	"regexp"
	"strings"
)

// Quality 简历完整性检查结果
type Quality struct {
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
	Score       int      `json:"quality_score"`
}

// minResumeChars 少于该字符数认为简历过短
const minResumeChars = 500

// Validate 检查篇幅、联系方式和必备章节。每个问题扣 15 分，最低 0 分。
func Validate(text string) Quality {
	q := Quality{Issues: []string{}, Suggestions: []string{}}

	if len(strings.TrimSpace(text)) < minResumeChars {
		q.Issues = append(q.Issues, "Resume seems too short")
		q.Suggestions = append(q.Suggestions, "Add more details about your experience and skills")
	}

	info := ExtractContactInfo(text)
	if info.Email == "" {
		q.Issues = append(q.Issues, "No email address found")
		q.Suggestions = append(q.Suggestions, "Include a professional email address")
	}
	if info.Phone == "" {
		q.Issues = append(q.Issues, "No phone number found")
		q.Suggestions = append(q.Suggestions, "Include a contact phone number")
	}

	sections := ExtractSections(text)
	for _, name := range []string{SectionExperience, SectionSkills, SectionEducation} {
		if _, ok := sections[name]; !ok {
			q.Issues = append(q.Issues, "Missing "+name+" section")
			q.Suggestions = append(q.Suggestions, "Add a clear "+name+" section")
		}
	}

	lower := strings.ToLower(text)
	if strings.Count(lower, "experience") < 2 {
		q.Suggestions = append(q.Suggestions, "Include more details about your work experience")
	}
	if strings.Count(lower, "skill") < 3 {
		q.Suggestions = append(q.Suggestions, "Highlight more of your technical and soft skills")
	}

	q.Score = max(0, 100-len(q.Issues)*15)
	return q
}

// Stats 简历基本统计
type Stats struct {
	Words      int `json:"word_count"`
	Sentences  int `json:"sentence_count"`
	Characters int `json:"character_count"`
	Paragraphs int `json:"paragraph_count"`
}

var sentenceEnd = regexp.MustCompile(`[.!?]+`)

// Statistics 统计词数、句数、字符数和段落数，空文本返回零值
func Statistics(text string) Stats {
	if text == "" {
		return Stats{}
	}

	var s Stats
	s.Words = len(strings.Fields(text))
	for _, sent := range sentenceEnd.Split(text, -1) {
		if strings.TrimSpace(sent) != "" {
			s.Sentences++
		}
	}
	s.Characters = len([]rune(text))
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) != "" {
			s.Paragraphs++
		}
	}
	return s
}

package resume

import (
	"regexp"
	"strings"
)

// 章节名称
const (
	SectionEducation      = "education"
	SectionExperience     = "experience"
	SectionSkills         = "skills"
	SectionProjects       = "projects"
	SectionCertifications = "certifications"
	SectionSummary        = "summary"
)

// maxHeaderLen 超过该长度的行不视为章节标题
const maxHeaderLen = 50

// maxSectionLines 每个章节最多保留的行数
const maxSectionLines = 10

var sectionPatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{SectionEducation, regexp.MustCompile(`(education|academic|qualification|degree)`)},
	{SectionExperience, regexp.MustCompile(`(experience|employment|work|career|professional)`)},
	{SectionSkills, regexp.MustCompile(`(skills|competencies|technical|technologies)`)},
	{SectionProjects, regexp.MustCompile(`(projects|portfolio|work samples)`)},
	{SectionCertifications, regexp.MustCompile(`(certifications?|certificates?|licenses?)`)},
	{SectionSummary, regexp.MustCompile(`(summary|objective|profile|about)`)},
}

func isHeader(line string) bool {
	if len(line) >= maxHeaderLen {
		return false
	}
	lower := strings.ToLower(line)
	for _, sp := range sectionPatterns {
		if sp.pattern.MatchString(lower) {
			return true
		}
	}
	return false
}

// ExtractSections 按标题行切分章节。每个章节取第一个匹配的标题，
// 内容到下一个标题为止，最多 10 行；没有内容的章节不返回。
func ExtractSections(text string) map[string]string {
	sections := make(map[string]string)
	lines := strings.Split(text, "\n")

	for _, sp := range sectionPatterns {
		for i, line := range lines {
			trimmed := strings.TrimSpace(line)
			if len(trimmed) >= maxHeaderLen || !sp.pattern.MatchString(strings.ToLower(line)) {
				continue
			}

			var content []string
			for _, next := range lines[i+1:] {
				next = strings.TrimSpace(next)
				if next == "" {
					continue
				}
				if isHeader(next) {
					break
				}
				content = append(content, next)
			}
			if len(content) > 0 {
				if len(content) > maxSectionLines {
					content = content[:maxSectionLines]
				}
				sections[sp.name] = strings.Join(content, "\n")
			}
			break
		}
	}
	return sections
}

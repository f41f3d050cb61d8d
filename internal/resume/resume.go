// Package resume 提供简历文本的清洗、联系方式提取、章节切分、质量检查和统计。
package resume

import (
	"regexp"
	"strings"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \f\v\r]+`)
	tabRun          = regexp.MustCompile(` ?\t[ \t]*`)
	wordChar        = regexp.MustCompile(`\w`)
	bulletGlyphs    = regexp.MustCompile(`[•\x{f0b7}\x{f0a7}\x{f0d8}\x{f0e0}]\s*`)
	nonASCII        = regexp.MustCompile(`[^\x00-\x7F]+`)
	pageNumberLine  = regexp.MustCompile(`^\d+$`)
	symbolOnlyLine  = regexp.MustCompile(`^[^\w\s]+$`)
)

// minLineLen 不超过该长度且不含字母数字的行视为噪音
const minLineLen = 3

// Clean 清洗提取出的文本：合并行内空白，统一项目符号为 "• "，去掉非 ASCII 字符，
// 去掉纯页码行、纯符号行和过短的噪音行。"SQL"、"Go" 这类短技能行保留。
// 换行保留用于章节切分，制表符合并为单个 \t，ATS 兼容性检查依赖它识别分栏。
func Clean(text string) string {
	if text == "" {
		return ""
	}

	text = bulletGlyphs.ReplaceAllString(text, "\x00")
	text = nonASCII.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "\x00", "• ")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = horizontalSpace.ReplaceAllString(line, " ")
		line = strings.TrimSpace(tabRun.ReplaceAllString(line, "\t"))
		if line == "" || pageNumberLine.MatchString(line) || symbolOnlyLine.MatchString(line) {
			continue
		}
		if len(line) <= minLineLen && !wordChar.MatchString(line) {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// ContactInfo 简历中的联系方式，未找到的字段为空
type ContactInfo struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty"`
}

var (
	emailPattern  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\+\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`),
		regexp.MustCompile(`(\+\d{1,3}[-.\s]?)?\d{10}`),
	}
	linkedInPattern = regexp.MustCompile(`linkedin\.com/in/[a-zA-Z0-9-]+`)
	gitHubPattern   = regexp.MustCompile(`github\.com/[a-zA-Z0-9-]+`)
)

// ExtractContactInfo 提取邮箱、电话、LinkedIn 和 GitHub 链接
func ExtractContactInfo(text string) ContactInfo {
	var info ContactInfo
	info.Email = emailPattern.FindString(text)
	for _, p := range phonePatterns {
		if m := p.FindString(text); m != "" {
			info.Phone = strings.TrimSpace(m)
			break
		}
	}
	if m := linkedInPattern.FindString(text); m != "" {
		info.LinkedIn = "https://" + m
	}
	if m := gitHubPattern.FindString(text); m != "" {
		info.GitHub = "https://" + m
	}
	return info
}

// Package report 根据分析记录生成可下载的 CSV/文本报告并写入对象存储。
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gorm.io/datatypes"

	"careercraft-go/internal/catalog"
	"careercraft-go/internal/skills"
	"careercraft-go/internal/storage/models"
	"careercraft-go/pkg/utils"
)

// MatchFromRecord 还原记录中的匹配结果
func MatchFromRecord(rec *models.AnalysisRecord) skills.MatchResult {
	return skills.MatchResult{
		Matched: jsonList(rec.MatchedSkills),
		Missing: jsonList(rec.MissingSkills),
		Score:   rec.SkillScore,
	}
}

// BuildCSV 生成 status,skill 两列的技能报告
func BuildCSV(rec *models.AnalysisRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := skills.WriteCSV(&buf, MatchFromRecord(rec)); err != nil {
		return nil, fmt.Errorf("生成 CSV 报告失败: %w", err)
	}
	return buf.Bytes(), nil
}

// BuildText 生成纯文本摘要，cat 为空时省略课程和下一步建议
func BuildText(rec *models.AnalysisRecord, cat *catalog.Catalog) []byte {
	m := MatchFromRecord(rec)
	var b strings.Builder

	fmt.Fprintf(&b, "Career Analysis Report\n")
	fmt.Fprintf(&b, "Record: %s\n", rec.RecordID)
	fmt.Fprintf(&b, "Generated: %s\n", rec.CreatedAt.UTC().Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "Target role: %s\n\n", rec.Role)

	fmt.Fprintf(&b, "Skill match score: %d%%\n", rec.SkillScore)
	fmt.Fprintf(&b, "Weighted match score: %d%%\n", rec.WeightedScore)
	fmt.Fprintf(&b, "ATS score: %d/100\n", rec.ATSScore)
	writeComponents(&b, rec.ATSComponents)
	if rec.WordCount > 0 {
		fmt.Fprintf(&b, "Word count: %d\n", rec.WordCount)
	}

	writeList(&b, "Skills found", jsonList(rec.Skills))
	writeList(&b, "Matched skills", m.Matched)
	writeList(&b, "Missing skills", m.Missing)
	writeList(&b, "ATS feedback", jsonList(rec.ATSFeedback))

	if cat != nil {
		var courses []string
		for _, s := range m.Missing {
			if c, ok := cat.Course(s); ok {
				courses = append(courses, fmt.Sprintf("%s: %s", c.Skill, c.URL))
			}
		}
		writeList(&b, "Recommended courses", courses)
		if r, ok := cat.Role(rec.Role); ok {
			writeList(&b, "Next steps", r.NextSteps)
		}
	}
	return []byte(b.String())
}

// jsonList 解析 JSON 字符串数组，格式错误时返回空列表
func jsonList(data datatypes.JSON) []string {
	out, err := utils.ParseJSONArray(data)
	if err != nil {
		return []string{}
	}
	return out
}

// writeComponents 按名称排序输出 ATS 分项得分
func writeComponents(b *strings.Builder, data datatypes.JSON) {
	var comps map[string]float64
	if len(data) == 0 || json.Unmarshal(data, &comps) != nil || len(comps) == 0 {
		return
	}
	names := make([]string, 0, len(comps))
	for name := range comps {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(b, "  %s: %.0f\n", name, comps[name])
	}
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "  - %s\n", it)
	}
}

package skills

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	statusMatched = "matched"
	statusMissing = "missing"
)

var csvHeader = []string{"status", "skill"}

// WriteCSV 导出匹配结果，表头为 status,skill，先 matched 后 missing
func WriteCSV(w io.Writer, r MatchResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("写入 CSV 表头失败: %w", err)
	}
	for _, s := range r.Matched {
		if err := cw.Write([]string{statusMatched, s}); err != nil {
			return fmt.Errorf("写入 CSV 行失败: %w", err)
		}
	}
	for _, s := range r.Missing {
		if err := cw.Write([]string{statusMissing, s}); err != nil {
			return fmt.Errorf("写入 CSV 行失败: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV 解析 WriteCSV 的输出，Score 按行数重新计算
func ReadCSV(r io.Reader) (MatchResult, error) {
	res := MatchResult{Matched: []string{}, Missing: []string{}}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return res, fmt.Errorf("CSV 内容为空")
	}
	if err != nil {
		return res, fmt.Errorf("读取 CSV 表头失败: %w", err)
	}
	if strings.TrimSpace(header[0]) != csvHeader[0] || strings.TrimSpace(header[1]) != csvHeader[1] {
		return res, fmt.Errorf("CSV 表头不正确: %v", header)
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("读取 CSV 行失败: %w", err)
		}
		switch strings.TrimSpace(rec[0]) {
		case statusMatched:
			res.Matched = append(res.Matched, rec[1])
		case statusMissing:
			res.Missing = append(res.Missing, rec[1])
		default:
			return res, fmt.Errorf("未知的状态值: %q", rec[0])
		}
	}

	res.Score = percent(len(res.Matched), len(res.Matched)+len(res.Missing))
	return res, nil
}

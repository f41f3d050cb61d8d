package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"careercraft-go/internal/ats"
	"careercraft-go/internal/catalog"
	"careercraft-go/internal/parser"
	"careercraft-go/internal/processor"
	"careercraft-go/internal/session"
	"careercraft-go/internal/skills"
)

func loadCatalog() (*catalog.Catalog, error) {
	if *catalogPath == "" {
		return catalog.Default()
	}
	return catalog.Load(*catalogPath)
}

func openOutput() (io.Writer, func(), error) {
	if *outputFile == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(*outputFile)
	if err != nil {
		return nil, nil, fmt.Errorf("创建输出文件失败: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// analyze 在内存会话上运行完整分析流水线
func analyze(ctx context.Context, cat *catalog.Catalog, path, role string) (*processor.Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}

	var comps []processor.ComponentOpt
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		extractor, err := parser.NewEinoPDFTextExtractor(ctx)
		if err != nil {
			return nil, fmt.Errorf("创建PDF提取器失败: %w", err)
		}
		comps = append(comps, processor.WithExtractor(extractor))
	}

	store := session.NewMemoryStore(time.Hour)
	comps = append(comps,
		processor.WithCatalog(cat),
		processor.WithSkillExtractor(skills.NewExtractor(cat.Vocabulary())),
		processor.WithScorer(ats.NewScorer(cat, ats.DefaultWeights)),
		processor.WithStore(store),
	)
	proc, err := processor.NewCareerProcessor(processor.NewComponents(comps...), nil)
	if err != nil {
		return nil, err
	}

	sess, err := store.Create(ctx)
	if err != nil {
		return nil, err
	}
	return proc.AnalyzeUpload(ctx, sess, filepath.Base(path), data, role)
}

func runAnalyze() error {
	if *inputFile == "" {
		return fmt.Errorf("必须提供简历文件路径 (-f)")
	}
	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	a, err := analyze(ctx, cat, *inputFile, *targetRole)
	if err != nil {
		return err
	}
	if a.Warning != "" {
		fmt.Fprintf(os.Stderr, "警告: %s\n", a.Warning)
	}

	w, done, err := openOutput()
	if err != nil {
		return err
	}
	defer done()

	switch *format {
	case "json":
		return writeJSON(w, a)
	case "csv":
		return skills.WriteCSV(w, a.Match)
	default:
		return fmt.Errorf("不支持的输出格式: %s", *format)
	}
}

// runPlan 针对简历缺失的技能生成学习计划
func runPlan() error {
	if *inputFile == "" {
		return fmt.Errorf("必须提供简历文件路径 (-f)")
	}
	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	a, err := analyze(ctx, cat, *inputFile, *targetRole)
	if err != nil {
		return err
	}

	w, done, err := openOutput()
	if err != nil {
		return err
	}
	defer done()

	plan := skills.BuildLearningPlan(a.Match.Missing, cat, *months)
	if *format == "json" {
		return writeJSON(w, map[string]any{"role": a.Role, "plan": plan})
	}
	fmt.Fprintf(w, "目标职位: %s (匹配度 %d%%)\n", a.Role, a.Match.Score)
	if plan.Message != "" {
		fmt.Fprintln(w, plan.Message)
	}
	for _, it := range plan.Items {
		fmt.Fprintf(w, "第%d-%d周  %-20s %s/%s\n", it.StartWeek, it.EndWeek, it.Skill, it.Priority, it.Difficulty)
	}
	if len(plan.Deferred) > 0 {
		fmt.Fprintf(w, "顺延: %v\n", plan.Deferred)
	}
	return nil
}

func runRoles() error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	w, done, err := openOutput()
	if err != nil {
		return err
	}
	defer done()

	if *format == "json" {
		return writeJSON(w, cat.RoleNames())
	}
	for _, name := range cat.RoleNames() {
		fmt.Fprintln(w, name)
	}
	return nil
}

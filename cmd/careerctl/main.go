// careerctl 离线分析工具：不依赖任何外部服务，直接对本地简历文件运行分析流水线。
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// 命令行参数定义
var (
	inputFile   = pflag.StringP("file", "f", "", "简历文件路径，支持 .pdf 和 .txt (analyze 必填)")
	targetRole  = pflag.StringP("role", "r", "", "目标职位，为空时使用最匹配的职位")
	format      = pflag.String("format", "json", "输出格式: json 或 csv")
	months      = pflag.Int("months", 6, "学习计划的月数 (plan)")
	catalogPath = pflag.String("catalog", "", "自定义职业数据文件，为空时使用内置数据")
	outputFile  = pflag.StringP("output", "o", "", "输出文件，为空时写到标准输出")
)

func usage() {
	fmt.Fprintf(os.Stderr, "用法: careerctl <analyze|plan|roles> [参数]\n\n")
	pflag.PrintDefaults()
}

func main() {
	pflag.Usage = usage
	pflag.Parse()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	var err error
	switch cmd := pflag.Arg(0); cmd {
	case "analyze":
		err = runAnalyze()
	case "plan":
		err = runPlan()
	case "roles":
		err = runRoles()
	default:
		fmt.Fprintf(os.Stderr, "错误: 未知命令 '%s'。支持的命令: analyze, plan, roles\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

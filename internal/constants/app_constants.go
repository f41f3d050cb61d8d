package constants

import "time"

const (
	// 应用级常量
	AppName       = "careercraft"
	CatalogSchema = "1"

	// 报告相关
	EventAnalysisCompleted = "analysis.completed"
	ReportObjectPrefix     = "reports"
	ReportCSVName          = "report.csv"
	ReportTextName         = "report.txt"

	// ATS 结果缓存默认时长
	ATSCacheDuration = 30 * time.Minute

	// 默认月份数（学习计划）
	DefaultPlanMonths = 6
)

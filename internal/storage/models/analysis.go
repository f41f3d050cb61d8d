package models

import (
	"time"

	"gorm.io/datatypes"
)

// 报告生成状态
const (
	ReportStatusPending = "PENDING"
	ReportStatusReady   = "READY"
	ReportStatusFailed  = "FAILED"
	// 未启用报告链路时写入
	ReportStatusSkipped = "SKIPPED"
)

// 分析来源
const (
	SourceText   = "text"
	SourceUpload = "upload"
)

// AnalysisRecord 一次简历分析的历史记录
type AnalysisRecord struct {
	RecordID      string         `gorm:"type:char(36);primaryKey"`
	SessionID     string         `gorm:"type:char(36);not null;index:idx_analysis_session_created"`
	Role          string         `gorm:"type:varchar(100);not null"`
	Source        string         `gorm:"type:varchar(20);not null"`
	Filename      string         `gorm:"type:varchar(255)"`
	TextMD5       string         `gorm:"type:char(32);index"`
	WordCount     int            `gorm:"not null;default:0"`
	SkillScore    int            `gorm:"not null;default:0"`
	WeightedScore int            `gorm:"not null;default:0"`
	ATSScore      int            `gorm:"not null;default:0"`
	Skills        datatypes.JSON `gorm:"type:json"`
	MatchedSkills datatypes.JSON `gorm:"type:json"`
	MissingSkills datatypes.JSON `gorm:"type:json"`
	ATSFeedback   datatypes.JSON `gorm:"type:json"`
	ATSComponents datatypes.JSON `gorm:"type:json"`
	ReportStatus  string         `gorm:"type:varchar(20);default:'PENDING';not null"`
	ReportPrefix  string         `gorm:"type:varchar(255)"`
	ReportError   string         `gorm:"type:text"`
	CreatedAt     time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_analysis_session_created,sort:desc"`
	UpdatedAt     time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (AnalysisRecord) TableName() string {
	return "analysis_records"
}

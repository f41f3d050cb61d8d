package processor

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	ErrInvalidInput     = errors.New("无效的分析请求")
	ErrParseTextFailed  = errors.New("提取简历文本失败")
	ErrSaveSessionError = errors.New("保存会话失败")
	ErrNotConfigured    = errors.New("处理器缺少必要组件")
)

// AnalysisError 包含详细错误信息的自定义错误
type AnalysisError struct {
	SessionID string
	Op        string
	BaseErr   error
	Detail    string
}

func (e *AnalysisError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, 会话:%s): %s", e.BaseErr, e.Op, e.SessionID, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, 会话:%s)", e.BaseErr, e.Op, e.SessionID)
}

func (e *AnalysisError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *AnalysisError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

func newInputError(sessionID, detail string) error {
	return &AnalysisError{SessionID: sessionID, Op: "validate", BaseErr: ErrInvalidInput, Detail: detail}
}

func newParseError(sessionID string, cause error) error {
	return &AnalysisError{SessionID: sessionID, Op: "parse", BaseErr: fmt.Errorf("%w: %w", ErrParseTextFailed, cause)}
}

func newSessionError(sessionID string, cause error) error {
	return &AnalysisError{SessionID: sessionID, Op: "session", BaseErr: fmt.Errorf("%w: %w", ErrSaveSessionError, cause)}
}

package processor

import (
	"errors"
	"fmt"

	"resume-engine-go/internal/types"
)

// 处理层的哨兵错误
var (
	// ErrDuplicateContent 解析文本与已有提交内容重复，按正常流程短路处理
	ErrDuplicateContent = errors.New("解析文本内容重复")

	// ErrMissingComponent 流水线缺少必要组件
	ErrMissingComponent = errors.New("流水线缺少必要组件")

	// ErrPipelineTimeout 整条流水线超时
	ErrPipelineTimeout = errors.New("流水线处理超时")
)

// PipelineError 带阶段上下文的流水线错误
// 上层可通过 errors.Is/As 既检查底层原因，又定位失败阶段。
type PipelineError struct {
	Stage          types.PipelineStage // 失败时所处阶段
	SubmissionUUID string              // 关联的提交UUID，可为空
	BaseErr        error               // 底层错误
	Detail         string              // 补充说明
}

func (e *PipelineError) Error() string {
	msg := fmt.Sprintf("流水线在阶段 %s 失败", e.Stage)
	if e.SubmissionUUID != "" {
		msg += fmt.Sprintf(" (submission_uuid=%s)", e.SubmissionUUID)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.BaseErr != nil {
		msg += ": " + e.BaseErr.Error()
	}
	return msg
}

func (e *PipelineError) Unwrap() error {
	return e.BaseErr
}

// NewPipelineError 构造一个阶段错误
func NewPipelineError(stage types.PipelineStage, submissionUUID string, baseErr error, detail string) *PipelineError {
	return &PipelineError{
		Stage:          stage,
		SubmissionUUID: submissionUUID,
		BaseErr:        baseErr,
		Detail:         detail,
	}
}

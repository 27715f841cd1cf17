package common

import (
	"errors"
	"fmt"
	"strings"
)

// AppError 应用级错误结构
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 让同一错误码的 AppError 可以用 errors.Is 比较
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// WrapError 包装错误
func WrapError(code, message string, err error) error {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewError 创建新错误
func NewError(code, message string) error {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// CodeOf 取出错误链中第一个 AppError 的错误码
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// 错误码常量
const (
	ErrCodeGitHubAPI      = "GITHUB_API_ERROR"
	ErrCodeUnauthorized   = "GITHUB_UNAUTHORIZED"
	ErrCodeDatabase       = "DATABASE_ERROR"
	ErrCodeAIProcessing   = "AI_PROCESSING_ERROR"
	ErrCodeNotification   = "NOTIFICATION_ERROR"
	ErrCodeWebDAV         = "WEBDAV_ERROR"
	ErrCodeNetwork        = "NETWORK_ERROR"
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeCategoryInUse  = "CATEGORY_IN_USE"
	ErrCodeSyncInProgress = "SYNC_IN_PROGRESS"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// 可以用 errors.Is 判断的哨兵错误
var (
	// ErrUnauthorized 表示 GitHub Token 过期或无效，必须重新登录
	ErrUnauthorized   = &AppError{Code: ErrCodeUnauthorized}
	ErrSyncInProgress = &AppError{Code: ErrCodeSyncInProgress, Message: "同步正在进行中"}
	ErrCategoryInUse  = &AppError{Code: ErrCodeCategoryInUse}
	ErrNotFound       = &AppError{Code: ErrCodeNotFound}
)

// FieldError 是单个字段的校验失败
type FieldError struct {
	Field   string
	Message string
}

// ValidationError 在任何网络调用之前同步返回
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("[%s] %s", ErrCodeInvalidInput, strings.Join(parts, "; "))
}

// Add 追加一个字段错误
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil 没有字段错误时返回 nil
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

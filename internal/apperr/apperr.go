// Package apperr 定义服务层统一的错误类型
// 处理策略：所有错误直接上抛给调用方，内部不做恢复或重试
package apperr

import (
	"errors"
	"fmt"
)

// 哨兵错误
var (
	// ErrSessionBusy 会话正在处理另一条消息
	ErrSessionBusy = errors.New("session is processing another message")

	// ErrSessionEnded 会话已结束，不再接受新轮次
	ErrSessionEnded = errors.New("session already ended")
)

// ValidationError 请求校验失败（空消息、未知模式等）
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// NewValidation 创建校验错误
func NewValidation(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation 判断是否为校验错误
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// NotFoundError 资源不存在（未知会话等）
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NewNotFound 创建资源不存在错误
func NewNotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// IsNotFound 判断是否为资源不存在错误
func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

// InferenceReason 推理调用失败原因
type InferenceReason string

const (
	InferenceAuth        InferenceReason = "auth"         // 上游鉴权失败（401 / 无效密钥）
	InferenceRateLimited InferenceReason = "rate_limited" // 上游限流（429）
	InferenceTimeout     InferenceReason = "timeout"      // 请求超时
	InferenceUnavailable InferenceReason = "unavailable"  // 其他瞬时失败
)

// InferenceError 推理服务调用失败
// 包装上游错误，调用方据 Reason 展示并允许手动重发
type InferenceError struct {
	Reason InferenceReason
	Err    error
}

func (e *InferenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("inference failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("inference failed (%s)", e.Reason)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// NewInference 创建推理错误
func NewInference(reason InferenceReason, err error) error {
	return &InferenceError{Reason: reason, Err: err}
}

// AsInference 提取推理错误
func AsInference(err error) (*InferenceError, bool) {
	var ie *InferenceError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

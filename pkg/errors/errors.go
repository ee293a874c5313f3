package errors

import (
	"errors"
	"fmt"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ── 错误分类 ──
//
// 业务错误统一归入以下五类，Handler 层按类别映射 HTTP 状态码。
// 具体错误通过 errors.Is(err, ErrValidation) 等方式判断类别。

var (
	ErrValidation    = errors.New("validation")
	ErrConfiguration = errors.New("configuration")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotFound      = errors.New("not_found")
	ErrDependency    = errors.New("dependency")
)

// Error 带类别的业务错误
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Is 使 errors.Is 能按类别匹配
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error { return e.Cause }

// Validation 输入校验错误
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// Configuration 必要的运行配置缺失
func Configuration(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrConfiguration, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized 调用者缺少所需权限
func Unauthorized(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// NotFound 记录不存在
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

// Dependency 外部依赖（邮件、缓存等）调用失败
func Dependency(cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: ErrDependency, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Message 提取面向用户的错误信息，非分类错误返回空串
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}

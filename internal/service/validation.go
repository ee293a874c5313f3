package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "elevtinget/backend/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 错误信息中使用 JSON 字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct 按 validate 标签校验，失败时返回 Validation 错误并列出字段
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return pkgerrors.Validation("参数校验失败: %v", err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fieldMessage(fe))
	}
	return pkgerrors.Validation("参数校验失败: %s", strings.Join(fields, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_unless":
		return fe.Field() + " 为必填项"
	case "email":
		return fe.Field() + " 邮箱格式不正确"
	case "oneof":
		return fe.Field() + " 取值必须为 " + fe.Param() + " 之一"
	case "max":
		return fe.Field() + " 长度不能超过 " + fe.Param()
	case "min":
		return fe.Field() + " 不能小于 " + fe.Param()
	case "uuid":
		return fe.Field() + " 不是合法的 ID"
	}
	return fe.Field() + " 不合法"
}

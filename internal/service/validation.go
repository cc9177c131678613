package service

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"campus-planning/backend/internal/model"
)

var (
	courseCodePattern = regexp.MustCompile(`^[A-Z]{2,4}[0-9]{3}$`)
	groupNamePattern  = regexp.MustCompile(`^G[0-9]+(-[A-Z])?$`)
)

// validate 全局校验器（并发安全）
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// 字段名使用 JSON 名称，与请求体一致
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("course_code", func(fl validator.FieldLevel) bool {
		return courseCodePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("group_name", func(fl validator.FieldLevel) bool {
		return groupNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("program", func(fl validator.FieldLevel) bool {
		return model.Program(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("course_type", func(fl validator.FieldLevel) bool {
		return model.CourseType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("room_type", func(fl validator.FieldLevel) bool {
		return model.RoomType(fl.Field().String()).Valid()
	})

	return v
}

// validateStruct 校验请求结构体，失败时返回 *ValidationError
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: fieldMessage(fe),
		})
	}
	return &ValidationError{Fields: fields}
}

// fieldPath 去掉顶层结构体名：CreateCourseRequest.loads[0].type → loads[0].type
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "不能为空"
	case "email":
		return "邮箱格式无效"
	case "uuid":
		return "必须是 UUID"
	case "min", "gte":
		return "不能小于 " + fe.Param()
	case "max", "lte":
		return "不能大于 " + fe.Param()
	case "gtefield":
		return "不能小于 " + fe.Param()
	case "oneof":
		return "取值必须为 " + fe.Param() + " 之一"
	case "datetime":
		return "格式应为 " + fe.Param()
	case "course_code":
		return "格式应为 2-4 位大写字母加 3 位数字，如 INF101"
	case "group_name":
		return "格式应为 G 加数字，可带 -A 后缀，如 G1 或 G1-A"
	case "program":
		return "专业方向应为 2-4 位大写字母"
	case "course_type":
		return "教学形式应为 CM、TD 或 TP"
	case "room_type":
		return "教室类型应为 Amphi、Salle TD、Salle TP 或 Labo"
	}
	return "校验失败 (" + fe.Tag() + ")"
}

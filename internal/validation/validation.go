package validation

import (
	stderrors "errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// PhonePattern 韩国手机号，连字符可选
var PhonePattern = regexp.MustCompile(`^01[0-9]-?[0-9]{3,4}-?[0-9]{4}$`)

var once sync.Once

// Register installs the custom rules on gin's validator and makes field
// errors report json names. Safe to call more than once.
func Register() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("krphone", func(fl validator.FieldLevel) bool {
			return PhonePattern.MatchString(fl.Field().String())
		})
	})
}

// Messages maps "field.tag" to a user facing message, e.g. "name.required".
type Messages map[string]string

var defaults = Messages{
	"krphone":  "올바른 전화번호 형식이 아닙니다",
	"email":    "올바른 이메일 형식이 아닙니다",
	"required": "필수 입력 항목입니다",
	"min":      "길이가 너무 짧습니다",
	"max":      "길이가 너무 깁니다",
	"gte":      "허용 범위를 벗어났습니다",
	"lte":      "허용 범위를 벗어났습니다",
}

// FieldErrors turns a binding error into per-field messages. ok is false when
// err is not a validation failure (malformed JSON and the like).
func FieldErrors(err error, msgs Messages) (fields map[string]string, ok bool) {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return nil, false
	}
	fields = make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		if _, seen := fields[name]; seen {
			continue
		}
		if m, ok := msgs[name+"."+fe.Tag()]; ok {
			fields[name] = m
		} else if m, ok := defaults[fe.Tag()]; ok {
			fields[name] = m
		} else {
			fields[name] = "올바르지 않은 값입니다"
		}
	}
	return fields, true
}

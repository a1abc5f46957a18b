// Package validator wraps go-playground/validator with the project's custom rules and translations
// Package validator 封装 go-playground/validator，注册自定义规则与翻译
package validator

import (
	"context"
	"reflect"
	"strings"
	"sync"

	apperrors "github.com/haierkeys/memory-server/pkg/errors"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/ja"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	ja_translations "github.com/go-playground/validator/v10/translations/ja"
)

// TransKey 上下文中翻译器的键，由 lang 中间件写入
const TransKey = "trans"

// CustomValidator 自定义验证器
// 只读取 validate 标签，gin 默认的 binding 标签不参与
type CustomValidator struct {
	once     sync.Once
	validate *validator.Validate
	uni      *ut.UniversalTranslator
	initErr  error
}

// NewCustomValidator 创建验证器并注册自定义规则和翻译
func NewCustomValidator() (*CustomValidator, error) {
	v := &CustomValidator{}
	v.lazyinit()
	return v, v.initErr
}

func (v *CustomValidator) lazyinit() {
	v.once.Do(func() {
		v.validate = validator.New(validator.WithRequiredStructEnabled())

		v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		if err := v.validate.RegisterValidation("notblank", validators.NotBlank); err != nil {
			v.initErr = err
			return
		}

		v.uni = ut.New(en.New(), en.New(), ja.New())
		enTran, _ := v.uni.GetTranslator("en")
		jaTran, _ := v.uni.GetTranslator("ja")

		if err := en_translations.RegisterDefaultTranslations(v.validate, enTran); err != nil {
			v.initErr = err
			return
		}
		if err := ja_translations.RegisterDefaultTranslations(v.validate, jaTran); err != nil {
			v.initErr = err
			return
		}
		if err := registerNotBlank(v.validate, enTran, "{0} must not be empty"); err != nil {
			v.initErr = err
			return
		}
		if err := registerNotBlank(v.validate, jaTran, "{0}は空にできません"); err != nil {
			v.initErr = err
			return
		}
	})
}

func registerNotBlank(v *validator.Validate, trans ut.Translator, text string) error {
	return v.RegisterTranslation("notblank", trans,
		func(t ut.Translator) error {
			return t.Add("notblank", text, true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, err := t.T("notblank", fe.Field())
			if err != nil {
				return fe.Error()
			}
			return msg
		},
	)
}

// Engine 返回底层验证器
func (v *CustomValidator) Engine() any {
	v.lazyinit()
	return v.validate
}

// Translator 返回 UniversalTranslator，供 lang 中间件选择语言
func (v *CustomValidator) Translator() *ut.UniversalTranslator {
	v.lazyinit()
	return v.uni
}

// translatorFor 从上下文取翻译器，没有则使用英文
func (v *CustomValidator) translatorFor(ctx context.Context) ut.Translator {
	if ctx != nil {
		if t, ok := ctx.Value(TransKey).(ut.Translator); ok && t != nil {
			return t
		}
	}
	t, _ := v.uni.GetTranslator("en")
	return t
}

// Struct validates obj and converts the first failure into a ValidationError
// Struct 校验结构体，第一个失败项转为 ValidationError
func (v *CustomValidator) Struct(ctx context.Context, obj any) error {
	v.lazyinit()

	err := v.validate.StructCtx(ctx, obj)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !asValidationErrors(err, &verrs) || len(verrs) == 0 {
		return apperrors.Internal(err)
	}

	trans := v.translatorFor(ctx)
	first := verrs[0]
	appErr := apperrors.Validation(fieldPath(first), first.Value(), first.Translate(trans))

	if len(verrs) > 1 {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fieldPath(fe))
		}
		appErr.WithDetail("fields", fields)
	}
	return appErr
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}

// fieldPath 去掉顶层结构体名，保留 tags[1] 这样的下标
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"shopapi/internal/auth"
)

// 数字・空白・- + ( ) だけ
var contactNumberRe = regexp.MustCompile(`^[0-9\s\-+()]*$`)

// go-playground/validator のラッパー。
// 失敗はjsonのフィールド名 → メッセージ のmapで返す。
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New()

	//エラーのフィールド名をjsonタグに合わせる
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	// decimalはfloatとして比較（gte=0など）
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("password_policy", func(fl validator.FieldLevel) bool {
		return auth.CheckPasswordPolicy(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("contact_number", func(fl validator.FieldLevel) bool {
		return contactNumberRe.MatchString(fl.Field().String())
	})

	return &Validator{v: v}
}

// Struct は失敗したフィールドを全部まとめて返す。OKならnil。
func (val *Validator) Struct(s interface{}) (map[string]string, error) {
	err := val.v.Struct(s)
	if err == nil {
		return nil, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		key := fieldKey(fe)
		if _, exists := fields[key]; exists {
			continue
		}
		fields[key] = message(key, fe)
	}
	return fields, nil
}

// "RegisterRequest.cart_items[0].product_id" → "cart_items[0].product_id"
func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at least %s item(s)", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s may not be greater than %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s may not be greater than %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s may not be greater than %s", field, fe.Param())
	case "eqfield":
		return fmt.Sprintf("%s confirmation does not match", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), "'", ""))
	case "password_policy":
		return auth.ErrPasswordPolicy.Error()
	case "contact_number":
		return "Please enter a valid contact number."
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

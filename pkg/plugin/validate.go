package plugin

import (
	stdErrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	xerrors "SongForge/internal/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		validateInst = validator.New(validator.WithRequiredStructEnabled())
		validateInst.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validateInst
}

// ValidateParams checks a parameter object against its validate tags.
func ValidateParams(params any) error {
	err := validatorInstance().Struct(params)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stdErrors.As(err, &verrs) {
		return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "invalid parameters")
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			problems = append(problems, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		problems = append(problems, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
	}
	return xerrors.New(xerrors.CodeInvalidArgument, "invalid parameters: "+strings.Join(problems, "; "))
}

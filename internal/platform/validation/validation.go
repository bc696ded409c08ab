// Package validation registers the custom binding rules used by request DTOs.
package validation

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"scribe-backend/internal/platform/ident"
)

var (
	once    sync.Once
	onceErr error
)

// Register は gin の validator に `ulid` ルールを追加する。何度呼んでもよい。
func Register() error {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			onceErr = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		onceErr = v.RegisterValidation("ulid", func(fl validator.FieldLevel) bool {
			return ident.IsULID(fl.Field().String())
		})
	})
	return onceErr
}

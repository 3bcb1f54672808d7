package handler

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// bindingError возвращает сообщение с именем поля, не прошедшего
// валидацию, либо fallback для ошибок разбора JSON
func bindingError(err error, fallback string) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Sprintf("Field '%s' failed '%s' validation", verrs[0].Field(), verrs[0].Tag())
	}
	return fallback
}

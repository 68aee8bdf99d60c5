package domain

import "errors"

var (
	ErrNotFound    = errors.New("не найдено")
	ErrDuplicate   = errors.New("уже существует")
	ErrValidation  = errors.New("некорректный ввод")
	ErrPermission  = errors.New("недостаточно прав")
	ErrTransport   = errors.New("ошибка мессенджера")
	ErrPersistence = errors.New("ошибка сохранения")
)

// UserError несёт сообщение для пользователя, вызвавшего ошибку.
type UserError struct {
	Kind    error
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Kind
}

// Invalid — ошибка ввода, после которой шаг сценария повторяется.
func Invalid(message string) error {
	return &UserError{Kind: ErrValidation, Message: message}
}

// Missing — объект не найден.
func Missing(message string) error {
	return &UserError{Kind: ErrNotFound, Message: message}
}

// Denied — действие доступно только администраторам.
func Denied(message string) error {
	return &UserError{Kind: ErrPermission, Message: message}
}

// Conflict — объект уже существует.
func Conflict(message string) error {
	return &UserError{Kind: ErrDuplicate, Message: message}
}

// Failed — операция не удалась по внешней причине.
func Failed(kind error, message string) error {
	return &UserError{Kind: kind, Message: message}
}

package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized        ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden           ErrorCode = "FORBIDDEN"
	ErrCodeInvalidState        ErrorCode = "INVALID_STATE"
	ErrCodeDuplicateSubmission ErrorCode = "DUPLICATE_SUBMISSION"
	ErrCodeUpstream            ErrorCode = "UPSTREAM_ERROR"
	ErrCodeConflict            ErrorCode = "CONFLICT"
	ErrCodeInternal            ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation          ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError       ErrorCode = "DATABASE_ERROR"
)

// AppError — бизнес-ошибка со стабильным кодом для клиента.
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду и сообщению, чтобы errors.Is работал и с обёрнутыми копиями.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// Classify оставляет AppError как есть, остальные ошибки оборачивает кодом code.
func Classify(err error, code ErrorCode, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return Wrap(err, code, message)
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeInvalidState, ErrCodeDuplicateSubmission, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeUpstream:
		return http.StatusBadGateway
	case ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf возвращает код ошибки или ErrCodeInternal для чужих ошибок.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	return CodeOf(err) == ErrCodeForbidden
}

// IsInvalidState учитывает и повторную подачу: это частный случай недопустимого состояния.
func IsInvalidState(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeInvalidState || code == ErrCodeDuplicateSubmission
}

func IsDuplicateSubmission(err error) bool {
	return CodeOf(err) == ErrCodeDuplicateSubmission
}

func IsUpstream(err error) bool {
	return CodeOf(err) == ErrCodeUpstream
}

func IsValidation(err error) bool {
	return CodeOf(err) == ErrCodeValidation
}

var (
	ErrProjectNotFound    = New(ErrCodeNotFound, "проект не найден")
	ErrProposalNotFound   = New(ErrCodeNotFound, "предложение не найдено")
	ErrPaymentNotFound    = New(ErrCodeNotFound, "платёж не найден")
	ErrUserNotFound       = New(ErrCodeNotFound, "пользователь не найден")
	ErrUnauthorized       = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden          = New(ErrCodeForbidden, "недостаточно прав")
	ErrInvalidCredentials = New(ErrCodeUnauthorized, "неверные учетные данные")
	ErrEmailTaken         = New(ErrCodeConflict, "пользователь с таким email уже существует")
	ErrProjectNotOpen     = New(ErrCodeInvalidState, "проект не принимает предложения")
	ErrDuplicateProposal  = New(ErrCodeDuplicateSubmission, "вы уже отправили предложение на этот проект")
	ErrProposalNotPending = New(ErrCodeInvalidState, "предложение уже рассмотрено")
	ErrPaymentGateway     = New(ErrCodeUpstream, "платёжный шлюз недоступен")
	ErrMLUnavailable      = New(ErrCodeUpstream, "сервис рекомендаций недоступен")
)

package util

import (
	"errors"
	"fmt"
)

// 错误分类，HandleError 据此映射 HTTP 状态码
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

func newKindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// InvalidInputf 构造带上下文的参数错误
func InvalidInputf(format string, args ...interface{}) error {
	return newKindError(ErrInvalidInput, fmt.Sprintf(format, args...))
}

var (
	ErrUserNotFound        = newKindError(ErrNotFound, "user not found")
	ErrCourseNotFound      = newKindError(ErrNotFound, "course not found")
	ErrLessonNotFound      = newKindError(ErrNotFound, "lesson not found")
	ErrQuizNotFound        = newKindError(ErrNotFound, "quiz not found")
	ErrCertificateNotFound = newKindError(ErrNotFound, "certificate not found")
	ErrBadgeNotFound       = newKindError(ErrNotFound, "badge not found")
	ErrReviewNotFound      = newKindError(ErrNotFound, "review not found")
	ErrAttachmentNotFound  = newKindError(ErrNotFound, "attachment not found")

	ErrInvalidCredentials = newKindError(ErrUnauthorized, "invalid email or password")

	ErrPermissionDenied = newKindError(ErrForbidden, "permission denied")
	ErrAccountDisabled  = newKindError(ErrForbidden, "account disabled")
	ErrNotEnrolled      = newKindError(ErrForbidden, "not enrolled in this course")
	ErrNotCourseOwner   = newKindError(ErrForbidden, "you do not own this course")
	ErrCourseNotOpen    = newKindError(ErrForbidden, "course is not published")

	ErrEmailRegistered = newKindError(ErrConflict, "email already registered")
	ErrQuizExists      = newKindError(ErrConflict, "lesson already has a quiz")
	ErrAttemptConflict = newKindError(ErrConflict, "concurrent quiz submission, please retry")

	ErrCourseHasNoLessons = newKindError(ErrInvalidInput, "course has no lessons")
	ErrInvalidRating      = newKindError(ErrInvalidInput, "rating must be between 1 and 5")
	ErrInvalidRole        = newKindError(ErrInvalidInput, "invalid role")
	ErrUnsupportedFile    = newKindError(ErrInvalidInput, "unsupported file type")
)

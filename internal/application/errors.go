package app

import (
	"errors"
	"fmt"

	"github.com/mdobak/go-xerrors"
)

// Сообщения об ошибках, возвращаемые клиенту.
const (
	MsgNoFilePart         = "No file part"
	MsgNoSelectedFile     = "No selected file"
	MsgFileTypeNotAllowed = "File type not allowed"
	MsgFileTooLarge       = "File too large"
	MsgFileNotFound       = "File not found"
	MsgJobNotFound        = "Job not found"
)

// Kind категория ошибки.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindProcessing
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindProcessing:
		return "processing"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error ошибка шага обработки с категорией.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func ValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func NotFoundError(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// ProcessingError сохраняет стек в месте возникновения причины.
func ProcessingError(msg string, cause error) *Error {
	if cause != nil {
		cause = xerrors.New(cause)
	}
	return &Error{Kind: KindProcessing, Message: msg, Err: cause}
}

// KindOf возвращает категорию ошибки; неизвестные ошибки считаются ошибками обработки.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindProcessing
}

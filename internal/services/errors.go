package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConversion    = errors.New("conversion failed")
	ErrPackaging     = errors.New("packaging failed")
	ErrTransport     = errors.New("transport error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
)

// UserFacing is implemented by errors that carry a plain message meant for
// display next to the affected item.
type UserFacing interface {
	UserMessage() string
}

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// UserMessage returns the text to surface for err. Errors implementing
// UserFacing anywhere in the chain win over the full wrapped string.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var facing UserFacing
	if errors.As(err, &facing) {
		if msg := strings.TrimSpace(facing.UserMessage()); msg != "" {
			return msg
		}
	}
	return strings.TrimSpace(err.Error())
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

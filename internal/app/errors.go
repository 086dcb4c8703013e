package app

import (
	"fmt"
	"net/http"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func notFoundError(entity, id string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("%s %s not found", entity, id), nil)
}

func forbiddenError(entity, id string) *DomainError {
	return domainError(http.StatusForbidden, "FORBIDDEN", fmt.Sprintf("not authorized to modify %s %s", entity, id), nil)
}

func invalidPositionError(position, count int) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "INVALID_POSITION",
		fmt.Sprintf("position %d outside [1, %d]", position, count+1),
		map[string]any{"position": position, "max": count + 1})
}

func validationError(message string, details any) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, details)
}

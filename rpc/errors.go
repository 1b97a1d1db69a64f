package rpc

import (
	"errors"
	"net/http"

	"lessonchain/native/progress"
	"lessonchain/native/token"
)

func newError(status, code int, message string, data interface{}) *RPCError {
	return &RPCError{Code: code, Message: message, Data: data, status: status}
}

func invalidParams(message string, data interface{}) *RPCError {
	return newError(http.StatusBadRequest, codeInvalidParams, message, data)
}

// mapError converts an engine or registry error into its JSON-RPC form. The
// message is the error text, reported verbatim.
func mapError(err error) *RPCError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, progress.ErrUnauthorized):
		return newError(http.StatusForbidden, codeUnauthorized, err.Error(), nil)
	case errors.Is(err, progress.ErrInvalidLessonID):
		return newError(http.StatusBadRequest, codeInvalidLesson, err.Error(), nil)
	case progress.IsStateConflict(err):
		return newError(http.StatusConflict, codeConflict, err.Error(), nil)
	case errors.Is(err, progress.ErrNotInitialized), errors.Is(err, token.ErrNotFound):
		return newError(http.StatusNotFound, codeNotFound, err.Error(), nil)
	case errors.Is(err, progress.ErrIssuanceFailed):
		return newError(http.StatusUnprocessableEntity, codeIssuanceFailed, err.Error(), nil)
	default:
		return newError(http.StatusInternalServerError, codeServerError, "internal error", err.Error())
	}
}

// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-maze.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the module.
var (
	ErrTransportClosed   = errors.New("transport is closed")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrOperationTimeout  = errors.New("operation timeout")
	ErrMessageTooLarge   = errors.New("message exceeds maximum allowed size")
	ErrMalformedMessage  = errors.New("malformed control message")
	ErrAlreadyReplied    = errors.New("request already replied")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrConnectRefused    = errors.New("connect refused")
	ErrAlreadyConnected  = errors.New("already connected")
	ErrTargetOffline     = errors.New("target offline")
	ErrUnexpectedReply   = errors.New("unexpected reply")
	ErrExiting           = errors.New("process is exiting")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// ErrorCode represents specific error conditions in the module.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeTransport
	ErrCodeTimeout
	ErrCodeProtocol
	ErrCodeReconfiguration
	ErrCodeInternal
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the wrapped cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// Wrap creates a structured error around cause.
func Wrap(code ErrorCode, message string, cause error) *Error {
	e := NewError(code, message)
	e.Err = cause
	return e
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

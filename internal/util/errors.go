package util

import "errors"

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrPasswordMismatch   = errors.New("new password and confirmation do not match")
	ErrContentNotFound    = errors.New("content not found")
	ErrProgressNotSaved   = errors.New("progress not saved")
	ErrQuizIncomplete     = errors.New("please answer all questions before submitting")
	ErrQuizNotSubmitted   = errors.New("quiz result not saved")
	ErrNoActiveAttempt    = errors.New("no active quiz attempt")
	ErrInvalidTransition  = errors.New("action not allowed in current quiz state")
	ErrQuestionOutOfRange = errors.New("question index out of range")
	ErrOptionOutOfRange   = errors.New("option index out of range")
)

package model

import "errors"

var (
	ErrConfigInvalid    = errors.New("config invalid")
	ErrCollectionFailed = errors.New("collection failed")
	ErrLLMUnavailable   = errors.New("llm unavailable")
	ErrPersistFailed    = errors.New("persist failed")
	ErrContextTooLarge  = errors.New("context too large")
	ErrHookActionFailed = errors.New("hook action failed")
	ErrCancelRequested  = errors.New("cancel requested")
	ErrNotFound         = errors.New("not found")
)

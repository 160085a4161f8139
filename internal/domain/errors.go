package domain

import "errors"

// Error taxonomy shared by adapters and the dispatcher.
var (
	ErrFetch             = errors.New("fetch news")
	ErrMalformedResponse = errors.New("malformed response")
	ErrTranslate         = errors.New("translate")
	ErrDeliver           = errors.New("deliver")
	ErrPersist           = errors.New("persist history")
	ErrCorruptHistory    = errors.New("corrupt history file")
)

package memory

import "errors"

var (
	errDuplicateName  = errors.New("attachment name already filed for ticket")
	errDuplicateEmail = errors.New("user email already registered")
)

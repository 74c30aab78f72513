package application

import "errors"

// ErrInvalidSettings is returned when submitted privacy settings are out of range
var ErrInvalidSettings = errors.New("invalid privacy settings")

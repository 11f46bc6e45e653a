package script

import "errors"

var (
	// ErrScriptNotFound is returned when a script is not found
	ErrScriptNotFound = errors.New("script not found")

	// ErrTrialNotOffered is returned when a script does not offer trials
	ErrTrialNotOffered = errors.New("script does not offer a trial")
)

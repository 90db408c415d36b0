package prompt

import "errors"

// ErrAborted signals the user aborted input, for example with Ctrl+C.
var ErrAborted = errors.New("prompt: aborted")

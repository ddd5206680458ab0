package eventstream

import "errors"

// ErrNilEvent indicates a nil event payload was handed to a publisher.
var ErrNilEvent = errors.New("nil conversation event")

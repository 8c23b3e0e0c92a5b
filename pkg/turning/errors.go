package turning

import "errors"

// ErrUnknownKind is returned for an unrecognized turning provider name.
var ErrUnknownKind = errors.New("unknown turning provider")

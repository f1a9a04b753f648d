package errs

// ErrorKind identifies a kind of internal error.
// fully support for errors.Is and errors.As.
type ErrorKind string

const (
	// NotFound is returned when a requested item is not found.
	NotFound          = ErrorKind("Not Found")
	InvalidArgument   = ErrorKind("Invalid Argument")
	ArgumentRequired  = ErrorKind("Argument Required")
	Unsupported       = ErrorKind("Unsupported")
	Timeout           = ErrorKind("Timeout")
	Conflict          = ErrorKind("Conflict")
	InvalidState      = ErrorKind("Invalid State")
	InsufficientFunds = ErrorKind("Insufficient Funds")
	Unauthorized      = ErrorKind("Unauthorized")
)

// NotSupported is an alias of Unsupported.
const NotSupported = Unsupported

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

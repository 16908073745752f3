package errs

// ErrorKind identifies a kind of internal error.
// fully support for errors.Is and errors.As.
type ErrorKind string

const (
	// NotFound is returned when a requested item is not found.
	NotFound = ErrorKind("Not Found")

	// InternalError is returned when internal logic got error
	InternalError = ErrorKind("Internal Error")

	// InvalidArgument is returned when an argument is invalid.
	InvalidArgument = ErrorKind("Invalid Argument")

	// Unsupported is returned when a feature or result is not supported.
	Unsupported = ErrorKind("Unsupported")

	// ConflictSetting is returned when an operation conflicts with the current setting.
	ConflictSetting = ErrorKind("Conflict Setting")

	// TooManyResults is returned when the remote node refuses a range query
	// because the result set exceeds its limit.
	TooManyResults = ErrorKind("Too Many Results")

	OverflowUint64  = ErrorKind("overflow uint64")
	OverflowUint256 = ErrorKind("overflow uint256")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

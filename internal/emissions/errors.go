package emissions

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// Validation errors. All are returned before any write happens and can be
// matched with errors.Is.
var (
	// ErrInvalidActivityType indicates an activity type missing from the factor table.
	ErrInvalidActivityType = constError("invalid activity type")

	// ErrInvalidValue indicates a negative, non-finite or missing quantity.
	ErrInvalidValue = constError("invalid activity value")

	// ErrInvalidUnit indicates a unit that does not match the activity type.
	ErrInvalidUnit = constError("invalid activity unit")

	// ErrInvalidFactor indicates a factor table entry that breaks the table invariants.
	ErrInvalidFactor = constError("invalid emission factor")
)

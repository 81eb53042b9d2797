package validator

// Validator validates request and domain structs.
type Validator interface {
	// Validate returns nil when data passes all struct rules, otherwise an
	// error describing the failed fields.
	Validate(data any) error
}

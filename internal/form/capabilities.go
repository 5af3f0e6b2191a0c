package form

import "context"

// Validator is the custom, field-type-specific check run before the
// field's conditions are read. It may set or clear the custom condition,
// now or later.
type Validator interface {
	Validate(ctx context.Context, field *Field)
}

// Reporter reads a field's current state and forwards it to presentation
// without running any validator.
type Reporter interface {
	Report(ctx context.Context, field *Field) Outcome
	// Reset presents the field as clean without evaluating its conditions.
	Reset(ctx context.Context, field *Field)
}

// Dispatcher schedules work on the event loop that owns the fields. Post must
// not block and must be safe to call from any goroutine.
type Dispatcher interface {
	Post(task func(ctx context.Context))
}

package form

// ErrorKind is the failure taxonomy exposed to callers.
type ErrorKind string

const (
	KindNone             ErrorKind = ""
	KindMissing          ErrorKind = "missing"
	KindFormatMismatch   ErrorKind = "format_mismatch"
	KindCustomRejected   ErrorKind = "custom_rejected"
	KindTransportFailure ErrorKind = "transport_failure"
)

// Outcome is the result of one validation pass over one field. It is built
// fresh on every pass and never stored.
type Outcome struct {
	Field     FieldType
	Valid     bool
	Condition Condition
	Kind      ErrorKind
}

// OutcomeOf reads the field's current state in priority order.
func OutcomeOf(f *Field) Outcome {
	c := f.Validity.First()
	return Outcome{
		Field:     f.Type,
		Valid:     c == ConditionNone,
		Condition: c,
		Kind:      kindOf(c, f.Validity.CustomReason),
	}
}

func kindOf(c Condition, reason CustomReason) ErrorKind {
	switch c {
	case ConditionMissing:
		return KindMissing
	case ConditionTypeMismatch, ConditionPatternMismatch:
		return KindFormatMismatch
	case ConditionCustom:
		if reason == ReasonUnavailable {
			return KindTransportFailure
		}
		return KindCustomRejected
	default:
		return KindNone
	}
}

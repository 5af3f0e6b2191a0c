package form

const (
	// PostalCodePattern accepts 00000-000 and 00000000.
	PostalCodePattern = `^\d{5}-?\d{3}$`
)

// PasswordPatterns: 6 to 12 letters or digits, with at least one lowercase
// letter, one uppercase letter and one digit. RE2 has no lookahead, so the
// rule is split into patterns that must all match.
var PasswordPatterns = []string{
	`^[A-Za-z0-9]{6,12}$`,
	`[a-z]`,
	`[A-Z]`,
	`[0-9]`,
}

// DefaultRules returns the rule set of the registration form.
func DefaultRules() map[FieldType]Rules {
	return map[FieldType]Rules{
		FieldName:       {Required: true},
		FieldEmail:      {Required: true, Format: FormatEmail},
		FieldPassword:   {Required: true, Patterns: PasswordPatterns},
		FieldBirthDate:  {Required: true},
		FieldNationalID: {Required: true},
		FieldPostalCode: {Required: true, Patterns: []string{PostalCodePattern}},
		FieldStreet:     {Required: true},
		FieldCity:       {Required: true},
		FieldRegion:     {Required: true},
		FieldPrice:      {Required: true},
	}
}

// Form is the set of fields created together and destroyed together.
type Form struct {
	fields map[FieldType]*Field
	order  []FieldType
}

// New builds a form with one field per entry in rules, ordered as FieldTypes.
func New(rules map[FieldType]Rules) *Form {
	f := &Form{fields: make(map[FieldType]*Field, len(rules))}
	for _, t := range FieldTypes {
		r, ok := rules[t]
		if !ok {
			continue
		}
		f.fields[t] = NewField(t, r)
		f.order = append(f.order, t)
	}
	return f
}

// Field returns the field of type t.
func (f *Form) Field(t FieldType) (*Field, bool) {
	field, ok := f.fields[t]
	return field, ok
}

// Fields returns the fields in form order.
func (f *Form) Fields() []*Field {
	out := make([]*Field, 0, len(f.order))
	for _, t := range f.order {
		out = append(out, f.fields[t])
	}
	return out
}

// Snapshot copies the fields so they can leave the event loop safely.
func (f *Form) Snapshot() []Field {
	out := make([]Field, 0, len(f.order))
	for _, t := range f.order {
		field := *f.fields[t]
		field.Rules.Patterns = append([]string(nil), field.Rules.Patterns...)
		out = append(out, field)
	}
	return out
}

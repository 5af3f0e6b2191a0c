// Package form holds the registration-form domain: field types, declarative
// rules, validity state and the outcome of a validation pass.
//
// Domain purity: nothing in this package performs I/O. Fields are plain
// values mutated by whoever owns the event loop that drives them.
package form

import (
	"fmt"
	"strings"
)

// FieldType identifies what a form input holds. It selects both the custom
// validator (if any) and the message set for the field.
type FieldType string

const (
	FieldName       FieldType = "name"
	FieldEmail      FieldType = "email"
	FieldPassword   FieldType = "password"
	FieldBirthDate  FieldType = "birthDate"
	FieldNationalID FieldType = "nationalId"
	FieldPostalCode FieldType = "postalCode"
	FieldStreet     FieldType = "street"
	FieldCity       FieldType = "city"
	FieldRegion     FieldType = "region"
	FieldPrice      FieldType = "price"
)

// FieldTypes lists every field type in form order.
var FieldTypes = []FieldType{
	FieldName,
	FieldEmail,
	FieldPassword,
	FieldBirthDate,
	FieldNationalID,
	FieldPostalCode,
	FieldStreet,
	FieldCity,
	FieldRegion,
	FieldPrice,
}

// Aliases used by the markup of the original registration page (data-tipo).
var fieldTypeAliases = map[string]FieldType{
	"nome":           FieldName,
	"senha":          FieldPassword,
	"datanascimento": FieldBirthDate,
	"cpf":            FieldNationalID,
	"cep":            FieldPostalCode,
	"logradouro":     FieldStreet,
	"cidade":         FieldCity,
	"estado":         FieldRegion,
	"preco":          FieldPrice,
}

// ParseFieldType accepts canonical names case-insensitively and the data-tipo
// aliases.
func ParseFieldType(s string) (FieldType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, t := range FieldTypes {
		if strings.ToLower(string(t)) == key {
			return t, nil
		}
	}
	if t, ok := fieldTypeAliases[key]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown field type: %q", s)
}

func (t FieldType) String() string {
	return string(t)
}

// Field is one form input.
type Field struct {
	Type     FieldType
	Value    string
	Disabled bool
	Rules    Rules
	Validity ValidityState
}

// NewField creates an empty field and evaluates its rules once, the way an
// input starts out with its constraint flags already computed.
func NewField(t FieldType, rules Rules) *Field {
	f := &Field{Type: t, Rules: rules}
	f.evaluate()
	return f
}

// SetValue records a user edit and recomputes the declarative flags. The
// custom flag is left alone; only the custom validator owns it.
func (f *Field) SetValue(value string) {
	f.Value = value
	f.evaluate()
}

// Fill sets a value programmatically and locks the field against edits.
func (f *Field) Fill(value string) {
	f.SetValue(value)
	f.Disabled = true
}

// Clear empties the field, unlocks it and drops any custom condition.
func (f *Field) Clear() {
	f.SetValue("")
	f.Disabled = false
	f.ClearCustom()
}

// SetCustom raises the custom condition.
func (f *Field) SetCustom(reason CustomReason) {
	f.Validity.Custom = true
	f.Validity.CustomReason = reason
}

// ClearCustom drops the custom condition.
func (f *Field) ClearCustom() {
	f.Validity.Custom = false
	f.Validity.CustomReason = ReasonNone
}

func (f *Field) evaluate() {
	decl := f.Rules.Check(f.Value)
	f.Validity.Missing = decl.Missing
	f.Validity.TypeMismatch = decl.TypeMismatch
	f.Validity.PatternMismatch = decl.PatternMismatch
}

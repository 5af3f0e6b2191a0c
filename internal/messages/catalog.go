// Package messages maps a field type and its active condition to the text
// shown to the user.
package messages

import (
	_ "embed"
	"fmt"
	"maps"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"formcheck/internal/form"
	"formcheck/internal/validation/age"
	dErrors "formcheck/pkg/domain-errors"
)

//go:embed catalog_pt_br.yaml
var defaultCatalog []byte

// ParamMinAge is replaced by the minimum age wherever {minAge} appears.
const ParamMinAge = "minAge"

type catalogFile struct {
	Locale   string                       `yaml:"locale"`
	Messages map[string]map[string]string `yaml:"messages"`
}

// Catalog is an immutable (field type, condition) -> message table.
type Catalog struct {
	locale   string
	messages map[form.FieldType]map[form.Condition]string
	params   map[string]string
	expand   *strings.Replacer
}

// Gap is a reachable (field type, condition) pair with no message.
type Gap struct {
	Field     form.FieldType
	Condition form.Condition
}

func (g Gap) String() string {
	return g.Field.String() + "/" + g.Condition.String()
}

// Default returns the built-in pt-BR catalog with {minAge} bound to
// age.MinimumAge.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("messages: embedded catalog: %v", err))
	}
	return c.With(ParamMinAge, strconv.Itoa(age.MinimumAge))
}

// LoadFile reads an operator-supplied catalog.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidConfig, "read message catalog")
	}
	return Parse(data)
}

// Parse decodes a YAML catalog. Field types may use canonical names or the
// data-tipo aliases, but only one spelling per type; conditions use their
// canonical names. Messages may hold {name} placeholders, see With.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidConfig, "parse message catalog")
	}

	c := &Catalog{
		locale:   file.Locale,
		messages: make(map[form.FieldType]map[form.Condition]string, len(file.Messages)),
	}
	for rawType, byCondition := range file.Messages {
		t, err := form.ParseFieldType(rawType)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidConfig, "message catalog")
		}
		if _, dup := c.messages[t]; dup {
			return nil, dErrors.New(dErrors.CodeInvalidConfig,
				fmt.Sprintf("message catalog: %q repeats field %s", rawType, t))
		}
		entries := make(map[form.Condition]string, len(byCondition))
		for rawCondition, text := range byCondition {
			cond, err := form.ParseCondition(rawCondition)
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInvalidConfig, "message catalog: "+rawType)
			}
			entries[cond] = text
		}
		c.messages[t] = entries
	}
	return c, nil
}

// With returns a copy of c in which {name} expands to value.
func (c *Catalog) With(name, value string) *Catalog {
	params := make(map[string]string, len(c.params)+1)
	maps.Copy(params, c.params)
	params[name] = value

	pairs := make([]string, 0, 2*len(params))
	for k, v := range params {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return &Catalog{
		locale:   c.locale,
		messages: c.messages,
		params:   params,
		expand:   strings.NewReplacer(pairs...),
	}
}

// Locale returns the catalog's declared locale.
func (c *Catalog) Locale() string {
	return c.locale
}

// MessageFor returns the message for t under condition, or "" when the pair
// is unmapped or the field is valid.
func (c *Catalog) MessageFor(t form.FieldType, condition form.Condition) string {
	if c == nil {
		return ""
	}
	text := c.messages[t][condition]
	if c.expand == nil {
		return text
	}
	return c.expand.Replace(text)
}

// Coverage lists the pairs reachable on f that have no message. Types in
// custom also reach the custom condition.
func (c *Catalog) Coverage(f *form.Form, custom ...form.FieldType) []Gap {
	hasCustom := make(map[form.FieldType]bool, len(custom))
	for _, t := range custom {
		hasCustom[t] = true
	}

	var gaps []Gap
	for _, field := range f.Fields() {
		reachable := field.Rules.Reachable()
		if hasCustom[field.Type] {
			reachable = append(reachable, form.ConditionCustom)
		}
		for _, cond := range reachable {
			if c.MessageFor(field.Type, cond) == "" {
				gaps = append(gaps, Gap{Field: field.Type, Condition: cond})
			}
		}
	}
	return gaps
}

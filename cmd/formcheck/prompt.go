package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"formcheck/internal/engine"
	"formcheck/internal/form"
)

var promptLabels = map[form.FieldType]string{
	form.FieldName:       "Nome",
	form.FieldEmail:      "E-mail",
	form.FieldPassword:   "Senha",
	form.FieldBirthDate:  "Data de nascimento (AAAA-MM-DD)",
	form.FieldNationalID: "CPF",
	form.FieldPostalCode: "CEP",
	form.FieldStreet:     "Logradouro",
	form.FieldCity:       "Cidade",
	form.FieldRegion:     "Estado",
	form.FieldPrice:      "Preço",
}

// runPrompt asks for each editable field in form order, re-asking while the
// field is invalid, then offers to submit.
func runPrompt(ctx context.Context, session *engine.Session, out io.Writer) error {
	for {
		if err := promptFields(ctx, session); err != nil {
			if errors.Is(err, terminal.InterruptErr) {
				return nil
			}
			return err
		}
		outcomes, err := session.Submit(ctx)
		if err != nil {
			return err
		}
		printSummary(out, outcomes)

		again := false
		if err := survey.AskOne(&survey.Confirm{Message: "Preencher novamente?"}, &again); err != nil || !again {
			return nil
		}
	}
}

func promptFields(ctx context.Context, session *engine.Session) error {
	for _, t := range form.FieldTypes {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			field, err := currentField(ctx, session, t)
			if err != nil {
				return err
			}
			if field.Disabled {
				break
			}

			var value string
			var prompt survey.Prompt = &survey.Input{Message: promptLabels[t], Default: field.Value}
			if t == form.FieldPassword {
				prompt = &survey.Password{Message: promptLabels[t]}
			}
			if err := survey.AskOne(prompt, &value); err != nil {
				return err
			}

			out, err := session.Edit(ctx, t, value)
			if err != nil {
				return err
			}
			if t == form.FieldPostalCode {
				if err := session.Settle(ctx); err != nil {
					return err
				}
				if field, err = currentField(ctx, session, t); err != nil {
					return err
				}
				out = form.OutcomeOf(&field)
			}
			if out.Valid {
				break
			}
		}
	}
	return nil
}

func currentField(ctx context.Context, session *engine.Session, t form.FieldType) (form.Field, error) {
	fields, err := session.Snapshot(ctx)
	if err != nil {
		return form.Field{}, err
	}
	for _, f := range fields {
		if f.Type == t {
			return f, nil
		}
	}
	return form.Field{}, fmt.Errorf("no %s field", t)
}

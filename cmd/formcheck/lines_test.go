package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"formcheck/internal/address/models"
	"formcheck/internal/address/ports/mocks"
	"formcheck/internal/engine"
	"formcheck/internal/presentation"
	dErrors "formcheck/pkg/domain-errors"
)

func newLinesSession(t *testing.T, out io.Writer) (*engine.Session, *mocks.MockLookup) {
	t.Helper()
	lookup := mocks.NewMockLookup(gomock.NewController(t))
	loop := engine.NewLoop(nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = loop.Run(ctx) }()

	session, err := engine.NewSession(engine.SessionConfig{
		Loop:   loop,
		Lookup: lookup,
		Sink:   presentation.NewWriterSink(out),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return session, lookup
}

func TestRunLines(t *testing.T) {
	var out bytes.Buffer
	session, lookup := newLinesSession(t, &out)
	lookup.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(
		&models.Address{Street: "Praça da Sé", City: "São Paulo", Region: "SP"}, nil)

	input := strings.Join([]string{
		"# registration",
		"cpf=111.111.111-11",
		"email = maria@example.com",
		"cep=01001-000",
		":settle",
		"cidade=Campinas",
		"nickname=x",
		"garbage",
		":show",
		":submit",
		":quit",
		"name=never read",
	}, "\n")

	require.NoError(t, runLines(context.Background(), session, strings.NewReader(input), &out))

	got := out.String()
	assert.Contains(t, got, "invalid nationalId: O CPF digitado não é válido.")
	assert.Contains(t, got, "ok      email")
	assert.Contains(t, got, `city        "São Paulo" (locked)`)
	assert.Contains(t, got, "? city: field is filled from the postal code and cannot be edited")
	assert.Contains(t, got, `? unknown field type: "nickname"`)
	assert.Contains(t, got, `? expected field=value or a :command, got "garbage"`)
	assert.Contains(t, got, "form rejected: 5 invalid field(s)")
	assert.NotContains(t, got, "never read")
}

func TestRunLines_EOF(t *testing.T) {
	var out bytes.Buffer
	session, _ := newLinesSession(t, &out)

	require.NoError(t, runLines(context.Background(), session, strings.NewReader("name=Maria\n"), &out))
	assert.Equal(t, "ok      name\n", out.String())
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "field is filled from the postal code and cannot be edited", userMessage(engine.ErrFieldDisabled))
	assert.Equal(t, "unknown field", userMessage(fmt.Errorf("edit: %w", engine.ErrUnknownField)))
	assert.Equal(t, "dependency down", userMessage(dErrors.New(dErrors.CodeUnavailable, "dependency down")))
	assert.Equal(t, "plain", userMessage(errors.New("plain")))
}

package presentation

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formcheck/internal/form"
)

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf)

	sink.Present(context.Background(), Report{Field: form.FieldNationalID, Message: "O CPF digitado não é válido."})
	sink.Present(context.Background(), Report{Field: form.FieldEmail, Valid: true})

	assert.Equal(t, "invalid nationalId: O CPF digitado não é válido.\nok      email\n", buf.String())
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))

	sink.Present(context.Background(), Report{Field: form.FieldEmail, Valid: true})
	assert.Empty(t, buf.String())

	sink.Present(context.Background(), Report{Field: form.FieldPostalCode, Message: "O CEP digitado não é válido."})
	assert.Contains(t, buf.String(), "field=postalCode")
}

func TestRecorderAndMulti(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	sink := Multi{a, b}

	sink.Present(context.Background(), Report{Field: form.FieldCity, Message: "x"})
	sink.Present(context.Background(), Report{Field: form.FieldCity, Valid: true})

	for _, r := range []*Recorder{a, b} {
		last, ok := r.Last(form.FieldCity)
		require.True(t, ok)
		assert.True(t, last.Valid)
		assert.Len(t, r.Reports(), 2)
	}
	_, ok := a.Last(form.FieldStreet)
	assert.False(t, ok)
}

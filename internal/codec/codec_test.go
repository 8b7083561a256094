package codec

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patientdesk/internal/domain"
)

func TestForFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"json", "json", false},
		{".json", "json", false},
		{"YAML", "yaml", false},
		{"yml", "yaml", false},
		{"csv", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		c, err := ForFormat(tt.input)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnknownFormat, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, c.Format())
	}
}

func TestForPath(t *testing.T) {
	c, err := ForPath("/srv/roster/patients.yml")
	require.NoError(t, err)
	assert.Equal(t, "yaml", c.Format())

	_, err = ForPath("/srv/roster/patients")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestJSONCodec(t *testing.T) {
	c := NewJSONCodec()

	t.Run("parses wrapped roster", func(t *testing.T) {
		patients, err := c.Parse(strings.NewReader(`{"patients":[{"name":"Ana","email":"ana@example.com"}]}`))
		require.NoError(t, err)
		require.Len(t, patients, 1)
		assert.Equal(t, "Ana", patients[0].Name)
	})

	t.Run("parses bare array", func(t *testing.T) {
		patients, err := c.Parse(strings.NewReader(`[{"name":"Ana","email":"ana@example.com"},{"name":"Beto","email":"b@example.com"}]`))
		require.NoError(t, err)
		assert.Len(t, patients, 2)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		_, err := c.Parse(strings.NewReader(`{"patients":`))
		assert.Error(t, err)
	})

	t.Run("exports empty roster as empty list", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, c.Export(nil, &buf))
		assert.JSONEq(t, `{"patients":[]}`, buf.String())
	})
}

func TestYAMLCodec(t *testing.T) {
	c := NewYAMLCodec()

	t.Run("parses roster", func(t *testing.T) {
		input := `
patients:
  - name: Juan Pérez
    email: juan@example.com
  - name: María López
    email: maria@example.com
    created_at: 2024-03-01T10:00:00Z
`
		patients, err := c.Parse(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, patients, 2)
		assert.Equal(t, "Juan Pérez", patients[0].Name)
		assert.True(t, patients[0].CreatedAt.IsZero())
		assert.Equal(t, 2024, patients[1].CreatedAt.Year())
	})

	t.Run("empty document is empty roster", func(t *testing.T) {
		patients, err := c.Parse(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, patients)
	})

	t.Run("export then parse keeps fields", func(t *testing.T) {
		created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		in := []domain.Patient{{ID: 7, Name: "Eva", Email: "eva@example.com", CreatedAt: created}}

		var buf bytes.Buffer
		require.NoError(t, c.Export(in, &buf))
		assert.Contains(t, buf.String(), "email: eva@example.com")

		out, err := c.Parse(&buf)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, int64(7), out[0].ID)
		assert.True(t, created.Equal(out[0].CreatedAt))
	})
}

package handler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readykids/internal/application/models"
	dErrors "readykids/pkg/domain-errors"
)

func prepareUpdate(t *testing.T, body string) (*UpdateRequest, error) {
	t.Helper()
	var req UpdateRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	req.Normalize()
	return &req, req.Validate()
}

func TestUpdateRequest(t *testing.T) {
	t.Run("unknown keys are ignored", func(t *testing.T) {
		req, err := prepareUpdate(t, `{"colour":"blue","id":"RK-2026-00001"}`)
		require.NoError(t, err)
		assert.True(t, req.Patch().IsEmpty())
	})

	t.Run("snake_case wins over camelCase", func(t *testing.T) {
		req, err := prepareUpdate(t, `{"registrationNumber":"camel","registration_number":"snake"}`)
		require.NoError(t, err)
		require.NotNil(t, req.Patch().RegistrationNumber)
		assert.Equal(t, "snake", *req.Patch().RegistrationNumber)
	})

	t.Run("null clears registration fields", func(t *testing.T) {
		req, err := prepareUpdate(t, `{"registration_date":null,"registration_number":null}`)
		require.NoError(t, err)
		assert.True(t, req.Patch().Has(models.FieldRegistrationDate))
		assert.Nil(t, req.Patch().RegistrationDate)
		assert.Nil(t, req.Patch().RegistrationNumber)
	})

	t.Run("checks decode with unknown keys kept", func(t *testing.T) {
		req, err := prepareUpdate(t, `{"checks":{"dbs":{"status":"complete","date":"2026-03-01","note":"x"}}}`)
		require.NoError(t, err)
		check := req.Patch().Checks[models.CheckDBS]
		assert.Equal(t, models.CheckComplete, check.Status)
		assert.Contains(t, check.Extra, "note")
	})

	t.Run("strings are trimmed and escaped", func(t *testing.T) {
		req, err := prepareUpdate(t, `{"risk":"  <high> "}`)
		require.NoError(t, err)
		assert.Equal(t, "&lt;high&gt;", req.Patch().Risk)
	})

	invalid := map[string]string{
		"stage":             `{"stage":"done"}`,
		"stage not string":  `{"stage":3}`,
		"progress fraction": `{"progress":12.5}`,
		"progress range":    `{"progress":101}`,
		"checks array":      `{"checks":[]}`,
		"persons object":    `{"connected_persons":{}}`,
		"registration date": `{"registrationDate":"01/04/2026"}`,
		"risk not string":   `{"risk":true}`,
	}
	for name, body := range invalid {
		t.Run("invalid "+name, func(t *testing.T) {
			_, err := prepareUpdate(t, body)
			require.Error(t, err)
			assert.Equal(t, dErrors.CodeValidation, dErrors.CodeOf(err))
		})
	}
}

func TestUpdateRequest_RejectsNonObject(t *testing.T) {
	var req UpdateRequest
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &req))
}

func TestSubmissionRequest_KeepsUnknownSections(t *testing.T) {
	var req SubmissionRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"personal": {"firstName": "Jane", "lastName": "Doe", "email": "jane@example.com"},
		"employment": [{"employer": "Little Acorns & Co"}]
	}`), &req))
	req.Normalize()
	require.NoError(t, req.Validate())

	sub, err := req.Submission()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"employer":"Little Acorns &amp; Co"}]`, string(sub.Section(models.SectionEmployment)))
}

func TestEscapeTree(t *testing.T) {
	doc := map[string]any{
		"a": `<script>"x" & 'y'</script>`,
		"b": []any{" keep ", json.Number("3")},
	}
	escapeTree(trimTree(doc))

	assert.Equal(t, "&lt;script&gt;&quot;x&quot; &amp; &#x27;y&#x27;&lt;/script&gt;", doc["a"])
	assert.Equal(t, []any{"keep", json.Number("3")}, doc["b"])
}

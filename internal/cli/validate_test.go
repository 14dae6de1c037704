package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateObjects(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "person.yaml", personSchema)
	a := writeFile(t, dir, "a.json", `{"id":"a","name":"Ann","age":31}`)
	b := writeFile(t, dir, "b.json", `{"id":"b","address":{"city":"Oslo"}}`)

	out, _, err := runCLI(t, "", "validate", schemaPath, a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "\u2713 All 2 object(s) valid")
}

func TestValidateSchemaOnly(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "person.yaml", personSchema)

	out, _, err := runCLI(t, "", "validate", schemaPath)
	require.NoError(t, err)
	assert.Contains(t, out, "\u2713 Schema is valid")
}

func TestValidateReportsEveryInvalidObject(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "person.yaml", personSchema)
	good := writeFile(t, dir, "good.json", `{"id":"a"}`)
	badAge := writeFile(t, dir, "bad-age.json", `{"id":"b","age":"old"}`)
	notObject := writeFile(t, dir, "list.json", `[1,2]`)

	out, _, err := runCLI(t, "", "validate", schemaPath, good, badAge, notObject)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "\u2717 "+badAge+": [E008]")
	assert.Contains(t, out, "\u2717 "+notObject+": [E004]")
	assert.Contains(t, out, "2 of 3 object(s) invalid")
}

func TestValidateJSON(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "person.yaml", personSchema)
	bad := writeFile(t, dir, "bad.json", `{"id":"b","address":{"city":7}}`)

	out, _, err := runCLI(t, "", "validate", schemaPath, bad, "--format", "json")
	require.Error(t, err)

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Code    string           `json:"code"`
			Details ValidationResult `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeInvalidValue, resp.Error.Code)
	require.Len(t, resp.Error.Details.Errors, 1)
	assert.Equal(t, bad, resp.Error.Details.Errors[0].File)
	assert.Equal(t, "address.city", resp.Error.Details.Errors[0].Path)
}

func TestValidateFromStdin(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "person.yaml", personSchema)

	out, _, err := runCLI(t, `{"id":"s","name":"Sam"}`, "validate", schemaPath, "-")
	require.NoError(t, err)
	assert.Contains(t, out, "All 1 object(s) valid")
}

package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThoughtRecordInput_FieldsOnlyPresent(t *testing.T) {
	var in ThoughtRecordInput
	require.NoError(t, json.Unmarshal([]byte(`{"id":"X","situacion":"B","emocion":""}`), &in))

	assert.Equal(t, "X", in.ID)
	assert.Equal(t, map[string]string{"situacion": "B", "emocion": ""}, in.Fields())
}

func TestThoughtRecordInput_AllFields(t *testing.T) {
	var in ThoughtRecordInput
	require.NoError(t, json.Unmarshal([]byte(`{
		"fecha":"2020-01-01","situacion":"s","pensamiento":"p",
		"emocion":"e","respuesta":"r","resultado":"o"}`), &in))

	assert.Len(t, in.Fields(), 6)
	assert.Empty(t, in.ID)
}

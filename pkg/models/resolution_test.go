package models

import (
	"encoding/json"
	"testing"

	"github.com/Ramsey-B/clover/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllFieldsIsClosedSet(t *testing.T) {
	assert.Len(t, AllFields, 14)

	seen := map[Field]bool{}
	for _, f := range AllFields {
		assert.False(t, seen[f], "duplicate field %s", f)
		seen[f] = true
	}

	var arrays []Field
	for _, f := range AllFields {
		if f.IsArray() {
			arrays = append(arrays, f)
		}
	}
	assert.ElementsMatch(t, []Field{FieldServices, FieldDistricts}, arrays)
}

func TestDefaultResolutionIsValid(t *testing.T) {
	m := DefaultResolution()
	require.NoError(t, m.Validate())
	assert.Equal(t, ChoiceUnion, m[FieldServices])
	assert.Equal(t, ChoiceUnion, m[FieldDistricts])
	assert.Equal(t, ChoiceA, m[FieldName])
	assert.Equal(t, ChoiceA, m[FieldRelationshipOwnerID])
}

func TestResolutionMapValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m ResolutionMap)
		wantErr string
	}{
		{
			name:   "complete map",
			mutate: func(m ResolutionMap) { m[FieldEmail] = ChoiceB },
		},
		{
			name:    "missing field",
			mutate:  func(m ResolutionMap) { delete(m, FieldPhone) },
			wantErr: "phone: missing",
		},
		{
			name:    "merge on scalar field",
			mutate:  func(m ResolutionMap) { m[FieldName] = ChoiceUnion },
			wantErr: "name: merge is only allowed for list fields",
		},
		{
			name:    "unknown choice",
			mutate:  func(m ResolutionMap) { m[FieldStatus] = Choice("C") },
			wantErr: `status: invalid choice "C"`,
		},
		{
			name:    "unknown field",
			mutate:  func(m ResolutionMap) { m[Field("rating")] = ChoiceA },
			wantErr: "rating: unknown field",
		},
		{
			name:   "A or B allowed on array fields",
			mutate: func(m ResolutionMap) { m[FieldServices] = ChoiceB; m[FieldDistricts] = ChoiceA },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := DefaultResolution()
			tt.mutate(m)
			err := m.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errs.IsInvalidInput(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResolutionMapJSON(t *testing.T) {
	body := `{"name":"B","email":"A","phone":"A","nif":"A","entity_type":"A","website":"B",
		"services":"merge","districts":"merge","technician_count":"B","has_admin_team":"A",
		"has_own_transport":"A","working_hours":"A","status":"A","relationship_owner_id":"B"}`

	var m ResolutionMap
	require.NoError(t, json.Unmarshal([]byte(body), &m))
	require.NoError(t, m.Validate())
	assert.Equal(t, ChoiceB, m[FieldName])
	assert.Equal(t, ChoiceUnion, m[FieldServices])
}

func TestParseResolutionMap(t *testing.T) {
	m, err := ParseResolutionMap(map[string]string{"name": " B ", "services": "merge"})
	require.NoError(t, err)
	assert.Equal(t, ChoiceB, m[FieldName])

	_, err = ParseResolutionMap(map[string]string{"rating": "A", "name": "A"})
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
	assert.Contains(t, err.Error(), "rating")
}

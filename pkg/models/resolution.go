package models

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Ramsey-B/clover/pkg/errs"
)

// Field is a mergeable provider attribute. The set is closed: AllFields lists
// every member and ResolveFields must handle each one.
type Field string

const (
	FieldName                Field = "name"
	FieldEmail               Field = "email"
	FieldPhone               Field = "phone"
	FieldNIF                 Field = "nif"
	FieldEntityType          Field = "entity_type"
	FieldWebsite             Field = "website"
	FieldServices            Field = "services"
	FieldDistricts           Field = "districts"
	FieldTechnicianCount     Field = "technician_count"
	FieldHasAdminTeam        Field = "has_admin_team"
	FieldHasOwnTransport     Field = "has_own_transport"
	FieldWorkingHours        Field = "working_hours"
	FieldStatus              Field = "status"
	FieldRelationshipOwnerID Field = "relationship_owner_id"
)

// AllFields is the complete mergeable field set in display order
var AllFields = []Field{
	FieldName,
	FieldEmail,
	FieldPhone,
	FieldNIF,
	FieldEntityType,
	FieldWebsite,
	FieldServices,
	FieldDistricts,
	FieldTechnicianCount,
	FieldHasAdminTeam,
	FieldHasOwnTransport,
	FieldWorkingHours,
	FieldStatus,
	FieldRelationshipOwnerID,
}

// ParseField converts a wire name into a Field
func ParseField(s string) (Field, bool) {
	f := Field(strings.TrimSpace(s))
	for _, known := range AllFields {
		if f == known {
			return f, true
		}
	}
	return "", false
}

// IsArray reports whether the field holds a list and may therefore be unioned
func (f Field) IsArray() bool {
	return f == FieldServices || f == FieldDistricts
}

// Choice selects where a field's merged value comes from
type Choice string

const (
	ChoiceA Choice = "A"
	ChoiceB Choice = "B"
	// ChoiceUnion combines both lists, array fields only
	ChoiceUnion Choice = "merge"
)

func (c Choice) valid() bool {
	return c == ChoiceA || c == ChoiceB || c == ChoiceUnion
}

// ResolutionMap assigns a choice to every mergeable field
type ResolutionMap map[Field]Choice

// DefaultResolution keeps the survivor's scalar values and unions its lists
func DefaultResolution() ResolutionMap {
	m := make(ResolutionMap, len(AllFields))
	for _, f := range AllFields {
		if f.IsArray() {
			m[f] = ChoiceUnion
		} else {
			m[f] = ChoiceA
		}
	}
	return m
}

// ParseResolutionMap converts loosely typed input (JSON or YAML bodies) into a ResolutionMap
func ParseResolutionMap(raw map[string]string) (ResolutionMap, error) {
	m := make(ResolutionMap, len(raw))
	var unknown []string
	for k, v := range raw {
		f, ok := ParseField(k)
		if !ok {
			unknown = append(unknown, k)
			continue
		}
		m[f] = Choice(strings.TrimSpace(v))
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, errs.InvalidInput("unknown merge fields: %s", strings.Join(unknown, ", "))
	}
	return m, nil
}

// Validate enforces completeness and the array-only restriction on merge
func (m ResolutionMap) Validate() error {
	var problems []string
	for _, f := range AllFields {
		c, ok := m[f]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("%s: missing", f))
		case !c.valid():
			problems = append(problems, fmt.Sprintf("%s: invalid choice %q", f, c))
		case c == ChoiceUnion && !f.IsArray():
			problems = append(problems, fmt.Sprintf("%s: merge is only allowed for list fields", f))
		}
	}
	for f := range m {
		if _, ok := ParseField(string(f)); !ok {
			problems = append(problems, fmt.Sprintf("%s: unknown field", f))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return errs.InvalidInput("invalid resolution map: %s", strings.Join(problems, "; "))
}

package merging

import (
	"fmt"
	"strings"

	"github.com/Ramsey-B/clover/pkg/errs"
	"github.com/Ramsey-B/clover/pkg/models"
)

// ResolveFields builds the survivor's new field values from a and b according
// to a validated resolution map. Every field in models.AllFields has a case.
func ResolveFields(a, b models.ProviderFields, resolutions models.ResolutionMap) (models.ProviderFields, error) {
	if err := resolutions.Validate(); err != nil {
		return models.ProviderFields{}, err
	}

	out := a.Clone()
	src := b.Clone()
	for _, field := range models.AllFields {
		choice := resolutions[field]
		if choice == models.ChoiceA {
			continue
		}
		if err := resolveField(&out, &src, field, choice); err != nil {
			return models.ProviderFields{}, err
		}
	}
	return out, nil
}

// resolveField applies a B or merge choice for one field onto out
func resolveField(out, b *models.ProviderFields, field models.Field, choice models.Choice) error {
	union := choice == models.ChoiceUnion
	switch field {
	case models.FieldName:
		out.Name = b.Name
	case models.FieldEmail:
		out.Email = b.Email
	case models.FieldPhone:
		out.Phone = b.Phone
	case models.FieldNIF:
		out.NIF = b.NIF
	case models.FieldEntityType:
		out.EntityType = b.EntityType
	case models.FieldWebsite:
		out.Website = b.Website
	case models.FieldServices:
		if union {
			out.Services = UnionStrings(out.Services, b.Services)
		} else {
			out.Services = b.Services
		}
	case models.FieldDistricts:
		if union {
			out.Districts = UnionStrings(out.Districts, b.Districts)
		} else {
			out.Districts = b.Districts
		}
	case models.FieldTechnicianCount:
		out.TechnicianCount = b.TechnicianCount
	case models.FieldHasAdminTeam:
		out.HasAdminTeam = b.HasAdminTeam
	case models.FieldHasOwnTransport:
		out.HasOwnTransport = b.HasOwnTransport
	case models.FieldWorkingHours:
		out.WorkingHours = b.WorkingHours
	case models.FieldStatus:
		out.Status = b.Status
	case models.FieldRelationshipOwnerID:
		out.RelationshipOwnerID = b.RelationshipOwnerID
	default:
		return errs.InvalidInput("field %s cannot be merged", field)
	}
	return nil
}

// UnionStrings combines two lists without duplicates. Values are trimmed and
// blanks dropped; a's order is kept and b's new values follow.
func UnionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			v = strings.TrimSpace(v)
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// FieldValue returns a printable value for one field, used in audit diffs and CLI previews
func FieldValue(f models.ProviderFields, field models.Field) string {
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	switch field {
	case models.FieldName:
		return f.Name
	case models.FieldEmail:
		return deref(f.Email)
	case models.FieldPhone:
		return deref(f.Phone)
	case models.FieldNIF:
		return deref(f.NIF)
	case models.FieldEntityType:
		return string(f.EntityType)
	case models.FieldWebsite:
		return deref(f.Website)
	case models.FieldServices:
		return strings.Join(f.Services, ", ")
	case models.FieldDistricts:
		return strings.Join(f.Districts, ", ")
	case models.FieldTechnicianCount:
		if f.TechnicianCount == nil {
			return ""
		}
		return fmt.Sprintf("%d", *f.TechnicianCount)
	case models.FieldHasAdminTeam:
		return fmt.Sprintf("%t", f.HasAdminTeam)
	case models.FieldHasOwnTransport:
		return fmt.Sprintf("%t", f.HasOwnTransport)
	case models.FieldWorkingHours:
		return deref(f.WorkingHours)
	case models.FieldStatus:
		return string(f.Status)
	case models.FieldRelationshipOwnerID:
		return deref(f.RelationshipOwnerID)
	}
	return ""
}

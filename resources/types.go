package resources

import "strings"

// Entity type declarations. The Name doubles as the id qualifier prefix
// ("patient-..." etc), and Relations names the raw fields that expand into
// nested entities.
var (
	TypeDeviceType = &Type{Name: "devicetype"}

	// Both casings appear in the wild: the lazy queries request deviceType
	// verbatim, the eager ones alias it to device_type.
	TypeDevice = &Type{
		Name: "device",
		Relations: map[string]*Type{
			"deviceType":  TypeDeviceType,
			"device_type": TypeDeviceType,
		},
	}

	TypePatient = &Type{Name: "patient"}

	TypeOrg = &Type{Name: "org"}

	TypeMembership = &Type{
		Name: "membership",
		Relations: map[string]*Type{
			"org": TypeOrg,
		},
	}

	TypeUser = &Type{
		Name: "user",
		Relations: map[string]*Type{
			"defaultMembership": TypeMembership,
		},
	}

	TypeEvent = &Type{Name: "event"}

	TypeCohort = &Type{Name: "cohort"}

	TypeProject = &Type{Name: "project"}

	TypeMetric = &Type{Name: "metric"}

	TypeDimension = &Type{Name: "dimension"}

	TypeStreamType = &Type{Name: "streamtype"}

	TypeStream = &Type{Name: "stream"}
)

// DeviceTypeMatches reports whether a device type names the wanted type.
// The comparison is case-insensitive and accepts either the type id or its
// display name, since callers commonly filter by the human-readable name.
func DeviceTypeMatches(got, want string) bool {
	return strings.EqualFold(got, want)
}

// deviceTypeEntityMatches compares a nested device type entity against a
// wanted name, checking both the id and displayName fields.
func deviceTypeEntityMatches(dt *Entity, want string) bool {
	if id, err := dt.GetString("id"); err == nil && DeviceTypeMatches(id, want) {
		return true
	}
	if name, err := dt.GetString("displayName"); err == nil && DeviceTypeMatches(name, want) {
		return true
	}
	return false
}

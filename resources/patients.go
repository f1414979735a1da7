package resources

import (
	"context"

	runeq "github.com/runelabs/runeq-go"
	"github.com/runelabs/runeq-go/ident"
	"github.com/runelabs/runeq-go/internal/graph"
)

const patientWithDevicesQuery = `
	query getPatient($patient_id: ID!, $cursor: Cursor) {
		patient(id: $patient_id) {
			id
			name: codeName
			created_at: createdAt
			deviceList(cursor: $cursor) {
				pageInfo {
					endCursor
				}
				devices {
					id: deviceShortId
					name: alias
					created_at: createdAt
					device_type: deviceType {
						id
						display_name: displayName
					}
					disabled
					disabled_at: disabledAt
					updated_at: updatedAt
				}
			}
		}
	}
`

// GetPatient fetches one patient with all of its devices. The returned
// entity carries the complete device collection under the "devices" field;
// see PatientDevices.
func GetPatient(ctx context.Context, c *runeq.Client, patientID string) (*Entity, error) {
	gc, err := graphFor(c)
	if err != nil {
		return nil, err
	}
	id, err := ident.Parse(patientID, TypePatient.Name)
	if err != nil {
		return nil, err
	}

	devices := NewSet(TypeDevice)
	devices.SetScope(id)

	var attrs map[string]any
	cursor := ""
	for {
		vars := map[string]any{"patient_id": id.Unqualified()}
		if cursor != "" {
			vars["cursor"] = cursor
		}
		result, err := gc.Execute(ctx, patientWithDevicesQuery, vars)
		if err != nil {
			return nil, err
		}
		attrs = graph.Child(result, "patient")
		if attrs == nil {
			return nil, runeq.ErrNotFound
		}

		list := graph.Child(attrs, "deviceList")
		if err := addDeviceRecords(devices, id, graph.Items(list, "devices")); err != nil {
			return nil, err
		}

		cursor = graph.EndCursor(list)
		if cursor == "" {
			break
		}
	}
	devices.SetComplete(true)

	delete(attrs, "deviceList")
	attrs["devices"] = devices
	return NewEntity(TypePatient, attrs)
}

// addDeviceRecords wraps raw device records and adds them to the set,
// stamping each with the owning patient's bare id.
func addDeviceRecords(devices *Set, patientID ident.ID, records []map[string]any) error {
	for _, rec := range records {
		rec["patient_id"] = patientID.Unqualified()
		device, err := NewEntity(TypeDevice, rec)
		if err != nil {
			return err
		}
		if err := devices.Add(device); err != nil {
			return err
		}
	}
	return nil
}

const patientListQuery = `
	query getPatientList($patient_cursor: Cursor, $device_cursor: Cursor) {
		org {
			patientAccessList(cursor: $patient_cursor) {
				pageInfo {
					endCursor
				}
				patientAccess {
					patient {
						id
						name: codeName
						created_at: createdAt
						deviceList(cursor: $device_cursor) {
							pageInfo {
								endCursor
							}
							devices {
								id: deviceShortId
								name: alias
								created_at: createdAt
								device_type: deviceType {
									id
									display_name: displayName
								}
								disabled
								disabled_at: disabledAt
								updated_at: updatedAt
							}
						}
					}
				}
			}
		}
	}
`

// GetAllPatients fetches every patient the credentials can access, each with
// its complete device collection. Patients whose first device page
// overflowed are re-fetched individually so their device sets are complete.
func GetAllPatients(ctx context.Context, c *runeq.Client) (*Set, error) {
	gc, err := graphFor(c)
	if err != nil {
		return nil, err
	}

	patients := NewSet(TypePatient)
	cursor := ""
	for {
		vars := map[string]any{}
		if cursor != "" {
			vars["patient_cursor"] = cursor
		}
		result, err := gc.Execute(ctx, patientListQuery, vars)
		if err != nil {
			return nil, err
		}

		accessList := graph.Child(result, "org", "patientAccessList")
		for _, access := range graph.Items(accessList, "patientAccess") {
			attrs, ok := access["patient"].(map[string]any)
			if !ok {
				continue
			}
			id, err := ident.Parse(graph.Str(attrs, "id"), TypePatient.Name)
			if err != nil {
				return nil, err
			}

			list := graph.Child(attrs, "deviceList")
			if graph.EndCursor(list) != "" {
				// More devices than one page: fetch this patient alone to
				// walk its full device list.
				patient, err := GetPatient(ctx, c, id.Unqualified())
				if err != nil {
					return nil, err
				}
				if err := patients.Add(patient); err != nil {
					return nil, err
				}
				continue
			}

			devices := NewSet(TypeDevice)
			devices.SetScope(id)
			if err := addDeviceRecords(devices, id, graph.Items(list, "devices")); err != nil {
				return nil, err
			}
			devices.SetComplete(true)

			delete(attrs, "deviceList")
			attrs["devices"] = devices
			patient, err := NewEntity(TypePatient, attrs)
			if err != nil {
				return nil, err
			}
			if err := patients.Add(patient); err != nil {
				return nil, err
			}
		}

		cursor = graph.EndCursor(accessList)
		if cursor == "" {
			break
		}
	}
	patients.SetComplete(true)
	return patients, nil
}

// PatientDevices returns the device collection attached to a patient entity
// fetched by GetPatient or GetAllPatients.
func PatientDevices(patient *Entity) (*Set, error) {
	v, err := patient.Get("devices")
	if err != nil {
		return nil, err
	}
	devices, ok := v.(*Set)
	if !ok {
		return nil, runeq.Usagef("patient entity has no device collection attached")
	}
	return devices, nil
}

// GetPatientDevices fetches all devices registered to a patient.
func GetPatientDevices(ctx context.Context, c *runeq.Client, patientID string) (*Set, error) {
	patient, err := GetPatient(ctx, c, patientID)
	if err != nil {
		return nil, err
	}
	return PatientDevices(patient)
}

// GetDevice fetches one of a patient's devices by device id.
func GetDevice(ctx context.Context, c *runeq.Client, patientID, deviceID string) (*Entity, error) {
	devices, err := GetPatientDevices(ctx, c, patientID)
	if err != nil {
		return nil, err
	}
	return devices.Get(deviceID)
}

// GetAllDevices unions device collections across patients without
// duplicates. patients may be a *Set of patient entities (from
// GetAllPatients), a []string of patient ids, or nil to fetch every
// accessible patient first.
func GetAllDevices(ctx context.Context, c *runeq.Client, patients any) (*Set, error) {
	all := NewSet(TypeDevice)

	add := func(patient *Entity) error {
		devices, err := PatientDevices(patient)
		if err != nil {
			return err
		}
		for d := range devices.All() {
			if err := all.Add(d); err != nil {
				return err
			}
		}
		return nil
	}

	switch ps := patients.(type) {
	case nil:
		set, err := GetAllPatients(ctx, c)
		if err != nil {
			return nil, err
		}
		for p := range set.All() {
			if err := add(p); err != nil {
				return nil, err
			}
		}
	case *Set:
		for p := range ps.All() {
			if err := add(p); err != nil {
				return nil, err
			}
		}
	case []string:
		for _, pid := range ps {
			p, err := GetPatient(ctx, c, pid)
			if err != nil {
				return nil, err
			}
			if err := add(p); err != nil {
				return nil, err
			}
		}
	default:
		return nil, runeq.Usagef("patients must be a *Set, a []string of ids, or nil, got %T", patients)
	}
	return all, nil
}

package resources

import (
	"context"
	"iter"

	"github.com/runelabs/runeq-go/ident"
	"github.com/runelabs/runeq-go/internal/graph"
)

// Raw record producers shared by the eager functions here and the cached
// query objects in the session package. Each yields the backend's field maps
// unwrapped, one record per item, walking cursor pagination lazily.

const patientFields = `
	id
	codeName
	createdAt
`

const deviceFields = `
	id
	alias
	createdAt
	deviceType {
		id
		displayName
	}
`

// ListPatientRecords lazily lists every patient the credentials can access.
func ListPatientRecords(ctx context.Context, gc *graph.Client) iter.Seq2[map[string]any, error] {
	const statement = `
		query($cursor: Cursor) {
			org {
				patientAccessList(cursor: $cursor) {
					pageInfo {
						endCursor
					}
					patientAccess {
						patient {` + patientFields + `}
					}
				}
			}
		}
	`
	return graph.Paginate(ctx, func(ctx context.Context, cursor string) ([]map[string]any, string, error) {
		result, err := gc.Execute(ctx, statement, cursorVars(cursor))
		if err != nil {
			return nil, "", err
		}
		list := graph.Child(result, "org", "patientAccessList")
		var records []map[string]any
		for _, access := range graph.Items(list, "patientAccess") {
			if p, ok := access["patient"].(map[string]any); ok {
				records = append(records, p)
			}
		}
		return records, graph.EndCursor(list), nil
	})
}

// FetchPatientRecord retrieves a single patient by identifier.
func FetchPatientRecord(ctx context.Context, gc *graph.Client, patientID ident.ID) (map[string]any, error) {
	const statement = `
		query($patientId: ID!) {
			patient(id: $patientId) {` + patientFields + `}
		}
	`
	result, err := gc.Execute(ctx, statement, map[string]any{"patientId": patientID.String()})
	if err != nil {
		return nil, err
	}
	return graph.Child(result, "patient"), nil
}

// ListPatientDeviceRecords lazily lists a patient's devices. Each record is
// stamped with the owning patient's bare id under "patientId".
func ListPatientDeviceRecords(ctx context.Context, gc *graph.Client, patientID ident.ID) iter.Seq2[map[string]any, error] {
	const statement = `
		query($patientId: ID!, $withDisabled: Boolean!, $cursor: Cursor) {
			patient(id: $patientId) {
				deviceList(withDisabled: $withDisabled, cursor: $cursor) {
					devices {` + deviceFields + `}
					pageInfo {
						endCursor
					}
				}
			}
		}
	`
	return graph.Paginate(ctx, func(ctx context.Context, cursor string) ([]map[string]any, string, error) {
		vars := cursorVars(cursor)
		vars["patientId"] = patientID.String()
		vars["withDisabled"] = false
		result, err := gc.Execute(ctx, statement, vars)
		if err != nil {
			return nil, "", err
		}
		list := graph.Child(result, "patient", "deviceList")
		records := graph.Items(list, "devices")
		for _, rec := range records {
			rec["patientId"] = patientID.Unqualified()
		}
		return records, graph.EndCursor(list), nil
	})
}

// WhoamiRecord queries the identity behind the configured credentials:
// patient-flavored for client keys, user-flavored otherwise. The result is
// the raw response map keyed by "patient" or "user".
func WhoamiRecord(ctx context.Context, gc *graph.Client, asPatient bool) (map[string]any, error) {
	const patientStatement = `
		query {
			patient {` + patientFields + `}
		}
	`
	const userStatement = `
		query {
			user {
				id
				created
				defaultMembership {
					id
					created
					org {
						id
						created
						displayName
					}
				}
				displayName
				email
				username
			}
		}
	`
	statement := userStatement
	if asPatient {
		statement = patientStatement
	}
	return gc.Execute(ctx, statement, nil)
}

// cursorVars builds the variable map for a cursor-paginated statement. A nil
// cursor variable requests the first page.
func cursorVars(cursor string) map[string]any {
	vars := map[string]any{}
	if cursor != "" {
		vars["cursor"] = cursor
	}
	return vars
}

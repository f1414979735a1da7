package resources

import (
	"context"

	runeq "github.com/runelabs/runeq-go"
	"github.com/runelabs/runeq-go/internal/graph"
)

const projectFields = `
	id,
	title,
	status,
	description,
	type,
	created_at: createdAt,
	updated_at: updatedAt,
	started_at: startedAt,
	created_by: createdBy,
	updated_by: updatedBy
`

// GetProject fetches one project by id, including its cohorts.
func GetProject(ctx context.Context, c *runeq.Client, projectID string) (*Entity, error) {
	gc, err := graphFor(c)
	if err != nil {
		return nil, err
	}

	const statement = `
		query getProject($id: ID) {
			project(id: $id) {
				` + projectFields + `,
				cohortList {
					cohorts {
						id,
						title,
						description,
						created_at: createdAt,
						updated_at: updatedAt,
						created_by: createdBy,
						updated_by: updatedBy,
					}
				}
			}
		}
	`
	result, err := gc.Execute(ctx, statement, map[string]any{"id": projectID})
	if err != nil {
		return nil, err
	}
	attrs := graph.Child(result, "project")
	if attrs == nil {
		return nil, runeq.ErrNotFound
	}

	cohorts := NewSet(TypeCohort)
	for _, rec := range graph.Items(graph.Child(attrs, "cohortList"), "cohorts") {
		cohort, err := NewEntity(TypeCohort, rec)
		if err != nil {
			return nil, err
		}
		if err := cohorts.Add(cohort); err != nil {
			return nil, err
		}
	}
	cohorts.SetComplete(true)
	delete(attrs, "cohortList")
	attrs["cohorts"] = cohorts

	return NewEntity(TypeProject, attrs)
}

// GetProjects fetches every project in the caller's organization.
func GetProjects(ctx context.Context, c *runeq.Client) (*Set, error) {
	gc, err := graphFor(c)
	if err != nil {
		return nil, err
	}

	const statement = `
		query($cursor: DateTimeUUIDCursor) {
			org {
				id
				projectList(cursor: $cursor) {
					projects {` + projectFields + `}
					pageInfo {
						endCursor
					}
				}
			}
		}
	`
	projects := NewSet(TypeProject)
	seq := graph.Paginate(ctx, func(ctx context.Context, cursor string) ([]map[string]any, string, error) {
		result, err := gc.Execute(ctx, statement, cursorVars(cursor))
		if err != nil {
			return nil, "", err
		}
		list := graph.Child(result, "org", "projectList")
		return graph.Items(list, "projects"), graph.EndCursor(list), nil
	})

	for rec, err := range seq {
		if err != nil {
			return nil, err
		}
		project, err := NewEntity(TypeProject, rec)
		if err != nil {
			return nil, err
		}
		if err := projects.Add(project); err != nil {
			return nil, err
		}
	}
	projects.SetComplete(true)
	return projects, nil
}

const projectPatientFields = `
	patient {
		id
	},
	metricList {
		metrics {
			id,
			type,
			data_type: dataType,
			value,
			time_interval: timeInterval,
			created_at: createdAt,
			updated_at: updatedAt
		}
	},
	code_name: codeName,
	created_at: createdAt,
	updated_at: updatedAt,
	created_by: createdBy,
	updated_by: updatedBy,
`

// GetProjectPatients fetches every patient in a project together with their
// processed-data metrics.
func GetProjectPatients(ctx context.Context, c *runeq.Client, projectID string) (*Set, error) {
	gc, err := graphFor(c)
	if err != nil {
		return nil, err
	}

	const statement = `
		query($id: ID, $cursorInput: CursorInput) {
			project(id: $id) {
				projectPatientList(cursorInput: $cursorInput) {
					projectPatients {` + projectPatientFields + `}
					pageInfo {
						codeNameEndCursor
					}
				}
			}
		}
	`
	return collectCohortStylePatients(ctx, gc, statement, projectID, func(result map[string]any) map[string]any {
		return graph.Child(result, "project", "projectPatientList")
	}, "projectPatients")
}

// GetCohortPatients fetches every patient in a cohort together with their
// processed-data metrics.
func GetCohortPatients(ctx context.Context, c *runeq.Client, cohortID string) (*Set, error) {
	gc, err := graphFor(c)
	if err != nil {
		return nil, err
	}

	const statement = `
		query($id: ID, $cursorInput: CursorInput) {
			cohort(id: $id) {
				id,
				cohortPatientList(cursorInput: $cursorInput) {
					cohortPatients {` + projectPatientFields + `}
					pageInfo {
						codeNameEndCursor
					}
				}
			}
		}
	`
	return collectCohortStylePatients(ctx, gc, statement, cohortID, func(result map[string]any) map[string]any {
		return graph.Child(result, "cohort", "cohortPatientList")
	}, "cohortPatients")
}

// collectCohortStylePatients walks the codeName-cursor pagination shared by
// the project and cohort patient lists, reshaping each record: the nested
// patient id is lifted to the top level and the metric list becomes a Set.
func collectCohortStylePatients(
	ctx context.Context,
	gc *graph.Client,
	statement, id string,
	list func(map[string]any) map[string]any,
	itemsKey string,
) (*Set, error) {
	patients := NewSet(TypePatient)
	seq := graph.Paginate(ctx, func(ctx context.Context, cursor string) ([]map[string]any, string, error) {
		vars := map[string]any{"id": id}
		if cursor != "" {
			vars["cursorInput"] = map[string]any{"codeNameCursor": cursor}
		}
		result, err := gc.Execute(ctx, statement, vars)
		if err != nil {
			return nil, "", err
		}
		l := list(result)
		next := graph.Str(graph.Child(l, "pageInfo"), "codeNameEndCursor")
		return graph.Items(l, itemsKey), next, nil
	})

	for rec, err := range seq {
		if err != nil {
			return nil, err
		}
		if p, ok := rec["patient"].(map[string]any); ok {
			rec["id"] = p["id"]
			delete(rec, "patient")
		}

		metrics := NewSet(TypeMetric)
		for _, m := range graph.Items(graph.Child(rec, "metricList"), "metrics") {
			metric, err := NewEntity(TypeMetric, m)
			if err != nil {
				return nil, err
			}
			if err := metrics.Add(metric); err != nil {
				return nil, err
			}
		}
		delete(rec, "metricList")
		rec["metrics"] = metrics

		patient, err := NewEntity(TypePatient, rec)
		if err != nil {
			return nil, err
		}
		if err := patients.Add(patient); err != nil {
			return nil, err
		}
	}
	patients.SetComplete(true)
	return patients, nil
}

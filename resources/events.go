package resources

import (
	"context"
	"encoding/json"
	"iter"

	runeq "github.com/runelabs/runeq-go"
	"github.com/runelabs/runeq-go/ident"
	"github.com/runelabs/runeq-go/internal/graph"
)

// EventFilter selects event classifications to include. "*" matches any
// value in a position.
type EventFilter struct {
	Namespace string `json:"namespace"`
	Category  string `json:"category"`
	Enum      string `json:"enum"`
}

// The backend caps each event query at 90 days; longer ranges are split
// into consecutive windows.
const maxEventWindowSecs = 90 * 24 * 60 * 60

const eventListQuery = `
	query getEventList(
		$patient_id: ID!,
		$cursor: Cursor,
		$start_time: Float!,
		$end_time: Float!,
		$include_filters: [EventClassificationFilter],
	) {
		patient(id: $patient_id) {
			eventList(
				startTime: $start_time,
				endTime: $end_time,
				cursor: $cursor,
				includeFilters: $include_filters,
			) {
				events {
					id
					display_name: displayName
					custom_detail: customDetail {
						display_name: displayName
					}
					duration {
						start_time: startTime
						end_time: endTime
						end_time_max: endTimeMax
					}
					payload
					classification {
						namespace
						category
						enum
					}
					tags {
						name
					}
					method
					created_at: createdAt
					updated_at: updatedAt
				}
				pageInfo {
					endCursor
				}
			}
		}
	}
`

// GetPatientEvents fetches a patient's events in [startTime, endTime), both
// unix seconds. The range is queried in 90-day windows, each window walked
// through cursor pagination. With no filters, all events are returned.
func GetPatientEvents(ctx context.Context, c *runeq.Client, patientID string, startTime, endTime float64, filters []EventFilter) (*Set, error) {
	gc, err := graphFor(c)
	if err != nil {
		return nil, err
	}
	id, err := ident.Parse(patientID, TypePatient.Name)
	if err != nil {
		return nil, err
	}

	events := NewSet(TypeEvent)
	events.SetScope(id)
	for rec, err := range iterEventRecords(ctx, gc, id, startTime, endTime, filters) {
		if err != nil {
			return nil, err
		}
		event, err := NewEntity(TypeEvent, rec)
		if err != nil {
			return nil, err
		}
		if err := events.Add(event); err != nil {
			return nil, err
		}
	}
	events.SetComplete(true)
	return events, nil
}

// iterEventRecords walks the windowed event pagination lazily, reshaping
// each record in place.
func iterEventRecords(ctx context.Context, gc *graph.Client, patientID ident.ID, startTime, endTime float64, filters []EventFilter) iter.Seq2[map[string]any, error] {
	return func(yield func(map[string]any, error) bool) {
		windowStart := startTime
		cursor := ""

		for windowStart < endTime {
			windowEnd := min(windowStart+maxEventWindowSecs, endTime)

			vars := map[string]any{
				"patient_id": patientID.Unqualified(),
				"start_time": windowStart,
				"end_time":   windowEnd,
			}
			if cursor != "" {
				vars["cursor"] = cursor
			}
			if len(filters) > 0 {
				vars["include_filters"] = filters
			}

			result, err := gc.Execute(ctx, eventListQuery, vars)
			if err != nil {
				yield(nil, err)
				return
			}

			list := graph.Child(result, "patient", "eventList")
			for _, rec := range graph.Items(list, "events") {
				rec["patient_id"] = patientID.Unqualified()
				reshapeEvent(rec)
				if !yield(rec, nil) {
					return
				}
			}

			// An exhausted cursor moves the walk to the next time window.
			cursor = graph.EndCursor(list)
			if cursor == "" {
				windowStart = windowEnd
			}
		}
	}
}

// reshapeEvent flattens the nested wire shape in place: duration expands to
// start/end times, a custom detail overrides the display name, the payload
// decodes from JSON, and tags flatten to a list of names.
func reshapeEvent(rec map[string]any) {
	duration, _ := rec["duration"].(map[string]any)
	delete(rec, "duration")
	rec["start_time"] = duration["start_time"]
	endTime := duration["end_time"]
	if maxEnd, ok := duration["end_time_max"]; ok && maxEnd != nil {
		endTime = maxEnd
	}
	rec["end_time"] = endTime

	if detail, ok := rec["custom_detail"].(map[string]any); ok {
		if name, ok := detail["display_name"].(string); ok && name != "" {
			rec["display_name"] = name
		}
	}
	delete(rec, "custom_detail")

	payload := map[string]any{}
	if raw, ok := rec["payload"].(string); ok && raw != "" {
		// A payload that fails to decode stays an empty map; events are
		// best-effort annotated data.
		_ = json.Unmarshal([]byte(raw), &payload)
	}
	rec["payload"] = payload

	var tags []string
	if rawTags, ok := rec["tags"].([]any); ok {
		for _, t := range rawTags {
			if m, ok := t.(map[string]any); ok {
				if name, ok := m["name"].(string); ok {
					tags = append(tags, name)
				}
			}
		}
	}
	rec["tags"] = tags
}

func patientEventCategory(ctx context.Context, c *runeq.Client, patientID string, startTime, endTime float64, category string) (*Set, error) {
	return GetPatientEvents(ctx, c, patientID, startTime, endTime, []EventFilter{
		{Namespace: "patient", Category: category, Enum: "*"},
	})
}

// GetPatientActivityEvents fetches a patient's activity events, both
// manually logged and ingested from connected health platforms.
func GetPatientActivityEvents(ctx context.Context, c *runeq.Client, patientID string, startTime, endTime float64) (*Set, error) {
	return patientEventCategory(ctx, c, patientID, startTime, endTime, "activity")
}

// GetPatientMedicationEvents fetches a patient's medication events. The
// "method" field distinguishes manual logs from scheduled autologs.
func GetPatientMedicationEvents(ctx context.Context, c *runeq.Client, patientID string, startTime, endTime float64) (*Set, error) {
	return patientEventCategory(ctx, c, patientID, startTime, endTime, "medication")
}

// GetPatientSymptomEvents fetches a patient's symptom events.
func GetPatientSymptomEvents(ctx context.Context, c *runeq.Client, patientID string, startTime, endTime float64) (*Set, error) {
	return patientEventCategory(ctx, c, patientID, startTime, endTime, "symptom")
}

// GetPatientWellbeingEvents fetches a patient's wellbeing events.
func GetPatientWellbeingEvents(ctx context.Context, c *runeq.Client, patientID string, startTime, endTime float64) (*Set, error) {
	return patientEventCategory(ctx, c, patientID, startTime, endTime, "wellbeing")
}

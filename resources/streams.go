package resources

import (
	"context"
	"fmt"
	"strings"

	runeq "github.com/runelabs/runeq-go"
	"github.com/runelabs/runeq-go/ident"
	"github.com/runelabs/runeq-go/internal/graph"
)

const streamTypeFields = `
	id
	name
	description
	shape {
		dimensions {
			id: identifier
			data_type: dataType
			quantity_name: quantityName
			quantity_abbrev: quantityAbbrev
			unit_name: unitName
			unit_abbrev: unitAbbrev
		}
	}
`

// GetAllStreamTypes fetches every stream type, each with its dimension
// shape attached under "dimensions".
func GetAllStreamTypes(ctx context.Context, c *runeq.Client) (*Set, error) {
	gc, err := graphFor(c)
	if err != nil {
		return nil, err
	}

	const statement = `
		query getStreamTypes {
			streamTypeList {
				streamTypes {` + streamTypeFields + `}
			}
		}
	`
	result, err := gc.Execute(ctx, statement, nil)
	if err != nil {
		return nil, err
	}

	types := NewSet(TypeStreamType)
	for _, rec := range graph.Items(graph.Child(result, "streamTypeList"), "streamTypes") {
		st, err := newStreamType(rec)
		if err != nil {
			return nil, err
		}
		if err := types.Add(st); err != nil {
			return nil, err
		}
	}
	types.SetComplete(true)
	return types, nil
}

// newStreamType wraps a raw stream type record, lifting shape.dimensions to
// a top-level entity list.
func newStreamType(rec map[string]any) (*Entity, error) {
	var dims []*Entity
	for _, d := range graph.Items(graph.Child(rec, "shape"), "dimensions") {
		dim, err := NewEntity(TypeDimension, d)
		if err != nil {
			return nil, err
		}
		dims = append(dims, dim)
	}
	delete(rec, "shape")
	rec["dimensions"] = dims
	return NewEntity(TypeStreamType, rec)
}

const streamFields = `
	id
	created_at: createdAt
	algorithm
	device_id: deviceId
	patient_id: patientId
	streamType {%s}
	parameters {
		key
		value
	}
	min_time: minTime
	max_time: maxTime
`

// newStream wraps a raw stream metadata record: the nested stream type
// becomes an entity, query parameters flatten to top-level fields, and the
// device id is stripped to its bare form.
func newStream(rec map[string]any) (*Entity, error) {
	if st, ok := rec["streamType"].(map[string]any); ok {
		stEntity, err := newStreamType(st)
		if err != nil {
			return nil, err
		}
		delete(rec, "streamType")
		rec["stream_type"] = stEntity
	}

	if devID, ok := rec["device_id"].(string); ok && devID != "" {
		if id, err := ident.Parse(devID, TypeDevice.Name); err == nil {
			rec["device_id"] = id.Unqualified()
		}
	}

	if params, ok := rec["parameters"].([]any); ok {
		flat := map[string]any{}
		for _, p := range params {
			kv, ok := p.(map[string]any)
			if !ok {
				continue
			}
			key, _ := kv["key"].(string)
			if key == "" {
				continue
			}
			rec[key] = kv["value"]
			flat[key] = kv["value"]
		}
		rec["parameters"] = flat
	}

	return NewEntity(TypeStream, rec)
}

// GetStreamMetadata fetches metadata for the given stream ids. Every id must
// resolve; a missing stream is an error wrapping ErrNotFound.
func GetStreamMetadata(ctx context.Context, c *runeq.Client, streamIDs ...string) (*Set, error) {
	if len(streamIDs) == 0 {
		return nil, runeq.Usagef("GetStreamMetadata requires at least one stream id")
	}
	gc, err := graphFor(c)
	if err != nil {
		return nil, err
	}

	statement := fmt.Sprintf(`
		query getStreamListByIds($stream_ids: [String]) {
			streamListByIds(streamIds: $stream_ids) {
				pageInfo {
					endCursor
				}
				streams {%s}
			}
		}
	`, fmt.Sprintf(streamFields, streamTypeFields))

	result, err := gc.Execute(ctx, statement, map[string]any{"stream_ids": streamIDs})
	if err != nil {
		return nil, err
	}

	streams := NewSet(TypeStream)
	missing := make(map[string]bool, len(streamIDs))
	for _, id := range streamIDs {
		missing[id] = true
	}

	for _, rec := range graph.Items(graph.Child(result, "streamListByIds"), "streams") {
		stream, err := newStream(rec)
		if err != nil {
			return nil, err
		}
		if err := streams.Add(stream); err != nil {
			return nil, err
		}
		if sid, err := stream.GetString("id"); err == nil {
			delete(missing, sid)
		}
	}

	if len(missing) > 0 {
		ids := make([]string, 0, len(missing))
		for id := range missing {
			ids = append(ids, id)
		}
		return nil, fmt.Errorf("stream id(s) %s: %w", strings.Join(ids, ","), runeq.ErrNotFound)
	}
	return streams, nil
}

// StreamFilters narrows GetPatientStreamMetadata. Zero-valued fields are
// omitted; Parameters matches arbitrary key/value stream parameters, with
// Category and Measurement as conveniences for the common two.
type StreamFilters struct {
	DeviceID     string
	StreamTypeID string
	Algorithm    string
	Category     string
	Measurement  string
	Parameters   map[string]string
}

// GetPatientStreamMetadata fetches metadata for a patient's streams matching
// all filters. Only the patient id is required.
func GetPatientStreamMetadata(ctx context.Context, c *runeq.Client, patientID string, filters StreamFilters) (*Set, error) {
	if patientID == "" {
		return nil, runeq.Usagef("GetPatientStreamMetadata requires a patient id")
	}
	gc, err := graphFor(c)
	if err != nil {
		return nil, err
	}
	pid, err := ident.Parse(patientID, TypePatient.Name)
	if err != nil {
		return nil, err
	}

	statement := fmt.Sprintf(`
		query getStreamList($cursor: Cursor, $filters: StreamQueryFilters) {
			streamList(filters: $filters, cursor: $cursor) {
				pageInfo {
					endCursor
				}
				streams {%s}
			}
		}
	`, fmt.Sprintf(streamFields, streamTypeFields))

	params := make(map[string]string, len(filters.Parameters)+2)
	for k, v := range filters.Parameters {
		params[k] = v
	}
	if filters.Category != "" {
		params["category"] = filters.Category
	}
	if filters.Measurement != "" {
		params["measurement"] = filters.Measurement
	}
	paramList := make([]map[string]string, 0, len(params))
	for k, v := range params {
		paramList = append(paramList, map[string]string{"key": k, "value": v})
	}

	deviceID := filters.DeviceID
	if deviceID != "" {
		// The filter wants the fully qualified patient/device pair.
		did, err := ident.Parse(deviceID, TypeDevice.Name)
		if err != nil {
			return nil, err
		}
		deviceID = fmt.Sprintf("patient-%s,device-%s", pid.Unqualified(), did.Unqualified())
	}

	queryFilters := map[string]any{
		"patientId":  pid.Unqualified(),
		"parameters": paramList,
	}
	if deviceID != "" {
		queryFilters["deviceId"] = deviceID
	}
	if filters.StreamTypeID != "" {
		queryFilters["streamTypeId"] = filters.StreamTypeID
	}
	if filters.Algorithm != "" {
		queryFilters["algorithm"] = filters.Algorithm
	}

	streams := NewSet(TypeStream)
	streams.SetScope(pid)
	seq := graph.Paginate(ctx, func(ctx context.Context, cursor string) ([]map[string]any, string, error) {
		vars := map[string]any{"filters": queryFilters}
		if cursor != "" {
			vars["cursor"] = cursor
		}
		result, err := gc.Execute(ctx, statement, vars)
		if err != nil {
			return nil, "", err
		}
		list := graph.Child(result, "streamList")
		return graph.Items(list, "streams"), graph.EndCursor(list), nil
	})

	for rec, err := range seq {
		if err != nil {
			return nil, err
		}
		stream, err := newStream(rec)
		if err != nil {
			return nil, err
		}
		if err := streams.Add(stream); err != nil {
			return nil, err
		}
	}
	streams.SetComplete(true)
	return streams, nil
}

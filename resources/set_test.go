package resources

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runelabs/runeq-go/ident"
	"github.com/runelabs/runeq-go/internal/apierr"
)

func mustPatient(t *testing.T, attrs map[string]any) *Entity {
	t.Helper()
	e, err := NewEntity(TypePatient, attrs)
	require.NoError(t, err)
	return e
}

func TestSetAddPreservesOrderAndReplaces(t *testing.T) {
	t.Parallel()
	s := NewSet(TypePatient)
	require.NoError(t, s.Add(mustPatient(t, map[string]any{"id": "a", "codeName": "one"})))
	require.NoError(t, s.Add(mustPatient(t, map[string]any{"id": "b", "codeName": "two"})))
	require.NoError(t, s.Add(mustPatient(t, map[string]any{"id": "a", "codeName": "one again"})))

	require.Equal(t, 2, s.Len())
	entities := s.Entities()
	name, err := entities[0].GetString("code_name")
	require.NoError(t, err)
	// Re-adding "a" replaced the value but kept its position.
	assert.Equal(t, "one again", name)

	var ids []string
	for id := range s.IDs() {
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"patient-a,patient", "patient-b,patient"}, ids)
}

func TestSetAddRejectsWrongType(t *testing.T) {
	t.Parallel()
	s := NewSet(TypePatient)
	device, err := NewEntity(TypeDevice, map[string]any{"id": "d1"})
	require.NoError(t, err)

	err = s.Add(device)
	require.Error(t, err)
	assert.True(t, apierr.IsUsage(err))
}

func TestSetGetBareAndQualified(t *testing.T) {
	t.Parallel()
	s := NewSet(TypePatient)
	require.NoError(t, s.Add(mustPatient(t, map[string]any{"id": "abc"})))

	for _, key := range []string{"abc", "patient-abc", "patient-abc,patient"} {
		e, err := s.Get(key)
		require.NoError(t, err, key)
		assert.True(t, e.EqualID("abc"))
	}

	_, err := s.Get("missing")
	var ke *KeyError
	require.ErrorAs(t, err, &ke)
	assert.True(t, errors.Is(err, apierr.ErrNotFound))
}

func TestScopedSetResolvesBareIDs(t *testing.T) {
	t.Parallel()
	patientID := ident.MustParse("p1", "patient")
	s := NewSet(TypeDevice)
	s.SetScope(patientID)

	device, err := NewEntity(TypeDevice, map[string]any{"id": "D7", "alias": "watch"})
	require.NoError(t, err)
	require.NoError(t, s.Add(device))

	for _, key := range []string{"D7", "device-D7"} {
		got, err := s.Get(key)
		require.NoError(t, err, key)
		assert.True(t, got.EqualID("D7"))
	}

	scope, ok := s.Scope()
	require.True(t, ok)
	assert.Equal(t, "patient-p1,patient", scope.String())

	// Scoped sets yield bare ids.
	var ids []string
	for id := range s.IDs() {
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"D7"}, ids)
}

func TestFilteredByRequiresConditions(t *testing.T) {
	t.Parallel()
	s := NewSet(TypePatient)
	_, err := s.FilteredBy(nil)
	require.Error(t, err)
	assert.True(t, apierr.IsUsage(err))
}

func TestFilteredByStrictEquality(t *testing.T) {
	t.Parallel()
	s := NewSet(TypePatient)
	require.NoError(t, s.Add(mustPatient(t, map[string]any{"id": "a", "codeName": "x", "status": "active"})))
	require.NoError(t, s.Add(mustPatient(t, map[string]any{"id": "b", "codeName": "x", "status": "disabled"})))
	require.NoError(t, s.Add(mustPatient(t, map[string]any{"id": "c", "status": "active"})))

	seq, err := s.FilteredBy(map[string]any{"code_name": "x", "status": "active"})
	require.NoError(t, err)

	var got []*Entity
	for e := range seq {
		got = append(got, e)
	}
	// "b" fails status, "c" lacks the codeName field entirely.
	require.Len(t, got, 1)
	assert.True(t, got[0].EqualID("a"))
}

func TestFilteredByDeviceType(t *testing.T) {
	t.Parallel()
	s := NewSet(TypeDevice)
	mk := func(id, typeID, display string) *Entity {
		e, err := NewEntity(TypeDevice, map[string]any{
			"id": id,
			"deviceType": map[string]any{
				"id":          typeID,
				"displayName": display,
			},
		})
		require.NoError(t, err)
		return e
	}
	require.NoError(t, s.Add(mk("d1", "Phone", "Mobile Phone")))
	require.NoError(t, s.Add(mk("d2", "Watch", "Apple Watch")))

	seq, err := s.FilteredBy(map[string]any{"device_type": "phone"})
	require.NoError(t, err)
	var got []*Entity
	for e := range seq {
		got = append(got, e)
	}
	require.Len(t, got, 1)
	assert.True(t, got[0].EqualID("d1"))

	// Display name matches too, case-insensitively.
	seq, err = s.FilteredBy(map[string]any{"device_type": "apple watch"})
	require.NoError(t, err)
	got = nil
	for e := range seq {
		got = append(got, e)
	}
	require.Len(t, got, 1)
	assert.True(t, got[0].EqualID("d2"))
}

func TestCreatedBeforeKeepsTimelessEntities(t *testing.T) {
	t.Parallel()
	s := NewSet(TypePatient)
	require.NoError(t, s.Add(mustPatient(t, map[string]any{"id": "old", "createdAt": 100.0})))
	require.NoError(t, s.Add(mustPatient(t, map[string]any{"id": "new", "createdAt": 200.0})))
	require.NoError(t, s.Add(mustPatient(t, map[string]any{"id": "timeless"})))

	var ids []string
	for e := range s.CreatedBefore(150) {
		id, _ := e.ID()
		ids = append(ids, id.Unqualified())
	}
	assert.Equal(t, []string{"old", "timeless"}, ids)

	// The boundary is strict: an entity created exactly at the cutoff is out.
	ids = nil
	for e := range s.CreatedBefore(100) {
		id, _ := e.ID()
		ids = append(ids, id.Unqualified())
	}
	assert.Equal(t, []string{"timeless"}, ids)
}

func TestSetCompleteFlag(t *testing.T) {
	t.Parallel()
	s := NewSet(TypePatient)
	assert.False(t, s.Complete())
	s.SetComplete(true)
	assert.True(t, s.Complete())
}

func TestToRecords(t *testing.T) {
	t.Parallel()
	s := NewSet(TypeDevice)
	device, err := NewEntity(TypeDevice, map[string]any{
		"id": "d1",
		"deviceType": map[string]any{
			"id": "Phone",
		},
	})
	require.NoError(t, err)
	require.NoError(t, s.Add(device))

	records := s.ToRecords()
	require.Len(t, records, 1)
	nested, ok := records[0]["deviceType"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Phone", nested["id"])
}

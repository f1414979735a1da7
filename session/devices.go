package session

import (
	"context"
	"iter"
	"strings"

	runeq "github.com/runelabs/runeq-go"
	"github.com/runelabs/runeq-go/ident"
	"github.com/runelabs/runeq-go/internal/metrics"
	"github.com/runelabs/runeq-go/resources"
)

// DevicesQuery is a lazy query over devices: those of one patient when
// obtained from Patient.Devices, or all devices across all accessible
// patients when obtained from Session.Devices.
type DevicesQuery struct {
	s       *Session
	patient *Patient
}

// Devices begins a query over all devices across all accessible patients.
func (s *Session) Devices() *DevicesQuery {
	return &DevicesQuery{s: s}
}

// Iter iterates over devices, freeze-filtered. Scoped queries cache per
// patient; the unscoped union walks patients and reuses their device caches.
func (q *DevicesQuery) Iter(ctx context.Context) iter.Seq2[*resources.Entity, error] {
	if q.patient == nil {
		return q.iterAll(ctx)
	}
	return q.iterPatient(ctx, q.patient)
}

func (q *DevicesQuery) iterAll(ctx context.Context) iter.Seq2[*resources.Entity, error] {
	return func(yield func(*resources.Entity, error) bool) {
		for p, err := range q.s.Patients().Iter(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			for d, err := range q.iterPatient(ctx, p) {
				if err != nil {
					yield(nil, err)
					return
				}
				if !yield(d, nil) {
					return
				}
			}
		}
	}
}

func (q *DevicesQuery) iterPatient(ctx context.Context, p *Patient) iter.Seq2[*resources.Entity, error] {
	s := q.s
	pid, _ := p.ID()

	if !s.caching {
		return func(yield func(*resources.Entity, error) bool) {
			for rec, err := range resources.ListPatientDeviceRecords(ctx, s.client.Graph(), pid) {
				if err != nil {
					yield(nil, err)
					return
				}
				d, err := resources.NewEntity(resources.TypeDevice, rec)
				if err != nil {
					yield(nil, err)
					return
				}
				if !s.visible(d) {
					continue
				}
				if !yield(d, nil) {
					return
				}
			}
		}
	}

	return func(yield func(*resources.Entity, error) bool) {
		cache := s.deviceCaches[pid]
		if cache == nil || !cache.Complete() {
			metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
			set, err := q.scanPatient(ctx, pid)
			if err != nil {
				yield(nil, err)
				return
			}
			s.deviceCaches[pid] = set
			cache = set
		} else {
			metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		}

		for d := range cache.All() {
			if !s.visible(d) {
				continue
			}
			if !yield(d, nil) {
				return
			}
		}
	}
}

// scanPatient performs one full device enumeration for a patient.
func (q *DevicesQuery) scanPatient(ctx context.Context, pid ident.ID) (*resources.Set, error) {
	set := resources.NewSet(resources.TypeDevice)
	set.SetScope(pid)
	for rec, err := range resources.ListPatientDeviceRecords(ctx, q.s.client.Graph(), pid) {
		if err != nil {
			return nil, err
		}
		d, err := resources.NewEntity(resources.TypeDevice, rec)
		if err != nil {
			return nil, err
		}
		if err := set.Add(d); err != nil {
			return nil, err
		}
	}
	set.SetComplete(true)
	return set, nil
}

// Get fetches one device by id. Only supported with a patient in scope; a
// fully qualified id naming another patient is runeq.ErrNotFound.
func (q *DevicesQuery) Get(ctx context.Context, deviceID string) (*resources.Entity, error) {
	if q.patient == nil {
		return nil, runeq.Usagef("device lookup by id requires a patient scope; use Patient.Devices")
	}
	pid, _ := q.patient.ID()

	if i := strings.IndexByte(deviceID, ','); i >= 0 {
		// Fully qualified: the principal must name the scoped patient.
		if deviceID[:i] != pid.Principal() {
			return nil, runeq.ErrNotFound
		}
		deviceID = deviceID[i+1:]
	}

	if q.s.caching {
		if cache := q.s.deviceCaches[pid]; cache != nil {
			if d, err := cache.Get(deviceID); err == nil {
				metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
				return d, nil
			}
		}
	}

	// There is no single-device endpoint; run the scoped iteration (which
	// populates the cache) and index into it.
	var found *resources.Entity
	for d, err := range q.iterPatient(ctx, q.patient) {
		if err != nil {
			return nil, err
		}
		if d.EqualID(deviceID) || d.EqualID(strings.TrimPrefix(deviceID, "device-")) {
			found = d
			break
		}
	}
	if found == nil {
		return nil, runeq.ErrNotFound
	}
	return found, nil
}

// FindAllBy lazily yields the devices whose fields strictly equal every
// condition. At least one condition is required. Device type conditions
// match either the type id or display name, case-insensitively.
func (q *DevicesQuery) FindAllBy(ctx context.Context, conditions map[string]any) (iter.Seq2[*resources.Entity, error], error) {
	if len(conditions) == 0 {
		return nil, runeq.Usagef("FindAllBy requires at least one condition")
	}
	return func(yield func(*resources.Entity, error) bool) {
		for d, err := range q.Iter(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			if !resources.Matches(d, conditions) {
				continue
			}
			if !yield(d, nil) {
				return
			}
		}
	}, nil
}

// Query performs a fresh full scan and returns the complete set, without
// touching the session caches.
func (q *DevicesQuery) Query(ctx context.Context) (*resources.Set, error) {
	if q.patient != nil {
		pid, _ := q.patient.ID()
		return q.scanPatient(ctx, pid)
	}

	set := resources.NewSet(resources.TypeDevice)
	for p, err := range q.s.Patients().Iter(ctx) {
		if err != nil {
			return nil, err
		}
		pid, _ := p.ID()
		patientSet, err := q.scanPatient(ctx, pid)
		if err != nil {
			return nil, err
		}
		for d := range patientSet.All() {
			if err := set.Add(d); err != nil {
				return nil, err
			}
		}
	}
	set.SetComplete(true)
	return set, nil
}

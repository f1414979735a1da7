package session

import (
	"context"
	"iter"

	runeq "github.com/runelabs/runeq-go"
	"github.com/runelabs/runeq-go/ident"
	"github.com/runelabs/runeq-go/internal/metrics"
	"github.com/runelabs/runeq-go/resources"
)

// Patient is a patient entity bound to its session, so related queries can
// keep using the session's caches.
type Patient struct {
	*resources.Entity
	s *Session
}

// Devices begins a query over this patient's registered devices.
func (p *Patient) Devices() *DevicesQuery {
	return &DevicesQuery{s: p.s, patient: p}
}

// PatientsQuery is a lazy query over all accessible patients.
type PatientsQuery struct {
	s *Session
}

// Patients begins a query over all accessible patients.
func (s *Session) Patients() *PatientsQuery {
	return &PatientsQuery{s: s}
}

// Iter iterates over patients, freeze-filtered. With caching enabled, the
// first iteration performs one full scan and repopulates the cache; later
// iterations are served from it. With caching disabled, raw pages stream
// straight through.
func (q *PatientsQuery) Iter(ctx context.Context) iter.Seq2[*Patient, error] {
	s := q.s
	if !s.caching {
		return func(yield func(*Patient, error) bool) {
			for rec, err := range resources.ListPatientRecords(ctx, s.client.Graph()) {
				if err != nil {
					yield(nil, err)
					return
				}
				p, err := s.wrapPatient(rec)
				if err != nil {
					yield(nil, err)
					return
				}
				if !s.visible(p.Entity) {
					continue
				}
				if !yield(p, nil) {
					return
				}
			}
		}
	}

	return func(yield func(*Patient, error) bool) {
		if !s.patients.Complete() {
			metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
			set, err := q.scan(ctx)
			if err != nil {
				// A failed scan leaves the cache slot untouched.
				yield(nil, err)
				return
			}
			s.patients = set
		} else {
			metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		}

		for e := range s.patients.All() {
			if !s.visible(e) {
				continue
			}
			if !yield(&Patient{Entity: e, s: s}, nil) {
				return
			}
		}
	}
}

// scan performs one full backend enumeration into a fresh complete set.
func (q *PatientsQuery) scan(ctx context.Context) (*resources.Set, error) {
	set := resources.NewSet(resources.TypePatient)
	for rec, err := range resources.ListPatientRecords(ctx, q.s.client.Graph()) {
		if err != nil {
			return nil, err
		}
		e, err := resources.NewEntity(resources.TypePatient, rec)
		if err != nil {
			return nil, err
		}
		if err := set.Add(e); err != nil {
			return nil, err
		}
	}
	set.SetComplete(true)
	return set, nil
}

// Get fetches one patient by id, consulting the session cache first. A
// backend miss is runeq.ErrNotFound.
func (q *PatientsQuery) Get(ctx context.Context, patientID string) (*Patient, error) {
	s := q.s
	id, err := ident.Parse(patientID, resources.TypePatient.Name)
	if err != nil {
		return nil, err
	}

	if s.caching {
		if e, err := s.patients.Get(id.String()); err == nil {
			metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
			return &Patient{Entity: e, s: s}, nil
		}
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
	}

	rec, err := resources.FetchPatientRecord(ctx, s.client.Graph(), id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, runeq.ErrNotFound
	}
	p, err := s.wrapPatient(rec)
	if err != nil {
		return nil, err
	}
	if s.caching {
		if err := s.patients.Add(p.Entity); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// FindAllBy lazily yields the patients whose fields strictly equal every
// condition. At least one condition is required.
func (q *PatientsQuery) FindAllBy(ctx context.Context, conditions map[string]any) (iter.Seq2[*Patient, error], error) {
	if len(conditions) == 0 {
		return nil, runeq.Usagef("FindAllBy requires at least one condition")
	}
	return func(yield func(*Patient, error) bool) {
		for p, err := range q.Iter(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			if !resources.Matches(p.Entity, conditions) {
				continue
			}
			if !yield(p, nil) {
				return
			}
		}
	}, nil
}

// Query performs a fresh full scan and returns the complete set. The
// session cache is neither consulted nor updated.
func (q *PatientsQuery) Query(ctx context.Context) (*resources.Set, error) {
	return q.scan(ctx)
}

func (s *Session) wrapPatient(rec map[string]any) (*Patient, error) {
	e, err := resources.NewEntity(resources.TypePatient, rec)
	if err != nil {
		return nil, err
	}
	return &Patient{Entity: e, s: s}, nil
}

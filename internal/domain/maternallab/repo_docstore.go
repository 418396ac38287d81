package maternallab

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Jmsandi/newmedtech1-sub002/internal/platform/docstore"
)

const (
	CollectionLabTests     = "maternal_lab_tests"
	CollectionRiskProfiles = "maternal_lab_risk_profiles"
	CollectionAlerts       = "maternal_lab_alerts"
	CollectionPatients     = "maternal_patients"
)

func mapStoreErr(err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func decodeAll[T any](docs [][]byte) ([]*T, error) {
	out := make([]*T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := docstore.Decode(d, &v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, nil
}

// =========== Lab Test Repository ===========

type labTestRepoStore struct{ store docstore.Store }

func NewLabTestRepoStore(store docstore.Store) LabTestRepository {
	return &labTestRepoStore{store: store}
}

func (r *labTestRepoStore) Create(ctx context.Context, t *LabTest) error {
	t.ID = uuid.New()
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	return r.store.Create(ctx, CollectionLabTests, t.ID.String(), t)
}

func (r *labTestRepoStore) GetByID(ctx context.Context, id uuid.UUID) (*LabTest, error) {
	var t LabTest
	if err := r.store.Get(ctx, CollectionLabTests, id.String(), &t); err != nil {
		return nil, mapStoreErr(err)
	}
	return &t, nil
}

func (r *labTestRepoStore) Update(ctx context.Context, t *LabTest) error {
	t.UpdatedAt = time.Now().UTC()
	return mapStoreErr(r.store.Update(ctx, CollectionLabTests, t.ID.String(), t))
}

func (r *labTestRepoStore) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*LabTest, error) {
	docs, err := r.store.QueryByField(ctx, CollectionLabTests, "patient_id", patientID.String())
	if err != nil {
		return nil, err
	}
	return decodeAll[LabTest](docs)
}

// =========== Risk Profile Repository ===========

type riskProfileRepoStore struct{ store docstore.Store }

func NewRiskProfileRepoStore(store docstore.Store) RiskProfileRepository {
	return &riskProfileRepoStore{store: store}
}

func (r *riskProfileRepoStore) GetByPatient(ctx context.Context, patientID uuid.UUID) (*RiskProfile, error) {
	docs, err := r.store.QueryByField(ctx, CollectionRiskProfiles, "patient_id", patientID.String())
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	var p RiskProfile
	if err := docstore.Decode(docs[0], &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert replaces the patient's existing profile or creates the first one.
// Callers hold the patient's profile lock.
func (r *riskProfileRepoStore) Upsert(ctx context.Context, p *RiskProfile) error {
	now := time.Now().UTC()
	existing, err := r.GetByPatient(ctx, p.PatientID)
	switch {
	case err == nil:
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
		p.UpdatedAt = now
		return mapStoreErr(r.store.Update(ctx, CollectionRiskProfiles, p.ID.String(), p))
	case errors.Is(err, ErrNotFound):
		p.ID = uuid.New()
		p.CreatedAt = now
		p.UpdatedAt = now
		return r.store.Create(ctx, CollectionRiskProfiles, p.ID.String(), p)
	default:
		return err
	}
}

// =========== Alert Repository ===========

type alertRepoStore struct{ store docstore.Store }

func NewAlertRepoStore(store docstore.Store) AlertRepository {
	return &alertRepoStore{store: store}
}

func (r *alertRepoStore) Create(ctx context.Context, a *Alert) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return r.store.Create(ctx, CollectionAlerts, a.ID.String(), a)
}

func (r *alertRepoStore) GetByID(ctx context.Context, id uuid.UUID) (*Alert, error) {
	var a Alert
	if err := r.store.Get(ctx, CollectionAlerts, id.String(), &a); err != nil {
		return nil, mapStoreErr(err)
	}
	return &a, nil
}

func (r *alertRepoStore) Update(ctx context.Context, a *Alert) error {
	return mapStoreErr(r.store.Update(ctx, CollectionAlerts, a.ID.String(), a))
}

func (r *alertRepoStore) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Alert, error) {
	docs, err := r.store.QueryByField(ctx, CollectionAlerts, "patient_id", patientID.String())
	if err != nil {
		return nil, err
	}
	return decodeAll[Alert](docs)
}

func (r *alertRepoStore) ListByStatus(ctx context.Context, status AlertStatus) ([]*Alert, error) {
	docs, err := r.store.QueryByField(ctx, CollectionAlerts, "status", string(status))
	if err != nil {
		return nil, err
	}
	return decodeAll[Alert](docs)
}

// =========== Patient Directory ===========

// PatientDirectoryStore reads and registers registry patients in the shared store.
type PatientDirectoryStore struct{ store docstore.Store }

func NewPatientDirectoryStore(store docstore.Store) *PatientDirectoryStore {
	return &PatientDirectoryStore{store: store}
}

func (d *PatientDirectoryStore) GetMaternalPatientByID(ctx context.Context, id uuid.UUID) (*MaternalPatient, error) {
	var p MaternalPatient
	if err := d.store.Get(ctx, CollectionPatients, id.String(), &p); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Register writes a registry patient; used by the import command.
func (d *PatientDirectoryStore) Register(ctx context.Context, p *MaternalPatient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := d.store.Create(ctx, CollectionPatients, p.ID.String(), p)
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return d.store.Update(ctx, CollectionPatients, p.ID.String(), p)
	}
	return err
}

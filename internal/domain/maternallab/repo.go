package maternallab

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrPatientNotFound = errors.New("maternal patient not found")
)

type LabTestRepository interface {
	Create(ctx context.Context, t *LabTest) error
	GetByID(ctx context.Context, id uuid.UUID) (*LabTest, error)
	Update(ctx context.Context, t *LabTest) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*LabTest, error)
}

// RiskProfileRepository stores exactly one profile per patient.
type RiskProfileRepository interface {
	GetByPatient(ctx context.Context, patientID uuid.UUID) (*RiskProfile, error)
	Upsert(ctx context.Context, p *RiskProfile) error
}

type AlertRepository interface {
	Create(ctx context.Context, a *Alert) error
	GetByID(ctx context.Context, id uuid.UUID) (*Alert, error)
	Update(ctx context.Context, a *Alert) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Alert, error)
	ListByStatus(ctx context.Context, status AlertStatus) ([]*Alert, error)
}

// PatientDirectory is the read side of the surrounding patient registry.
type PatientDirectory interface {
	GetMaternalPatientByID(ctx context.Context, id uuid.UUID) (*MaternalPatient, error)
}

// ProfileLocker serialises profile rebuilds for one key.
type ProfileLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// AlertPublisher fans alert events out to downstream consumers.
type AlertPublisher interface {
	Publish(ctx context.Context, messageType string, payload any) error
}

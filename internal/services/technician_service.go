package services

import (
	"context"

	"hospverse/internal/domain"
	"hospverse/internal/listing"
	"hospverse/internal/repos"
	"hospverse/internal/validate"

	"github.com/google/uuid"
)

type TechnicianService struct {
	Procedures *repos.ProcedureRepo
	Clock      Clock
}

type ProcedureInput struct {
	PatientName   string `form:"patient_name" json:"patientName" validate:"required,max=80"`
	ProcedureType string `form:"procedure_type" json:"procedureType" validate:"required,max=80"`
	DoctorName    string `form:"doctor_name" json:"doctorName" validate:"max=80"`
	ScheduledAt   string `form:"scheduled_at" json:"scheduledAt" validate:"required"`
}

type TechnicianStats struct {
	Today      int `json:"todayProcedures"`
	Scheduled  int `json:"scheduled"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
}

func (s *TechnicianService) List(ctx context.Context, clientID, status, q string) ([]domain.Procedure, error) {
	all, err := s.Procedures.List(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return listing.Apply(all,
		listing.Equal(status, func(p domain.Procedure) string { return p.Status }),
		listing.Search(q,
			func(p domain.Procedure) string { return p.PatientName },
			func(p domain.Procedure) string { return p.ProcedureType },
			func(p domain.Procedure) string { return p.DoctorName },
		),
	), nil
}

func (s *TechnicianService) Schedule(ctx context.Context, clientID string, in ProcedureInput) (*domain.Procedure, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	p := &domain.Procedure{
		ID: uuid.NewString(), ClientID: clientID,
		PatientName: validate.CleanText(in.PatientName), ProcedureType: validate.CleanText(in.ProcedureType),
		DoctorName: validate.CleanText(in.DoctorName), Status: domain.ProcedureScheduled, ScheduledAt: in.ScheduledAt,
	}
	if err := s.Procedures.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *TechnicianService) Start(ctx context.Context, clientID, id, technician string) (*domain.Procedure, error) {
	return s.move(ctx, clientID, id, domain.ProcedureScheduled, func() error {
		return s.Procedures.Start(ctx, clientID, id, technician)
	})
}

func (s *TechnicianService) Complete(ctx context.Context, clientID, id, notes string) (*domain.Procedure, error) {
	return s.move(ctx, clientID, id, domain.ProcedureInProgress, func() error {
		return s.Procedures.Complete(ctx, clientID, id, validate.CleanText(notes))
	})
}

func (s *TechnicianService) move(ctx context.Context, clientID, id, from string, apply func() error) (*domain.Procedure, error) {
	p, err := s.Procedures.ByID(ctx, clientID, id)
	if err != nil {
		return nil, err
	}
	if p.Status != from {
		return nil, ErrInvalidTransition
	}
	if err := apply(); err != nil {
		return nil, err
	}
	return s.Procedures.ByID(ctx, clientID, id)
}

func (s *TechnicianService) Stats(ctx context.Context, clientID string) (TechnicianStats, error) {
	var st TechnicianStats
	all, err := s.Procedures.List(ctx, clientID)
	if err != nil {
		return st, err
	}
	today := s.Clock.today()
	for _, p := range all {
		if len(p.ScheduledAt) >= 10 && p.ScheduledAt[:10] == today {
			st.Today++
		}
		switch p.Status {
		case domain.ProcedureScheduled:
			st.Scheduled++
		case domain.ProcedureInProgress:
			st.InProgress++
		case domain.ProcedureCompleted:
			st.Completed++
		}
	}
	return st, nil
}

package services

import (
	"context"
	"errors"
	"slices"

	"hospverse/internal/domain"
	"hospverse/internal/listing"
	"hospverse/internal/repos"
	"hospverse/internal/validate"

	"github.com/google/uuid"
)

// apptTransitions lists, per target status, the statuses an appointment may leave.
var apptTransitions = map[string][]string{
	"checked-in":  {"confirmed"},
	"in-progress": {"confirmed", "checked-in"},
	"completed":   {"checked-in", "in-progress"},
	"cancelled":   {"confirmed", "checked-in"},
	"no-show":     {"confirmed"},
}

func ValidAppointmentTransition(from, to string) bool {
	return slices.Contains(apptTransitions[to], from)
}

type DoctorService struct {
	Appts *repos.AppointmentRepo
	Notes *repos.SOAPRepo
	Clock Clock
}

type AppointmentFilter struct {
	Status string
	Date   string // "", "all", "today" or YYYY-MM-DD
	Q      string
}

type SOAPInput struct {
	AppointmentID string `form:"appointment_id" json:"appointmentId"`
	PatientName   string `form:"patient_name" json:"patientName" validate:"required,max=80"`
	Subjective    string `form:"subjective" json:"subjective" validate:"required,max=4000"`
	Objective     string `form:"objective" json:"objective" validate:"max=4000"`
	Assessment    string `form:"assessment" json:"assessment" validate:"required,max=4000"`
	Plan          string `form:"plan" json:"plan" validate:"max=4000"`
}

type DoctorStats struct {
	TodayAppointments int `json:"todayAppointments"`
	Completed         int `json:"completed"`
	Waiting           int `json:"waiting"`
	InProgress        int `json:"inProgress"`
}

func (s *DoctorService) Appointments(ctx context.Context, clientID string, f AppointmentFilter) ([]domain.Appointment, error) {
	all, err := s.Appts.List(ctx, clientID)
	if err != nil {
		return nil, err
	}
	day := f.Date
	if day == "today" {
		day = s.Clock.today()
	}
	return listing.Apply(all,
		listing.Equal(f.Status, func(a domain.Appointment) string { return a.Status }),
		listing.Equal(day, func(a domain.Appointment) string { return a.Date }),
		listing.Search(f.Q,
			func(a domain.Appointment) string { return a.PatientName },
			func(a domain.Appointment) string { return a.Treatment },
			func(a domain.Appointment) string { return a.Phone },
		),
	), nil
}

func (s *DoctorService) UpdateAppointmentStatus(ctx context.Context, clientID, id, to string) (*domain.Appointment, error) {
	a, err := s.Appts.ByID(ctx, clientID, id)
	if err != nil {
		return nil, err
	}
	if !ValidAppointmentTransition(a.Status, to) {
		return nil, ErrInvalidTransition
	}
	if err := s.Appts.UpdateStatus(ctx, clientID, id, a.Status, to); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}
	a.Status = to
	return a, nil
}

// SaveSOAP stores a consultation note. Free text is stripped of markup.
func (s *DoctorService) SaveSOAP(ctx context.Context, clientID string, in SOAPInput) (*domain.SOAPNote, error) {
	in.Subjective = validate.CleanText(in.Subjective)
	in.Assessment = validate.CleanText(in.Assessment)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.AppointmentID != "" {
		if _, err := s.Appts.ByID(ctx, clientID, in.AppointmentID); err != nil {
			return nil, err
		}
	}
	n := &domain.SOAPNote{
		ID: uuid.NewString(), ClientID: clientID, AppointmentID: in.AppointmentID,
		PatientName: validate.CleanText(in.PatientName),
		Subjective:  in.Subjective, Objective: validate.CleanText(in.Objective),
		Assessment: in.Assessment, Plan: validate.CleanText(in.Plan),
	}
	if err := s.Notes.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *DoctorService) RecentNotes(ctx context.Context, clientID string, limit int) ([]domain.SOAPNote, error) {
	return s.Notes.List(ctx, clientID, limit)
}

func (s *DoctorService) Stats(ctx context.Context, clientID string) (DoctorStats, error) {
	var st DoctorStats
	today, err := s.Appts.ListOn(ctx, clientID, s.Clock.today())
	if err != nil {
		return st, err
	}
	st.TodayAppointments = len(today)
	for _, a := range today {
		switch a.Status {
		case "completed":
			st.Completed++
		case "checked-in":
			st.Waiting++
		case "in-progress":
			st.InProgress++
		}
	}
	return st, nil
}

package services

import (
	"context"
	"errors"
	"slices"

	"hospverse/internal/domain"
	"hospverse/internal/repos"
	"hospverse/internal/validate"

	"github.com/google/uuid"
)

var ErrSlotTaken = errors.New("time slot already booked")

// SlotGrid is the clinic's bookable day: half-hour slots around a lunch break.
var SlotGrid = []string{
	"09:00", "09:30", "10:00", "10:30", "11:00", "11:30", "12:00", "12:30",
	"14:00", "14:30", "15:00", "15:30", "16:00", "16:30", "17:00", "17:30",
}

// queueTransitions lists, per target status, the statuses an entry may leave.
var queueTransitions = map[string][]string{
	domain.QueueCheckedIn:  {domain.QueueWaiting},
	domain.QueueWithDoctor: {domain.QueueWaiting, domain.QueueCheckedIn},
	domain.QueueCompleted:  {domain.QueueWithDoctor},
	domain.QueueCancelled:  {domain.QueueWaiting, domain.QueueCheckedIn},
}

// ValidQueueTransition reports whether an entry in from may move to to.
func ValidQueueTransition(from, to string) bool {
	return slices.Contains(queueTransitions[to], from)
}

type ReceptionService struct {
	Appts    *repos.AppointmentRepo
	Patients *repos.PatientRepo
	Queue    *repos.QueueRepo
	Staff    *repos.StaffRepo
	Clock    Clock
}

type PatientInput struct {
	FullName    string `form:"full_name" json:"fullName" validate:"required,max=80"`
	Phone       string `form:"phone" json:"phone" validate:"required,phone"`
	Email       string `form:"email" json:"email" validate:"omitempty,email"`
	Gender      string `form:"gender" json:"gender" validate:"omitempty,oneof=female male other"`
	DateOfBirth string `form:"date_of_birth" json:"dateOfBirth" validate:"omitempty,isodate"`
}

type BookingInput struct {
	PatientName string `form:"patient_name" json:"patientName" validate:"required,max=80"`
	Phone       string `form:"phone" json:"phone" validate:"required,phone"`
	DoctorID    string `form:"doctor_id" json:"doctorId" validate:"required"`
	Date        string `form:"date" json:"date" validate:"required,isodate"`
	Time        string `form:"time" json:"time" validate:"required,hhmm"`
	Treatment   string `form:"treatment" json:"treatment" validate:"max=80"`
}

type WalkInInput struct {
	PatientName string `form:"patient_name" json:"patientName" validate:"required,max=80"`
	Phone       string `form:"phone" json:"phone" validate:"required,phone"`
	Priority    string `form:"priority" json:"priority" validate:"omitempty,oneof=normal urgent"`
	DoctorName  string `form:"doctor_name" json:"doctorName" validate:"max=80"`
}

type ReceptionStats struct {
	TodayAppointments     int `json:"todayAppointments"`
	WalkInsRegistered     int `json:"walkInsRegistered"`
	PatientsInQueue       int `json:"patientsInQueue"`
	CompletedAppointments int `json:"completedAppointments"`
}

func (s *ReceptionService) TodayAppointments(ctx context.Context, clientID string) ([]domain.Appointment, error) {
	return s.Appts.ListOn(ctx, clientID, s.Clock.today())
}

func (s *ReceptionService) RegisterPatient(ctx context.Context, clientID string, in PatientInput) (*domain.Patient, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	p := &domain.Patient{
		ID: uuid.NewString(), ClientID: clientID,
		FullName: validate.CleanText(in.FullName), Phone: in.Phone, Email: in.Email,
		Gender: in.Gender, DateOfBirth: in.DateOfBirth,
	}
	if err := s.Patients.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ReceptionService) ListPatients(ctx context.Context, clientID string) ([]domain.Patient, error) {
	return s.Patients.List(ctx, clientID)
}

// Doctors lists active doctors for booking forms.
func (s *ReceptionService) Doctors(ctx context.Context, clientID string) ([]domain.Staff, error) {
	return s.Staff.Search(ctx, clientID, repos.StaffFilter{Role: domain.RoleDoctor, Status: "active"})
}

// TimeSlots returns the grid slots still free on day. An empty doctorID
// treats a slot as taken when any doctor has it.
func (s *ReceptionService) TimeSlots(ctx context.Context, clientID, day, doctorID string) ([]string, error) {
	if _, ok := validate.Date(day); !ok {
		return nil, validate.FieldErrors{"date": "Please enter a date as YYYY-MM-DD"}
	}
	booked, err := s.Appts.BookedTimes(ctx, clientID, day, doctorID)
	if err != nil {
		return nil, err
	}
	free := make([]string, 0, len(SlotGrid))
	for _, slot := range SlotGrid {
		if !slices.Contains(booked, slot) {
			free = append(free, slot)
		}
	}
	return free, nil
}

// BookAppointment creates a confirmed appointment in a free slot.
func (s *ReceptionService) BookAppointment(ctx context.Context, clientID string, in BookingInput) (*domain.Appointment, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if !slices.Contains(SlotGrid, in.Time) {
		return nil, validate.FieldErrors{"time": "Please pick a time slot"}
	}
	doc, err := s.Staff.ByID(ctx, clientID, in.DoctorID)
	if err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return nil, validate.FieldErrors{"doctor_id": "Please pick a doctor"}
		}
		return nil, err
	}
	free, err := s.TimeSlots(ctx, clientID, in.Date, doc.ID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(free, in.Time) {
		return nil, ErrSlotTaken
	}
	a := &domain.Appointment{
		ID: uuid.NewString(), ClientID: clientID,
		PatientName: validate.CleanText(in.PatientName), Phone: in.Phone,
		DoctorID: doc.ID, DoctorName: doc.Name,
		Date: in.Date, Time: in.Time, Treatment: validate.CleanText(in.Treatment),
		Status: "confirmed",
	}
	if err := s.Appts.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// CheckIn marks a confirmed appointment checked-in and queues the patient.
// A concurrent check-in of the same appointment fails with ErrInvalidTransition.
func (s *ReceptionService) CheckIn(ctx context.Context, clientID, apptID string) (*domain.QueueEntry, error) {
	a, err := s.Appts.ByID(ctx, clientID, apptID)
	if err != nil {
		return nil, err
	}
	if a.Status != "confirmed" {
		return nil, ErrInvalidTransition
	}
	e := &domain.QueueEntry{
		ID: uuid.NewString(), ClientID: clientID, PatientName: a.PatientName, Phone: a.Phone,
		Priority: "normal", Status: domain.QueueCheckedIn, DoctorName: a.DoctorName,
	}
	if err := s.Appts.CheckIn(ctx, clientID, a.ID, s.Clock.today(), e); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}
	return e, nil
}

// CheckOut completes a checked-in appointment.
func (s *ReceptionService) CheckOut(ctx context.Context, clientID, apptID string) error {
	a, err := s.Appts.ByID(ctx, clientID, apptID)
	if err != nil {
		return err
	}
	if !ValidAppointmentTransition(a.Status, "completed") {
		return ErrInvalidTransition
	}
	if err := s.Appts.UpdateStatus(ctx, clientID, a.ID, a.Status, "completed"); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return ErrInvalidTransition
		}
		return err
	}
	return nil
}

// QueueToday returns today's queue, urgent entries first.
func (s *ReceptionService) QueueToday(ctx context.Context, clientID string) ([]domain.QueueEntry, error) {
	return s.Queue.ListOn(ctx, clientID, s.Clock.today())
}

// AddWalkIn puts a walk-in patient at the back of today's queue.
func (s *ReceptionService) AddWalkIn(ctx context.Context, clientID string, in WalkInInput) (*domain.QueueEntry, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Priority == "" {
		in.Priority = "normal"
	}
	e := &domain.QueueEntry{
		ID: uuid.NewString(), ClientID: clientID,
		PatientName: validate.CleanText(in.PatientName), Phone: in.Phone,
		Priority: in.Priority, Status: domain.QueueWaiting, DoctorName: validate.CleanText(in.DoctorName),
	}
	if err := s.Queue.Add(ctx, s.Clock.today(), e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *ReceptionService) UpdateQueueStatus(ctx context.Context, clientID, id, to string) (*domain.QueueEntry, error) {
	e, err := s.Queue.ByID(ctx, clientID, id)
	if err != nil {
		return nil, err
	}
	if !ValidQueueTransition(e.Status, to) {
		return nil, ErrInvalidTransition
	}
	// the guarded update loses to a concurrent change of the same entry
	if err := s.Queue.UpdateStatus(ctx, clientID, id, e.Status, to); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}
	e.Status = to
	return e, nil
}

func (s *ReceptionService) Stats(ctx context.Context, clientID string) (ReceptionStats, error) {
	var st ReceptionStats
	appts, err := s.TodayAppointments(ctx, clientID)
	if err != nil {
		return st, err
	}
	st.TodayAppointments = len(appts)
	for _, a := range appts {
		if a.Status == "completed" {
			st.CompletedAppointments++
		}
	}
	q, err := s.QueueToday(ctx, clientID)
	if err != nil {
		return st, err
	}
	st.WalkInsRegistered = len(q)
	for _, e := range q {
		if e.Status == domain.QueueWaiting || e.Status == domain.QueueCheckedIn {
			st.PatientsInQueue++
		}
	}
	return st, nil
}

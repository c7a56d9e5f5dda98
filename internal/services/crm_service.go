package services

import (
	"context"
	"errors"

	"hospverse/internal/domain"
	"hospverse/internal/listing"
	"hospverse/internal/repos"
	"hospverse/internal/validate"

	"github.com/google/uuid"
)

type CRMService struct {
	Leads *repos.LeadRepo
	Clock Clock
}

type LeadFilter struct {
	Status     string
	Source     string
	AssignedTo string
	Q          string
}

type LeadInput struct {
	FullName   string `form:"full_name" json:"fullName" validate:"required,max=80"`
	Mobile     string `form:"mobile" json:"mobile" validate:"required,phone"`
	Email      string `form:"email" json:"email" validate:"omitempty,email"`
	Source     string `form:"source" json:"source" validate:"required,oneof=walk-in website instagram facebook referral google other"`
	AssignedTo string `form:"assigned_to" json:"assignedTo" validate:"max=80"`
	Notes      string `form:"notes" json:"notes" validate:"max=1000"`
}

type CRMStats struct {
	Total          int            `json:"totalLeads"`
	ByStatus       map[string]int `json:"byStatus"`
	Converted      int            `json:"converted"`
	ConversionRate float64        `json:"conversionRate"`
}

var leadStatuses = []string{domain.LeadNew, domain.LeadContacted, domain.LeadInterested, domain.LeadConverted, domain.LeadDropped}

// FilterLeads applies the lead list filters. They commute.
func FilterLeads(all []domain.Lead, f LeadFilter) []domain.Lead {
	return listing.Apply(all,
		listing.Equal(f.Status, func(l domain.Lead) string { return l.Status }),
		listing.Equal(f.Source, func(l domain.Lead) string { return l.Source }),
		listing.Equal(f.AssignedTo, func(l domain.Lead) string { return l.AssignedTo }),
		listing.Search(f.Q,
			func(l domain.Lead) string { return l.FullName },
			func(l domain.Lead) string { return l.Mobile },
			func(l domain.Lead) string { return l.Email },
		),
	)
}

func (s *CRMService) List(ctx context.Context, clientID string, f LeadFilter) ([]domain.Lead, error) {
	all, err := s.Leads.List(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return FilterLeads(all, f), nil
}

func (s *CRMService) Detail(ctx context.Context, clientID, id string) (*domain.Lead, []domain.LeadEvent, error) {
	l, err := s.Leads.ByID(ctx, clientID, id)
	if err != nil {
		return nil, nil, err
	}
	ev, err := s.Leads.Events(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return l, ev, nil
}

func (s *CRMService) Create(ctx context.Context, clientID, actor string, in LeadInput) (*domain.Lead, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	l := &domain.Lead{
		ID: uuid.NewString(), ClientID: clientID,
		FullName: validate.CleanText(in.FullName), Mobile: in.Mobile, Email: in.Email,
		Source: in.Source, Status: domain.LeadNew, AssignedTo: validate.CleanText(in.AssignedTo),
		Notes: validate.CleanText(in.Notes),
	}
	if err := s.Leads.Create(ctx, l, actor); err != nil {
		return nil, err
	}
	return l, nil
}

// UpdateStatus moves a lead between pipeline stages. Converted and dropped
// leads are final; conversion itself goes through Convert.
func (s *CRMService) UpdateStatus(ctx context.Context, clientID, id, status, actor string) error {
	if !validate.OneOf(status, domain.LeadNew, domain.LeadContacted, domain.LeadInterested, domain.LeadDropped) {
		return ErrInvalidTransition
	}
	l, err := s.Leads.ByID(ctx, clientID, id)
	if err != nil {
		return err
	}
	if closedLead(l.Status) {
		return ErrInvalidTransition
	}
	if err := s.Leads.UpdateStatus(ctx, clientID, id, status, actor); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return ErrInvalidTransition
		}
		return err
	}
	return nil
}

func closedLead(status string) bool {
	return status == domain.LeadConverted || status == domain.LeadDropped
}

func (s *CRMService) Drop(ctx context.Context, clientID, id, actor string) error {
	return s.UpdateStatus(ctx, clientID, id, domain.LeadDropped, actor)
}

func (s *CRMService) AddNote(ctx context.Context, clientID, id, note, actor string) error {
	note = validate.CleanText(note)
	if note == "" {
		return validate.FieldErrors{"note": "Please enter a note"}
	}
	return s.Leads.AddNote(ctx, clientID, id, note, actor)
}

// Convert registers the lead as a patient.
func (s *CRMService) Convert(ctx context.Context, clientID, id, actor string) (*domain.Patient, error) {
	l, err := s.Leads.ByID(ctx, clientID, id)
	if err != nil {
		return nil, err
	}
	if closedLead(l.Status) {
		return nil, ErrInvalidTransition
	}
	p := &domain.Patient{ID: uuid.NewString(), ClientID: clientID, FullName: l.FullName, Phone: l.Mobile, Email: l.Email}
	if err := s.Leads.Convert(ctx, clientID, id, p, actor); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}
	return p, nil
}

func (s *CRMService) Assignees(ctx context.Context, clientID string) ([]string, error) {
	return s.Leads.Assignees(ctx, clientID)
}

func (s *CRMService) Stats(ctx context.Context, clientID string) (CRMStats, error) {
	all, err := s.Leads.List(ctx, clientID)
	if err != nil {
		return CRMStats{}, err
	}
	st := CRMStats{Total: len(all), ByStatus: map[string]int{}}
	for _, status := range leadStatuses {
		st.ByStatus[status] = 0
	}
	for _, l := range all {
		st.ByStatus[l.Status]++
	}
	st.Converted = st.ByStatus[domain.LeadConverted]
	if st.Total > 0 {
		st.ConversionRate = float64(st.Converted) * 100 / float64(st.Total)
	}
	return st, nil
}

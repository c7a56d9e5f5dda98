package services

import (
	"context"

	"hospverse/internal/domain"
	"hospverse/internal/repos"
	"hospverse/internal/validate"

	"github.com/google/uuid"
)

type HRService struct {
	Staff *repos.StaffRepo
	Clock Clock
}

type StaffInput struct {
	Name       string `form:"name" json:"name" validate:"required,max=80"`
	Email      string `form:"email" json:"email" validate:"required,email"`
	Phone      string `form:"phone" json:"phone" validate:"omitempty,phone"`
	Role       string `form:"role" json:"role" validate:"required,oneof=admin doctor nurse receptionist pharmacist technician billing hr"`
	Department string `form:"department" json:"department" validate:"max=60"`
	Branch     string `form:"branch" json:"branch" validate:"required,max=60"`
	Status     string `form:"status" json:"status" validate:"omitempty,oneof=active inactive on-leave"`
	JoinDate   string `form:"join_date" json:"joinDate" validate:"omitempty,isodate"`
	Salary     int    `form:"salary" json:"salary" validate:"gte=0"`
}

type HRStats struct {
	Total    int            `json:"totalStaff"`
	Active   int            `json:"activeStaff"`
	OnLeave  int            `json:"onLeave"`
	Inactive int            `json:"inactive"`
	ByRole   map[string]int `json:"byRole"`
	Payroll  int            `json:"monthlyPayroll"`
}

// Directory filters staff in the database; see repos.StaffFilter.
func (s *HRService) Directory(ctx context.Context, clientID string, f repos.StaffFilter) ([]domain.Staff, error) {
	if q, ok := validate.Q(f.Q); ok {
		f.Q = q
	} else {
		f.Q = ""
	}
	return s.Staff.Search(ctx, clientID, f)
}

func (s *HRService) Detail(ctx context.Context, clientID, id string) (*domain.Staff, error) {
	return s.Staff.ByID(ctx, clientID, id)
}

func (s *HRService) Branches(ctx context.Context, clientID string) ([]string, error) {
	return s.Staff.Branches(ctx, clientID)
}

func (s *HRService) Add(ctx context.Context, clientID string, in StaffInput) (*domain.Staff, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	st := staffFrom(in)
	st.ID, st.ClientID = uuid.NewString(), clientID
	if st.JoinDate == "" {
		st.JoinDate = s.Clock.today()
	}
	if err := s.Staff.Create(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *HRService) Update(ctx context.Context, clientID, id string, in StaffInput) (*domain.Staff, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	st := staffFrom(in)
	st.ID, st.ClientID = id, clientID
	if err := s.Staff.Update(ctx, st); err != nil {
		return nil, err
	}
	return s.Staff.ByID(ctx, clientID, id)
}

func staffFrom(in StaffInput) *domain.Staff {
	status := in.Status
	if status == "" {
		status = "active"
	}
	return &domain.Staff{
		Name: validate.CleanText(in.Name), Email: in.Email, Phone: in.Phone, Role: in.Role,
		Department: validate.CleanText(in.Department), Branch: validate.CleanText(in.Branch),
		Status: status, JoinDate: in.JoinDate, Salary: in.Salary,
	}
}

func (s *HRService) Stats(ctx context.Context, clientID string) (HRStats, error) {
	all, err := s.Staff.Search(ctx, clientID, repos.StaffFilter{})
	if err != nil {
		return HRStats{}, err
	}
	st := HRStats{Total: len(all), ByRole: map[string]int{}}
	for _, m := range all {
		st.ByRole[m.Role]++
		switch m.Status {
		case "active":
			st.Active++
			st.Payroll += m.Salary
		case "on-leave":
			st.OnLeave++
			st.Payroll += m.Salary
		default:
			st.Inactive++
		}
	}
	return st, nil
}

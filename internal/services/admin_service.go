package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hospverse/internal/domain"
	"hospverse/internal/listing"
	"hospverse/internal/repos"
	"hospverse/internal/validate"

	"github.com/google/uuid"
)

// Week-over-week deltas shown on the admin dashboard. There is no history
// table to compute them from yet.
const (
	revenueChange      = 12.5
	appointmentsChange = 8.3
)

var reportTypes = []string{"revenue", "appointments", "staff", "inventory", "patients"}

type AdminService struct {
	Activity *repos.ActivityRepo
	Users    *repos.UserRepo
	Appts    *repos.AppointmentRepo
	Staff    *repos.StaffRepo
	Products *repos.ProductRepo
	Invoices *repos.InvoiceRepo
	Clock    Clock
}

type LogFilter struct {
	Date       string // all|today|yesterday|week
	Role       string
	ActionType string
	Q          string
}

// Metrics are computed from today's rows. Each widget is independent; callers
// may load them concurrently.
func (s *AdminService) Metrics(ctx context.Context, clientID string) (domain.AdminMetrics, error) {
	m := domain.AdminMetrics{RevenueChange: revenueChange, AppointmentsChange: appointmentsChange}
	var err error
	if m.RevenueToday, err = s.RevenueToday(ctx, clientID); err != nil {
		return m, err
	}
	if m.TotalAppointments, err = s.AppointmentsToday(ctx, clientID); err != nil {
		return m, err
	}
	if m.ActiveStaff, err = s.ActiveStaff(ctx, clientID); err != nil {
		return m, err
	}
	m.LowInventory, err = s.Products.CountLow(ctx, clientID)
	return m, err
}

func (s *AdminService) RevenueToday(ctx context.Context, clientID string) (float64, error) {
	return s.Invoices.CollectedOn(ctx, clientID, s.Clock.today())
}

func (s *AdminService) AppointmentsToday(ctx context.Context, clientID string) (int, error) {
	appts, err := s.Appts.ListOn(ctx, clientID, s.Clock.today())
	return len(appts), err
}

func (s *AdminService) ActiveStaff(ctx context.Context, clientID string) (int, error) {
	st, err := s.Staff.Search(ctx, clientID, repos.StaffFilter{Status: "active"})
	return len(st), err
}

func (s *AdminService) LowInventory(ctx context.Context, clientID string) (int, error) {
	return s.Products.CountLow(ctx, clientID)
}

// Logs returns activity entries matching f, newest first.
func (s *AdminService) Logs(ctx context.Context, clientID string, f LogFilter) ([]domain.ActivityLog, error) {
	all, err := s.Activity.List(ctx, clientID, 500)
	if err != nil {
		return nil, err
	}
	return listing.Apply(all,
		s.dateFilter(f.Date),
		listing.Equal(f.Role, func(a domain.ActivityLog) string { return a.UserRole }),
		listing.Equal(f.ActionType, func(a domain.ActivityLog) string { return a.ActionType }),
		listing.Search(f.Q,
			func(a domain.ActivityLog) string { return a.User },
			func(a domain.ActivityLog) string { return a.Action },
			func(a domain.ActivityLog) string { return a.Module },
		),
	), nil
}

func (s *AdminService) dateFilter(v string) listing.Filter[domain.ActivityLog] {
	now := s.Clock.now()
	day := func(t time.Time) string { return t.Format(dateLayout) }
	switch strings.ToLower(v) {
	case "today":
		d := day(now)
		return func(a domain.ActivityLog) bool { return strings.HasPrefix(a.Timestamp, d) }
	case "yesterday":
		d := day(now.AddDate(0, 0, -1))
		return func(a domain.ActivityLog) bool { return strings.HasPrefix(a.Timestamp, d) }
	case "week":
		from := day(now.AddDate(0, 0, -7))
		return func(a domain.ActivityLog) bool { return a.Timestamp >= from }
	}
	return nil
}

// Record writes an activity entry. Failures are the caller's to log.
func (s *AdminService) Record(ctx context.Context, clientID string, u *domain.User, module, action, actionType, ip string) error {
	a := &domain.ActivityLog{
		ID: uuid.NewString(), ClientID: clientID, Module: module,
		Action: action, ActionType: actionType, IPAddress: ip,
	}
	if u != nil {
		a.User, a.UserRole = u.Name, u.Role
	}
	return s.Activity.Record(ctx, a)
}

func (s *AdminService) ListUsers(ctx context.Context, clientID string) ([]domain.User, error) {
	return s.Users.ListByClient(ctx, clientID)
}

// ExportURL names the CSV a report export would produce.
func (s *AdminService) ExportURL(kind string) (string, error) {
	if !validate.OneOf(kind, reportTypes...) {
		return "", validate.FieldErrors{"type": "Please pick a report type"}
	}
	return fmt.Sprintf("/exports/%s_report_%s.csv", kind, s.Clock.today()), nil
}

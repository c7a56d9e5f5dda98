package repos

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hospverse/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func openTest(t *testing.T) *TenantRepo {
	t.Helper()
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewTenantRepo(db)
}

func TestSeedIsIdempotent(t *testing.T) {
	tr := openTest(t)
	db := tr.db
	require.NoError(t, seedTenants(db))
	require.NoError(t, seedUsers(db))
	require.NoError(t, seedIfEmpty(db))

	var staff int
	require.NoError(t, db.Get(&staff, `SELECT COUNT(*) FROM staff`))
	assert.Equal(t, 6, staff)

	all, err := tr.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestSeededPasswordsAreHashed(t *testing.T) {
	tr := openTest(t)
	var hashes []string
	require.NoError(t, tr.db.Select(&hashes, `SELECT password_hash FROM users`))
	require.NotEmpty(t, hashes)
	for _, h := range hashes {
		assert.NotContains(t, h, "Passw0rd!")
		assert.True(t, strings.HasPrefix(h, "$2"))
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("Passw0rd!")))
	}
}

func TestTenantModulesRoundTrip(t *testing.T) {
	tr := openTest(t)
	ctx := context.Background()

	bm, err := tr.ByID(ctx, "beautymed")
	require.NoError(t, err)
	assert.False(t, bm.ModuleEnabled(domain.ModuleCRM))
	assert.True(t, bm.ModuleEnabled(domain.ModuleReception))
	assert.Contains(t, bm.RolePermissions[domain.RoleDoctor], domain.ModuleDoctor)

	bm.Modules[domain.ModuleCRM] = true
	require.NoError(t, tr.UpdateModules(ctx, "beautymed", bm.Modules))
	bm, err = tr.ByID(ctx, "beautymed")
	require.NoError(t, err)
	assert.True(t, bm.ModuleEnabled(domain.ModuleCRM))

	assert.ErrorIs(t, tr.UpdateStatus(ctx, "nope", "active"), ErrNotFound)
	_, err = tr.ByID(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadTenantsYAML(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "tenants.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
tenants:
  - id: glowup
    name: GlowUp Clinic
    plan: enterprise
    modules:
      crm: false
    role_permissions:
      nurse: [dashboard, patients, appointments, reception]
`), 0o600))

	ts, err := LoadTenantsYAML(p)
	require.NoError(t, err)
	require.Len(t, ts, 1)
	g := ts[0]
	assert.Equal(t, "glowup", g.Subdomain)
	assert.Equal(t, "active", g.Status)
	assert.False(t, g.ModuleEnabled(domain.ModuleCRM))
	assert.True(t, g.ModuleEnabled(domain.ModuleHR))
	assert.True(t, g.HasModuleAccess(domain.RoleNurse, domain.ModuleReception))

	tr := openTest(t)
	require.NoError(t, tr.Upsert(context.Background(), &g))
	got, err := tr.ByID(context.Background(), "glowup")
	require.NoError(t, err)
	assert.Equal(t, "enterprise", got.Plan)

	require.NoError(t, os.WriteFile(p, []byte("tenants:\n  - plan: basic\n"), 0o600))
	_, err = LoadTenantsYAML(p)
	assert.Error(t, err)
}

func TestStaffSearchFilters(t *testing.T) {
	tr := openTest(t)
	sr := NewStaffRepo(tr.db)
	ctx := context.Background()

	all, err := sr.Search(ctx, DefaultTenantID, StaffFilter{Branch: "all", Role: "all", Status: "all"})
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.Equal(t, "Dr. Anika Mehta", all[0].Name) // ordered by name

	docs, err := sr.Search(ctx, DefaultTenantID, StaffFilter{Role: "doctor", Branch: "uptown"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Dr. Vikram Rao", docs[0].Name)

	byPhone, err := sr.Search(ctx, DefaultTenantID, StaffFilter{Q: "44444"})
	require.NoError(t, err)
	require.Len(t, byPhone, 1)
	assert.Equal(t, "Imran Khan", byPhone[0].Name)

	none, err := sr.Search(ctx, "skinova", StaffFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestQueueNumbersIncrement(t *testing.T) {
	tr := openTest(t)
	qr := NewQueueRepo(tr.db)
	ctx := context.Background()
	day := "2030-01-02"

	for i, name := range []string{"A", "B", "C"} {
		e := &domain.QueueEntry{ID: "qq-" + name, ClientID: DefaultTenantID, PatientName: name, Priority: "normal", Status: domain.QueueWaiting}
		require.NoError(t, qr.Add(ctx, day, e))
		assert.Equal(t, i+1, e.QueueNumber)
		assert.NotEmpty(t, e.CheckedInAt)
	}
	list, err := qr.ListOn(ctx, DefaultTenantID, day)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	require.NoError(t, qr.UpdateStatus(ctx, DefaultTenantID, "qq-A", domain.QueueWaiting, domain.QueueCheckedIn))
	// stale from-status
	assert.ErrorIs(t, qr.UpdateStatus(ctx, DefaultTenantID, "qq-A", domain.QueueWaiting, domain.QueueCheckedIn), ErrNotFound)
}

func TestAppointmentCheckInIsAllOrNothing(t *testing.T) {
	tr := openTest(t)
	ar, qr := NewAppointmentRepo(tr.db), NewQueueRepo(tr.db)
	ctx := context.Background()
	day := "2030-01-02"

	a := &domain.Appointment{ID: "ap-x", ClientID: DefaultTenantID, PatientName: "Ira Das", Phone: "+91 90000 00001",
		DoctorID: "st-mehta", DoctorName: "Dr. Anika Mehta", Date: day, Time: "10:00", Status: "confirmed"}
	require.NoError(t, ar.Create(ctx, a))

	e := &domain.QueueEntry{ID: "qq-x", ClientID: DefaultTenantID, PatientName: a.PatientName, Priority: "normal", Status: domain.QueueCheckedIn}
	require.NoError(t, ar.CheckIn(ctx, DefaultTenantID, a.ID, day, e))
	assert.Equal(t, 1, e.QueueNumber)

	again := &domain.QueueEntry{ID: "qq-y", ClientID: DefaultTenantID, PatientName: a.PatientName, Priority: "normal", Status: domain.QueueCheckedIn}
	assert.ErrorIs(t, ar.CheckIn(ctx, DefaultTenantID, a.ID, day, again), ErrNotFound)
	list, err := qr.ListOn(ctx, DefaultTenantID, day)
	require.NoError(t, err)
	assert.Len(t, list, 1, "a refused check-in queues nobody")

	// a failed queue insert leaves the appointment confirmed
	b := &domain.Appointment{ID: "ap-y", ClientID: DefaultTenantID, PatientName: "Om Rao", Phone: "+91 90000 00002",
		DoctorID: "st-mehta", DoctorName: "Dr. Anika Mehta", Date: day, Time: "10:30", Status: "confirmed"}
	require.NoError(t, ar.Create(ctx, b))
	dup := &domain.QueueEntry{ID: "qq-x", ClientID: DefaultTenantID, PatientName: b.PatientName, Priority: "normal", Status: domain.QueueCheckedIn}
	require.Error(t, ar.CheckIn(ctx, DefaultTenantID, b.ID, day, dup))
	got, err := ar.ByID(ctx, DefaultTenantID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "confirmed", got.Status)

	require.NoError(t, ar.UpdateStatus(ctx, DefaultTenantID, a.ID, "checked-in", "completed"))
	assert.ErrorIs(t, ar.UpdateStatus(ctx, DefaultTenantID, a.ID, "checked-in", "completed"), ErrNotFound)
}

func TestLeadLifecycle(t *testing.T) {
	tr := openTest(t)
	lr := NewLeadRepo(tr.db)
	ctx := context.Background()

	l := &domain.Lead{ID: "ld-x", ClientID: DefaultTenantID, FullName: "Nila Bose", Mobile: "+91 90000 00000", Source: "website", Status: domain.LeadNew, Notes: "first call"}
	require.NoError(t, lr.Create(ctx, l, "tester"))
	require.NoError(t, lr.UpdateStatus(ctx, DefaultTenantID, "ld-x", domain.LeadContacted, "tester"))
	require.NoError(t, lr.AddNote(ctx, DefaultTenantID, "ld-x", "wants pricing", "tester"))

	p := &domain.Patient{ID: "pt-x", ClientID: DefaultTenantID, FullName: l.FullName, Phone: l.Mobile}
	require.NoError(t, lr.Convert(ctx, DefaultTenantID, "ld-x", p, "tester"))
	assert.ErrorIs(t, lr.Convert(ctx, DefaultTenantID, "ld-x", &domain.Patient{ID: "pt-y", ClientID: DefaultTenantID, FullName: "x", Phone: "1"}, "tester"), ErrNotFound)
	assert.ErrorIs(t, lr.UpdateStatus(ctx, DefaultTenantID, "ld-x", domain.LeadNew, "tester"), ErrNotFound)

	got, err := lr.ByID(ctx, DefaultTenantID, "ld-x")
	require.NoError(t, err)
	assert.Equal(t, domain.LeadConverted, got.Status)
	assert.Equal(t, "pt-x", got.PatientID)
	assert.NotEmpty(t, got.ConvertedAt)

	ev, err := lr.Events(ctx, "ld-x")
	require.NoError(t, err)
	var kinds []string
	for _, e := range ev {
		kinds = append(kinds, e.Kind+":"+e.Value)
	}
	assert.Equal(t, []string{"status:new", "note:first call", "status:contacted", "note:wants pricing", "status:converted"}, kinds)

	_, err = NewPatientRepo(tr.db).ByID(ctx, DefaultTenantID, "pt-x")
	assert.NoError(t, err)
	// the failed second conversion rolled back its patient
	_, err = NewPatientRepo(tr.db).ByID(ctx, DefaultTenantID, "pt-y")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvoicePayments(t *testing.T) {
	tr := openTest(t)
	ir := NewInvoiceRepo(tr.db)
	ctx := context.Background()

	inv, err := ir.RecordPayment(ctx, DefaultTenantID, "inv-3", 500, "cash")
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePartial, inv.Status)

	_, err = ir.RecordPayment(ctx, DefaultTenantID, "inv-3", 5000, "cash")
	assert.ErrorIs(t, err, ErrOverpayment)

	inv, err = ir.RecordPayment(ctx, DefaultTenantID, "inv-3", 1000, "card")
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePaid, inv.Status)
	assert.InDelta(t, 1500, inv.PaidAmount, 0.001)

	require.NoError(t, ir.MarkRefunded(ctx, DefaultTenantID, "inv-3"))
	_, err = ir.RecordPayment(ctx, DefaultTenantID, "missing", 1, "cash")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStockNeverNegative(t *testing.T) {
	tr := openTest(t)
	pr := NewProductRepo(tr.db)
	ctx := context.Background()

	n, err := pr.AdjustStock(ctx, DefaultTenantID, "pr-2", 10, "restock", "tester")
	require.NoError(t, err)
	assert.Equal(t, 14, n)

	_, err = pr.AdjustStock(ctx, DefaultTenantID, "pr-2", -100, "use", "tester")
	assert.ErrorIs(t, err, ErrInsufficientStock)

	logs, err := pr.Logs(ctx, "pr-2", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 10, logs[0].Change)

	low, err := pr.CountLow(ctx, DefaultTenantID)
	require.NoError(t, err)
	assert.Equal(t, 1, low) // only the toxin is still at or under its minimum
}

func TestPhotoCountTracksUploads(t *testing.T) {
	tr := openTest(t)
	pr := NewPhotoRepo(tr.db)
	ctx := context.Background()

	require.NoError(t, pr.AddPhoto(ctx, DefaultTenantID, &domain.Photo{ID: "ph-x", SessionID: "ps-2", Kind: "after", FileName: "after.jpg"}))
	require.NoError(t, pr.DeletePhoto(ctx, DefaultTenantID, "ph-3"))
	assert.ErrorIs(t, pr.DeletePhoto(ctx, "skinova", "ph-1"), ErrNotFound)

	ss, err := pr.Sessions(ctx, DefaultTenantID)
	require.NoError(t, err)
	for _, s := range ss {
		if s.ID == "ps-2" {
			assert.Equal(t, 1, s.PhotoCount)
		}
	}
	photos, err := pr.Photos(ctx, DefaultTenantID, "ps-2")
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, "ph-x", photos[0].ID)
}

func TestProcedureStartComplete(t *testing.T) {
	tr := openTest(t)
	pr := NewProcedureRepo(tr.db)
	ctx := context.Background()

	assert.ErrorIs(t, pr.Complete(ctx, DefaultTenantID, "pc-2", ""), ErrNotFound)
	require.NoError(t, pr.Start(ctx, DefaultTenantID, "pc-2", ""))
	require.NoError(t, pr.Complete(ctx, DefaultTenantID, "pc-2", "tolerated well"))

	p, err := pr.ByID(ctx, DefaultTenantID, "pc-2")
	require.NoError(t, err)
	assert.Equal(t, domain.ProcedureCompleted, p.Status)
	assert.Equal(t, "Imran Khan", p.TechnicianName)
	assert.Equal(t, "tolerated well", p.Notes)
	assert.NotEmpty(t, p.StartedAt)
}

package handlers

import (
	"context"

	"hospverse/internal/config"
	"hospverse/internal/repos"
	"hospverse/internal/services"
	"hospverse/internal/session"

	"github.com/jmoiron/sqlx"
)

type Deps struct {
	Cfg     config.Config
	Auth    *services.AuthService
	Tenants *services.TenantService

	AuthHandler       *AuthHandler
	DoctorHandler     *DoctorHandler
	ReceptionHandler  *ReceptionHandler
	BillingHandler    *BillingHandler
	HRHandler         *HRHandler
	InventoryHandler  *InventoryHandler
	TechnicianHandler *TechnicianHandler
	ProceduresHandler *ProceduresHandler
	AdminHandler      *AdminHandler
	CRMHandler        *CRMHandler
	SuperAdminHandler *SuperAdminHandler
	API               *API

	// LoginMax caps POST /login attempts per IP in LoginWindow. Zero uses 5.
	LoginMax int
}

// NewDeps wires repos, services and handlers. ctx bounds long-lived queue
// streams; cancel it on shutdown.
func NewDeps(ctx context.Context, db *sqlx.DB, cfg config.Config, sessions session.Store) *Deps {
	userRepo := repos.NewUserRepo(db)
	apptRepo := repos.NewAppointmentRepo(db)
	patientRepo := repos.NewPatientRepo(db)
	queueRepo := repos.NewQueueRepo(db)
	staffRepo := repos.NewStaffRepo(db)
	invoiceRepo := repos.NewInvoiceRepo(db)
	productRepo := repos.NewProductRepo(db)
	procRepo := repos.NewProcedureRepo(db)
	photoRepo := repos.NewPhotoRepo(db)
	leadRepo := repos.NewLeadRepo(db)
	soapRepo := repos.NewSOAPRepo(db)
	activityRepo := repos.NewActivityRepo(db)

	tenants := services.NewTenantService(repos.NewTenantRepo(db))
	auth := &services.AuthService{Users: userRepo, Sessions: sessions}
	tokens := &services.TokenIssuer{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     "hospverse",
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}

	admin := &services.AdminService{
		Activity: activityRepo, Users: userRepo, Appts: apptRepo,
		Staff: staffRepo, Products: productRepo, Invoices: invoiceRepo,
	}
	reception := &services.ReceptionService{Appts: apptRepo, Patients: patientRepo, Queue: queueRepo, Staff: staffRepo}
	doctor := &services.DoctorService{Appts: apptRepo, Notes: soapRepo}
	billing := &services.BillingService{Invoices: invoiceRepo}
	hr := &services.HRService{Staff: staffRepo}
	inv := &services.InventoryService{Products: productRepo}
	tech := &services.TechnicianService{Procedures: procRepo}
	photos := &services.PhotoService{Photos: photoRepo}
	crm := &services.CRMService{Leads: leadRepo}
	super := &services.SuperAdminService{Tenants: tenants}

	return &Deps{
		Cfg:     cfg,
		Auth:    auth,
		Tenants: tenants,

		AuthHandler:   &AuthHandler{Auth: auth, DemoMode: cfg.DemoLogin, Activity: admin},
		DoctorHandler: &DoctorHandler{Doctor: doctor, Reception: reception, Tech: tech, Activity: admin},
		ReceptionHandler: &ReceptionHandler{
			Reception: reception, Activity: admin,
			RefreshInterval: cfg.QueueRefreshInterval, Streams: ctx,
		},
		BillingHandler:    &BillingHandler{Billing: billing, Activity: admin},
		HRHandler:         &HRHandler{HR: hr, Activity: admin},
		InventoryHandler:  &InventoryHandler{Inv: inv, Activity: admin},
		TechnicianHandler: &TechnicianHandler{Tech: tech, Photos: photos, Activity: admin},
		ProceduresHandler: &ProceduresHandler{Tech: tech, Activity: admin},
		AdminHandler:      &AdminHandler{Admin: admin, Tenants: tenants, HR: hr},
		CRMHandler:        &CRMHandler{CRM: crm, Activity: admin},
		SuperAdminHandler: &SuperAdminHandler{Super: super},
		API: &API{
			Auth: auth, Tokens: tokens, Tenants: tenants, Admin: admin, HR: hr, CRM: crm,
			Reception: reception, Doctor: doctor, Photos: photos, Billing: billing,
			Inv: inv, Tech: tech, Super: super,
		},
	}
}

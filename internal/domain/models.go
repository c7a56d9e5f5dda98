package domain

// Queue statuses. Walk-ins start waiting.
const (
	QueueWaiting    = "waiting"
	QueueCheckedIn  = "checked-in"
	QueueWithDoctor = "with-doctor"
	QueueCompleted  = "completed"
	QueueCancelled  = "cancelled"
)

type QueueEntry struct {
	ID          string `db:"id" json:"id"`
	ClientID    string `db:"client_id" json:"-"`
	QueueNumber int    `db:"queue_number" json:"queueNumber"`
	PatientName string `db:"patient_name" json:"patientName"`
	Phone       string `db:"phone" json:"phone"`
	Priority    string `db:"priority" json:"priority"` // normal|urgent
	Status      string `db:"status" json:"status"`
	DoctorName  string `db:"doctor_name" json:"doctorName"`
	CheckedInAt string `db:"checked_in_at" json:"checkedInAt"`
}

type Appointment struct {
	ID          string `db:"id" json:"id"`
	ClientID    string `db:"client_id" json:"-"`
	PatientID   string `db:"patient_id" json:"patientId"`
	PatientName string `db:"patient_name" json:"patientName"`
	Phone       string `db:"phone" json:"phone"`
	DoctorID    string `db:"doctor_id" json:"doctorId"`
	DoctorName  string `db:"doctor_name" json:"doctorName"`
	Date        string `db:"date" json:"date"` // YYYY-MM-DD
	Time        string `db:"time" json:"time"` // HH:MM
	Treatment   string `db:"treatment" json:"treatment"`
	Status      string `db:"status" json:"status"` // confirmed|checked-in|in-progress|completed|cancelled|no-show
}

type Patient struct {
	ID           string `db:"id" json:"id"`
	ClientID     string `db:"client_id" json:"-"`
	FullName     string `db:"full_name" json:"fullName"`
	Phone        string `db:"phone" json:"phone"`
	Email        string `db:"email" json:"email"`
	Gender       string `db:"gender" json:"gender"`
	DateOfBirth  string `db:"date_of_birth" json:"dateOfBirth"`
	RegisteredAt string `db:"registered_at" json:"registeredAt"`
}

type Staff struct {
	ID         string `db:"id" json:"id"`
	ClientID   string `db:"client_id" json:"-"`
	Name       string `db:"name" json:"name"`
	Email      string `db:"email" json:"email"`
	Phone      string `db:"phone" json:"phone"`
	Role       string `db:"role" json:"role"`
	Department string `db:"department" json:"department"`
	Branch     string `db:"branch" json:"branch"`
	Status     string `db:"status" json:"status"` // active|inactive|on-leave
	JoinDate   string `db:"join_date" json:"joinDate"`
	Salary     int    `db:"salary" json:"salary"`
}

// Lead statuses.
const (
	LeadNew        = "new"
	LeadContacted  = "contacted"
	LeadInterested = "interested"
	LeadConverted  = "converted"
	LeadDropped    = "dropped"
)

type Lead struct {
	ID          string `db:"id" json:"id"`
	ClientID    string `db:"client_id" json:"-"`
	FullName    string `db:"full_name" json:"fullName"`
	Mobile      string `db:"mobile" json:"mobile"`
	Email       string `db:"email" json:"email"`
	Source      string `db:"source" json:"source"`
	Status      string `db:"status" json:"status"`
	AssignedTo  string `db:"assigned_to" json:"assignedTo"`
	Notes       string `db:"notes" json:"notes"`
	PatientID   string `db:"patient_id" json:"patientId,omitempty"`
	CreatedAt   string `db:"created_at" json:"createdAt"`
	UpdatedAt   string `db:"updated_at" json:"updatedAt"`
	ConvertedAt string `db:"converted_at" json:"convertedAt,omitempty"`
}

// LeadEvent is one entry of a lead's status or notes history.
type LeadEvent struct {
	ID        string `db:"id" json:"id"`
	LeadID    string `db:"lead_id" json:"leadId"`
	Kind      string `db:"kind" json:"kind"` // status|note
	Value     string `db:"value" json:"value"`
	Actor     string `db:"actor" json:"actor"`
	CreatedAt string `db:"created_at" json:"createdAt"`
}

// Invoice statuses.
const (
	InvoicePending  = "pending"
	InvoicePartial  = "partial"
	InvoicePaid     = "paid"
	InvoiceRefunded = "refunded"
)

type Invoice struct {
	ID          string  `db:"id" json:"id"`
	ClientID    string  `db:"client_id" json:"-"`
	PatientName string  `db:"patient_name" json:"patientName"`
	Treatment   string  `db:"treatment" json:"treatment"`
	Amount      float64 `db:"amount" json:"amount"`
	PaidAmount  float64 `db:"paid_amount" json:"paidAmount"`
	Status      string  `db:"status" json:"status"`
	Method      string  `db:"method" json:"method"`
	CreatedAt   string  `db:"created_at" json:"createdAt"`
	PaidAt      string  `db:"paid_at" json:"paidAt,omitempty"`
}

func (i Invoice) Balance() float64 { return i.Amount - i.PaidAmount }

type Product struct {
	ID            string  `db:"id" json:"id"`
	ClientID      string  `db:"client_id" json:"-"`
	Name          string  `db:"name" json:"name"`
	Category      string  `db:"category" json:"category"`
	BatchNumber   string  `db:"batch_number" json:"batchNumber"`
	Vendor        string  `db:"vendor" json:"vendor"`
	CurrentStock  int     `db:"current_stock" json:"currentStock"`
	MinStockLevel int     `db:"min_stock_level" json:"minStockLevel"`
	MaxStockLevel int     `db:"max_stock_level" json:"maxStockLevel"`
	ExpiryDate    string  `db:"expiry_date" json:"expiryDate"`
	UnitPrice     float64 `db:"unit_price" json:"unitPrice"`
}

// StockLevel buckets the product as low, normal or high.
func (p Product) StockLevel() string {
	switch {
	case p.CurrentStock <= p.MinStockLevel:
		return "low"
	case p.MaxStockLevel > 0 && p.CurrentStock >= p.MaxStockLevel:
		return "high"
	default:
		return "normal"
	}
}

type StockLog struct {
	ID        string `db:"id" json:"id"`
	ProductID string `db:"product_id" json:"productId"`
	Change    int    `db:"change" json:"change"`
	Reason    string `db:"reason" json:"reason"`
	Actor     string `db:"actor" json:"actor"`
	CreatedAt string `db:"created_at" json:"createdAt"`
}

type PhotoSession struct {
	ID          string `db:"id" json:"id"`
	ClientID    string `db:"client_id" json:"-"`
	PatientName string `db:"patient_name" json:"patientName"`
	Treatment   string `db:"treatment" json:"treatment"`
	SessionDate string `db:"session_date" json:"sessionDate"`
	PhotoCount  int    `db:"photo_count" json:"photoCount"`
}

type Photo struct {
	ID         string `db:"id" json:"id"`
	SessionID  string `db:"session_id" json:"sessionId"`
	Kind       string `db:"kind" json:"kind"` // before|after
	FileName   string `db:"file_name" json:"fileName"`
	UploadedAt string `db:"uploaded_at" json:"uploadedAt"`
}

// Procedure statuses.
const (
	ProcedureScheduled  = "scheduled"
	ProcedureInProgress = "in-progress"
	ProcedureCompleted  = "completed"
)

type Procedure struct {
	ID             string `db:"id" json:"id"`
	ClientID       string `db:"client_id" json:"-"`
	PatientName    string `db:"patient_name" json:"patientName"`
	ProcedureType  string `db:"procedure_type" json:"procedureType"`
	DoctorName     string `db:"doctor_name" json:"doctorName"`
	TechnicianName string `db:"technician_name" json:"technicianName"`
	Status         string `db:"status" json:"status"`
	ScheduledAt    string `db:"scheduled_at" json:"scheduledAt"`
	StartedAt      string `db:"started_at" json:"startedAt,omitempty"`
	CompletedAt    string `db:"completed_at" json:"completedAt,omitempty"`
	Notes          string `db:"notes" json:"notes"`
}

type SOAPNote struct {
	ID            string `db:"id" json:"id"`
	ClientID      string `db:"client_id" json:"-"`
	AppointmentID string `db:"appointment_id" json:"appointmentId"`
	PatientName   string `db:"patient_name" json:"patientName"`
	Subjective    string `db:"subjective" json:"subjective"`
	Objective     string `db:"objective" json:"objective"`
	Assessment    string `db:"assessment" json:"assessment"`
	Plan          string `db:"plan" json:"plan"`
	CreatedAt     string `db:"created_at" json:"createdAt"`
}

type ActivityLog struct {
	ID         string `db:"id" json:"id"`
	ClientID   string `db:"client_id" json:"-"`
	User       string `db:"user_name" json:"user"`
	UserRole   string `db:"user_role" json:"userRole"`
	Module     string `db:"module" json:"module"`
	Action     string `db:"action" json:"action"`
	ActionType string `db:"action_type" json:"actionType"` // create|update|delete|login|view
	IPAddress  string `db:"ip_address" json:"ipAddress"`
	Timestamp  string `db:"ts" json:"timestamp"`
}

type AdminMetrics struct {
	RevenueToday       float64 `json:"revenueToday"`
	TotalAppointments  int     `json:"totalAppointments"`
	ActiveStaff        int     `json:"activeStaff"`
	LowInventory       int     `json:"lowInventory"`
	RevenueChange      float64 `json:"revenueChange"`
	AppointmentsChange float64 `json:"appointmentsChange"`
}

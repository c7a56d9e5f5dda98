package repos

import (
	"database/sql"
	"errors"

	"hospverse/internal/log"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if dsn == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Tenants and users are upserted on every start; demo records only into an empty DB.
	if err := seedTenants(db); err != nil {
		return nil, err
	}
	if err := seedUsers(db); err != nil {
		return nil, err
	}
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Tenants
CREATE TABLE IF NOT EXISTS tenants(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  subdomain TEXT NOT NULL,
  logo TEXT NOT NULL DEFAULT '',
  plan TEXT NOT NULL DEFAULT 'basic',
  status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','inactive','trial','suspended')),
  branch TEXT NOT NULL DEFAULT '',
  contact_name TEXT NOT NULL DEFAULT '',
  contact_email TEXT NOT NULL DEFAULT '',
  contact_phone TEXT NOT NULL DEFAULT '',
  active_users INTEGER NOT NULL DEFAULT 0,
  max_users INTEGER NOT NULL DEFAULT 10,
  modules_json TEXT NOT NULL DEFAULT '{}',
  role_permissions_json TEXT NOT NULL DEFAULT '{}',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  expires_at TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_tenants_subdomain ON tenants(LOWER(subdomain));

-- Users & session values
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL,
  client_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS session_values(
  sid TEXT NOT NULL,               -- same value as the 'sid' cookie or token sid
  key TEXT NOT NULL,
  value TEXT NOT NULL,
  updated_at TEXT,
  PRIMARY KEY(sid, key)
);

-- Patients & appointments
CREATE TABLE IF NOT EXISTS patients(
  id TEXT PRIMARY KEY,
  client_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
  full_name TEXT NOT NULL,
  phone TEXT NOT NULL,
  email TEXT NOT NULL DEFAULT '',
  gender TEXT NOT NULL DEFAULT '',
  date_of_birth TEXT NOT NULL DEFAULT '',
  registered_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_patients_client ON patients(client_id);

CREATE TABLE IF NOT EXISTS appointments(
  id TEXT PRIMARY KEY,
  client_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
  patient_id TEXT NOT NULL DEFAULT '',
  patient_name TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  doctor_id TEXT NOT NULL DEFAULT '',
  doctor_name TEXT NOT NULL DEFAULT '',
  date TEXT NOT NULL,
  time TEXT NOT NULL,
  treatment TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'confirmed'
);
CREATE INDEX IF NOT EXISTS idx_appointments_client_date ON appointments(client_id, date);

CREATE TABLE IF NOT EXISTS queue_entries(
  id TEXT PRIMARY KEY,
  client_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
  queue_date TEXT NOT NULL,
  queue_number INTEGER NOT NULL,
  patient_name TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  priority TEXT NOT NULL DEFAULT 'normal' CHECK (priority IN ('normal','urgent')),
  status TEXT NOT NULL DEFAULT 'waiting',
  doctor_name TEXT NOT NULL DEFAULT '',
  checked_in_at TEXT DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(client_id, queue_date, queue_number)
);

CREATE TABLE IF NOT EXISTS soap_notes(
  id TEXT PRIMARY KEY,
  client_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
  appointment_id TEXT NOT NULL DEFAULT '',
  patient_name TEXT NOT NULL,
  subjective TEXT NOT NULL DEFAULT '',
  objective TEXT NOT NULL DEFAULT '',
  assessment TEXT NOT NULL DEFAULT '',
  plan TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);

-- HR
CREATE TABLE IF NOT EXISTS staff(
  id TEXT PRIMARY KEY,
  client_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL,
  department TEXT NOT NULL DEFAULT '',
  branch TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'active',
  join_date TEXT NOT NULL DEFAULT '',
  salary INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_staff_client ON staff(client_id);
CREATE INDEX IF NOT EXISTS idx_staff_name ON staff(LOWER(name));

-- CRM
CREATE TABLE IF NOT EXISTS leads(
  id TEXT PRIMARY KEY,
  client_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
  full_name TEXT NOT NULL,
  mobile TEXT NOT NULL,
  email TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL DEFAULT 'walk-in',
  status TEXT NOT NULL DEFAULT 'new',
  assigned_to TEXT NOT NULL DEFAULT '',
  notes TEXT NOT NULL DEFAULT '',
  patient_id TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
  converted_at TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_leads_client ON leads(client_id);

CREATE TABLE IF NOT EXISTS lead_events(
  id TEXT PRIMARY KEY,
  lead_id TEXT NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
  kind TEXT NOT NULL CHECK (kind IN ('status','note')),
  value TEXT NOT NULL,
  actor TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_lead_events_lead ON lead_events(lead_id);

-- Billing
CREATE TABLE IF NOT EXISTS invoices(
  id TEXT PRIMARY KEY,
  client_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
  patient_name TEXT NOT NULL,
  treatment TEXT NOT NULL DEFAULT '',
  amount NUMERIC NOT NULL CHECK (amount >= 0),
  paid_amount NUMERIC NOT NULL DEFAULT 0 CHECK (paid_amount >= 0),
  status TEXT NOT NULL DEFAULT 'pending',
  method TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  paid_at TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_invoices_client ON invoices(client_id);

-- Inventory
CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  client_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  batch_number TEXT NOT NULL DEFAULT '',
  vendor TEXT NOT NULL DEFAULT '',
  current_stock INTEGER NOT NULL DEFAULT 0 CHECK (current_stock >= 0),
  min_stock_level INTEGER NOT NULL DEFAULT 0,
  max_stock_level INTEGER NOT NULL DEFAULT 0,
  expiry_date TEXT NOT NULL DEFAULT '',
  unit_price NUMERIC NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_products_client ON products(client_id);

CREATE TABLE IF NOT EXISTS stock_logs(
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  change INTEGER NOT NULL,
  reason TEXT NOT NULL DEFAULT '',
  actor TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);

-- Technician & photos
CREATE TABLE IF NOT EXISTS procedures(
  id TEXT PRIMARY KEY,
  client_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
  patient_name TEXT NOT NULL,
  procedure_type TEXT NOT NULL,
  doctor_name TEXT NOT NULL DEFAULT '',
  technician_name TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'scheduled',
  scheduled_at TEXT NOT NULL DEFAULT '',
  started_at TEXT NOT NULL DEFAULT '',
  completed_at TEXT NOT NULL DEFAULT '',
  notes TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS photo_sessions(
  id TEXT PRIMARY KEY,
  client_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
  patient_name TEXT NOT NULL,
  treatment TEXT NOT NULL DEFAULT '',
  session_date TEXT NOT NULL,
  photo_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS photos(
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL REFERENCES photo_sessions(id) ON DELETE CASCADE,
  kind TEXT NOT NULL CHECK (kind IN ('before','after')),
  file_name TEXT NOT NULL,
  uploaded_at TEXT DEFAULT CURRENT_TIMESTAMP
);

-- Activity log
CREATE TABLE IF NOT EXISTS activity_logs(
  id TEXT PRIMARY KEY,
  client_id TEXT NOT NULL,
  user_name TEXT NOT NULL,
  user_role TEXT NOT NULL DEFAULT '',
  module TEXT NOT NULL DEFAULT '',
  action TEXT NOT NULL,
  action_type TEXT NOT NULL DEFAULT 'view',
  ip_address TEXT NOT NULL DEFAULT '',
  ts TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_activity_client_ts ON activity_logs(client_id, ts);
`
	_, err := db.Exec(schema)
	return err
}

// seedUsers ensures one login per seeded role exists (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Email, Name, Role, ClientID, Hash string
	}
	mk := func(id, email, name, role, client, raw string) u {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
		return u{ID: id, Email: email, Name: name, Role: role, ClientID: client, Hash: string(h)}
	}

	users := []u{
		mk("u-super", "super@hospverse.test", "Platform Owner", "super_admin", DefaultTenantID, "Passw0rd!"),
		mk("u-admin", "admin@skinclinic.test", "Clinic Admin", "admin", DefaultTenantID, "Passw0rd!"),
		mk("u-mehta", "dr.mehta@skinclinic.test", "Dr. Anika Mehta", "doctor", DefaultTenantID, "Passw0rd!"),
		mk("u-front", "front@skinclinic.test", "Riya Sen", "receptionist", DefaultTenantID, "Passw0rd!"),
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,name,password_hash,role,client_id)
			VALUES(?,?,?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.Name, x.Hash, x.Role, x.ClientID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// seedIfEmpty fills the default tenant with a day of clinic activity.
func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM staff`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.L().Info("seed.demo", zap.String("tenant", DefaultTenantID))

	tx := db.MustBegin()
	tx.MustExec(`INSERT INTO staff(id,client_id,name,email,phone,role,department,branch,status,join_date,salary) VALUES
	  ('st-mehta','client-123','Dr. Anika Mehta','dr.mehta@skinclinic.test','+91 98200 11111','doctor','Dermatology','Downtown','active','2021-04-01',180000),
	  ('st-rao','client-123','Dr. Vikram Rao','dr.rao@skinclinic.test','+91 98200 22222','doctor','Aesthetics','Uptown','active','2022-01-15',165000),
	  ('st-sen','client-123','Riya Sen','front@skinclinic.test','+91 98200 33333','receptionist','Front Desk','Downtown','active','2023-06-01',35000),
	  ('st-khan','client-123','Imran Khan','imran@skinclinic.test','+91 98200 44444','technician','Laser','Downtown','active','2022-09-10',48000),
	  ('st-iyer','client-123','Meera Iyer','meera@skinclinic.test','+91 98200 55555','nurse','Dermatology','Uptown','on-leave','2020-11-20',42000),
	  ('st-das','client-123','Kabir Das','kabir@skinclinic.test','+91 98200 66666','pharmacist','Pharmacy','Downtown','inactive','2019-02-01',40000)`)

	tx.MustExec(`INSERT INTO patients(id,client_id,full_name,phone,email,gender,date_of_birth) VALUES
	  ('pt-1','client-123','Priya Sharma','+91 99000 10001','priya@example.test','female','1992-03-14'),
	  ('pt-2','client-123','Arjun Nair','+91 99000 10002','arjun@example.test','male','1988-07-02'),
	  ('pt-3','client-123','Sana Qureshi','+91 99000 10003','','female','1999-12-25'),
	  ('pt-4','client-123','Rohan Gupta','+91 99000 10004','rohan@example.test','male','1975-05-30')`)

	tx.MustExec(`INSERT INTO appointments(id,client_id,patient_id,patient_name,phone,doctor_id,doctor_name,date,time,treatment,status) VALUES
	  ('ap-1','client-123','pt-1','Priya Sharma','+91 99000 10001','st-mehta','Dr. Anika Mehta',date('now'),'09:30','Chemical Peel','confirmed'),
	  ('ap-2','client-123','pt-2','Arjun Nair','+91 99000 10002','st-mehta','Dr. Anika Mehta',date('now'),'10:00','Acne Consultation','checked-in'),
	  ('ap-3','client-123','pt-3','Sana Qureshi','+91 99000 10003','st-rao','Dr. Vikram Rao',date('now'),'11:30','Laser Hair Removal','completed'),
	  ('ap-4','client-123','pt-4','Rohan Gupta','+91 99000 10004','st-rao','Dr. Vikram Rao',date('now','+1 day'),'14:00','Botox','confirmed')`)

	tx.MustExec(`INSERT INTO queue_entries(id,client_id,queue_date,queue_number,patient_name,phone,priority,status,doctor_name) VALUES
	  ('q-1','client-123',date('now'),1,'Arjun Nair','+91 99000 10002','normal','with-doctor','Dr. Anika Mehta'),
	  ('q-2','client-123',date('now'),2,'Neha Verma','+91 99000 20001','urgent','waiting','Dr. Vikram Rao'),
	  ('q-3','client-123',date('now'),3,'Karan Malhotra','+91 99000 20002','normal','waiting','')`)

	tx.MustExec(`INSERT INTO leads(id,client_id,full_name,mobile,email,source,status,assigned_to,notes) VALUES
	  ('ld-1','client-123','Ishita Kapoor','+91 97000 30001','ishita@example.test','instagram','new','Riya Sen',''),
	  ('ld-2','client-123','Manav Shah','+91 97000 30002','','referral','contacted','Riya Sen','Asked about laser packages'),
	  ('ld-3','client-123','Tara Joseph','+91 97000 30003','tara@example.test','website','interested','Clinic Admin',''),
	  ('ld-4','client-123','Dev Patel','+91 97000 30004','','walk-in','dropped','Clinic Admin','Budget mismatch')`)
	tx.MustExec(`INSERT INTO lead_events(id,lead_id,kind,value,actor) VALUES
	  ('le-1','ld-1','status','new','system'),
	  ('le-2','ld-2','status','new','system'),
	  ('le-3','ld-2','status','contacted','Riya Sen'),
	  ('le-4','ld-2','note','Asked about laser packages','Riya Sen')`)

	tx.MustExec(`INSERT INTO invoices(id,client_id,patient_name,treatment,amount,paid_amount,status,method,created_at,paid_at) VALUES
	  ('inv-1','client-123','Sana Qureshi','Laser Hair Removal',8500,8500,'paid','card',CURRENT_TIMESTAMP,CURRENT_TIMESTAMP),
	  ('inv-2','client-123','Priya Sharma','Chemical Peel',4200,2000,'partial','upi',CURRENT_TIMESTAMP,CURRENT_TIMESTAMP),
	  ('inv-3','client-123','Arjun Nair','Acne Consultation',1500,0,'pending','',CURRENT_TIMESTAMP,'')`)

	tx.MustExec(`INSERT INTO products(id,client_id,name,category,batch_number,vendor,current_stock,min_stock_level,max_stock_level,expiry_date,unit_price) VALUES
	  ('pr-1','client-123','Hyaluronic Serum 30ml','skincare','HS-2409','DermaSupply',42,10,100,'2026-09-30',1200),
	  ('pr-2','client-123','Glycolic Peel 35%','peels','GP-2311','PeelPro',4,5,40,'2026-03-31',2600),
	  ('pr-3','client-123','Lidocaine Cream 5%','anesthetics','LC-2402','MediCore',15,8,60,'2026-01-15',450),
	  ('pr-4','client-123','Sunscreen SPF 50','skincare','SS-2501','DermaSupply',120,20,120,'2027-02-28',850),
	  ('pr-5','client-123','Botulinum Toxin 100U','injectables','BT-2407','AestheticsRx',2,3,10,'2025-12-31',18000)`)

	tx.MustExec(`INSERT INTO procedures(id,client_id,patient_name,procedure_type,doctor_name,technician_name,status,scheduled_at) VALUES
	  ('pc-1','client-123','Sana Qureshi','Laser Hair Removal','Dr. Vikram Rao','Imran Khan','completed',datetime('now','-2 hours')),
	  ('pc-2','client-123','Priya Sharma','Chemical Peel','Dr. Anika Mehta','Imran Khan','scheduled',datetime('now','+1 hour')),
	  ('pc-3','client-123','Rohan Gupta','Microneedling','Dr. Vikram Rao','Imran Khan','scheduled',datetime('now','+1 day'))`)
	tx.MustExec(`UPDATE procedures SET started_at=datetime('now','-2 hours'), completed_at=datetime('now','-1 hours') WHERE id='pc-1'`)

	tx.MustExec(`INSERT INTO photo_sessions(id,client_id,patient_name,treatment,session_date,photo_count) VALUES
	  ('ps-1','client-123','Sana Qureshi','Laser Hair Removal',date('now'),2),
	  ('ps-2','client-123','Priya Sharma','Chemical Peel',date('now','-14 days'),1)`)
	tx.MustExec(`INSERT INTO photos(id,session_id,kind,file_name) VALUES
	  ('ph-1','ps-1','before','sana_before_1.jpg'),
	  ('ph-2','ps-1','after','sana_after_1.jpg'),
	  ('ph-3','ps-2','before','priya_before_1.jpg')`)

	tx.MustExec(`INSERT INTO activity_logs(id,client_id,user_name,user_role,module,action,action_type,ip_address,ts) VALUES
	  ('al-1','client-123','Clinic Admin','admin','admin','Updated branch settings','update','10.0.0.5',datetime('now','-1 hours')),
	  ('al-2','client-123','Riya Sen','receptionist','reception','Registered patient Priya Sharma','create','10.0.0.7',datetime('now','-3 hours')),
	  ('al-3','client-123','Dr. Anika Mehta','doctor','doctor','Signed SOAP note','create','10.0.0.9',datetime('now','-1 day')),
	  ('al-4','client-123','Kabir Das','pharmacist','inventory','Adjusted stock for Sunscreen SPF 50','update','10.0.0.11',datetime('now','-3 days')),
	  ('al-5','client-123','Clinic Admin','admin','admin','Logged in','login','10.0.0.5',datetime('now','-20 days'))`)

	return tx.Commit()
}

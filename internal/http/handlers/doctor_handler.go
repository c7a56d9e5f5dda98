package handlers

import (
	"errors"
	"fmt"

	applog "hospverse/internal/log"
	"hospverse/internal/services"

	"github.com/gofiber/fiber/v2"
)

var appointmentStatuses = []string{"confirmed", "checked-in", "in-progress", "completed", "cancelled", "no-show"}

type DoctorHandler struct {
	Doctor    *services.DoctorService
	Reception *services.ReceptionService
	Tech      *services.TechnicianService
	Activity  *services.AdminService
}

// GET /doctor
func (h *DoctorHandler) Dashboard(c *fiber.Ctx) error {
	u := currentUser(c)
	data := fiber.Map{"Title": "Doctor Dashboard"}
	st, err := h.Doctor.Stats(c.UserContext(), u.ClientID)
	if err != nil {
		applog.Error(c, "doctor.stats.fail", err, nil)
		data["Flash"] = loadFailed("today's stats")
	}
	data["Cards"] = []card{
		{"Today's Appointments", fmt.Sprint(st.TodayAppointments)},
		{"Waiting", fmt.Sprint(st.Waiting)},
		{"In Progress", fmt.Sprint(st.InProgress)},
		{"Completed", fmt.Sprint(st.Completed)},
	}
	appts, err := h.Doctor.Appointments(c.UserContext(), u.ClientID, services.AppointmentFilter{Date: "today"})
	if err != nil {
		applog.Error(c, "doctor.appointments.list.fail", err, nil)
		data["Flash"] = loadFailed("appointments")
	}
	t := table{Caption: "Today's schedule", Headers: []string{"Time", "Patient", "Treatment", "Status"}}
	for _, a := range appts {
		t.Rows = append(t.Rows, []string{a.Time, a.PatientName, a.Treatment, a.Status})
	}
	data["Table"] = t
	return render(c, "dashboard", data)
}

// GET /doctor/appointments
func (h *DoctorHandler) Appointments(c *fiber.Ctx) error {
	u := currentUser(c)
	f := services.AppointmentFilter{Status: c.Query("status"), Date: c.Query("date"), Q: c.Query("q")}
	data := fiber.Map{"Filter": f, "Statuses": appointmentStatuses}
	items, err := h.Doctor.Appointments(c.UserContext(), u.ClientID, f)
	if err != nil {
		applog.Error(c, "doctor.appointments.list.fail", err, nil)
		data["Flash"] = loadFailed("appointments")
	}
	data["Items"], data["Pager"] = paginate(c, items)
	return render(c, "doctor_appointments", data)
}

// POST /doctor/appointments/:id/status
func (h *DoctorHandler) UpdateStatus(c *fiber.Ctx) error {
	u := currentUser(c)
	id, to := c.Params("id"), c.FormValue("status")
	a, err := h.Doctor.UpdateAppointmentStatus(c.UserContext(), u.ClientID, id, to)
	switch {
	case errors.Is(err, services.ErrInvalidTransition):
		setFlash(c, "error", "That status change is not allowed")
	case errors.Is(err, services.ErrNotFound):
		setFlash(c, "error", "Appointment not found")
	case err != nil:
		applog.Error(c, "doctor.appointments.update.fail", err, map[string]any{"appointment_id": id})
		setFlash(c, "error", "Could not update the appointment")
	default:
		applog.Audit(c, "doctor.appointments.update", map[string]any{"appointment_id": id, "status": to})
		recordActivity(c, h.Activity, u, "doctor", "Set "+a.PatientName+" to "+to, "update")
		setFlash(c, "success", "Appointment updated")
	}
	return c.Redirect("/doctor/appointments")
}

// GET /doctor/patients
func (h *DoctorHandler) Patients(c *fiber.Ctx) error {
	return patientList(c, h.Reception, false)
}

// GET /doctor/emr
func (h *DoctorHandler) EMR(c *fiber.Ctx) error {
	return h.emrPage(c, fiber.StatusOK, services.SOAPInput{AppointmentID: c.Query("appointment")}, nil)
}

// POST /doctor/emr
func (h *DoctorHandler) SaveSOAP(c *fiber.Ctx) error {
	u := currentUser(c)
	var in services.SOAPInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}
	n, err := h.Doctor.SaveSOAP(c.UserContext(), u.ClientID, in)
	if fe, ok := fieldErrors(err); ok {
		return h.emrPage(c, fiber.StatusUnprocessableEntity, in, fe)
	}
	if errors.Is(err, services.ErrNotFound) {
		return h.emrPage(c, fiber.StatusUnprocessableEntity, in, map[string]string{"appointment_id": "Unknown appointment"})
	}
	if err != nil {
		applog.Error(c, "doctor.soap.save.fail", err, nil)
		return err
	}
	applog.Audit(c, "doctor.soap.save", map[string]any{"note_id": n.ID})
	recordActivity(c, h.Activity, u, "doctor", "Signed SOAP note for "+n.PatientName, "create")
	setFlash(c, "success", "SOAP note saved")
	return c.Redirect("/doctor/emr")
}

func (h *DoctorHandler) emrPage(c *fiber.Ctx, status int, in services.SOAPInput, fe map[string]string) error {
	u := currentUser(c)
	data := fiber.Map{"Form": in, "Errors": fe}
	notes, err := h.Doctor.RecentNotes(c.UserContext(), u.ClientID, 10)
	if err != nil {
		applog.Error(c, "doctor.soap.list.fail", err, nil)
		data["Flash"] = loadFailed("recent notes")
	}
	data["Notes"] = notes
	return renderStatus(c, status, "doctor_emr", data)
}

// GET /doctor/procedures
func (h *DoctorHandler) Procedures(c *fiber.Ctx) error {
	return procedureList(c, h.Tech, procedureView{Title: "Procedures"})
}

func patientList(c *fiber.Ctx, rs *services.ReceptionService, canRegister bool) error {
	u := currentUser(c)
	data := fiber.Map{"Q": c.Query("q"), "CanRegister": canRegister}
	all, err := rs.ListPatients(c.UserContext(), u.ClientID)
	if err != nil {
		applog.Error(c, "patients.list.fail", err, nil)
		data["Flash"] = loadFailed("patients")
	}
	items, pager := paginate(c, filterPatients(all, c.Query("q")))
	data["Items"], data["Pager"] = items, pager
	return render(c, "patients", data)
}

type card struct {
	Label, Value string
}

type table struct {
	Caption string
	Headers []string
	Rows    [][]string
}


package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"hospverse/internal/domain"
	"hospverse/internal/listing"
	applog "hospverse/internal/log"
	"hospverse/internal/metrics"
	"hospverse/internal/refresh"
	"hospverse/internal/services"
	"hospverse/internal/validate"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ReceptionHandler struct {
	Reception *services.ReceptionService
	Activity  *services.AdminService
	// RefreshInterval paces the queue stream.
	RefreshInterval time.Duration
	// Streams bounds open queue streams; cancelling it ends them all.
	Streams context.Context
}

// GET /reception
func (h *ReceptionHandler) Dashboard(c *fiber.Ctx) error {
	u := currentUser(c)
	ctx := c.UserContext()
	data := fiber.Map{"Title": "Reception Dashboard"}
	st, err := h.Reception.Stats(ctx, u.ClientID)
	if err != nil {
		applog.Error(c, "reception.stats.fail", err, nil)
		data["Flash"] = loadFailed("today's stats")
	}
	data["Cards"] = []card{
		{"Today's Appointments", fmt.Sprint(st.TodayAppointments)},
		{"Walk-ins Registered", fmt.Sprint(st.WalkInsRegistered)},
		{"Patients in Queue", fmt.Sprint(st.PatientsInQueue)},
		{"Completed", fmt.Sprint(st.CompletedAppointments)},
	}
	appts, err := h.Reception.TodayAppointments(ctx, u.ClientID)
	if err != nil {
		applog.Error(c, "reception.appointments.list.fail", err, nil)
		data["Flash"] = loadFailed("appointments")
	}
	t := table{Caption: "Today's appointments", Headers: []string{"Time", "Patient", "Doctor", "Status"}}
	for _, a := range appts {
		t.Rows = append(t.Rows, []string{a.Time, a.PatientName, a.DoctorName, a.Status})
	}
	data["Table"] = t
	return render(c, "dashboard", data)
}

// GET /reception/appointments
func (h *ReceptionHandler) Booking(c *fiber.Ctx) error {
	in := services.BookingInput{Date: c.Query("date"), DoctorID: c.Query("doctor_id")}
	return h.bookingPage(c, fiber.StatusOK, in, nil)
}

// POST /reception/appointments
func (h *ReceptionHandler) Book(c *fiber.Ctx) error {
	u := currentUser(c)
	var in services.BookingInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}
	a, err := h.Reception.BookAppointment(c.UserContext(), u.ClientID, in)
	if fe, ok := fieldErrors(err); ok {
		return h.bookingPage(c, fiber.StatusUnprocessableEntity, in, fe)
	}
	if errors.Is(err, services.ErrSlotTaken) {
		return h.bookingPage(c, fiber.StatusConflict, in, map[string]string{"time": "That slot was just booked, please pick another"})
	}
	if err != nil {
		applog.Error(c, "reception.appointments.book.fail", err, nil)
		return err
	}
	applog.Audit(c, "reception.appointments.book", map[string]any{"appointment_id": a.ID})
	recordActivity(c, h.Activity, u, "reception", "Booked "+a.PatientName+" at "+a.Time, "create")
	setFlash(c, "success", "Appointment booked for "+a.PatientName)
	return c.Redirect("/reception/appointments?date=" + a.Date + "&doctor_id=" + a.DoctorID)
}

func (h *ReceptionHandler) bookingPage(c *fiber.Ctx, status int, in services.BookingInput, fe map[string]string) error {
	u := currentUser(c)
	ctx := c.UserContext()
	if in.Date == "" {
		in.Date = time.Now().UTC().Format("2006-01-02")
	}
	data := fiber.Map{"Form": in, "Errors": fe}
	docs, err := h.Reception.Doctors(ctx, u.ClientID)
	if err != nil {
		applog.Error(c, "reception.doctors.list.fail", err, nil)
		data["Flash"] = loadFailed("doctors")
	}
	data["Doctors"] = docs
	slots, err := h.Reception.TimeSlots(ctx, u.ClientID, in.Date, in.DoctorID)
	if err != nil {
		if _, ok := fieldErrors(err); !ok {
			applog.Error(c, "reception.slots.fail", err, nil)
		}
		slots = nil
	}
	data["Slots"] = slots
	return renderStatus(c, status, "reception_appointments", data)
}

// GET /reception/register
func (h *ReceptionHandler) Register(c *fiber.Ctx) error {
	return patientList(c, h.Reception, true)
}

// POST /reception/register
func (h *ReceptionHandler) RegisterPatient(c *fiber.Ctx) error {
	u := currentUser(c)
	var in services.PatientInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}
	p, err := h.Reception.RegisterPatient(c.UserContext(), u.ClientID, in)
	if fe, ok := fieldErrors(err); ok {
		all, _ := h.Reception.ListPatients(c.UserContext(), u.ClientID)
		items, pager := paginate(c, all)
		return renderStatus(c, fiber.StatusUnprocessableEntity, "patients", fiber.Map{
			"CanRegister": true, "Form": in, "Errors": fe, "Items": items, "Pager": pager,
		})
	}
	if err != nil {
		applog.Error(c, "reception.patients.create.fail", err, nil)
		return err
	}
	applog.Audit(c, "reception.patients.create", map[string]any{"patient_id": p.ID})
	recordActivity(c, h.Activity, u, "reception", "Registered patient "+p.FullName, "create")
	setFlash(c, "success", "Registered "+p.FullName)
	return c.Redirect("/reception/register")
}

type queueFilter struct {
	Status, Priority, Q string
}

func queueFilterFrom(c *fiber.Ctx) queueFilter {
	return queueFilter{Status: c.Query("status"), Priority: c.Query("priority"), Q: c.Query("q")}
}

// streamQuery carries the page's filter and page number over to its stream.
func (f queueFilter) streamQuery(page int) string {
	v := url.Values{}
	for k, s := range map[string]string{"status": f.Status, "priority": f.Priority, "q": f.Q} {
		if !listing.IsAll(s) {
			v.Set(k, s)
		}
	}
	if page > 1 {
		v.Set("page", strconv.Itoa(page))
	}
	return v.Encode()
}

// queueWindow is the slice of the queue one page shows.
func queueWindow(q []domain.QueueEntry, f queueFilter, page int) []domain.QueueEntry {
	return listing.Paginate(filterQueue(q, f), page, listing.DefaultPageSize).Items
}

func filterQueue(q []domain.QueueEntry, f queueFilter) []domain.QueueEntry {
	return listing.Apply(q,
		listing.Equal(f.Status, func(e domain.QueueEntry) string { return e.Status }),
		listing.Equal(f.Priority, func(e domain.QueueEntry) string { return e.Priority }),
		listing.Search(f.Q,
			func(e domain.QueueEntry) string { return e.PatientName },
			func(e domain.QueueEntry) string { return e.Phone },
			func(e domain.QueueEntry) string { return e.DoctorName },
		),
	)
}

// GET /reception/queue
func (h *ReceptionHandler) Queue(c *fiber.Ctx) error {
	return h.queuePage(c, fiber.StatusOK, services.WalkInInput{}, nil)
}

func (h *ReceptionHandler) queuePage(c *fiber.Ctx, status int, in services.WalkInInput, fe map[string]string) error {
	u := currentUser(c)
	f := queueFilterFrom(c)
	data := fiber.Map{
		"Filter": f, "Form": in, "Errors": fe,
		"Statuses":       []string{domain.QueueWaiting, domain.QueueCheckedIn, domain.QueueWithDoctor, domain.QueueCompleted, domain.QueueCancelled},
		"RefreshSeconds": int(h.RefreshInterval / time.Second),
	}
	q, err := h.Reception.QueueToday(c.UserContext(), u.ClientID)
	if err != nil {
		applog.Error(c, "reception.queue.list.fail", err, nil)
		data["Flash"] = loadFailed("queue")
	}
	items, pager := paginate(c, filterQueue(q, f))
	data["Items"], data["Pager"] = items, pager
	data["StreamQuery"] = f.streamQuery(pager.Page)
	return renderStatus(c, status, "reception_queue", data)
}

// POST /reception/queue
func (h *ReceptionHandler) AddWalkIn(c *fiber.Ctx) error {
	u := currentUser(c)
	var in services.WalkInInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}
	e, err := h.Reception.AddWalkIn(c.UserContext(), u.ClientID, in)
	if fe, ok := fieldErrors(err); ok {
		return h.queuePage(c, fiber.StatusUnprocessableEntity, in, fe)
	}
	if err != nil {
		applog.Error(c, "reception.queue.add.fail", err, nil)
		return err
	}
	applog.Audit(c, "reception.queue.add", map[string]any{"entry_id": e.ID, "number": e.QueueNumber})
	recordActivity(c, h.Activity, u, "reception", fmt.Sprintf("Added %s to queue as #%d", e.PatientName, e.QueueNumber), "create")
	setFlash(c, "success", fmt.Sprintf("%s is number %d", e.PatientName, e.QueueNumber))
	return c.Redirect("/reception/queue")
}

// POST /reception/queue/:id/status
func (h *ReceptionHandler) UpdateQueueStatus(c *fiber.Ctx) error {
	u := currentUser(c)
	id, to := c.Params("id"), c.FormValue("status")
	_, err := h.Reception.UpdateQueueStatus(c.UserContext(), u.ClientID, id, to)
	switch {
	case errors.Is(err, services.ErrInvalidTransition):
		setFlash(c, "error", "That status change is not allowed")
	case errors.Is(err, services.ErrNotFound):
		setFlash(c, "error", "Queue entry not found")
	case err != nil:
		applog.Error(c, "reception.queue.update.fail", err, map[string]any{"entry_id": id})
		setFlash(c, "error", "Could not update the queue")
	default:
		applog.Audit(c, "reception.queue.update", map[string]any{"entry_id": id, "status": to})
	}
	return c.Redirect("/reception/queue")
}

// GET /reception/queue/stream pushes today's queue as server-sent events,
// once on connect and then every RefreshInterval, until the client leaves.
// It takes the queue page's filter and page parameters and sends only the
// rows that page would show.
func (h *ReceptionHandler) QueueStream(c *fiber.Ctx) error {
	u := currentUser(c)
	clientID := u.ClientID
	f, page := queueFilterFrom(c), validate.Page(c.Query("page"))
	base := h.Streams
	if base == nil {
		base = context.Background()
	}
	interval := h.RefreshInterval
	rs := h.Reception
	rid, _ := c.Locals("requestid").(string)
	logger := applog.L().With(zap.String("req_id", rid), zap.String("client_id", clientID))

	first, err := rs.QueueToday(c.UserContext(), clientID)
	haveFirst := err == nil
	if err != nil {
		applog.Error(c, "reception.queue.list.fail", err, nil)
	}
	first = queueWindow(first, f, page)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(base)
		defer cancel()
		metrics.ActiveStreams.Inc()
		defer metrics.ActiveStreams.Dec()

		send := func(q []domain.QueueEntry) error {
			if q == nil {
				q = []domain.QueueEntry{}
			}
			b, err := json.Marshal(q)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "event: queue\ndata: %s\n\n", b); err != nil {
				return err
			}
			return w.Flush()
		}
		fetch := func(ctx context.Context) ([]domain.QueueEntry, error) {
			q, err := rs.QueueToday(ctx, clientID)
			status := "ok"
			if err != nil {
				status = "error"
			}
			metrics.QueueRefreshTicks.WithLabelValues(status).Inc()
			if err != nil {
				return nil, err
			}
			return queueWindow(q, f, page), nil
		}

		if haveFirst {
			if send(first) != nil {
				return
			}
		}
		p := &refresh.Poller[[]domain.QueueEntry]{
			Interval: interval,
			Fetch:    fetch,
			Sink:     send,
			OnFetchError: func(err error) {
				logger.Error("reception.queue.refresh.fail", zap.Error(err))
			},
		}
		if err := p.Run(ctx); err != nil && !errors.Is(err, refresh.ErrNoInterval) {
			logger.Info("reception.queue.stream.closed", zap.Error(err))
		}
	})
	return nil
}

// GET /reception/checkin
func (h *ReceptionHandler) CheckInPage(c *fiber.Ctx) error {
	u := currentUser(c)
	data := fiber.Map{"Q": c.Query("q")}
	appts, err := h.Reception.TodayAppointments(c.UserContext(), u.ClientID)
	if err != nil {
		applog.Error(c, "reception.appointments.list.fail", err, nil)
		data["Flash"] = loadFailed("appointments")
	}
	appts = listing.Apply(appts, listing.Search(c.Query("q"),
		func(a domain.Appointment) string { return a.PatientName },
		func(a domain.Appointment) string { return a.Phone },
	))
	data["Items"] = appts
	return render(c, "reception_checkin", data)
}

// POST /reception/checkin/:id
func (h *ReceptionHandler) CheckIn(c *fiber.Ctx) error {
	u := currentUser(c)
	e, err := h.Reception.CheckIn(c.UserContext(), u.ClientID, c.Params("id"))
	if err != nil {
		return h.checkFail(c, "checkin", err)
	}
	applog.Audit(c, "reception.checkin", map[string]any{"appointment_id": c.Params("id"), "number": e.QueueNumber})
	setFlash(c, "success", fmt.Sprintf("%s checked in as number %d", e.PatientName, e.QueueNumber))
	return c.Redirect("/reception/checkin")
}

// POST /reception/checkout/:id
func (h *ReceptionHandler) CheckOut(c *fiber.Ctx) error {
	u := currentUser(c)
	if err := h.Reception.CheckOut(c.UserContext(), u.ClientID, c.Params("id")); err != nil {
		return h.checkFail(c, "checkout", err)
	}
	applog.Audit(c, "reception.checkout", map[string]any{"appointment_id": c.Params("id")})
	setFlash(c, "success", "Checked out")
	return c.Redirect("/reception/checkin")
}

func (h *ReceptionHandler) checkFail(c *fiber.Ctx, op string, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidTransition):
		setFlash(c, "error", "That appointment cannot be updated now")
	case errors.Is(err, services.ErrNotFound):
		setFlash(c, "error", "Appointment not found")
	default:
		applog.Error(c, "reception."+op+".fail", err, map[string]any{"appointment_id": c.Params("id")})
		setFlash(c, "error", "Something went wrong")
	}
	return c.Redirect("/reception/checkin")
}

func filterPatients(all []domain.Patient, q string) []domain.Patient {
	return listing.Apply(all, listing.Search(q,
		func(p domain.Patient) string { return p.FullName },
		func(p domain.Patient) string { return p.Phone },
		func(p domain.Patient) string { return p.Email },
	))
}

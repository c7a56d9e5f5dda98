package handlers

import (
	"errors"
	"fmt"

	"hospverse/internal/domain"
	applog "hospverse/internal/log"
	"hospverse/internal/services"

	"github.com/gofiber/fiber/v2"
)

type TechnicianHandler struct {
	Tech     *services.TechnicianService
	Photos   *services.PhotoService
	Activity *services.AdminService
}

// procedureView tunes the shared procedure list for each portal.
type procedureView struct {
	Title       string
	Status      string // preset filter, overridable by ?status=
	Actions     bool   // start/complete buttons
	CanSchedule bool
	Back        string
}

func procedureList(c *fiber.Ctx, ts *services.TechnicianService, v procedureView) error {
	return procedureListStatus(c, ts, v, fiber.StatusOK, services.ProcedureInput{}, nil)
}

func procedureListStatus(c *fiber.Ctx, ts *services.TechnicianService, v procedureView, status int, in services.ProcedureInput, fe map[string]string) error {
	u := currentUser(c)
	st := c.Query("status", v.Status)
	data := fiber.Map{
		"View": v, "Status": st, "Q": c.Query("q"), "Form": in, "Errors": fe,
		"Statuses": []string{domain.ProcedureScheduled, domain.ProcedureInProgress, domain.ProcedureCompleted},
	}
	items, err := ts.List(c.UserContext(), u.ClientID, st, c.Query("q"))
	if err != nil {
		applog.Error(c, "procedures.list.fail", err, nil)
		data["Flash"] = loadFailed("procedures")
	}
	data["Items"], data["Pager"] = paginate(c, items)
	return renderStatus(c, status, "procedures", data)
}

// GET /technician
func (h *TechnicianHandler) Dashboard(c *fiber.Ctx) error {
	u := currentUser(c)
	data := fiber.Map{"Title": "Technician Dashboard"}
	st, err := h.Tech.Stats(c.UserContext(), u.ClientID)
	if err != nil {
		applog.Error(c, "technician.stats.fail", err, nil)
		data["Flash"] = loadFailed("procedure stats")
	}
	data["Cards"] = []card{
		{"Today's Procedures", fmt.Sprint(st.Today)},
		{"Scheduled", fmt.Sprint(st.Scheduled)},
		{"In Progress", fmt.Sprint(st.InProgress)},
		{"Completed", fmt.Sprint(st.Completed)},
	}
	upcoming, err := h.Tech.List(c.UserContext(), u.ClientID, domain.ProcedureScheduled, "")
	if err != nil {
		applog.Error(c, "procedures.list.fail", err, nil)
		data["Flash"] = loadFailed("procedures")
	}
	t := table{Caption: "Up next", Headers: []string{"When", "Patient", "Procedure", "Doctor"}}
	for _, p := range upcoming {
		t.Rows = append(t.Rows, []string{p.ScheduledAt, p.PatientName, p.ProcedureType, p.DoctorName})
	}
	data["Table"] = t
	return render(c, "dashboard", data)
}

// GET /technician/procedures
func (h *TechnicianHandler) Procedures(c *fiber.Ctx) error {
	return procedureList(c, h.Tech, procedureView{Title: "Procedures", Actions: true, Back: "/technician/procedures"})
}

// GET /technician/history
func (h *TechnicianHandler) History(c *fiber.Ctx) error {
	return procedureList(c, h.Tech, procedureView{Title: "Session History", Status: domain.ProcedureCompleted})
}

// POST /technician/procedures/:id/start
func (h *TechnicianHandler) Start(c *fiber.Ctx) error {
	u := currentUser(c)
	p, err := h.Tech.Start(c.UserContext(), u.ClientID, c.Params("id"), c.FormValue("technician"))
	return h.afterMove(c, "start", p, err)
}

// POST /technician/procedures/:id/complete
func (h *TechnicianHandler) Complete(c *fiber.Ctx) error {
	u := currentUser(c)
	p, err := h.Tech.Complete(c.UserContext(), u.ClientID, c.Params("id"), c.FormValue("notes"))
	return h.afterMove(c, "complete", p, err)
}

func (h *TechnicianHandler) afterMove(c *fiber.Ctx, op string, p *domain.Procedure, err error) error {
	id := c.Params("id")
	switch {
	case errors.Is(err, services.ErrInvalidTransition):
		setFlash(c, "error", "That procedure cannot "+op+" now")
	case errors.Is(err, services.ErrNotFound):
		setFlash(c, "error", "Procedure not found")
	case err != nil:
		applog.Error(c, "technician.procedures."+op+".fail", err, map[string]any{"procedure_id": id})
		setFlash(c, "error", "Could not update the procedure")
	default:
		applog.Audit(c, "technician.procedures."+op, map[string]any{"procedure_id": id})
		recordActivity(c, h.Activity, currentUser(c), "technician", fmt.Sprintf("%s %s for %s", p.Status, p.ProcedureType, p.PatientName), "update")
		setFlash(c, "success", "Procedure "+p.Status)
	}
	return c.Redirect("/technician/procedures")
}

// GET /technician/photos
func (h *TechnicianHandler) PhotosPage(c *fiber.Ctx) error {
	return h.photoPage(c, fiber.StatusOK, nil)
}

func (h *TechnicianHandler) photoPage(c *fiber.Ctx, status int, fe map[string]string) error {
	u := currentUser(c)
	ctx := c.UserContext()
	data := fiber.Map{"Treatment": c.Query("treatment"), "Q": c.Query("q"), "Session": c.Query("session"), "Errors": fe}
	st, err := h.Photos.Stats(ctx, u.ClientID)
	if err != nil {
		applog.Error(c, "photos.stats.fail", err, nil)
	}
	data["Stats"] = st
	sessions, err := h.Photos.Sessions(ctx, u.ClientID, c.Query("treatment"), c.Query("q"))
	if err != nil {
		applog.Error(c, "photos.sessions.list.fail", err, nil)
		data["Flash"] = loadFailed("photo sessions")
	}
	data["Items"], data["Pager"] = paginate(c, sessions)
	if sid := c.Query("session"); sid != "" {
		photos, err := h.Photos.ListPhotos(ctx, u.ClientID, sid)
		if err != nil {
			applog.Error(c, "photos.list.fail", err, nil)
			data["Flash"] = loadFailed("photos")
		}
		data["Photos"] = photos
	}
	return renderStatus(c, status, "photos", data)
}

// POST /technician/photos/sessions
func (h *TechnicianHandler) CreateSession(c *fiber.Ctx) error {
	u := currentUser(c)
	var in services.SessionInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}
	ps, err := h.Photos.CreateSession(c.UserContext(), u.ClientID, in)
	if fe, ok := fieldErrors(err); ok {
		return h.photoPage(c, fiber.StatusUnprocessableEntity, fe)
	}
	if err != nil {
		applog.Error(c, "photos.sessions.create.fail", err, nil)
		return err
	}
	applog.Audit(c, "photos.sessions.create", map[string]any{"session_id": ps.ID})
	setFlash(c, "success", "Session created")
	return c.Redirect("/technician/photos?session=" + ps.ID)
}

// POST /technician/photos records an uploaded photo's metadata.
func (h *TechnicianHandler) Upload(c *fiber.Ctx) error {
	u := currentUser(c)
	in := services.PhotoInput{SessionID: c.FormValue("session_id"), Kind: c.FormValue("kind"), FileName: c.FormValue("file_name")}
	if fh, err := c.FormFile("photo"); err == nil {
		in.FileName = fh.Filename
	}
	p, err := h.Photos.Upload(c.UserContext(), u.ClientID, in)
	if fe, ok := fieldErrors(err); ok {
		return h.photoPage(c, fiber.StatusUnprocessableEntity, fe)
	}
	if errors.Is(err, services.ErrNotFound) {
		setFlash(c, "error", "Photo session not found")
		return c.Redirect("/technician/photos")
	}
	if err != nil {
		applog.Error(c, "photos.upload.fail", err, nil)
		return err
	}
	applog.Audit(c, "photos.upload", map[string]any{"photo_id": p.ID, "session_id": p.SessionID, "kind": p.Kind})
	recordActivity(c, h.Activity, u, "photo-manager", "Uploaded "+p.Kind+" photo "+p.FileName, "create")
	setFlash(c, "success", "Photo saved")
	return c.Redirect("/technician/photos?session=" + p.SessionID)
}

// POST /technician/photos/:id/delete
func (h *TechnicianHandler) DeletePhoto(c *fiber.Ctx) error {
	u := currentUser(c)
	id := c.Params("id")
	err := h.Photos.Delete(c.UserContext(), u.ClientID, id)
	switch {
	case errors.Is(err, services.ErrNotFound):
		setFlash(c, "error", "Photo not found")
	case err != nil:
		applog.Error(c, "photos.delete.fail", err, map[string]any{"photo_id": id})
		setFlash(c, "error", "Could not delete the photo")
	default:
		applog.Audit(c, "photos.delete", map[string]any{"photo_id": id})
		recordActivity(c, h.Activity, u, "photo-manager", "Deleted photo "+id, "delete")
		setFlash(c, "success", "Photo deleted")
	}
	back := "/technician/photos"
	if s := c.FormValue("session_id"); s != "" {
		back += "?session=" + s
	}
	return c.Redirect(back)
}

// ProceduresHandler serves the procedures portal: catalog and scheduling.
type ProceduresHandler struct {
	Tech     *services.TechnicianService
	Activity *services.AdminService
}

// GET /procedures
func (h *ProceduresHandler) Dashboard(c *fiber.Ctx) error {
	u := currentUser(c)
	data := fiber.Map{"Title": "Procedures Dashboard"}
	all, err := h.Tech.List(c.UserContext(), u.ClientID, "", "")
	if err != nil {
		applog.Error(c, "procedures.list.fail", err, nil)
		data["Flash"] = loadFailed("procedures")
	}
	byType := map[string]int{}
	var types []string
	for _, p := range all {
		if byType[p.ProcedureType] == 0 {
			types = append(types, p.ProcedureType)
		}
		byType[p.ProcedureType]++
	}
	data["Cards"] = []card{{"Procedures on record", fmt.Sprint(len(all))}, {"Procedure types", fmt.Sprint(len(types))}}
	t := table{Caption: "Volume by procedure", Headers: []string{"Procedure", "Sessions"}}
	for _, name := range types {
		t.Rows = append(t.Rows, []string{name, fmt.Sprint(byType[name])})
	}
	data["Table"] = t
	return render(c, "dashboard", data)
}

// GET /procedures/catalog
func (h *ProceduresHandler) Catalog(c *fiber.Ctx) error {
	return procedureList(c, h.Tech, procedureView{Title: "Procedure Catalog", CanSchedule: true})
}

// POST /procedures/catalog
func (h *ProceduresHandler) Schedule(c *fiber.Ctx) error {
	u := currentUser(c)
	var in services.ProcedureInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}
	p, err := h.Tech.Schedule(c.UserContext(), u.ClientID, in)
	if fe, ok := fieldErrors(err); ok {
		return procedureListStatus(c, h.Tech, procedureView{Title: "Procedure Catalog", CanSchedule: true}, fiber.StatusUnprocessableEntity, in, fe)
	}
	if err != nil {
		applog.Error(c, "procedures.schedule.fail", err, nil)
		return err
	}
	applog.Audit(c, "procedures.schedule", map[string]any{"procedure_id": p.ID})
	recordActivity(c, h.Activity, u, "procedures", "Scheduled "+p.ProcedureType+" for "+p.PatientName, "create")
	setFlash(c, "success", "Procedure scheduled")
	return c.Redirect("/procedures/catalog")
}

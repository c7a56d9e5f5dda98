package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospverse/internal/domain"
	"hospverse/internal/http/handlers"
)

// closedStreamApp ends every queue stream right after its first event.
func closedStreamApp(t *testing.T) *fiber.App {
	t.Helper()
	streams, cancel := context.WithCancel(context.Background())
	cancel()
	app, _ := newTestApp(t, true, func(d *handlers.Deps) { d.ReceptionHandler.Streams = streams })
	return app
}

func addWalkIn(t *testing.T, app *fiber.App, sid *http.Cookie, name, priority string) {
	t.Helper()
	tok := csrfToken(t, app)
	added := postForm(t, app, "/reception/queue", tok, url.Values{
		"patient_name": {name}, "phone": {"+91 99999 00000"}, "priority": {priority},
	}, sid)
	require.Equal(t, http.StatusFound, added.StatusCode)
}

func queueEvent(t *testing.T, app *fiber.App, path string, sid *http.Cookie) []domain.QueueEntry {
	t.Helper()
	resp := get(t, app, path, sid)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	raw := body(t, resp)
	require.True(t, strings.HasPrefix(raw, "event: queue\ndata: "), raw)
	payload := strings.TrimSpace(strings.TrimPrefix(raw, "event: queue\ndata: "))
	var entries []domain.QueueEntry
	require.NoError(t, json.Unmarshal([]byte(payload), &entries))
	return entries
}

func findEntry(entries []domain.QueueEntry, name string) *domain.QueueEntry {
	for i := range entries {
		if entries[i].PatientName == name {
			return &entries[i]
		}
	}
	return nil
}

func TestQueueStreamSendsSnapshot(t *testing.T) {
	app := closedStreamApp(t)
	sid := demoLogin(t, app, "reception")
	addWalkIn(t, app, sid, "Walk In Test", "urgent")

	e := findEntry(queueEvent(t, app, "/reception/queue/stream", sid), "Walk In Test")
	require.NotNil(t, e)
	assert.Equal(t, "urgent", e.Priority)
	assert.Equal(t, "waiting", e.Status)
}

func TestQueueStreamKeepsPageFilters(t *testing.T) {
	app := closedStreamApp(t)
	sid := demoLogin(t, app, "reception")
	addWalkIn(t, app, sid, "Walk In Test", "normal")

	done := queueEvent(t, app, "/reception/queue/stream?status=completed", sid)
	assert.Nil(t, findEntry(done, "Walk In Test"))
	for _, e := range done {
		assert.Equal(t, domain.QueueCompleted, e.Status)
	}

	found := queueEvent(t, app, "/reception/queue/stream?q=walk+in", sid)
	require.Len(t, found, 1)
	assert.Equal(t, "Walk In Test", found[0].PatientName)

	// the stream pages the same way the list does
	for i := 0; i < 12; i++ {
		addWalkIn(t, app, sid, "Bulk Walk In", "normal")
	}
	assert.Len(t, queueEvent(t, app, "/reception/queue/stream?q=bulk", sid), 10)
	assert.Len(t, queueEvent(t, app, "/reception/queue/stream?q=bulk&page=2", sid), 2)
}

func TestQueuePageRendersStreamHook(t *testing.T) {
	app, _ := newTestApp(t, true, nil)
	sid := demoLogin(t, app, "reception")

	resp := get(t, app, "/reception/queue", sid)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	html := body(t, resp)
	assert.Contains(t, html, `data-stream="/reception/queue/stream"`)
	assert.Contains(t, html, `id="queue-rows"`)
	assert.Contains(t, html, `data-statuses="waiting,checked-in,with-doctor,completed,cancelled"`)
	assert.Contains(t, html, `id="queue-updated"`)

	filtered := body(t, get(t, app, "/reception/queue?status=waiting&q=Walk", sid))
	assert.Contains(t, filtered, `data-stream="/reception/queue/stream?q=Walk&amp;status=waiting"`)
}

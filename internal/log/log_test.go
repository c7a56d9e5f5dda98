package log

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWriteCarriesRequestFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	old := L()
	SetLogger(zap.New(core))
	defer SetLogger(old)

	app := fiber.New()
	app.Get("/x", func(c *fiber.Ctx) error {
		c.Locals("requestid", "rid-1")
		c.Locals("user_id", "user-9")
		Security(c, "access.denied.module", map[string]any{"module": "hr"})
		Error(c, "hr.staff.list.fail", errors.New("boom"), nil)
		return c.SendStatus(204)
	})
	_, err := app.Test(httptest.NewRequest("GET", "/x", nil))
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 2)

	sec := entries[0]
	assert.Equal(t, zapcore.WarnLevel, sec.Level)
	ctx := sec.ContextMap()
	assert.Equal(t, "access.denied.module", ctx["action"])
	assert.Equal(t, "rid-1", ctx["req_id"])
	assert.Equal(t, "user-9", ctx["user_id"])
	assert.Equal(t, "/x", ctx["path"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
}

func TestAuditFlag(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	old := L()
	SetLogger(zap.New(core))
	defer SetLogger(old)

	Audit(nil, "auth.logout", nil)
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()["fields"].(map[string]any)
	assert.Equal(t, true, fields["audit"])
}

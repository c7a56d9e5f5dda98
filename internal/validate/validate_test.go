package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginForm struct {
	Email    string `form:"email" validate:"required"`
	Password string `form:"password" validate:"required"`
}

type walkIn struct {
	PatientName string `form:"patient_name" validate:"required,max=80"`
	Phone       string `form:"phone" validate:"required,phone"`
	Priority    string `form:"priority" validate:"oneof=normal urgent"`
	Date        string `json:"date" validate:"omitempty,isodate"`
}

func TestStructRequired(t *testing.T) {
	err := Struct(loginForm{})
	require.Error(t, err)
	fe, ok := err.(FieldErrors)
	require.True(t, ok)
	assert.Equal(t, "Please enter email", fe["email"])
	assert.Equal(t, "Please enter password", fe["password"])

	assert.NoError(t, Struct(loginForm{Email: "abc", Password: "123"}))
}

func TestStructCustomTags(t *testing.T) {
	err := Struct(walkIn{PatientName: "Asha", Phone: "call me", Priority: "vip", Date: "12/01/2025"})
	fe := err.(FieldErrors)
	assert.Equal(t, "Please enter a valid phone number", fe["phone"])
	assert.Contains(t, fe["priority"], "one of")
	assert.Equal(t, "Please enter a date as YYYY-MM-DD", fe["date"])
	assert.NotContains(t, fe, "patient_name")

	assert.NoError(t, Struct(walkIn{PatientName: "Asha", Phone: "+91 98765 43210", Priority: "urgent"}))
}

func TestFieldErrorsMessageIsStable(t *testing.T) {
	e := FieldErrors{"b": "two", "a": "one"}
	assert.Equal(t, "validation failed: a: one, b: two", e.Error())
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Patient reports itching", CleanText(`<script>alert(1)</script>Patient reports <b>itching</b>`))
}

func TestHelpers(t *testing.T) {
	id, ok := ID(" client-123 ")
	assert.True(t, ok)
	assert.Equal(t, "client-123", id)
	_, ok = ID("../etc")
	assert.False(t, ok)

	q, ok := Q("  ")
	assert.True(t, ok)
	assert.Empty(t, q)
	_, ok = Q("<script>")
	assert.False(t, ok)

	n, ok := Qty("25")
	assert.True(t, ok)
	assert.Equal(t, 25, n)
	_, ok = Qty("-3")
	assert.False(t, ok)

	assert.Equal(t, 1, Page("abc"))
	assert.Equal(t, 4, Page("4"))
	assert.True(t, OneOf("waiting", "waiting", "completed"))
}

func TestDateIsACalendarDate(t *testing.T) {
	d, ok := Date(" 2024-02-29 ")
	assert.True(t, ok)
	assert.Equal(t, "2024-02-29", d)
	for _, bad := range []string{"2024-99-99", "2023-02-29", "2024-2-1", "", "tomorrow"} {
		_, ok := Date(bad)
		assert.False(t, ok, bad)
	}
}

func TestCleanTextKeepsPunctuation(t *testing.T) {
	assert.Equal(t, "O'Neil & sons", CleanText("O'Neil & sons"))
}

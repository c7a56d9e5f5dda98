package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	Name, Status, Source string
}

var rows = []row{
	{"Asha Rao", "new", "walk-in"},
	{"Ben Ortiz", "contacted", "instagram"},
	{"Chitra Das", "new", "instagram"},
	{"Dev Patel", "converted", "referral"},
	{"asha kumar", "new", "referral"},
}

func name(r row) string   { return r.Name }
func status(r row) string { return r.Status }
func source(r row) string { return r.Source }

func TestSearchIsCaseInsensitiveSubstring(t *testing.T) {
	got := Apply(rows, Search("ASHA", name))
	require.Len(t, got, 2)
	assert.Equal(t, "Asha Rao", got[0].Name)
	assert.Equal(t, "asha kumar", got[1].Name)

	assert.Len(t, Apply(rows, Search("", name)), len(rows))
	assert.Len(t, Apply(rows, Search("gram", name, source)), 2)
}

func TestEqualTreatsAllAsNoFilter(t *testing.T) {
	assert.Len(t, Apply(rows, Equal("all", status)), len(rows))
	assert.Len(t, Apply(rows, Equal("", status)), len(rows))
	assert.Len(t, Apply(rows, Equal("New", status)), 3)
}

func TestFilterOrderDoesNotMatter(t *testing.T) {
	fs := []Filter[row]{
		Search("a", name),
		Equal("new", status),
		Equal("referral", source),
	}
	want := Apply(rows, fs...)
	require.Len(t, want, 1)

	perms := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, p := range perms {
		got := Apply(rows, fs[p[0]], fs[p[1]], fs[p[2]])
		assert.Equal(t, want, got, "order %v", p)
	}
}

func TestApplySkipsNilFilters(t *testing.T) {
	assert.Len(t, Apply(rows, nil, Equal("converted", status)), 1)
	assert.Empty(t, Apply([]row{}, Equal("x", status)))
}

func TestPaginate(t *testing.T) {
	items := make([]int, 23)
	for i := range items {
		items[i] = i
	}

	p := Paginate(items, 1, 10)
	assert.Equal(t, 10, len(p.Items))
	assert.Equal(t, 3, p.TotalPages)
	assert.False(t, p.HasPrev())
	assert.True(t, p.HasNext())

	p = Paginate(items, 3, 10)
	assert.Equal(t, []int{20, 21, 22}, p.Items)
	assert.False(t, p.HasNext())

	p = Paginate(items, 99, 10)
	assert.Equal(t, 3, p.Page)

	p = Paginate(items, -1, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPageSize, p.Size)

	empty := Paginate([]int{}, 2, 10)
	assert.Equal(t, 1, empty.Page)
	assert.Equal(t, 1, empty.TotalPages)
	assert.Empty(t, empty.Items)
}

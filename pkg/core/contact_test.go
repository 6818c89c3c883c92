package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapRow_TrimsHeaderNames(t *testing.T) {
	header := []string{" phone Number ", "nurse Name\t", "ward"}
	row := MapRow(3, header, []string{"+441164970000", "Ada", "B2"}, DefaultColumns())

	assert.Equal(t, 3, row.Index)
	assert.Equal(t, "+441164970000", row.Phone)
	assert.Equal(t, "Ada", row.Name)
	assert.Equal(t, "B2", row.Fields["ward"])
	assert.False(t, row.Skippable())
}

func TestMapRow_HeaderMatchIsCaseSensitive(t *testing.T) {
	header := []string{"Phone Number", "nurse name"}
	row := MapRow(0, header, []string{"+441164970000", "Ada"}, DefaultColumns())

	assert.Empty(t, row.Phone)
	assert.Empty(t, row.Name)
	assert.True(t, row.Skippable())
}

func TestMapRow_MissingTrailingCells(t *testing.T) {
	header := []string{"phone Number", "nurse Name", "notes"}
	row := MapRow(0, header, []string{"+441164970000"}, DefaultColumns())

	assert.Equal(t, "+441164970000", row.Phone)
	assert.Equal(t, "", row.Name)
	assert.Contains(t, row.Fields, "notes")
	assert.True(t, row.Skippable())
}

func TestMapRow_ExtraCellsIgnored(t *testing.T) {
	header := []string{"phone Number", "nurse Name"}
	row := MapRow(0, header, []string{"+441164970000", "Ada", "extra", "more"}, DefaultColumns())

	assert.Len(t, row.Fields, 2)
	assert.False(t, row.Skippable())
}

func TestMapRow_DuplicateHeaderKeepsLast(t *testing.T) {
	header := []string{"nurse Name", "phone Number", "nurse Name"}
	row := MapRow(0, header, []string{"First", "+441164970000", "Second"}, DefaultColumns())

	assert.Equal(t, "Second", row.Name)
}

func TestMapRow_BlankNameIsSkippable(t *testing.T) {
	header := []string{"phone Number", "nurse Name"}
	row := MapRow(0, header, []string{"+441164970000", "   "}, DefaultColumns())

	assert.True(t, row.Skippable())
}

func TestMapRow_CustomColumns(t *testing.T) {
	cols := Columns{Phone: "mobile", Name: "contact"}
	row := MapRow(0, []string{"contact", "mobile"}, []string{"Grace", "+15550100"}, cols)

	assert.Equal(t, "+15550100", row.Phone)
	assert.Equal(t, "Grace", row.Name)
}

package sqlite

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stationops/compliance-engine/compliance"
)

func TestParseDateOrZero(t *testing.T) {
	got := parseDateOrZero("2025-03-15")
	assert.True(t, got.Equal(compliance.NewDate(2025, time.March, 15)))

	assert.True(t, parseDateOrZero("not-a-date").IsZero(),
		"a corrupt date must read back as the zero date, not fail or panic")
	assert.True(t, parseDateOrZero("").IsZero())
}

func TestDateFromDB(t *testing.T) {
	assert.True(t, dateFromDB(sql.NullString{}).IsZero())
	assert.True(t, dateFromDB(sql.NullString{Valid: true, String: ""}).IsZero())

	got := dateFromDB(sql.NullString{Valid: true, String: "2025-03-15"})
	assert.True(t, got.Equal(compliance.NewDate(2025, time.March, 15)))
}

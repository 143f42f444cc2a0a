package compose

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/pawcare-booking-chat/internal/directive"
	"github.com/wolfman30/pawcare-booking-chat/internal/selection"
)

func clickAll(t *testing.T, s selection.State, names ...string) selection.State {
	t.Helper()
	for _, name := range names {
		next, _, err := s.Click(name)
		require.NoError(t, err)
		s = next
	}
	return s
}

func TestSelection_ServiceMainFirstAddOnsInListOrder(t *testing.T) {
	d := directive.Service{Choices: []directive.Option{
		{Name: "Full Groom", Category: directive.CategoryMainService},
		{Name: "Nail Trim", Category: directive.CategoryAddOn},
		{Name: "Teeth Cleaning", Category: directive.CategoryAddOn},
	}}
	s := clickAll(t, selection.New(d), "Teeth Cleaning", "Nail Trim", "Full Groom")

	msg, err := Selection(s)
	require.NoError(t, err)
	assert.Equal(t, "Full Groom, Nail Trim, Teeth Cleaning", msg)
}

func TestSelection_ServiceWithoutMainIsRefused(t *testing.T) {
	d := directive.Service{Choices: []directive.Option{
		{Name: "Full Groom", Category: directive.CategoryMainService},
		{Name: "Nail Trim", Category: directive.CategoryAddOn},
	}}
	s := clickAll(t, selection.New(d), "Nail Trim")
	_, err := Selection(s)
	assert.ErrorIs(t, err, ErrEmptySelection)
}

func TestSelection_PetsInListOrder(t *testing.T) {
	d := directive.Pet{Choices: []directive.Option{{Name: "Bella"}, {Name: "Max"}, {Name: "Luna"}}}
	s := clickAll(t, selection.New(d), "Luna", "Bella")
	msg, err := Selection(s)
	require.NoError(t, err)
	assert.Equal(t, "Bella, Luna", msg)

	_, err = Selection(selection.New(d))
	assert.ErrorIs(t, err, ErrEmptySelection)
}

func TestSelection_Professional(t *testing.T) {
	d := directive.Professional{Choices: []directive.Option{{Name: "Dana Reyes"}, {Name: "Sam Lee"}}}
	msg, err := Selection(clickAll(t, selection.New(d), "Sam Lee"))
	require.NoError(t, err)
	assert.Equal(t, "Sam Lee", msg)

	_, err = Selection(selection.New(d))
	assert.ErrorIs(t, err, ErrEmptySelection)
}

func TestSelection_ConfirmationUsesSentences(t *testing.T) {
	d := directive.NewConfirmation()

	msg, err := Selection(clickAll(t, selection.New(d), directive.ConfirmYes))
	require.NoError(t, err)
	assert.Equal(t, "Yes, I'd like to proceed with the booking.", msg)

	msg, err = Selection(clickAll(t, selection.New(d), directive.ConfirmNo))
	require.NoError(t, err)
	assert.Equal(t, "No, I need to make changes.", msg)

	_, err = Selection(selection.New(d))
	assert.ErrorIs(t, err, ErrEmptySelection)
}

func TestSelection_None(t *testing.T) {
	_, err := Selection(selection.New(directive.None{}))
	assert.ErrorIs(t, err, ErrNothingToCompose)
}

func mustTime(t *testing.T, raw string) TimeOfDay {
	t.Helper()
	tod, err := ParseTimeOfDay(raw)
	require.NoError(t, err)
	return tod
}

func TestDateTime_RecurringWeekly(t *testing.T) {
	start, err := ParseDate("2024-03-05")
	require.NoError(t, err)
	end, err := ParseDate("2024-04-05")
	require.NoError(t, err)

	msg, err := DateTime(DateTimeSelection{
		Date:       start,
		Time:       mustTime(t, "14:30"),
		Timezone:   "America/New_York",
		Recurrence: &Recurrence{Frequency: "weekly", EndDate: &end},
	})
	require.NoError(t, err)
	assert.Equal(t, "Date: 3/5/2024, Time: 2:30 PM, Timezone: America/New York, Recurring: weekly, Ends on: 4/5/2024", msg)
}

func TestDateTime_NoDriftAcrossZones(t *testing.T) {
	// Late evening in a zone far west of UTC is already the next day in UTC.
	loc := time.FixedZone("UTC-10", -10*60*60)
	picked := time.Date(2024, time.March, 5, 23, 30, 0, 0, loc)

	msg, err := DateTime(DateTimeSelection{
		Date:     DateOf(picked),
		Time:     mustTime(t, "11:30 PM"),
		Timezone: "Pacific/Honolulu",
	})
	require.NoError(t, err)
	assert.Contains(t, msg, "Date: 3/5/2024")
	assert.Contains(t, msg, "Time: 11:30 PM")

	// Far east: early morning that is still the previous day in UTC.
	loc = time.FixedZone("UTC+13", 13*60*60)
	picked = time.Date(2024, time.March, 5, 0, 15, 0, 0, loc)
	msg, err = DateTime(DateTimeSelection{Date: DateOf(picked), Time: mustTime(t, "00:15"), Timezone: "Pacific/Tongatapu"})
	require.NoError(t, err)
	assert.Contains(t, msg, "Date: 3/5/2024, Time: 12:15 AM")
}

func TestDateTime_MultiDayAndOrdering(t *testing.T) {
	start, _ := ParseDate("2024-12-30")
	end, _ := ParseDate("2025-01-02")
	recEnd, _ := ParseDate("2025-02-01")

	msg, err := DateTime(DateTimeSelection{
		Date:       start,
		Time:       mustTime(t, "9:05 AM"),
		Timezone:   "Europe/London",
		Recurrence: &Recurrence{Frequency: "monthly", EndDate: &recEnd},
		MultiDay:   &MultiDay{EndDate: end},
	})
	require.NoError(t, err)
	assert.Equal(t, "Date: 12/30/2024, Time: 9:05 AM, Timezone: Europe/London, Recurring: monthly, Ends on: 2/1/2025, Multi-day booking ending on: 1/2/2025", msg)

	msg, err = DateTime(DateTimeSelection{
		Date:       start,
		Time:       mustTime(t, "12:00"),
		Timezone:   "UTC",
		Recurrence: &Recurrence{Frequency: "daily"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Date: 12/30/2024, Time: 12:00 PM, Timezone: UTC, Recurring: daily", msg)
}

func TestDateTime_Validation(t *testing.T) {
	start, _ := ParseDate("2024-03-05")
	before, _ := ParseDate("2024-03-01")
	noon := mustTime(t, "12:00")

	_, err := DateTime(DateTimeSelection{Time: noon, Timezone: "UTC"})
	assert.ErrorIs(t, err, ErrMissingDate)

	_, err = DateTime(DateTimeSelection{Date: start, Timezone: "UTC"})
	assert.ErrorIs(t, err, ErrMissingTime)

	_, err = DateTime(DateTimeSelection{Date: start, Time: noon})
	assert.ErrorIs(t, err, ErrMissingTimezone)

	_, err = DateTime(DateTimeSelection{Date: start, Time: noon, Timezone: "UTC", MultiDay: &MultiDay{EndDate: before}})
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = DateTime(DateTimeSelection{Date: start, Time: noon, Timezone: "UTC", Recurrence: &Recurrence{Frequency: "weekly", EndDate: &before}})
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestParseTimeOfDay(t *testing.T) {
	tests := map[string]string{
		"00:00":    "12:00 AM",
		"09:07":    "9:07 AM",
		"12:30":    "12:30 PM",
		"23:59":    "11:59 PM",
		"3:15 pm":  "3:15 PM",
		"3:15PM":   "3:15 PM",
		"7 PM":     "7:00 PM",
		" 8:45 AM": "8:45 AM",
	}
	for raw, want := range tests {
		got, err := ParseTimeOfDay(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got.String(), raw)
	}

	_, err := ParseTimeOfDay("quarter past")
	assert.Error(t, err)
	_, err = ParseDate("03/05/2024")
	assert.Error(t, err)
}

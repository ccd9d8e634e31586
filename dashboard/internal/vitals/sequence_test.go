package vitals

import (
	"reflect"
	"testing"
	"time"

	"github.com/fetalalert/fetalalert/pkg/types"
)

func row(date, clock string) types.Row {
	return types.Row{Date: date, Time: clock, HeartRate: types.Number(80), SpO2: types.Number(97)}
}

func dates(readings []Reading) []string {
	out := make([]string, len(readings))
	for i, r := range readings {
		out[i] = r.Date + " " + r.Time
	}
	return out
}

func TestSequence_DropsBadDatesAndSortsDescending(t *testing.T) {
	rows := []types.Row{
		row("01/07/2025", "08:00"),
		row("not a date", "09:00"),
		row("02/07/2025", "07:30"),
		row("01/07/2025", "23:59"),
		row("", "10:00"),
	}
	got := dates(Sequence(rows, Range{}, time.UTC))
	want := []string{"02/07/2025 07:30", "01/07/2025 23:59", "01/07/2025 08:00"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sequence = %v, want %v", got, want)
	}
}

func TestSequence_InclusiveRange(t *testing.T) {
	rows := []types.Row{
		row("30/06/2025", "23:59"), // day before from
		row("01/07/2025", "00:00"), // equal to from
		row("15/07/2025", "12:00"),
		row("31/07/2025", "23:59"), // equal to to, late in the day
		row("01/08/2025", "00:00"), // day after to
	}
	r := Range{
		From: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC),
	}
	got := dates(Sequence(rows, r, time.UTC))
	want := []string{"31/07/2025 23:59", "15/07/2025 12:00", "01/07/2025 00:00"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sequence = %v, want %v", got, want)
	}
}

func TestSequence_OpenEndedRange(t *testing.T) {
	rows := []types.Row{row("30/06/2025", "10:00"), row("01/07/2025", "10:00")}

	got := Sequence(rows, Range{From: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)}, time.UTC)
	if len(got) != 1 || got[0].Date != "01/07/2025" {
		t.Errorf("from-only range = %v", dates(got))
	}

	got = Sequence(rows, Range{To: time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)}, time.UTC)
	if len(got) != 1 || got[0].Date != "30/06/2025" {
		t.Errorf("to-only range = %v", dates(got))
	}
}

func TestSequence_Idempotent(t *testing.T) {
	rows := []types.Row{
		row("03/07/2025", "10:00"),
		row("01/07/2025", "10:00"),
		{Date: "02/07/2025", Time: "10:00", HeartRate: types.Number(70)},
		{Date: "02/07/2025", Time: "10:00", HeartRate: types.Number(71)}, // same timestamp
		row("04/07/2025", "09:00"),
	}
	first := Sequence(rows, Range{}, time.UTC)
	second := Sequence(Rows(first), Range{}, time.UTC)

	if !reflect.DeepEqual(Rows(first), Rows(second)) {
		t.Errorf("re-sequencing changed order:\nfirst  %v\nsecond %v", dates(first), dates(second))
	}
	// Equal timestamps keep input order.
	if first[2].HeartRate.Num != 70 || first[3].HeartRate.Num != 71 {
		t.Errorf("stable order violated: %v, %v", first[2].HeartRate, first[3].HeartRate)
	}
}

func TestRange_Contains_IgnoresTimeOfDayOnBounds(t *testing.T) {
	r := Range{
		From: time.Date(2025, 7, 1, 18, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 7, 2, 6, 0, 0, 0, time.UTC),
	}
	if !r.Contains(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("from date should be included regardless of bound time")
	}
	if !r.Contains(time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)) {
		t.Error("to date should be included")
	}
	if r.Contains(time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC)) {
		t.Error("day after to should be excluded")
	}
}

package vitals

import (
	"errors"
	"testing"
	"time"

	"github.com/fetalalert/fetalalert/pkg/types"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "04/05/2025", want: time.Date(2025, 5, 4, 0, 0, 0, 0, time.UTC)},
		{in: "4/5/2025", want: time.Date(2025, 5, 4, 0, 0, 0, 0, time.UTC)},
		{in: " 01/07/2025 ", want: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)},
		{in: "29/02/2024", want: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{in: "", wantErr: true},
		{in: "2025-05-04", wantErr: true},
		{in: "00/05/2025", wantErr: true},
		{in: "31/02/2025", wantErr: true},
		{in: "10/13/2025", wantErr: true},
		{in: "aa/bb/cccc", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseDate(tc.in, time.UTC)
		if tc.wantErr {
			if !errors.Is(err, ErrBadDate) {
				t.Errorf("ParseDate(%q) err = %v, want ErrBadDate", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDate(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("ParseDate(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewReading_Timestamp(t *testing.T) {
	tests := []struct {
		time string
		want time.Time
	}{
		{"10:15", time.Date(2025, 5, 4, 10, 15, 0, 0, time.UTC)},
		{"7:05", time.Date(2025, 5, 4, 7, 5, 0, 0, time.UTC)},
		{"10:15:59", time.Date(2025, 5, 4, 10, 15, 0, 0, time.UTC)},
		{"", time.Date(2025, 5, 4, 0, 0, 0, 0, time.UTC)},
		{"xx:30", time.Date(2025, 5, 4, 0, 30, 0, 0, time.UTC)},
		{"14", time.Date(2025, 5, 4, 14, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		rd, err := NewReading(types.Row{Date: "04/05/2025", Time: tc.time}, time.UTC)
		if err != nil {
			t.Fatalf("NewReading(%q): %v", tc.time, err)
		}
		if !rd.At.Equal(tc.want) {
			t.Errorf("NewReading(%q).At = %v, want %v", tc.time, rd.At, tc.want)
		}
		if !rd.Day.Equal(time.Date(2025, 5, 4, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("NewReading(%q).Day = %v", tc.time, rd.Day)
		}
	}
}

func TestNewReading_BadDate(t *testing.T) {
	if _, err := NewReading(types.Row{Date: "yesterday", Time: "10:00"}, time.UTC); err == nil {
		t.Fatal("expected error for unparsable date")
	}
}

func TestParseISODate(t *testing.T) {
	got, err := ParseISODate("2025-07-01", time.UTC)
	if err != nil {
		t.Fatalf("ParseISODate: %v", err)
	}
	if !got.Equal(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ParseISODate = %v", got)
	}
	if _, err := ParseISODate("01/07/2025", time.UTC); !errors.Is(err, ErrBadDate) {
		t.Errorf("ParseISODate(dd/mm/yyyy) err = %v, want ErrBadDate", err)
	}
}

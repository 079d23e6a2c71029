package core

import (
	"errors"
	"testing"
	"time"
)

func day(i int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func TestBar_Validate(t *testing.T) {
	tests := []struct {
		name    string
		bar     Bar
		wantErr bool
	}{
		{"valid", Bar{Date: day(0), Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100}, false},
		{"zero date", Bar{Open: 10, High: 11, Low: 9, Close: 10}, true},
		{"non-positive price", Bar{Date: day(0), Open: 0, High: 11, Low: 9, Close: 10}, true},
		{"low above high", Bar{Date: day(0), Open: 10, High: 9, Low: 11, Close: 10}, true},
		{"close above high", Bar{Date: day(0), Open: 10, High: 11, Low: 9, Close: 12}, true},
		{"negative volume", Bar{Date: day(0), Open: 10, High: 11, Low: 9, Close: 10, Volume: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bar.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSecurity_Validate_NonChronological(t *testing.T) {
	s := Security{Symbol: "TEST", Bars: []Bar{
		{Date: day(1), Open: 10, High: 11, Low: 9, Close: 10},
		{Date: day(0), Open: 10, High: 11, Low: 9, Close: 10},
	}}
	err := s.Validate()
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSecurity_Validate_DuplicateDate(t *testing.T) {
	s := Security{Symbol: "TEST", Bars: []Bar{
		{Date: day(0), Open: 10, High: 11, Low: 9, Close: 10},
		{Date: day(0), Open: 10, High: 11, Low: 9, Close: 10},
	}}
	if err := s.Validate(); err == nil {
		t.Error("expected error for duplicate date")
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2024, 3, 1, 16, 30, 0, 0, time.UTC)
	if !SameDay(a, b) {
		t.Error("expected same day")
	}
	if SameDay(a, a.AddDate(0, 0, 1)) {
		t.Error("expected different days")
	}
}

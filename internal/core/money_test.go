package core

import (
	"errors"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"12,34", 1234, false},
		{"12.345", 1234, false}, // rounds down
		{"12.346", 1235, false}, // rounds up
		{"45", 4500, false},
		{"0", 0, false}, // zero is a valid amount
		{"0.00", 0, false},
		{".5", 50, false},
		{"-5", 0, true},
		{"+5", 0, true},
		{"", 0, true},
		{"1.2.3", 0, true},
		{"abc", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%q: got %v want ErrInvalidAmount", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: got %d want %d", tc.in, got, tc.want)
		}
	}
}

func TestMoneyString(t *testing.T) {
	if s := (Money{Cents: 4505}).String(); s != "45.05" {
		t.Fatalf("got %s", s)
	}
	if e := (Money{Cents: 150}).Euros(); e != 1.5 {
		t.Fatalf("got %v", e)
	}
}

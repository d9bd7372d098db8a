/*
Copyright 2020 Google LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"strings"
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-10T18:30:00Z", time.Date(2024, 3, 10, 18, 30, 0, 0, time.UTC)},
		{"2024-03-10T18:30:00-05:00", time.Date(2024, 3, 10, 18, 30, 0, 0, loc)},
		{"1710095400", time.Date(2024, 3, 10, 18, 30, 0, 0, time.UTC)},
		{"2024-03-10T07:15", time.Date(2024, 3, 10, 7, 15, 0, 0, loc)},
		{"2024-03-10 07:15:30", time.Date(2024, 3, 10, 7, 15, 30, 0, loc)},
		{"23:45", time.Date(2024, 3, 10, 23, 45, 0, 0, loc)},
	}
	for _, tt := range tests {
		got, err := parseTimestamp(tt.in, loc, now)
		if err != nil {
			t.Errorf("parseTimestamp(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseTimestamp_localHour(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	got, err := parseTimestamp("1710095400", loc, time.Now())
	if err != nil {
		t.Fatalf("parseTimestamp: %v", err)
	}
	if got.Hour() != 3 {
		t.Errorf("hour in %v = %d, want 3", loc, got.Hour())
	}
}

func TestParseTimestamp_invalid(t *testing.T) {
	for _, in := range []string{"not_real", "2024-03", "25:99", "2024-13-01T00:00"} {
		_, err := parseTimestamp(in, time.UTC, time.Now())
		if err == nil {
			t.Errorf("Expected error parsing %q", in)
			continue
		}
		if in == "not_real" && !strings.Contains(err.Error(), "Invalid format") {
			t.Errorf("Should have error with invalid format: %v", err)
		}
	}
}

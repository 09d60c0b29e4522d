package interfaces

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	alarms "alarmhub/internal/alarms/domain"
)

func sampleHistory() []alarms.Alarm {
	return []alarms.Alarm{
		{
			ID:          "a-1",
			OwnerID:     "user-1",
			Message:     "dentist",
			FireAt:      time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC),
			Status:      alarms.StatusFired,
			IsRecurring: false,
			CreatedAt:   time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:             "a-2",
			OwnerID:        "user-1",
			Message:        "standup",
			FireAt:         time.Date(2024, time.March, 3, 8, 55, 0, 0, time.UTC),
			Status:         alarms.StatusFired,
			IsRecurring:    true,
			RecurrenceKind: alarms.RecurrenceWeekly,
			WeekDays:       []int{1, 3, 5},
			CreatedAt:      time.Date(2024, time.February, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestBuildHistoryCSV(t *testing.T) {
	data, err := BuildHistoryCSV(sampleHistory())
	if err != nil {
		t.Fatalf("build csv: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(records))
	}
	if records[0][0] != "id" || records[1][1] != "dentist" {
		t.Fatalf("unexpected csv layout: %v", records[:2])
	}
	if records[2][5] != "1 3 5" {
		t.Fatalf("week days not rendered: %q", records[2][5])
	}
}

func TestBuildHistoryXLSX(t *testing.T) {
	data, err := BuildHistoryXLSX(sampleHistory())
	if err != nil {
		t.Fatalf("build xlsx: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty workbook")
	}
	// XLSX containers are zip archives.
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Fatal("output is not a zip container")
	}
}

func TestBuildHistoryPDF(t *testing.T) {
	data, err := BuildHistoryPDF(sampleHistory(), time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	if !strings.HasPrefix(string(data), "%PDF") {
		t.Fatal("output is not a pdf")
	}
}

package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evcharge/core/facility"
)

var t0 = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

func datasets() map[string][]facility.AuditRow {
	return map[string][]facility.AuditRow{
		"B": {{ReservationID: "r3", VehicleID: "ev3", Arrival: t0, UnitID: "cu1", ArrivalSoC: 0.5}},
		"A": {
			{ReservationID: "r1", VehicleID: "ev1", Arrival: t0, Departure: t0.Add(2 * time.Hour), UnitID: "cu1", ArrivalSoC: 0.2, DepartureSoC: 0.75, DeliveredKWh: 22},
			{ReservationID: "r2", VehicleID: "ev2", Arrival: t0.Add(time.Hour), UnitID: "cu2", ArrivalSoC: 0.4},
		},
	}
}

func TestRows_SortedByClusterThenAdmission(t *testing.T) {
	rows := Rows(datasets())
	require.Len(t, rows, 3)
	var got []string
	for _, r := range rows {
		got = append(got, r.ClusterID+"/"+r.VehicleID)
	}
	assert.Equal(t, []string{"A/ev1", "A/ev2", "B/ev3"}, got)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, Rows(datasets())); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, strings.Join(Header, ","), lines[0])
	assert.Equal(t, "A,r1,ev1,2024-01-01T08:00:00Z,2024-01-01T10:00:00Z,cu1,0.200000,0.750000,22.000000", lines[1])
	assert.Equal(t, "B,r3,ev3,2024-01-01T08:00:00Z,,cu1,0.500000,0.000000,0.000000", lines[3])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, Rows(datasets())); err != nil {
		t.Fatalf("write: %v", err)
	}
	var out []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 3)
	assert.Equal(t, "A", out[0]["cluster_id"])
	assert.Equal(t, "r1", out[0]["reservation_id"])
	assert.Equal(t, 22.0, out[0]["delivered_energy_kwh"])
}

func TestWrite_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "json", nil))
	assert.Equal(t, "[]\n", buf.String())
	assert.Error(t, Write(&buf, "xlsx", nil))
}

package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/evcharge/core/facility"
)

// Row is one audit entry qualified by its cluster.
type Row struct {
	ClusterID string `json:"cluster_id"`
	facility.AuditRow
}

// Header lists the CSV columns in output order.
var Header = []string{
	"cluster_id",
	"reservation_id",
	"vehicle_id",
	"t_arrival",
	"t_departure",
	"cu_id",
	"arrival_soc",
	"departure_soc",
	"delivered_energy_kwh",
}

// Rows flattens the per-cluster datasets, ordered by cluster id then
// admission order.
func Rows(datasets map[string][]facility.AuditRow) []Row {
	ids := make([]string, 0, len(datasets))
	for id := range datasets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []Row
	for _, id := range ids {
		for _, r := range datasets[id] {
			out = append(out, Row{ClusterID: id, AuditRow: r})
		}
	}
	return out
}

// WriteJSON writes the audit rows to w as a JSON array.
func WriteJSON(w io.Writer, rows []Row) error {
	if rows == nil {
		rows = []Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// WriteCSV writes the audit rows to w with a header line. Open rows have an
// empty departure instant.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.ClusterID,
			r.ReservationID,
			r.VehicleID,
			formatTime(r.Arrival),
			formatTime(r.Departure),
			r.UnitID,
			formatFloat(r.ArrivalSoC),
			formatFloat(r.DepartureSoC),
			formatFloat(r.DeliveredKWh),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Write dispatches on format, csv or json.
func Write(w io.Writer, format string, rows []Row) error {
	switch strings.ToLower(format) {
	case "", "csv":
		return WriteCSV(w, rows)
	case "json":
		return WriteJSON(w, rows)
	default:
		return fmt.Errorf("export: unknown format %q", format)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', 6, 64) }

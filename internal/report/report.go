// Package report renders schedules for the terminal and for other tools.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/hochfrequenz/upgrade-scheduler/internal/domain"
)

// Format selects the output encoding
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatYAML  Format = "yaml"
	FormatJSON  Format = "json"
)

// Formats lists the supported formats
var Formats = []Format{FormatTable, FormatCSV, FormatYAML, FormatJSON}

// ParseFormat accepts a format name. Empty means table.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatTable, nil
	}
	f := Format(strings.ToLower(s))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (expected table, csv, yaml or json)", s)
}

var (
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// record is the flat, string-dated form used by json and yaml
type record struct {
	InstanceID        string `json:"instanceId" yaml:"instanceId"`
	Mode              string `json:"mode" yaml:"mode"`
	Zone              string `json:"zone" yaml:"zone"`
	Type              string `json:"type" yaml:"type"`
	Application       string `json:"application" yaml:"application"`
	ReserveExpiryDate string `json:"reserveExpiryDate" yaml:"reserveExpiryDate"`
	ScheduleDate      string `json:"scheduleDate" yaml:"scheduleDate"`
	DatabaseReplicaID string `json:"databaseReplicaId" yaml:"databaseReplicaId"`
	DatabaseReplica   string `json:"databaseReplica" yaml:"databaseReplica"`
	LoadBalancingID   string `json:"loadBalancingId" yaml:"loadBalancingId"`
	LoadBalancing     string `json:"loadBalancing" yaml:"loadBalancing"`
}

func toRecord(s domain.Scheduled) record {
	f := s.Fields()
	return record{
		InstanceID:        f[0],
		Mode:              f[1],
		Zone:              f[2],
		Type:              f[3],
		Application:       f[4],
		ReserveExpiryDate: f[5],
		ScheduleDate:      f[6],
		DatabaseReplicaID: f[7],
		DatabaseReplica:   f[8],
		LoadBalancingID:   f[9],
		LoadBalancing:     f[10],
	}
}

// Write renders records in the given format
func Write(w io.Writer, format Format, records []domain.Scheduled) error {
	switch format {
	case FormatTable, "":
		return writeTable(w, records)
	case FormatCSV:
		return writeCSV(w, records)
	case FormatYAML:
		return writeYAML(w, records)
	case FormatJSON:
		return writeJSON(w, records)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeTable(w io.Writer, records []domain.Scheduled) error {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rec.Fields())
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(domain.ScheduledHeader...).
		Rows(rows...)

	_, err := fmt.Fprintln(w, t)
	return err
}

func writeCSV(w io.Writer, records []domain.Scheduled) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.ScheduledHeader); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write(rec.Fields()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func flatten(records []domain.Scheduled) []record {
	out := make([]record, 0, len(records))
	for _, rec := range records {
		out = append(out, toRecord(rec))
	}
	return out
}

func writeYAML(w io.Writer, records []domain.Scheduled) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(flatten(records)); err != nil {
		return err
	}
	return enc.Close()
}

func writeJSON(w io.Writer, records []domain.Scheduled) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(flatten(records))
}

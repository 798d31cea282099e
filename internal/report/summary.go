package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/hochfrequenz/upgrade-scheduler/internal/calendar"
	"github.com/hochfrequenz/upgrade-scheduler/internal/domain"
)

var titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))

// DaySummary counts the instances scheduled on one date
type DaySummary struct {
	Date     string
	Total    int
	Dev      int
	Prod     int
	OnDemand int
}

// Summarize groups records by schedule date. Records are expected in date
// order, as the scheduler and the store return them.
func Summarize(records []domain.Scheduled) []DaySummary {
	var out []DaySummary
	for _, rec := range records {
		key := calendar.Key(rec.ScheduleDate)
		if len(out) == 0 || out[len(out)-1].Date != key {
			out = append(out, DaySummary{Date: key})
		}
		day := &out[len(out)-1]
		day.Total++
		if rec.IsProd() {
			day.Prod++
		} else {
			day.Dev++
		}
		if rec.IsOnDemand() {
			day.OnDemand++
		}
	}
	return out
}

// WriteOverview writes one "date => N instances" line per day
func WriteOverview(w io.Writer, records []domain.Scheduled) error {
	for _, day := range Summarize(records) {
		if _, err := fmt.Fprintf(w, "%s => %d instances\n", day.Date, day.Total); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummary renders run metadata followed by a per-day table
func WriteSummary(w io.Writer, run domain.Run, records []domain.Scheduled) error {
	header := fmt.Sprintf("Run %s  start %s  sort %q", run.ID, calendar.Key(run.StartDate), string(run.SortBy))
	if _, err := fmt.Fprintln(w, titleStyle.Render(header)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d instances in %d batches, %d exchanges, %d postponements, %d same-date groups\n\n",
		run.InstanceCount, run.BatchCount, run.Exchanges, run.Postponements, run.SameDateGroups)
	if err != nil {
		return err
	}

	rows := [][]string{}
	for _, day := range Summarize(records) {
		rows = append(rows, []string{
			day.Date,
			strconv.Itoa(day.Total),
			strconv.Itoa(day.Dev),
			strconv.Itoa(day.Prod),
			strconv.Itoa(day.OnDemand),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("Date", "Instances", "Dev", "Prod", "On-demand").
		Rows(rows...)

	_, err = fmt.Fprintln(w, t)
	return err
}

// WriteRuns lists stored runs, one row each
func WriteRuns(w io.Writer, runs []*domain.Run) error {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		sortBy := string(run.SortBy)
		if sortBy == "" {
			sortBy = "-"
		}
		rows = append(rows, []string{
			run.ID,
			run.StartedAt.Format("2006-01-02 15:04"),
			calendar.Key(run.StartDate),
			sortBy,
			strconv.Itoa(run.InstanceCount),
			strconv.Itoa(run.BatchCount),
			strconv.Itoa(run.Postponements),
		})
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
		Headers("Run", "Started", "Start date", "Sort", "Instances", "Batches", "Postponed").
		Rows(rows...)

	_, err := fmt.Fprintln(w, t)
	return err
}

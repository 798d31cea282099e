package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hochfrequenz/upgrade-scheduler/internal/domain"
)

// ErrMalformedRow is returned for rows with too few columns
var ErrMalformedRow = errors.New("malformed csv row")

// DefaultGroupSeparator joins the member ids of one load balancing side
const DefaultGroupSeparator = "-"

// headerCells are first-column values that mark an optional header row
var headerCells = map[string]bool{"id": true, "instanceid": true, "instance_id": true}

// ReadInstances parses id,mode,zone,type,application,reserveExpiryDate rows
func ReadInstances(r io.Reader) ([]domain.Instance, error) {
	var out []domain.Instance
	err := eachRow(r, 6, func(cells []string) error {
		mode, err := domain.ParseMode(cells[1])
		if err != nil {
			return err
		}
		out = append(out, domain.Instance{
			ID:                cells[0],
			Mode:              mode,
			Zone:              cells[2],
			Type:              cells[3],
			Application:       cells[4],
			ReserveExpiryDate: cells[5],
		})
		return nil
	})
	return out, err
}

// ReadReplicas parses id,majorInstanceId,minorInstanceId rows
func ReadReplicas(r io.Reader) ([]domain.DatabaseReplica, error) {
	var out []domain.DatabaseReplica
	err := eachRow(r, 3, func(cells []string) error {
		out = append(out, domain.DatabaseReplica{
			ID:              cells[0],
			MajorInstanceID: cells[1],
			MinorInstanceID: cells[2],
		})
		return nil
	})
	return out, err
}

// ReadLoadBalancings parses id,groupA,groupB rows where each group cell
// holds member ids joined by sep.
func ReadLoadBalancings(r io.Reader, sep string) ([]domain.LoadBalancing, error) {
	if sep == "" {
		sep = DefaultGroupSeparator
	}
	var out []domain.LoadBalancing
	err := eachRow(r, 3, func(cells []string) error {
		out = append(out, domain.LoadBalancing{
			ID:     cells[0],
			GroupA: splitGroup(cells[1], sep),
			GroupB: splitGroup(cells[2], sep),
		})
		return nil
	})
	return out, err
}

func splitGroup(cell, sep string) []string {
	var ids []string
	for _, id := range strings.Split(cell, sep) {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// eachRow feeds every non-blank row with at least minCells trimmed cells to fn.
// A header row is skipped when it is the first row.
func eachRow(r io.Reader, minCells int, fn func(cells []string) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	first := true
	for {
		record, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		line, _ := cr.FieldPos(0)

		cells := make([]string, len(record))
		blank := true
		for i, c := range record {
			cells[i] = strings.TrimSpace(strings.TrimSuffix(c, "\r"))
			if cells[i] != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		if first {
			first = false
			if headerCells[strings.ToLower(cells[0])] {
				continue
			}
		}
		if len(cells) < minCells {
			return fmt.Errorf("line %d: %w: want %d columns, got %d", line, ErrMalformedRow, minCells, len(cells))
		}
		if err := fn(cells); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
}

package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for expiry and schedule dates
const DateLayout = "2006-01-02"

var multiXLargeRegex = regexp.MustCompile(`^([0-9]+)xlarge$`)

// Instance is an upgrade candidate as loaded from the inventory
type Instance struct {
	ID          string `json:"id" yaml:"id"`
	Mode        Mode   `json:"mode" yaml:"mode"`
	Zone        string `json:"zone" yaml:"zone"`
	Type        string `json:"type" yaml:"type"`
	Application string `json:"application" yaml:"application"`
	// ReserveExpiryDate is either a YYYY-MM-DD date or OnDemandMarker
	ReserveExpiryDate string `json:"reserveExpiryDate" yaml:"reserveExpiryDate"`
}

// IsProd reports whether the instance serves production traffic
func (i Instance) IsProd() bool {
	return i.Mode == ModeProd
}

// IsOnDemand reports whether the instance has no reservation
func (i Instance) IsOnDemand() bool {
	return i.ReserveExpiryDate == OnDemandMarker
}

// Acquisition returns how the instance capacity was bought
func (i Instance) Acquisition() Acquisition {
	if i.IsOnDemand() {
		return AcquisitionOnDemand
	}
	return AcquisitionReserved
}

// ExpiryDate parses the reservation expiry. It fails for on-demand instances.
func (i Instance) ExpiryDate() (time.Time, error) {
	if i.IsOnDemand() {
		return time.Time{}, fmt.Errorf("instance %s is on-demand and has no expiry date", i.ID)
	}
	d, err := time.ParseInLocation(DateLayout, i.ReserveExpiryDate, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("instance %s: invalid expiry date %q: %w", i.ID, i.ReserveExpiryDate, err)
	}
	return d, nil
}

// Validate checks the fields the scheduler depends on
func (i Instance) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("instance id is required")
	}
	if _, err := ParseMode(string(i.Mode)); err != nil {
		return fmt.Errorf("instance %s: %w", i.ID, err)
	}
	if !i.IsOnDemand() {
		if _, err := i.ExpiryDate(); err != nil {
			return err
		}
	}
	return nil
}

// TypeRank maps an instance type such as "m5.2xlarge" to a size rank.
// Unknown sizes rank 0.
func TypeRank(instanceType string) int {
	size := instanceType
	if idx := strings.Index(instanceType, "."); idx >= 0 {
		size = instanceType[idx+1:]
	}

	if m := multiXLargeRegex.FindStringSubmatch(size); m != nil {
		n, _ := strconv.Atoi(m[1]) // regex guarantees digits
		return n + 10
	}

	switch size {
	case "nano":
		return 1
	case "micro":
		return 2
	case "small":
		return 3
	case "medium":
		return 4
	case "large":
		return 5
	case "xlarge":
		return 6
	case "metal":
		return 100
	default:
		return 0
	}
}

// SortInstances returns a copy of instances ordered by key.
// Applications sort ascending, types sort largest first. Ties keep input order.
func SortInstances(instances []Instance, key SortKey) []Instance {
	sorted := make([]Instance, len(instances))
	copy(sorted, instances)

	switch key {
	case SortByApplication:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Application < sorted[j].Application
		})
	case SortByType:
		sort.SliceStable(sorted, func(i, j int) bool {
			return TypeRank(sorted[i].Type) > TypeRank(sorted[j].Type)
		})
	}

	return sorted
}

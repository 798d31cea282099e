package domain

import "fmt"

// Mode is the environment tier an instance belongs to
type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
)

// Modes lists the modes in packing order
var Modes = []Mode{ModeDev, ModeProd}

// ParseMode validates a raw mode string
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDev, ModeProd:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("invalid mode %q (expected dev or prod)", s)
	}
}

// Acquisition tells whether an instance runs on reserved or on-demand capacity
type Acquisition string

const (
	AcquisitionReserved Acquisition = "reserved"
	AcquisitionOnDemand Acquisition = "on-demand"
)

// OnDemandMarker is the expiry value that marks an on-demand instance
const OnDemandMarker = "OD"

// NotApplicable fills replica and load-balancing columns of unpaired instances
const NotApplicable = "NA"

// ReplicaRole is the side an instance plays in a database replica pair
type ReplicaRole string

const (
	ReplicaMajor ReplicaRole = "major"
	ReplicaMinor ReplicaRole = "minor"
	ReplicaNone  ReplicaRole = NotApplicable
)

// GroupSide is the cohort an instance belongs to in a load-balancing group
type GroupSide string

const (
	SideA    GroupSide = "A"
	SideB    GroupSide = "B"
	SideNone GroupSide = NotApplicable
)

// SortKey orders on-demand instances before packing
type SortKey string

const (
	SortNone          SortKey = ""
	SortByApplication SortKey = "app"
	SortByType        SortKey = "type"
)

// ParseSortKey validates a raw sort key
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case SortNone, SortByApplication, SortByType:
		return SortKey(s), nil
	default:
		return "", fmt.Errorf("invalid sort key %q (expected app or type)", s)
	}
}

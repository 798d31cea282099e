package domain

import "fmt"

// DatabaseReplica links a primary (major) and a secondary (minor) instance.
// The major must be upgraded strictly after the minor.
type DatabaseReplica struct {
	ID              string `json:"id" yaml:"id"`
	MajorInstanceID string `json:"majorInstanceId" yaml:"majorInstanceId"`
	MinorInstanceID string `json:"minorInstanceId" yaml:"minorInstanceId"`
}

// Validate rejects pairs the reconciler cannot adjudicate
func (r DatabaseReplica) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("database replica id is required")
	}
	if r.MajorInstanceID == "" || r.MinorInstanceID == "" {
		return fmt.Errorf("database replica %s: both major and minor instance ids are required", r.ID)
	}
	if r.MajorInstanceID == r.MinorInstanceID {
		return fmt.Errorf("database replica %s: major and minor are the same instance %s", r.ID, r.MajorInstanceID)
	}
	return nil
}

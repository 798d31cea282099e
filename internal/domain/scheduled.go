package domain

import "time"

// Scheduled is one row of the final schedule
type Scheduled struct {
	Instance          `yaml:",inline"`
	ScheduleDate      time.Time   `json:"scheduleDate" yaml:"scheduleDate"`
	DatabaseReplicaID string      `json:"databaseReplicaId" yaml:"databaseReplicaId"`
	DatabaseReplica   ReplicaRole `json:"databaseReplica" yaml:"databaseReplica"`
	LoadBalancingID   string      `json:"loadBalancingId" yaml:"loadBalancingId"`
	LoadBalancing     GroupSide   `json:"loadBalancing" yaml:"loadBalancing"`
}

// ScheduledHeader names the columns returned by Scheduled.Fields
var ScheduledHeader = []string{
	"instanceId", "mode", "zone", "type", "application", "reserveExpiryDate",
	"scheduleDate", "databaseReplicaId", "databaseReplica", "loadBalancingId", "loadBalancing",
}

// Fields flattens the record in ScheduledHeader order
func (s Scheduled) Fields() []string {
	return []string{
		s.ID,
		string(s.Mode),
		s.Zone,
		s.Type,
		s.Application,
		s.ReserveExpiryDate,
		s.ScheduleDate.Format(DateLayout),
		s.DatabaseReplicaID,
		string(s.DatabaseReplica),
		s.LoadBalancingID,
		string(s.LoadBalancing),
	}
}

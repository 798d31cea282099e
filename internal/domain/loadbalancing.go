package domain

import "fmt"

// LoadBalancing is a two-sided traffic-serving group. One side has to finish
// its upgrade window before the other side starts.
type LoadBalancing struct {
	ID     string   `json:"id" yaml:"id"`
	GroupA []string `json:"groupA" yaml:"groupA"`
	GroupB []string `json:"groupB" yaml:"groupB"`
}

// Validate rejects groups whose sides overlap
func (lb LoadBalancing) Validate() error {
	if lb.ID == "" {
		return fmt.Errorf("load balancing id is required")
	}
	sideA := make(map[string]struct{}, len(lb.GroupA))
	for _, id := range lb.GroupA {
		if id == "" {
			return fmt.Errorf("load balancing %s: empty instance id in group A", lb.ID)
		}
		sideA[id] = struct{}{}
	}
	for _, id := range lb.GroupB {
		if id == "" {
			return fmt.Errorf("load balancing %s: empty instance id in group B", lb.ID)
		}
		if _, ok := sideA[id]; ok {
			return fmt.Errorf("load balancing %s: instance %s is on both sides", lb.ID, id)
		}
	}
	return nil
}

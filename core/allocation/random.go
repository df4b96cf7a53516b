package allocation

// RandomTarget admits the vehicle into its declared target cluster on a
// unit drawn uniformly among those free for the whole stay.
type RandomTarget struct{}

// Allocate implements Policy.
func (RandomTarget) Allocate(r Request) (Decision, bool) {
	if r.Vehicle.ClusterTarget == "" {
		return Decision{}, false
	}
	c, err := r.System.Cluster(r.Vehicle.ClusterTarget)
	if err != nil {
		return Decision{}, false
	}
	free := c.QueryAvailability(r.Start, r.End, r.Step)
	if len(free) == 0 {
		return Decision{}, false
	}
	i := 0
	if len(free) > 1 && r.Rand != nil {
		i = r.Rand.Intn(len(free))
	}
	return Decision{ClusterID: c.ID, UnitID: free[i].ID}, true
}

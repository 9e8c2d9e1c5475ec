package optimizer

import (
	"sort"

	"github.com/clustermind/k8s-resource-advisor/pkg/models"
)

// unitState is one workload unit flattened out of the snapshot.
type unitState struct {
	name           string
	namespace      string
	workload       string  // grouping key from the naming heuristic
	cpuUsage       float64 // millicores
	memoryUsage    float64 // bytes
	cpuRequest     float64 // millicores
	memoryRequest  float64 // bytes
	activity       models.ActivityState
	idleConfidence float64
	notes          []string
}

// clusterState is the normalized view the generators and scorers read.
type clusterState struct {
	clusterID     string
	units         []unitState // sorted by name
	businessHours bool
	activityRatio float64
	efficiency    float64
	idleRatio     float64
	hasHistory    bool
}

// flattenState normalizes a snapshot into the generators' view. Units come
// out sorted by name so candidate order is reproducible run to run. Business
// context from the snapshot wins over anything computed here; the wall clock
// only decides business hours when the collector did not say.
func (e *Engine) flattenState(snapshot *models.ClusterSnapshot, analysis *models.Analysis) *clusterState {
	state := &clusterState{
		businessHours: e.analysis.BusinessHour(e.now().Hour()),
	}
	if analysis != nil && len(analysis.Stats) > 0 {
		state.hasHistory = true
	}
	if snapshot == nil {
		return state
	}
	state.clusterID = snapshot.ClusterID

	names := make([]string, 0, len(snapshot.Pods))
	for name := range snapshot.Pods {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		active        int
		idle          int
		efficiencySum float64
		efficiencyN   int
	)
	for _, name := range names {
		pod := snapshot.Pods[name]
		unit := unitState{
			name:          name,
			namespace:     pod.Namespace,
			workload:      extractWorkloadName(name),
			cpuUsage:      value(pod.CPUUsage),
			memoryUsage:   value(pod.MemoryUsage),
			cpuRequest:    value(pod.CPURequest),
			memoryRequest: value(pod.MemoryRequest),
			activity:      models.ActivityUnknown,
		}
		if pod.Activity != nil {
			unit.activity = pod.Activity.State
			unit.idleConfidence = pod.Activity.IdleConfidence
			unit.notes = pod.Activity.Notes
		}
		state.units = append(state.units, unit)

		switch unit.activity {
		case models.ActivityActive:
			active++
		case models.ActivityIdle:
			idle++
		}
		if unit.cpuRequest > 0 {
			efficiencySum += clamp01(unit.cpuUsage / unit.cpuRequest)
			efficiencyN++
		}
		if unit.memoryRequest > 0 {
			efficiencySum += clamp01(unit.memoryUsage / unit.memoryRequest)
			efficiencyN++
		}
	}

	if n := len(state.units); n > 0 {
		state.activityRatio = float64(active) / float64(n)
		state.idleRatio = float64(idle) / float64(n)
	}
	if efficiencyN > 0 {
		state.efficiency = efficiencySum / float64(efficiencyN)
	}

	if snapshot.Business != nil {
		state.businessHours = snapshot.Business.BusinessHours
		state.activityRatio = clamp01(snapshot.Business.ActivityRatio)
		state.efficiency = clamp01(snapshot.Business.EfficiencyScore)
	}

	return state
}

// unit returns the named unit.
func (s *clusterState) unit(name string) (unitState, bool) {
	for _, u := range s.units {
		if u.name == name {
			return u, true
		}
	}
	return unitState{}, false
}

// workloadFootprint returns the mean per-replica footprint of a workload's
// units.
func (s *clusterState) workloadFootprint(namespace, workload string) (cpu, memory float64) {
	n := 0
	for _, u := range s.units {
		if u.namespace == namespace && u.workload == workload {
			cpu += resourceFootprint(u.cpuRequest, u.cpuUsage)
			memory += resourceFootprint(u.memoryRequest, u.memoryUsage)
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return cpu / float64(n), memory / float64(n)
}

// resourceFootprint prefers the provisioned request over live usage; requests
// are what the scheduler reserves and what the bill follows.
func resourceFootprint(request, usage float64) float64 {
	if request > 0 {
		return request
	}
	return usage
}

func value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func extractWorkloadName(podName string) string {
	// For StatefulSets: "postgres-test-0" -> "postgres-test"
	// For Deployments: "api-server-7d9f8b-xyz" -> "api-server"

	// Try StatefulSet pattern first (ends with -<number>)
	if len(podName) > 2 && podName[len(podName)-2] == '-' {
		// Check if last char is a digit
		lastChar := podName[len(podName)-1]
		if lastChar >= '0' && lastChar <= '9' {
			return podName[:len(podName)-2]
		}
	}

	// Try Deployment pattern (remove last two dash-separated segments)
	dashCount := 0
	for i := len(podName) - 1; i >= 0; i-- {
		if podName[i] == '-' {
			dashCount++
			if dashCount == 2 {
				return podName[:i]
			}
		}
	}

	return podName
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

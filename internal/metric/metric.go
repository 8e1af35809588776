// Package metric lists the operational metrics the gateway can query and how
// each one is expressed as an NRQL query and read back from the result row.
package metric

import "fmt"

type Kind int

const (
	CPUUsedCore Kind = iota + 1
	CPURequestedCore
	TotalPods
	ResponseTimeAverage
	Throughput
	MemoryHeapUsed
	ThreadCount
)

// Field names the numeric column of a result row a Kind is read from.
type Field int

const (
	FieldAverage Field = iota + 1
	FieldResult
	FieldUniqueCount
)

func (f Field) String() string {
	switch f {
	case FieldAverage:
		return "average"
	case FieldResult:
		return "result"
	case FieldUniqueCount:
		return "uniqueCount"
	default:
		return "unknown"
	}
}

type entry struct {
	name     string
	field    Field
	template string
}

// Templates take application name, start time and end time, in that order.
var catalog = map[Kind]entry{
	CPUUsedCore: {
		name:     "cpu_used_core",
		field:    FieldAverage,
		template: "from Metric SELECT average(k8s.container.cpuUsedCores) where tags.app = '%s' SINCE %s UNTIL %s",
	},
	CPURequestedCore: {
		name:     "cpu_requested_core",
		field:    FieldAverage,
		template: "from Metric SELECT average(k8s.container.cpuRequestedCores) where tags.app = '%s' SINCE %s UNTIL %s",
	},
	TotalPods: {
		name:     "total_pods",
		field:    FieldUniqueCount,
		template: "FROM K8sContainerSample SELECT uniqueCount(podName) WHERE label.app = '%s' SINCE %s UNTIL %s",
	},
	ResponseTimeAverage: {
		name:     "response_time_average",
		field:    FieldResult,
		template: "SELECT average(duration) * 1000 FROM Transaction WHERE appName = '%s' AND transactionType = 'Web' SINCE %s UNTIL %s",
	},
	Throughput: {
		name:     "throughput",
		field:    FieldResult,
		template: "SELECT rate(count(apm.service.transaction.duration), 1 minute) FROM Metric, Transaction WHERE appName = '%s' AND transactionType = 'Web' SINCE %s UNTIL %s",
	},
	MemoryHeapUsed: {
		name:     "memory_heap_used",
		field:    FieldAverage,
		template: "SELECT average(newrelic.timeslice.value) FROM Metric WHERE appName = '%s' AND metricTimesliceName = 'Memory/Heap/Used' SINCE %s UNTIL %s",
	},
	ThreadCount: {
		name:     "thread_count",
		field:    FieldAverage,
		template: "SELECT average(newrelic.timeslice.value) FROM Metric WHERE appName = '%s' AND metricTimesliceName = 'JmxBuiltIn/Threads/Thread Count' SINCE %s UNTIL %s",
	},
}

// Kinds returns every supported metric in declaration order.
func Kinds() []Kind {
	return []Kind{
		CPUUsedCore,
		CPURequestedCore,
		TotalPods,
		ResponseTimeAverage,
		Throughput,
		MemoryHeapUsed,
		ThreadCount,
	}
}

func (k Kind) Valid() bool {
	_, ok := catalog[k]
	return ok
}

func (k Kind) String() string {
	if e, ok := catalog[k]; ok {
		return e.name
	}
	return "unknown"
}

// Field reports which result column holds the value for k.
func (k Kind) Field() Field {
	return catalog[k].field
}

// Query renders the NRQL for k. Inputs are interpolated verbatim.
func (k Kind) Query(applicationName, startTime, endTime string) string {
	e, ok := catalog[k]
	if !ok {
		return ""
	}
	return fmt.Sprintf(e.template, applicationName, startTime, endTime)
}

package metrics

import "strings"

const namespace = "docchat"

// MetricName prefixes name with the application namespace unless already prefixed.
func MetricName(name string) string {
	if strings.HasPrefix(name, namespace+"_") {
		return name
	}
	return namespace + "_" + name
}

// MetricNameWithSubsystem builds namespace_subsystem_name, trimming stray underscores.
func MetricNameWithSubsystem(subsystem, name string) string {
	if strings.HasPrefix(name, namespace+"_") {
		return name
	}
	subsystem = strings.Trim(subsystem, "_")
	switch {
	case subsystem == "":
		return MetricName(name)
	case name == "":
		return namespace + "_" + subsystem
	default:
		return namespace + "_" + subsystem + "_" + name
	}
}

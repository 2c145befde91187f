package stage

// Health reports whether a stage can currently do its work, with a short
// reason when it cannot.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy returns a passing Health record for the named stage.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy returns a failing Health record carrying the reason.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

package domain

// ProcessSpec describes a subprocess invocation.
type ProcessSpec struct {
	Name string
	Args []string
	Dir  string
}

// RunResult is the immutable snapshot produced by the process runner once the
// subprocess exits. Both drain goroutines have completed before it is built.
type RunResult struct {
	Backend    Backend
	ExitCode   int
	Stdout     string
	Stderr     string
	DurationMS int64
}

// Combined returns stdout followed by stderr for pattern matching and raw
// log persistence.
func (r RunResult) Combined() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

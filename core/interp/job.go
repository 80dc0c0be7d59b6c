package interp

import "fmt"

// JobState is one point in a job's lifecycle. Spawned is reachable
// only from TypeChecked: a pipeline that never type-checked can never
// reach the states that have side effects.
type JobState int

const (
	JobCreated JobState = iota
	JobTypeChecked
	JobSpawned
	JobRunning
	JobCompleted
	JobFailed
	JobCancelled
)

func (s JobState) String() string {
	switch s {
	case JobCreated:
		return "created"
	case JobTypeChecked:
		return "type-checked"
	case JobSpawned:
		return "spawned"
	case JobRunning:
		return "running"
	case JobCompleted:
		return "completed"
	case JobFailed:
		return "failed"
	case JobCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the state ends the job.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

var jobTransitions = map[JobState][]JobState{
	JobCreated:     {JobTypeChecked},
	JobTypeChecked: {JobSpawned},
	JobSpawned:     {JobRunning},
	JobRunning:     {JobCompleted, JobFailed, JobCancelled},
}

// Job is one pipeline's runtime instance: its stages, their terminal
// errors, and the overall state.
type Job struct {
	state JobState

	// StageErrs holds the per-stage failure causes, indexed by stage;
	// nil entries are successful stages.
	StageErrs []error
}

// NewJob returns a job in the Created state with room for n stages.
func NewJob(n int) *Job {
	return &Job{state: JobCreated, StageErrs: make([]error, n)}
}

// State returns the current lifecycle state.
func (j *Job) State() JobState { return j.state }

// Transition advances the job, rejecting any step the state machine
// does not allow.
func (j *Job) Transition(to JobState) error {
	for _, allowed := range jobTransitions[j.state] {
		if allowed == to {
			j.state = to
			return nil
		}
	}
	return fmt.Errorf("invalid job transition %s -> %s", j.state, to)
}

// FirstFailed returns the index of the first failing stage, or -1.
func (j *Job) FirstFailed() (int, error) {
	for i, err := range j.StageErrs {
		if err != nil {
			return i, err
		}
	}
	return -1, nil
}

package buildpipeline

import "time"

// Stage is a step of a contract build.
type Stage string

const (
	// StageLower is the translation of a contract into LIR.
	StageLower Stage = "lower"
	// StageVerify checks the module before optimization.
	StageVerify Stage = "verify"
	// StageOptimize runs the optimizer.
	StageOptimize Stage = "optimize"
	// StageReverify checks the module after optimization.
	StageReverify Stage = "reverify"
	// StageCodegen emits the object.
	StageCodegen Stage = "codegen"
	// StageLink links the object into a blob.
	StageLink Stage = "link"
	// StageBuild covers a whole build.
	StageBuild Stage = "build"
)

// Status is where a contract is within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	// StatusRetry: the first attempt failed and the build restarts at size
	// settings.
	StatusRetry Status = "retry"
	StatusDone  Status = "done"
	StatusError Status = "error"
)

// Event reports progress for a contract (or for the whole project when
// Contract is empty).
type Event struct {
	Contract string
	Stage    Stage
	Status   Status
	Attempt  int
	Err      error
	Elapsed  time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// State is the position of a module in the build state machine.
type State uint8

const (
	StateUnverified State = iota
	StateOptimized
	StateVerified
	StateCodeEmitted
	StateLinked
	StateBuilt
)

var stateNames = [...]string{
	StateUnverified:  "unverified",
	StateOptimized:   "optimized",
	StateVerified:    "verified",
	StateCodeEmitted: "code-emitted",
	StateLinked:      "linked",
	StateBuilt:       "built",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "state?"
}

// Timings holds stage durations. The zero value is empty.
type Timings struct {
	stages map[Stage]time.Duration
}

// Set replaces the duration of stage.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	t.init()
	t.stages[stage] = dur
}

// Add accumulates; a retried stage reports the time of both attempts.
func (t *Timings) Add(stage Stage, dur time.Duration) {
	t.init()
	t.stages[stage] += dur
}

func (t *Timings) init() {
	if t.stages == nil {
		t.stages = map[Stage]time.Duration{}
	}
}

func (t Timings) Has(stage Stage) bool {
	_, ok := t.stages[stage]
	return ok
}

func (t Timings) Duration(stage Stage) time.Duration { return t.stages[stage] }

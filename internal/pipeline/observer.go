package pipeline

// Run identifies one execution of a pipeline
type Run struct {
	ID    string
	Steps []string
}

// StepInfo describes the step an event refers to. Index is zero-based.
type StepInfo struct {
	Index        int
	Total        int
	Name         string
	StartMessage string
	DoneMessage  string
}

// Observer is notified at each lifecycle point of a run. Calls happen on the
// orchestrator's goroutine, one at a time.
type Observer interface {
	RunStarted(run Run)
	StepStarted(step StepInfo)
	StepSucceeded(step StepInfo, output string)
	StepFailed(step StepInfo, err error)
	RunCompleted(run Run)
	RunAborted(run Run, err error)
}

// NopObserver ignores every event. Embed it to implement only some methods.
type NopObserver struct{}

func (NopObserver) RunStarted(Run) {}
func (NopObserver) StepStarted(StepInfo) {}
func (NopObserver) StepSucceeded(StepInfo, string) {}
func (NopObserver) StepFailed(StepInfo, error) {}
func (NopObserver) RunCompleted(Run) {}
func (NopObserver) RunAborted(Run, error) {}

// Observers fans every event out to each member in order
type Observers []Observer

func (o Observers) RunStarted(run Run) {
	for _, obs := range o {
		obs.RunStarted(run)
	}
}

func (o Observers) StepStarted(step StepInfo) {
	for _, obs := range o {
		obs.StepStarted(step)
	}
}

func (o Observers) StepSucceeded(step StepInfo, output string) {
	for _, obs := range o {
		obs.StepSucceeded(step, output)
	}
}

func (o Observers) StepFailed(step StepInfo, err error) {
	for _, obs := range o {
		obs.StepFailed(step, err)
	}
}

func (o Observers) RunCompleted(run Run) {
	for _, obs := range o {
		obs.RunCompleted(run)
	}
}

func (o Observers) RunAborted(run Run, err error) {
	for _, obs := range o {
		obs.RunAborted(run, err)
	}
}

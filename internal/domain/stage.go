package domain

// Stage names the orchestrator state in which a run failed. Every failure is
// converted into exactly one user-visible notification scoped to its stage.
type Stage string

const (
	StageSearching      Stage = "searching"
	StageResolving      Stage = "resolving"
	StageDownloading    Stage = "downloading"
	StagePostProcessing Stage = "post-processing"
	StageDelivering     Stage = "delivering"
)

// RunStatus is the terminal state of one delivery run, as recorded in the
// delivery history.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

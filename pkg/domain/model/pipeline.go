package model

// Stage names a pipeline step
type Stage string

const (
	StageWorkspace Stage = "workspace"
	StageCI        Stage = "ci"
	StageBuild     Stage = "build"
	StagePush      Stage = "push"
	StageDeploy    Stage = "deploy"
	StageNotify    Stage = "notify"
	StageAnnounce  Stage = "announce"
)

// PipelineResult records how far a pipeline run went
type PipelineResult struct {
	Repository  string
	Commit      string
	Variant     BuildVariant
	LocalImage  *Image
	RemoteImage *Image
	Committed   bool
	Notified    bool

	// SkippedAt is the first stage that did not run, with the reason
	SkippedAt  Stage
	SkipReason string
}

// Skip records that the pipeline stopped before stage
func (r *PipelineResult) Skip(stage Stage, reason string) {
	r.SkippedAt = stage
	r.SkipReason = reason
}

package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"testing"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
	"github.com/m-mizutani/pushdeploy/pkg/domain/types"
	"github.com/m-mizutani/pushdeploy/pkg/usecase"
)

const (
	oldCommit = "1111111111111111111111111111111111111111"
	newCommit = "2222222222222222222222222222222222222222"
)

// hasTag reports whether err or anything it wraps carries tag
func hasTag(err error, tag fmt.Stringer) bool {
	return slices.Contains(goerr.Tags(err), tag.String())
}

// stageRecorder collects the order in which pipeline stages were called
type stageRecorder struct {
	calls []string
}

func (r *stageRecorder) add(name string) {
	r.calls = append(r.calls, name)
}

type mockWorkspace struct {
	rec        *stageRecorder
	prepareErr error
	releaseErr error
}

func (m *mockWorkspace) Prepare(ctx context.Context, commit string) (*model.Workspace, error) {
	m.rec.add("prepare")
	if m.prepareErr != nil {
		return nil, m.prepareErr
	}
	return &model.Workspace{Dir: "/tmp/ws", Commit: commit}, nil
}

func (m *mockWorkspace) Release(ctx context.Context, ws *model.Workspace) error {
	m.rec.add("release")
	return m.releaseErr
}

type mockCI struct {
	rec *stageRecorder
	err error
}

func (m *mockCI) Run(ctx context.Context, dir string) error {
	m.rec.add("ci")
	return m.err
}

type mockDetector struct {
	rec     *stageRecorder
	variant model.BuildVariant
}

func (m *mockDetector) Detect(ctx context.Context, dir string) (model.BuildVariant, error) {
	m.rec.add("detect")
	return m.variant, nil
}

type mockBuilder struct {
	rec *stageRecorder
	err error
}

func (m *mockBuilder) Build(ctx context.Context, variant model.BuildVariant, dir, repository, tag string) (*model.Image, error) {
	m.rec.add("build")
	if m.err != nil {
		return nil, m.err
	}
	img := model.NewLocalImage(repository, tag)
	return &img, nil
}

type mockPusher struct {
	rec *stageRecorder
	err error
}

func (m *mockPusher) Push(ctx context.Context, registry string, local model.Image) (model.Image, error) {
	m.rec.add("push")
	if m.err != nil {
		return model.Image{}, m.err
	}
	return local.WithRegistry(registry), nil
}

type mockGitOps struct {
	rec       *stageRecorder
	committed bool
	err       error
	remote    model.Image
}

func (m *mockGitOps) Deploy(ctx context.Context, remote model.Image, gitopsRepo, repository string) (*model.Deployment, error) {
	m.rec.add("deploy")
	m.remote = remote
	if m.err != nil {
		return nil, m.err
	}
	return &model.Deployment{Repository: repository, Tag: remote.Tag, Committed: m.committed}, nil
}

type mockNotifier struct {
	rec        *stageRecorder
	repository string
	endpoint   string
}

func (m *mockNotifier) Notify(ctx context.Context, endpoint, repository string) error {
	m.rec.add("notify")
	m.endpoint = endpoint
	m.repository = repository
	return nil
}

type mockAnnouncer struct {
	rec *stageRecorder
	err error
}

func (m *mockAnnouncer) Announce(ctx context.Context, result *model.PipelineResult) error {
	m.rec.add("announce")
	return m.err
}

type fixture struct {
	rec       *stageRecorder
	workspace *mockWorkspace
	ci        *mockCI
	detector  *mockDetector
	builder   *mockBuilder
	pusher    *mockPusher
	gitops    *mockGitOps
	notifier  *mockNotifier
	announcer *mockAnnouncer
}

func newFixture() *fixture {
	rec := &stageRecorder{}
	return &fixture{
		rec:       rec,
		workspace: &mockWorkspace{rec: rec},
		ci:        &mockCI{rec: rec},
		detector:  &mockDetector{rec: rec, variant: model.BuildVariantDockerfile},
		builder:   &mockBuilder{rec: rec},
		pusher:    &mockPusher{rec: rec},
		gitops:    &mockGitOps{rec: rec, committed: true},
		notifier:  &mockNotifier{rec: rec},
		announcer: &mockAnnouncer{rec: rec},
	}
}

func (f *fixture) stages() usecase.Stages {
	return usecase.Stages{
		Workspace: f.workspace,
		CI:        f.ci,
		Detector:  f.detector,
		Builder:   f.builder,
		Pusher:    f.pusher,
		GitOps:    f.gitops,
		Notifier:  f.notifier,
		Announcer: f.announcer,
	}
}

func fullConfig() model.DeployConfig {
	return model.DeployConfig{
		Repository:    "blog",
		RepoDir:       "/srv/repos/blog.git",
		RegistryHost:  "registry.local:5000",
		PushMethod:    model.PushMethodDocker,
		GitOpsRepo:    "gitops",
		DefaultBranch: model.DefaultBranch,
		SyncEndpoint:  "http://argocd/api/webhook",
		SlackWebhook:  "https://hooks.slack.com/services/x",
		CIPolicy:      model.CIPolicyBestEffort,
	}
}

func pushEvent(t *testing.T, newObject string) *model.PushEvent {
	t.Helper()
	event, err := model.NewPushEvent("refs/heads/master", oldCommit, newObject)
	gt.NoError(t, err)
	return event
}

func TestPipeline_FullRun(t *testing.T) {
	f := newFixture()
	result, err := usecase.NewPipeline(fullConfig(), f.stages()).Run(context.Background(), pushEvent(t, newCommit))
	gt.NoError(t, err)

	gt.Equal(t, f.rec.calls, []string{
		"prepare", "ci", "detect", "build", "push", "deploy", "notify", "release", "announce",
	})
	gt.Equal(t, f.gitops.remote, model.Image{Registry: "registry.local:5000", Repository: "blog", Tag: newCommit})
	gt.Equal(t, f.notifier.repository, "blog")
	gt.Equal(t, f.notifier.endpoint, "http://argocd/api/webhook")

	gt.Equal(t, result.Variant, model.BuildVariantDockerfile)
	gt.Equal(t, *result.LocalImage, model.NewLocalImage("blog", newCommit))
	gt.Equal(t, result.RemoteImage.Reference(), "registry.local:5000/blog:"+newCommit)
	gt.True(t, result.Committed)
	gt.True(t, result.Notified)
	gt.Equal(t, result.SkippedAt, model.Stage(""))
}

func TestPipeline_LogsPushedRef(t *testing.T) {
	var logs bytes.Buffer
	ctx := ctxlog.With(context.Background(), slog.New(slog.NewJSONHandler(&logs, nil)))

	event, err := model.NewPushEvent("refs/heads/feature", model.ZeroObject, newCommit)
	gt.NoError(t, err)

	f := newFixture()
	_, err = usecase.NewPipeline(fullConfig(), f.stages()).Run(ctx, event)
	gt.NoError(t, err)
	gt.String(t, logs.String()).Contains(`"msg":"New ref pushed"`)
	gt.String(t, logs.String()).Contains(`"branch":"feature"`)
}

func TestPipeline_MissingConfigSkipsRemainder(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(cfg *model.DeployConfig)
		calls  []string
		stage  model.Stage
	}{
		{
			name:   "no registry",
			modify: func(cfg *model.DeployConfig) { cfg.RegistryHost = "" },
			calls:  []string{"prepare", "ci", "detect", "build", "release", "announce"},
			stage:  model.StagePush,
		},
		{
			name:   "no gitops repository",
			modify: func(cfg *model.DeployConfig) { cfg.GitOpsRepo = "" },
			calls:  []string{"prepare", "ci", "detect", "build", "push", "release", "announce"},
			stage:  model.StageDeploy,
		},
		{
			name: "registry only",
			modify: func(cfg *model.DeployConfig) {
				cfg.GitOpsRepo = ""
				cfg.SyncEndpoint = ""
				cfg.SlackWebhook = ""
			},
			calls: []string{"prepare", "ci", "detect", "build", "push", "release"},
			stage: model.StageDeploy,
		},
		{
			name:   "no sync endpoint",
			modify: func(cfg *model.DeployConfig) { cfg.SyncEndpoint = "" },
			calls:  []string{"prepare", "ci", "detect", "build", "push", "deploy", "release", "announce"},
			stage:  model.StageNotify,
		},
		{
			name:   "no slack webhook",
			modify: func(cfg *model.DeployConfig) { cfg.SlackWebhook = "" },
			calls:  []string{"prepare", "ci", "detect", "build", "push", "deploy", "notify", "release"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := fullConfig()
			tc.modify(&cfg)
			f := newFixture()

			result, err := usecase.NewPipeline(cfg, f.stages()).Run(context.Background(), pushEvent(t, newCommit))
			gt.NoError(t, err)
			gt.Equal(t, f.rec.calls, tc.calls)
			gt.Equal(t, result.SkippedAt, tc.stage)
		})
	}
}

func TestPipeline_Undetected(t *testing.T) {
	f := newFixture()
	f.detector.variant = model.BuildVariantUndetected

	result, err := usecase.NewPipeline(fullConfig(), f.stages()).Run(context.Background(), pushEvent(t, newCommit))
	gt.NoError(t, err)
	gt.Equal(t, f.rec.calls, []string{"prepare", "ci", "detect", "release"})
	gt.Equal(t, result.SkippedAt, model.StageBuild)
	gt.V(t, result.LocalImage).Nil()
}

func TestPipeline_DeletedRef(t *testing.T) {
	f := newFixture()

	result, err := usecase.NewPipeline(fullConfig(), f.stages()).Run(context.Background(), pushEvent(t, model.ZeroObject))
	gt.NoError(t, err)
	gt.Equal(t, len(f.rec.calls), 0)
	gt.Equal(t, result.SkippedAt, model.StageWorkspace)
}

func TestPipeline_HardErrorAborts(t *testing.T) {
	pushErr := goerr.New("denied", goerr.T(types.ErrTagPush))
	ciErr := goerr.New("checks failed", goerr.T(types.ErrTagExternalTool))
	conflictErr := goerr.New("busy", goerr.T(types.ErrTagWorktreeConflict))

	testCases := []struct {
		name   string
		inject func(f *fixture)
		calls  []string
		tag    fmt.Stringer
	}{
		{
			name:   "required CI fails",
			inject: func(f *fixture) { f.ci.err = ciErr },
			calls:  []string{"prepare", "ci", "release"},
			tag:    types.ErrTagExternalTool,
		},
		{
			name:   "push fails",
			inject: func(f *fixture) { f.pusher.err = pushErr },
			calls:  []string{"prepare", "ci", "detect", "build", "push", "release"},
			tag:    types.ErrTagPush,
		},
		{
			name:   "gitops busy",
			inject: func(f *fixture) { f.gitops.err = conflictErr },
			calls:  []string{"prepare", "ci", "detect", "build", "push", "deploy", "release"},
			tag:    types.ErrTagWorktreeConflict,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			tc.inject(f)

			_, err := usecase.NewPipeline(fullConfig(), f.stages()).Run(context.Background(), pushEvent(t, newCommit))
			gt.Error(t, err)
			gt.True(t, hasTag(err, tc.tag))
			gt.Equal(t, f.rec.calls, tc.calls)
		})
	}
}

func TestPipeline_WorkspaceFailure(t *testing.T) {
	f := newFixture()
	f.workspace.prepareErr = goerr.New("no such commit", goerr.T(types.ErrTagWorkspace))

	_, err := usecase.NewPipeline(fullConfig(), f.stages()).Run(context.Background(), pushEvent(t, newCommit))
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, types.ErrTagWorkspace))
	gt.Equal(t, f.rec.calls, []string{"prepare"})
}

func TestPipeline_ReleaseFailure(t *testing.T) {
	t.Run("surfaces when the run succeeded", func(t *testing.T) {
		f := newFixture()
		f.workspace.releaseErr = goerr.New("busy", goerr.T(types.ErrTagWorkspace))

		_, err := usecase.NewPipeline(fullConfig(), f.stages()).Run(context.Background(), pushEvent(t, newCommit))
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, types.ErrTagWorkspace))
	})

	t.Run("does not mask the stage error", func(t *testing.T) {
		f := newFixture()
		f.workspace.releaseErr = goerr.New("busy", goerr.T(types.ErrTagWorkspace))
		f.pusher.err = goerr.New("denied", goerr.T(types.ErrTagPush))

		_, err := usecase.NewPipeline(fullConfig(), f.stages()).Run(context.Background(), pushEvent(t, newCommit))
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, types.ErrTagPush))
	})
}

func TestPipeline_AnnounceFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.announcer.err = errors.New("slack down")

	result, err := usecase.NewPipeline(fullConfig(), f.stages()).Run(context.Background(), pushEvent(t, newCommit))
	gt.NoError(t, err)
	gt.True(t, result.Notified)
}

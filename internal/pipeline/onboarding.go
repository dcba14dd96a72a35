package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sevigo/autoci/internal/config"
	"github.com/sevigo/autoci/internal/core"
	"github.com/sevigo/autoci/internal/gitutil"
	"github.com/sevigo/autoci/internal/llm"
	"github.com/sevigo/autoci/internal/scanner"
	"github.com/sevigo/autoci/internal/storage"
)

// Onboarding stage identifiers, in execution order.
const (
	StageScan     = "scan"
	StageClassify = "classify"
	StageGenerate = "generate"
	StageSecurity = "security"
)

// OnboardingStages returns a fresh, all-pending onboarding plan.
func OnboardingStages() []core.PipelineStage {
	return []core.PipelineStage{
		{ID: StageScan, Name: "Repository Scan", Status: core.StagePending},
		{ID: StageClassify, Name: "Stack Detection", Status: core.StagePending},
		{ID: StageGenerate, Name: "Config Generation", Status: core.StagePending},
		{ID: StageSecurity, Name: "Security Gate", Status: core.StagePending},
	}
}

// Onboarder executes scan, classify, generate and the security gate for a repository.
type Onboarder struct {
	store    storage.Store
	analyzer llm.Analyzer
	scanner  *scanner.Scanner
	cloner   gitutil.Cloner
	tokens   TokenSource
	opts     Options
	events   eventLog
	logger   *slog.Logger
}

// NewOnboarder creates an Onboarder. tokens may be nil.
func NewOnboarder(
	store storage.Store,
	analyzer llm.Analyzer,
	sc *scanner.Scanner,
	cloner gitutil.Cloner,
	tokens TokenSource,
	opts Options,
	logger *slog.Logger,
) *Onboarder {
	return &Onboarder{
		store:    store,
		analyzer: analyzer,
		scanner:  sc,
		cloner:   cloner,
		tokens:   tokens,
		opts:     opts,
		events:   eventLog{store: store, logger: logger},
		logger:   logger,
	}
}

// Begin claims the repository for onboarding: it moves it to scanning and
// resets the stage plan. A repository that is already busy yields ErrBusy.
func (o *Onboarder) Begin(ctx context.Context, repoID string) error {
	_, err := o.store.UpdateRepository(ctx, repoID, func(r *core.Repository) error {
		if r.Status.IsBusy() {
			return fmt.Errorf("repository %s is %s: %w", r.FullName, r.Status, ErrBusy)
		}
		r.Status = core.StatusScanning
		r.OnboardingStages = OnboardingStages()
		return nil
	})
	return err
}

// Run claims the repository and executes the onboarding sequence.
func (o *Onboarder) Run(ctx context.Context, repoID string) error {
	if err := o.Begin(ctx, repoID); err != nil {
		return err
	}
	return o.Execute(ctx, repoID)
}

// Abort marks a claimed repository failed, for example when its job could not be queued.
func (o *Onboarder) Abort(ctx context.Context, repoID string, cause error) {
	o.fail(ctx, repoID, cause)
}

// Execute runs the onboarding sequence for a repository claimed by Begin.
// Any failure moves the repository to failed and is written to its console.
// A panic inside the sequence is converted to an error so the repository
// never stays busy.
func (o *Onboarder) Execute(ctx context.Context, repoID string) (err error) {
	repo, err := o.store.GetRepository(ctx, repoID)
	if err != nil {
		return err
	}
	o.logger.Info("onboarding started", "repo", repo.FullName)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("onboarding panicked: %v", r)
			o.logger.Error("onboarding panicked", "repo", repo.FullName, "panic", r)
			o.fail(context.WithoutCancel(ctx), repoID, err)
		}
	}()

	if err := o.execute(ctx, repo); err != nil {
		o.logger.Error("onboarding failed", "repo", repo.FullName, "error", err)
		o.fail(context.WithoutCancel(ctx), repoID, err)
		return err
	}
	o.logger.Info("onboarding completed", "repo", repo.FullName)
	return nil
}

func (o *Onboarder) execute(ctx context.Context, repo *core.Repository) error {
	id := repo.ID
	o.events.write(ctx, id, "Initializing autonomous scanning engine...")
	if err := sleep(ctx, o.opts.StageDelay); err != nil {
		return err
	}

	var (
		fp       *scanner.Fingerprint
		repoCfg  *core.RepoConfig
		stack    *core.DetectedStack
		configs  *core.Configs
		findings []core.SecurityFinding
	)

	err := o.stage(ctx, id, StageScan, "", func(ctx context.Context) error {
		o.events.write(ctx, id, "Scanning file manifest...")
		var err error
		fp, repoCfg, err = o.fingerprint(ctx, repo)
		if err != nil {
			return err
		}
		o.events.write(ctx, id, fmt.Sprintf("Found %d critical project files.", len(fp.Files)))
		return nil
	})
	if err != nil {
		return err
	}

	err = o.stage(ctx, id, StageClassify, core.StatusClassifying, func(ctx context.Context) error {
		o.events.write(ctx, id, "AI engine analyzing stack fingerprint...")
		var err error
		stack, err = o.analyzer.ClassifyStack(ctx, fp.Files, fp.Readme)
		if err != nil {
			return fmt.Errorf("stack classification failed: %w", err)
		}
		_, err = o.store.UpdateRepository(ctx, id, func(r *core.Repository) error {
			r.Stack = stack
			return nil
		})
		if err != nil {
			return err
		}
		o.events.write(ctx, id, fmt.Sprintf("Identified %s/%s with %.0f%% confidence.", stack.Language, stack.Framework, stack.Confidence))
		return nil
	})
	if err != nil {
		return err
	}

	err = o.stage(ctx, id, StageGenerate, core.StatusGenerating, func(ctx context.Context) error {
		o.events.write(ctx, id, "Architecting production configurations...")
		var err error
		configs, err = o.analyzer.GenerateConfigs(ctx, stack, repoCfg.CustomInstructions)
		if err != nil {
			return fmt.Errorf("config generation failed: %w", err)
		}
		_, err = o.store.UpdateRepository(ctx, id, func(r *core.Repository) error {
			r.Configs = configs
			return nil
		})
		if err != nil {
			return err
		}
		o.events.write(ctx, id, "Dockerfile and CI workflows successfully generated.")
		return nil
	})
	if err != nil {
		return err
	}

	err = o.stage(ctx, id, StageSecurity, "", func(ctx context.Context) error {
		o.events.write(ctx, id, "Executing security gate scan...")
		var err error
		findings, err = o.analyzer.ScanSecurity(ctx, fp.Manifests)
		if err != nil {
			return fmt.Errorf("security scan failed: %w", err)
		}
		o.events.write(ctx, id, fmt.Sprintf("Security scan complete: %d warnings detected.", len(findings)))
		return nil
	})
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = o.store.UpdateRepository(ctx, id, func(r *core.Repository) error {
		r.Status = core.StatusCompleted
		r.SecurityFindings = findings
		r.LastScanned = &now
		r.Metrics.TimeSavedMinutes += o.opts.TimeSavedPerOnboarding
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save onboarding result: %w", err)
	}
	o.events.write(ctx, id, "Onboarding complete. Autonomy active.")
	return nil
}

// stage marks stageID running (moving the repository to status when set),
// runs fn and records the outcome and duration.
func (o *Onboarder) stage(ctx context.Context, repoID, stageID string, status core.RepositoryStatus, fn func(ctx context.Context) error) error {
	_, err := o.store.UpdateRepository(ctx, repoID, func(r *core.Repository) error {
		if status != "" {
			r.Status = status
		}
		setStage(r, stageID, core.StageRunning, "")
		return nil
	})
	if err != nil {
		return err
	}

	start := time.Now()
	runErr := fn(ctx)
	result := core.StageSuccess
	if runErr != nil {
		result = core.StageFailure
	}

	_, err = o.store.UpdateRepository(context.WithoutCancel(ctx), repoID, func(r *core.Repository) error {
		setStage(r, stageID, result, core.FormatDuration(time.Since(start)))
		return nil
	})
	if runErr != nil {
		return runErr
	}
	if err != nil {
		return err
	}
	return sleep(ctx, o.opts.StageDelay)
}

func setStage(r *core.Repository, stageID string, status core.StageStatus, duration string) {
	if len(r.OnboardingStages) == 0 {
		r.OnboardingStages = OnboardingStages()
	}
	for i := range r.OnboardingStages {
		if r.OnboardingStages[i].ID == stageID {
			r.OnboardingStages[i].Status = status
			r.OnboardingStages[i].Duration = duration
			return
		}
	}
}

// RecoverInterrupted marks every busy repository failed. It is meant for
// process start, when no onboarding can still be running, and returns the
// number of repositories it reset.
func (o *Onboarder) RecoverInterrupted(ctx context.Context) (int, error) {
	repos, err := o.store.ListRepositories(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list repositories: %w", err)
	}
	n := 0
	for _, repo := range repos {
		if !repo.Status.IsBusy() {
			continue
		}
		o.logger.Warn("resetting interrupted onboarding", "repo", repo.FullName, "status", repo.Status)
		o.fail(ctx, repo.ID, ErrInterrupted)
		n++
	}
	return n, nil
}

func (o *Onboarder) fail(ctx context.Context, repoID string, cause error) {
	_, err := o.store.UpdateRepository(ctx, repoID, func(r *core.Repository) error {
		r.Status = core.StatusFailed
		for i := range r.OnboardingStages {
			if r.OnboardingStages[i].Status == core.StageRunning {
				r.OnboardingStages[i].Status = core.StageFailure
			}
		}
		return nil
	})
	if err != nil {
		o.logger.Error("failed to mark repository failed", "repo_id", repoID, "error", err)
	}
	o.events.write(ctx, repoID, fmt.Sprintf("Onboarding failed: %v", cause))
}

// fingerprint checks the repository out and scans it. With checkout disabled
// it returns the built-in demo fingerprint.
func (o *Onboarder) fingerprint(ctx context.Context, repo *core.Repository) (*scanner.Fingerprint, *core.RepoConfig, error) {
	if !o.opts.CloneEnabled {
		return scanner.DemoFingerprint(), core.DefaultRepoConfig(), nil
	}

	cloneURL, err := gitutil.CloneURL(repo.URL)
	if err != nil {
		return nil, nil, err
	}
	token := ""
	if o.tokens != nil {
		token, err = o.tokens.Token(ctx, repo.Owner, repo.Name)
		if err != nil {
			o.logger.Warn("no checkout token, cloning anonymously", "repo", repo.FullName, "error", err)
			token = ""
		}
	}

	path := gitutil.WorkspacePath(o.opts.RepoPath, repo.Owner, repo.Name)
	sha, err := o.cloner.Sync(ctx, cloneURL, path, token)
	if err != nil {
		return nil, nil, fmt.Errorf("checkout failed: %w", err)
	}
	o.logger.Info("repository checked out", "repo", repo.FullName, "path", path, "sha", sha)

	_, err = o.store.UpdateRepository(ctx, repo.ID, func(r *core.Repository) error {
		r.ClonePath = path
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	repoCfg, err := config.LoadRepoConfig(path)
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return nil, nil, err
	}

	fp, err := o.scanner.Scan(path, repoCfg)
	if err != nil {
		return nil, nil, err
	}
	return fp, repoCfg, nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sevigo/autoci/internal/core"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type repositoryRow struct {
	ID               string                           `db:"id"`
	Name             string                           `db:"name"`
	FullName         string                           `db:"full_name"`
	Owner            string                           `db:"owner"`
	URL              string                           `db:"url"`
	Status           string                           `db:"status"`
	LastScanned      sql.NullTime                     `db:"last_scanned"`
	Stack            jsonColumn[core.DetectedStack]   `db:"stack"`
	Configs          jsonColumn[core.Configs]         `db:"configs"`
	OnboardingStages jsonColumn[[]core.PipelineStage] `db:"onboarding_stages"`
	ClonePath        string                           `db:"clone_path"`
	core.Metrics
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type findingRow struct {
	RepositoryID   string `db:"repository_id"`
	Position       int    `db:"position"`
	Type           string `db:"type"`
	Severity       string `db:"severity"`
	Title          string `db:"title"`
	File           string `db:"file"`
	Line           int    `db:"line"`
	Description    string `db:"description"`
	Recommendation string `db:"recommendation"`
}

type runRow struct {
	ID              string                           `db:"id"`
	RepositoryID    string                           `db:"repository_id"`
	RunAt           time.Time                        `db:"run_at"`
	Status          string                           `db:"status"`
	Duration        string                           `db:"duration"`
	Log             string                           `db:"log"`
	Stages          jsonColumn[[]core.PipelineStage] `db:"stages"`
	Healing         jsonColumn[core.HealingAnalysis] `db:"healing"`
	HealingResolved bool                             `db:"healing_resolved"`
	HeadSHA         string                           `db:"head_sha"`
	InstallationID  int64                            `db:"installation_id"`
	ExternalID      int64                            `db:"external_id"`
}

const repositoryColumns = `id, name, full_name, owner, url, status, last_scanned, stack, configs,
	onboarding_stages, clone_path, time_saved_minutes, ai_fix_successes, ai_fix_attempts, created_at, updated_at`

type postgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a Store backed by the migrated Postgres schema.
func NewPostgresStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) CreateRepository(ctx context.Context, repo *core.Repository) error {
	if err := repo.Validate(); err != nil {
		return fmt.Errorf("invalid repository: %w", err)
	}
	now := time.Now().UTC()
	if repo.CreatedAt.IsZero() {
		repo.CreatedAt = now
	}
	repo.UpdatedAt = now

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `INSERT INTO repositories (` + repositoryColumns + `)
		VALUES (:id, :name, :full_name, :owner, :url, :status, :last_scanned, :stack, :configs,
			:onboarding_stages, :clone_path, :time_saved_minutes, :ai_fix_successes, :ai_fix_attempts, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, query, toRepositoryRow(repo)); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("repository %s: %w", repo.FullName, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert repository: %w", err)
	}
	if err := writeChildren(ctx, tx, repo); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit repository: %w", err)
	}
	return nil
}

func (s *postgresStore) GetRepository(ctx context.Context, id string) (*core.Repository, error) {
	return s.getOne(ctx, s.db, `SELECT `+repositoryColumns+` FROM repositories WHERE id = $1`, id)
}

func (s *postgresStore) FindRepositoryByFullName(ctx context.Context, fullName string) (*core.Repository, error) {
	return s.getOne(ctx, s.db, `SELECT `+repositoryColumns+` FROM repositories WHERE lower(full_name) = lower($1)`, fullName)
}

func (s *postgresStore) getOne(ctx context.Context, q sqlx.QueryerContext, query, key string) (*core.Repository, error) {
	var row repositoryRow
	if err := sqlx.GetContext(ctx, q, &row, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("repository %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get repository: %w", err)
	}
	repos := []*core.Repository{row.toCore()}
	if err := loadChildren(ctx, q, repos); err != nil {
		return nil, err
	}
	return repos[0], nil
}

func (s *postgresStore) ListRepositories(ctx context.Context) ([]*core.Repository, error) {
	var rows []repositoryRow
	if err := sqlx.SelectContext(ctx, s.db, &rows, `SELECT `+repositoryColumns+` FROM repositories ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	repos := make([]*core.Repository, 0, len(rows))
	for i := range rows {
		repos = append(repos, rows[i].toCore())
	}
	if err := loadChildren(ctx, s.db, repos); err != nil {
		return nil, err
	}
	return repos, nil
}

func (s *postgresStore) DeleteRepository(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM repositories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete repository: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("repository %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *postgresStore) UpdateRepository(ctx context.Context, id string, fn UpdateFunc) (*core.Repository, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	repo, err := s.getOne(ctx, tx, `SELECT `+repositoryColumns+` FROM repositories WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, err
	}
	createdAt := repo.CreatedAt
	if err := fn(repo); err != nil {
		return nil, err
	}
	repo.ID = id
	repo.CreatedAt = createdAt
	repo.UpdatedAt = time.Now().UTC()
	sortRuns(repo.PipelineRuns)

	query := `UPDATE repositories SET name = :name, full_name = :full_name, owner = :owner, url = :url,
		status = :status, last_scanned = :last_scanned, stack = :stack, configs = :configs,
		onboarding_stages = :onboarding_stages, clone_path = :clone_path,
		time_saved_minutes = :time_saved_minutes, ai_fix_successes = :ai_fix_successes,
		ai_fix_attempts = :ai_fix_attempts, updated_at = :updated_at
		WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, tx, query, toRepositoryRow(repo)); err != nil {
		return nil, fmt.Errorf("failed to update repository: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM security_findings WHERE repository_id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to clear findings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pipeline_runs WHERE repository_id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to clear runs: %w", err)
	}
	if err := writeChildren(ctx, tx, repo); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit repository update: %w", err)
	}
	return repo, nil
}

func (s *postgresStore) AppendEvent(ctx context.Context, repoID, message string) (*core.LogEntry, error) {
	entry := core.LogEntry{RepositoryID: repoID, Message: message}
	query := `INSERT INTO repository_events (repository_id, message) VALUES ($1, $2) RETURNING id, created_at`
	if err := s.db.QueryRowxContext(ctx, query, repoID, message).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return nil, fmt.Errorf("repository %s: %w", repoID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to append event: %w", err)
	}
	return &entry, nil
}

func (s *postgresStore) ListEvents(ctx context.Context, repoID string, limit int) ([]core.LogEntry, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM repositories WHERE id = $1)`, repoID); err != nil {
		return nil, fmt.Errorf("failed to check repository: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("repository %s: %w", repoID, ErrNotFound)
	}

	query := `SELECT id, repository_id, message, created_at FROM (
			SELECT id, repository_id, message, created_at FROM repository_events
			WHERE repository_id = $1 ORDER BY id DESC LIMIT $2
		) recent ORDER BY id`
	events := []core.LogEntry{}
	if err := s.db.SelectContext(ctx, &events, query, repoID, limit); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func loadChildren(ctx context.Context, q sqlx.QueryerContext, repos []*core.Repository) error {
	if len(repos) == 0 {
		return nil
	}
	ids := make([]string, 0, len(repos))
	byID := make(map[string]*core.Repository, len(repos))
	for _, r := range repos {
		ids = append(ids, r.ID)
		byID[r.ID] = r
	}

	var findings []findingRow
	if err := sqlx.SelectContext(ctx, q, &findings,
		`SELECT repository_id, position, type, severity, title, file, line, description, recommendation
		 FROM security_findings WHERE repository_id = ANY($1) ORDER BY repository_id, position`, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to load findings: %w", err)
	}
	for _, f := range findings {
		r := byID[f.RepositoryID]
		r.SecurityFindings = append(r.SecurityFindings, f.toCore())
	}

	var runs []runRow
	if err := sqlx.SelectContext(ctx, q, &runs,
		`SELECT id, repository_id, run_at, status, duration, log, stages, healing, healing_resolved,
			head_sha, installation_id, external_id
		 FROM pipeline_runs WHERE repository_id = ANY($1) ORDER BY run_at DESC, id`, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to load runs: %w", err)
	}
	for _, run := range runs {
		r := byID[run.RepositoryID]
		r.PipelineRuns = append(r.PipelineRuns, run.toCore())
	}
	return nil
}

func writeChildren(ctx context.Context, tx *sqlx.Tx, repo *core.Repository) error {
	for i, f := range repo.SecurityFindings {
		row := toFindingRow(repo.ID, i, f)
		if _, err := sqlx.NamedExecContext(ctx, tx,
			`INSERT INTO security_findings (repository_id, position, type, severity, title, file, line, description, recommendation)
			 VALUES (:repository_id, :position, :type, :severity, :title, :file, :line, :description, :recommendation)`, row); err != nil {
			return fmt.Errorf("failed to insert finding: %w", err)
		}
	}
	for _, run := range repo.PipelineRuns {
		if _, err := sqlx.NamedExecContext(ctx, tx,
			`INSERT INTO pipeline_runs (id, repository_id, run_at, status, duration, log, stages, healing,
				healing_resolved, head_sha, installation_id, external_id)
			 VALUES (:id, :repository_id, :run_at, :status, :duration, :log, :stages, :healing,
				:healing_resolved, :head_sha, :installation_id, :external_id)`, toRunRow(repo.ID, run)); err != nil {
			return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
		}
	}
	return nil
}

func toRepositoryRow(r *core.Repository) repositoryRow {
	row := repositoryRow{
		ID:               r.ID,
		Name:             r.Name,
		FullName:         r.FullName,
		Owner:            r.Owner,
		URL:              r.URL,
		Status:           string(r.Status),
		Stack:            newJSONColumn(r.Stack),
		Configs:          newJSONColumn(r.Configs),
		OnboardingStages: jsonColumn[[]core.PipelineStage]{Val: nonNil(r.OnboardingStages), Valid: true},
		ClonePath:        r.ClonePath,
		Metrics:          r.Metrics,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.LastScanned != nil {
		row.LastScanned = sql.NullTime{Time: *r.LastScanned, Valid: true}
	}
	return row
}

func (row *repositoryRow) toCore() *core.Repository {
	r := &core.Repository{
		ID:               row.ID,
		Name:             row.Name,
		FullName:         row.FullName,
		Owner:            row.Owner,
		URL:              row.URL,
		Status:           core.RepositoryStatus(row.Status),
		Stack:            row.Stack.Ptr(),
		Configs:          row.Configs.Ptr(),
		SecurityFindings: []core.SecurityFinding{},
		PipelineRuns:     []core.PipelineRun{},
		OnboardingStages: row.OnboardingStages.Val,
		ClonePath:        row.ClonePath,
		Metrics:          row.Metrics,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
	if row.LastScanned.Valid {
		t := row.LastScanned.Time
		r.LastScanned = &t
	}
	return r
}

func toFindingRow(repoID string, position int, f core.SecurityFinding) findingRow {
	return findingRow{
		RepositoryID:   repoID,
		Position:       position,
		Type:           string(f.Type),
		Severity:       string(f.Severity),
		Title:          f.Title,
		File:           f.File,
		Line:           f.Line,
		Description:    f.Description,
		Recommendation: f.Recommendation,
	}
}

func (row findingRow) toCore() core.SecurityFinding {
	return core.SecurityFinding{
		Type:           core.FindingType(row.Type),
		Severity:       core.Severity(row.Severity),
		Title:          row.Title,
		File:           row.File,
		Line:           row.Line,
		Description:    row.Description,
		Recommendation: row.Recommendation,
	}
}

func toRunRow(repoID string, run core.PipelineRun) runRow {
	return runRow{
		ID:              run.ID,
		RepositoryID:    repoID,
		RunAt:           run.Timestamp,
		Status:          string(run.Status),
		Duration:        run.Duration,
		Log:             run.Log,
		Stages:          jsonColumn[[]core.PipelineStage]{Val: nonNil(run.Stages), Valid: true},
		Healing:         newJSONColumn(run.Healing),
		HealingResolved: run.HealingResolved,
		HeadSHA:         run.HeadSHA,
		InstallationID:  run.InstallationID,
		ExternalID:      run.ExternalID,
	}
}

func (row runRow) toCore() core.PipelineRun {
	return core.PipelineRun{
		ID:              row.ID,
		Timestamp:       row.RunAt,
		Status:          core.RunStatus(row.Status),
		Duration:        row.Duration,
		Log:             row.Log,
		Stages:          nonNil(row.Stages.Val),
		Healing:         row.Healing.Ptr(),
		HealingResolved: row.HealingResolved,
		HeadSHA:         row.HeadSHA,
		InstallationID:  row.InstallationID,
		ExternalID:      row.ExternalID,
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

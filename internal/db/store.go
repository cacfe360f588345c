package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/campusfix/dispatch/internal/models"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrActiveAssignmentExists = errors.New("report already has an active assignment")
	ErrTechnicianBusy         = errors.New("technician has active assignments")
)

const activeAssignmentIndex = "assignments_one_active_per_report"

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse database url")
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "open pool")
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const reportColumns = `id, created_at, updated_at, building, room, floor, lat, lng, description, suggested_action,
	photo_ref, trade, priority, safety_concern, urgency_score, upvote_count, duplicate_of, status,
	reporter_name, reporter_email, generated_by, pattern_trade`

func scanReport(row pgx.Row) (models.Report, error) {
	var r models.Report
	err := row.Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt, &r.Building, &r.Room, &r.Floor, &r.Lat, &r.Lng,
		&r.Description, &r.SuggestedAction, &r.PhotoRef, &r.Trade, &r.Priority, &r.SafetyConcern,
		&r.UrgencyScore, &r.UpvoteCount, &r.DuplicateOf, &r.Status, &r.ReporterName, &r.ReporterEmail,
		&r.GeneratedBy, &r.PatternTrade)
	return r, err
}

func (s *Store) CreateReport(ctx context.Context, r *models.Report) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO reports (`+reportColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
	`, r.ID, r.CreatedAt, r.UpdatedAt, r.Building, r.Room, r.Floor, r.Lat, r.Lng, r.Description, r.SuggestedAction,
		r.PhotoRef, r.Trade, r.Priority, r.SafetyConcern, r.UrgencyScore, r.UpvoteCount, r.DuplicateOf, r.Status,
		r.ReporterName, r.ReporterEmail, r.GeneratedBy, r.PatternTrade)
	return errors.Wrap(err, "insert report")
}

func (s *Store) GetReport(ctx context.Context, id string) (models.Report, error) {
	r, err := scanReport(s.Pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Report{}, ErrNotFound
	}
	return r, errors.Wrap(err, "get report")
}

func (s *Store) ListReports(ctx context.Context, f models.ReportFilter) ([]models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports r`
	var args []any
	var wheres []string
	if len(f.IDs) > 0 {
		args = append(args, f.IDs)
		wheres = append(wheres, fmt.Sprintf("r.id = ANY($%d)", len(args)))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, st := range f.Statuses {
			statuses = append(statuses, string(st))
		}
		args = append(args, statuses)
		wheres = append(wheres, fmt.Sprintf("r.status = ANY($%d)", len(args)))
	}
	if f.Building != "" {
		args = append(args, f.Building)
		wheres = append(wheres, fmt.Sprintf("r.building = $%d", len(args)))
	}
	if f.Trade != "" {
		args = append(args, f.Trade)
		wheres = append(wheres, fmt.Sprintf("r.trade = $%d", len(args)))
	}
	if f.CanonicalOnly {
		wheres = append(wheres, "r.duplicate_of IS NULL")
	}
	if f.DuplicateOf != "" {
		args = append(args, f.DuplicateOf)
		wheres = append(wheres, fmt.Sprintf("r.duplicate_of = $%d", len(args)))
	}
	if f.CreatedSince != nil {
		args = append(args, *f.CreatedSince)
		wheres = append(wheres, fmt.Sprintf("r.created_at >= $%d", len(args)))
	}
	if f.GeneratedBy != "" {
		args = append(args, f.GeneratedBy)
		wheres = append(wheres, fmt.Sprintf("r.generated_by = $%d", len(args)))
	}
	if f.Unassigned {
		wheres = append(wheres, `NOT EXISTS (SELECT 1 FROM assignments a
			WHERE a.report_id = r.id AND a.status IN ('pending','accepted','in_progress'))`)
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	query += " ORDER BY r.created_at ASC, r.id ASC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list reports")
	}
	defer rows.Close()

	var out []models.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan report")
		}
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "list reports")
}

// FindOpenCanonical returns the most recent unresolved canonical report for the
// building and trade created at or after since, or nil when there is none.
func (s *Store) FindOpenCanonical(ctx context.Context, building string, trade models.Trade, since time.Time) (*models.Report, error) {
	r, err := scanReport(s.Pool.QueryRow(ctx, `
		SELECT `+reportColumns+` FROM reports
		WHERE building = $1 AND trade = $2 AND duplicate_of IS NULL AND status <> 'resolved' AND created_at >= $3
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, building, trade, since))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find open canonical report")
	}
	return &r, nil
}

func (s *Store) IncrementUpvotes(ctx context.Context, id string, at time.Time) (models.Report, error) {
	r, err := scanReport(s.Pool.QueryRow(ctx, `
		UPDATE reports SET upvote_count = upvote_count + 1, updated_at = $2
		WHERE id = $1
		RETURNING `+reportColumns, id, at))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Report{}, ErrNotFound
	}
	return r, errors.Wrap(err, "increment upvotes")
}

func (s *Store) UpdateReportUrgency(ctx context.Context, id string, score float64, at time.Time) error {
	return s.execOne(ctx, "update report urgency",
		`UPDATE reports SET urgency_score = $2, updated_at = $3 WHERE id = $1`, id, score, at)
}

func (s *Store) UpdateReportStatus(ctx context.Context, id string, status models.ReportStatus, at time.Time) error {
	return s.execOne(ctx, "update report status",
		`UPDATE reports SET status = $2, updated_at = $3 WHERE id = $1`, id, status, at)
}

func (s *Store) HasPreventiveOrderSince(ctx context.Context, trade models.Trade, since time.Time) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reports
			WHERE generated_by = $1 AND pattern_trade = $2 AND created_at >= $3
		)
	`, string(models.AssignedByPreventive), trade, since).Scan(&exists)
	return exists, errors.Wrap(err, "check preventive orders")
}

const technicianColumns = `id, name, email, phone, trade, assigned_buildings, is_available, created_at, updated_at`

func scanTechnician(row pgx.Row) (models.Technician, error) {
	var t models.Technician
	err := row.Scan(&t.ID, &t.Name, &t.Email, &t.Phone, &t.Trade, &t.AssignedBuildings, &t.IsAvailable, &t.CreatedAt, &t.UpdatedAt)
	if t.AssignedBuildings == nil {
		t.AssignedBuildings = []string{}
	}
	return t, err
}

func (s *Store) CreateTechnician(ctx context.Context, t *models.Technician) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.AssignedBuildings == nil {
		t.AssignedBuildings = []string{}
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO technicians (`+technicianColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, t.ID, t.Name, t.Email, t.Phone, t.Trade, t.AssignedBuildings, t.IsAvailable, t.CreatedAt, t.UpdatedAt)
	return errors.Wrap(err, "insert technician")
}

func (s *Store) GetTechnician(ctx context.Context, id string) (models.Technician, error) {
	t, err := scanTechnician(s.Pool.QueryRow(ctx, `SELECT `+technicianColumns+` FROM technicians WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Technician{}, ErrNotFound
	}
	return t, errors.Wrap(err, "get technician")
}

func (s *Store) UpdateTechnician(ctx context.Context, t models.Technician) error {
	if t.AssignedBuildings == nil {
		t.AssignedBuildings = []string{}
	}
	return s.execOne(ctx, "update technician", `
		UPDATE technicians
		SET name = $2, email = $3, phone = $4, trade = $5, assigned_buildings = $6, is_available = $7, updated_at = $8
		WHERE id = $1
	`, t.ID, t.Name, t.Email, t.Phone, t.Trade, t.AssignedBuildings, t.IsAvailable, t.UpdatedAt)
}

// DeleteTechnician locks the technician row so no assignment can be bound
// between the active-work check and the delete.
func (s *Store) DeleteTechnician(ctx context.Context, id string) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx, `SELECT id FROM technicians WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return errors.Wrap(err, "lock technician")
		}

		var active int
		if err := tx.QueryRow(ctx, `
			SELECT count(*) FROM assignments
			WHERE technician_id = $1 AND status IN ('pending', 'accepted', 'in_progress')`, id).Scan(&active); err != nil {
			return errors.Wrap(err, "count active assignments")
		}
		if active > 0 {
			return ErrTechnicianBusy
		}

		_, err = tx.Exec(ctx, `DELETE FROM technicians WHERE id = $1`, id)
		return errors.Wrap(err, "delete technician")
	})
}

// ListTechnicians returns technicians in creation order, which is the order
// ties are broken in when scoring.
func (s *Store) ListTechnicians(ctx context.Context, availableOnly bool) ([]models.Technician, error) {
	query := `SELECT ` + technicianColumns + ` FROM technicians`
	if availableOnly {
		query += ` WHERE is_available`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.Pool.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "list technicians")
	}
	defer rows.Close()

	var out []models.Technician
	for rows.Next() {
		t, err := scanTechnician(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan technician")
		}
		out = append(out, t)
	}
	return out, errors.Wrap(rows.Err(), "list technicians")
}

func (s *Store) ActiveAssignmentCounts(ctx context.Context, technicianIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(technicianIDs))
	if len(technicianIDs) == 0 {
		return counts, nil
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT technician_id, COUNT(*) FROM assignments
		WHERE technician_id = ANY($1) AND status IN ('pending','accepted','in_progress')
		GROUP BY technician_id
	`, technicianIDs)
	if err != nil {
		return nil, errors.Wrap(err, "count active assignments")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, errors.Wrap(err, "scan assignment count")
		}
		counts[id] = n
	}
	return counts, errors.Wrap(rows.Err(), "count active assignments")
}

const assignmentColumns = `id, report_id, technician_id, assigned_by, status, notes, completion_notes, completion_photo,
	created_at, started_at, completed_at, cancelled_at`

func scanAssignment(row pgx.Row) (models.Assignment, error) {
	var a models.Assignment
	err := row.Scan(&a.ID, &a.ReportID, &a.TechnicianID, &a.AssignedBy, &a.Status, &a.Notes, &a.CompletionNotes,
		&a.CompletionPhoto, &a.CreatedAt, &a.StartedAt, &a.CompletedAt, &a.CancelledAt)
	return a, err
}

// CreateAssignment inserts a. An active assignment that would collide with an
// existing one on the same report fails with ErrActiveAssignmentExists.
func (s *Store) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO assignments (`+assignmentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, a.ID, a.ReportID, a.TechnicianID, a.AssignedBy, a.Status, a.Notes, a.CompletionNotes, a.CompletionPhoto,
		a.CreatedAt, a.StartedAt, a.CompletedAt, a.CancelledAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == activeAssignmentIndex {
		return ErrActiveAssignmentExists
	}
	return errors.Wrap(err, "insert assignment")
}

func (s *Store) GetAssignment(ctx context.Context, id string) (models.Assignment, error) {
	a, err := scanAssignment(s.Pool.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Assignment{}, ErrNotFound
	}
	return a, errors.Wrap(err, "get assignment")
}

// ActiveAssignment returns the report's pending/accepted/in_progress
// assignment, or nil when the report is free to be assigned.
func (s *Store) ActiveAssignment(ctx context.Context, reportID string) (*models.Assignment, error) {
	a, err := scanAssignment(s.Pool.QueryRow(ctx, `
		SELECT `+assignmentColumns+` FROM assignments
		WHERE report_id = $1 AND status IN ('pending','accepted','in_progress')
		LIMIT 1
	`, reportID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get active assignment")
	}
	return &a, nil
}

func (s *Store) ListAssignments(ctx context.Context, f models.AssignmentFilter) ([]models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments`
	var args []any
	var wheres []string
	if f.ReportID != "" {
		args = append(args, f.ReportID)
		wheres = append(wheres, fmt.Sprintf("report_id = $%d", len(args)))
	}
	if f.TechnicianID != "" {
		args = append(args, f.TechnicianID)
		wheres = append(wheres, fmt.Sprintf("technician_id = $%d", len(args)))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, st := range f.Statuses {
			statuses = append(statuses, string(st))
		}
		args = append(args, statuses)
		wheres = append(wheres, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list assignments")
	}
	defer rows.Close()

	var out []models.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan assignment")
		}
		out = append(out, a)
	}
	return out, errors.Wrap(rows.Err(), "list assignments")
}

// TransitionAssignment moves the assignment from one status to another in a
// single conditional update. It reports false when the assignment was no
// longer in the from status.
func (s *Store) TransitionAssignment(ctx context.Context, id string, from, to models.AssignmentStatus, patch models.AssignmentPatch) (models.Assignment, bool, error) {
	a, err := scanAssignment(s.Pool.QueryRow(ctx, `
		UPDATE assignments SET
			status = $3,
			notes = COALESCE($4, notes),
			completion_notes = COALESCE($5, completion_notes),
			completion_photo = COALESCE($6, completion_photo),
			started_at = COALESCE($7, started_at),
			completed_at = COALESCE($8, completed_at),
			cancelled_at = COALESCE($9, cancelled_at)
		WHERE id = $1 AND status = $2
		RETURNING `+assignmentColumns,
		id, from, to, patch.Notes, patch.CompletionNotes, patch.CompletionPhoto, patch.StartedAt, patch.CompletedAt, patch.CancelledAt))
	if errors.Is(err, pgx.ErrNoRows) {
		current, getErr := s.GetAssignment(ctx, id)
		if getErr != nil {
			return models.Assignment{}, false, getErr
		}
		return current, false, nil
	}
	if err != nil {
		return models.Assignment{}, false, errors.Wrap(err, "transition assignment")
	}
	return a, true, nil
}

func (s *Store) CreateRun(ctx context.Context, kind models.SweepKind, startedAt time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.Pool.Exec(ctx, `INSERT INTO runs (id, kind, status, started_at) VALUES ($1, $2, 'running', $3)`, id, kind, startedAt)
	return id, errors.Wrap(err, "create run")
}

func (s *Store) FinishRun(ctx context.Context, runID string, status string, summary []byte, finishedAt time.Time) error {
	return s.execOne(ctx, "finish run",
		`UPDATE runs SET status = $2, summary = $3, finished_at = $4 WHERE id = $1`, runID, status, summary, finishedAt)
}

func (s *Store) GetLatestRun(ctx context.Context, kind models.SweepKind) (models.SweepRun, error) {
	query := `SELECT id, kind, started_at, finished_at, status, summary FROM runs`
	var args []any
	if kind != "" {
		query += ` WHERE kind = $1`
		args = append(args, kind)
	}
	query += ` ORDER BY started_at DESC LIMIT 1`

	var run models.SweepRun
	var summary []byte
	err := s.Pool.QueryRow(ctx, query, args...).Scan(&run.ID, &run.Kind, &run.StartedAt, &run.FinishedAt, &run.Status, &summary)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.SweepRun{}, ErrNotFound
	}
	if err != nil {
		return models.SweepRun{}, errors.Wrap(err, "get latest run")
	}
	run.Summary = summary
	return run, nil
}

func (s *Store) execOne(ctx context.Context, op string, sql string, args ...any) error {
	tag, err := s.Pool.Exec(ctx, sql, args...)
	if err != nil {
		return errors.Wrap(err, op)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

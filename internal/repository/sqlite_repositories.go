package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valueminer/valueminer/internal/domain"
)

// --- clips ---

type sqliteClipRepository struct {
	db *sql.DB
}

const clipColumns = `id, user_id, video_id, title, transcript, analysis, action_plan, category, folder_id, source, created_at`

func (r *sqliteClipRepository) Create(ctx context.Context, clip *domain.Clip) error {
	plan, err := json.Marshal(clip.ActionPlan)
	if err != nil {
		return fmt.Errorf("marshal action plan: %w", err)
	}
	if clip.ActionPlan == nil {
		plan = []byte("[]")
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO mined_clips (`+clipColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(clip.ID), clip.UserID, clip.VideoID, clip.Title, clip.Transcript, clip.Analysis,
		string(plan), string(clip.Category), nullString(string(clip.FolderID)), clip.Source, formatTime(clip.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert clip: %w", err)
	}
	return nil
}

func (r *sqliteClipRepository) Get(ctx context.Context, userID string, id domain.ClipID) (*domain.Clip, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+clipColumns+` FROM mined_clips WHERE id = ? AND user_id = ?`, string(id), userID)
	clip, err := scanClip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrClipNotFound
	}
	return clip, err
}

func (r *sqliteClipRepository) FindByVideo(ctx context.Context, userID, videoID string) (*domain.Clip, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+clipColumns+` FROM mined_clips WHERE user_id = ? AND video_id = ? ORDER BY created_at DESC LIMIT 1`,
		userID, videoID)
	clip, err := scanClip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrClipNotFound
	}
	return clip, err
}

func (r *sqliteClipRepository) List(ctx context.Context, userID string, filter ClipFilter) ([]*domain.Clip, error) {
	query := `SELECT ` + clipColumns + ` FROM mined_clips WHERE user_id = ?`
	args := []any{userID}

	if filter.FolderID != "" {
		query += ` AND folder_id = ?`
		args = append(args, string(filter.FolderID))
	}
	if !filter.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, formatTime(filter.Since))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query clips: %w", err)
	}
	defer rows.Close()

	clips := make([]*domain.Clip, 0)
	for rows.Next() {
		clip, err := scanClip(rows)
		if err != nil {
			return nil, err
		}
		clips = append(clips, clip)
	}
	return clips, rows.Err()
}

func (r *sqliteClipRepository) UpdateFolder(ctx context.Context, userID string, id domain.ClipID, folderID domain.FolderID, category domain.Category) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE mined_clips SET folder_id = ?, category = ? WHERE id = ? AND user_id = ?`,
		nullString(string(folderID)), string(category), string(id), userID)
	if err != nil {
		return fmt.Errorf("update clip folder: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrClipNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClip(s scanner) (*domain.Clip, error) {
	var (
		clip      domain.Clip
		id        string
		plan      string
		category  string
		folderID  sql.NullString
		createdAt string
	)
	err := s.Scan(&id, &clip.UserID, &clip.VideoID, &clip.Title, &clip.Transcript, &clip.Analysis,
		&plan, &category, &folderID, &clip.Source, &createdAt)
	if err != nil {
		return nil, err
	}

	clip.ID = domain.ClipID(id)
	clip.Category = domain.Category(category)
	clip.FolderID = domain.FolderID(folderID.String)
	clip.CreatedAt = parseTime(createdAt)
	if err := json.Unmarshal([]byte(plan), &clip.ActionPlan); err != nil || clip.ActionPlan == nil {
		clip.ActionPlan = []string{}
	}
	return &clip, nil
}

// --- folders ---

type sqliteFolderRepository struct {
	db *sql.DB
}

func (r *sqliteFolderRepository) List(ctx context.Context, userID string) ([]*domain.Folder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, is_system, created_at FROM folders WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("query folders: %w", err)
	}
	defer rows.Close()

	folders := make([]*domain.Folder, 0)
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

func (r *sqliteFolderRepository) Get(ctx context.Context, userID string, id domain.FolderID) (*domain.Folder, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, is_system, created_at FROM folders WHERE id = ? AND user_id = ?`, string(id), userID)
	f, err := scanFolder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrFolderNotFound
	}
	return f, err
}

func (r *sqliteFolderRepository) Create(ctx context.Context, folder *domain.Folder) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO folders (id, user_id, name, is_system, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(folder.ID), folder.UserID, folder.Name, folder.IsSystem, formatTime(folder.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateFolder
		}
		return fmt.Errorf("insert folder: %w", err)
	}
	return nil
}

func scanFolder(s scanner) (*domain.Folder, error) {
	var (
		f         domain.Folder
		id        string
		createdAt string
	)
	if err := s.Scan(&id, &f.UserID, &f.Name, &f.IsSystem, &createdAt); err != nil {
		return nil, err
	}
	f.ID = domain.FolderID(id)
	f.CreatedAt = parseTime(createdAt)
	return &f, nil
}

// --- intake requests ---

type sqliteIntakeRepository struct {
	db *sql.DB
}

const intakeColumns = `id, user_id, url, video_id, source, status, error, clip_id, processed_at, created_at`

func (r *sqliteIntakeRepository) Create(ctx context.Context, req *domain.IntakeRequest) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO intake_requests (`+intakeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(req.ID), req.UserID, req.URL, req.VideoID, req.Source, string(req.Status),
		nullString(req.Error), nullString(string(req.ClipID)), nullTime(req.ProcessedAt), formatTime(req.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert intake request: %w", err)
	}
	return nil
}

func (r *sqliteIntakeRepository) Get(ctx context.Context, id domain.IntakeID) (*domain.IntakeRequest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+intakeColumns+` FROM intake_requests WHERE id = ?`, string(id))
	req, err := scanIntake(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrIntakeNotFound
	}
	return req, err
}

func (r *sqliteIntakeRepository) Update(ctx context.Context, req *domain.IntakeRequest) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE intake_requests SET status = ?, error = ?, clip_id = ?, processed_at = ? WHERE id = ?`,
		string(req.Status), nullString(req.Error), nullString(string(req.ClipID)), nullTime(req.ProcessedAt), string(req.ID))
	if err != nil {
		return fmt.Errorf("update intake request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrIntakeNotFound
	}
	return nil
}

func (r *sqliteIntakeRepository) ClaimNext(ctx context.Context) (*domain.IntakeRequest, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE intake_requests SET status = ?
		WHERE id = (SELECT id FROM intake_requests WHERE status = ? ORDER BY created_at, id LIMIT 1)
		RETURNING `+intakeColumns,
		string(domain.IntakeStatusProcessing), string(domain.IntakeStatusQueued))
	req, err := scanIntake(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoIntakeRequests
	}
	if err != nil {
		return nil, fmt.Errorf("claim intake request: %w", err)
	}
	return req, nil
}

func (r *sqliteIntakeRepository) RequeueProcessing(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE intake_requests SET status = ? WHERE status = ?`,
		string(domain.IntakeStatusQueued), string(domain.IntakeStatusProcessing))
	if err != nil {
		return 0, fmt.Errorf("requeue intake requests: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *sqliteIntakeRepository) Stats(ctx context.Context) (*IntakeStats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM intake_requests GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query intake stats: %w", err)
	}
	defer rows.Close()

	stats := &IntakeStats{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		stats.add(domain.IntakeStatus(status), n)
	}
	return stats, rows.Err()
}

func (s *IntakeStats) add(status domain.IntakeStatus, n int) {
	switch status {
	case domain.IntakeStatusQueued:
		s.Queued += n
	case domain.IntakeStatusProcessing:
		s.Processing += n
	case domain.IntakeStatusComplete:
		s.Complete += n
	case domain.IntakeStatusError:
		s.Failed += n
	}
}

func scanIntake(s scanner) (*domain.IntakeRequest, error) {
	var (
		req         domain.IntakeRequest
		id, status  string
		errMsg      sql.NullString
		clipID      sql.NullString
		processedAt sql.NullString
		createdAt   string
	)
	err := s.Scan(&id, &req.UserID, &req.URL, &req.VideoID, &req.Source, &status,
		&errMsg, &clipID, &processedAt, &createdAt)
	if err != nil {
		return nil, err
	}
	req.ID = domain.IntakeID(id)
	req.Status = domain.IntakeStatus(status)
	req.Error = errMsg.String
	req.ClipID = domain.ClipID(clipID.String)
	req.ProcessedAt = timePtr(processedAt)
	req.CreatedAt = parseTime(createdAt)
	return &req, nil
}

// --- tokens ---

type sqliteTokenRepository struct {
	db *sql.DB
}

func (r *sqliteTokenRepository) Create(ctx context.Context, token *domain.APIToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_api_tokens (id, user_id, token_hash, token_prefix, revoked_at, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		token.ID, token.UserID, token.TokenHash, token.Prefix, nullTime(token.RevokedAt), formatTime(token.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

func (r *sqliteTokenRepository) FindByHash(ctx context.Context, hash string) (*domain.APIToken, error) {
	var (
		t         domain.APIToken
		revokedAt sql.NullString
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, token_prefix, revoked_at, created_at
		FROM user_api_tokens WHERE token_hash = ? AND revoked_at IS NULL`, hash).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.Prefix, &revokedAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query token: %w", err)
	}
	t.RevokedAt = timePtr(revokedAt)
	t.CreatedAt = parseTime(createdAt)
	return &t, nil
}

func (r *sqliteTokenRepository) RevokeActive(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE user_api_tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`,
		formatTime(at), userID)
	if err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	return nil
}

func (r *sqliteTokenRepository) Rotate(ctx context.Context, token *domain.APIToken, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rotate: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE user_api_tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`,
		formatTime(at), token.UserID); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_api_tokens (id, user_id, token_hash, token_prefix, revoked_at, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		token.ID, token.UserID, token.TokenHash, token.Prefix, nullTime(token.RevokedAt), formatTime(token.CreatedAt)); err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rotate: %w", err)
	}
	return nil
}

// --- report preferences ---

type sqliteReportRepository struct {
	db *sql.DB
}

func (r *sqliteReportRepository) GetPreference(ctx context.Context, userID string) (*domain.ReportPreference, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT user_id, frequency, time_of_day, day_of_week, timezone, last_sent_at, updated_at
		FROM report_preferences WHERE user_id = ?`, userID)
	pref, err := scanPreference(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPreferenceNotFound
	}
	return pref, err
}

func (r *sqliteReportRepository) UpsertPreference(ctx context.Context, pref *domain.ReportPreference) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO report_preferences (user_id, frequency, time_of_day, day_of_week, timezone, last_sent_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			frequency = excluded.frequency,
			time_of_day = excluded.time_of_day,
			day_of_week = excluded.day_of_week,
			timezone = excluded.timezone,
			updated_at = excluded.updated_at`,
		pref.UserID, string(pref.Frequency), pref.TimeOfDay, nullString(pref.DayOfWeek), pref.Timezone,
		nullTime(pref.LastSentAt), formatTime(pref.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert report preference: %w", err)
	}
	return nil
}

func (r *sqliteReportRepository) ListTargets(ctx context.Context) ([]ReportTarget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.user_id, p.frequency, p.time_of_day, p.day_of_week, p.timezone, p.last_sent_at, p.updated_at,
			COALESCE(u.email, '')
		FROM report_preferences p LEFT JOIN users u ON u.id = p.user_id
		ORDER BY p.user_id`)
	if err != nil {
		return nil, fmt.Errorf("query report targets: %w", err)
	}
	defer rows.Close()

	var targets []ReportTarget
	for rows.Next() {
		var email string
		pref, err := scanPreference(rows, &email)
		if err != nil {
			return nil, err
		}
		targets = append(targets, ReportTarget{Preference: pref, Email: email})
	}
	return targets, rows.Err()
}

func (r *sqliteReportRepository) MarkSent(ctx context.Context, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE report_preferences SET last_sent_at = ? WHERE user_id = ?`, formatTime(at), userID)
	if err != nil {
		return fmt.Errorf("mark report sent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrPreferenceNotFound
	}
	return nil
}

func scanPreference(s scanner, extra ...any) (*domain.ReportPreference, error) {
	var (
		p          domain.ReportPreference
		frequency  string
		dayOfWeek  sql.NullString
		lastSentAt sql.NullString
		updatedAt  string
	)
	dest := append([]any{&p.UserID, &frequency, &p.TimeOfDay, &dayOfWeek, &p.Timezone, &lastSentAt, &updatedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	p.Frequency = domain.Frequency(frequency)
	p.DayOfWeek = dayOfWeek.String
	p.LastSentAt = timePtr(lastSentAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

// --- users ---

type sqliteUserRepository struct {
	db *sql.DB
}

func (r *sqliteUserRepository) Upsert(ctx context.Context, user *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET email = excluded.email, updated_at = excluded.updated_at`,
		user.ID, strings.TrimSpace(user.Email), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *sqliteUserRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx, `SELECT id, email FROM users WHERE id = ?`, id).Scan(&u.ID, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

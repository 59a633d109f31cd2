package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"github.com/valueminer/valueminer/internal/config"
	"github.com/valueminer/valueminer/internal/domain"
)

// Tables of the hosted schema.
const (
	tableClips       = "mined_clips"
	tableFolders     = "folders"
	tableIntakes     = "intake_requests"
	tableTokens      = "user_api_tokens"
	tablePreferences = "report_preferences"
	tableUsers       = "users"
)

// claimAttempts bounds ClaimNext retries when another worker wins the race.
const claimAttempts = 3

// rotateAttempts bounds Rotate retries when a concurrent rotation inserts
// first and trips the one-active-token index.
const rotateAttempts = 3

// SupabaseStore implements Store against a hosted Postgres through PostgREST.
// The client calls take no context, so each operation checks ctx first.
type SupabaseStore struct {
	client *supabase.Client
}

// NewSupabaseStore creates a store using the service role key.
func NewSupabaseStore(cfg config.SupabaseConfig) (*SupabaseStore, error) {
	client, err := supabase.NewClient(cfg.BaseURL(), cfg.ServiceKey, &supabase.ClientOptions{
		Schema: cfg.Schema,
	})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &SupabaseStore{client: client}, nil
}

func (s *SupabaseStore) Clips() ClipRepository     { return &supabaseClipRepository{client: s.client} }
func (s *SupabaseStore) Folders() FolderRepository { return &supabaseFolderRepository{client: s.client} }
func (s *SupabaseStore) Intakes() IntakeRepository { return &supabaseIntakeRepository{client: s.client} }
func (s *SupabaseStore) Tokens() TokenRepository   { return &supabaseTokenRepository{client: s.client} }
func (s *SupabaseStore) Reports() ReportRepository { return &supabaseReportRepository{client: s.client} }
func (s *SupabaseStore) Users() UserRepository     { return &supabaseUserRepository{client: s.client} }

// Ping runs a cheap HEAD query against the folders table.
func (s *SupabaseStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := s.client.From(tableFolders).Select("id", "", true).Limit(1, "").Execute()
	if err != nil {
		return fmt.Errorf("ping supabase: %w", err)
	}
	return nil
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (s *SupabaseStore) Close() error {
	return nil
}

var newestFirst = &postgrest.OrderOpts{Ascending: false}
var oldestFirst = &postgrest.OrderOpts{Ascending: true}

func pgTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// isPostgresCode matches the "(code) message" errors postgrest-go returns.
func isPostgresCode(err error, code string) bool {
	return err != nil && strings.HasPrefix(err.Error(), "("+code+")")
}

// --- clips ---

type supabaseClipRepository struct {
	client *supabase.Client
}

type clipRow struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	VideoID    string    `json:"video_id"`
	Title      string    `json:"title"`
	Transcript string    `json:"transcript"`
	Analysis   string    `json:"analysis"`
	ActionPlan []string  `json:"action_plan"`
	Category   string    `json:"category"`
	FolderID   *string   `json:"folder_id"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"created_at"`
}

func toClipRow(c *domain.Clip) clipRow {
	row := clipRow{
		ID:         string(c.ID),
		UserID:     c.UserID,
		VideoID:    c.VideoID,
		Title:      c.Title,
		Transcript: c.Transcript,
		Analysis:   c.Analysis,
		ActionPlan: c.ActionPlan,
		Category:   string(c.Category),
		Source:     c.Source,
		CreatedAt:  c.CreatedAt.UTC(),
	}
	if row.ActionPlan == nil {
		row.ActionPlan = []string{}
	}
	if c.FolderID != "" {
		id := string(c.FolderID)
		row.FolderID = &id
	}
	return row
}

func (r clipRow) toDomain() *domain.Clip {
	c := &domain.Clip{
		ID:         domain.ClipID(r.ID),
		UserID:     r.UserID,
		VideoID:    r.VideoID,
		Title:      r.Title,
		Transcript: r.Transcript,
		Analysis:   r.Analysis,
		ActionPlan: r.ActionPlan,
		Category:   domain.Category(r.Category),
		Source:     r.Source,
		CreatedAt:  r.CreatedAt.UTC(),
	}
	if c.ActionPlan == nil {
		c.ActionPlan = []string{}
	}
	if r.FolderID != nil {
		c.FolderID = domain.FolderID(*r.FolderID)
	}
	return c
}

func (r *supabaseClipRepository) Create(ctx context.Context, clip *domain.Clip) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := r.client.From(tableClips).Insert(toClipRow(clip), false, "", "minimal", "").Execute()
	if err != nil {
		return fmt.Errorf("insert clip: %w", err)
	}
	return nil
}

func (r *supabaseClipRepository) Get(ctx context.Context, userID string, id domain.ClipID) (*domain.Clip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []clipRow
	_, err := r.client.From(tableClips).Select("*", "", false).
		Eq("id", string(id)).Eq("user_id", userID).Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("query clip: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrClipNotFound
	}
	return rows[0].toDomain(), nil
}

func (r *supabaseClipRepository) FindByVideo(ctx context.Context, userID, videoID string) (*domain.Clip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []clipRow
	_, err := r.client.From(tableClips).Select("*", "", false).
		Eq("user_id", userID).Eq("video_id", videoID).
		Order("created_at", newestFirst).Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("query clip by video: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrClipNotFound
	}
	return rows[0].toDomain(), nil
}

func (r *supabaseClipRepository) List(ctx context.Context, userID string, filter ClipFilter) ([]*domain.Clip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := r.client.From(tableClips).Select("*", "", false).Eq("user_id", userID)
	if filter.FolderID != "" {
		q = q.Eq("folder_id", string(filter.FolderID))
	}
	if !filter.Since.IsZero() {
		q = q.Gte("created_at", pgTime(filter.Since))
	}
	q = q.Order("created_at", newestFirst)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit, "")
	}

	var rows []clipRow
	if _, err := q.ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("query clips: %w", err)
	}
	clips := make([]*domain.Clip, 0, len(rows))
	for _, row := range rows {
		clips = append(clips, row.toDomain())
	}
	return clips, nil
}

func (r *supabaseClipRepository) UpdateFolder(ctx context.Context, userID string, id domain.ClipID, folderID domain.FolderID, category domain.Category) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	update := map[string]any{"folder_id": nil, "category": string(category)}
	if folderID != "" {
		update["folder_id"] = string(folderID)
	}

	var rows []clipRow
	_, err := r.client.From(tableClips).Update(update, "representation", "").
		Eq("id", string(id)).Eq("user_id", userID).
		ExecuteTo(&rows)
	if err != nil {
		return fmt.Errorf("update clip folder: %w", err)
	}
	if len(rows) == 0 {
		return domain.ErrClipNotFound
	}
	return nil
}

// --- folders ---

type supabaseFolderRepository struct {
	client *supabase.Client
}

func (r *supabaseFolderRepository) List(ctx context.Context, userID string) ([]*domain.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	folders := make([]*domain.Folder, 0)
	_, err := r.client.From(tableFolders).Select("id,user_id,name,is_system,created_at", "", false).
		Eq("user_id", userID).Order("name", oldestFirst).
		ExecuteTo(&folders)
	if err != nil {
		return nil, fmt.Errorf("query folders: %w", err)
	}
	return folders, nil
}

func (r *supabaseFolderRepository) Get(ctx context.Context, userID string, id domain.FolderID) (*domain.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var folders []*domain.Folder
	_, err := r.client.From(tableFolders).Select("id,user_id,name,is_system,created_at", "", false).
		Eq("id", string(id)).Eq("user_id", userID).Limit(1, "").
		ExecuteTo(&folders)
	if err != nil {
		return nil, fmt.Errorf("query folder: %w", err)
	}
	if len(folders) == 0 {
		return nil, domain.ErrFolderNotFound
	}
	return folders[0], nil
}

func (r *supabaseFolderRepository) Create(ctx context.Context, folder *domain.Folder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	row := *folder
	row.CreatedAt = row.CreatedAt.UTC()
	_, _, err := r.client.From(tableFolders).Insert(row, false, "", "minimal", "").Execute()
	if err != nil {
		if isPostgresCode(err, "23505") {
			return domain.ErrDuplicateFolder
		}
		return fmt.Errorf("insert folder: %w", err)
	}
	return nil
}

// --- intake requests ---

type supabaseIntakeRepository struct {
	client *supabase.Client
}

func (r *supabaseIntakeRepository) Create(ctx context.Context, req *domain.IntakeRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	row := *req
	row.CreatedAt = row.CreatedAt.UTC()
	_, _, err := r.client.From(tableIntakes).Insert(row, false, "", "minimal", "").Execute()
	if err != nil {
		return fmt.Errorf("insert intake request: %w", err)
	}
	return nil
}

func (r *supabaseIntakeRepository) Get(ctx context.Context, id domain.IntakeID) (*domain.IntakeRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []*domain.IntakeRequest
	_, err := r.client.From(tableIntakes).Select("*", "", false).Eq("id", string(id)).Limit(1, "").ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("query intake request: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrIntakeNotFound
	}
	return rows[0], nil
}

func (r *supabaseIntakeRepository) Update(ctx context.Context, req *domain.IntakeRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	update := map[string]any{
		"status":       string(req.Status),
		"error":        nil,
		"clip_id":      nil,
		"processed_at": nil,
	}
	if req.Error != "" {
		update["error"] = req.Error
	}
	if req.ClipID != "" {
		update["clip_id"] = string(req.ClipID)
	}
	if req.ProcessedAt != nil {
		update["processed_at"] = pgTime(*req.ProcessedAt)
	}

	var rows []*domain.IntakeRequest
	_, err := r.client.From(tableIntakes).Update(update, "representation", "").Eq("id", string(req.ID)).ExecuteTo(&rows)
	if err != nil {
		return fmt.Errorf("update intake request: %w", err)
	}
	if len(rows) == 0 {
		return domain.ErrIntakeNotFound
	}
	return nil
}

// ClaimNext selects the oldest queued row, then flips it to processing only
// if it is still queued. Losing that race retries with the next row.
func (r *supabaseIntakeRepository) ClaimNext(ctx context.Context) (*domain.IntakeRequest, error) {
	for attempt := 0; attempt < claimAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var candidates []*domain.IntakeRequest
		_, err := r.client.From(tableIntakes).Select("id", "", false).
			Eq("status", string(domain.IntakeStatusQueued)).
			Order("created_at", oldestFirst).Limit(1, "").
			ExecuteTo(&candidates)
		if err != nil {
			return nil, fmt.Errorf("query queued intake: %w", err)
		}
		if len(candidates) == 0 {
			return nil, domain.ErrNoIntakeRequests
		}

		var claimed []*domain.IntakeRequest
		_, err = r.client.From(tableIntakes).
			Update(map[string]any{"status": string(domain.IntakeStatusProcessing)}, "representation", "").
			Eq("id", string(candidates[0].ID)).Eq("status", string(domain.IntakeStatusQueued)).
			ExecuteTo(&claimed)
		if err != nil {
			return nil, fmt.Errorf("claim intake request: %w", err)
		}
		if len(claimed) > 0 {
			return claimed[0], nil
		}
	}
	return nil, domain.ErrNoIntakeRequests
}

func (r *supabaseIntakeRepository) RequeueProcessing(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var rows []*domain.IntakeRequest
	_, err := r.client.From(tableIntakes).
		Update(map[string]any{"status": string(domain.IntakeStatusQueued)}, "representation", "").
		Eq("status", string(domain.IntakeStatusProcessing)).
		ExecuteTo(&rows)
	if err != nil {
		return 0, fmt.Errorf("requeue intake requests: %w", err)
	}
	return len(rows), nil
}

func (r *supabaseIntakeRepository) Stats(ctx context.Context) (*IntakeStats, error) {
	stats := &IntakeStats{}
	for _, status := range []domain.IntakeStatus{
		domain.IntakeStatusQueued,
		domain.IntakeStatusProcessing,
		domain.IntakeStatusComplete,
		domain.IntakeStatusError,
	} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, n, err := r.client.From(tableIntakes).Select("id", "exact", true).Eq("status", string(status)).Execute()
		if err != nil {
			return nil, fmt.Errorf("count %s intake requests: %w", status, err)
		}
		stats.add(status, int(n))
	}
	return stats, nil
}

// --- tokens ---

type supabaseTokenRepository struct {
	client *supabase.Client
}

func (r *supabaseTokenRepository) Create(ctx context.Context, token *domain.APIToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.insert(token); err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

func (r *supabaseTokenRepository) insert(token *domain.APIToken) error {
	row := *token
	row.CreatedAt = row.CreatedAt.UTC()
	_, _, err := r.client.From(tableTokens).Insert(row, false, "", "minimal", "").Execute()
	return err
}

// Rotate revokes then inserts. PostgREST offers no transaction, so the
// partial unique index user_api_tokens(user_id) WHERE revoked_at IS NULL
// rejects the insert of a rotation that lost a race; it revokes the
// winner's token and tries again.
func (r *supabaseTokenRepository) Rotate(ctx context.Context, token *domain.APIToken, at time.Time) error {
	var err error
	for attempt := 0; attempt < rotateAttempts; attempt++ {
		if err := r.RevokeActive(ctx, token.UserID, at); err != nil {
			return err
		}
		if err = r.insert(token); err == nil {
			return nil
		}
		if !isPostgresCode(err, "23505") {
			return fmt.Errorf("insert token: %w", err)
		}
	}
	return fmt.Errorf("insert token: %w", err)
}

func (r *supabaseTokenRepository) FindByHash(ctx context.Context, hash string) (*domain.APIToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []*domain.APIToken
	_, err := r.client.From(tableTokens).Select("*", "", false).
		Eq("token_hash", hash).Is("revoked_at", "null").Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("query token: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrTokenNotFound
	}
	return rows[0], nil
}

func (r *supabaseTokenRepository) RevokeActive(ctx context.Context, userID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := r.client.From(tableTokens).Update(map[string]any{"revoked_at": pgTime(at)}, "minimal", "").
		Eq("user_id", userID).Is("revoked_at", "null").
		Execute()
	if err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	return nil
}

// --- report preferences ---

type supabaseReportRepository struct {
	client *supabase.Client
}

type preferenceRow struct {
	UserID     string     `json:"user_id"`
	Frequency  string     `json:"frequency"`
	TimeOfDay  string     `json:"time_of_day"`
	DayOfWeek  *string    `json:"day_of_week"`
	Timezone   string     `json:"timezone"`
	LastSentAt *time.Time `json:"last_sent_at,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Users      *struct {
		Email string `json:"email"`
	} `json:"users,omitempty"`
}

func (r preferenceRow) toDomain() *domain.ReportPreference {
	p := &domain.ReportPreference{
		UserID:     r.UserID,
		Frequency:  domain.Frequency(r.Frequency),
		TimeOfDay:  r.TimeOfDay,
		Timezone:   r.Timezone,
		LastSentAt: r.LastSentAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.DayOfWeek != nil {
		p.DayOfWeek = *r.DayOfWeek
	}
	return p
}

const preferenceColumns = "user_id,frequency,time_of_day,day_of_week,timezone,last_sent_at,updated_at"

func (r *supabaseReportRepository) GetPreference(ctx context.Context, userID string) (*domain.ReportPreference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []preferenceRow
	_, err := r.client.From(tablePreferences).Select(preferenceColumns, "", false).
		Eq("user_id", userID).Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("query report preference: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrPreferenceNotFound
	}
	return rows[0].toDomain(), nil
}

// UpsertPreference leaves last_sent_at untouched on existing rows.
func (r *supabaseReportRepository) UpsertPreference(ctx context.Context, pref *domain.ReportPreference) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	row := map[string]any{
		"user_id":     pref.UserID,
		"frequency":   string(pref.Frequency),
		"time_of_day": pref.TimeOfDay,
		"day_of_week": nil,
		"timezone":    pref.Timezone,
		"updated_at":  pgTime(pref.UpdatedAt),
	}
	if pref.DayOfWeek != "" {
		row["day_of_week"] = pref.DayOfWeek
	}

	_, _, err := r.client.From(tablePreferences).Insert(row, true, "user_id", "minimal", "").Execute()
	if err != nil {
		return fmt.Errorf("upsert report preference: %w", err)
	}
	return nil
}

func (r *supabaseReportRepository) ListTargets(ctx context.Context) ([]ReportTarget, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []preferenceRow
	_, err := r.client.From(tablePreferences).Select(preferenceColumns+",users(email)", "", false).
		Order("user_id", oldestFirst).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("query report targets: %w", err)
	}

	targets := make([]ReportTarget, 0, len(rows))
	for _, row := range rows {
		t := ReportTarget{Preference: row.toDomain()}
		if row.Users != nil {
			t.Email = row.Users.Email
		}
		targets = append(targets, t)
	}
	return targets, nil
}

func (r *supabaseReportRepository) MarkSent(ctx context.Context, userID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var rows []preferenceRow
	_, err := r.client.From(tablePreferences).Update(map[string]any{"last_sent_at": pgTime(at)}, "representation", "").
		Eq("user_id", userID).
		ExecuteTo(&rows)
	if err != nil {
		return fmt.Errorf("mark report sent: %w", err)
	}
	if len(rows) == 0 {
		return domain.ErrPreferenceNotFound
	}
	return nil
}

// --- users ---

type supabaseUserRepository struct {
	client *supabase.Client
}

func (r *supabaseUserRepository) Upsert(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	row := map[string]any{"id": user.ID, "email": strings.TrimSpace(user.Email)}
	_, _, err := r.client.From(tableUsers).Insert(row, true, "id", "minimal", "").Execute()
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *supabaseUserRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var users []*domain.User
	_, err := r.client.From(tableUsers).Select("id,email", "", false).Eq("id", id).Limit(1, "").ExecuteTo(&users)
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	if len(users) == 0 {
		return nil, domain.ErrUserNotFound
	}
	return users[0], nil
}

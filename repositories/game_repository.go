package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Dosada05/game-booking-system/models"
	"github.com/lib/pq"
)

var (
	ErrGameNotFound        = errors.New("game not found")
	ErrGameInvalidAdmin    = errors.New("invalid game admin reference")
	ErrJoinRequestNotFound = errors.New("join request not found")
	ErrJoinRequestConflict = errors.New("join request already exists for this user")
	ErrGamePlayerInvalid   = errors.New("invalid player reference")
)

type GameRepository interface {
	Create(ctx context.Context, exec SQLExecutor, game *models.Game) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Game, error)
	// GetByIDForUpdate блокирует строку игры до конца транзакции: все
	// read-modify-write операции над составом и заявками сериализуются по игре.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Game, error)

	ListPlayerIDs(ctx context.Context, exec SQLExecutor, gameID int) ([]int, error)
	HasPlayer(ctx context.Context, exec SQLExecutor, gameID, userID int) (bool, error)
	CountPlayers(ctx context.Context, exec SQLExecutor, gameID int) (int, error)
	AddPlayer(ctx context.Context, exec SQLExecutor, gameID, userID int) error

	CreateRequest(ctx context.Context, exec SQLExecutor, request *models.JoinRequest) error
	DeleteRequest(ctx context.Context, exec SQLExecutor, gameID, userID int) error
	ListRequests(ctx context.Context, gameID int) ([]models.JoinRequest, error)

	CreateQuery(ctx context.Context, query *models.GameQuery) error
	ListQueries(ctx context.Context, gameID int) ([]models.GameQuery, error)

	SetMatchFull(ctx context.Context, exec SQLExecutor, gameID int, matchFull bool) error
	SetBooked(ctx context.Context, exec SQLExecutor, gameID, courtNumber int) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, gameID int, status models.GameStatus) error

	ListForUser(ctx context.Context, userID int) ([]models.Game, error)
	ListCurrent(ctx context.Context, now time.Time) ([]models.Game, error)
	ListFinishedScheduled(ctx context.Context, exec SQLExecutor, now time.Time) ([]models.Game, error)
}

type postgresGameRepository struct {
	db *sql.DB
}

func NewPostgresGameRepository(db *sql.DB) GameRepository {
	return &postgresGameRepository{db: db}
}

func (r *postgresGameRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const gameColumns = `
	id, sport, area, start_time, end_time, admin_id, total_players,
	activity_access, match_full, is_booked, court_number, status, created_at`

func scanGame(row rowScanner, g *models.Game) error {
	return row.Scan(
		&g.ID, &g.Sport, &g.Area, &g.StartTime, &g.EndTime, &g.AdminID, &g.TotalPlayers,
		&g.ActivityAccess, &g.MatchFull, &g.IsBooked, &g.CourtNumber, &g.Status, &g.CreatedAt,
	)
}

func (r *postgresGameRepository) Create(ctx context.Context, exec SQLExecutor, g *models.Game) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO games (
			sport, area, start_time, end_time, admin_id,
			total_players, activity_access, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, match_full, is_booked, created_at`

	err := executor.QueryRowContext(ctx, query,
		g.Sport, g.Area, g.StartTime, g.EndTime, g.AdminID,
		g.TotalPlayers, g.ActivityAccess, g.Status,
	).Scan(&g.ID, &g.MatchFull, &g.IsBooked, &g.CreatedAt)
	if err != nil {
		return r.handleGameError(err)
	}

	// Организатор всегда входит в состав с момента создания.
	return r.AddPlayer(ctx, executor, g.ID, g.AdminID)
}

func (r *postgresGameRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Game, error) {
	return r.getGame(ctx, exec, id, false)
}

func (r *postgresGameRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Game, error) {
	return r.getGame(ctx, exec, id, true)
}

func (r *postgresGameRepository) getGame(ctx context.Context, exec SQLExecutor, id int, forUpdate bool) (*models.Game, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	g := &models.Game{}
	if err := scanGame(executor.QueryRowContext(ctx, query, id), g); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	return g, nil
}

func (r *postgresGameRepository) ListPlayerIDs(ctx context.Context, exec SQLExecutor, gameID int) ([]int, error) {
	executor := r.getExecutor(exec)
	query := `SELECT user_id FROM game_players WHERE game_id = $1 ORDER BY joined_at, user_id`

	rows, err := executor.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, scanErr
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresGameRepository) HasPlayer(ctx context.Context, exec SQLExecutor, gameID, userID int) (bool, error) {
	executor := r.getExecutor(exec)
	query := `SELECT EXISTS(SELECT 1 FROM game_players WHERE game_id = $1 AND user_id = $2)`

	var exists bool
	err := executor.QueryRowContext(ctx, query, gameID, userID).Scan(&exists)
	return exists, err
}

func (r *postgresGameRepository) CountPlayers(ctx context.Context, exec SQLExecutor, gameID int) (int, error) {
	executor := r.getExecutor(exec)
	query := `SELECT COUNT(*) FROM game_players WHERE game_id = $1`

	var count int
	err := executor.QueryRowContext(ctx, query, gameID).Scan(&count)
	return count, err
}

func (r *postgresGameRepository) AddPlayer(ctx context.Context, exec SQLExecutor, gameID, userID int) error {
	executor := r.getExecutor(exec)
	// Повторное добавление игрока идемпотентно.
	query := `
		INSERT INTO game_players (game_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (game_id, user_id) DO NOTHING`

	_, err := executor.ExecContext(ctx, query, gameID, userID)
	return r.handleGameError(err)
}

func (r *postgresGameRepository) CreateRequest(ctx context.Context, exec SQLExecutor, req *models.JoinRequest) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO game_requests (game_id, user_id, comment, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		req.GameID, req.UserID, req.Comment, req.Status,
	).Scan(&req.ID, &req.CreatedAt)
	return r.handleGameError(err)
}

func (r *postgresGameRepository) DeleteRequest(ctx context.Context, exec SQLExecutor, gameID, userID int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM game_requests WHERE game_id = $1 AND user_id = $2`

	result, err := executor.ExecContext(ctx, query, gameID, userID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrJoinRequestNotFound)
}

func (r *postgresGameRepository) ListRequests(ctx context.Context, gameID int) ([]models.JoinRequest, error) {
	query := `
		SELECT id, game_id, user_id, comment, status, created_at
		FROM game_requests
		WHERE game_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]models.JoinRequest, 0)
	for rows.Next() {
		var req models.JoinRequest
		if scanErr := rows.Scan(&req.ID, &req.GameID, &req.UserID, &req.Comment, &req.Status, &req.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func (r *postgresGameRepository) CreateQuery(ctx context.Context, q *models.GameQuery) error {
	query := `
		INSERT INTO game_queries (game_id, user_id, text)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, q.GameID, q.UserID, q.Text).Scan(&q.ID, &q.CreatedAt)
	return r.handleGameError(err)
}

func (r *postgresGameRepository) ListQueries(ctx context.Context, gameID int) ([]models.GameQuery, error) {
	query := `
		SELECT id, game_id, user_id, text, created_at
		FROM game_queries
		WHERE game_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	queries := make([]models.GameQuery, 0)
	for rows.Next() {
		var q models.GameQuery
		if scanErr := rows.Scan(&q.ID, &q.GameID, &q.UserID, &q.Text, &q.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

func (r *postgresGameRepository) SetMatchFull(ctx context.Context, exec SQLExecutor, gameID int, matchFull bool) error {
	executor := r.getExecutor(exec)
	query := `UPDATE games SET match_full = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, matchFull, gameID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

func (r *postgresGameRepository) SetBooked(ctx context.Context, exec SQLExecutor, gameID, courtNumber int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE games SET is_booked = TRUE, court_number = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, courtNumber, gameID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

func (r *postgresGameRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, gameID int, status models.GameStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE games SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, gameID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

// ListForUser возвращает игры, где пользователь организатор, игрок или
// податель ожидающей заявки.
func (r *postgresGameRepository) ListForUser(ctx context.Context, userID int) ([]models.Game, error) {
	query := `
		SELECT DISTINCT ` + gameColumns + `
		FROM games g
		WHERE g.admin_id = $1
		   OR EXISTS (SELECT 1 FROM game_players p WHERE p.game_id = g.id AND p.user_id = $1)
		   OR EXISTS (SELECT 1 FROM game_requests q WHERE q.game_id = g.id AND q.user_id = $1)
		ORDER BY start_time, id`

	return r.queryGames(ctx, query, userID)
}

func (r *postgresGameRepository) ListCurrent(ctx context.Context, now time.Time) ([]models.Game, error) {
	query := `
		SELECT ` + gameColumns + `
		FROM games
		WHERE end_time > $1
		ORDER BY created_at DESC, id DESC`

	return r.queryGames(ctx, query, now)
}

func (r *postgresGameRepository) ListFinishedScheduled(ctx context.Context, exec SQLExecutor, now time.Time) ([]models.Game, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT ` + gameColumns + `
		FROM games
		WHERE status = $1 AND end_time <= $2
		ORDER BY end_time, id`

	rows, err := executor.QueryContext(ctx, query, models.GameStatusScheduled, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGames(rows)
}

func (r *postgresGameRepository) queryGames(ctx context.Context, query string, args ...interface{}) ([]models.Game, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGames(rows)
}

func collectGames(rows *sql.Rows) ([]models.Game, error) {
	games := make([]models.Game, 0)
	for rows.Next() {
		var g models.Game
		if scanErr := scanGame(rows, &g); scanErr != nil {
			return nil, scanErr
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func (r *postgresGameRepository) handleGameError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "game_requests_game_id_user_id_key" {
				return ErrJoinRequestConflict
			}
		case "23503":
			switch pqErr.Constraint {
			case "games_admin_id_fkey":
				return ErrGameInvalidAdmin
			case "game_players_user_id_fkey", "game_requests_user_id_fkey", "game_queries_user_id_fkey":
				return ErrGamePlayerInvalid
			case "game_players_game_id_fkey", "game_requests_game_id_fkey", "game_queries_game_id_fkey":
				return ErrGameNotFound
			}
		}
	}
	return err
}

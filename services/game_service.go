package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Dosada05/game-booking-system/live"
	"github.com/Dosada05/game-booking-system/models"
	"github.com/Dosada05/game-booking-system/repositories"
	"github.com/Dosada05/game-booking-system/slots"
	"golang.org/x/sync/errgroup"
)

// Предел одновременных запросов к справочнику пользователей при
// декорировании списков игр.
const decorateConcurrency = 8

// CreateGameInput — данные для создания игры. Дата и время приходят в виде
// пользовательских меток и разбираются один раз при записи.
type CreateGameInput struct {
	Sport          string `json:"sport"`
	Area           string `json:"area"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	TotalPlayers   int    `json:"total_players"`
	ActivityAccess string `json:"activity_access"`
}

// GameView — игра, декорированная для выдачи: метки времени, данные
// организатора и положение текущего пользователя относительно игры.
type GameView struct {
	models.Game
	DateLabel         string  `json:"date"`
	TimeLabel         string  `json:"time"`
	AdminName         string  `json:"admin_name"`
	AdminAvatarURL    *string `json:"admin_avatar_url,omitempty"`
	IsUserAdmin       bool    `json:"is_user_admin"`
	IsInProgress      bool    `json:"is_in_progress"`
	UserRequestStatus *string `json:"user_request_status,omitempty"`
}

// GameService инкапсулирует жизненный цикл игры: состав, заявки, флаг
// закрытия и завершение по времени.
type GameService interface {
	CreateGame(ctx context.Context, adminID int, input CreateGameInput) (*models.Game, error)
	RequestJoin(ctx context.Context, gameID, userID int, comment string) error
	CancelRequest(ctx context.Context, gameID, userID int) error
	AcceptRequest(ctx context.Context, gameID, requesterID, actingAdminID int) error
	ToggleMatchFull(ctx context.Context, gameID, actingAdminID int) (bool, error)
	SubmitQuery(ctx context.Context, gameID, userID int, text string) error
	ListUpcoming(ctx context.Context, userID int) ([]GameView, error)
	ListCurrent(ctx context.Context, userID int) ([]GameView, error)
	ListPlayers(ctx context.Context, gameID int) ([]models.PlayerProfile, error)
	ListRequests(ctx context.Context, gameID int) ([]models.JoinRequest, error)
	CompleteFinishedGames(ctx context.Context) (int, error)
}

// ProfileURLResolver резолвит ключ файла в публичный URL (аватары игроков).
type ProfileURLResolver interface {
	GetPublicURL(key string) string
}

type gameService struct {
	tx       repositories.TxRunner
	games    repositories.GameRepository
	users    repositories.UserRepository
	hub      *live.Hub
	emails   *EmailService
	resolver ProfileURLResolver
	logger   *slog.Logger
	now      func() time.Time
}

func NewGameService(
	tx repositories.TxRunner,
	games repositories.GameRepository,
	users repositories.UserRepository,
	hub *live.Hub,
	emails *EmailService,
	resolver ProfileURLResolver,
	logger *slog.Logger,
) GameService {
	return &gameService{
		tx:       tx,
		games:    games,
		users:    users,
		hub:      hub,
		emails:   emails,
		resolver: resolver,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *gameService) CreateGame(ctx context.Context, adminID int, input CreateGameInput) (*models.Game, error) {
	if input.Sport == "" || input.Area == "" || input.Date == "" || input.Time == "" {
		return nil, ErrGameFieldsRequired
	}
	if input.TotalPlayers < 1 {
		return nil, ErrGameInvalidCapacity
	}

	access := models.ActivityAccess(input.ActivityAccess)
	if access == "" {
		access = models.AccessPublic
	}
	if access != models.AccessPublic && access != models.AccessInviteOnly {
		return nil, ErrGameInvalidAccess
	}

	window, err := slots.ParseWindow(input.Date, input.Time, s.now())
	if err != nil {
		return nil, err
	}

	// Проверка пользователя до входа в критическую секцию.
	if _, err := s.users.GetByID(ctx, adminID); err != nil {
		return nil, s.mapUserError(err)
	}

	game := &models.Game{
		Sport:          input.Sport,
		Area:           input.Area,
		StartTime:      window.Start,
		EndTime:        window.End,
		AdminID:        adminID,
		TotalPlayers:   input.TotalPlayers,
		ActivityAccess: access,
		Status:         models.GameStatusScheduled,
	}

	// Создание игры и вступление организатора — одна транзакция: инвариант
	// "организатор всегда в составе" не должен нарушаться даже при сбое.
	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.games.Create(ctx, exec, game)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	game.PlayerIDs = []int{adminID}
	return game, nil
}

func (s *gameService) RequestJoin(ctx context.Context, gameID, userID int, comment string) error {
	if comment == "" {
		return ErrCommentRequired
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return s.mapUserError(err)
	}

	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		game, err := s.games.GetByIDForUpdate(ctx, exec, gameID)
		if err != nil {
			return s.mapGameError(err)
		}
		if s.windowOf(game).IsPast(s.now()) {
			return ErrGameAlreadyPlayed
		}
		if game.MatchFull {
			return ErrGameClosed
		}

		isMember, err := s.games.HasPlayer(ctx, exec, gameID, userID)
		if err != nil {
			return err
		}
		if isMember {
			return ErrAlreadyMember
		}

		request := &models.JoinRequest{
			GameID:  gameID,
			UserID:  userID,
			Comment: comment,
			Status:  models.JoinRequestStatusPending,
		}
		if err := s.games.CreateRequest(ctx, exec, request); err != nil {
			if errors.Is(err, repositories.ErrJoinRequestConflict) {
				return ErrDuplicateRequest
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.broadcast(gameID, live.EventRequestCreated, map[string]int{"user_id": userID})
	return nil
}

func (s *gameService) CancelRequest(ctx context.Context, gameID, userID int) error {
	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		game, err := s.games.GetByIDForUpdate(ctx, exec, gameID)
		if err != nil {
			return s.mapGameError(err)
		}
		if s.windowOf(game).IsPast(s.now()) {
			return ErrGameAlreadyPlayed
		}
		if err := s.games.DeleteRequest(ctx, exec, gameID, userID); err != nil {
			if errors.Is(err, repositories.ErrJoinRequestNotFound) {
				return ErrJoinRequestNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.broadcast(gameID, live.EventRequestCancelled, map[string]int{"user_id": userID})
	return nil
}

func (s *gameService) AcceptRequest(ctx context.Context, gameID, requesterID, actingAdminID int) error {
	requester, err := s.users.GetByID(ctx, requesterID)
	if err != nil {
		return s.mapUserError(err)
	}

	var game *models.Game
	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		game, err = s.games.GetByIDForUpdate(ctx, exec, gameID)
		if err != nil {
			return s.mapGameError(err)
		}
		if game.AdminID != actingAdminID {
			return ErrAdminActionForbidden
		}
		if s.windowOf(game).IsPast(s.now()) {
			return ErrGameAlreadyPlayed
		}

		if err := s.games.DeleteRequest(ctx, exec, gameID, requesterID); err != nil {
			if errors.Is(err, repositories.ErrJoinRequestNotFound) {
				return ErrJoinRequestNotFound
			}
			return err
		}

		isMember, err := s.games.HasPlayer(ctx, exec, gameID, requesterID)
		if err != nil {
			return err
		}
		if isMember {
			// Игрок уже в составе, добавление идемпотентно.
			return nil
		}

		count, err := s.games.CountPlayers(ctx, exec, gameID)
		if err != nil {
			return err
		}
		if count >= game.TotalPlayers {
			return ErrGameFull
		}

		return s.games.AddPlayer(ctx, exec, gameID, requesterID)
	})
	if err != nil {
		return err
	}

	s.broadcast(gameID, live.EventRosterUpdated, map[string]int{"user_id": requesterID})
	if s.emails != nil {
		window := s.windowOf(game)
		if mailErr := s.emails.SendRequestAcceptedEmail(requester.Email, game.Sport, window.DateLabel(), window.TimeLabel()); mailErr != nil {
			s.log().Warn("failed to send acceptance email",
				slog.Int("game_id", gameID), slog.Int("user_id", requesterID), slog.Any("error", mailErr))
		}
	}
	return nil
}

func (s *gameService) ToggleMatchFull(ctx context.Context, gameID, actingAdminID int) (bool, error) {
	var newValue bool
	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		game, err := s.games.GetByIDForUpdate(ctx, exec, gameID)
		if err != nil {
			return s.mapGameError(err)
		}
		if game.AdminID != actingAdminID {
			return ErrAdminActionForbidden
		}
		if s.windowOf(game).IsPast(s.now()) {
			return ErrGameAlreadyPlayed
		}
		newValue = !game.MatchFull
		return s.games.SetMatchFull(ctx, exec, gameID, newValue)
	})
	if err != nil {
		return false, err
	}

	s.broadcast(gameID, live.EventMatchFullToggled, map[string]bool{"match_full": newValue})
	return newValue, nil
}

func (s *gameService) SubmitQuery(ctx context.Context, gameID, userID int, text string) error {
	if text == "" {
		return ErrQueryTextRequired
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return s.mapUserError(err)
	}
	if _, err := s.games.GetByID(ctx, nil, gameID); err != nil {
		return s.mapGameError(err)
	}

	query := &models.GameQuery{GameID: gameID, UserID: userID, Text: text}
	return s.games.CreateQuery(ctx, query)
}

// ListUpcoming возвращает игры пользователя (организатор, игрок или податель
// заявки), окно которых ещё не закончилось, по возрастанию времени начала.
func (s *gameService) ListUpcoming(ctx context.Context, userID int) ([]GameView, error) {
	games, err := s.games.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	current := games[:0]
	for _, g := range games {
		if !s.windowOf(&g).IsPast(now) {
			current = append(current, g)
		}
	}

	views, err := s.decorate(ctx, current, userID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(views, func(i, j int) bool {
		return slots.CompareByStart(s.windowOf(&views[i].Game), s.windowOf(&views[j].Game)) < 0
	})
	return views, nil
}

// ListCurrent возвращает все незавершённые игры, новые первыми.
func (s *gameService) ListCurrent(ctx context.Context, userID int) ([]GameView, error) {
	games, err := s.games.ListCurrent(ctx, s.now())
	if err != nil {
		return nil, err
	}
	return s.decorate(ctx, games, userID)
}

func (s *gameService) ListPlayers(ctx context.Context, gameID int) ([]models.PlayerProfile, error) {
	if _, err := s.games.GetByID(ctx, nil, gameID); err != nil {
		return nil, s.mapGameError(err)
	}
	ids, err := s.games.ListPlayerIDs(ctx, nil, gameID)
	if err != nil {
		return nil, err
	}
	return s.profilesByIDs(ctx, ids)
}

func (s *gameService) ListRequests(ctx context.Context, gameID int) ([]models.JoinRequest, error) {
	if _, err := s.games.GetByID(ctx, nil, gameID); err != nil {
		return nil, s.mapGameError(err)
	}
	requests, err := s.games.ListRequests(ctx, gameID)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(requests))
	for _, req := range requests {
		ids = append(ids, req.UserID)
	}
	profiles, err := s.profilesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int]models.PlayerProfile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}
	for i := range requests {
		if p, ok := byID[requests[i].UserID]; ok {
			profile := p
			requests[i].Requester = &profile
		}
	}
	return requests, nil
}

// CompleteFinishedGames помечает завершённые по времени игры. Вызывается
// планировщиком с низкой частотой; корректность ядра от него не зависит.
func (s *gameService) CompleteFinishedGames(ctx context.Context) (int, error) {
	var finished []models.Game
	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		games, err := s.games.ListFinishedScheduled(ctx, exec, s.now())
		if err != nil {
			return err
		}
		for _, g := range games {
			if err := s.games.UpdateStatus(ctx, exec, g.ID, models.GameStatusCompleted); err != nil {
				return err
			}
		}
		finished = games
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, g := range finished {
		s.broadcast(g.ID, live.EventGameCompleted, map[string]int{"game_id": g.ID})
	}
	return len(finished), nil
}

// decorate загружает составы, заявки и профили параллельно, по игре на горутину.
func (s *gameService) decorate(ctx context.Context, games []models.Game, userID int) ([]GameView, error) {
	views := make([]GameView, len(games))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(decorateConcurrency)

	now := s.now()
	for i := range games {
		i := i
		group.Go(func() error {
			game := games[i]

			playerIDs, err := s.games.ListPlayerIDs(groupCtx, nil, game.ID)
			if err != nil {
				return err
			}
			game.PlayerIDs = playerIDs
			game.Players, err = s.profilesByIDs(groupCtx, playerIDs)
			if err != nil {
				return err
			}
			game.Requests, err = s.games.ListRequests(groupCtx, game.ID)
			if err != nil {
				return err
			}
			game.Queries, err = s.games.ListQueries(groupCtx, game.ID)
			if err != nil {
				return err
			}

			admin, err := s.users.GetByID(groupCtx, game.AdminID)
			if err != nil {
				return fmt.Errorf("failed to load admin %d for game %d: %w", game.AdminID, game.ID, err)
			}

			window := s.windowOf(&game)
			view := GameView{
				Game:         game,
				DateLabel:    window.DateLabel(),
				TimeLabel:    window.TimeLabel(),
				AdminName:    admin.DisplayName(),
				IsUserAdmin:  game.AdminID == userID,
				IsInProgress: window.IsInProgress(now),
			}
			view.AdminAvatarURL = s.avatarURL(admin)
			for _, req := range game.Requests {
				if req.UserID == userID {
					status := req.Status
					view.UserRequestStatus = &status
					break
				}
			}
			views[i] = view
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

func (s *gameService) profilesByIDs(ctx context.Context, ids []int) ([]models.PlayerProfile, error) {
	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	// Сохраняем порядок идентификаторов; пропавшие пользователи пропускаются.
	profiles := make([]models.PlayerProfile, 0, len(ids))
	for _, id := range ids {
		u, ok := byID[id]
		if !ok {
			continue
		}
		profiles = append(profiles, models.PlayerProfile{
			ID:        u.ID,
			Name:      u.DisplayName(),
			AvatarURL: s.avatarURL(&u),
		})
	}
	return profiles, nil
}

func (s *gameService) avatarURL(u *models.User) *string {
	if u.AvatarKey == nil || s.resolver == nil {
		return nil
	}
	url := s.resolver.GetPublicURL(*u.AvatarKey)
	return &url
}

func (s *gameService) windowOf(g *models.Game) slots.Window {
	return slots.Window{Start: g.StartTime, End: g.EndTime}
}

func (s *gameService) broadcast(gameID int, event string, payload interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToRoom(live.GameRoom(gameID), live.Message{Type: event, Payload: payload})
}

func (s *gameService) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func (s *gameService) mapGameError(err error) error {
	if errors.Is(err, repositories.ErrGameNotFound) {
		return ErrGameNotFound
	}
	return err
}

func (s *gameService) mapUserError(err error) error {
	if errors.Is(err, repositories.ErrUserNotFound) {
		return ErrUserNotFound
	}
	return err
}

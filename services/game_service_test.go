package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dosada05/game-booking-system/models"
)

// Фиксированный момент "сейчас" для всех тестов жизненного цикла игр.
var testNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func newTestGameService(users *fakeUserRepo, games *fakeGameRepo) *gameService {
	svc := NewGameService(passthroughTxRunner{}, games, users, nil, nil, nil, nil).(*gameService)
	svc.now = func() time.Time { return testNow }
	return svc
}

func testUsers() *fakeUserRepo {
	return newFakeUserRepo(
		models.User{ID: 1, FirstName: "Ivan", LastName: "Petrov", Email: "ivan@example.com", Role: models.RolePlayer},
		models.User{ID: 2, FirstName: "Anna", Email: "anna@example.com", Role: models.RolePlayer},
		models.User{ID: 3, FirstName: "Oleg", Email: "oleg@example.com", Role: models.RolePlayer},
		models.User{ID: 4, FirstName: "Dina", Email: "dina@example.com", Role: models.RolePlayer},
	)
}

func createTestGame(t *testing.T, svc *gameService, adminID int, input CreateGameInput) *models.Game {
	t.Helper()
	game, err := svc.CreateGame(context.Background(), adminID, input)
	if err != nil {
		t.Fatalf("CreateGame: unexpected error: %v", err)
	}
	return game
}

func defaultGameInput() CreateGameInput {
	return CreateGameInput{
		Sport:        "Badminton",
		Area:         "Riverside Arena",
		Date:         "5th June",
		Time:         "5:00 PM - 6:00 PM",
		TotalPlayers: 4,
	}
}

func TestCreateGameValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateGameInput)
		wantErr error
	}{
		{"missing sport", func(in *CreateGameInput) { in.Sport = "" }, ErrGameFieldsRequired},
		{"missing area", func(in *CreateGameInput) { in.Area = "" }, ErrGameFieldsRequired},
		{"missing date", func(in *CreateGameInput) { in.Date = "" }, ErrGameFieldsRequired},
		{"missing time", func(in *CreateGameInput) { in.Time = "" }, ErrGameFieldsRequired},
		{"zero capacity", func(in *CreateGameInput) { in.TotalPlayers = 0 }, ErrGameInvalidCapacity},
		{"unknown access", func(in *CreateGameInput) { in.ActivityAccess = "secret" }, ErrGameInvalidAccess},
	}

	svc := newTestGameService(testUsers(), newFakeGameRepo())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := defaultGameInput()
			tc.mutate(&input)
			_, err := svc.CreateGame(context.Background(), 1, input)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("got error %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCreateGameMalformedTimeLabel(t *testing.T) {
	svc := newTestGameService(testUsers(), newFakeGameRepo())
	input := defaultGameInput()
	input.Time = "5:00 PM to 6:00 PM"
	if _, err := svc.CreateGame(context.Background(), 1, input); err == nil {
		t.Fatal("expected parse error for malformed time label")
	}
}

func TestCreateGameAdminJoinsRoster(t *testing.T) {
	games := newFakeGameRepo()
	svc := newTestGameService(testUsers(), games)

	game := createTestGame(t, svc, 1, defaultGameInput())

	if game.StartTime.IsZero() || game.EndTime.IsZero() {
		t.Fatal("expected structured start/end times to be set")
	}
	if game.StartTime.Day() != 5 || game.StartTime.Month() != time.June || game.StartTime.Hour() != 17 {
		t.Errorf("unexpected start time: %v", game.StartTime)
	}

	players, err := svc.ListPlayers(context.Background(), game.ID)
	if err != nil {
		t.Fatalf("ListPlayers: %v", err)
	}
	if len(players) != 1 || players[0].ID != 1 {
		t.Errorf("expected roster to contain only the admin, got %+v", players)
	}
}

func TestRequestJoinLifecycle(t *testing.T) {
	games := newFakeGameRepo()
	svc := newTestGameService(testUsers(), games)
	game := createTestGame(t, svc, 1, defaultGameInput())
	ctx := context.Background()

	if err := svc.RequestJoin(ctx, game.ID, 2, ""); !errors.Is(err, ErrCommentRequired) {
		t.Errorf("empty comment: got %v, want %v", err, ErrCommentRequired)
	}
	if err := svc.RequestJoin(ctx, game.ID, 2, "можно к вам?"); err != nil {
		t.Fatalf("RequestJoin: %v", err)
	}
	if err := svc.RequestJoin(ctx, game.ID, 2, "ещё раз"); !errors.Is(err, ErrDuplicateRequest) {
		t.Errorf("duplicate request: got %v, want %v", err, ErrDuplicateRequest)
	}
	if err := svc.RequestJoin(ctx, game.ID, 1, "хочу к себе"); !errors.Is(err, ErrAlreadyMember) {
		t.Errorf("member request: got %v, want %v", err, ErrAlreadyMember)
	}
	if err := svc.RequestJoin(ctx, 999, 2, "куда-то"); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("missing game: got %v, want %v", err, ErrGameNotFound)
	}

	requests, err := svc.ListRequests(ctx, game.ID)
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	if len(requests) != 1 || requests[0].UserID != 2 {
		t.Fatalf("expected a single pending request from user 2, got %+v", requests)
	}
	if requests[0].Status != models.JoinRequestStatusPending {
		t.Errorf("request status = %q, want %q", requests[0].Status, models.JoinRequestStatusPending)
	}
	if requests[0].Requester == nil || requests[0].Requester.Name == "" {
		t.Error("expected requester profile to be attached")
	}
}

func TestRequestJoinClosedGame(t *testing.T) {
	games := newFakeGameRepo()
	svc := newTestGameService(testUsers(), games)
	game := createTestGame(t, svc, 1, defaultGameInput())
	ctx := context.Background()

	if _, err := svc.ToggleMatchFull(ctx, game.ID, 1); err != nil {
		t.Fatalf("ToggleMatchFull: %v", err)
	}
	if err := svc.RequestJoin(ctx, game.ID, 2, "пустите"); !errors.Is(err, ErrGameClosed) {
		t.Errorf("closed game: got %v, want %v", err, ErrGameClosed)
	}
}

func TestRequestJoinPastGame(t *testing.T) {
	games := newFakeGameRepo()
	svc := newTestGameService(testUsers(), games)

	input := defaultGameInput()
	input.Date = "1st June"
	input.Time = "9:00 AM - 10:00 AM" // Уже сыграна относительно testNow
	game := createTestGame(t, svc, 1, input)

	if err := svc.RequestJoin(context.Background(), game.ID, 2, "поздно"); !errors.Is(err, ErrGameAlreadyPlayed) {
		t.Errorf("past game: got %v, want %v", err, ErrGameAlreadyPlayed)
	}
}

func TestAcceptRequest(t *testing.T) {
	games := newFakeGameRepo()
	svc := newTestGameService(testUsers(), games)
	game := createTestGame(t, svc, 1, defaultGameInput())
	ctx := context.Background()

	if err := svc.RequestJoin(ctx, game.ID, 2, "прошусь"); err != nil {
		t.Fatalf("RequestJoin: %v", err)
	}

	if err := svc.AcceptRequest(ctx, game.ID, 2, 3); !errors.Is(err, ErrAdminActionForbidden) {
		t.Errorf("non-admin accept: got %v, want %v", err, ErrAdminActionForbidden)
	}
	if err := svc.AcceptRequest(ctx, game.ID, 3, 1); !errors.Is(err, ErrJoinRequestNotFound) {
		t.Errorf("accept without request: got %v, want %v", err, ErrJoinRequestNotFound)
	}

	if err := svc.AcceptRequest(ctx, game.ID, 2, 1); err != nil {
		t.Fatalf("AcceptRequest: %v", err)
	}

	players, err := svc.ListPlayers(ctx, game.ID)
	if err != nil {
		t.Fatalf("ListPlayers: %v", err)
	}
	if len(players) != 2 {
		t.Fatalf("expected 2 players after accept, got %d", len(players))
	}
	requests, err := svc.ListRequests(ctx, game.ID)
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	if len(requests) != 0 {
		t.Errorf("expected request to be consumed, got %+v", requests)
	}
}

func TestAcceptRequestCapacity(t *testing.T) {
	games := newFakeGameRepo()
	svc := newTestGameService(testUsers(), games)

	input := defaultGameInput()
	input.TotalPlayers = 2
	game := createTestGame(t, svc, 1, input)
	ctx := context.Background()

	for _, userID := range []int{2, 3} {
		if err := svc.RequestJoin(ctx, game.ID, userID, "заявка"); err != nil {
			t.Fatalf("RequestJoin(%d): %v", userID, err)
		}
	}
	if err := svc.AcceptRequest(ctx, game.ID, 2, 1); err != nil {
		t.Fatalf("AcceptRequest(2): %v", err)
	}
	// Состав полон: организатор + второй игрок.
	if err := svc.AcceptRequest(ctx, game.ID, 3, 1); !errors.Is(err, ErrGameFull) {
		t.Errorf("accept over capacity: got %v, want %v", err, ErrGameFull)
	}
}

func TestToggleMatchFull(t *testing.T) {
	games := newFakeGameRepo()
	svc := newTestGameService(testUsers(), games)
	game := createTestGame(t, svc, 1, defaultGameInput())
	ctx := context.Background()

	if _, err := svc.ToggleMatchFull(ctx, game.ID, 2); !errors.Is(err, ErrAdminActionForbidden) {
		t.Errorf("non-admin toggle: got %v, want %v", err, ErrAdminActionForbidden)
	}

	on, err := svc.ToggleMatchFull(ctx, game.ID, 1)
	if err != nil {
		t.Fatalf("ToggleMatchFull: %v", err)
	}
	if !on {
		t.Error("first toggle should close the game")
	}
	off, err := svc.ToggleMatchFull(ctx, game.ID, 1)
	if err != nil {
		t.Fatalf("ToggleMatchFull: %v", err)
	}
	if off {
		t.Error("second toggle should reopen the game")
	}
}

// Сыгранная игра доступна только для чтения: ни флаг закрытия,
// ни заявки после конца окна не изменяются.
func TestPastGameIsReadOnly(t *testing.T) {
	games := newFakeGameRepo()
	svc := newTestGameService(testUsers(), games)
	ctx := context.Background()

	game := createTestGame(t, svc, 1, defaultGameInput())
	if err := svc.RequestJoin(ctx, game.ID, 2, "успею до конца"); err != nil {
		t.Fatalf("RequestJoin: %v", err)
	}

	// Окно игры (5th June, 5:00-6:00 PM) закончилось.
	svc.now = func() time.Time {
		return time.Date(2025, time.June, 5, 19, 0, 0, 0, time.UTC)
	}

	if _, err := svc.ToggleMatchFull(ctx, game.ID, 1); !errors.Is(err, ErrGameAlreadyPlayed) {
		t.Errorf("toggle on past game: got %v, want %v", err, ErrGameAlreadyPlayed)
	}
	if err := svc.CancelRequest(ctx, game.ID, 2); !errors.Is(err, ErrGameAlreadyPlayed) {
		t.Errorf("cancel on past game: got %v, want %v", err, ErrGameAlreadyPlayed)
	}
	if err := svc.AcceptRequest(ctx, game.ID, 2, 1); !errors.Is(err, ErrGameAlreadyPlayed) {
		t.Errorf("accept on past game: got %v, want %v", err, ErrGameAlreadyPlayed)
	}

	requests, err := svc.ListRequests(ctx, game.ID)
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	if len(requests) != 1 {
		t.Errorf("request set must stay intact, got %+v", requests)
	}
}

func TestCancelRequest(t *testing.T) {
	games := newFakeGameRepo()
	svc := newTestGameService(testUsers(), games)
	game := createTestGame(t, svc, 1, defaultGameInput())
	ctx := context.Background()

	if err := svc.CancelRequest(ctx, game.ID, 2); !errors.Is(err, ErrJoinRequestNotFound) {
		t.Errorf("cancel without request: got %v, want %v", err, ErrJoinRequestNotFound)
	}

	if err := svc.RequestJoin(ctx, game.ID, 2, "передумаю"); err != nil {
		t.Fatalf("RequestJoin: %v", err)
	}
	if err := svc.CancelRequest(ctx, game.ID, 2); err != nil {
		t.Fatalf("CancelRequest: %v", err)
	}

	requests, err := svc.ListRequests(ctx, game.ID)
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	if len(requests) != 0 {
		t.Errorf("expected no requests after cancel, got %+v", requests)
	}
}

func TestSubmitQuery(t *testing.T) {
	games := newFakeGameRepo()
	svc := newTestGameService(testUsers(), games)
	game := createTestGame(t, svc, 1, defaultGameInput())
	ctx := context.Background()

	if err := svc.SubmitQuery(ctx, game.ID, 2, ""); !errors.Is(err, ErrQueryTextRequired) {
		t.Errorf("empty query: got %v, want %v", err, ErrQueryTextRequired)
	}
	if err := svc.SubmitQuery(ctx, game.ID, 2, "Взять свою ракетку?"); err != nil {
		t.Fatalf("SubmitQuery: %v", err)
	}

	queries, err := games.ListQueries(ctx, game.ID)
	if err != nil {
		t.Fatalf("ListQueries: %v", err)
	}
	if len(queries) != 1 || queries[0].Text != "Взять свою ракетку?" {
		t.Errorf("unexpected stored queries: %+v", queries)
	}
}

func TestListUpcomingFiltersAndSorts(t *testing.T) {
	games := newFakeGameRepo()
	svc := newTestGameService(testUsers(), games)
	ctx := context.Background()

	later := defaultGameInput()
	later.Time = "7:00 PM - 8:00 PM"
	earlier := defaultGameInput()
	earlier.Time = "9:00 AM - 10:00 AM"
	past := defaultGameInput()
	past.Date = "1st June"
	past.Time = "8:00 AM - 9:00 AM"

	// Создаём в обратном хронологическом порядке, чтобы проверить сортировку.
	createTestGame(t, svc, 1, later)
	createTestGame(t, svc, 1, earlier)
	createTestGame(t, svc, 1, past)

	views, err := svc.ListUpcoming(ctx, 1)
	if err != nil {
		t.Fatalf("ListUpcoming: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 upcoming games, got %d", len(views))
	}
	if !views[0].StartTime.Before(views[1].StartTime) {
		t.Error("expected ascending order by start time")
	}
	if views[0].TimeLabel != "9:00 AM - 10:00 AM" {
		t.Errorf("unexpected first time label: %q", views[0].TimeLabel)
	}
	if views[0].DateLabel != "5th June" {
		t.Errorf("unexpected date label: %q", views[0].DateLabel)
	}
	if !views[0].IsUserAdmin {
		t.Error("expected IsUserAdmin for the organizer")
	}
}

func TestListUpcomingShowsRequestStatus(t *testing.T) {
	games := newFakeGameRepo()
	svc := newTestGameService(testUsers(), games)
	ctx := context.Background()

	game := createTestGame(t, svc, 1, defaultGameInput())
	if err := svc.RequestJoin(ctx, game.ID, 2, "возьмите"); err != nil {
		t.Fatalf("RequestJoin: %v", err)
	}

	views, err := svc.ListUpcoming(ctx, 2)
	if err != nil {
		t.Fatalf("ListUpcoming: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected the requested game in user feed, got %d games", len(views))
	}
	if views[0].UserRequestStatus == nil || *views[0].UserRequestStatus != models.JoinRequestStatusPending {
		t.Errorf("unexpected request status: %v", views[0].UserRequestStatus)
	}
	if views[0].IsUserAdmin {
		t.Error("requester must not be marked as admin")
	}
}

func TestCompleteFinishedGames(t *testing.T) {
	games := newFakeGameRepo()
	svc := newTestGameService(testUsers(), games)
	ctx := context.Background()

	past := defaultGameInput()
	past.Date = "1st June"
	past.Time = "8:00 AM - 9:00 AM"
	finished := createTestGame(t, svc, 1, past)
	upcoming := createTestGame(t, svc, 1, defaultGameInput())

	n, err := svc.CompleteFinishedGames(ctx)
	if err != nil {
		t.Fatalf("CompleteFinishedGames: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 completed game, got %d", n)
	}

	g, err := games.GetByID(ctx, nil, finished.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if g.Status != models.GameStatusCompleted {
		t.Errorf("finished game status = %q, want %q", g.Status, models.GameStatusCompleted)
	}
	g, err = games.GetByID(ctx, nil, upcoming.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if g.Status != models.GameStatusScheduled {
		t.Errorf("upcoming game status = %q, want %q", g.Status, models.GameStatusScheduled)
	}

	// Повторный прогон идемпотентен.
	n, err = svc.CompleteFinishedGames(ctx)
	if err != nil {
		t.Fatalf("CompleteFinishedGames: %v", err)
	}
	if n != 0 {
		t.Errorf("second sweep should complete nothing, got %d", n)
	}
}

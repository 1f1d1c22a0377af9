package services

import (
	"context"
	"sort"
	"time"

	"github.com/Dosada05/game-booking-system/models"
	"github.com/Dosada05/game-booking-system/repositories"
)

// passthroughTxRunner выполняет функцию без реальной транзакции:
// сервисный слой тестируется на репозиториях в памяти.
type passthroughTxRunner struct{}

func (passthroughTxRunner) RunInTx(ctx context.Context, fn func(repositories.SQLExecutor) error) error {
	return fn(nil)
}

type fakeUserRepo struct {
	users map[int]models.User
}

func newFakeUserRepo(users ...models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[int]models.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeUserRepo) Create(ctx context.Context, u *models.User) error {
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	u.ID = len(r.users) + 1
	r.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) ListByIDs(ctx context.Context, ids []int) ([]models.User, error) {
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) UpdateAvatarKey(ctx context.Context, userID int, avatarKey *string) error {
	u, ok := r.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.AvatarKey = avatarKey
	r.users[userID] = u
	return nil
}

type fakeGameRepo struct {
	nextID        int
	nextRequestID int
	games         map[int]*models.Game
	players       map[int][]int
	requests      map[int][]models.JoinRequest
	queries       map[int][]models.GameQuery
}

func newFakeGameRepo() *fakeGameRepo {
	return &fakeGameRepo{
		games:    make(map[int]*models.Game),
		players:  make(map[int][]int),
		requests: make(map[int][]models.JoinRequest),
		queries:  make(map[int][]models.GameQuery),
	}
}

func (r *fakeGameRepo) Create(ctx context.Context, exec repositories.SQLExecutor, game *models.Game) error {
	r.nextID++
	game.ID = r.nextID
	game.CreatedAt = time.Now()
	copied := *game
	r.games[game.ID] = &copied
	r.players[game.ID] = []int{game.AdminID}
	return nil
}

func (r *fakeGameRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Game, error) {
	g, ok := r.games[id]
	if !ok {
		return nil, repositories.ErrGameNotFound
	}
	copied := *g
	return &copied, nil
}

func (r *fakeGameRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Game, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeGameRepo) ListPlayerIDs(ctx context.Context, exec repositories.SQLExecutor, gameID int) ([]int, error) {
	return append([]int(nil), r.players[gameID]...), nil
}

func (r *fakeGameRepo) HasPlayer(ctx context.Context, exec repositories.SQLExecutor, gameID, userID int) (bool, error) {
	for _, id := range r.players[gameID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeGameRepo) CountPlayers(ctx context.Context, exec repositories.SQLExecutor, gameID int) (int, error) {
	return len(r.players[gameID]), nil
}

func (r *fakeGameRepo) AddPlayer(ctx context.Context, exec repositories.SQLExecutor, gameID, userID int) error {
	for _, id := range r.players[gameID] {
		if id == userID {
			return nil
		}
	}
	r.players[gameID] = append(r.players[gameID], userID)
	return nil
}

func (r *fakeGameRepo) CreateRequest(ctx context.Context, exec repositories.SQLExecutor, request *models.JoinRequest) error {
	for _, req := range r.requests[request.GameID] {
		if req.UserID == request.UserID {
			return repositories.ErrJoinRequestConflict
		}
	}
	r.nextRequestID++
	request.ID = r.nextRequestID
	request.CreatedAt = time.Now()
	r.requests[request.GameID] = append(r.requests[request.GameID], *request)
	return nil
}

func (r *fakeGameRepo) DeleteRequest(ctx context.Context, exec repositories.SQLExecutor, gameID, userID int) error {
	reqs := r.requests[gameID]
	for i, req := range reqs {
		if req.UserID == userID {
			r.requests[gameID] = append(reqs[:i], reqs[i+1:]...)
			return nil
		}
	}
	return repositories.ErrJoinRequestNotFound
}

func (r *fakeGameRepo) ListRequests(ctx context.Context, gameID int) ([]models.JoinRequest, error) {
	return append([]models.JoinRequest(nil), r.requests[gameID]...), nil
}

func (r *fakeGameRepo) CreateQuery(ctx context.Context, query *models.GameQuery) error {
	query.ID = len(r.queries[query.GameID]) + 1
	query.CreatedAt = time.Now()
	r.queries[query.GameID] = append(r.queries[query.GameID], *query)
	return nil
}

func (r *fakeGameRepo) ListQueries(ctx context.Context, gameID int) ([]models.GameQuery, error) {
	return append([]models.GameQuery(nil), r.queries[gameID]...), nil
}

func (r *fakeGameRepo) SetMatchFull(ctx context.Context, exec repositories.SQLExecutor, gameID int, matchFull bool) error {
	g, ok := r.games[gameID]
	if !ok {
		return repositories.ErrGameNotFound
	}
	g.MatchFull = matchFull
	return nil
}

func (r *fakeGameRepo) SetBooked(ctx context.Context, exec repositories.SQLExecutor, gameID, courtNumber int) error {
	g, ok := r.games[gameID]
	if !ok {
		return repositories.ErrGameNotFound
	}
	g.IsBooked = true
	court := courtNumber
	g.CourtNumber = &court
	return nil
}

func (r *fakeGameRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, gameID int, status models.GameStatus) error {
	g, ok := r.games[gameID]
	if !ok {
		return repositories.ErrGameNotFound
	}
	g.Status = status
	return nil
}

func (r *fakeGameRepo) ListForUser(ctx context.Context, userID int) ([]models.Game, error) {
	var out []models.Game
	for _, g := range r.games {
		if r.relatedToUser(g.ID, userID) {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeGameRepo) relatedToUser(gameID, userID int) bool {
	g := r.games[gameID]
	if g.AdminID == userID {
		return true
	}
	for _, id := range r.players[gameID] {
		if id == userID {
			return true
		}
	}
	for _, req := range r.requests[gameID] {
		if req.UserID == userID {
			return true
		}
	}
	return false
}

func (r *fakeGameRepo) ListCurrent(ctx context.Context, now time.Time) ([]models.Game, error) {
	var out []models.Game
	for _, g := range r.games {
		if g.EndTime.After(now) {
			out = append(out, *g)
		}
	}
	// Новые первыми, как в SQL-версии
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *fakeGameRepo) ListFinishedScheduled(ctx context.Context, exec repositories.SQLExecutor, now time.Time) ([]models.Game, error) {
	var out []models.Game
	for _, g := range r.games {
		if g.Status == models.GameStatusScheduled && !g.EndTime.After(now) {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeVenueRepo struct {
	nextID        int
	nextBookingID int
	venues        map[int]*models.Venue
	bookings      []models.Booking
}

func newFakeVenueRepo(venues ...*models.Venue) *fakeVenueRepo {
	repo := &fakeVenueRepo{venues: make(map[int]*models.Venue)}
	for _, v := range venues {
		repo.nextID++
		if v.ID == 0 {
			v.ID = repo.nextID
		}
		repo.venues[v.ID] = v
	}
	return repo
}

func (r *fakeVenueRepo) Create(ctx context.Context, exec repositories.SQLExecutor, venue *models.Venue) error {
	for _, v := range r.venues {
		if v.Name == venue.Name {
			return repositories.ErrVenueNameConflict
		}
	}
	r.nextID++
	venue.ID = r.nextID
	copied := *venue
	r.venues[venue.ID] = &copied
	return nil
}

func (r *fakeVenueRepo) GetByID(ctx context.Context, id int) (*models.Venue, error) {
	v, ok := r.venues[id]
	if !ok {
		return nil, repositories.ErrVenueNotFound
	}
	copied := *v
	copied.Bookings = r.bookingsForVenue(id)
	return &copied, nil
}

func (r *fakeVenueRepo) GetByName(ctx context.Context, name string) (*models.Venue, error) {
	for _, v := range r.venues {
		if v.Name == name {
			copied := *v
			copied.Bookings = r.bookingsForVenue(v.ID)
			return &copied, nil
		}
	}
	return nil, repositories.ErrVenueNotFound
}

func (r *fakeVenueRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	for _, v := range r.venues {
		if v.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeVenueRepo) List(ctx context.Context) ([]models.Venue, error) {
	out := make([]models.Venue, 0, len(r.venues))
	for _, v := range r.venues {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeVenueRepo) LockCourt(ctx context.Context, exec repositories.SQLExecutor, venueID int, sport string, courtNumber int) (*models.Court, error) {
	v, ok := r.venues[venueID]
	if !ok {
		return nil, repositories.ErrCourtNotFound
	}
	for _, s := range v.SportsAvailable {
		if s.Name != sport {
			continue
		}
		for _, c := range s.Courts {
			if c.Number == courtNumber {
				court := c
				return &court, nil
			}
		}
	}
	return nil, repositories.ErrCourtNotFound
}

func (r *fakeVenueRepo) ListBookingsForDay(ctx context.Context, exec repositories.SQLExecutor, venueID int, sport string, day time.Time) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range r.bookings {
		if b.VenueID != venueID || b.Sport != sport {
			continue
		}
		sameDay := b.StartTime.Year() == day.Year() && b.StartTime.YearDay() == day.YearDay()
		if sameDay {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeVenueRepo) CreateBooking(ctx context.Context, exec repositories.SQLExecutor, booking *models.Booking) error {
	r.nextBookingID++
	booking.ID = r.nextBookingID
	booking.CreatedAt = time.Now()
	r.bookings = append(r.bookings, *booking)
	return nil
}

func (r *fakeVenueRepo) bookingsForVenue(venueID int) []models.Booking {
	var out []models.Booking
	for _, b := range r.bookings {
		if b.VenueID == venueID {
			out = append(out, b)
		}
	}
	return out
}

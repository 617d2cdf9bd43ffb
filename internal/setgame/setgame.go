package setgame

import (
	"math/rand"
	"slices"
	"sort"
	"time"

	"set-game-server/internal/game"
)

const (
	NumSeats      = 6
	RequiredVotes = 4
)

type Team string

const (
	TeamNone Team = ""
	TeamA    Team = "A"
	TeamB    Team = "B"
)

func (t Team) Valid() bool {
	return t == TeamA || t == TeamB
}

func (t Team) Opponent() Team {
	switch t {
	case TeamA:
		return TeamB
	case TeamB:
		return TeamA
	}
	return TeamNone
}

// TeamForSeat follows the seating convention: even seats are A, odd seats B.
func TeamForSeat(seat int) Team {
	if seat%2 == 0 {
		return TeamA
	}
	return TeamB
}

func preferredSeats(t Team) []int {
	if t == TeamA {
		return []int{0, 2, 4}
	}
	return []int{1, 3, 5}
}

type Phase string

const (
	PhaseLobby   Phase = "lobby"
	PhaseReady   Phase = "ready"
	PhasePlaying Phase = "playing"
	PhaseEnded   Phase = "ended"
)

type Player struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Avatar           string      `json:"avatar"`
	Team             Team        `json:"team"`
	Seat             *int        `json:"seat"`
	Hand             []game.Card `json:"hand"`
	Connected        bool        `json:"connected"`
	IsSpectator      bool        `json:"is_spectator"`
	SpectatorPending bool        `json:"spectator_request_pending"`
}

func (p *Player) Seated() bool {
	return p.Seat != nil
}

func (p *Player) HasCards() bool {
	return len(p.Hand) > 0
}

func (p *Player) holds(c game.Card) bool {
	return slices.Contains(p.Hand, c)
}

// ranksIn returns the ranks of the given set held by the player.
func (p *Player) ranksIn(suit game.Suit, setType game.SetType) map[game.Rank]bool {
	ranks := make(map[game.Rank]bool)
	for _, c := range p.Hand {
		if c.InSet(suit, setType) {
			ranks[c.Rank] = true
		}
	}
	return ranks
}

// take removes and returns the cards for which match is true.
func (p *Player) take(match func(game.Card) bool) []game.Card {
	var kept, taken []game.Card
	for _, c := range p.Hand {
		if match(c) {
			taken = append(taken, c)
		} else {
			kept = append(kept, c)
		}
	}
	if kept == nil {
		kept = []game.Card{}
	}
	p.Hand = kept
	return taken
}

// give appends cards the player does not already hold.
func (p *Player) give(cards []game.Card) {
	for _, c := range cards {
		if !p.holds(c) {
			p.Hand = append(p.Hand, c)
		}
	}
}

// TableSet is a captured set. Cards is always the canonical rank list.
type TableSet struct {
	Suit      game.Suit    `json:"suit"`
	SetType   game.SetType `json:"set_type"`
	Cards     []game.Card  `json:"cards"`
	OwnerTeam Team         `json:"owner_team"`
}

type RoomState struct {
	RoomID            string             `json:"room_id"`
	Players           map[string]*Player `json:"players"`
	Seats             Seats              `json:"seats"`
	TeamScores        map[Team]int       `json:"team_scores"`
	TableSets         []TableSet         `json:"table_sets"`
	Phase             Phase              `json:"phase"`
	TurnPlayer        string             `json:"turn_player,omitempty"`
	AskChainFrom      string             `json:"ask_chain_from,omitempty"`
	CurrentDealer     string             `json:"current_dealer,omitempty"`
	DeckCount         int                `json:"deck_count"`
	AbortVotes        map[string]bool    `json:"abort_votes"`
	BackToLobbyVotes  map[string]bool    `json:"back_to_lobby_votes"`
	LobbyLocked       bool               `json:"lobby_locked"`
	AdminPlayerID     string             `json:"admin_player_id,omitempty"`
	SpectatorRequests map[string]string  `json:"spectator_requests"`
	Version           int                `json:"version"`
}

const stateVersion = 1

func newRoomState(roomID string) RoomState {
	return RoomState{
		RoomID:            roomID,
		Players:           make(map[string]*Player),
		TeamScores:        map[Team]int{TeamA: 0, TeamB: 0},
		TableSets:         []TableSet{},
		Phase:             PhaseLobby,
		AbortVotes:        make(map[string]bool),
		BackToLobbyVotes:  make(map[string]bool),
		SpectatorRequests: make(map[string]string),
		Version:           stateVersion,
	}
}

func (s *RoomState) hasTableSet(suit game.Suit, setType game.SetType) bool {
	return slices.ContainsFunc(s.TableSets, func(ts TableSet) bool {
		return ts.Suit == suit && ts.SetType == setType
	})
}

// participants returns the non-spectator players ordered by seat, unseated
// players last by id. Every traversal that can mutate hands uses this order.
func (s *RoomState) participants() []*Player {
	var players []*Player
	for _, p := range s.Players {
		if !p.IsSpectator {
			players = append(players, p)
		}
	}
	sort.Slice(players, func(i, j int) bool {
		a, b := players[i], players[j]
		switch {
		case a.Seat != nil && b.Seat != nil:
			return *a.Seat < *b.Seat
		case a.Seat != nil:
			return true
		case b.Seat != nil:
			return false
		}
		return a.ID < b.ID
	})
	return players
}

// Game is the rules engine for one room. It performs no I/O and is not safe
// for concurrent use; a single owner must serialize every call.
type Game struct {
	state      RoomState
	deck       *game.Deck
	rng        *rand.Rand
	maxPlayers int

	// lastDeclarer is the player whose successful laydown may still be
	// followed by a handoff. Cleared by any turn change.
	lastDeclarer string
}

type Option func(*Game)

// WithMaxPlayers caps the roster below the six seats.
func WithMaxPlayers(n int) Option {
	return func(g *Game) {
		if n > 0 && n < NumSeats {
			g.maxPlayers = n
		}
	}
}

// WithRand fixes the shuffle source, mostly for tests.
func WithRand(rng *rand.Rand) Option {
	return func(g *Game) {
		g.rng = rng
	}
}

func NewGame(roomID string, opts ...Option) *Game {
	g := &Game{
		state:      newRoomState(roomID),
		deck:       &game.Deck{},
		maxPlayers: NumSeats,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return g
}

// State exposes the live state. Callers outside the owning goroutine should
// use Snapshot instead.
func (g *Game) State() *RoomState {
	return &g.state
}

func (g *Game) Phase() Phase {
	return g.state.Phase
}

func (g *Game) Player(id string) (*Player, bool) {
	p, ok := g.state.Players[id]
	return p, ok
}

func (g *Game) player(id string) (*Player, error) {
	p, ok := g.state.Players[id]
	if !ok {
		return nil, ruleErr(KindUnknownPlayer, "Unknown player %q", id)
	}
	return p, nil
}

// participant is player plus the spectator check.
func (g *Game) participant(id string) (*Player, error) {
	p, err := g.player(id)
	if err != nil {
		return nil, err
	}
	if p.IsSpectator {
		return nil, ErrSpectator
	}
	return p, nil
}

func (g *Game) setTurn(id string) {
	g.lastDeclarer = ""
	g.state.TurnPlayer = id
}

func (g *Game) hasCards(id string) bool {
	p, ok := g.state.Players[id]
	return ok && p.HasCards()
}

// nextCCW walks counter-clockwise from start (exclusive, wrapping back to
// start itself last) and returns the first seated player matching pred.
func (g *Game) nextCCW(start int, pred func(*Player) bool) string {
	for step := 1; step <= NumSeats; step++ {
		id := g.state.Seats[((start-step)%NumSeats+NumSeats)%NumSeats]
		if id == "" {
			continue
		}
		if p, ok := g.state.Players[id]; ok && pred(p) {
			return id
		}
	}
	return ""
}

// nextCCWWithCards prefers a member of team holding cards, then anyone with cards.
func (g *Game) nextCCWWithCards(start int, team Team) string {
	if id := g.nextCCW(start, func(p *Player) bool { return p.Team == team && p.HasCards() }); id != "" {
		return id
	}
	return g.nextCCW(start, func(p *Player) bool { return p.HasCards() })
}

func seatOrZero(p *Player) int {
	if p.Seat == nil {
		return 0
	}
	return *p.Seat
}

func validSet(suit game.Suit, setType game.SetType) error {
	if !suit.Valid() || !setType.Valid() {
		return ruleErr(KindInvalidCard, "Unknown set %s %s", suit, setType)
	}
	return nil
}

package game

// RoundState is everything about a player that resets between rounds.
// It is replaced wholesale by ResetRound so no per-field reset can be
// forgotten when the round structure grows.
type RoundState struct {
	Hand            []Card `json:"hand,omitempty"`
	CurrentBet      int64  `json:"currentBet"`
	TotalBet        int64  `json:"totalBet"`
	IsActive        bool   `json:"isActive"`
	HasFolded       bool   `json:"hasFolded"`
	WantsToOpen     bool   `json:"wantsToOpen"`
	HasKicked       bool   `json:"hasKicked"`
	HasCalledBet    bool   `json:"hasCalledBet"`
	HasParticipated bool   `json:"hasParticipated"`
}

// Player is a seated participant. SeatIndex equals the player's
// position in the engine's seat slice.
type Player struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	SeatIndex int        `json:"seatIndex"`
	Chips     int64      `json:"chips"`
	Round     RoundState `json:"round"`
}

func NewPlayer(id, name string, seat int, chips int64) *Player {
	return &Player{ID: id, Name: name, SeatIndex: seat, Chips: chips}
}

// ResetRound clears all per-round state and marks the player live.
func (p *Player) ResetRound() {
	p.Round = RoundState{IsActive: true}
}

// InHand reports whether the player is still contesting the pot.
func (p *Player) InHand() bool {
	return p.Round.IsActive && !p.Round.HasFolded
}

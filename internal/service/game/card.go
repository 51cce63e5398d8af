package game

import "strconv"

type Suit string

const (
	SuitHeart   Suit = "heart"
	SuitDiamond Suit = "diamond"
	SuitSpade   Suit = "spade"
	SuitClub    Suit = "club"
	SuitJoker   Suit = "joker"
)

// Card is a single entry of the 32-card Fuzhou pai gow catalogue.
// Points feeds the mod-10 scoring; Weight is the top single-card
// tiebreak weight (8..1 for the eight named cards, 0 otherwise);
// PairGroup names the pair a card belongs to for display purposes.
// Cards are immutable values, defined once in fullDeck.
type Card struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Suit      Suit   `json:"suit"`
	Value     string `json:"value"`
	Points    int    `json:"points"`
	PairGroup string `json:"pairGroup,omitempty"`
	Weight    int    `json:"-"`
}

func (c Card) IsRed() bool {
	return c.Suit == SuitHeart || c.Suit == SuitDiamond
}

func (c Card) IsBlack() bool {
	return c.Suit == SuitSpade || c.Suit == SuitClub
}

func (c Card) IsJoker() bool {
	return c.Suit == SuitJoker
}

// Top single-card weights:
// 红Q(8) > 红2(7) > 红8(6) > 红4(5) > 黑10(4) > 黑6(3) > 黑4(2) > 黑J(1)
const (
	weightRedQ    = 8
	weightRed2    = 7
	weightRed8    = 6
	weightRed4    = 5
	weightBlack10 = 4
	weightBlack6  = 3
	weightBlack4  = 2
	weightBlackJ  = 1
)

// fullDeck declares the 32 cards: big/small joker plus 15 pairs.
// 红=♥♦，黑=♠♣。No A, 3 or K ranks.
var fullDeck = []Card{
	{ID: "joker_big", Name: "大鬼", Suit: SuitJoker, Value: "BIG", Points: 6},
	{ID: "joker_small", Name: "小鬼", Suit: SuitJoker, Value: "SMALL", Points: 3},

	// 天 (2张)
	{ID: "q_heart", Name: "红桃Q", Suit: SuitHeart, Value: "Q", Points: 12, PairGroup: "QR", Weight: weightRedQ},
	{ID: "q_diamond", Name: "方块Q", Suit: SuitDiamond, Value: "Q", Points: 12, PairGroup: "QR", Weight: weightRedQ},

	// 地 (2张)
	{ID: "2_heart", Name: "红桃2", Suit: SuitHeart, Value: "2", Points: 2, PairGroup: "2R", Weight: weightRed2},
	{ID: "2_diamond", Name: "方块2", Suit: SuitDiamond, Value: "2", Points: 2, PairGroup: "2R", Weight: weightRed2},

	// 人 / 黑八 (4张)
	{ID: "8_heart", Name: "红桃8", Suit: SuitHeart, Value: "8", Points: 8, PairGroup: "8R", Weight: weightRed8},
	{ID: "8_diamond", Name: "方块8", Suit: SuitDiamond, Value: "8", Points: 8, PairGroup: "8R", Weight: weightRed8},
	{ID: "8_spade", Name: "黑桃8", Suit: SuitSpade, Value: "8", Points: 8, PairGroup: "8B"},
	{ID: "8_club", Name: "梅花8", Suit: SuitClub, Value: "8", Points: 8, PairGroup: "8B"},

	// 和 (4张)
	{ID: "4_heart", Name: "红桃4", Suit: SuitHeart, Value: "4", Points: 4, PairGroup: "4R", Weight: weightRed4},
	{ID: "4_diamond", Name: "方块4", Suit: SuitDiamond, Value: "4", Points: 4, PairGroup: "4R", Weight: weightRed4},
	{ID: "4_spade", Name: "黑桃4", Suit: SuitSpade, Value: "4", Points: 4, PairGroup: "4B", Weight: weightBlack4},
	{ID: "4_club", Name: "梅花4", Suit: SuitClub, Value: "4", Points: 4, PairGroup: "4B", Weight: weightBlack4},

	// 梅 (4张)
	{ID: "10_spade", Name: "黑桃10", Suit: SuitSpade, Value: "10", Points: 10, PairGroup: "10B", Weight: weightBlack10},
	{ID: "10_club", Name: "梅花10", Suit: SuitClub, Value: "10", Points: 10, PairGroup: "10B", Weight: weightBlack10},
	{ID: "10_heart", Name: "红桃10", Suit: SuitHeart, Value: "10", Points: 10, PairGroup: "10R"},
	{ID: "10_diamond", Name: "方块10", Suit: SuitDiamond, Value: "10", Points: 10, PairGroup: "10R"},

	// 长 (4张)
	{ID: "6_spade", Name: "黑桃6", Suit: SuitSpade, Value: "6", Points: 6, PairGroup: "6B", Weight: weightBlack6},
	{ID: "6_club", Name: "梅花6", Suit: SuitClub, Value: "6", Points: 6, PairGroup: "6B", Weight: weightBlack6},
	{ID: "6_heart", Name: "红桃6", Suit: SuitHeart, Value: "6", Points: 6, PairGroup: "6R"},
	{ID: "6_diamond", Name: "方块6", Suit: SuitDiamond, Value: "6", Points: 6, PairGroup: "6R"},

	// 斧头 (2张)
	{ID: "j_spade", Name: "黑桃J", Suit: SuitSpade, Value: "J", Points: 11, PairGroup: "JB", Weight: weightBlackJ},
	{ID: "j_club", Name: "梅花J", Suit: SuitClub, Value: "J", Points: 11, PairGroup: "JB", Weight: weightBlackJ},

	// 翻王牌 (2张)
	{ID: "9_spade", Name: "黑桃9", Suit: SuitSpade, Value: "9", Points: 9, PairGroup: "9B"},
	{ID: "9_club", Name: "梅花9", Suit: SuitClub, Value: "9", Points: 9, PairGroup: "9B"},

	// 7点 (4张)
	{ID: "7_spade", Name: "黑桃7", Suit: SuitSpade, Value: "7", Points: 7, PairGroup: "7B"},
	{ID: "7_club", Name: "梅花7", Suit: SuitClub, Value: "7", Points: 7, PairGroup: "7B"},
	{ID: "7_heart", Name: "红桃7", Suit: SuitHeart, Value: "7", Points: 7, PairGroup: "7R"},
	{ID: "7_diamond", Name: "方块7", Suit: SuitDiamond, Value: "7", Points: 7, PairGroup: "7R"},

	// 5点 (2张)
	{ID: "5_spade", Name: "黑桃5", Suit: SuitSpade, Value: "5", Points: 5, PairGroup: "5B"},
	{ID: "5_club", Name: "梅花5", Suit: SuitClub, Value: "5", Points: 5, PairGroup: "5B"},
}

// DeckSize is the catalogue size; a freshly shuffled deck always holds this many cards.
const DeckSize = 32

// CutValue maps a card to its cut-count value:
// numeric faces count as themselves, J=11, Q=12, K=13, 大鬼=6, 小鬼=3.
func CutValue(c Card) int {
	switch c.Value {
	case "BIG":
		return 6
	case "SMALL":
		return 3
	case "J":
		return 11
	case "Q":
		return 12
	case "K":
		return 13
	}
	n, err := strconv.Atoi(c.Value)
	if err != nil {
		return 0
	}
	return n
}

// CardByID resolves a catalogue card. The second result is false for unknown ids.
func CardByID(id string) (Card, bool) {
	for _, c := range fullDeck {
		if c.ID == id {
			return c, true
		}
	}
	return Card{}, false
}

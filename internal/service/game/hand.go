package game

import "fmt"

// Level is the hand hierarchy. Higher beats lower across levels;
// within a level the tiebreak rules of Compare apply.
type Level int

const (
	LevelPoints     Level = 1  // 散牌点数 0..9
	LevelGang       Level = 6  // 天杠/地杠 (10点)
	LevelHeavenNine Level = 7  // 天九翻王 (11点)
	LevelNormalPair Level = 8  // 普通对子
	LevelTopPair    Level = 9  // 八大对
	LevelSupreme    Level = 10 // 至尊对王
)

// topPairNames index by SubRank: 0 is the strongest pair.
var topPairNames = [8]string{"天对", "地对", "人对", "和对", "梅对", "长对", "板对", "斧对"}

// HandResult is the evaluated strength of a two-card hand.
// Points is meaningful for LevelPoints, LevelGang, LevelHeavenNine.
// SubRank is meaningful for LevelTopPair only, lower is better.
type HandResult struct {
	Level   Level  `json:"level"`
	Points  int    `json:"points"`
	SubRank int    `json:"subRank"`
	Label   string `json:"label"`
}

func isRedQ(c Card) bool  { return c.Value == "Q" && c.IsRed() }
func isRed2(c Card) bool  { return c.Value == "2" && c.IsRed() }
func isEight(c Card) bool { return c.Value == "8" }

// Evaluate classifies a two-card hand into the six-level hierarchy:
//
//	至尊对王 > 八大对 > 普通对子 > 天九翻王 > 天杠/地杠 > 点数
//
// Card order within the hand never matters.
func Evaluate(a, b Card) HandResult {
	// 至尊对王：大小鬼
	if a.IsJoker() && b.IsJoker() {
		return HandResult{Level: LevelSupreme, Label: "至尊对王"}
	}

	// 八大对：两张同权重的顶级牌
	if a.Weight > 0 && a.Weight == b.Weight {
		sub := weightRedQ - a.Weight // 红Q对=0 ... 黑J对=7
		return HandResult{Level: LevelTopPair, SubRank: sub, Label: topPairNames[sub]}
	}

	// 普通对子：同点值非鬼非顶对（如红8配黑8）
	if !a.IsJoker() && !b.IsJoker() && a.Value == b.Value {
		return HandResult{Level: LevelNormalPair, Label: "对" + a.Value}
	}

	// 天九翻王：红Q + 黑9，记 11 点
	if (isRedQ(a) && b.Value == "9" && b.IsBlack()) || (isRedQ(b) && a.Value == "9" && a.IsBlack()) {
		return HandResult{Level: LevelHeavenNine, Points: 11, Label: "天九翻王"}
	}

	// 天杠：红Q + 任意8；地杠：红2 + 任意8。均记 10 点
	if (isRedQ(a) && isEight(b)) || (isRedQ(b) && isEight(a)) {
		return HandResult{Level: LevelGang, Points: 10, Label: "天杠"}
	}
	if (isRed2(a) && isEight(b)) || (isRed2(b) && isEight(a)) {
		return HandResult{Level: LevelGang, Points: 10, Label: "地杠"}
	}

	pts := (a.Points + b.Points) % 10
	label := fmt.Sprintf("%d点", pts)
	if pts == 0 {
		label = "毙十"
	}
	return HandResult{Level: LevelPoints, Points: pts, Label: label}
}

func maxWeight(h [2]Card) int {
	if h[0].Weight > h[1].Weight {
		return h[0].Weight
	}
	return h[1].Weight
}

func minWeight(h [2]Card) int {
	if h[0].Weight < h[1].Weight {
		return h[0].Weight
	}
	return h[1].Weight
}

// Compare ranks two hands. It returns a positive value when h1 wins
// and a negative value when h2 wins; there are no pushes, every
// comparison produces a winner. firstActorIsH1 marks which hand
// belongs to the player who acted first this round, the final
// tiebreak after level, sub-rank, points and card weights.
func Compare(h1, h2 [2]Card, firstActorIsH1 bool) int {
	r1 := Evaluate(h1[0], h1[1])
	r2 := Evaluate(h2[0], h2[1])

	if r1.Level != r2.Level {
		if r1.Level > r2.Level {
			return 1
		}
		return -1
	}

	firstActor := func() int {
		if firstActorIsH1 {
			return 1
		}
		return -1
	}

	switch r1.Level {
	case LevelSupreme:
		// 只有一副对王，同级撞不上；兜底判给先手
		return firstActor()

	case LevelTopPair:
		if r1.SubRank != r2.SubRank {
			if r1.SubRank < r2.SubRank {
				return 1
			}
			return -1
		}
		return firstActor()

	case LevelNormalPair:
		// 普通对子之间不比大小，先手胜
		return firstActor()

	default:
		// 点数类（含杠与翻王）：先比点，再比最大单牌权重，
		// 再比最小单牌权重，最后先手胜
		if r1.Points != r2.Points {
			if r1.Points > r2.Points {
				return 1
			}
			return -1
		}
		if maxWeight(h1) != maxWeight(h2) {
			if maxWeight(h1) > maxWeight(h2) {
				return 1
			}
			return -1
		}
		if minWeight(h1) != minWeight(h2) {
			if minWeight(h1) > minWeight(h2) {
				return 1
			}
			return -1
		}
		return firstActor()
	}
}

package game_test

import (
	"testing"

	"paigow-service/internal/service/game"
)

func card(t *testing.T, id string) game.Card {
	t.Helper()
	c, ok := game.CardByID(id)
	if !ok {
		t.Fatalf("unknown card id %q", id)
	}
	return c
}

func hand(t *testing.T, a, b string) [2]game.Card {
	t.Helper()
	return [2]game.Card{card(t, a), card(t, b)}
}

func TestEvaluateSupreme(t *testing.T) {
	r := game.Evaluate(card(t, "joker_big"), card(t, "joker_small"))
	if r.Level != game.LevelSupreme {
		t.Fatalf("expected supreme, got %+v", r)
	}
	if r.Label != "至尊对王" {
		t.Fatalf("unexpected label %q", r.Label)
	}
}

func TestEvaluateTopPairs(t *testing.T) {
	cases := []struct {
		a, b    string
		subRank int
		label   string
	}{
		{"q_heart", "q_diamond", 0, "天对"},
		{"2_heart", "2_diamond", 1, "地对"},
		{"8_heart", "8_diamond", 2, "人对"},
		{"4_heart", "4_diamond", 3, "和对"},
		{"10_spade", "10_club", 4, "梅对"},
		{"6_spade", "6_club", 5, "长对"},
		{"4_spade", "4_club", 6, "板对"},
		{"j_spade", "j_club", 7, "斧对"},
	}
	for _, tc := range cases {
		r := game.Evaluate(card(t, tc.a), card(t, tc.b))
		if r.Level != game.LevelTopPair {
			t.Fatalf("%s+%s: expected top pair, got %+v", tc.a, tc.b, r)
		}
		if r.SubRank != tc.subRank || r.Label != tc.label {
			t.Fatalf("%s+%s: expected subRank=%d label=%s, got %+v", tc.a, tc.b, tc.subRank, tc.label, r)
		}
	}
}

func TestEvaluateNormalPair(t *testing.T) {
	// 红8配黑8：同点值但权重不同，只是普通对子
	r := game.Evaluate(card(t, "8_heart"), card(t, "8_spade"))
	if r.Level != game.LevelNormalPair {
		t.Fatalf("expected normal pair, got %+v", r)
	}
	if r.Label != "对8" {
		t.Fatalf("unexpected label %q", r.Label)
	}
}

func TestEvaluateHeavenNine(t *testing.T) {
	r := game.Evaluate(card(t, "q_heart"), card(t, "9_spade"))
	if r.Level != game.LevelHeavenNine || r.Points != 11 {
		t.Fatalf("expected 天九翻王 11点, got %+v", r)
	}
	// 方块Q同样成翻王
	r = game.Evaluate(card(t, "9_club"), card(t, "q_diamond"))
	if r.Level != game.LevelHeavenNine {
		t.Fatalf("expected 天九翻王, got %+v", r)
	}
}

func TestEvaluateGangs(t *testing.T) {
	r := game.Evaluate(card(t, "q_heart"), card(t, "8_club"))
	if r.Level != game.LevelGang || r.Points != 10 || r.Label != "天杠" {
		t.Fatalf("expected 天杠 10点, got %+v", r)
	}
	r = game.Evaluate(card(t, "8_spade"), card(t, "2_diamond"))
	if r.Level != game.LevelGang || r.Points != 10 || r.Label != "地杠" {
		t.Fatalf("expected 地杠 10点, got %+v", r)
	}
}

func TestEvaluatePoints(t *testing.T) {
	cases := []struct {
		a, b   string
		points int
		label  string
	}{
		{"5_spade", "7_club", 2, "2点"},
		{"joker_big", "9_spade", 5, "5点"},    // 大鬼记6点
		{"joker_small", "6_heart", 9, "9点"},  // 小鬼记3点
		{"joker_big", "4_spade", 0, "毙十"},    // 10 → 0
		{"j_spade", "10_heart", 1, "1点"},     // J记11点
		{"q_diamond", "5_club", 7, "7点"},     // 黑9缺位时红Q按12点散牌
	}
	for _, tc := range cases {
		r := game.Evaluate(card(t, tc.a), card(t, tc.b))
		if r.Level != game.LevelPoints || r.Points != tc.points || r.Label != tc.label {
			t.Fatalf("%s+%s: expected %d点(%s), got %+v", tc.a, tc.b, tc.points, tc.label, r)
		}
	}
}

func TestCompareAcrossLevels(t *testing.T) {
	supreme := hand(t, "joker_big", "joker_small")
	tianDui := hand(t, "q_heart", "q_diamond")
	fuDui := hand(t, "j_spade", "j_club")
	normalPair := hand(t, "7_spade", "7_heart")
	heavenNine := hand(t, "q_heart", "9_spade")
	tianGang := hand(t, "q_heart", "8_club")
	ninePoints := hand(t, "joker_small", "6_heart")

	if game.Compare(supreme, tianDui, false) <= 0 {
		t.Fatal("至尊对王 should beat 天对")
	}
	if game.Compare(fuDui, normalPair, false) <= 0 {
		t.Fatal("斧对 should beat 普通对子")
	}
	if game.Compare(normalPair, heavenNine, false) <= 0 {
		t.Fatal("普通对子 should beat 天九翻王")
	}
	if game.Compare(heavenNine, tianGang, false) <= 0 {
		t.Fatal("天九翻王 should beat 天杠")
	}
	if game.Compare(tianGang, ninePoints, false) <= 0 {
		t.Fatal("天杠 should beat 9点")
	}
}

func TestCompareTopPairSubRank(t *testing.T) {
	tianDui := hand(t, "q_heart", "q_diamond")
	diDui := hand(t, "2_heart", "2_diamond")
	if game.Compare(tianDui, diDui, false) <= 0 {
		t.Fatal("天对 should beat 地对 regardless of position")
	}
	if game.Compare(diDui, tianDui, true) >= 0 {
		t.Fatal("地对 should lose to 天对 even acting first")
	}
}

func TestCompareNormalPairsByPosition(t *testing.T) {
	pairEight := hand(t, "8_heart", "8_spade")
	pairTen := hand(t, "10_heart", "10_diamond")

	// 普通对子互撞不比点数，先手胜
	if game.Compare(pairEight, pairTen, true) <= 0 {
		t.Fatal("first actor should win pair vs pair")
	}
	if game.Compare(pairEight, pairTen, false) >= 0 {
		t.Fatal("second actor should lose pair vs pair")
	}
}

func TestComparePointsTiebreaks(t *testing.T) {
	// 同为7点，红Q权重8压无权重散牌
	withRedQ := hand(t, "q_heart", "5_spade")
	plain := hand(t, "10_heart", "7_spade")
	if game.Compare(withRedQ, plain, false) <= 0 {
		t.Fatal("higher max weight should win equal points")
	}

	// 同点同最大权重，比最小权重
	minHigh := hand(t, "4_heart", "10_spade") // 4点，权重 5/4
	minLow := hand(t, "4_diamond", "10_heart") // 4点，权重 5/0
	if game.Compare(minHigh, minLow, false) <= 0 {
		t.Fatal("higher min weight should win equal points and max weight")
	}

	// 点数与两张权重全同：先手胜
	h1 := hand(t, "7_spade", "5_spade")
	h2 := hand(t, "7_club", "5_club")
	if game.Compare(h1, h2, true) <= 0 {
		t.Fatal("first actor should win exact tie")
	}
	if game.Compare(h1, h2, false) >= 0 {
		t.Fatal("second actor should lose exact tie")
	}
}

func TestCompareAntisymmetry(t *testing.T) {
	hands := [][2]game.Card{
		hand(t, "joker_big", "joker_small"),
		hand(t, "q_heart", "q_diamond"),
		hand(t, "8_heart", "8_spade"),
		hand(t, "q_heart", "9_spade"),
		hand(t, "2_heart", "8_club"),
		hand(t, "7_spade", "5_club"),
		hand(t, "10_heart", "6_diamond"),
	}
	for i, h1 := range hands {
		for j, h2 := range hands {
			if i == j {
				continue
			}
			got := game.Compare(h1, h2, true)
			mirror := game.Compare(h2, h1, false)
			if got == 0 || got != -mirror {
				t.Fatalf("hands %d vs %d: Compare=%d mirror=%d", i, j, got, mirror)
			}
		}
	}
}

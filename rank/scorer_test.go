package rank

import (
	"math"
	"testing"
	"time"

	"github.com/materialmarkt/matkit/core"
	"github.com/materialmarkt/matkit/feature"
)

var scorerNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func newTestScorer() *Scorer {
	s := NewScorer()
	s.Now = func() time.Time { return scorerNow }
	return s
}

func profileWith(categories, grades []string) *core.UserProfile {
	p := core.NewUserProfile("u1")
	p.PreferredCategories = categories
	p.PreferredGrades = grades
	for i, c := range categories {
		p.CategoryWeights[c] = float64(len(categories) - i)
	}
	for i, g := range grades {
		p.GradeWeights[g] = float64(len(grades) - i)
	}
	return p
}

func TestCategoryScoreByRank(t *testing.T) {
	s := newTestScorer()
	p := profileWith([]string{"Mathematik", "Deutsch", "Kunst"}, nil)

	tests := []struct {
		name       string
		categories []string
		want       float64
	}{
		// each matched preference contributes 1/(rank+1) plus affinity/100
		{"top preference", []string{"Mathematik"}, 1.0/1 + 3.0/100},
		{"second preference", []string{"Deutsch"}, 1.0/2 + 2.0/100},
		{"third preference", []string{"Kunst"}, 1.0/3 + 1.0/100},
		{"matches accumulate", []string{"Deutsch", "Kunst"}, 1.0/2 + 2.0/100 + 1.0/3 + 1.0/100},
		{"accumulated sum capped", []string{"Mathematik", "Deutsch"}, 1.0/1 + 3.0/100 + 1.0/2 + 2.0/100},
		{"unknown category", []string{"Musik"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := core.NewItem("x")
			m := &core.Material{Categories: tt.categories}
			got := s.categoryScore(p, m, it)
			want := tt.want
			if want > 1 {
				want = 1
			}
			if math.Abs(got-want) > 1e-12 {
				t.Errorf("categoryScore() = %v, want %v", got, want)
			}
		})
	}
}

func TestCategoryScoreCapped(t *testing.T) {
	s := newTestScorer()
	p := profileWith([]string{"Mathematik"}, nil)
	p.CategoryWeights["Mathematik"] = 500 // huge affinity

	it := core.NewItem("x")
	got := s.categoryScore(p, &core.Material{Categories: []string{"Mathematik"}}, it)
	if got != 1.0 {
		t.Errorf("categoryScore() = %v, want capped at 1.0", got)
	}
}

func TestCategoryScoreRelatedBonus(t *testing.T) {
	s := newTestScorer()
	p := profileWith([]string{"Deutsch"}, nil)

	it := core.NewItem("x")
	got := s.categoryScore(p, &core.Material{Categories: []string{"Deutsch als Zweitsprache"}}, it)
	if math.Abs(got-0.3) > 1e-12 {
		t.Errorf("related category score = %v, want 0.3", got)
	}

	// the bonus is additive per related category
	it = core.NewItem("y")
	got = s.categoryScore(p, &core.Material{Categories: []string{"Deutsch als Zweitsprache", "Deutschunterricht"}}, it)
	if math.Abs(got-0.6) > 1e-12 {
		t.Errorf("two related categories = %v, want 0.6", got)
	}
}

func TestGradeScoreAccumulates(t *testing.T) {
	s := newTestScorer()
	p := profileWith(nil, []string{"Klasse 2", "Klasse 3", "Klasse 4"})

	it := core.NewItem("x")
	got := s.gradeScore(p, &core.Material{Grades: []string{"Klasse 3", "Klasse 4"}}, it)
	want := (1.0/2 + 2.0/100) + (1.0/3 + 1.0/100)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("gradeScore() = %v, want sum of rank-weighted matches %v", got, want)
	}
}

func TestPriceScore(t *testing.T) {
	s := newTestScorer()

	tests := []struct {
		name       string
		preference core.PriceBucket
		price      float64
		want       float64
	}{
		{"exact bucket", core.PriceMedium, 5.0, 1.0},
		{"adjacent bucket", core.PriceMedium, 1.5, 0.5},
		{"distant bucket", core.PriceHigh, 0, 0.2},
		{"no preference is neutral", "", 5.0, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := core.NewUserProfile("u1")
			p.PricePreference = tt.preference
			got := s.priceScore(p, &core.Material{Price: tt.price})
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("priceScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFreshnessFactor(t *testing.T) {
	s := newTestScorer()

	tests := []struct {
		name    string
		created time.Time
		want    float64
	}{
		{"fresh under 90 days", scorerNow.AddDate(0, 0, -10), 1.5},
		{"recent under a year", scorerNow.AddDate(0, 0, -200), 1.0},
		{"stale over a year", scorerNow.AddDate(0, 0, -400), 0.7},
		{"missing date counts as stale", time.Time{}, 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.freshnessFactor(&core.Material{CreatedAt: tt.created})
			if got != tt.want {
				t.Errorf("freshnessFactor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFreshnessUsesLatestDate(t *testing.T) {
	s := newTestScorer()
	m := &core.Material{
		CreatedAt: scorerNow.AddDate(0, 0, -400),
		UpdatedAt: scorerNow.AddDate(0, 0, -10),
	}
	if got := s.freshnessFactor(m); got != 1.5 {
		t.Errorf("freshnessFactor() = %v, want 1.5 via updated_at", got)
	}
}

func TestPopularityScoreCapped(t *testing.T) {
	s := newTestScorer()

	tests := []struct {
		rating float64
		want   float64
	}{
		{0, 0},
		{500, 0.5},
		{1000, 1.0},
		{2500, 1.0},
		{-10, 0},
	}

	for _, tt := range tests {
		if got := s.popularityScore(&core.Material{BestsellerRating: tt.rating}); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("popularityScore(%v) = %v, want %v", tt.rating, got, tt.want)
		}
	}
}

func TestSeasonalBoost(t *testing.T) {
	s := newTestScorer()

	tests := []struct {
		name    string
		season  string
		seasons []string
		want    float64
	}{
		{"exact season", "Herbst", []string{"Herbst"}, 0.2},
		{"year-round", "Herbst", []string{"ganzjährig"}, 0.1},
		{"exact beats year-round", "Herbst", []string{"ganzjährig", "Herbst"}, 0.2},
		{"wrong season", "Winter", []string{"Herbst"}, 0},
		{"no request season", "", []string{"Herbst"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := core.NewItem("x")
			got := s.seasonalBoost(tt.season, &core.Material{Seasons: tt.seasons}, it)
			if got != tt.want {
				t.Errorf("seasonalBoost() = %v, want %v", got, tt.want)
			}
		})
	}
}

func contentCatalog() map[string]*core.Material {
	return map[string]*core.Material{
		"m-cand": {
			ID: "m-cand", Title: "Bruchrechnen Übungsheft", Description: "Übungen zum Bruchrechnen mit Lösungen",
			Categories: []string{"Mathematik"}, Grades: []string{"Klasse 3"}, Format: "PDF",
		},
		"m-strong": {
			ID: "m-strong", Title: "Bruchrechnen Spiele", Description: "Spiele zum Bruchrechnen",
			Categories: []string{"Mathematik"}, Grades: []string{"Klasse 3", "Klasse 4"}, Format: "PDF",
		},
		"m-mid": {
			ID: "m-mid", Title: "Bruchrechnen Knobelaufgaben", Description: "Knobelaufgaben zum Bruchrechnen",
			Categories: []string{"Mathematik"}, Grades: []string{"Klasse 3"}, Format: "PDF",
		},
		"m-weak": {
			ID: "m-weak", Title: "Herbst Bastelideen", Description: "Basteln mit Naturmaterialien",
			Categories: []string{"Kunst"}, Grades: []string{"Klasse 1"},
		},
	}
}

func TestContentScoreAveragesSignificantSimilarities(t *testing.T) {
	s := newTestScorer()
	idx := feature.BuildIndex(contentCatalog(), feature.Vectorizer{}, feature.DefaultTextWeight)

	simStrong := idx.CombinedSimilarity("m-cand", "m-strong")
	simMid := idx.CombinedSimilarity("m-cand", "m-mid")
	if simStrong <= s.Config.SignificanceThreshold || simMid <= s.Config.SignificanceThreshold {
		t.Fatalf("fixture similarities %v/%v must exceed the threshold", simStrong, simMid)
	}

	p := core.NewUserProfile("u1")
	p.Liked["m-strong"] = struct{}{}
	p.Liked["m-mid"] = struct{}{}

	it := core.NewItem("m-cand")
	got := s.contentScore(p, idx, it)
	if want := (simStrong + simMid) / 2; math.Abs(got-want) > 1e-12 {
		t.Errorf("contentScore() = %v, want average of significant similarities %v", got, want)
	}

	// the factor points at the single most similar liked material
	wantID := "m-strong"
	if simMid > simStrong {
		wantID = "m-mid"
	}
	if len(it.Factors) != 1 || it.Factors[0].Kind != core.FactorSimilarToLiked || it.Factors[0].RelatedID != wantID {
		t.Errorf("factors = %+v, want similar_to_liked pointing at %s", it.Factors, wantID)
	}
}

func TestContentScoreIgnoresWeakSimilarity(t *testing.T) {
	s := newTestScorer()
	idx := feature.BuildIndex(contentCatalog(), feature.Vectorizer{}, feature.DefaultTextWeight)

	if sim := idx.CombinedSimilarity("m-cand", "m-weak"); sim > s.Config.SignificanceThreshold {
		t.Fatalf("fixture similarity %v must stay below the threshold", sim)
	}

	p := core.NewUserProfile("u1")
	p.Liked["m-weak"] = struct{}{}

	it := core.NewItem("m-cand")
	if got := s.contentScore(p, idx, it); got != 0 {
		t.Errorf("contentScore() = %v, want 0 when no similarity exceeds the threshold", got)
	}
	if len(it.Factors) != 0 {
		t.Error("weak similarity must not record a similar_to_liked factor")
	}
}

func TestScoreMissingRequiredFieldsGoesFallback(t *testing.T) {
	s := newTestScorer()
	p := profileWith([]string{"Mathematik"}, []string{"Klasse 3"})

	it := core.NewItem("x")
	it.Material = &core.Material{
		ID: "x", BestsellerRating: 500,
		CreatedAt: scorerNow.AddDate(0, 0, -10),
		// no categories, no grades
	}
	s.Score(p, nil, "", it)

	if !it.Fallback {
		t.Fatal("material without required fields must be fallback")
	}
	if want := 0.5 * 1.5; math.Abs(it.Score-want) > 1e-12 {
		t.Errorf("fallback score = %v, want popularity*freshness = %v", it.Score, want)
	}
}

func TestScoreCombination(t *testing.T) {
	s := newTestScorer()
	p := profileWith([]string{"Mathematik"}, []string{"Klasse 3"})
	p.PricePreference = core.PriceMedium

	it := core.NewItem("x")
	it.Material = &core.Material{
		ID:               "x",
		Categories:       []string{"Mathematik"},
		Grades:           []string{"Klasse 3"},
		Price:            5,
		BestsellerRating: 800,
		CreatedAt:        scorerNow.AddDate(0, 0, -200),
	}
	s.Score(p, nil, "", it)

	cat := 1.0 + 1.0/100
	if cat > 1 {
		cat = 1
	}
	grade := cat
	want := (0.35*cat + 0.25*grade + 0.15*1.0 + 0.15*0.8 + 0.10*0) * 1.0
	if math.Abs(it.Score-want) > 1e-9 {
		t.Errorf("Score = %v, want %v", it.Score, want)
	}
	if it.Fallback {
		t.Error("fully specified material must not be fallback")
	}
	if len(it.Factors) == 0 {
		t.Error("matched candidate should carry contributing factors")
	}
}

func TestRelated(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Deutsch als Zweitsprache", "Deutsch", true},
		{"Sachunterricht", "Unterricht", true},
		{"Mathematik", "Kunst", false},
		{"Mathematik", "Mathematik", false}, // identical is a match, not "related"
		{"", "Deutsch", false},
	}

	for _, tt := range tests {
		if got := related(tt.a, tt.b); got != tt.want {
			t.Errorf("related(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

package analytics

import (
	"context"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/inkbooth/inkbooth/internal/models"
)

func openTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Session{}, &models.Input{}, &models.Generation{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

var day = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

func seed(t *testing.T, db *gorm.DB) {
	t.Helper()

	sessions := []models.Session{
		{Session: "s1", Timestamp: day.Add(1 * time.Hour), Continent: "Europe", Country: "Germany", City: "Berlin", OS: "Windows", Browser: "Chrome", Language: "de-DE"},
		{Session: "s2", Timestamp: day.Add(2 * time.Hour), Continent: "Europe", Country: "Austria", City: "Vienna", OS: "iOS", Browser: "Safari", IsMobile: true, Language: "de-AT"},
		{Session: "s3", Timestamp: day.Add(3 * time.Hour), Continent: "Asia", Country: "Japan", City: "Tokyo", OS: "Android", Browser: "Chrome", IsMobile: true, Language: "ja-JP"},
		// never uploaded or generated anything
		{Session: "s4", Timestamp: day.Add(4 * time.Hour), Continent: "Europe", Country: "Germany", City: "Hamburg", OS: "Linux", Browser: "Firefox", Language: "de-DE"},
		// outside the queried range
		{Session: "s5", Timestamp: day.AddDate(0, 0, 2), Continent: "Europe", Country: "Germany", City: "Munich", OS: "Windows", Browser: "Edge", Language: "de-DE"},
	}
	if err := db.Create(&sessions).Error; err != nil {
		t.Fatalf("seed sessions: %v", err)
	}

	inputs := []models.Input{
		{Timestamp: day.Add(1 * time.Hour), Session: "s1", SHA1: "aaa", Face: true, Gender: models.GenderFemale, MinAge: 25, MaxAge: 30, Token: 5},
		{Timestamp: day.Add(1 * time.Hour), Session: "s1", SHA1: "bbb", Gender: models.GenderUnknown, MinAge: -1, MaxAge: -1, Token: 3},
		{Timestamp: day.Add(2 * time.Hour), Session: "s2", SHA1: "aaa", Face: true, Gender: models.GenderFemale, MinAge: 24, MaxAge: 32, Token: 5},
		{Timestamp: day.Add(3 * time.Hour), Session: "s3", SHA1: "ccc", Face: true, Gender: models.GenderMale, MinAge: 40, MaxAge: 45, Token: 4},
		{Timestamp: day.AddDate(0, 0, 2), Session: "s5", SHA1: "ddd", Token: 3},
	}
	if err := db.Create(&inputs).Error; err != nil {
		t.Fatalf("seed inputs: %v", err)
	}

	generations := []models.Generation{
		{Timestamp: day.Add(1 * time.Hour), Session: "s1", InputSHA1: "aaa", Style: "sketch"},
		{Timestamp: day.Add(1 * time.Hour), Session: "s1", InputSHA1: "aaa", Style: "comic"},
		{Timestamp: day.Add(2 * time.Hour), Session: "s2", InputSHA1: "aaa", Style: "sketch"},
		{Timestamp: day.Add(3 * time.Hour), Session: "s3", InputSHA1: "ccc", Style: "sketch"},
		{Timestamp: day.AddDate(0, 0, 2), Session: "s5", InputSHA1: "ddd", Style: "comic"},
	}
	if err := db.Create(&generations).Error; err != nil {
		t.Fatalf("seed generations: %v", err)
	}
}

func prepared(t *testing.T, name string, f Filters) (*Aggregator, []SessionRow) {
	t.Helper()
	db := openTestDB(t, name)
	seed(t, db)
	agg := NewAggregator(db)
	rows, err := agg.PrepareFilteredData(context.Background(), day, day.AddDate(0, 0, 1), f)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	return agg, rows
}

func TestPrepareFilteredData_JoinAndDerive(t *testing.T) {
	_, rows := prepared(t, "agg_join", Filters{})

	if len(rows) != 4 {
		t.Fatalf("expected 4 sessions in range, got %d", len(rows))
	}

	byID := map[string]SessionRow{}
	for _, r := range rows {
		byID[r.Session] = r
	}

	s1 := byID["s1"]
	if s1.Uploads != 2 || s1.Generations != 2 || !s1.Started {
		t.Fatalf("s1 counts wrong: %+v", s1)
	}
	if s1.CountryCode != "DEU" {
		t.Fatalf("s1 country code: got %q", s1.CountryCode)
	}

	s4 := byID["s4"]
	if s4.Uploads != 0 || s4.Generations != 0 {
		t.Fatalf("s4 must be zero-filled: %+v", s4)
	}
	if s4.Started {
		t.Fatalf("s4 never started")
	}

	if _, ok := byID["s5"]; ok {
		t.Fatalf("s5 is outside the range")
	}
}

func TestPrepareFilteredData_Filters(t *testing.T) {
	_, rows := prepared(t, "agg_filters", Filters{Continent: "Europe", Browser: "Chrome"})
	if len(rows) != 1 || rows[0].Session != "s1" {
		t.Fatalf("expected only s1, got %+v", rows)
	}
}

func TestDerivedQueriesRequirePrepare(t *testing.T) {
	agg := NewAggregator(openTestDB(t, "agg_noprep"))
	if _, err := agg.TopUploadedImages(context.Background()); err != ErrNoWorkingSet {
		t.Fatalf("expected ErrNoWorkingSet, got %v", err)
	}
	if _, err := agg.TopUsedImages(context.Background()); err != ErrNoWorkingSet {
		t.Fatalf("expected ErrNoWorkingSet, got %v", err)
	}
	if _, err := agg.StyleUsage(context.Background(), nil, nil); err != ErrNoWorkingSet {
		t.Fatalf("expected ErrNoWorkingSet, got %v", err)
	}
}

func TestPreparedButEmptyWorkingSet(t *testing.T) {
	db := openTestDB(t, "agg_empty")
	seed(t, db)
	agg := NewAggregator(db)

	// a range with no sessions at all
	far := day.AddDate(5, 0, 0)
	rows, err := agg.PrepareFilteredData(context.Background(), far, far.AddDate(0, 0, 1), Filters{})
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty working set, got %d rows", len(rows))
	}

	stats, err := agg.TopUploadedImages(context.Background())
	if err != nil {
		t.Fatalf("prepared range must not report as unprepared: %v", err)
	}
	if len(stats) != 0 {
		t.Fatalf("expected no stats, got %+v", stats)
	}
	if _, err := agg.TopUsedImages(context.Background()); err != nil {
		t.Fatalf("top used on empty set: %v", err)
	}
	if _, err := agg.StyleUsage(context.Background(), nil, nil); err != nil {
		t.Fatalf("style usage on empty set: %v", err)
	}
}

func TestTopUploadedImages(t *testing.T) {
	agg, _ := prepared(t, "agg_topup", Filters{})

	stats, err := agg.TopUploadedImages(context.Background())
	if err != nil {
		t.Fatalf("top uploaded: %v", err)
	}
	if len(stats) != 3 {
		t.Fatalf("expected 3 fingerprints, got %d", len(stats))
	}
	if stats[0].SHA1 != "aaa" || stats[0].Count != 2 {
		t.Fatalf("expected aaa on top with 2 uploads, got %+v", stats[0])
	}
	if stats[0].FaceText != "face" || stats[0].GenderText != "female" || stats[0].AgeText != "24-32" {
		t.Fatalf("aaa enrichment wrong: %+v", stats[0])
	}

	byID := map[string]ImageStat{}
	for _, s := range stats {
		byID[s.SHA1] = s
	}
	bbb := byID["bbb"]
	if bbb.FaceText != "no face" || bbb.GenderText != "unknown" || bbb.AgeText != "n.a." {
		t.Fatalf("bbb enrichment wrong: %+v", bbb)
	}
}

func TestTopUsedImages(t *testing.T) {
	agg, _ := prepared(t, "agg_topused", Filters{})

	stats, err := agg.TopUsedImages(context.Background())
	if err != nil {
		t.Fatalf("top used: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 fingerprints, got %d", len(stats))
	}
	if stats[0].SHA1 != "aaa" || stats[0].Count != 3 {
		t.Fatalf("expected aaa on top with 3 generations, got %+v", stats[0])
	}
	if stats[1].SHA1 != "ccc" || stats[1].Count != 1 {
		t.Fatalf("expected ccc second, got %+v", stats[1])
	}
}

func TestStyleUsage(t *testing.T) {
	agg, _ := prepared(t, "agg_styles", Filters{})

	shares, err := agg.StyleUsage(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("style usage: %v", err)
	}
	if len(shares) != 2 {
		t.Fatalf("expected 2 styles, got %+v", shares)
	}
	if shares[0].Style != "sketch" || shares[0].Count != 3 || shares[0].Percent != 75 {
		t.Fatalf("sketch share wrong: %+v", shares[0])
	}
	if shares[1].Style != "comic" || shares[1].Count != 1 || shares[1].Percent != 25 {
		t.Fatalf("comic share wrong: %+v", shares[1])
	}
}

func TestStyleUsage_ScopedToWorkingSet(t *testing.T) {
	agg, rows := prepared(t, "agg_styles_scope", Filters{Country: "Japan"})
	if len(rows) != 1 {
		t.Fatalf("expected only s3, got %+v", rows)
	}

	shares, err := agg.StyleUsage(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("style usage: %v", err)
	}
	if len(shares) != 1 || shares[0].Style != "sketch" || shares[0].Count != 1 || shares[0].Percent != 100 {
		t.Fatalf("expected sketch at 100%% for s3, got %+v", shares)
	}
}

func TestCountryCodeFromCountry(t *testing.T) {
	agg := NewAggregator(nil)

	cases := []struct {
		country, language, want string
	}{
		{"Germany", "", "DEU"},
		{"Germany", "xx-ZZ", "DEU"}, // country wins over locale
		{"Austria", "de-AT", "AUT"},
		{"Russia", "", "RUS"},   // fallback name map
		{"Türkiye", "", "TUR"},  // fallback name map
		{"n.a.", "de-AT", "AUT"},
		{"n.a.", "de-XX", "DEU"}, // unknown locale, known language prefix
		{"", "ja", "JPN"},
		{"n.a.", "xx-ZZ", ""}, // nothing matches, logged and skipped
		{"n.a.", "", ""},
		{"Atlantis", "", "ATL"}, // unmatched real name, first three letters
	}
	for _, tc := range cases {
		if got := agg.CountryCodeFromCountry(tc.country, tc.language); got != tc.want {
			t.Errorf("CountryCodeFromCountry(%q, %q) = %q, want %q", tc.country, tc.language, got, tc.want)
		}
	}
}

package analytics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/inkbooth/inkbooth/internal/geoip"
	"github.com/inkbooth/inkbooth/internal/models"
)

// ErrNoWorkingSet is returned by derived queries before PrepareFilteredData.
var ErrNoWorkingSet = errors.New("analytics: PrepareFilteredData has not been called")

// SessionRow is one session in the working set, joined with its upload and
// generation counts.
type SessionRow struct {
	Session     string    `json:"session"`
	Timestamp   time.Time `json:"timestamp"`
	Continent   string    `json:"continent"`
	Country     string    `json:"country"`
	City        string    `json:"city"`
	OS          string    `json:"os"`
	Browser     string    `json:"browser"`
	IsMobile    bool      `json:"is_mobile"`
	Language    string    `json:"language"`
	Uploads     int       `json:"uploads"`
	Generations int       `json:"generations"`
	Started     bool      `json:"started"`
	CountryCode string    `json:"country_code"`
}

// Filters are equality filters applied to the joined rows; empty fields are
// skipped. They are applied sequentially, matching the dashboard UI order.
type Filters struct {
	Continent string
	Country   string
	OS        string
	Browser   string
	Language  string
}

// ImageStat is one fingerprint in a top-10 ranking, enriched for display.
type ImageStat struct {
	SHA1       string `json:"sha1"`
	Count      int    `json:"count"`
	FaceText   string `json:"face"`
	GenderText string `json:"gender"`
	AgeText    string `json:"age"`
}

// StyleShare is one style's percentage of all generations in range.
type StyleShare struct {
	Style   string  `json:"style"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Aggregator builds filterable aggregate views for the dashboard. It caches
// the last filtered rows as its working set; the derived queries
// (TopUploadedImages, TopUsedImages, StyleUsage) are scoped to that set.
type Aggregator struct {
	db *gorm.DB

	mu       sync.RWMutex
	prepared bool
	working  []SessionRow
}

func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db}
}

// PrepareFilteredData joins sessions with per-session upload and generation
// counts (zero-filled), derives the Started flag and country code, applies
// the filters and caches the result as the current working set.
func (a *Aggregator) PrepareFilteredData(ctx context.Context, start, end time.Time, f Filters) ([]SessionRow, error) {
	var rows []SessionRow
	q := `
SELECT s.Session AS session, s.Timestamp AS timestamp, s.Continent AS continent,
       s.Country AS country, s.City AS city, s.OS AS os, s.Browser AS browser,
       s.IsMobile AS is_mobile, s.Language AS language,
       COALESCE(i.cnt, 0) AS uploads, COALESCE(g.cnt, 0) AS generations
FROM Sessions s
LEFT JOIN (SELECT Session, COUNT(*) AS cnt FROM Input GROUP BY Session) i
       ON i.Session = s.Session
LEFT JOIN (SELECT Session, COUNT(*) AS cnt FROM Generations GROUP BY Session) g
       ON g.Session = s.Session
WHERE s.Timestamp >= ? AND s.Timestamp < ?
ORDER BY s.Timestamp`
	if err := a.db.WithContext(ctx).Raw(q, start, end).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("analytics: session rollup: %w", err)
	}

	for i := range rows {
		rows[i].Started = rows[i].Uploads > 0 || rows[i].Generations > 0
		rows[i].CountryCode = a.CountryCodeFromCountry(rows[i].Country, rows[i].Language)
	}

	rows = applyFilter(rows, f.Continent, func(r SessionRow) string { return r.Continent })
	rows = applyFilter(rows, f.Country, func(r SessionRow) string { return r.Country })
	rows = applyFilter(rows, f.OS, func(r SessionRow) string { return r.OS })
	rows = applyFilter(rows, f.Browser, func(r SessionRow) string { return r.Browser })
	rows = applyFilter(rows, f.Language, func(r SessionRow) string { return r.Language })

	a.mu.Lock()
	a.prepared = true
	a.working = rows
	a.mu.Unlock()

	return rows, nil
}

func applyFilter(rows []SessionRow, want string, get func(SessionRow) string) []SessionRow {
	if want == "" {
		return rows
	}
	out := rows[:0]
	for _, r := range rows {
		if get(r) == want {
			out = append(out, r)
		}
	}
	return out
}

func (a *Aggregator) workingSessions() ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.prepared {
		return nil, ErrNoWorkingSet
	}
	ids := make([]string, 0, len(a.working))
	for _, r := range a.working {
		ids = append(ids, r.Session)
	}
	return ids, nil
}

type imageRow struct {
	SHA1   string `json:"sha1"`
	Cnt    int    `json:"cnt"`
	Face   bool   `json:"face"`
	Gender int    `json:"gender"`
	MinAge int    `json:"min_age"`
	MaxAge int    `json:"max_age"`
}

// TopUploadedImages ranks the working set's fingerprints by upload count.
func (a *Aggregator) TopUploadedImages(ctx context.Context) ([]ImageStat, error) {
	ids, err := a.workingSessions()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []imageRow
	q := `
SELECT SHA1 AS sha1, COUNT(*) AS cnt, MAX(Face) AS face, MAX(Gender) AS gender,
       MIN(MinAge) AS min_age, MAX(MaxAge) AS max_age
FROM Input
WHERE Session IN ?
GROUP BY SHA1
ORDER BY cnt DESC, sha1
LIMIT 10`
	if err := a.db.WithContext(ctx).Raw(q, ids).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("analytics: top uploads: %w", err)
	}
	return enrich(rows), nil
}

// TopUsedImages ranks fingerprints by generation count instead.
func (a *Aggregator) TopUsedImages(ctx context.Context) ([]ImageStat, error) {
	ids, err := a.workingSessions()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []imageRow
	q := `
SELECT g.Input_SHA1 AS sha1, COUNT(*) AS cnt,
       MAX(COALESCE(i.Face, 0)) AS face, MAX(COALESCE(i.Gender, -1)) AS gender,
       MIN(COALESCE(i.MinAge, -1)) AS min_age, MAX(COALESCE(i.MaxAge, -1)) AS max_age
FROM Generations g
LEFT JOIN Input i ON i.SHA1 = g.Input_SHA1
WHERE g.Session IN ?
GROUP BY g.Input_SHA1
ORDER BY cnt DESC, sha1
LIMIT 10`
	if err := a.db.WithContext(ctx).Raw(q, ids).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("analytics: top used: %w", err)
	}
	return enrich(rows), nil
}

func enrich(rows []imageRow) []ImageStat {
	out := make([]ImageStat, 0, len(rows))
	for _, r := range rows {
		stat := ImageStat{
			SHA1:       r.SHA1,
			Count:      r.Cnt,
			GenderText: models.GenderText(r.Gender),
			AgeText:    "n.a.",
			FaceText:   "no face",
		}
		if r.Face {
			stat.FaceText = "face"
		}
		if r.MinAge >= 0 && r.MaxAge >= 0 {
			stat.AgeText = fmt.Sprintf("%d-%d", r.MinAge, r.MaxAge)
		}
		out = append(out, stat)
	}
	return out
}

// StyleUsage returns the percentage breakdown of generations by style within
// the working set's sessions, optionally restricted to a date range.
func (a *Aggregator) StyleUsage(ctx context.Context, start, end *time.Time) ([]StyleShare, error) {
	ids, err := a.workingSessions()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	q := a.db.WithContext(ctx).
		Model(&models.Generation{}).
		Select("Style AS style, COUNT(*) AS count").
		Where("Session IN ?", ids)
	if start != nil {
		q = q.Where("Timestamp >= ?", *start)
	}
	if end != nil {
		q = q.Where("Timestamp < ?", *end)
	}

	var rows []StyleShare
	if err := q.Group("Style").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("analytics: style usage: %w", err)
	}

	total := 0
	for _, r := range rows {
		total += r.Count
	}
	if total > 0 {
		for i := range rows {
			rows[i].Percent = 100 * float64(rows[i].Count) / float64(total)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Style < rows[j].Style
	})
	return rows, nil
}

// CountryCodeFromCountry resolves an alpha-3 code with a fixed precedence:
// exact ISO name, static fallback map, locale tag (exact then two-letter
// prefix) when the country itself is unavailable, and finally the first
// three letters uppercased. Misses return "" with a logged warning.
func (a *Aggregator) CountryCodeFromCountry(country, language string) string {
	if code, ok := isoByName[country]; ok {
		return code
	}
	if code, ok := nameFallback[country]; ok {
		return code
	}

	if country == "" || country == geoip.Unknown {
		lang := strings.ToLower(strings.TrimSpace(language))
		if code, ok := localeToCode[lang]; ok {
			return code
		}
		if idx := strings.IndexAny(lang, "-_"); idx > 0 {
			if code, ok := localeToCode[lang[:idx]]; ok {
				return code
			}
		}
		log.Printf("analytics: no country code for country=%q language=%q", country, language)
		return ""
	}

	up := strings.ToUpper(country)
	if len(up) > 3 {
		up = up[:3]
	}
	return up
}

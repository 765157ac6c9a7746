package token

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/inkbooth/inkbooth/internal/config"
	"github.com/inkbooth/inkbooth/internal/face"
	"github.com/inkbooth/inkbooth/internal/imaging"
	"github.com/inkbooth/inkbooth/internal/models"
)

// Service runs the token economy: award on upload, charge on generation,
// one award per image fingerprint per lock window.
type Service struct {
	cfg      config.Config
	repo     *Repo
	analyzer face.Analyzer
	locker   Locker
}

func NewService(cfg config.Config, repo *Repo, analyzer face.Analyzer, locker Locker) *Service {
	return &Service{cfg: cfg, repo: repo, analyzer: analyzer, locker: locker}
}

// UploadResult reports one HandleUpload outcome.
type UploadResult struct {
	State        SessionState `json:"state"`
	Fingerprint  string       `json:"fingerprint"`
	Awarded      int          `json:"awarded"`
	Locked       bool         `json:"locked"`
	Message      string       `json:"message,omitempty"`
	FaceDetected bool         `json:"face_detected"`
	Gender       int          `json:"gender"`
	MinAge       int          `json:"min_age"`
	MaxAge       int          `json:"max_age"`
}

// RegisterSession persists the first-contact context of a session.
// Persistence failures are logged, never surfaced.
func (s *Service) RegisterSession(ctx context.Context, state SessionState, row models.Session) {
	if !s.cfg.AnalyticsEnabled {
		return
	}
	row.Session = state.ID
	if row.Timestamp.IsZero() {
		row.Timestamp = time.Now()
	}
	if err := s.repo.EnsureSession(ctx, &row); err != nil {
		log.Printf("token: register session=%s failed err=%v", state.ID, err)
	}
}

// HandleUpload fingerprints the image, applies the award rules and refreshes
// the fingerprint lock. raw is the original upload for the face analyzer.
func (s *Service) HandleUpload(ctx context.Context, state SessionState, img image.Image, raw []byte) UploadResult {
	res := UploadResult{
		State:       state,
		Fingerprint: imaging.Fingerprint(img),
		Gender:      models.GenderUnknown,
		MinAge:      -1,
		MaxAge:      -1,
	}

	// Face analysis is enrichment: any failure means "no face detected".
	var faces []face.Face
	if s.analyzer != nil {
		fs, err := s.analyzer.Analyze(ctx, raw)
		if err != nil {
			log.Printf("token: face analysis failed session=%s err=%v", state.ID, err)
		} else {
			faces = fs
		}
	}
	res.FaceDetected = len(faces) > 0
	res.Gender, res.MinAge, res.MaxAge = aggregateFaces(faces)

	if s.cfg.TokenEnabled {
		window := time.Duration(s.cfg.TokenImageBlockedMinutes) * time.Minute
		taken, wait, err := s.locker.Acquire(ctx, res.Fingerprint, window)
		if err != nil {
			// lock backend down: favor availability, award anyway
			log.Printf("token: lock acquire failed fp=%s err=%v", res.Fingerprint, err)
			taken = true
		}
		if !taken {
			res.Locked = true
			res.Message = fmt.Sprintf("This image was already rewarded. Please wait %s before uploading it again.", roundWait(wait))
		} else {
			res.Awarded = s.award(faces)
			res.State.Tokens += res.Awarded
		}
	}

	cachePath := s.cacheUpload(res.Fingerprint, raw)
	s.persistInput(ctx, state.ID, cachePath, res)

	return res
}

func (s *Service) award(faces []face.Face) int {
	amount := s.cfg.TokenNewImage
	if len(faces) == 0 {
		return amount
	}
	amount += s.cfg.TokenBonusFace

	cute := false
	smile := false
	for _, f := range faces {
		if f.MinAge < 20 || f.MaxAge >= 60 {
			cute = true
		}
		if f.Gender == models.GenderFemale {
			smile = true
		}
	}
	if cute {
		amount += s.cfg.TokenBonusCuteness
	}
	// The "smile" bonus keeps the historical trigger: presence of a female
	// face, not an actual smile classifier.
	if smile {
		amount += s.cfg.TokenBonusSmile
	}
	return amount
}

// aggregateFaces folds per-face attributes into the persisted triple:
// first face sets the gender, any opposite face flips it to both; ages track
// min-of-mins and max-of-maxes.
func aggregateFaces(faces []face.Face) (gender, minAge, maxAge int) {
	gender, minAge, maxAge = models.GenderUnknown, -1, -1
	for _, f := range faces {
		if gender == models.GenderUnknown {
			gender = f.Gender
		} else if f.Gender != gender && gender != models.GenderBoth {
			gender = models.GenderBoth
		}
		if minAge < 0 || f.MinAge < minAge {
			minAge = f.MinAge
		}
		if f.MaxAge > maxAge {
			maxAge = f.MaxAge
		}
	}
	return gender, minAge, maxAge
}

// CanStartGeneration reports whether a generation may begin. With the token
// feature off this is always true.
func (s *Service) CanStartGeneration(state SessionState) bool {
	if !s.cfg.TokenEnabled {
		return true
	}
	return state.Tokens > 0
}

// ChargeForGeneration deducts one token and reports whether the balance just
// ran out. Balances never go below zero; callers must check
// CanStartGeneration first.
func (s *Service) ChargeForGeneration(state *SessionState) (low bool) {
	if !s.cfg.TokenEnabled {
		return false
	}
	if state.Tokens > 0 {
		state.Tokens--
	}
	return state.Tokens == 0
}

func (s *Service) cacheUpload(fingerprint string, raw []byte) string {
	if s.cfg.CacheDir == "" {
		return ""
	}
	if err := os.MkdirAll(s.cfg.CacheDir, 0o755); err != nil {
		log.Printf("token: cache dir: %v", err)
		return ""
	}
	path := filepath.Join(s.cfg.CacheDir, fingerprint+".png")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		log.Printf("token: cache write fp=%s err=%v", fingerprint, err)
		return ""
	}
	return path
}

func (s *Service) persistInput(ctx context.Context, sessionID, cachePath string, res UploadResult) {
	if !s.cfg.AnalyticsEnabled {
		return
	}
	in := &models.Input{
		Timestamp: time.Now(),
		Session:   sessionID,
		SHA1:      res.Fingerprint,
		CachePath: cachePath,
		Face:      res.FaceDetected,
		Gender:    res.Gender,
		MinAge:    res.MinAge,
		MaxAge:    res.MaxAge,
		Token:     res.Awarded,
	}
	if err := s.repo.InsertInput(ctx, in); err != nil {
		log.Printf("token: persist input session=%s fp=%s err=%v", sessionID, res.Fingerprint, err)
	}
}

func roundWait(d time.Duration) string {
	if d < time.Minute {
		return "a minute"
	}
	return d.Round(time.Minute).String()
}

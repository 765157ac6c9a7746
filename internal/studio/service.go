package studio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/inkbooth/inkbooth/internal/common"
	"github.com/inkbooth/inkbooth/internal/config"
	"github.com/inkbooth/inkbooth/internal/genai"
	"github.com/inkbooth/inkbooth/internal/imaging"
	"github.com/inkbooth/inkbooth/internal/models"
	"github.com/inkbooth/inkbooth/internal/styles"
	"github.com/inkbooth/inkbooth/internal/token"
)

var (
	ErrNoImage  = errors.New("studio: image is required")
	ErrNoTokens = errors.New("studio: token balance is empty")
)

// Service turns (session, image, style, description) into a stylized image
// plus its audit record. The generator is a shared resource: calls are gated
// by a weighted semaphore; captioning has its own, larger allowance.
type Service struct {
	cfg      config.Config
	repo     *Repo
	styles   *styles.Table
	gen      genai.Generator
	cap      genai.Captioner
	tokens   *token.Service
	genSem   *semaphore.Weighted
	capSem   *semaphore.Weighted
}

func NewService(cfg config.Config, repo *Repo, table *styles.Table, gen genai.Generator, captioner genai.Captioner, tokens *token.Service) *Service {
	genConc := int64(cfg.GenConcurrency)
	if genConc < 1 {
		genConc = 1
	}
	capConc := int64(cfg.CaptionConcurrency)
	if capConc < 1 {
		capConc = 1
	}
	return &Service{
		cfg:    cfg,
		repo:   repo,
		styles: table,
		gen:    gen,
		cap:    captioner,
		tokens: tokens,
		genSem: semaphore.NewWeighted(genConc),
		capSem: semaphore.NewWeighted(capConc),
	}
}

// Params is one generation request. Strength and Steps are only honored when
// the matching UI flag is configured; otherwise the style values win.
type Params struct {
	State       token.SessionState
	Image       []byte
	Fingerprint string
	StyleName   string
	Strength    float64
	Steps       int
	Description string
}

type Result struct {
	State       token.SessionState `json:"state"`
	Image       []byte             `json:"-"`
	Description string             `json:"description"`
	OutputPath  string             `json:"output_path,omitempty"`
	Warning     string             `json:"warning,omitempty"`
	LowBalance  bool               `json:"low_balance"`
}

// Generate runs the full request pipeline. A refused attempt (no tokens) is
// recorded as a blocked generation; a generator failure preserves the token
// balance and records nothing.
func (s *Service) Generate(ctx context.Context, p Params) (Result, error) {
	res := Result{State: p.State, Description: p.Description}

	if len(p.Image) == 0 {
		return res, ErrNoImage
	}

	if !s.tokens.CanStartGeneration(p.State) {
		s.persistGeneration(ctx, &models.Generation{
			Timestamp:   time.Now(),
			Session:     p.State.ID,
			InputSHA1:   p.Fingerprint,
			Style:       p.StyleName,
			Userprompt:  p.Description,
			IsBlocked:   true,
			BlockReason: "no tokens",
		})
		return res, ErrNoTokens
	}

	img, err := imaging.Decode(p.Image)
	if err != nil {
		return res, err
	}
	// Fingerprint the image as uploaded so the generation record matches the
	// upload record for the same picture; only the model input is downscaled.
	if p.Fingerprint == "" {
		p.Fingerprint = imaging.Fingerprint(img)
	}
	img = imaging.Downscale(img, s.cfg.MaxSize)

	initImage, err := imaging.EncodePNG(img)
	if err != nil {
		return res, err
	}
	mask, err := imaging.FullMask(img)
	if err != nil {
		return res, err
	}

	style := s.styles.Get(p.StyleName)

	desc := strings.TrimSpace(p.Description)
	if desc == "" {
		desc, res.Warning = s.describe(ctx, initImage)
	}
	res.Description = desc

	strength, steps := s.effectiveParams(style, p.Strength, p.Steps)

	if err := s.genSem.Acquire(ctx, 1); err != nil {
		return res, err
	}
	out, genErr := s.gen.Generate(ctx, genai.GenerateRequest{
		Prompt:         joinPrompt(style.Prompt, desc),
		NegativePrompt: style.NegativePrompt,
		Strength:       strength,
		Steps:          steps,
		BatchSize:      s.cfg.BatchSize,
		InitImage:      initImage,
		Mask:           mask,
	})
	s.genSem.Release(1)
	if genErr != nil {
		log.Printf("studio: generation failed session=%s style=%s err=%v", p.State.ID, style.Name, genErr)
		return res, fmt.Errorf("studio: generation failed: %w", genErr)
	}

	res.Image = out
	res.OutputPath = s.saveOutput(out)

	s.persistGeneration(ctx, &models.Generation{
		Timestamp:  time.Now(),
		Session:    p.State.ID,
		InputSHA1:  p.Fingerprint,
		Style:      style.Name,
		Userprompt: desc,
		Output:     res.OutputPath,
	})

	res.LowBalance = s.tokens.ChargeForGeneration(&res.State)
	return res, nil
}

// describe captions the image when the user left the description empty. A
// captioner failure degrades to an empty description with a user warning.
func (s *Service) describe(ctx context.Context, image []byte) (string, string) {
	if s.cap == nil {
		return "", ""
	}
	if err := s.capSem.Acquire(ctx, 1); err != nil {
		return "", ""
	}
	defer s.capSem.Release(1)

	desc, err := s.cap.Caption(ctx, image)
	if err != nil {
		log.Printf("studio: caption failed err=%v", err)
		return "", "Could not describe the image automatically; generating without a description."
	}
	return strings.TrimSpace(desc), ""
}

// effectiveParams applies the configuration-gated override contract:
// user values count only while the matching slider is shown.
func (s *Service) effectiveParams(style styles.Style, userStrength float64, userSteps int) (float64, int) {
	strength := style.Strength
	if s.cfg.ShowStrength && userStrength > 0 && userStrength <= 1 {
		strength = userStrength
	}
	steps := style.Steps
	if s.cfg.ShowSteps && userSteps > 0 && userSteps <= 150 {
		steps = userSteps
	}
	return strength, steps
}

func (s *Service) saveOutput(image []byte) string {
	if !s.cfg.SaveOutput || s.cfg.OutputDir == "" {
		return ""
	}
	dir := filepath.Join(s.cfg.OutputDir, time.Now().Format("2006-01-02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("studio: output dir: %v", err)
		return ""
	}
	path := filepath.Join(dir, uuid.NewString()+".png")
	if err := os.WriteFile(path, image, 0o644); err != nil {
		log.Printf("studio: output write: %v", err)
		return ""
	}
	return path
}

func (s *Service) persistGeneration(ctx context.Context, g *models.Generation) {
	if !s.cfg.AnalyticsEnabled {
		return
	}
	if err := s.repo.InsertGeneration(ctx, g); err != nil {
		log.Printf("studio: persist generation session=%s err=%v", g.Session, err)
	}
}

func joinPrompt(prefix, description string) string {
	prefix = strings.TrimSpace(prefix)
	description = strings.TrimSpace(description)
	switch {
	case prefix == "":
		return description
	case description == "":
		return prefix
	default:
		return prefix + ", " + description
	}
}

// EnqueueJob records an async generation and returns it. The token charge
// happens here, at accept time; see DESIGN.md for the no-refund decision.
func (s *Service) EnqueueJob(ctx context.Context, state token.SessionState, fingerprint, styleName, description string, strength float64, steps int, idempotencyKey *string) (*Job, bool, token.SessionState, error) {
	if !s.tokens.CanStartGeneration(state) {
		return nil, false, state, ErrNoTokens
	}

	id, err := common.NewULID()
	if err != nil {
		return nil, false, state, err
	}

	style := s.styles.Get(styleName)
	effStrength, effSteps := s.effectiveParams(style, strength, steps)

	job := &Job{
		ID:             id,
		Session:        state.ID,
		InputSHA1:      fingerprint,
		Style:          style.Name,
		Userprompt:     strings.TrimSpace(description),
		Strength:       effStrength,
		Steps:          effSteps,
		IdempotencyKey: idempotencyKey,
		Status:         JobQueued,
	}

	job, created, err := s.repo.CreateJobOrGetExisting(ctx, job)
	if err != nil {
		return nil, false, state, err
	}
	if created {
		s.tokens.ChargeForGeneration(&state)
	}
	return job, created, state, nil
}

// RunJob executes a queued job: the init image is read back from the upload
// cache by fingerprint.
func (s *Service) RunJob(ctx context.Context, jobID string) error {
	_ = s.repo.UpdateJobStatusRunning(ctx, jobID)

	j, err := s.repo.GetJobByID(ctx, jobID)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(filepath.Join(s.cfg.CacheDir, j.InputSHA1+".png"))
	if err != nil {
		msg := fmt.Sprintf("cached upload missing: %v", err)
		_ = s.repo.MarkJobFailed(ctx, jobID, msg)
		return errors.New(msg)
	}

	img, err := imaging.Decode(raw)
	if err != nil {
		_ = s.repo.MarkJobFailed(ctx, jobID, err.Error())
		return err
	}
	img = imaging.Downscale(img, s.cfg.MaxSize)

	initImage, err := imaging.EncodePNG(img)
	if err != nil {
		_ = s.repo.MarkJobFailed(ctx, jobID, err.Error())
		return err
	}
	mask, err := imaging.FullMask(img)
	if err != nil {
		_ = s.repo.MarkJobFailed(ctx, jobID, err.Error())
		return err
	}

	style := s.styles.Get(j.Style)

	if err := s.genSem.Acquire(ctx, 1); err != nil {
		return err
	}
	out, genErr := s.gen.Generate(ctx, genai.GenerateRequest{
		Prompt:         joinPrompt(style.Prompt, j.Userprompt),
		NegativePrompt: style.NegativePrompt,
		Strength:       j.Strength,
		Steps:          j.Steps,
		BatchSize:      s.cfg.BatchSize,
		InitImage:      initImage,
		Mask:           mask,
	})
	s.genSem.Release(1)
	if genErr != nil {
		_ = s.repo.MarkJobFailed(ctx, jobID, genErr.Error())
		return genErr
	}

	outputPath := s.saveOutput(out)
	if err := s.repo.MarkJobSucceeded(ctx, jobID, outputPath); err != nil {
		return err
	}

	s.persistGeneration(ctx, &models.Generation{
		Timestamp:  time.Now(),
		Session:    j.Session,
		InputSHA1:  j.InputSHA1,
		Style:      style.Name,
		Userprompt: j.Userprompt,
		Output:     outputPath,
	})
	return nil
}

// GetJob loads a job for status reporting.
func (s *Service) GetJob(ctx context.Context, jobID string) (*Job, error) {
	return s.repo.GetJobByID(ctx, jobID)
}

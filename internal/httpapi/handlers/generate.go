package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkbooth/inkbooth/internal/common"
	"github.com/inkbooth/inkbooth/internal/imaging"
	"github.com/inkbooth/inkbooth/internal/studio"
	"github.com/inkbooth/inkbooth/internal/token"
)

// uploads larger than this are rejected before decoding
const maxUploadBytes = 20 << 20

func readImageFile(c *gin.Context, field string) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, errors.New("image file is required")
	}
	if fh.Size > maxUploadBytes {
		return nil, fmt.Errorf("image larger than %d bytes", maxUploadBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxUploadBytes))
}

func decodeUpload(raw []byte) (image.Image, error) {
	return imaging.Decode(raw)
}

// Generate runs the synchronous pipeline and returns the drawing inline.
func (h *Handler) Generate(c *gin.Context) {
	state := token.InitializeSession(stateFromForm(c))

	raw, err := readImageFile(c, "image")
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10010, err.Error())
		return
	}

	strength, _ := strconv.ParseFloat(c.PostForm("strength"), 64)
	steps, _ := strconv.Atoi(c.PostForm("steps"))

	res, err := h.Studio.Generate(c.Request.Context(), studio.Params{
		State:       state,
		Image:       raw,
		StyleName:   c.PostForm("style"),
		Strength:    strength,
		Steps:       steps,
		Description: c.PostForm("description"),
	})
	if err != nil {
		switch {
		case errors.Is(err, studio.ErrNoImage):
			common.Fail(c, http.StatusBadRequest, 10012, "image is required")
		case errors.Is(err, studio.ErrNoTokens):
			common.Fail(c, http.StatusForbidden, 10013, "no tokens left, upload a new photo to earn more")
		default:
			log.Printf("[Generate] session=%s err=%v", state.ID, err)
			common.Fail(c, http.StatusInternalServerError, 50010, "generation failed, please try again")
		}
		return
	}

	common.OK(c, gin.H{
		"state":       res.State,
		"image":       base64.StdEncoding.EncodeToString(res.Image),
		"description": res.Description,
		"output_path": res.OutputPath,
		"warning":     res.Warning,
		"low_balance": res.LowBalance,
	})
}

// GenerateAsync accepts a job against an already-uploaded image and enqueues
// it. The Idempotency-Key header makes retries safe.
func (h *Handler) GenerateAsync(c *gin.Context) {
	if h.Rabbit == nil {
		common.Fail(c, http.StatusServiceUnavailable, 50300, "async generation is not available")
		return
	}

	state := token.InitializeSession(stateFromForm(c))

	fingerprint := strings.TrimSpace(c.PostForm("fingerprint"))
	if fingerprint == "" {
		common.Fail(c, http.StatusBadRequest, 10014, "fingerprint of an uploaded image is required")
		return
	}

	idempoKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if len(idempoKey) > 128 {
		common.Fail(c, http.StatusBadRequest, 10015, "idempotency key too long")
		return
	}
	var idempoKeyPtr *string
	if idempoKey != "" {
		idempoKeyPtr = &idempoKey
	}

	strength, _ := strconv.ParseFloat(c.PostForm("strength"), 64)
	steps, _ := strconv.Atoi(c.PostForm("steps"))

	job, created, newState, err := h.Studio.EnqueueJob(
		c.Request.Context(), state, fingerprint,
		c.PostForm("style"), c.PostForm("description"),
		strength, steps, idempoKeyPtr,
	)
	if err != nil {
		if errors.Is(err, studio.ErrNoTokens) {
			common.Fail(c, http.StatusForbidden, 10013, "no tokens left, upload a new photo to earn more")
			return
		}
		log.Printf("[GenerateAsync] session=%s err=%v", state.ID, err)
		common.Fail(c, http.StatusInternalServerError, 50011, "internal error")
		return
	}

	if created {
		if err := h.Rabbit.PublishJob(c.Request.Context(), job.ID); err != nil {
			log.Printf("[GenerateAsync] publish session=%s job=%s err=%v", state.ID, job.ID, err)
			common.Fail(c, http.StatusInternalServerError, 50012, "enqueue failed")
			return
		}
	}

	common.OK(c, gin.H{
		"job_id":  job.ID,
		"created": created,
		"state":   newState,
	})
}

// GetJob reports job status. Jobs of other sessions read as not found.
func (h *Handler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if jobID == "" {
		common.Fail(c, http.StatusBadRequest, 10016, "job_id required")
		return
	}
	sessionID := c.Query("session_id")

	j, err := h.Studio.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40402, "job not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50011, "internal error")
		return
	}
	if j.Session != sessionID {
		// hide existence
		common.Fail(c, http.StatusNotFound, 40402, "job not found")
		return
	}

	common.OK(c, gin.H{
		"job": gin.H{
			"id":         j.ID,
			"status":     j.Status,
			"style":      j.Style,
			"output":     j.Output,
			"error":      j.Error,
			"created_at": j.CreatedAt,
			"updated_at": j.UpdatedAt,
		},
	})
}

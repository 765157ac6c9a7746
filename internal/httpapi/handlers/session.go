package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/inkbooth/inkbooth/internal/common"
	"github.com/inkbooth/inkbooth/internal/httpapi/middleware"
	"github.com/inkbooth/inkbooth/internal/models"
	"github.com/inkbooth/inkbooth/internal/token"
)

type initSessionReq struct {
	SessionID string `json:"session_id"`
	Tokens    int    `json:"tokens"`
}

// InitSession restores or mints the client session and records first
// contact. The response state is what the browser must persist.
func (h *Handler) InitSession(c *gin.Context) {
	var req initSessionReq
	_ = c.ShouldBindJSON(&req) // empty body means brand-new session

	state := token.InitializeSession(token.SessionState{
		ID:     req.SessionID,
		Tokens: req.Tokens,
	})

	if v, ok := c.Get(middleware.ClientInfoKey); ok {
		if info, ok := v.(models.Session); ok {
			h.Tokens.RegisterSession(c.Request.Context(), state, info)
		}
	}

	common.OK(c, gin.H{"state": state})
}

// Upload handles one photo: fingerprint, face analysis, token award.
func (h *Handler) Upload(c *gin.Context) {
	state := token.InitializeSession(stateFromForm(c))

	raw, err := readImageFile(c, "image")
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10010, err.Error())
		return
	}

	img, err := decodeUpload(raw)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10011, "unsupported image format")
		return
	}

	res := h.Tokens.HandleUpload(c.Request.Context(), state, img, raw)
	common.OK(c, res)
}

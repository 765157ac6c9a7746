package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/inkbooth/inkbooth/internal/common"
	"github.com/inkbooth/inkbooth/internal/config"
	"github.com/inkbooth/inkbooth/internal/store/rabbitmq"
	"github.com/inkbooth/inkbooth/internal/studio"
	"github.com/inkbooth/inkbooth/internal/token"
)

type Handler struct {
	Cfg    config.Config
	Tokens *token.Service
	Studio *studio.Service
	Rabbit *rabbitmq.Publisher // nil when the async path is not deployed
}

func NewHandler(cfg config.Config, tokens *token.Service, st *studio.Service, rabbit *rabbitmq.Publisher) *Handler {
	return &Handler{Cfg: cfg, Tokens: tokens, Studio: st, Rabbit: rabbit}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}

// stateFromForm reads the client-carried session state from form fields.
func stateFromForm(c *gin.Context) token.SessionState {
	tokens, _ := strconv.Atoi(c.PostForm("tokens"))
	return token.SessionState{
		ID:     c.PostForm("session_id"),
		Tokens: tokens,
	}
}

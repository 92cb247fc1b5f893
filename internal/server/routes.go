package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/tamactl/internal/actor"
	"github.com/danmuck/tamactl/internal/auth"
	"github.com/danmuck/tamactl/internal/host"
	"github.com/danmuck/tamactl/internal/observability"
	"github.com/danmuck/tamactl/internal/pet"
	"github.com/danmuck/tamactl/internal/protocol/frame"
	"github.com/danmuck/tamactl/internal/protocol/wire"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ContentTypeFrame marks framed request and reply bodies.
const ContentTypeFrame = "application/x-tama-frame"

func (s *Server) registerRoutes() {
	r := s.router
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"node":    s.opts.ID,
			"block":   s.world.Runtime.Now(),
			"version": Version,
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/programs", s.handlePrograms)
	r.GET("/pet/state", s.handleState)
	r.POST("/pet/handle", s.handlePet)
	if s.opts.AdminToken != "" {
		r.POST("/blocks/advance", auth.Require(auth.StaticToken{Token: s.opts.AdminToken}), s.handleAdvance)
	} else {
		r.POST("/blocks/advance", s.handleAdvance)
	}
	r.GET("/journal", s.handleJournal)
}

func (s *Server) handlePrograms(c *gin.Context) {
	ids := s.world.Runtime.Programs()
	out := make([]gin.H, 0, len(ids))
	for _, id := range ids {
		out = append(out, gin.H{
			"id":           id,
			"reservations": s.world.Runtime.Reservations(id),
		})
	}
	c.JSON(http.StatusOK, gin.H{"programs": out, "pending": s.world.Runtime.Pending()})
}

func (s *Server) handleState(c *gin.Context) {
	if c.Query("format") == "scale" {
		b, err := s.world.Pet.State()
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/octet-stream", b)
		return
	}
	st, err := s.world.Pet.Snapshot()
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	now := s.world.Runtime.Now()
	c.JSON(http.StatusOK, gin.H{
		"block":  now,
		"state":  st,
		"levels": pet.CurrentLevels(st, now),
	})
}

// handlePet accepts one handle frame. The source comes from the frame auth
// bytes, falling back to the actor header.
func (s *Server) handlePet(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, int64(frame.DefaultLimits().MaxPayloadBytes)+4096))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, err := frame.Unmarshal(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if in.Header.MessageType != frame.TypeHandle {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unexpected message type %d", in.Header.MessageType)})
		return
	}
	source, err := s.source(c, in)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	gas := s.opts.GasLimit
	if raw := c.Query("gas"); raw != "" {
		if gas, err = strconv.ParseUint(raw, 10, 64); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid gas"})
			return
		}
	}

	reply, sendErr := s.world.Runtime.Send(c.Request.Context(), source, s.world.PetID, in.Payload, gas)
	out := frame.Frame{Header: frame.Header{
		MessageID:   in.Header.MessageID,
		MessageType: frame.TypeReply,
		Flags:       frame.FlagIsReply,
	}}
	status := http.StatusOK
	switch {
	case sendErr != nil:
		_ = c.Error(sendErr)
		out.Header.Flags |= frame.FlagIsError
		out.Payload = []byte(sendErr.Error())
		status = statusFor(sendErr)
	case reply == nil:
		out.Header.Flags |= frame.FlagNoReply
	default:
		out.Payload = reply
	}
	b, err := frame.Marshal(out)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(status, ContentTypeFrame, b)
}

func (s *Server) source(c *gin.Context, in frame.Frame) (actor.ID, error) {
	if in.Header.Flags&frame.FlagHasAuth != 0 {
		if len(in.Auth) != actor.IDLen {
			return actor.Zero, fmt.Errorf("auth must be %d bytes, got %d", actor.IDLen, len(in.Auth))
		}
		var id actor.ID
		copy(id[:], in.Auth)
		return id, nil
	}
	raw := strings.TrimSpace(c.GetHeader(observability.HeaderActorID))
	if raw == "" {
		return actor.Zero, errors.New("missing source identity")
	}
	return actor.ResolveID(raw), nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pet.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, pet.ErrDecode), errors.Is(err, wire.ErrDecode):
		return http.StatusBadRequest
	case errors.Is(err, host.ErrOutOfGas):
		return http.StatusPaymentRequired
	case errors.Is(err, host.ErrHandlerRejected):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleAdvance(c *gin.Context) {
	n, err := strconv.ParseUint(c.DefaultQuery("n", "1"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid block count"})
		return
	}
	delivered, err := s.world.Runtime.Advance(c.Request.Context(), n)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "delivered": delivered})
		return
	}
	c.JSON(http.StatusOK, gin.H{"block": s.world.Runtime.Now(), "delivered": delivered})
}

func (s *Server) handleJournal(c *gin.Context) {
	if s.world.Journal == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "journal disabled"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	entries, err := s.world.Journal.Recent(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/arena/internal/battle"
	"github.com/zulandar/arena/internal/matchmaking"
	"github.com/zulandar/arena/internal/models"
	"github.com/zulandar/arena/internal/quota"
)

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, opts *StartOpts) {
	api := router.Group("/api")

	api.GET("/match", handleMatch(opts))
	api.GET("/ratings", handleRatings(opts))

	api.POST("/agents", handleCreateAgent(opts))
	api.PATCH("/agents/:id/status", handleAgentStatus(opts))
	api.PATCH("/agents/:id/result", handleAgentResult(opts))

	api.POST("/battles", handleCreateBattle(opts))
	api.GET("/battles/:id", handleGetBattle(opts))
	api.PATCH("/battles/:id/status", handleBattleStatus(opts))
	api.POST("/battles/:id/vote", handleVote(opts))

	api.POST("/demo/claim", handleDemoClaim(opts))
	api.POST("/demo/session", handleDemoSession(opts))
}

func handleMatch(opts *StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg := opts.Matchmaking
		if required := c.Query("required_agent"); required != "" {
			cfg.RequiredAgent = required
		}
		match, err := matchmaking.Find(opts.DB, cfg)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, match)
	}
}

func handleRatings(opts *StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var ratings []models.Rating
		if err := opts.DB.Order("elo_rating DESC").Find(&ratings).Error; err != nil {
			fail(c, fmt.Errorf("server: list ratings: %w", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"ratings": ratings})
	}
}

func handleCreateAgent(opts *StartOpts) gin.HandlerFunc {
	type req struct {
		Name  string `json:"name" binding:"required"`
		Model string `json:"model"`
	}
	return func(c *gin.Context) {
		var r req
		if err := c.ShouldBindJSON(&r); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_argument", "error": err.Error()})
			return
		}
		run, err := battle.CreateAgentRun(opts.DB, r.Name, r.Model)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, run)
	}
}

func handleAgentStatus(opts *StartOpts) gin.HandlerFunc {
	type req struct {
		Status string `json:"status" binding:"required"`
		Error  string `json:"error"`
	}
	return func(c *gin.Context) {
		var r req
		if err := c.ShouldBindJSON(&r); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_argument", "error": err.Error()})
			return
		}
		if err := battle.UpdateAgentRunStatus(opts.DB, c.Param("id"), r.Status, r.Error); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func handleAgentResult(opts *StartOpts) gin.HandlerFunc {
	type req struct {
		Agent string `json:"agent"`
	}
	return func(c *gin.Context) {
		var r req
		if err := c.ShouldBindJSON(&r); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_argument", "error": err.Error()})
			return
		}
		if err := battle.SetAgentRunResult(opts.DB, c.Param("id"), r.Agent); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func handleCreateBattle(opts *StartOpts) gin.HandlerFunc {
	type req struct {
		Instruction   string `json:"instruction" binding:"required"`
		AgentAID      string `json:"agent_a_id" binding:"required"`
		AgentBID      string `json:"agent_b_id" binding:"required"`
		SameFramework bool   `json:"same_framework"`
		// Fingerprint gates anonymous callers through the demo quota.
		Fingerprint string `json:"fingerprint"`
	}
	return func(c *gin.Context) {
		var r req
		if err := c.ShouldBindJSON(&r); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_argument", "error": err.Error()})
			return
		}

		userID := c.GetHeader(userHeader)
		if userID == "" {
			if r.Fingerprint == "" {
				fail(c, battle.ErrNoSession)
				return
			}
			res, err := quota.ClaimN(opts.DB, r.Fingerprint, clientIP(c), opts.QuotaMax)
			if err != nil {
				fail(c, err)
				return
			}
			if !res.Allowed {
				fail(c, fmt.Errorf("%w: %d/%d used", quota.ErrQuotaExceeded, res.QueriesUsed, res.MaxQueries))
				return
			}
		}

		b, err := battle.Create(opts.DB, battle.CreateOpts{
			UserID:        userID,
			Instruction:   r.Instruction,
			AgentAID:      r.AgentAID,
			AgentBID:      r.AgentBID,
			SameFramework: r.SameFramework,
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, b)
	}
}

func handleGetBattle(opts *StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, err := battle.Get(opts.DB, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

func handleBattleStatus(opts *StartOpts) gin.HandlerFunc {
	type req struct {
		Status      string     `json:"status" binding:"required"`
		CompletedAt *time.Time `json:"completed_at"`
	}
	return func(c *gin.Context) {
		var r req
		if err := c.ShouldBindJSON(&r); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_argument", "error": err.Error()})
			return
		}
		if err := battle.UpdateStatus(opts.DB, c.Param("id"), r.Status, r.CompletedAt); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func handleVote(opts *StartOpts) gin.HandlerFunc {
	type req struct {
		VoteType string `json:"vote_type" binding:"required"`
		WinnerID string `json:"winner_id"`
	}
	return func(c *gin.Context) {
		var r req
		if err := c.ShouldBindJSON(&r); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_argument", "error": err.Error()})
			return
		}
		res, err := battle.SubmitVote(opts.DB, battle.VoteOpts{
			BattleID: c.Param("id"),
			UserID:   c.GetHeader(userHeader),
			VoteType: r.VoteType,
			WinnerID: r.WinnerID,
		})
		if err != nil {
			fail(c, err)
			return
		}
		if opts.Announcer != nil {
			opts.Announcer.VoteResult(c.Request.Context(), res)
		}
		c.JSON(http.StatusOK, res)
	}
}

func handleDemoClaim(opts *StartOpts) gin.HandlerFunc {
	type req struct {
		Fingerprint string `json:"fingerprint" binding:"required"`
	}
	return func(c *gin.Context) {
		var r req
		if err := c.ShouldBindJSON(&r); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_argument", "error": err.Error()})
			return
		}
		res, err := quota.ClaimN(opts.DB, r.Fingerprint, clientIP(c), opts.QuotaMax)
		if err != nil {
			fail(c, err)
			return
		}
		// Denial is a query result, not an error.
		c.JSON(http.StatusOK, res)
	}
}

func handleDemoSession(opts *StartOpts) gin.HandlerFunc {
	type req struct {
		UsageID   string `json:"usage_id" binding:"required"`
		SessionID string `json:"session_id" binding:"required"`
	}
	return func(c *gin.Context) {
		var r req
		if err := c.ShouldBindJSON(&r); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_argument", "error": err.Error()})
			return
		}
		if err := quota.AssociateSession(opts.DB, r.UsageID, r.SessionID); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// clientIP resolves the caller's address, mapping an unresolvable one to
// the quota layer's sentinel.
func clientIP(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		return quota.UnknownIP
	}
	return ip
}

package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/skyrc/skyrc/internal/app"
	"github.com/skyrc/skyrc/internal/auth"
	"github.com/skyrc/skyrc/internal/domain"
)

const sessionCookie = "skyrc_session_id"

// authHandler maps the session store's result values onto the HTTP contract:
// 404 for unknown sessions, 401 for expired/idle ones, 200 with the identity
// payload otherwise.
type authHandler struct {
	sessions   *app.SessionStore
	provider   auth.Provider
	sessionTTL time.Duration
	secureMode bool
}

// login starts the authorization flow. The CSRF state and the caller's room
// hint ride in the signed cookie session across the redirect.
func (h *authHandler) login(c *gin.Context) {
	state, err := auth.NewState()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start login"})
		return
	}

	sess := sessions.Default(c)
	sess.Set("oauth_state", state)
	if room := c.Query("room"); room != "" {
		sess.Set("room_hint", room)
	}
	if err := sess.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start login"})
		return
	}

	c.Redirect(http.StatusFound, h.provider.AuthCodeURL(state))
}

// callback completes the flow: verifies state, exchanges the code for a
// verified identity, creates the session and sends the client back to its
// room hint.
func (h *authHandler) callback(c *gin.Context) {
	sess := sessions.Default(c)
	wantState, _ := sess.Get("oauth_state").(string)
	roomHint, _ := sess.Get("room_hint").(string)
	sess.Delete("oauth_state")
	sess.Delete("room_hint")
	_ = sess.Save()

	if wantState == "" || c.Query("state") != wantState {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state mismatch"})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	identity, grant, err := h.provider.Exchange(c.Request.Context(), code)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("code exchange failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "authentication failed"})
		return
	}

	sid, err := h.sessions.Create(identity, grant)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	c.SetCookie(sessionCookie, sid, int(h.sessionTTL.Seconds()), "/", "", h.secureMode, false)

	target := "/"
	if room, err := domain.CleanRoomName(roomHint); err == nil {
		target = "/" + string(room)
	}
	c.Redirect(http.StatusFound, target)
}

func (h *authHandler) getSession(c *gin.Context) {
	identity, err := h.sessions.Validate(c.Param("id"))
	if err != nil {
		h.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": identity})
}

func (h *authHandler) refreshSession(c *gin.Context) {
	id := c.Param("id")
	remaining, err := h.sessions.Refresh(id)
	if err != nil {
		h.sessionError(c, err)
		return
	}
	lastActivity, _ := h.sessions.LastActivity(id)
	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"timeUntilExpiration": remaining.Milliseconds(),
		"lastActivity":        lastActivity.UnixMilli(),
	})
}

func (h *authHandler) logout(c *gin.Context) {
	h.sessions.Delete(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *authHandler) sessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, app.ErrSessionExpired), errors.Is(err, app.ErrSessionIdle):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/naka-gawa/pr-dashboard/internal/domain"
)

// statusClientClosedRequest is the nginx status for a client that went away before the response.
const statusClientClosedRequest = 499

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorStatus maps a use case error to an HTTP status and an error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrFetchFailed):
		return http.StatusBadGateway, "FETCH_FAILED"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, "CANCELED"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	s.logger.Errorw("request failed", "path", c.Request.URL.Path, "status", status, "error", err)
	c.JSON(status, errorBody{Error: errorDetail{Code: code, Message: err.Error()}})
}

// handlePulls returns one page of the dashboard as JSON.
func (s *Server) handlePulls(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	state := parseState(c)
	view, err := s.dashboard.View(ctx, s.username, state)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleOrganizations(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	orgs, err := s.dashboard.Organizations(ctx, s.username)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"organizations": orgs})
}

func (s *Server) handleProfile(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	profile, err := s.dashboard.Profile(ctx, s.username)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/vidshare/internal/platform/middleware"
	requestutil "github.com/taibuivan/vidshare/internal/platform/request"
	"github.com/taibuivan/vidshare/internal/platform/respond"
	"github.com/taibuivan/vidshare/pkg/pagination"
	"github.com/taibuivan/vidshare/pkg/query"
)

// Handler implements the HTTP layer for account self-service.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns a [chi.Router] with the account endpoints. Every route requires authentication.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/me", handler.getMe)
	router.Get("/sessions", handler.listSessions)
	router.Delete("/sessions/{sessionID}", handler.revokeSession)
	router.Get("/activity", handler.listActivity)

	return router
}

/*
GET /api/v1/account/me.

Response:
  - 200: auth.Profile
  - 401: ErrUnauthorized
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.accountService.GetProfile(request.Context(), identity.ID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile)
}

/*
GET /api/v1/account/sessions.

Response:
  - 200: []SessionInfo, the current session flagged
*/
func (handler *Handler) listSessions(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessions, err := handler.accountService.ListSessions(request.Context(), identity.ID, identity.SessionID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, sessions)
}

/*
DELETE /api/v1/account/sessions/{sessionID}.

Response:
  - 204: Revoked
  - 404: Unknown or foreign session
*/
func (handler *Handler) revokeSession(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessionID := requestutil.Param(request, "sessionID")
	if err := handler.accountService.RevokeSession(request.Context(), identity.ID, sessionID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
GET /api/v1/account/activity.

Request:
  - type: string (Comma-separated event types)
  - page: int
  - limit: int

Response:
  - 200: []audit.Event with pagination meta
  - 400: ErrValidation: Unknown event type
*/
func (handler *Handler) listActivity(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	page := pagination.FromRequest(request)
	events, total, err := handler.accountService.ListActivity(request.Context(), identity.ID, ActivityQuery{
		Types: query.StringSlice(request.URL.Query().Get("type")),
		Page:  page,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, events, pagination.NewMeta(page, total))
}

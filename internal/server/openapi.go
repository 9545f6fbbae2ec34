package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "CacheQuest API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the CacheQuest geocaching game.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/auth/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/auth/login")
	postLogin.SetSummary("Log in")
	postLogin.SetDescription("Authenticate with username and password. Returns a bearer token.")
	postLogin.AddReqStructure(LoginRequest{})
	postLogin.AddRespStructure(LoginResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusTooManyRequests))
	_ = r.AddOperation(postLogin)

	// POST /api/auth/logout
	postLogout, _ := r.NewOperationContext(http.MethodPost, "/api/auth/logout")
	postLogout.SetSummary("Log out")
	postLogout.SetDescription("Deletes the presented session. Idempotent.")
	postLogout.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postLogout)

	// GET /api/auth/me
	getMe, _ := r.NewOperationContext(http.MethodGet, "/api/auth/me")
	getMe.SetSummary("Current user")
	getMe.SetDescription("Returns the authenticated account with its find count. Requires Bearer token.")
	getMe.AddRespStructure(MeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getMe.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getMe)

	// GET /api/spots
	listSpots, _ := r.NewOperationContext(http.MethodGet, "/api/spots")
	listSpots.SetSummary("List active spots")
	listSpots.SetDescription("Returns active spots with obfuscated coordinates. Requires Bearer token.")
	listSpots.AddRespStructure([]SpotListItem{}, openapi.WithHTTPStatus(http.StatusOK))
	listSpots.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listSpots)

	// GET /api/spots/{id}/clue
	getClue, _ := r.NewOperationContext(http.MethodGet, "/api/spots/{id}/clue")
	getClue.SetSummary("Get spot clue")
	getClue.SetDescription("Returns the clue and obfuscated coordinates for an active spot. Requires Bearer token.")
	getClue.AddRespStructure(ClueResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getClue.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getClue)

	// GET /api/spots/{id}/finds
	getSpotFinds, _ := r.NewOperationContext(http.MethodGet, "/api/spots/{id}/finds")
	getSpotFinds.SetSummary("List spot finders")
	getSpotFinds.SetDescription("Returns who found the spot, oldest first. Requires Bearer token.")
	getSpotFinds.AddRespStructure([]SpotFindItem{}, openapi.WithHTTPStatus(http.StatusOK))
	getSpotFinds.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getSpotFinds)

	// POST /api/spots/claim
	postClaim, _ := r.NewOperationContext(http.MethodPost, "/api/spots/claim")
	postClaim.SetSummary("Claim a cache")
	postClaim.SetDescription("Submit a cache code to record a find. Requires Bearer token.")
	postClaim.AddReqStructure(ClaimRequest{})
	postClaim.AddRespStructure(ClaimResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postClaim.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postClaim.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postClaim.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusTooManyRequests))
	_ = r.AddOperation(postClaim)

	// GET /api/spots/updates
	getUpdates, _ := r.NewOperationContext(http.MethodGet, "/api/spots/updates")
	getUpdates.SetSummary("Poll for new finds")
	getUpdates.SetDescription("Returns finds newer than the since timestamp, oldest first. Requires Bearer token.")
	getUpdates.AddRespStructure([]UpdateItem{}, openapi.WithHTTPStatus(http.StatusOK))
	getUpdates.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(getUpdates)

	// GET /api/users/me/finds
	getMyFinds, _ := r.NewOperationContext(http.MethodGet, "/api/users/me/finds")
	getMyFinds.SetSummary("Own find history")
	getMyFinds.SetDescription("Returns the caller's finds, newest first. Requires Bearer token.")
	getMyFinds.AddRespStructure([]MyFindItem{}, openapi.WithHTTPStatus(http.StatusOK))
	getMyFinds.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getMyFinds)

	// GET /api/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream of find events. Pass token as query parameter.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// POST /api/spots
	createSpot, _ := r.NewOperationContext(http.MethodPost, "/api/spots")
	createSpot.SetSummary("Create spot")
	createSpot.SetDescription("Creates a spot with a generated cache code. Requires admin role.")
	createSpot.AddReqStructure(SpotCreateRequest{})
	createSpot.AddRespStructure(SpotDetail{}, openapi.WithHTTPStatus(http.StatusCreated))
	createSpot.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createSpot.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	_ = r.AddOperation(createSpot)

	// GET /api/spots/{id}
	getSpot, _ := r.NewOperationContext(http.MethodGet, "/api/spots/{id}")
	getSpot.SetSummary("Get spot")
	getSpot.SetDescription("Returns a spot with its exact coordinates and code. Requires admin role.")
	getSpot.AddRespStructure(SpotDetail{}, openapi.WithHTTPStatus(http.StatusOK))
	getSpot.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getSpot)

	// PATCH /api/spots/{id}
	updateSpot, _ := r.NewOperationContext(http.MethodPatch, "/api/spots/{id}")
	updateSpot.SetSummary("Update spot")
	updateSpot.SetDescription("Partially updates a spot. The cache code is immutable. Requires admin role.")
	updateSpot.AddReqStructure(SpotUpdateRequest{})
	updateSpot.AddRespStructure(SpotDetail{}, openapi.WithHTTPStatus(http.StatusOK))
	updateSpot.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	updateSpot.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(updateSpot)

	// DELETE /api/spots/{id}
	deleteSpot, _ := r.NewOperationContext(http.MethodDelete, "/api/spots/{id}")
	deleteSpot.SetSummary("Deactivate spot")
	deleteSpot.SetDescription("Soft-deletes a spot. Finds are preserved. Requires admin role.")
	deleteSpot.AddRespStructure(SpotDeleteResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	deleteSpot.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteSpot)

	// GET /api/admin/spots
	adminSpots, _ := r.NewOperationContext(http.MethodGet, "/api/admin/spots")
	adminSpots.SetSummary("List all spots")
	adminSpots.SetDescription("Returns every spot including inactive ones. Requires admin role.")
	adminSpots.AddRespStructure([]SpotDetail{}, openapi.WithHTTPStatus(http.StatusOK))
	adminSpots.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	_ = r.AddOperation(adminSpots)

	// GET /api/admin/spots/{id}/qr
	getQR, _ := r.NewOperationContext(http.MethodGet, "/api/admin/spots/{id}/qr")
	getQR.SetSummary("Spot QR code")
	getQR.SetDescription("Renders the cache code as a PNG. Requires admin role.")
	getQR.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("image/png"))
	getQR.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getQR)

	// GET /api/admin/users
	listUsers, _ := r.NewOperationContext(http.MethodGet, "/api/admin/users")
	listUsers.SetSummary("List users")
	listUsers.SetDescription("Returns all accounts with find counts. Requires admin role.")
	listUsers.AddRespStructure([]User{}, openapi.WithHTTPStatus(http.StatusOK))
	listUsers.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	_ = r.AddOperation(listUsers)

	// POST /api/admin/users
	createUser, _ := r.NewOperationContext(http.MethodPost, "/api/admin/users")
	createUser.SetSummary("Create user")
	createUser.SetDescription("Creates an account. Requires admin role.")
	createUser.AddReqStructure(UserCreateRequest{})
	createUser.AddRespStructure(User{}, openapi.WithHTTPStatus(http.StatusCreated))
	createUser.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(createUser)

	// GET /api/admin/users/{id}
	getUser, _ := r.NewOperationContext(http.MethodGet, "/api/admin/users/{id}")
	getUser.SetSummary("Get user")
	getUser.SetDescription("Returns one account. Requires admin role.")
	getUser.AddRespStructure(User{}, openapi.WithHTTPStatus(http.StatusOK))
	getUser.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getUser)

	// PATCH /api/admin/users/{id}
	updateUser, _ := r.NewOperationContext(http.MethodPatch, "/api/admin/users/{id}")
	updateUser.SetSummary("Update user")
	updateUser.SetDescription("Partially updates an account, subject to the self-action and last-admin guards. Requires admin role.")
	updateUser.AddReqStructure(UserUpdateRequest{})
	updateUser.AddRespStructure(User{}, openapi.WithHTTPStatus(http.StatusOK))
	updateUser.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	updateUser.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(updateUser)

	// DELETE /api/admin/users/{id}
	deleteUser, _ := r.NewOperationContext(http.MethodDelete, "/api/admin/users/{id}")
	deleteUser.SetSummary("Delete user")
	deleteUser.SetDescription("Hard-deletes an account and its finds, subject to the guards. Requires admin role.")
	deleteUser.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	deleteUser.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	deleteUser.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteUser)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

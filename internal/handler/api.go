package handler

// This file implements the JSON API used by non-browser clients. Callers
// authenticate with the session token as a bearer token; the token is the
// access_token returned by register and login.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/loadshare/internal/auth"
	"github.com/DukeRupert/loadshare/internal/domain"
	"github.com/DukeRupert/loadshare/internal/service"
	"github.com/DukeRupert/loadshare/internal/session"
)

// maxJSONBody bounds API request bodies.
const maxJSONBody = 1 << 20

// APIHandler serves /api/.
//
// Routes handled:
// - POST /api/auth/register        -> Register (rate limited by the caller)
// - POST /api/auth/login           -> Login (rate limited by the caller)
// - POST /api/auth/logout          -> Logout
// - GET  /api/auth/me              -> Me
// - GET  /api/loads                -> ListLoads
// - POST /api/loads                -> CreateLoad
// - GET  /api/loads/{id}           -> GetLoad
// - POST /api/loads/{id}/claim     -> ClaimLoad
// - POST /api/loads/{id}/status    -> UpdateLoadStatus
// - POST /api/messages             -> SendMessage
// - GET  /api/messages/load/{id}   -> ListMessages
type APIHandler struct {
	users    service.UserService
	loads    service.LoadService
	messages service.MessageService
	logger   *slog.Logger
}

// NewAPIHandler creates an APIHandler.
func NewAPIHandler(users service.UserService, loads service.LoadService, messages service.MessageService, logger *slog.Logger) *APIHandler {
	return &APIHandler{users: users, loads: loads, messages: messages, logger: logger}
}

// RegisterRoutes registers every API route except register and login,
// which the caller wraps with the auth rate limiter.
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.HandleFunc("GET /api/auth/me", h.Me)
	mux.HandleFunc("GET /api/loads", h.ListLoads)
	mux.HandleFunc("POST /api/loads", h.CreateLoad)
	mux.HandleFunc("GET /api/loads/{id}", h.GetLoad)
	mux.HandleFunc("POST /api/loads/{id}/claim", h.ClaimLoad)
	mux.HandleFunc("POST /api/loads/{id}/status", h.UpdateLoadStatus)
	mux.HandleFunc("POST /api/messages", h.SendMessage)
	mux.HandleFunc("GET /api/messages/load/{id}", h.ListMessages)
}

// =============================================================================
// Response Types
// =============================================================================

// UserResponse is the public view of a user. Role-specific fields are
// flattened and omitted for the other role.
type UserResponse struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Email       string              `json:"email"`
	Phone       string              `json:"phone"`
	UserType    domain.Role         `json:"user_type"`
	Location    string              `json:"location,omitempty"`
	LicenseInfo string              `json:"license_info,omitempty"`
	ServiceArea string              `json:"service_area,omitempty"`
	VehicleInfo *domain.VehicleInfo `json:"vehicle_info,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        UserResponse `json:"user"`
}

// ImageResponse describes one photo of a load.
type ImageResponse struct {
	ID           uuid.UUID `json:"id"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url"`
	Filename     string    `json:"filename"`
	ContentType  string    `json:"content_type"`
	SizeBytes    int64     `json:"size_bytes"`
}

// LoadResponse is the public view of a load.
type LoadResponse struct {
	ID                  uuid.UUID         `json:"id"`
	OwnerID             uuid.UUID         `json:"owner_id"`
	OwnerName           string            `json:"owner_name,omitempty"`
	DriverID            *uuid.UUID        `json:"driver_id"`
	Title               string            `json:"title"`
	Description         string            `json:"description"`
	PickupLocation      string            `json:"pickup_location"`
	DeliveryLocation    string            `json:"delivery_location"`
	Status              domain.LoadStatus `json:"status"`
	Weight              *float64          `json:"weight"`
	Dimensions          string            `json:"dimensions,omitempty"`
	PickupDate          *time.Time        `json:"pickup_date"`
	SpecialRequirements string            `json:"special_requirements,omitempty"`
	Images              []ImageResponse   `json:"images"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// MessageResponse is one message of a load's conversation.
type MessageResponse struct {
	ID         uuid.UUID `json:"id"`
	LoadID     uuid.UUID `json:"load_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

func toUserResponse(u *domain.User) UserResponse {
	resp := UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		UserType:  u.Role,
		CreatedAt: u.CreatedAt,
	}
	if p := u.LoadOwner(); p != nil {
		resp.Location = p.Location
	}
	if p := u.Driver(); p != nil {
		resp.LicenseInfo = p.LicenseInfo
		resp.ServiceArea = p.ServiceArea
		if !p.Vehicle.IsZero() {
			v := p.Vehicle
			resp.VehicleInfo = &v
		}
	}
	return resp
}

func toLoadResponse(l *domain.Load) LoadResponse {
	resp := LoadResponse{
		ID:                  l.ID,
		OwnerID:             l.OwnerID,
		OwnerName:           l.OwnerName,
		DriverID:            l.DriverID,
		Title:               l.Title,
		Description:         l.Description,
		PickupLocation:      l.PickupLocation,
		DeliveryLocation:    l.DeliveryLocation,
		Status:              l.Status,
		Weight:              l.Weight,
		Dimensions:          l.Dimensions,
		PickupDate:          l.PickupDate,
		SpecialRequirements: l.SpecialRequirements,
		Images:              make([]ImageResponse, 0, len(l.Images)),
		CreatedAt:           l.CreatedAt,
		UpdatedAt:           l.UpdatedAt,
	}
	for _, img := range l.Images {
		resp.Images = append(resp.Images, ImageResponse{
			ID:           img.ID,
			URL:          "/images/" + img.ID.String(),
			ThumbnailURL: "/images/" + img.ID.String() + "/thumbnail",
			Filename:     img.OriginalFilename,
			ContentType:  img.ContentType,
			SizeBytes:    img.SizeBytes,
		})
	}
	return resp
}

func toLoadResponses(loads []domain.Load) []LoadResponse {
	out := make([]LoadResponse, 0, len(loads))
	for i := range loads {
		out = append(out, toLoadResponse(&loads[i]))
	}
	return out
}

func toMessageResponse(m *domain.Message) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		LoadID:     m.LoadID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Message:    m.Body,
		CreatedAt:  m.CreatedAt,
	}
}

// =============================================================================
// Auth
// =============================================================================

// Register creates an account and returns its access token with 201.
// A duplicate email is a 400 "Email already registered".
func (h *APIHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	params, err := req.Params()
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.users.Register(r.Context(), params)
	if err != nil {
		if domain.IsCode(err, domain.ECONFLICT) {
			h.logger.Info("registration rejected", "reason", "duplicate email")
			WriteJSONError(w, http.StatusBadRequest, domain.ECONFLICT, domain.ErrorMessage(err), nil)
			return
		}
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		AccessToken: result.Token,
		TokenType:   session.TokenType,
		User:        toUserResponse(result.User),
	})
}

// Login exchanges credentials for an access token.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var params domain.LoginParams
	if !h.decode(w, r, &params) {
		return
	}

	result, err := h.users.Login(r.Context(), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		AccessToken: result.Token,
		TokenType:   session.TokenType,
		User:        toUserResponse(result.User),
	})
}

// Logout invalidates the caller's token. It is idempotent.
func (h *APIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := session.Token(r); token != "" {
		if err := h.users.Logout(r.Context(), token); err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user.
func (h *APIHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// =============================================================================
// Loads
// =============================================================================

// ListLoads returns posted loads by default. With scope=mine it returns the
// caller's own loads: posted ones for owners, claimed ones for drivers.
func (h *APIHandler) ListLoads(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	page := service.Page{Limit: queryInt(q.Get("limit")), Offset: queryInt(q.Get("offset"))}

	var (
		loads []domain.Load
		err   error
	)
	switch q.Get("scope") {
	case "", "available":
		loads, err = h.loads.ListAvailable(r.Context(), page)
	case "mine":
		if user.IsDriver() {
			loads, err = h.loads.ListByDriver(r.Context(), user.ID, page)
		} else {
			loads, err = h.loads.ListByOwner(r.Context(), user.ID, page)
		}
	default:
		err = domain.NewValidationError("handler.listLoads", "scope", "Scope must be 'available' or 'mine'")
	}
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoadResponses(loads))
}

// CreateLoad posts a load. Only load owners may post.
func (h *APIHandler) CreateLoad(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	var req domain.CreateLoadRequest
	if !h.decode(w, r, &req) {
		return
	}
	params, err := req.Params(user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	load, err := h.loads.Create(r.Context(), user, params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLoadResponse(load))
}

// GetLoad returns a load with its photos.
func (h *APIHandler) GetLoad(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.user(w, r); !ok {
		return
	}
	id, ok := loadID(w, r, h.logger)
	if !ok {
		return
	}

	load, err := h.loads.Get(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoadResponse(load))
}

// ClaimLoad assigns a posted load to the calling driver.
func (h *APIHandler) ClaimLoad(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	id, ok := loadID(w, r, h.logger)
	if !ok {
		return
	}

	load, err := h.loads.Claim(r.Context(), user, id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoadResponse(load))
}

// UpdateLoadStatus moves a load along its lifecycle.
func (h *APIHandler) UpdateLoadStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	id, ok := loadID(w, r, h.logger)
	if !ok {
		return
	}
	var body struct {
		Status domain.LoadStatus `json:"status"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	if !body.Status.IsValid() {
		ErrorResponse(w, r, h.logger, domain.NewValidationError("handler.updateStatus", "status", "Unknown load status"))
		return
	}

	load, err := h.loads.UpdateStatus(r.Context(), user, id, body.Status)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoadResponse(load))
}

// =============================================================================
// Messages
// =============================================================================

// SendMessage posts {load_id, message} to a load's conversation.
func (h *APIHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	var params domain.SendMessageParams
	if !h.decode(w, r, &params) {
		return
	}
	params.SenderID = user.ID

	msg, err := h.messages.Send(r.Context(), user, params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMessageResponse(msg))
}

// ListMessages returns a load's conversation, oldest first.
func (h *APIHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	id, ok := loadID(w, r, h.logger)
	if !ok {
		return
	}

	msgs, err := h.messages.ListByLoad(r.Context(), user, id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	out := make([]MessageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, toMessageResponse(&msgs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// Helpers
// =============================================================================

func (h *APIHandler) user(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return nil, false
	}
	return user, true
}

// decode reads a JSON body into dst. Only application/json is accepted,
// which also keeps the API out of reach of cross-site form posts.
func (h *APIHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		WriteJSONError(w, http.StatusUnsupportedMediaType, domain.EINVALID, "Content-Type must be application/json", nil)
		return false
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteJSONError(w, http.StatusRequestEntityTooLarge, domain.ETOOLARGE, "Request body too large", nil)
			return false
		}
		h.logger.Info("invalid JSON body", "path", r.URL.Path, "error", err)
		WriteJSONError(w, http.StatusBadRequest, domain.EINVALID, "Invalid JSON body", nil)
		return false
	}
	return true
}

func queryInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

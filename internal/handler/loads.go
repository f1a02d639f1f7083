package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
	"time"

	twmerge "github.com/Oudwins/tailwind-merge-go"
	"github.com/google/uuid"

	"github.com/DukeRupert/loadshare/internal/domain"
	"github.com/DukeRupert/loadshare/internal/form"
	"github.com/DukeRupert/loadshare/internal/service"
)

// imagesField is the multipart field photos are uploaded under.
const imagesField = "images"

// multipartMemory is how much of an upload is held in memory before the
// rest spills to temporary files.
const multipartMemory = 32 << 20

// MaxLoadFormBytes bounds the body of POST /loads: every photo at its size
// limit plus room for the text fields.
const MaxLoadFormBytes = domain.MaxImagesPerLoad*domain.MaxImageSize + 1<<20

// LoadHandler serves the load pages: posting, viewing, claiming, moving a
// load along its lifecycle and the conversation between owner and driver.
type LoadHandler struct {
	pages
	loads    service.LoadService
	messages service.MessageService
	images   service.ImageService
	guard    *form.Guard
	delay    time.Duration
}

// NewLoadHandler creates a LoadHandler.
func NewLoadHandler(
	loads service.LoadService,
	messages service.MessageService,
	images service.ImageService,
	guard *form.Guard,
	renderer TemplateRenderer,
	logger *slog.Logger,
	isSecure bool,
	successDelay time.Duration,
) *LoadHandler {
	return &LoadHandler{
		pages:    pages{renderer: renderer, logger: logger, isSecure: isSecure},
		loads:    loads,
		messages: messages,
		images:   images,
		guard:    guard,
		delay:    successDelay,
	}
}

// LoadFormContent is the page data of the new load page.
type LoadFormContent struct {
	Form       FormView
	MaxImages  int
	MaxImageMB int
}

// StatusAction is a lifecycle step the viewer may take.
type StatusAction struct {
	Target domain.LoadStatus
	Label  string
	Danger bool
}

// Class styles declining a claim as a destructive action.
func (a StatusAction) Class() string {
	const base = "btn w-full bg-blue-600 text-white hover:bg-blue-700"
	if a.Danger {
		return twmerge.Merge(base, "bg-red-600 hover:bg-red-700")
	}
	return base
}

// LoadContent is the page data of the load detail page.
type LoadContent struct {
	Load         *domain.Load
	IsOwner      bool
	IsAssigned   bool
	CanClaim     bool
	CanMessage   bool
	Actions      []StatusAction
	Messages     []domain.Message
	MessageDraft string
}

// =============================================================================
// GET /loads/new - Show Load Form
// =============================================================================

// ShowNew displays the form for posting a load.
func (h *LoadHandler) ShowNew(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	c := h.createController(user, nil, nil, form.Values{}).WithKey(form.NewKey())
	h.renderNew(w, r, http.StatusOK, c)
}

// =============================================================================
// POST /loads - Create Load
// =============================================================================

// Create posts a load and attaches the uploaded photos.
//
// Photos are checked for count and size before the load is created. A photo
// that fails to upload afterwards does not undo the load; the success page
// says how many were skipped.
func (h *LoadHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Upload too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.logger.Warn("failed to parse form", "error", err)
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	schema := form.MustLookup(form.CreateLoad)
	files := uploadedImages(r)
	nav := &navigation{}
	up := &uploads{files: files}

	c := h.createController(user, up, nav, form.ValuesFrom(schema, r.PostForm)).
		WithKey(r.PostFormValue(form.KeyField))

	err := c.Submit(r.Context())
	recordSubmission(form.CreateLoad, err)

	switch {
	case err == nil:
		message := c.Message()
		if up.failed > 0 {
			message += fmt.Sprintf(" %d of %d photos could not be uploaded.", up.failed, len(files))
		}
		h.renderSuccess(w, r, message, nav)
	case errors.Is(err, form.ErrDone):
		http.Redirect(w, r, PathLoadOwnerDashboard, http.StatusSeeOther)
	default:
		status := submitStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("load creation failed", "user_id", user.ID, "error", err)
		}
		view := newFormView(c, "/loads")
		if errors.Is(err, form.ErrBusy) {
			view.General = busyMessage
		}
		h.render(w, r, status, "loads/new", h.newPage(w, r, "Post a Load", h.loadFormContent(view)))
	}
}

// uploads carries the photos of one create request into the submit
// collaborator and counts the ones that failed.
type uploads struct {
	files  []*multipart.FileHeader
	failed int
}

func (h *LoadHandler) createController(user *domain.User, up *uploads, nav form.Navigator, values form.Values) *form.Controller {
	if up == nil {
		up = &uploads{}
	}
	return form.New(form.Config{
		Schema: form.MustLookup(form.CreateLoad),
		Rules:  []form.Rule{imagesRule(up.files)},
		Submit: func(ctx context.Context, sub form.Submission) (form.Receipt, error) {
			return h.submitLoad(ctx, user, up, sub)
		},
		Navigator: nav,
		Guard:     h.guard,
		Delay:     h.delay,
		Logger:    h.logger,
	}, values, user.Role)
}

func (h *LoadHandler) submitLoad(ctx context.Context, user *domain.User, up *uploads, sub form.Submission) (form.Receipt, error) {
	const op = "handler.createLoad"

	var req domain.CreateLoadRequest
	if err := sub.Decode(&req); err != nil {
		return form.Receipt{}, domain.NewValidationError(op, "weight", "Weight must be a number")
	}
	params, err := req.Params(user.ID)
	if err != nil {
		return form.Receipt{}, err
	}
	load, err := h.loads.Create(ctx, user, params)
	if err != nil {
		return form.Receipt{}, err
	}

	for _, fh := range up.files {
		if err := h.upload(ctx, user, load.ID, fh); err != nil {
			up.failed++
			h.logger.Warn("photo upload failed",
				"load_id", load.ID,
				"filename", fh.Filename,
				"error", err,
			)
		}
	}

	return form.Receipt{Destination: domain.DestinationLoadOwnerDashboard, Value: load}, nil
}

func (h *LoadHandler) upload(ctx context.Context, user *domain.User, loadID uuid.UUID, fh *multipart.FileHeader) error {
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = h.images.Upload(ctx, service.UploadImageParams{
		LoadID:   loadID,
		UserID:   user.ID,
		Filename: fh.Filename,
		Size:     fh.Size,
		Data:     f,
	})
	return err
}

func uploadedImages(r *http.Request) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	return r.MultipartForm.File[imagesField]
}

// imagesRule rejects too many or oversized photos before anything is
// created.
func imagesRule(files []*multipart.FileHeader) form.Rule {
	return func(form.Values, domain.Role, time.Time) form.Errors {
		if len(files) > domain.MaxImagesPerLoad {
			return form.Errors{imagesField: fmt.Sprintf("You can attach at most %d photos", domain.MaxImagesPerLoad)}
		}
		for _, fh := range files {
			if err := domain.ValidateImageSize(fh.Size); err != nil {
				return form.Errors{imagesField: fh.Filename + ": " + domain.ErrorMessage(err)}
			}
		}
		return nil
	}
}

func (h *LoadHandler) renderNew(w http.ResponseWriter, r *http.Request, status int, c *form.Controller) {
	view := newFormView(c, "/loads")
	h.render(w, r, status, "loads/new", h.newPage(w, r, "Post a Load", h.loadFormContent(view)))
}

func (h *LoadHandler) loadFormContent(view FormView) LoadFormContent {
	return LoadFormContent{
		Form:       view,
		MaxImages:  domain.MaxImagesPerLoad,
		MaxImageMB: domain.MaxImageSize / (1024 * 1024),
	}
}

// =============================================================================
// GET /loads/{id} - Load Detail
// =============================================================================

// Show displays a load. The conversation is shown to the owner and the
// assigned driver only.
func (h *LoadHandler) Show(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
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
	h.showLoad(w, r, user, load, http.StatusOK, nil, "")
}

func (h *LoadHandler) showLoad(w http.ResponseWriter, r *http.Request, user *domain.User, load *domain.Load, status int, flash *Flash, draft string) {
	content := LoadContent{
		Load:         load,
		IsOwner:      load.IsOwnedBy(user.ID),
		IsAssigned:   load.IsAssignedTo(user.ID),
		CanClaim:     user.IsDriver() && load.Status.CanTransitionTo(domain.LoadStatusClaimed),
		CanMessage:   load.IsParticipant(user.ID),
		Actions:      statusActions(user, load),
		MessageDraft: draft,
	}

	if content.CanMessage {
		msgs, err := h.messages.ListByLoad(r.Context(), user, load.ID)
		if err != nil {
			h.logger.Warn("failed to load messages", "load_id", load.ID, "error", err)
		}
		content.Messages = msgs
	}

	data := h.newPage(w, r, load.Title, content)
	if flash != nil {
		data.Flash = flash
	}
	h.render(w, r, status, "loads/show", data)
}

// statusActions lists the transitions the viewer may trigger from the
// detail page. Claiming has its own button.
func statusActions(user *domain.User, load *domain.Load) []StatusAction {
	var actions []StatusAction
	for _, target := range []domain.LoadStatus{
		domain.LoadStatusAccepted,
		domain.LoadStatusPosted,
		domain.LoadStatusInTransit,
		domain.LoadStatusDelivered,
	} {
		if !load.Status.CanTransitionTo(target) {
			continue
		}
		switch load.Status.ActorFor(target) {
		case domain.RoleLoadOwner:
			if !load.IsOwnedBy(user.ID) {
				continue
			}
		case domain.RoleDriver:
			if !load.IsAssignedTo(user.ID) {
				continue
			}
		}
		actions = append(actions, StatusAction{
			Target: target,
			Label:  actionLabel(target),
			Danger: target == domain.LoadStatusPosted,
		})
	}
	return actions
}

func actionLabel(target domain.LoadStatus) string {
	switch target {
	case domain.LoadStatusAccepted:
		return "Accept Driver"
	case domain.LoadStatusPosted:
		return "Decline Claim"
	case domain.LoadStatusInTransit:
		return "Mark In Transit"
	case domain.LoadStatusDelivered:
		return "Mark Delivered"
	}
	return target.Label()
}

// =============================================================================
// POST /loads/{id}/claim, /status, /messages
// =============================================================================

// Claim assigns a posted load to the signed-in driver.
func (h *LoadHandler) Claim(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id, ok := loadID(w, r, h.logger)
	if !ok {
		return
	}

	if _, err := h.loads.Claim(r.Context(), user, id); err != nil {
		h.actionFailed(w, r, user, id, err, "")
		return
	}
	h.logger.Info("load claimed", "load_id", id, "driver_id", user.ID)
	http.Redirect(w, r, LoadPath(id.String())+"?notice=claimed", http.StatusSeeOther)
}

// UpdateStatus moves a load to the posted status value.
func (h *LoadHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id, ok := loadID(w, r, h.logger)
	if !ok {
		return
	}

	target := domain.LoadStatus(strings.TrimSpace(r.PostFormValue("status")))
	if !target.IsValid() {
		h.actionFailed(w, r, user, id, domain.Invalid("handler.updateStatus", "Unknown load status"), "")
		return
	}

	if _, err := h.loads.UpdateStatus(r.Context(), user, id, target); err != nil {
		h.actionFailed(w, r, user, id, err, "")
		return
	}
	http.Redirect(w, r, LoadPath(id.String())+"?notice=status", http.StatusSeeOther)
}

// SendMessage posts a message to the load's conversation.
func (h *LoadHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id, ok := loadID(w, r, h.logger)
	if !ok {
		return
	}

	body := r.PostFormValue("message")
	_, err := h.messages.Send(r.Context(), user, domain.SendMessageParams{
		LoadID:   id,
		SenderID: user.ID,
		Body:     body,
	})
	if err != nil {
		h.actionFailed(w, r, user, id, err, body)
		return
	}
	http.Redirect(w, r, LoadPath(id.String())+"?notice=message#messages", http.StatusSeeOther)
}

// actionFailed re-renders the detail page with the error as a flash.
func (h *LoadHandler) actionFailed(w http.ResponseWriter, r *http.Request, user *domain.User, id uuid.UUID, err error, draft string) {
	load, getErr := h.loads.Get(r.Context(), id)
	if getErr != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	status := ErrorCodeToHTTPStatus(domain.ErrorCode(err))
	message := domain.ErrorMessage(err)
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		status = http.StatusUnprocessableEntity
		message = firstFieldMessage(ve)
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("load action failed", "load_id", id, "user_id", user.ID, "error", err)
	}
	h.showLoad(w, r, user, load, status, &Flash{Type: "error", Message: message}, draft)
}

func firstFieldMessage(ve *domain.ValidationError) string {
	keys := make([]string, 0, len(ve.Fields))
	for k := range ve.Fields {
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return "Please check your input and try again."
	}
	sort.Strings(keys)
	return ve.Fields[keys[0]]
}

// loadID parses the {id} path value. Malformed ids are a 404.
func loadID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		NotFoundResponse(w, r, logger)
		return uuid.Nil, false
	}
	return id, true
}

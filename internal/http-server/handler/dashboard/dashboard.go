package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"

	"fraud-viewer/internal/domain"
	"fraud-viewer/internal/http-server/handler/dashboard/dto"
	repoSubmission "fraud-viewer/internal/repository/submission"
	"fraud-viewer/internal/view/page"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
)

const (
	maxMemory     = 32 << 20
	sessionCookie = "fv_session"
	defaultLimit  = 20
)

//go:embed templates/index.html
var templates embed.FS

var indexTemplate = template.Must(template.ParseFS(templates, "templates/index.html"))

type DashboardHandler struct {
	pages         pageStore
	history       historyReader
	archive       archiveReader
	validate      *validator.Validate
	maxUploadSize int64
	logger        *zlog.Zerolog
}

// NewDashboardHandler builds the web front handler. history and archive may be nil when
// the corresponding backends are disabled.
func NewDashboardHandler(pages pageStore, history historyReader, archive archiveReader, maxUploadSize int64, logger *zlog.Zerolog) *DashboardHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = domain.DefaultMaxUploadSize
	}

	return &DashboardHandler{
		pages:         pages,
		history:       history,
		archive:       archive,
		validate:      validator.New(),
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

type chartSlot struct {
	Title    string
	CanvasID string
	ImageSrc string
}

type indexData struct {
	Fields []string
	State  page.State
	Slots  []chartSlot
	Charts []chartView
}

func (h *DashboardHandler) Index(w http.ResponseWriter, r *http.Request) {
	sessionID := h.session(w, r)
	state := h.snapshot(sessionID)

	data := indexData{
		Fields: domain.UploadFields,
		State:  state,
		Charts: chartViews(state.Charts),
	}
	for _, target := range []domain.ChartTarget{domain.TargetFraudDistribution, domain.TargetFeatureImportance} {
		data.Slots = append(data.Slots, chartSlot{
			Title:    target.Title(),
			CanvasID: canvasIDs[target],
			ImageSrc: state.ChartImages[target],
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		h.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to render page")
	}
}

// Submit forwards the uploaded form to the analysis service and applies the outcome to
// the session's page. Browsers are redirected back to the page, API clients get the state.
func (h *DashboardHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sessionID := h.session(w, r)
	entry := h.pages.GetOrCreate(sessionID)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		h.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to parse multipart form")

		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(w, http.StatusRequestEntityTooLarge, "Upload too large", nil)
			return
		}
		h.respondError(w, http.StatusBadRequest, "Invalid request format", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	payload := payloadFromForm(r.MultipartForm)

	// A started analysis runs to completion even if the browser goes away.
	sub, err := entry.Session.Submit(context.WithoutCancel(r.Context()), entry.Page, payload)
	if err != nil {
		h.logger.Info().
			Err(err).
			Str("session_id", sessionID).
			Msg("Submission did not succeed")
	}

	if wantsJSON(r) {
		status := http.StatusOK
		if sub != nil && sub.Status == domain.SubmissionStale {
			status = http.StatusConflict
		}
		h.respondJSON(w, status, dto.StateResponse{SessionID: sessionID, State: entry.Page.Snapshot()})
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *DashboardHandler) State(w http.ResponseWriter, r *http.Request) {
	sessionID := h.session(w, r)
	state := h.snapshot(sessionID)

	h.respondJSON(w, http.StatusOK, dto.StateResponse{SessionID: sessionID, State: state})
}

func (h *DashboardHandler) Submissions(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.respondError(w, http.StatusServiceUnavailable, "Submission history is disabled", ErrHistoryDisabled)
		return
	}

	req, err := h.parseListRequest(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}

	sessionID := ""
	if req.Scope == "session" {
		sessionID = h.session(w, r)
	}

	subs, err := h.history.List(r.Context(), sessionID, req.Limit, req.Offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list submissions")
		h.respondError(w, http.StatusInternalServerError, "Failed to list submissions", err)
		return
	}

	resp := dto.ListSubmissionsResponse{
		Submissions: make([]dto.SubmissionResponse, 0, len(subs)),
		Limit:       req.Limit,
		Offset:      req.Offset,
	}
	for _, s := range subs {
		resp.Submissions = append(resp.Submissions, dto.NewSubmissionResponse(s))
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// ArchivedPredictions streams the predictions CSV kept in the archive for a submission.
func (h *DashboardHandler) ArchivedPredictions(w http.ResponseWriter, r *http.Request) {
	if h.history == nil || h.archive == nil {
		h.respondError(w, http.StatusServiceUnavailable, "Archive is disabled", ErrArchiveDisabled)
		return
	}

	req := dto.ArchivedPredictionsRequest{ID: chi.URLParam(r, "id")}
	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Submission ID is invalid", nil)
		return
	}

	sub, err := h.history.GetByID(r.Context(), req.ID)
	if err != nil {
		h.handleArchiveError(w, err, req.ID)
		return
	}
	if sub.Status != domain.SubmissionArchived || sub.ArchivePrefix == "" {
		h.handleArchiveError(w, ErrNotArchived, req.ID)
		return
	}

	reader, err := h.archive.Get(r.Context(), sub.ArchivePrefix+domain.ArchivePredictions)
	if err != nil {
		h.handleArchiveError(w, err, req.ID)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"predictions_%s.csv\"", req.ID))

	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Error().Err(err).Str("submission_id", req.ID).Msg("Failed to stream archived predictions")
	}
}

func (h *DashboardHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *DashboardHandler) parseListRequest(r *http.Request) (dto.ListSubmissionsRequest, error) {
	q := r.URL.Query()
	req := dto.ListSubmissionsRequest{Limit: defaultLimit, Scope: "session"}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("limit: %w", err)
		}
		req.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("offset: %w", err)
		}
		req.Offset = n
	}
	if v := q.Get("scope"); v != "" {
		req.Scope = v
	}

	if err := h.validate.Struct(req); err != nil {
		return req, err
	}
	return req, nil
}

func (h *DashboardHandler) handleArchiveError(w http.ResponseWriter, err error, id string) {
	switch {
	case errors.Is(err, repoSubmission.ErrSubmissionNotFound):
		h.respondError(w, http.StatusNotFound, "Submission not found", nil)
	case errors.Is(err, ErrNotArchived), errors.Is(err, repoSubmission.ErrObjectNotFound):
		h.logger.Info().Str("submission_id", id).Msg("Archived predictions not found")
		h.respondError(w, http.StatusNotFound, "Archived predictions not found", nil)
	default:
		h.logger.Error().Err(err).Str("submission_id", id).Msg("Failed to read archive")
		h.respondError(w, http.StatusInternalServerError, "Failed to read archive", err)
	}
}

// snapshot reads the session's page without creating one; sessions only get a page
// once they submit.
func (h *DashboardHandler) snapshot(sessionID string) page.State {
	if entry, ok := h.pages.Get(sessionID); ok {
		return entry.Page.Snapshot()
	}
	return page.New().Snapshot()
}

// session returns the browser session id, issuing a new cookie when none is present.
func (h *DashboardHandler) session(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}

	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.AddCookie(&http.Cookie{Name: sessionCookie, Value: id})

	return id
}

// payloadFromForm forwards every text field and file part of the form. Known upload
// fields come first in their page order; anything else follows sorted by name.
func payloadFromForm(form *multipart.Form) *domain.Payload {
	payload := &domain.Payload{}

	names := make([]string, 0, len(form.Value))
	for name := range form.Value {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, value := range form.Value[name] {
			payload.Fields = append(payload.Fields, domain.FormField{Name: name, Value: value})
		}
	}

	fileNames := make([]string, 0, len(form.File))
	for name := range form.File {
		fileNames = append(fileNames, name)
	}
	slices.SortFunc(fileNames, func(a, b string) int {
		ia, ib := slices.Index(domain.UploadFields, a), slices.Index(domain.UploadFields, b)
		switch {
		case ia >= 0 && ib >= 0:
			return ia - ib
		case ia >= 0:
			return -1
		case ib >= 0:
			return 1
		}
		return strings.Compare(a, b)
	})

	for _, name := range fileNames {
		for _, fh := range form.File[name] {
			payload.Files = append(payload.Files, domain.FilePart{
				Field:       name,
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Open: func() (io.ReadCloser, error) {
					f, err := fh.Open()
					if err != nil {
						return nil, err
					}
					return f, nil
				},
			})
		}
	}

	return payload
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

func (h *DashboardHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *DashboardHandler) respondError(w http.ResponseWriter, status int, message string, err error) {
	response := dto.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	}

	if err != nil {
		response.Details = err.Error()
	}

	h.respondJSON(w, status, response)
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/geonode/geonode/internal/application"
	"github.com/geonode/geonode/internal/domain"
	"github.com/geonode/geonode/internal/ports/input"
)

const defaultPageSize = 20

// handleHealth returns detailed health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	details := s.health.GetHealthDetails(r.Context())

	status := http.StatusOK
	if !details.Healthy {
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, map[string]interface{}{
		"status":        boolToStatus(details.Healthy),
		"ready":         details.Ready,
		"layers_loaded": details.LayersLoaded,
		"components":    details.Components,
	})
}

// handleLiveness returns liveness status.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	if s.health.IsHealthy(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
}

// handleReadiness reports whether both catalogs answer.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.health.IsReady(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
	}
}

// handleListLayers returns the layers visible to the caller, paged with
// limit and offset.
func (s *Server) handleListLayers(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	limit, offset, err := pageParams(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	views, err := s.layers.List(r.Context(), user)
	if err != nil {
		s.handleDomainError(w, user, err)
		return
	}

	total := len(views)
	page := views[min(offset, total):]
	if limit > 0 && limit < len(page) {
		page = page[:limit]
	}

	objects := make([]layerObject, 0, len(page))
	for i := range page {
		objects = append(objects, newLayerObject(&page[i], false))
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"meta": map[string]interface{}{
			"limit":       limit,
			"offset":      offset,
			"total_count": total,
		},
		"objects": objects,
	})
}

// handleGetLayer returns one layer. A hidden layer answers 401 to anonymous
// callers and 403 to everybody else.
func (s *Server) handleGetLayer(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	id, err := layerID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := s.layers.Get(r.Context(), user, id)
	if err != nil {
		s.handleDomainError(w, user, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newLayerObject(view, view.Permissions.CanAdmin(user)))
}

// handleSetPermissions replaces the rules of a layer.
func (s *Server) handleSetPermissions(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	id, err := layerID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var spec domain.PermissionSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid permission spec: "+err.Error())
		return
	}

	if err := s.layers.SetPermissions(r.Context(), user, id, spec); err != nil {
		s.handleDomainError(w, user, err)
		return
	}
	s.writeJSON(w, http.StatusOK, spec)
}

// uploadRequest is the body of POST /api/uploads.
type uploadRequest struct {
	Path        string                 `json:"path"`
	Overwrite   bool                   `json:"overwrite"`
	Keywords    []string               `json:"keywords"`
	Title       string                 `json:"title"`
	Abstract    string                 `json:"abstract"`
	Permissions *domain.PermissionSpec `json:"permissions"`
}

// handleUpload publishes a file or directory on the server's filesystem.
// Only superusers may upload.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	if user.IsAnonymous() {
		s.challenge(w)
		return
	}
	if !user.IsSuperuser {
		s.writeError(w, http.StatusForbidden, "only superusers may upload layers")
		return
	}

	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid upload request: "+err.Error())
		return
	}
	if req.Path == "" {
		s.writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	report, err := s.uploads.Upload(r.Context(), req.Path, input.UploadOptions{
		Username:    user.Username,
		Title:       req.Title,
		Abstract:    req.Abstract,
		Keywords:    req.Keywords,
		Overwrite:   req.Overwrite,
		Permissions: req.Permissions,
	})
	if err != nil {
		s.handleDomainError(w, user, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// handleSync triggers an ingest of the object storage.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	if !user.IsSuperuser {
		s.handleDomainError(w, user, domain.ErrPermissionDenied)
		return
	}

	result, err := s.ingest.TriggerSync(r.Context())
	if err != nil {
		if errors.Is(err, application.ErrRateLimited) {
			w.Header().Set("Retry-After", "30")
			s.writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Try again in 30 seconds.")
			return
		}
		s.logger.Error("ingest failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Ingest failed")
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// handleOpenAPI returns the OpenAPI specification.
func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	spec, err := openAPIJSON()
	if err != nil {
		s.logger.Error("failed to get OpenAPI spec", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to load OpenAPI specification")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(spec)
}

// authenticate resolves basic auth credentials. Requests without
// credentials run as the anonymous user; bad credentials are answered
// with 401 and ok is false.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	username, password, present := r.BasicAuth()
	if !present {
		return domain.Anonymous, true
	}
	user, err := s.auth.Authenticate(r.Context(), username, password)
	if err != nil {
		if !errors.Is(err, domain.ErrPermissionDenied) {
			s.logger.Error("authentication failed", "username", username, "error", err)
		}
		s.challenge(w)
		return domain.Anonymous, false
	}
	return *user, true
}

func (s *Server) challenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="geonode"`)
	s.writeError(w, http.StatusUnauthorized, "authentication required")
}

// handleDomainError maps service errors to HTTP statuses.
func (s *Server) handleDomainError(w http.ResponseWriter, user domain.User, err error) {
	var validationErr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrPermissionDenied), domain.KindOf(err) == domain.KindPermissionDenied:
		if user.IsAnonymous() {
			s.challenge(w)
			return
		}
		s.writeError(w, http.StatusForbidden, "you are not allowed to access this layer")
	case errors.Is(err, domain.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "not found")
	case errors.As(err, &validationErr):
		s.writeError(w, http.StatusBadRequest, validationErr.Message)
	case errors.Is(err, domain.ErrInvalidInput), domain.KindOf(err) == domain.KindInvalidInput:
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnavailable), domain.KindOf(err) == domain.KindServiceUnavailable:
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func layerID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(varOf(r, "id"), 10, 64)
	if err != nil {
		return 0, errors.New("invalid layer id")
	}
	return id, nil
}

func pageParams(r *http.Request) (limit, offset int, err error) {
	limit = defaultPageSize
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			return 0, 0, errors.New("invalid limit parameter")
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, errors.New("invalid offset parameter")
		}
	}
	return limit, offset, nil
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func boolToStatus(b bool) string {
	if b {
		return "ok"
	}
	return "unhealthy"
}

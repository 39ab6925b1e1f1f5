package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/sagarc03/itemgate"
)

// ItemService is the gateway the handlers delegate to.
// *itemgate.ItemStore implements it.
type ItemService interface {
	AddItem(ctx context.Context, owner itemgate.OwnerIdentity, itemName string, content []byte) (itemgate.ItemMetadata, error)
	GetItem(ctx context.Context, req itemgate.FetchRequest) ([]byte, error)
	ListItems(ctx context.Context, owner itemgate.OwnerIdentity) ([]itemgate.ItemMetadata, error)
}

// Authorizer checks the raw Authorization header of a request.
// *itemgate.Authorizer implements it.
type Authorizer interface {
	Authorize(ctx context.Context, header string) (itemgate.Credential, error)
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	// BasePath prefixes every item route, e.g. "/file_api". Empty mounts at root.
	BasePath string
	// MaxUploadSize caps the upload request body in bytes. Zero is unlimited.
	MaxUploadSize int64
	CORS          CORSConfig
	// Observer receives request metrics. Nil disables them.
	Observer RequestObserver
	// MetricsHandler is served at /metrics when set.
	MetricsHandler http.Handler
}

// Handler provides the HTTP surface of the gateway: upload, list, fetch and status.
type Handler struct {
	config  HandlerConfig
	service ItemService
	auth    Authorizer
}

// NewHandler creates a new Handler with the given configuration, gateway and authorizer.
func NewHandler(config *HandlerConfig, service ItemService, auth Authorizer) *Handler {
	cfg := *config
	cfg.BasePath = normalizeBasePath(cfg.BasePath)

	return &Handler{
		config:  cfg,
		service: service,
		auth:    auth,
	}
}

func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

// Router returns an http.Handler with every route mounted under the base path.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(AccessLogMiddleware(h.config.Observer))
	r.Use(RecoverMiddleware)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	if h.config.MetricsHandler != nil {
		r.Handle("/metrics", h.config.MetricsHandler)
	}

	items := chi.NewRouter()
	items.Get("/status", h.handleStatus)
	items.Post("/{ownerName}/{ownerId}/item/form", h.handleUpload)
	items.Get("/{ownerName}/{ownerId}/filelist", h.handleList)
	items.Get("/{ownerName}/{ownerId}/{itemType}/{presentationType}/{filename}", h.handleFetch)

	if h.config.BasePath == "" {
		r.Mount("/", items)
	} else {
		r.Mount(h.config.BasePath, items)
	}

	return r
}

func (h *Handler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "OK")
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.Authorize(r.Context(), r.Header.Get("Authorization")); err != nil {
		HandleError(w, err)
		return
	}

	owner, ok := ownerFromPath(w, r)
	if !ok {
		return
	}

	items, err := h.service.ListItems(r.Context(), owner)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) handleFetch(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.Authorize(r.Context(), r.Header.Get("Authorization")); err != nil {
		HandleError(w, err)
		return
	}

	owner, ok := ownerFromPath(w, r)
	if !ok {
		return
	}

	params, ok := pathParams(w, r, "itemType", "presentationType", "filename")
	if !ok {
		return
	}

	content, err := h.service.GetItem(r.Context(), itemgate.FetchRequest{
		Owner:        owner,
		ItemType:     params[0],
		Presentation: params[1],
		ItemName:     params[2],
		Encoding:     r.URL.Query().Get("encoding"),
	})
	if err != nil {
		HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	lengthOK := r.ContentLength > 0
	typeOK := strings.TrimSpace(r.Header.Get("Content-Type")) != ""

	// With no header the token can only come from the form, which needs a
	// well-formed body to be read at all.
	if header == "" && (!lengthOK || !typeOK) {
		WriteError(w, http.StatusUnauthorized, "missing_credential", msgNoAccessToken)
		return
	}

	if header != "" {
		if _, err := h.auth.Authorize(r.Context(), header); err != nil {
			HandleError(w, err)
			return
		}
	}

	if !lengthOK {
		WriteError(w, http.StatusBadRequest, "invalid_input", fmt.Sprintf(msgInvalidLength, r.ContentLength))
		return
	}

	if !typeOK {
		WriteError(w, http.StatusBadRequest, "invalid_input", msgNoContentType)
		return
	}

	if h.config.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadSize)
	}

	form, err := parseUploadForm(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteError(w, http.StatusBadRequest, "invalid_input", fmt.Sprintf(msgUploadTooLarge, maxErr.Limit))
			return
		}
		WriteError(w, http.StatusBadRequest, "invalid_input", fmt.Sprintf(msgMalformedUpload, err.Error()))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	if header == "" {
		token := strings.TrimSpace(r.FormValue("access_token"))
		if token == "" {
			WriteError(w, http.StatusUnauthorized, "missing_credential", msgNoAccessToken)
			return
		}
		if _, err := h.auth.Authorize(r.Context(), token); err != nil {
			HandleError(w, err)
			return
		}
	}

	owner, ok := ownerFromPath(w, r)
	if !ok {
		return
	}

	if v := strings.TrimSpace(r.FormValue("user_id")); v != "" && v != owner.ID {
		WriteError(w, http.StatusBadRequest, "invalid_input", msgUserIDMismatch)
		return
	}

	if v := strings.TrimSpace(r.FormValue("user_name")); v != "" && v != owner.Name {
		WriteError(w, http.StatusBadRequest, "invalid_input", msgUserNameMismatch)
		return
	}

	if form.file == nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", msgNoFile)
		return
	}
	defer func() { _ = form.file.Close() }()

	itemName := itemgate.ResolveItemName(r.FormValue("filename"), form.header.Filename)
	if itemName == "" {
		WriteError(w, http.StatusBadRequest, "invalid_input", msgNoFilename)
		return
	}

	content, err := io.ReadAll(form.file)
	if err != nil {
		HandleError(w, fmt.Errorf("read upload: %w", err))
		return
	}

	meta, err := h.service.AddItem(r.Context(), owner, itemName, content)
	if err != nil {
		HandleError(w, err)
		return
	}

	if original, ok := meta.Variant(itemgate.PresentationOriginal); ok {
		w.Header().Set("Location", h.config.BasePath+"/"+escapeLocation(original.Location))
	}

	_ = WriteJSON(w, http.StatusCreated, meta)
}

type uploadForm struct {
	file   multipart.File
	header *multipart.FileHeader
}

// uploadMemory is how much of a multipart form is held in memory before
// parts spill to temporary files.
const uploadMemory = 32 << 20

func parseUploadForm(r *http.Request) (uploadForm, error) {
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		return uploadForm{}, err
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return uploadForm{}, nil
		}
		return uploadForm{}, err
	}

	return uploadForm{file: file, header: header}, nil
}

// ownerFromPath reads the owner segments and writes a 400 when either is blank.
func ownerFromPath(w http.ResponseWriter, r *http.Request) (itemgate.OwnerIdentity, bool) {
	params, ok := pathParams(w, r, "ownerName", "ownerId")
	if !ok {
		return itemgate.OwnerIdentity{}, false
	}

	owner := itemgate.OwnerIdentity{Name: params[0], ID: params[1]}

	if strings.TrimSpace(owner.Name) == "" {
		WriteError(w, http.StatusBadRequest, "invalid_input", msgNoUserName)
		return itemgate.OwnerIdentity{}, false
	}

	if strings.TrimSpace(owner.ID) == "" {
		WriteError(w, http.StatusBadRequest, "invalid_input", msgNoUserID)
		return itemgate.OwnerIdentity{}, false
	}

	return owner, true
}

// pathParams returns the unescaped values of the named route parameters.
// chi matches against RawPath when the request carries one, so only then
// are the values still escaped.
func pathParams(w http.ResponseWriter, r *http.Request, names ...string) ([]string, bool) {
	values := make([]string, len(names))

	for i, name := range names {
		v := chi.URLParam(r, name)
		if r.URL.RawPath != "" {
			unescaped, err := url.PathUnescape(v)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "invalid_input", fmt.Sprintf(msgInvalidPathSegment, name))
				return nil, false
			}
			v = unescaped
		}
		values[i] = v
	}

	return values, true
}

func escapeLocation(location string) string {
	parts := strings.Split(location, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

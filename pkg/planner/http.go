package planner

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/muelle-planner/platform/pkg/codec"
	"github.com/muelle-planner/platform/pkg/common/logger"
	"github.com/muelle-planner/platform/pkg/common/middleware"
	"github.com/muelle-planner/platform/pkg/dock"
	"github.com/muelle-planner/platform/pkg/ingestion"
	"github.com/muelle-planner/platform/pkg/normalizer"
	"github.com/muelle-planner/platform/pkg/query"
	"github.com/muelle-planner/platform/pkg/remote"
	"github.com/muelle-planner/platform/pkg/schema"
)

var errConfirmationRequired = errors.New("destructive action requires confirm=true")

type HTTPHandler struct {
	service *Service
	maxBody int64
}

func NewHTTPHandler(service *Service, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/records", h.handleView).Methods(http.MethodGet)
	router.HandleFunc("/records", h.handleAdd).Methods(http.MethodPost)
	router.HandleFunc("/records", h.handleClear).Methods(http.MethodDelete)
	router.HandleFunc("/records/{id:[0-9]+}", h.handleGet).Methods(http.MethodGet)
	router.HandleFunc("/records/{id:[0-9]+}", h.handleUpdate).Methods(http.MethodPut)
	router.HandleFunc("/records/{id:[0-9]+}", h.handleDelete).Methods(http.MethodDelete)
	router.HandleFunc("/records/{id:[0-9]+}/accept", h.handleAccept).Methods(http.MethodPost)

	router.HandleFunc("/variant", h.handleGetVariant).Methods(http.MethodGet)
	router.HandleFunc("/variant", h.handleSetVariant).Methods(http.MethodPut)
	router.HandleFunc("/schema/{variant}", h.handleSchema).Methods(http.MethodGet)

	router.HandleFunc("/import/table", h.handleImportTable).Methods(http.MethodPost)
	router.HandleFunc("/import/document", h.handleImportDocument).Methods(http.MethodPost)
	router.HandleFunc("/load", h.handleLoad).Methods(http.MethodPost)

	router.HandleFunc("/export/document", h.handleExportDocument).Methods(http.MethodGet)
	router.HandleFunc("/export/csv", h.handleExportCSV).Methods(http.MethodGet)
	router.HandleFunc("/export/archive", h.handleArchive).Methods(http.MethodPost)

	router.HandleFunc("/time/format", h.handleFormatTime).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleView(w http.ResponseWriter, r *http.Request) {
	filter, err := query.ParseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.service.View(filter, r.URL.Query().Get("q")))
}

func (h *HTTPHandler) handleAdd(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	rec, err := h.service.Add(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *HTTPHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	rec, err := h.service.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *HTTPHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	rec, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *HTTPHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	if !confirmed(r) {
		writeError(w, errConfirmationRequired)
		return
	}
	rec, err := h.service.Delete(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	logger.Log.WithFields(map[string]interface{}{"record_id": rec.ID, "actor": actor(r)}).Info("record deleted")
	writeJSON(w, http.StatusOK, rec)
}

func (h *HTTPHandler) handleAccept(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	rec, err := h.service.Accept(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *HTTPHandler) handleClear(w http.ResponseWriter, r *http.Request) {
	if !confirmed(r) {
		writeError(w, errConfirmationRequired)
		return
	}
	h.service.Clear(r.Context())
	logger.Log.WithField("actor", actor(r)).Info("board cleared")
	w.WriteHeader(http.StatusNoContent)
}

type variantBody struct {
	Variant string `json:"variant"`
}

func (h *HTTPHandler) handleGetVariant(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, variantBody{Variant: h.service.Variant().String()})
}

func (h *HTTPHandler) handleSetVariant(w http.ResponseWriter, r *http.Request) {
	var body variantBody
	if err := json.NewDecoder(h.limit(w, r)).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	v, err := schema.ParseVariant(body.Variant)
	if err == nil {
		err = h.service.SetVariant(r.Context(), v)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, variantBody{Variant: v.String()})
}

func (h *HTTPHandler) handleSchema(w http.ResponseWriter, r *http.Request) {
	v, err := schema.ParseVariant(mux.Vars(r)["variant"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"variant": v,
		"fields":  schema.FieldsFor(v),
		"columns": schema.Columns(v),
	})
}

// handleImportTable accepts a multipart upload in field "file", or the raw
// table as body with ?format=csv|xlsx|json.
func (h *HTTPHandler) handleImportTable(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	name, body, err := h.upload(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer body.Close()
	if name == "" && format == "" {
		http.Error(w, "format is required for raw uploads", http.StatusBadRequest)
		return
	}

	summary, err := h.service.ImportFile(r.Context(), name, format, body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *HTTPHandler) handleImportDocument(w http.ResponseWriter, r *http.Request) {
	_, body, err := h.upload(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer body.Close()

	summary, err := h.service.ImportDocument(r.Context(), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type loadRequest struct {
	URL string `json:"url"`
}

func (h *HTTPHandler) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if err := json.NewDecoder(h.limit(w, r)).Decode(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		http.Error(w, "body must be {\"url\": ...}", http.StatusBadRequest)
		return
	}
	summary, err := h.service.LoadRemote(r.Context(), strings.TrimSpace(req.URL))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *HTTPHandler) handleExportDocument(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	name, err := h.service.ExportDocument(&buf)
	if err != nil {
		writeError(w, err)
		return
	}
	writeAttachment(w, "application/json", name, buf.Bytes())
}

func (h *HTTPHandler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	name, err := h.service.ExportCSV(&buf)
	if err != nil {
		writeError(w, err)
		return
	}
	writeAttachment(w, "text/csv; charset=utf-8", name, buf.Bytes())
}

func (h *HTTPHandler) handleArchive(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Archive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *HTTPHandler) handleFormatTime(w http.ResponseWriter, r *http.Request) {
	value := r.URL.Query().Get("value")
	writeJSON(w, http.StatusOK, map[string]string{
		"value":     value,
		"formatted": normalizer.FormatTimeInput(value),
	})
}

func (h *HTTPHandler) limit(w http.ResponseWriter, r *http.Request) io.Reader {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	return r.Body
}

func (h *HTTPHandler) decodeInput(w http.ResponseWriter, r *http.Request) (dock.Input, bool) {
	var in dock.Input
	if err := json.NewDecoder(h.limit(w, r)).Decode(&in); err != nil {
		logger.Log.WithError(err).Warn("invalid record payload")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return dock.Input{}, false
	}
	return in, true
}

// upload returns the uploaded file of a multipart request, or the raw body.
func (h *HTTPHandler) upload(w http.ResponseWriter, r *http.Request) (string, io.ReadCloser, error) {
	h.limit(w, r)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return "", r.Body, nil
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("multipart field \"file\": %w", err)
	}
	return header.Filename, file, nil
}

func recordID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid record id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// actor names the authenticated caller for the audit log.
func actor(r *http.Request) string {
	if claims, ok := middleware.ClaimsFrom(r.Context()); ok && claims.Subject != "" {
		return claims.Subject
	}
	return "anonymous"
}

func confirmed(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return ok
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errConfirmationRequired):
		return http.StatusPreconditionRequired
	case errors.Is(err, dock.ErrValidation), errors.Is(err, schema.ErrUnknownVariant):
		return http.StatusBadRequest
	case errors.Is(err, dock.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, remote.ErrRemoteLoad):
		return http.StatusBadGateway
	case ingestion.IsImportError(err), errors.Is(err, ingestion.ErrUnsupportedFormat),
		errors.Is(err, codec.ErrDocumentParse), errors.Is(err, dock.ErrDuplicateID):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrRemoteDisabled), errors.Is(err, ErrArchiveDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Log.WithError(err).Error("planner request failed")
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeAttachment(w http.ResponseWriter, contentType, name string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Write(body)
}

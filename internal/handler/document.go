package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"tush00nka/topovault/api/response"
	"tush00nka/topovault/internal/model"
	"tush00nka/topovault/internal/pkg/httputils"
	"tush00nka/topovault/internal/pkg/metadata"
	"tush00nka/topovault/internal/service"

	"github.com/gorilla/mux"
)

const maxUploadSize = 64 << 20 // 64MB

type DocumentHandler struct {
	documentService service.DocumentService
	syncService     service.SyncService
}

func NewDocumentHandler(documentService service.DocumentService, syncService service.SyncService) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		syncService:     syncService,
	}
}

func (h *DocumentHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/documents", h.listDocuments).Methods("GET", "OPTIONS")
	router.HandleFunc("/documents", h.createDocument).Methods("POST", "OPTIONS")
	router.HandleFunc("/documents/upload", h.uploadDocument).Methods("POST", "OPTIONS")
	router.HandleFunc("/documents/sync-from-s3", h.syncFromS3).Methods("GET", "OPTIONS")
	router.HandleFunc("/documents/{id:[0-9]+}", h.getDocument).Methods("GET", "OPTIONS")
	router.HandleFunc("/documents/{id:[0-9]+}", h.updateDocument).Methods("PATCH", "OPTIONS")
	router.HandleFunc("/documents/{id:[0-9]+}", h.deleteDocument).Methods("DELETE", "OPTIONS")
	router.HandleFunc("/documents/{id:[0-9]+}/download", h.downloadDocument).Methods("GET", "OPTIONS")
}

type createDocumentRequest struct {
	FileName    string          `json:"fileName"`
	FileKey     string          `json:"fileKey"`
	FileSize    int64           `json:"fileSize"`
	FileType    string          `json:"fileType"`
	Name        string          `json:"name"`
	AccessLevel string          `json:"accessLevel"`
	Metadata    []metadata.Pair `json:"metadata"`
}

type updateDocumentRequest struct {
	Name        string          `json:"name"`
	AccessLevel string          `json:"accessLevel"`
	Metadata    []metadata.Pair `json:"metadata"`
}

type syncResponse struct {
	Success     bool             `json:"success"`
	Message     string           `json:"message"`
	SyncedCount int              `json:"syncedCount"`
	Documents   []model.Document `json:"documents"`
}

type downloadURLResponse struct {
	URL string `json:"url"`
}

// @Summary List documents
// @Description List all document records
// @ID list-documents
// @Produce json
// @Success 200 {object} []model.Document
// @Failure 500 {object} response.ErrorResponse
// @Router /documents [get]
func (h *DocumentHandler) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documentService.ListDocuments(r.Context())
	if err != nil {
		httputils.ResponseError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}

	httputils.ResponseJSON(w, http.StatusOK, docs)
}

// @Summary Create document
// @Description Register a document record for an existing file key
// @ID create-document
// @Accept json
// @Produce json
// @Success 201 {object} model.Document
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Param documentData body createDocumentRequest true "Document data"
// @Router /documents [post]
func (h *DocumentHandler) createDocument(w http.ResponseWriter, r *http.Request) {
	var request createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	r.Body.Close()

	doc, err := h.documentService.CreateDocument(r.Context(), service.CreateDocumentRequest{
		FileName:    request.FileName,
		FileKey:     request.FileKey,
		FileSize:    request.FileSize,
		FileType:    request.FileType,
		Name:        request.Name,
		AccessLevel: request.AccessLevel,
		Metadata:    request.Metadata,
	})
	if err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, err.Error())
		return
	}

	httputils.ResponseJSON(w, http.StatusCreated, doc)
}

// @Summary Upload document
// @Description Upload a file with metadata; the file goes to S3, the record to the database
// @ID upload-document
// @Accept mpfd
// @Produce json
// @Success 201 {object} model.Document
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Param file formData file true "File"
// @Param name formData string false "Logical name"
// @Param accessLevel formData string false "public or private"
// @Param metadata formData string false "JSON array of {key, value} pairs"
// @Router /documents/upload [post]
func (h *DocumentHandler) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	var pairs []metadata.Pair
	if raw := r.FormValue("metadata"); raw != "" {
		// Кривой JSON отклоняем, а не чиним
		if err := json.Unmarshal([]byte(raw), &pairs); err != nil {
			httputils.ResponseError(w, http.StatusBadRequest, "Invalid metadata format")
			return
		}
	}

	doc, err := h.documentService.UploadDocument(r.Context(), service.UploadDocumentRequest{
		File:        file,
		FileName:    header.Filename,
		FileSize:    header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Name:        r.FormValue("name"),
		AccessLevel: r.FormValue("accessLevel"),
		Metadata:    pairs,
	})
	if err != nil {
		httputils.ResponseError(w, http.StatusInternalServerError, "failed to upload document")
		return
	}

	httputils.ResponseJSON(w, http.StatusCreated, doc)
}

// @Summary Get document
// @Description Get document record by id
// @ID get-document
// @Produce json
// @Success 200 {object} model.Document
// @Failure 404 {object} response.ErrorResponse
// @Param id path int true "Document ID"
// @Router /documents/{id} [get]
func (h *DocumentHandler) getDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}

	doc, err := h.documentService.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			httputils.ResponseError(w, http.StatusNotFound, "No such document")
			return
		}
		httputils.ResponseError(w, http.StatusInternalServerError, "failed to get document")
		return
	}

	httputils.ResponseJSON(w, http.StatusOK, doc)
}

// @Summary Update document
// @Description Update name, access level and metadata. Attempts to change reserved metadata keys reject the whole update.
// @ID update-document
// @Accept json
// @Produce json
// @Success 200 {object} model.Document
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Param id path int true "Document ID"
// @Param documentData body updateDocumentRequest true "Update data"
// @Router /documents/{id} [patch]
func (h *DocumentHandler) updateDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}

	var request updateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	r.Body.Close()

	doc, err := h.documentService.UpdateDocument(r.Context(), id, service.UpdateDocumentRequest{
		Name:        request.Name,
		AccessLevel: request.AccessLevel,
		Metadata:    request.Metadata,
	})
	if err != nil {
		var reservedErr *service.ReservedKeyError
		switch {
		case errors.As(err, &reservedErr):
			httputils.ResponseJSON(w, http.StatusBadRequest, response.ErrorResponse{
				Message:      reservedErr.Error(),
				RejectedKeys: reservedErr.Keys,
			})
		case errors.Is(err, service.ErrDocumentNotFound):
			httputils.ResponseError(w, http.StatusNotFound, "No such document")
		default:
			httputils.ResponseError(w, http.StatusInternalServerError, "failed to update document")
		}
		return
	}

	httputils.ResponseJSON(w, http.StatusOK, doc)
}

// @Summary Delete document
// @Description Delete the blob and then the record. A failed blob delete keeps the record.
// @ID delete-document
// @Produce json
// @Success 204
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Param id path int true "Document ID"
// @Router /documents/{id} [delete]
func (h *DocumentHandler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}

	if err := h.documentService.DeleteDocument(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			httputils.ResponseError(w, http.StatusNotFound, "No such document")
			return
		}
		httputils.ResponseError(w, http.StatusInternalServerError, "failed to delete document")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Sync from S3
// @Description Create records for bucket objects unknown to the database
// @ID sync-from-s3
// @Produce json
// @Success 200 {object} syncResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /documents/sync-from-s3 [get]
func (h *DocumentHandler) syncFromS3(w http.ResponseWriter, r *http.Request) {
	result, err := h.syncService.SyncFromStore(r.Context())
	if err != nil {
		httputils.ResponseError(w, http.StatusInternalServerError, "failed to sync from storage")
		return
	}

	httputils.ResponseJSON(w, http.StatusOK, syncResponse{
		Success:     true,
		Message:     "sync completed",
		SyncedCount: result.SyncedCount,
		Documents:   result.Documents,
	})
}

// @Summary Download URL
// @Description Get a time-limited presigned download URL for the document's file
// @ID download-document
// @Produce json
// @Success 200 {object} downloadURLResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Param id path int true "Document ID"
// @Router /documents/{id}/download [get]
func (h *DocumentHandler) downloadDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}

	url, err := h.documentService.DownloadURL(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			httputils.ResponseError(w, http.StatusNotFound, "No such document")
			return
		}
		httputils.ResponseError(w, http.StatusInternalServerError, "failed to generate download url")
		return
	}

	httputils.ResponseJSON(w, http.StatusOK, downloadURLResponse{URL: url})
}

func (h *DocumentHandler) documentID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "Failed to parse document ID")
		return 0, false
	}
	return uint(id), true
}

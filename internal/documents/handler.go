package documents

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"securelink-backend/internal/shared/server/middleware"
	"securelink-backend/internal/shared/server/respond"
)

// maxRequestSize caps multipart bodies well above MaxFileSize so an
// oversized file still reaches validation and gets its proper message.
const maxRequestSize = 1 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc      *Service
	Progress *Tracker
}

func NewHandler(svc *Service, tracker *Tracker) *Handler {
	if tracker == nil {
		tracker = NewTracker(0)
	}
	return &Handler{Svc: svc, Progress: tracker}
}

// RegisterRoutes attaches document routes. The group must already require a
// verified session.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/policy/documents", h.policy)
	rg.POST("/documents", h.upload)
	rg.GET("/documents", h.list)
	rg.DELETE("/documents/:id", h.delete)
	rg.PUT("/documents/:id/file", h.replace)
	rg.GET("/documents/:id/share", h.share)
	rg.GET("/documents/:id/download", h.download)
	rg.GET("/uploads/:uploadId", h.uploadProgress)
}

func (h *Handler) policy(c *gin.Context) {
	respond.OK(c, currentPolicy())
}

func (h *Handler) upload(c *gin.Context) {
	ownerID := middleware.UserIDFromContext(c)
	uploadID := h.uploadID(c)
	progress := h.Progress.Start(ownerID, uploadID)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestSize)
	file, err := formFile(c)
	if err != nil {
		h.Progress.Fail(ownerID, uploadID, message(err, ""))
		writeError(c, err, "")
		return
	}

	docType := DocType(strings.TrimSpace(c.PostForm("docType")))
	idNumber := strings.TrimSpace(c.PostForm("idNumber"))
	if idNumber == "" {
		idNumber = strings.TrimSpace(c.PostForm("aadhaar"))
	}

	doc, err := h.Svc.Upload(c.Request.Context(), ownerID, UploadInput{
		DocType:  docType,
		IDNumber: idNumber,
		File:     file,
	}, progress)
	if err != nil {
		h.Progress.Fail(ownerID, uploadID, message(err, docType))
		writeError(c, err, docType)
		return
	}

	h.Progress.Succeed(ownerID, uploadID)
	c.Set("documentId", doc.ID)
	respond.Created(c, gin.H{
		"document": toResponse(doc, doc.DownloadURL),
		"message":  "Document uploaded successfully!",
	})
}

func (h *Handler) list(c *gin.Context) {
	res, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err, "")
		return
	}
	respond.OK(c, toListResponse(res))
}

func (h *Handler) delete(c *gin.Context) {
	docID := c.Param("id")
	c.Set("documentId", docID)
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))

	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), docID, confirmed); err != nil {
		writeError(c, err, "")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) replace(c *gin.Context) {
	ownerID := middleware.UserIDFromContext(c)
	docID := c.Param("id")
	c.Set("documentId", docID)
	uploadID := h.uploadID(c)
	progress := h.Progress.Start(ownerID, uploadID)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestSize)
	file, err := formFile(c)
	if err != nil {
		h.Progress.Fail(ownerID, uploadID, message(err, ""))
		writeError(c, err, "")
		return
	}

	res, err := h.Svc.Replace(c.Request.Context(), ownerID, docID, file, progress)
	if err != nil {
		h.Progress.Fail(ownerID, uploadID, message(err, ""))
		writeError(c, err, "")
		return
	}
	h.Progress.Succeed(ownerID, uploadID)
	respond.OK(c, toListResponse(res))
}

func (h *Handler) share(c *gin.Context) {
	docID := c.Param("id")
	c.Set("documentId", docID)
	link, err := h.Svc.ShareByID(c.Request.Context(), middleware.UserIDFromContext(c), docID)
	if err != nil {
		writeError(c, err, "")
		return
	}
	respond.OK(c, shareResponse{URL: link.URL, FileName: link.FileName, DocType: link.DocType})
}

func (h *Handler) download(c *gin.Context) {
	docID := c.Param("id")
	c.Set("documentId", docID)
	listed, err := h.Svc.Resolved(c.Request.Context(), middleware.UserIDFromContext(c), docID)
	if err == nil && listed.URL == "" {
		err = ErrNoDownloadURL
	}
	if err != nil {
		writeError(c, err, "")
		return
	}
	c.Redirect(http.StatusFound, listed.URL)
}

func (h *Handler) uploadProgress(c *gin.Context) {
	p, ok := h.Progress.Get(middleware.UserIDFromContext(c), c.Param("uploadId"))
	if !ok {
		respond.Error(c, http.StatusNotFound, "not_found", "Upload not found.", nil)
		return
	}
	respond.OK(c, p)
}

// uploadID takes the client's X-Upload-Id or assigns one, echoing it back.
func (h *Handler) uploadID(c *gin.Context) string {
	id := strings.TrimSpace(c.GetHeader("X-Upload-Id"))
	if id == "" || len(id) > 64 {
		id = uuid.NewString()
	}
	c.Header("X-Upload-Id", id)
	c.Set("uploadId", id)
	return id
}

// formFile reads the "file" part. A missing part yields a nil file so the
// service reports it with the other missing fields. Oversized files are
// returned without content.
func formFile(c *gin.Context) (*FileInput, error) {
	if c.Request.ContentLength > maxRequestSize {
		return nil, fmt.Errorf("%w: request body of %d bytes", ErrFileTooLarge, c.Request.ContentLength)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return nil, fmt.Errorf("%w: request body over %d bytes", ErrFileTooLarge, maxRequestSize)
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			return nil, nil
		default:
			return nil, fmt.Errorf("%w: %v", ErrMissingFields, err)
		}
	}
	return readFileHeader(fh)
}

func readFileHeader(fh *multipart.FileHeader) (*FileInput, error) {
	in := &FileInput{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
	}
	if fh.Size > MaxFileSize {
		return in, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	in.Content = data
	return in, nil
}

// message is the user-facing text for err.
func message(err error, docType DocType) string {
	var partial *PartialFailureError
	switch {
	case errors.Is(err, ErrMissingFields):
		return "Please fill all fields and upload a file."
	case errors.Is(err, ErrUnknownDocType):
		return "Please choose a valid document type."
	case errors.Is(err, ErrIdentifierLength):
		return fmt.Sprintf("Aadhaar number must be exactly %d digits.", IDNumberLength)
	case errors.Is(err, ErrFileTooLarge):
		return fmt.Sprintf("File size exceeds %s limit.", humanize.IBytes(uint64(MaxFileSize)))
	case errors.Is(err, ErrFileType):
		return "Only JPG, PNG, and PDF files are allowed."
	case errors.Is(err, ErrAuthRequired):
		return "User not authenticated. Please login again."
	case errors.Is(err, ErrDuplicateType):
		if docType == "" {
			return "You have already uploaded a document of this type."
		}
		return fmt.Sprintf("You have already uploaded a %s. You can't upload more of the same type.", docType)
	case errors.Is(err, ErrPathCollision):
		return "The file already exists in storage."
	case errors.Is(err, ErrNotFound):
		return "Document not found."
	case errors.Is(err, ErrConfirmationRequired):
		return "Please confirm before deleting this document."
	case errors.Is(err, ErrNoDownloadURL):
		return "No download link is available for this document."
	case errors.As(err, &partial):
		return "The operation only partly completed. Please refresh and try again."
	default:
		return "Something went wrong. Please try again."
	}
}

func writeError(c *gin.Context, err error, docType DocType) {
	msg := message(err, docType)
	var partial *PartialFailureError
	switch {
	case IsValidation(err):
		respond.Error(c, http.StatusBadRequest, "validation_error", msg, nil)
	case errors.Is(err, ErrConfirmationRequired):
		respond.Error(c, http.StatusBadRequest, "confirmation_required", msg, nil)
	case errors.Is(err, ErrAuthRequired):
		respond.Error(c, http.StatusUnauthorized, "unauthorized", msg, nil)
	case errors.As(err, &partial):
		respond.Error(c, http.StatusInternalServerError, "partial_failure", msg, gin.H{
			"op":   partial.Op,
			"step": partial.Step,
		})
	case errors.Is(err, ErrDuplicateType):
		respond.Error(c, http.StatusConflict, "duplicate_type", msg, nil)
	case errors.Is(err, ErrPathCollision):
		respond.Error(c, http.StatusConflict, "path_collision", msg, nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", msg, nil)
	case errors.Is(err, ErrNoDownloadURL):
		respond.Error(c, http.StatusNotFound, "no_download_url", msg, nil)
	default:
		respond.Error(c, http.StatusBadGateway, "backend_error", msg, nil)
	}
}

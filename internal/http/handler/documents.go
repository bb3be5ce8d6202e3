package handler

import (
	"encoding/base64"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docvault/internal/model"
	"docvault/internal/service"
)

type uploadRequest struct {
	FileName    string  `json:"fileName"`
	FileContent *string `json:"fileContent"`
	ContentType string  `json:"contentType"`
}

type uploadResponse struct {
	DocumentID string `json:"documentId"`
	EditNumber int    `json:"editNumber"`
	Message    string `json:"message"`
}

type editRequest struct {
	Content           *string `json:"content"`
	EditedBy          string  `json:"editedBy"`
	ChangeDescription string  `json:"changeDescription"`
}

type editResponse struct {
	DocumentID string    `json:"documentId"`
	EditNumber int       `json:"editNumber"`
	EditedBy   string    `json:"editedBy"`
	EditedAt   time.Time `json:"editedAt"`
	Message    string    `json:"message"`
}

type documentResponse struct {
	DocumentID        string    `json:"documentId"`
	Title             string    `json:"title"`
	Content           string    `json:"content"`
	ContentEncoding   string    `json:"contentEncoding,omitempty"`
	CurrentEditNumber int       `json:"currentEditNumber"`
	CreatedAt         time.Time `json:"createdAt"`
	LastModified      time.Time `json:"lastModified"`
}

type versionResponse struct {
	model.HistoryRecord
	Content         string `json:"content"`
	ContentEncoding string `json:"contentEncoding,omitempty"`
}

// encodeContent returns text content as is and anything that is not valid UTF-8
// as standard base64, naming the encoding in the second result.
func encodeContent(b []byte) (content, encoding string) {
	if utf8.Valid(b) {
		return string(b), ""
	}
	return base64.StdEncoding.EncodeToString(b), "base64"
}

// UploadDocument godoc
// @Summary Upload a document
// @Description Creates a document at edit number 1 from a JSON body or a multipart "file" field.
// @Tags documents
// @Accept json,mpfd
// @Produce json
// @Param body body uploadRequest false "JSON upload"
// @Param file formData file false "multipart upload"
// @Success 201 {object} uploadResponse
// @Failure 400 {object} errorPayload
// @Failure 503 {object} errorPayload
// @Router /documents [post]
func UploadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in, bad := parseUpload(c)
		if bad != nil {
			return writeError(c, fiber.StatusBadRequest, bad.code, bad.message)
		}

		res, err := docSvc.Upload(c.UserContext(), in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(uploadResponse{
			DocumentID: res.DocumentID,
			EditNumber: res.EditNumber,
			Message:    "Document uploaded successfully",
		})
	}
}

type badRequest struct {
	code    string
	message string
}

// parseUpload accepts either multipart form data with a "file" field or a JSON body.
func parseUpload(c *fiber.Ctx) (service.UploadInput, *badRequest) {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return service.UploadInput{}, &badRequest{"FILE_REQUIRED", "file is required"}
		}
		f, err := fh.Open()
		if err != nil {
			return service.UploadInput{}, &badRequest{"FILE_OPEN_ERROR", "cannot open uploaded file"}
		}
		defer f.Close()

		content, err := io.ReadAll(f)
		if err != nil {
			return service.UploadInput{}, &badRequest{"FILE_OPEN_ERROR", "cannot read uploaded file"}
		}
		return service.UploadInput{
			FileName:    fh.Filename,
			Content:     append([]byte{}, content...),
			ContentType: fh.Header.Get(fiber.HeaderContentType),
		}, nil
	}

	var req uploadRequest
	if err := c.BodyParser(&req); err != nil {
		return service.UploadInput{}, &badRequest{"FILE_REQUIRED", "fileName and fileContent are required"}
	}
	in := service.UploadInput{FileName: req.FileName, ContentType: req.ContentType}
	if req.FileContent != nil {
		in.Content = append([]byte{}, *req.FileContent...)
	}
	return in, nil
}

// EditDocument godoc
// @Summary Edit a document
// @Description Replaces the full content, producing the next edit number. Lost races are retried with fresh state.
// @Tags documents
// @Accept json
// @Produce json
// @Param id path string true "document id"
// @Param body body editRequest true "new content"
// @Success 200 {object} editResponse
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /documents/{id} [put]
func EditDocument(docSvc service.DocumentService, policy service.RetryPolicy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		var req editRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		}
		in := service.EditInput{
			DocumentID:        id,
			EditedBy:          req.EditedBy,
			ChangeDescription: req.ChangeDescription,
		}
		if req.Content != nil {
			in.Content = append([]byte{}, *req.Content...)
		}

		res, err := service.EditWithRetry(c.UserContext(), docSvc, in, policy)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(editResponse{
			DocumentID: res.DocumentID,
			EditNumber: res.EditNumber,
			EditedBy:   res.EditedBy,
			EditedAt:   res.EditedAt,
			Message:    "Document updated successfully",
		})
	}
}

// GetDocument godoc
// @Summary Get the latest version
// @Description Content that is not valid UTF-8 is returned base64 encoded with contentEncoding set to "base64".
// @Tags documents
// @Produce json
// @Param id path string true "document id"
// @Success 200 {object} documentResponse
// @Failure 404 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /documents/{id} [get]
func GetDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		res, err := docSvc.GetLatest(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		content, encoding := encodeContent(res.Content)
		return c.JSON(documentResponse{
			DocumentID:        res.DocumentID,
			Title:             res.Title,
			Content:           content,
			ContentEncoding:   encoding,
			CurrentEditNumber: res.CurrentEditNumber,
			CreatedAt:         res.CreatedAt,
			LastModified:      res.LastModified,
		})
	}
}

// GetHistory godoc
// @Summary List every version of a document
// @Tags documents
// @Produce json
// @Param id path string true "document id"
// @Success 200 {object} service.HistoryResult
// @Failure 404 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /documents/{id}/history [get]
func GetHistory(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		res, err := docSvc.GetHistory(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// GetVersion godoc
// @Summary Get one historical version
// @Tags documents
// @Produce json
// @Param id path string true "document id"
// @Param editNumber path int true "edit number"
// @Success 200 {object} versionResponse
// @Failure 404 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /documents/{id}/versions/{editNumber} [get]
func GetVersion(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		n, err := strconv.Atoi(c.Params("editNumber"))
		if err != nil || n < 1 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_EDIT_NUMBER", "editNumber must be a positive integer")
		}

		res, err := docSvc.GetVersion(c.UserContext(), id, n)
		if err != nil {
			return writeServiceError(c, err)
		}
		content, encoding := encodeContent(res.Content)
		return c.JSON(versionResponse{HistoryRecord: res.Record, Content: content, ContentEncoding: encoding})
	}
}

// RepairDocument godoc
// @Summary Reconstruct a missing history record
// @Description Synthesizes the history record of the current version when its edit committed but never logged.
// @Tags documents
// @Produce json
// @Param id path string true "document id"
// @Success 200 {object} service.RepairResult
// @Failure 404 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /documents/{id}/repair [post]
func RepairDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		res, err := docSvc.Repair(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

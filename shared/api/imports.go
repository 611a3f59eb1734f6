package api

import (
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/food-ordering-admin/shared/importer"
	"github.com/pavitra93/food-ordering-admin/shared/metrics"
	"github.com/pavitra93/food-ordering-admin/shared/middleware"
	"github.com/pavitra93/food-ordering-admin/shared/utils"
)

// UploadField is the multipart field carrying an import file
const UploadField = "file"

// ImportResponse is the body of a finished import. ArtifactError is set when
// the rejected-rows file could not be stored or cleared, so a download may
// still serve an older import's rows.
type ImportResponse struct {
	Imported      int                    `json:"imported_count"`
	RejectedRows  []importer.RejectedRow `json:"rejected_rows"`
	ImportFailed  bool                   `json:"import_failed"`
	ArtifactError bool                   `json:"artifact_error,omitempty"`
	Confirmations []Confirmation         `json:"confirmations,omitempty"`
}

// Confirmation is the set-password token issued to an imported employee
type Confirmation struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Token  string    `json:"confirmation_token"`
}

// ReadSheet parses the uploaded file of field against schema. It renders 400
// when no file was sent and 422 with import_failed when the file is
// malformed; in both cases nothing has been written.
func ReadSheet(c *gin.Context, field string, schema importer.Schema) (*importer.Sheet, bool) {
	header, err := c.FormFile(field)
	if err != nil {
		utils.BadRequestResponse(c, fmt.Sprintf("param is missing or the value is empty: %s", field))
		return nil, false
	}
	return ParseUpload(c, header, schema)
}

// ParseUpload parses an already located multipart file
func ParseUpload(c *gin.Context, header *multipart.FileHeader, schema importer.Schema) (*importer.Sheet, bool) {
	file, err := header.Open()
	if err != nil {
		utils.BadRequestResponse(c, "Failed to read uploaded file")
		return nil, false
	}
	defer file.Close()

	sheet, err := importer.Parse(file, schema)
	if err != nil {
		if errors.Is(err, importer.ErrFileMalformed) {
			metrics.RecordMalformedImport(string(schema.Kind))
			utils.UnprocessableResponse(c, err.Error(), ImportResponse{ImportFailed: true, RejectedRows: []importer.RejectedRow{}})
			return nil, false
		}
		RenderError(c, "Failed to read uploaded file", err)
		return nil, false
	}
	return sheet, true
}

// PublishResult stores or clears the rejected-rows file of destination,
// counts the import and returns its summary. The rows are already committed,
// so a storage failure is reported through artifact_error rather than failing
// the request.
func PublishResult(c *gin.Context, artifacts importer.ArtifactStore, destination uuid.UUID, result *importer.Result) ImportResponse {
	metrics.RecordImport(string(result.Kind), result.Imported, len(result.Rejected))

	summary := Summary(result)
	if err := importer.Publish(c.Request.Context(), artifacts, destination, result); err != nil {
		middleware.Logger(c).WithFields(logrus.Fields{
			"kind":        result.Kind,
			"destination": destination,
		}).WithError(err).Error("Failed to publish rejected rows")
		summary.ArtifactError = true
	}
	return summary
}

// Summary is the response body describing result
func Summary(result *importer.Result) ImportResponse {
	return ImportResponse{
		Imported:     result.Imported,
		RejectedRows: result.Rejected,
	}
}

// RespondImport writes the outcome of an import
func RespondImport(c *gin.Context, summary ImportResponse) {
	message := fmt.Sprintf("Imported %d rows", summary.Imported)
	if len(summary.RejectedRows) > 0 {
		message = fmt.Sprintf("Imported %d rows, %d rejected", summary.Imported, len(summary.RejectedRows))
	}
	utils.OKResponse(c, message, summary)
}

// DownloadRejected serves the latest rejected-rows file of destination
func DownloadRejected(c *gin.Context, artifacts importer.ArtifactStore, kind importer.Kind, destination uuid.UUID) {
	data, err := artifacts.Load(c.Request.Context(), kind, destination)
	if errors.Is(err, importer.ErrArtifactNotFound) {
		utils.NotFoundResponse(c, "No invalid rows to download")
		return
	}
	if err != nil {
		RenderError(c, "Failed to load invalid rows", err)
		return
	}
	utils.CSVAttachmentResponse(c, fmt.Sprintf("invalid_%s.csv", kind), data)
}

// SampleFile serves the template of kind; only file_type=csv is offered
func SampleFile(kind importer.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Query("file_type") != "csv" {
			utils.BadRequestResponse(c, "Unsupported file_type, expected csv")
			return
		}
		data, err := importer.SampleCSV(kind)
		if err != nil {
			RenderError(c, "Failed to build sample file", err)
			return
		}
		utils.CSVAttachmentResponse(c, fmt.Sprintf("sample_%s.csv", kind), data)
	}
}

package uploads

import (
	"errors"
	"mime/multipart"

	"github.com/gin-gonic/gin"

	"github.com/hackhub/backend/pkg/response"
	"github.com/hackhub/backend/pkg/storage"
)

// Client-facing messages for upload failures.
const (
	MsgFileRequired    = "يرجى إرفاق ملف"
	MsgFileTooLarge    = "حجم الملف يتجاوز الحد المسموح"
	MsgUnsupportedFile = "نوع الملف غير مدعوم"
	MsgStorageDisabled = "خدمة رفع الملفات غير متاحة حالياً"
	MsgUploadFailed    = "فشل رفع الملف"
)

// FormField is the multipart field every upload endpoint reads.
const FormField = "file"

// Read extracts and validates the uploaded file against rule. On failure it
// writes the 400 response and returns false; nothing reaches storage.
func Read(c *gin.Context, rule storage.Rule) (*storage.File, bool) {
	fh, err := c.FormFile(FormField)
	if err != nil {
		response.BadRequest(c, MsgFileRequired)
		return nil, false
	}
	return Validate(c, rule, fh)
}

// Validate checks fh against rule, writing a 400 on failure.
func Validate(c *gin.Context, rule storage.Rule, fh *multipart.FileHeader) (*storage.File, bool) {
	f, err := rule.Validate(fh)
	switch {
	case err == nil:
		return f, true
	case errors.Is(err, storage.ErrFileTooLarge):
		response.BadRequest(c, MsgFileTooLarge)
	case errors.Is(err, storage.ErrUnsupportedType):
		response.BadRequest(c, MsgUnsupportedFile)
	default:
		response.BadRequest(c, MsgFileRequired)
	}
	return nil, false
}

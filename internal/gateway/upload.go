package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/moses-Dera/TaskFlow-sub000/internal/model"
)

var (
	ErrUploadTooLarge = errors.New("gateway: attachment exceeds upload limit")
	ErrBlockedType    = errors.New("gateway: attachment type not allowed")
)

// blockedExt mirrors what the backend refuses, so the upload fails before any bytes are sent.
var blockedExt = map[string]bool{
	".exe": true, ".sh": true, ".js": true, ".bat": true, ".cmd": true,
	".php": true, ".py": true, ".rb": true,
}

type uploadResponse struct {
	URL         string `json:"url"`
	FileName    string `json:"file_name"`
	FileSize    int64  `json:"file_size"`
	ContentType string `json:"content_type"`
}

// Upload is one file to attach. MimeType is sniffed from the content when empty.
type Upload struct {
	FileName string
	MimeType string
	Body     io.Reader
}

// UploadAttachment sends one file as multipart field "file" and returns the stored attachment.
func (c *Client) UploadAttachment(ctx context.Context, up Upload) (model.Attachment, error) {
	name := filepath.Base(up.FileName)
	if blockedExt[strings.ToLower(filepath.Ext(name))] {
		return model.Attachment{}, fmt.Errorf("gateway.UploadAttachment %s: %w", name, ErrBlockedType)
	}
	data, err := io.ReadAll(io.LimitReader(up.Body, c.maxUpload+1))
	if err != nil {
		return model.Attachment{}, fmt.Errorf("gateway.UploadAttachment %s: read: %w", name, err)
	}
	if int64(len(data)) > c.maxUpload {
		return model.Attachment{}, fmt.Errorf("gateway.UploadAttachment %s: %w", name, ErrUploadTooLarge)
	}
	mimeType := up.MimeType
	if mimeType == "" {
		mimeType = mimetype.Detect(data).String()
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("gateway.UploadAttachment %s: %w", name, err)
	}
	if _, err := part.Write(data); err != nil {
		return model.Attachment{}, fmt.Errorf("gateway.UploadAttachment %s: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return model.Attachment{}, fmt.Errorf("gateway.UploadAttachment %s: %w", name, err)
	}

	var out uploadResponse
	err = c.do(ctx, request{
		op:          "UploadAttachment",
		method:      http.MethodPost,
		path:        "/api/chat/upload",
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, &out)
	if err != nil {
		return model.Attachment{}, err
	}
	att := model.Attachment{URL: out.URL, FileName: out.FileName, Size: out.FileSize, MimeType: out.ContentType}
	if att.FileName == "" {
		att.FileName = name
	}
	if att.Size == 0 {
		att.Size = int64(len(data))
	}
	if att.MimeType == "" {
		att.MimeType = mimeType
	}
	return att, nil
}

package serializer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/yourorg/editor-api/internal/draft"
)

// PayloadOpener resolves a staged payload key to its bytes at write time.
type PayloadOpener func(ctx context.Context, key string) (io.ReadCloser, error)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }

// WriteMultipart streams the payload as a single multipart body: one JSON
// part named after the entity type, then the binary parts in payload order.
// A single request carries the whole unit of work, so the caller gets
// all-or-nothing failure semantics for "save the entity and its new files".
func WriteMultipart(ctx context.Context, w io.Writer, entity draft.Entity, p Payload, open PayloadOpener) (string, error) {
	mw := multipart.NewWriter(w)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q`, string(entity)))
	metaHeader.Set("Content-Type", "application/json")
	metaPart, err := mw.CreatePart(metaHeader)
	if err != nil {
		return "", fmt.Errorf("metadata part: %w", err)
	}
	if err := json.NewEncoder(metaPart).Encode(p.Metadata); err != nil {
		return "", fmt.Errorf("metadata encode: %w", err)
	}

	for _, part := range p.Parts {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`,
			escapeQuotes(part.FieldName), escapeQuotes(part.Filename)))
		if part.MimeType != "" {
			h.Set("Content-Type", part.MimeType)
		} else {
			h.Set("Content-Type", "application/octet-stream")
		}
		dst, err := mw.CreatePart(h)
		if err != nil {
			return "", fmt.Errorf("part %s: %w", part.Filename, err)
		}
		src, err := open(ctx, part.PayloadKey)
		if err != nil {
			return "", fmt.Errorf("open payload %s: %w", part.Filename, err)
		}
		_, err = io.Copy(dst, src)
		src.Close()
		if err != nil {
			return "", fmt.Errorf("copy payload %s: %w", part.Filename, err)
		}
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("multipart close: %w", err)
	}
	return mw.FormDataContentType(), nil
}

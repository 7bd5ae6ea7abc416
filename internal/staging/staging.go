package staging

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/editor-api/internal/draft"
)

type Category string

const (
	Fotos      Category = "fotos"
	Videos     Category = "videos"
	Documentos Category = "documentos"
)

func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case Fotos, Videos, Documentos:
		return Category(s), true
	default:
		return "", false
	}
}

// CategoriesFor lists the attachment categories an editor exposes. The
// cliente editor only stages documents.
func CategoriesFor(entity draft.Entity) []Category {
	if entity == draft.Cliente {
		return []Category{Documentos}
	}
	return []Category{Fotos, Videos, Documentos}
}

// Limits caps staged attachments per category. Zero means unbounded.
type Limits struct {
	MaxCount     int
	MaxFileBytes int64
}

func LimitsFor(cat Category) Limits {
	switch cat {
	case Fotos:
		return Limits{MaxCount: 10}
	case Videos:
		return Limits{MaxCount: 3, MaxFileBytes: 50 << 20}
	case Documentos:
		return Limits{MaxFileBytes: 10 << 20}
	default:
		return Limits{}
	}
}

// Attachment is one staged or already-persisted binary. ID is the server
// identity; 0 means newly staged, in which case PayloadKey must point at the
// staged blob. PreviewRef is ephemeral and never serialized.
type Attachment struct {
	ID         int64    `json:"id"`
	Filename   string   `json:"nome"`
	MimeType   string   `json:"mimeType"`
	SizeBytes  int64    `json:"tamanho"`
	Category   Category `json:"categoria"`
	Tipo       string   `json:"tipo,omitempty"`
	PreviewRef string   `json:"preview,omitempty"`
	PayloadKey string   `json:"-"`
}

// Result is the structured outcome of a staging operation. The stager never
// raises user-facing side effects itself; the HTTP layer renders Message as
// a notification.
type Result struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func rejected(code, msg string) Result { return Result{OK: false, Code: code, Message: msg} }
func accepted(msg string) Result       { return Result{OK: true, Message: msg} }

// FileInput is a file as received from the upload form.
type FileInput struct {
	Filename string
	MimeType string
	Size     int64
	Reader   io.Reader
}

const previewTTL = 15 * time.Minute

// Stager holds the per-category staged attachment registry of one editing
// session. It is exclusively owned by the session and not safe for
// concurrent use on its own.
type Stager struct {
	prefix string
	byCat  map[Category][]Attachment
	blobs  BlobStore
}

func New(sessionID string, blobs BlobStore) *Stager {
	return &Stager{
		prefix: "staged/" + sessionID + "/",
		byCat:  make(map[Category][]Attachment),
		blobs:  blobs,
	}
}

// Seed registers attachments that already exist on the server. They carry no
// payload key and contribute no binary part at submission.
func (s *Stager) Seed(existing []Attachment) {
	for _, a := range existing {
		s.byCat[a.Category] = append(s.byCat[a.Category], a)
	}
}

func (s *Stager) List(cat Category) []Attachment {
	return append([]Attachment(nil), s.byCat[cat]...)
}

func (s *Stager) All() map[Category][]Attachment {
	out := make(map[Category][]Attachment, len(s.byCat))
	for cat, list := range s.byCat {
		out[cat] = append([]Attachment(nil), list...)
	}
	return out
}

func (s *Stager) Count(cat Category) int { return len(s.byCat[cat]) }

// Add stages a batch of files under one category. The whole batch is
// rejected, and prior staged state left untouched, when any file exceeds the
// category's per-file ceiling or the batch would exceed the count ceiling.
// Those two are the only rejectable conditions; blob-store failures are
// returned as errors.
func (s *Stager) Add(ctx context.Context, cat Category, files []FileInput) (Result, []Attachment, error) {
	if len(files) == 0 {
		return rejected("empty_batch", "Nenhum arquivo selecionado."), nil, nil
	}
	lim := LimitsFor(cat)
	if lim.MaxCount > 0 && len(s.byCat[cat])+len(files) > lim.MaxCount {
		return rejected("count_ceiling",
			fmt.Sprintf("Limite de %d %s excedido.", lim.MaxCount, string(cat))), nil, nil
	}
	if lim.MaxFileBytes > 0 {
		for _, f := range files {
			if f.Size > lim.MaxFileBytes {
				return rejected("size_ceiling",
					fmt.Sprintf("Arquivo %q excede o tamanho máximo de %d MB.", f.Filename, lim.MaxFileBytes>>20)), nil, nil
			}
		}
	}

	added := make([]Attachment, 0, len(files))
	stored := make([]string, 0, len(files))
	for _, f := range files {
		key := s.prefix + string(cat) + "/" + uuid.NewString()
		if err := s.blobs.Put(ctx, key, f.MimeType, f.Size, f.Reader); err != nil {
			for _, k := range stored {
				_ = s.blobs.Remove(ctx, k)
			}
			return Result{}, nil, fmt.Errorf("stage %q: %w", f.Filename, err)
		}
		stored = append(stored, key)
		preview, err := s.blobs.PreviewURL(ctx, key, previewTTL)
		if err != nil {
			preview = ""
		}
		added = append(added, Attachment{
			Filename:   f.Filename,
			MimeType:   f.MimeType,
			SizeBytes:  f.Size,
			Category:   cat,
			PreviewRef: preview,
			PayloadKey: key,
		})
	}
	s.byCat[cat] = append(s.byCat[cat], added...)
	return accepted(fmt.Sprintf("%d arquivo(s) adicionado(s).", len(added))), added, nil
}

// Remove drops the attachment at index within its category. Sibling
// attachments keep their identities and relative order.
func (s *Stager) Remove(ctx context.Context, cat Category, index int) (Result, error) {
	list := s.byCat[cat]
	if index < 0 || index >= len(list) {
		return rejected("index_out_of_range", "Anexo não encontrado."), nil
	}
	target := list[index]
	if target.PayloadKey != "" {
		if err := s.blobs.Remove(ctx, target.PayloadKey); err != nil {
			return Result{}, fmt.Errorf("unstage %q: %w", target.Filename, err)
		}
	}
	s.byCat[cat] = append(list[:index:index], list[index+1:]...)
	return accepted("Anexo removido."), nil
}

// Recategorize retags a document's subtype without touching the binary.
func (s *Stager) Recategorize(cat Category, index int, tipo string) Result {
	if cat != Documentos {
		return rejected("not_a_document", "Somente documentos possuem tipo.")
	}
	list := s.byCat[cat]
	if index < 0 || index >= len(list) {
		return rejected("index_out_of_range", "Anexo não encontrado.")
	}
	list[index].Tipo = tipo
	return accepted("Tipo do documento atualizado.")
}

// OpenPayload streams a staged payload for serialization.
func (s *Stager) OpenPayload(ctx context.Context, key string) (io.ReadCloser, error) {
	if key == "" {
		return nil, fmt.Errorf("attachment has no staged payload")
	}
	return s.blobs.Open(ctx, key)
}

// Discard removes every staged blob. Called on cancel and after a
// successful submission.
func (s *Stager) Discard(ctx context.Context) {
	for _, list := range s.byCat {
		for _, a := range list {
			if a.PayloadKey != "" {
				_ = s.blobs.Remove(ctx, a.PayloadKey)
			}
		}
	}
	s.byCat = make(map[Category][]Attachment)
}

package staging

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileOf(name string, size int64) FileInput {
	return FileInput{
		Filename: name,
		MimeType: "application/octet-stream",
		Size:     size,
		Reader:   strings.NewReader(strings.Repeat("x", int(size))),
	}
}

func newTestStager() (*Stager, *MemoryStore) {
	mem := NewMemoryStore()
	return New("sess-1", mem), mem
}

func TestAddStagesFilesInOrder(t *testing.T) {
	s, mem := newTestStager()
	res, added, err := s.Add(context.Background(), Fotos, []FileInput{
		fileOf("frente.jpg", 100),
		fileOf("fundos.jpg", 200),
	})
	require.NoError(t, err)
	assert.True(t, res.OK)
	require.Len(t, added, 2)
	assert.Equal(t, 2, mem.Len())

	list := s.List(Fotos)
	require.Len(t, list, 2)
	assert.Equal(t, "frente.jpg", list[0].Filename)
	assert.Equal(t, "fundos.jpg", list[1].Filename)
	for _, a := range list {
		assert.Zero(t, a.ID)
		assert.NotEmpty(t, a.PayloadKey, "new attachment must carry a payload key")
		assert.NotEmpty(t, a.PreviewRef)
	}
}

func TestAddRejectsWholeBatchOverCountCeiling(t *testing.T) {
	s, mem := newTestStager()

	batch := make([]FileInput, 11)
	for i := range batch {
		batch[i] = fileOf("foto.jpg", 10)
	}
	res, added, err := s.Add(context.Background(), Fotos, batch)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "count_ceiling", res.Code)
	assert.Empty(t, added)
	assert.Zero(t, s.Count(Fotos), "rejected batch must leave nothing staged")
	assert.Zero(t, mem.Len())
}

func TestAddCountCeilingCountsExisting(t *testing.T) {
	s, _ := newTestStager()
	_, _, err := s.Add(context.Background(), Videos, []FileInput{fileOf("tour1.mp4", 10), fileOf("tour2.mp4", 10)})
	require.NoError(t, err)

	res, _, err := s.Add(context.Background(), Videos, []FileInput{fileOf("tour3.mp4", 10), fileOf("tour4.mp4", 10)})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "count_ceiling", res.Code)
	assert.Equal(t, 2, s.Count(Videos))
}

func TestAddRejectsOversizedFile(t *testing.T) {
	s, _ := newTestStager()

	res, _, err := s.Add(context.Background(), Documentos, []FileInput{
		fileOf("escritura.pdf", 1024),
		{Filename: "planta.pdf", MimeType: "application/pdf", Size: (10 << 20) + 1, Reader: strings.NewReader("")},
	})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "size_ceiling", res.Code)
	assert.Zero(t, s.Count(Documentos), "whole batch rejected, including the valid file")
}

func TestDocumentsHaveNoCountCeiling(t *testing.T) {
	s, _ := newTestStager()
	batch := make([]FileInput, 25)
	for i := range batch {
		batch[i] = fileOf("doc.pdf", 10)
	}
	res, _, err := s.Add(context.Background(), Documentos, batch)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 25, s.Count(Documentos))
}

func TestRemoveKeepsSiblingOrder(t *testing.T) {
	s, mem := newTestStager()
	_, _, err := s.Add(context.Background(), Fotos, []FileInput{
		fileOf("a.jpg", 10), fileOf("b.jpg", 10), fileOf("c.jpg", 10),
	})
	require.NoError(t, err)

	res, err := s.Remove(context.Background(), Fotos, 1)
	require.NoError(t, err)
	assert.True(t, res.OK)

	list := s.List(Fotos)
	require.Len(t, list, 2)
	assert.Equal(t, "a.jpg", list[0].Filename)
	assert.Equal(t, "c.jpg", list[1].Filename)
	assert.Equal(t, 2, mem.Len(), "removed payload is unstaged")
}

func TestRemoveOutOfRange(t *testing.T) {
	s, _ := newTestStager()
	res, err := s.Remove(context.Background(), Fotos, 0)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "index_out_of_range", res.Code)
}

func TestRecategorizeDocuments(t *testing.T) {
	s, _ := newTestStager()
	_, _, err := s.Add(context.Background(), Documentos, []FileInput{fileOf("contrato.pdf", 10)})
	require.NoError(t, err)

	res := s.Recategorize(Documentos, 0, "escritura")
	assert.True(t, res.OK)
	assert.Equal(t, "escritura", s.List(Documentos)[0].Tipo)

	res = s.Recategorize(Fotos, 0, "escritura")
	assert.False(t, res.OK)
	assert.Equal(t, "not_a_document", res.Code)
}

func TestSeedExistingAttachmentsContributeNoPayload(t *testing.T) {
	s, mem := newTestStager()
	s.Seed([]Attachment{{ID: 42, Filename: "antiga.jpg", Category: Fotos, MimeType: "image/jpeg"}})

	list := s.List(Fotos)
	require.Len(t, list, 1)
	assert.Equal(t, int64(42), list[0].ID)
	assert.Empty(t, list[0].PayloadKey)
	assert.Zero(t, mem.Len())

	// seeded attachments count toward the ceiling
	batch := make([]FileInput, 10)
	for i := range batch {
		batch[i] = fileOf("nova.jpg", 10)
	}
	res, _, err := s.Add(context.Background(), Fotos, batch)
	require.NoError(t, err)
	assert.False(t, res.OK)
}

func TestDiscardDropsStagedBlobs(t *testing.T) {
	s, mem := newTestStager()
	_, _, err := s.Add(context.Background(), Fotos, []FileInput{fileOf("a.jpg", 10)})
	require.NoError(t, err)
	require.Equal(t, 1, mem.Len())

	s.Discard(context.Background())
	assert.Zero(t, mem.Len())
	assert.Zero(t, s.Count(Fotos))
}

func TestObjectStoreConfigValidate(t *testing.T) {
	valid := ObjectStoreConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "staged"}
	assert.NoError(t, valid.Validate())

	invalid := valid
	invalid.Endpoint = "http://localhost:9000"
	assert.Error(t, invalid.Validate())
}

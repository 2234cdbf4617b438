package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

func TestNormaliser_ImplementsInterface(t *testing.T) {
	var _ driven.Normaliser = New()
}

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New().SupportedMIMETypes()

	assert.Contains(t, mimeTypes, "text/plain")
	assert.Contains(t, mimeTypes, "application/json")
	assert.NotContains(t, mimeTypes, "text/html")
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 5, New().Priority())
}

func TestNormalise_Success(t *testing.T) {
	raw := &domain.RawDocument{
		Filename: "invoice.txt",
		MIMEType: "text/plain",
		Content:  []byte("Invoice #42\nTotal due: $1,234.00"),
	}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "Invoice #42\nTotal due: $1,234.00", result.Document.Content)
	assert.Equal(t, "text", result.Document.Metadata[domain.MetaFormat])
	assert.Empty(t, result.Document.ID, "ids are assigned by the document service")
}

func TestNormalise_StripsBOMAndCRLF(t *testing.T) {
	raw := &domain.RawDocument{Content: []byte("\xef\xbb\xbfline one\r\nline two\r\n")}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", result.Document.Content)
}

func TestNormalise_Empty(t *testing.T) {
	result, err := New().Normalise(context.Background(), &domain.RawDocument{})
	require.NoError(t, err)
	assert.Empty(t, result.Document.Content)
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

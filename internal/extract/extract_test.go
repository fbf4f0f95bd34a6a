package extract

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexPi44/multimodal-rag-system/internal/models"
)

func newTestService() *Service {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewService(logger)
}

func TestDetectType(t *testing.T) {
	cases := []struct {
		filename string
		want     models.DocumentType
	}{
		{"notes.txt", models.DocumentTypeText},
		{"README.md", models.DocumentTypeText},
		{"report.PDF", models.DocumentTypePDF},
		{"letter.docx", models.DocumentTypeDOCX},
		{"main.go", models.DocumentTypeCode},
		{"script.py", models.DocumentTypeCode},
		{"photo.JPEG", models.DocumentTypeImage},
		{"track.mp3", models.DocumentTypeAudio},
		{"clip.mp4", models.DocumentTypeVideo},
	}

	for _, tc := range cases {
		got, err := DetectType(tc.filename)
		require.NoError(t, err, tc.filename)
		assert.Equal(t, tc.want, got, tc.filename)
	}
}

func TestDetectTypeUnsupported(t *testing.T) {
	for _, filename := range []string{"archive.zip", "noextension", "data.xyz"} {
		_, err := DetectType(filename)
		require.Error(t, err, filename)
		assert.True(t, errors.Is(err, models.ErrUnsupportedFormat), filename)
	}
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "txt", Extension("notes.TXT"))
	assert.Equal(t, "go", Extension("dir/main.go"))
	assert.Equal(t, "", Extension("noextension"))
}

func TestExtractText(t *testing.T) {
	svc := newTestService()

	text, docType, err := svc.Extract(context.Background(), strings.NewReader("plain contents"), "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "plain contents", text)
	assert.Equal(t, models.DocumentTypeText, docType)
}

func TestExtractCode(t *testing.T) {
	svc := newTestService()

	src := "package main\n\nfunc main() {}\n"
	text, docType, err := svc.Extract(context.Background(), strings.NewReader(src), "main.go")
	require.NoError(t, err)
	assert.Equal(t, src, text)
	assert.Equal(t, models.DocumentTypeCode, docType)
}

func TestExtractBinaryWithoutExtractor(t *testing.T) {
	svc := newTestService()

	_, _, err := svc.Extract(context.Background(), strings.NewReader("%PDF-1.4"), "report.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUnsupportedFormat))
}

func TestExtractWithRegisteredExtractor(t *testing.T) {
	svc := newTestService()
	svc.Register(models.DocumentTypePDF, ExtractorFunc(func(ctx context.Context, r io.Reader, filename string) (string, error) {
		return "extracted pdf text", nil
	}))

	text, docType, err := svc.Extract(context.Background(), strings.NewReader("%PDF-1.4"), "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "extracted pdf text", text)
	assert.Equal(t, models.DocumentTypePDF, docType)
}

func TestExtractorErrorPropagates(t *testing.T) {
	svc := newTestService()
	svc.Register(models.DocumentTypePDF, ExtractorFunc(func(ctx context.Context, r io.Reader, filename string) (string, error) {
		return "", errors.New("corrupt file")
	}))

	_, _, err := svc.Extract(context.Background(), strings.NewReader("junk"), "report.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt file")
}

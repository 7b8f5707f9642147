package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Minimal PNG signature followed by an IHDR chunk header.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	if in.Body != nil {
		b, err := io.ReadAll(in.Body)
		if err != nil {
			return nil, err
		}
		f.body = b
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func formFile(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("avatar", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["avatar"][0]
}

func TestUpload_PutsObjectAndReturnsPublicURL(t *testing.T) {
	api := &fakePutter{}
	u := newUploader(api, "avatars", "https://cdn.example.com/")
	u.newKey = func() string { return "fixed" }

	link, err := u.Upload(context.Background(), formFile(t, "me.png", pngBytes))
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/avatars/media/fixed.png", link)
	require.NotNil(t, api.input)
	assert.Equal(t, "avatars", aws.ToString(api.input.Bucket))
	assert.Equal(t, "media/fixed.png", aws.ToString(api.input.Key))
	assert.Equal(t, "image/png", aws.ToString(api.input.ContentType))
	assert.Equal(t, int64(len(pngBytes)), aws.ToInt64(api.input.ContentLength))
	assert.Equal(t, pngBytes, api.body, "body must be rewound after sniffing")
}

func TestUpload_RejectsNonImage(t *testing.T) {
	api := &fakePutter{}
	u := newUploader(api, "avatars", "https://cdn.example.com")

	_, err := u.Upload(context.Background(), formFile(t, "notes.txt", []byte("just some text")))
	assert.ErrorIs(t, err, ErrNotAnImage)
	assert.Nil(t, api.input)
}

func TestUpload_NilFile(t *testing.T) {
	u := newUploader(&fakePutter{}, "avatars", "https://cdn.example.com")

	_, err := u.Upload(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoFile)
}

func TestUpload_PropagatesStoreError(t *testing.T) {
	boom := errors.New("access denied")
	u := newUploader(&fakePutter{err: boom}, "avatars", "https://cdn.example.com")

	link, err := u.Upload(context.Background(), formFile(t, "me.png", pngBytes))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, link)
}

func TestNewS3Uploader_RequiresConfig(t *testing.T) {
	_, err := NewS3Uploader(context.Background(), Config{Endpoint: "localhost:9000"})
	assert.ErrorIs(t, err, ErrMissingConf)
}

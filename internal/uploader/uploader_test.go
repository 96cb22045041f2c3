package uploader_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/cloudflare/cloudflare-go"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-sticker/internal/logger"
	"github.com/feral-file/ff-sticker/internal/mocks"
	"github.com/feral-file/ff-sticker/internal/uploader"
)

func init() {
	_ = logger.Initialize(logger.Config{
		Debug: true,
	})
}

var testConfig = uploader.Config{
	AccountID:       "acc",
	MaxRetries:      2,
	InitialInterval: time.Millisecond,
}

func TestUpload(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uploadedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cfClient := mocks.NewMockCloudflareClient(ctrl)
	cfClient.EXPECT().
		UploadImage(gomock.Any(), cloudflare.AccountIdentifier("acc"), gomock.Any()).
		DoAndReturn(func(ctx context.Context, rc *cloudflare.ResourceContainer, params cloudflare.UploadImageParams) (cloudflare.Image, error) {
			body, err := io.ReadAll(params.File)
			require.NoError(t, err)
			assert.Equal(t, []byte("RIFF"), body)
			assert.Equal(t, "job-1.webp", params.Name)
			assert.Equal(t, map[string]interface{}{"pack": "Cats"}, params.Metadata)

			return cloudflare.Image{
				ID:       "img-1",
				Filename: "job-1.webp",
				Uploaded: uploadedAt,
				Variants: []string{
					"https://imagedelivery.net/hash/img-1/thumbnail",
					"https://imagedelivery.net/hash/img-1/public",
				},
			}, nil
		})

	u := uploader.NewUploader(cfClient, testConfig)
	result, err := u.Upload(context.Background(), []byte("RIFF"), "job-1.webp", map[string]any{"pack": "Cats"})
	require.NoError(t, err)

	assert.Equal(t, "img-1", result.ID)
	assert.Equal(t, "https://imagedelivery.net/hash/img-1/public", result.URL)
	assert.Equal(t, map[string]string{
		"thumbnail": "https://imagedelivery.net/hash/img-1/thumbnail",
		"public":    "https://imagedelivery.net/hash/img-1/public",
	}, result.Variants)
	assert.Equal(t, uploadedAt, result.UploadedAt)
}

func TestUploadRetriesWithFreshReader(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	readBody := func(ctx context.Context, rc *cloudflare.ResourceContainer, params cloudflare.UploadImageParams) []byte {
		body, err := io.ReadAll(params.File)
		require.NoError(t, err)
		return body
	}

	cfClient := mocks.NewMockCloudflareClient(ctrl)
	gomock.InOrder(
		cfClient.EXPECT().UploadImage(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, rc *cloudflare.ResourceContainer, params cloudflare.UploadImageParams) (cloudflare.Image, error) {
				assert.Equal(t, []byte("data"), readBody(ctx, rc, params))
				return cloudflare.Image{}, errors.New("503")
			}),
		cfClient.EXPECT().UploadImage(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, rc *cloudflare.ResourceContainer, params cloudflare.UploadImageParams) (cloudflare.Image, error) {
				assert.Equal(t, []byte("data"), readBody(ctx, rc, params))
				return cloudflare.Image{ID: "img-2", Variants: []string{"https://imagedelivery.net/hash/img-2/w512"}}, nil
			}),
	)

	u := uploader.NewUploader(cfClient, testConfig)
	result, err := u.Upload(context.Background(), []byte("data"), "a.webp", nil)
	require.NoError(t, err)
	assert.Equal(t, "img-2", result.ID)
	// No public variant: first variant wins
	assert.Equal(t, "https://imagedelivery.net/hash/img-2/w512", result.URL)
}

func TestUploadGivesUp(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfClient := mocks.NewMockCloudflareClient(ctrl)
	cfClient.EXPECT().
		UploadImage(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(cloudflare.Image{}, errors.New("503")).
		Times(3)

	u := uploader.NewUploader(cfClient, testConfig)
	_, err := u.Upload(context.Background(), []byte("data"), "a.webp", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestUploadCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	u := uploader.NewUploader(mocks.NewMockCloudflareClient(ctrl), testConfig)
	_, err := u.Upload(ctx, []byte("data"), "a.webp", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUploadEmpty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	u := uploader.NewUploader(mocks.NewMockCloudflareClient(ctrl), testConfig)
	_, err := u.Upload(context.Background(), nil, "a.webp", nil)
	assert.ErrorIs(t, err, uploader.ErrEmptyUpload)
}

func TestDelete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfClient := mocks.NewMockCloudflareClient(ctrl)
	cfClient.EXPECT().DeleteImage(gomock.Any(), cloudflare.AccountIdentifier("acc"), "img-1").Return(nil)
	cfClient.EXPECT().DeleteImage(gomock.Any(), gomock.Any(), "img-2").Return(errors.New("404"))

	u := uploader.NewUploader(cfClient, testConfig)
	assert.NoError(t, u.Delete(context.Background(), "img-1"))

	err := u.Delete(context.Background(), "img-2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "img-2")
}

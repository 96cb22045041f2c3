package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-sticker/internal/domain"
)

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		dir     string
		want    string
		wantErr bool
	}{
		{name: "local file", source: "/in/cat.gif", want: "/in/cat.webp"},
		{name: "local file with dir", source: "/in/cat.gif", dir: "/out", want: "/out/cat.webp"},
		{name: "url", source: "https://example.com/a/dog.mp4?x=1#t", want: "dog.webp"},
		{name: "url with dir", source: "HTTPS://example.com/dog", dir: "/out", want: "/out/dog.webp"},
		{name: "no name", source: "/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := outputPath(tt.source, tt.dir)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPackFlagsMetadata(t *testing.T) {
	f := &packFlags{
		packName: "Cats",
		author:   "Me",
		emojis:   []string{"😺"},
		extra:    map[string]string{"android-app-store-link": "x"},
	}

	assert.Equal(t, &domain.PackMetadata{
		PackName:   "Cats",
		Author:     "Me",
		Categories: []string{"😺"},
		Extra:      map[string]any{"android-app-store-link": "x"},
	}, f.metadata())

	assert.Nil(t, (&packFlags{}).metadata().Extra)
}

func TestInspectRejectsNonWebP(t *testing.T) {
	_, err := inspect("a.png", []byte("\x89PNG\r\n\x1a\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a WebP file")
}

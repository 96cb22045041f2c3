package uri_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-sticker/internal/uri"
)

func TestResolver_Candidates(t *testing.T) {
	config := &uri.Config{
		IPFSGateways:    []string{"https://ipfs.io", "https://dweb.link/"},
		ArweaveGateways: []string{"https://arweave.net"},
		OnChFSGateways:  []string{"https://onchfs.fxhash2.xyz"},
	}

	tests := []struct {
		name        string
		uri         string
		config      *uri.Config
		expected    []string
		expectedErr error
	}{
		{
			name:     "regular HTTP URL",
			uri:      "http://example.com/cat.gif",
			config:   config,
			expected: []string{"http://example.com/cat.gif"},
		},
		{
			name:     "regular HTTPS URL with surrounding space",
			uri:      "  https://example.com/path/to/cat.mp4 ",
			config:   config,
			expected: []string{"https://example.com/path/to/cat.mp4"},
		},
		{
			name:     "IPFS URI",
			uri:      "ipfs://QmHash/cat.gif",
			config:   config,
			expected: []string{"https://ipfs.io/ipfs/QmHash/cat.gif", "https://dweb.link/ipfs/QmHash/cat.gif"},
		},
		{
			name:     "IPFS URI with redundant ipfs segment",
			uri:      "ipfs://ipfs/QmHash",
			config:   config,
			expected: []string{"https://ipfs.io/ipfs/QmHash", "https://dweb.link/ipfs/QmHash"},
		},
		{
			name:     "IPFS gateway URL keeps original first",
			uri:      "https://gateway.pinata.cloud/ipfs/QmHash",
			config:   config,
			expected: []string{"https://gateway.pinata.cloud/ipfs/QmHash", "https://ipfs.io/ipfs/QmHash", "https://dweb.link/ipfs/QmHash"},
		},
		{
			name:     "IPFS gateway URL already on a configured gateway",
			uri:      "https://ipfs.io/ipfs/QmHash",
			config:   config,
			expected: []string{"https://ipfs.io/ipfs/QmHash", "https://dweb.link/ipfs/QmHash"},
		},
		{
			name:     "Arweave URI",
			uri:      "ar://TxID",
			config:   config,
			expected: []string{"https://arweave.net/TxID"},
		},
		{
			name:     "OnChFS URI keeps query",
			uri:      "onchfs://abc123?fxhash=oo1",
			config:   config,
			expected: []string{"https://onchfs.fxhash2.xyz/abc123?fxhash=oo1"},
		},
		{
			name:        "IPFS URI without gateways",
			uri:         "ipfs://QmHash",
			config:      &uri.Config{},
			expectedErr: uri.ErrNoGateway,
		},
		{
			name:        "nil config",
			uri:         "ar://TxID",
			expectedErr: uri.ErrNoGateway,
		},
		{
			name:        "unsupported scheme",
			uri:         "ftp://example.com/cat.gif",
			config:      config,
			expectedErr: uri.ErrUnsupportedScheme,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates, err := uri.NewResolver(tt.config).Candidates(tt.uri)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, candidates)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, candidates)
		})
	}
}

func TestResolver_CandidatesEmptyIdentifier(t *testing.T) {
	_, err := uri.NewResolver(&uri.Config{IPFSGateways: []string{"https://ipfs.io"}}).Candidates("ipfs://")
	assert.EqualError(t, err, "empty IPFS identifier")
}

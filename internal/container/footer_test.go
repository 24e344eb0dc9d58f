package container

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFooterPackUnpackRoundTrip(t *testing.T) {
	f := &Footer{
		HeaderOffset:  100,
		HeaderLen:     200,
		PayloadOffset: 308,
		PayloadSize:   4096,
	}
	for i := range f.PayloadSHA256 {
		f.PayloadSHA256[i] = byte(i)
	}

	packed := f.Pack()
	require.Len(t, packed, FooterSize)
	require.Equal(t, FooterMagic, string(packed[0:8]))

	got, err := UnpackFooter(packed)
	require.NoError(t, err)
	require.Equal(t, f, got)
}

func TestFooterValidate(t *testing.T) {
	f := &Footer{HeaderOffset: 10, HeaderLen: 20, PayloadOffset: 38, PayloadSize: 100}
	require.NoError(t, f.Validate(38+100+32+72, true))
	require.Error(t, f.Validate(38+100+72, true))
	require.NoError(t, f.Validate(38+100+72, false))
}

func TestUnpackFooterBadMagic(t *testing.T) {
	buf := make([]byte, FooterSize)
	copy(buf, "NOTAMAGIC")
	_, err := UnpackFooter(buf)
	require.Error(t, err)
}

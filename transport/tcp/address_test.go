package tcp

import (
	"context"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddressList(t *testing.T) {
	l, err := ParseAddressList("127.0.0.1:80", "[::1]:8080", "[::ffff:10.0.0.1]:443")
	require.NoError(t, err)
	assert.Equal(t, AddressList{
		netip.MustParseAddrPort("127.0.0.1:80"),
		netip.MustParseAddrPort("[::1]:8080"),
		netip.MustParseAddrPort("10.0.0.1:443"),
	}, l)
	assert.Equal(t, "[127.0.0.1:80 [::1]:8080 10.0.0.1:443]", l.String())

	_, err = ParseAddressList("localhost:80")
	assert.Error(t, err)
}

func TestResolveLiteral(t *testing.T) {
	l, err := Resolve(context.Background(), "127.0.0.1:9000")
	require.NoError(t, err)
	assert.Equal(t, AddressList{netip.MustParseAddrPort("127.0.0.1:9000")}, l)

	_, err = Resolve(context.Background(), "127.0.0.1")
	assert.Error(t, err)
	_, err = Resolve(context.Background(), "127.0.0.1:http")
	assert.Error(t, err)
}

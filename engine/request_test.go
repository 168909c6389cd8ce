package engine

import (
	"bufio"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPeer = &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40000}

func parse(t *testing.T, raw string) (*Request, error) {
	t.Helper()
	return ParseRequest(bufio.NewReader(strings.NewReader(raw)), testPeer)
}

func Test_ParseRequest(t *testing.T) {
	req, err := parse(t, "GET /index.html?query=1 HTTP/1.1\r\nHost: example.com\r\nConnection: keep-alive\r\n\r\n")
	require.NoError(t, err)

	assert.Equal(t, MethodGet, req.Method)
	assert.Equal(t, "/index.html?query=1", req.URI)
	assert.Equal(t, "1.1", req.Version)
	assert.Equal(t, "example.com", req.Headers.Get("host"))
	assert.True(t, req.KeepAlive())
	assert.Nil(t, req.Body)
	assert.Equal(t, testPeer, req.Peer)
}

func Test_ParseRequest_Body(t *testing.T) {
	req, err := parse(t, "POST /submit HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello")
	require.NoError(t, err)

	assert.Equal(t, MethodPost, req.Method)
	assert.Equal(t, []byte("hello"), req.Body)
	assert.Equal(t, "5", req.Headers.Get(HeaderContentLength))
}

func Test_ParseRequest_DuplicateHeaderLastWins(t *testing.T) {
	req, err := parse(t, "GET / HTTP/1.1\r\nX-Test: one\r\nX-Test: two\r\n\r\n")
	require.NoError(t, err)
	assert.Equal(t, "two", req.Headers.Get("X-Test"))
}

func Test_ParseRequest_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind ErrorKind
	}{
		{"malformed start line", "GET\r\n\r\n", ErrRequest},
		{"missing version", "GET /\r\n\r\n", ErrRequest},
		{"bad version", "GET / FTP/1.1\r\n\r\n", ErrRequest},
		{"unknown method", "BREW / HTTP/1.1\r\n\r\n", ErrUnsupported},
		{"malformed header", "GET / HTTP/1.1\r\nno colon here\r\n\r\n", ErrRequest},
		{"bad content length", "GET / HTTP/1.1\r\nContent-Length: many\r\n\r\n", ErrRequest},
		{"empty stream", "", ErrStream},
		{"truncated headers", "GET / HTTP/1.1\r\nHost: x\r\n", ErrStream},
		{"truncated body", "POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nhi", ErrStream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.raw)
			require.Error(t, err)
			reqErr, ok := err.(*RequestError)
			require.True(t, ok)
			assert.Equal(t, tt.kind, reqErr.Kind)
		})
	}
}

func Test_Request_RoundTrip(t *testing.T) {
	raw := "POST /api/things HTTP/1.1\r\nHost: example.com\r\nConnection: keep-alive\r\nContent-Length: 4\r\n\r\ndata"

	req, err := parse(t, raw)
	require.NoError(t, err)
	assert.Equal(t, raw, string(req.Bytes()))

	// The codec is closed under its own output.
	again, err := ParseRequest(bufio.NewReader(strings.NewReader(string(req.Bytes()))), testPeer)
	require.NoError(t, err)
	assert.Equal(t, req.Bytes(), again.Bytes())
}

func Test_Request_Clone(t *testing.T) {
	req, err := parse(t, "GET / HTTP/1.1\r\nHost: a\r\n\r\n")
	require.NoError(t, err)

	clone := req.Clone()
	clone.Headers.Set(HeaderHost, "b")

	assert.Equal(t, "a", req.Headers.Get(HeaderHost))
	assert.Equal(t, "b", clone.Headers.Get(HeaderHost))
}

package engine

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Response_Builder(t *testing.T) {
	req, err := parse(t, "GET / HTTP/1.1\r\nConnection: keep-alive\r\n\r\n")
	require.NoError(t, err)

	res := NewResponse(StatusOK).
		WithBytes([]byte("hi")).
		WithRequestCompatibility(req).
		WithGeneratedHeaders()

	assert.Equal(t, "2", res.Headers.Get(HeaderContentLength))
	assert.Equal(t, "text/html", res.Headers.Get(HeaderContentType))
	assert.Equal(t, "keep-alive", res.Headers.Get(HeaderConnection))
	assert.True(t, res.Headers.Has(HeaderDate))
	assert.True(t, res.Headers.Has(HeaderServer))
}

func Test_Response_ConnectionDefaultsToClose(t *testing.T) {
	req, err := parse(t, "GET / HTTP/1.1\r\n\r\n")
	require.NoError(t, err)

	res := NewResponse(StatusOK).WithRequestCompatibility(req).WithGeneratedHeaders()
	assert.Equal(t, "close", res.Headers.Get(HeaderConnection))

	// without a request at all
	res = NewResponse(StatusBadRequest).WithGeneratedHeaders()
	assert.Equal(t, "close", res.Headers.Get(HeaderConnection))
}

func Test_Response_Bytes(t *testing.T) {
	res := NewResponse(StatusNotFound).
		WithHeader(HeaderContentType, "text/html").
		WithHeader(HeaderContentLength, "9").
		WithBytes([]byte("not found"))

	expected := "HTTP/1.1 404 Not Found\r\nContent-Type: text/html\r\nContent-Length: 9\r\n\r\nnot found"
	assert.Equal(t, expected, string(res.Bytes()))
}

func Test_Response_HeaderOrderStable(t *testing.T) {
	res := NewResponse(StatusOK)
	res.Headers.Set("B-Header", "1")
	res.Headers.Set("A-Header", "2")
	res.Headers.Set("B-Header", "3") // overwrite keeps position

	var order []string
	res.Headers.Each(func(name, value string) {
		order = append(order, name+"="+value)
	})
	assert.Equal(t, []string{"B-Header=3", "A-Header=2"}, order)
}

func Test_ParseResponse(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 5\r\n\r\nhello"
	res, err := ParseResponse(bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)

	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, "1.1", res.Version)
	assert.Equal(t, []byte("hello"), res.Body)
	assert.Equal(t, raw, string(res.Bytes()))
}

func Test_ParseResponse_ReadToEOF(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n\r\nstreamed body"
	res, err := ParseResponse(bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)
	assert.Equal(t, "streamed body", string(res.Body))
}

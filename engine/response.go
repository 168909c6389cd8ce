package engine

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// dateFormat is the RFC 1123 layout with the GMT zone required on the wire.
const dateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// Response is an HTTP response under construction or parsed from a backend.
type Response struct {
	Version string
	Status  int
	Headers Headers
	Body    []byte
}

// NewResponse creates a response with the given status code.
func NewResponse(status int) *Response {
	return &Response{
		Version: "1.1",
		Status:  status,
	}
}

// WithBytes sets the response body.
func (res *Response) WithBytes(body []byte) *Response {
	res.Body = body
	return res
}

// WithHeader sets a header.
func (res *Response) WithHeader(name, value string) *Response {
	res.Headers.Set(name, value)
	return res
}

// WithRequestCompatibility makes the response consistent with the request it
// answers: the version is mirrored, and Connection echoes the request's value
// if present, else "close".
func (res *Response) WithRequestCompatibility(req *Request) *Response {
	if req == nil {
		return res
	}
	res.Version = req.Version
	if connection := req.Headers.Get(HeaderConnection); connection != "" {
		res.Headers.Set(HeaderConnection, connection)
	} else {
		res.Headers.Set(HeaderConnection, "close")
	}
	return res
}

// WithGeneratedHeaders fills in the headers every framework response carries:
// Content-Length, Content-Type (text/html unless set), Date, Server and
// Connection (close unless set). Headers already present are left alone.
func (res *Response) WithGeneratedHeaders() *Response {
	res.Headers.Set(HeaderContentLength, strconv.Itoa(len(res.Body)))
	if !res.Headers.Has(HeaderContentType) {
		res.Headers.Set(HeaderContentType, "text/html")
	}
	if !res.Headers.Has(HeaderDate) {
		res.Headers.Set(HeaderDate, time.Now().UTC().Format(dateFormat))
	}
	if !res.Headers.Has(HeaderServer) {
		res.Headers.Set(HeaderServer, "vireo/"+Version)
	}
	if !res.Headers.Has(HeaderConnection) {
		res.Headers.Set(HeaderConnection, "close")
	}
	return res
}

// Bytes serializes the response: status line, headers in insertion order,
// blank line, body.
func (res *Response) Bytes() []byte {
	var b strings.Builder
	b.WriteString("HTTP/")
	b.WriteString(res.Version)
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(res.Status))
	b.WriteByte(' ')
	b.WriteString(StatusText(res.Status))
	b.WriteString("\r\n")
	res.Headers.Each(func(name, value string) {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	})
	b.WriteString("\r\n")
	return append([]byte(b.String()), res.Body...)
}

// ParseResponse reads a response from r. If Content-Length is present the
// body is read exactly; otherwise it is read until EOF. Used by the proxy
// handler to relay backend responses.
func ParseResponse(r *bufio.Reader) (*Response, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, streamError(err)
	}

	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return nil, &RequestError{Kind: ErrRequest, Message: "malformed status line"}
	}
	version, ok := strings.CutPrefix(parts[0], "HTTP/")
	if !ok || version == "" {
		return nil, &RequestError{Kind: ErrRequest, Message: "malformed HTTP version"}
	}
	status, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, &RequestError{Kind: ErrRequest, Message: "malformed status code"}
	}

	res := &Response{
		Version: version,
		Status:  status,
	}

	for {
		line, err = readLine(r)
		if err != nil {
			return nil, streamError(err)
		}
		if line == "" {
			break
		}
		name, value, found := strings.Cut(line, ":")
		if !found || name == "" {
			return nil, &RequestError{Kind: ErrRequest, Message: "malformed header"}
		}
		res.Headers.Set(name, strings.TrimSpace(value))
	}

	if cl := res.Headers.Get(HeaderContentLength); cl != "" {
		length, err := strconv.Atoi(cl)
		if err != nil || length < 0 {
			return nil, &RequestError{Kind: ErrRequest, Message: "malformed Content-Length"}
		}
		if length > 0 {
			body := make([]byte, length)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, streamError(err)
			}
			res.Body = body
		}
	} else {
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, streamError(err)
		}
		if len(body) > 0 {
			res.Body = body
		}
	}

	return res, nil
}

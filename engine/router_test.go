package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Router_FirstMatchWins(t *testing.T) {
	var router Router
	router.WithRoute("/blog/*", func(*Request) *Response { return NewResponse(201) })
	router.WithRoute("/*", func(*Request) *Response { return NewResponse(202) })

	handler := router.Lookup("/blog/post")
	require.NotNil(t, handler)
	assert.Equal(t, 201, handler(nil).Status)

	handler = router.Lookup("/other")
	require.NotNil(t, handler)
	assert.Equal(t, 202, handler(nil).Status)
}

func Test_Router_OrderDecidesTies(t *testing.T) {
	var router Router
	router.WithRoute("/*", func(*Request) *Response { return NewResponse(200) })
	router.WithRoute("/blog/*", func(*Request) *Response { return NewResponse(500) })

	// both match, the earlier registration wins
	handler := router.Lookup("/blog/post")
	require.NotNil(t, handler)
	assert.Equal(t, 200, handler(nil).Status)
}

func Test_Router_NoMatch(t *testing.T) {
	var router Router
	router.WithRoute("/api/*", func(*Request) *Response { return NewResponse(200) })

	assert.Nil(t, router.Lookup("/other"))
}

func Test_Router_NilHandlerPanics(t *testing.T) {
	var router Router
	assert.Panics(t, func() {
		router.WithRoute("/*", nil)
	})
}

func Test_Router_Routes(t *testing.T) {
	var router Router
	router.WithRoute("/a/*", func(*Request) *Response { return nil })
	router.WithRoute("/b/*", func(*Request) *Response { return nil })

	assert.Equal(t, []string{"/a/*", "/b/*"}, router.Routes())
}

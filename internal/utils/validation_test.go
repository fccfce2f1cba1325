package contextutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidHTTPURL(t *testing.T) {
	assert.True(t, IsValidHTTPURL("https://ar.wikipedia.org/wiki/نهر_النيل"))
	assert.True(t, IsValidHTTPURL("https://www.youtube.com/results?search_query=نهر+النيل"))
	assert.True(t, IsValidHTTPURL("http://ellibrary.moe.gov.eg/books/"))

	assert.False(t, IsValidHTTPURL(""))
	assert.False(t, IsValidHTTPURL("not a url"))
	assert.False(t, IsValidHTTPURL("ftp://example.com/file"))
	assert.False(t, IsValidHTTPURL("/relative/path"))
	assert.False(t, IsValidHTTPURL("javascript:alert(1)"))
}

func TestValidatorShared(t *testing.T) {
	assert.Same(t, Validator(), Validator())
}

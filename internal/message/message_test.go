package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeadersSetReplacesExistingOccurrences(t *testing.T) {
	h := Headers{{Name: "X-Foo", Value: "1"}, {Name: "X-Bar", Value: "2"}}
	out := h.Set("x-foo", "3")

	assert.Len(t, out, 2)
	v, ok := out.Get("X-Foo")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
	// original untouched (copy-on-modify)
	v, _ = h.Get("X-Foo")
	assert.Equal(t, "1", v)
}

func TestHeadersAddPreservesDuplicates(t *testing.T) {
	var h Headers
	h = h.Add("Set-Cookie", "a=1")
	h = h.Add("Set-Cookie", "b=2")

	assert.Equal(t, []string{"a=1", "b=2"}, h.GetAll("Set-Cookie"))
}

func TestHeadersRemovedIsCaseInsensitive(t *testing.T) {
	h := Headers{{Name: "Content-Type", Value: "text/plain"}}
	out := h.Removed("content-type")
	assert.False(t, out.Has("Content-Type"))
}

func TestRequestWithHeaderDoesNotMutateOriginal(t *testing.T) {
	req := NewRequest(GET, "/a", HTTP11)
	req = req.WithHeader("Host", "example.com")

	modified := req.WithHeader("Host", "other.example.com")

	hostOriginal, _ := req.Header("Host")
	hostModified, _ := modified.Header("Host")
	assert.Equal(t, "example.com", hostOriginal)
	assert.Equal(t, "other.example.com", hostModified)
}

func TestRequestAttrRoundTrip(t *testing.T) {
	req := NewRequest(GET, "/", HTTP11)
	req = req.WithAttr(AttrRequestCount, 3)

	v, ok := req.Attr(AttrRequestCount)
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	_, ok = NewRequest(GET, "/", HTTP11).Attr(AttrRequestCount)
	assert.False(t, ok)
}

func TestResponseWithStatusAndBody(t *testing.T) {
	resp := NewResponse(StatusOK)
	resp = resp.WithBody(NewBytesEntity([]byte("hi")))
	resp = resp.WithStatus(StatusNotFound)

	assert.Equal(t, StatusNotFound, resp.Status())
	n, ok := resp.Body.Length()
	assert.True(t, ok)
	assert.EqualValues(t, 2, n)
}

func TestAttributesNeverObservedOnEscapedMessage(t *testing.T) {
	base := NewRequest(GET, "/", HTTP11).WithAttr("k", "v")
	derived := base.WithAttr("k", "v2")

	v, _ := base.Attr("k")
	assert.Equal(t, "v", v, "escaped message must not see later mutation")
	v2, _ := derived.Attr("k")
	assert.Equal(t, "v2", v2)
}

package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/labstack/echo/v4"
)

func testCtx() echo.Context {
	e := echo.New()
	req := httptest.NewRequest("GET", "/", nil)
	return e.NewContext(req, httptest.NewRecorder())
}

// JWT numeric claims arrive as float64; other middleware may set native
// ints. All of them must resolve to the same identity.
func TestGetUserID(t *testing.T) {
	for _, v := range []any{uint64(7), int(7), int64(7), float64(7), "7"} {
		c := testCtx()
		c.Set("user_id", v)
		got, err := getUserID(c)
		assert.Equal(t, err, nil)
		assert.Equal(t, got, uint64(7))
	}

	c := testCtx()
	c.Set("user_id", "not-a-number")
	_, err := getUserID(c)
	assert.Equal(t, err == nil, false)

	c = testCtx()
	_, err = getUserID(c)
	assert.Equal(t, err == nil, false)
}

func TestMemberOf(t *testing.T) {
	assert.Equal(t, memberOf("3_7", 3), true)
	assert.Equal(t, memberOf("3_7", 7), true)
	assert.Equal(t, memberOf("3_7", 5), false)
	assert.Equal(t, memberOf("garbage", 3), false)
}

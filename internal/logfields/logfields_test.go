package logfields

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		attr slog.Attr
		key  string
	}{
		{Slug("/about"), KeySlug},
		{Operation("GetPageBySlug"), KeyOperation},
		{Preview(true), KeyPreview},
		{CacheResult("hit"), KeyCacheResult},
		{BlockKind("Carousel"), KeyBlockKind},
		{BlockID("abc"), KeyBlockID},
		{Strategy("static"), KeyStrategy},
		{Status(404), KeyStatus},
		{RequestID("rid"), KeyRequestID},
		{Duration(1500 * time.Microsecond), KeyDurationMS},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.key, tc.attr.Key)
	}
}

func TestDurationAndError(t *testing.T) {
	assert.InDelta(t, 1.5, Duration(1500*time.Microsecond).Value.Float64(), 0.0001)
	assert.Equal(t, "", Error(nil).Value.String())
	assert.Equal(t, "boom", Error(errors.New("boom")).Value.String())
}

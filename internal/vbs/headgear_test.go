package vbs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyHeadgear(t *testing.T) {
	base := "tall woman, copper hair in a loose braid, scarred cheek, olive flight suit"
	hood := "soft pressure hood framing the face"
	sealed := "mirrored helmet visor sealed shut"

	t.Run("open keeps hair", func(t *testing.T) {
		got := ApplyHeadgear(HeadgearOpen, base, "")
		assert.Contains(t, got, "copper hair")
		assert.Contains(t, got, "olive flight suit")
	})

	t.Run("partial replaces hair with fragment", func(t *testing.T) {
		got := ApplyHeadgear(HeadgearPartial, base, hood)
		assert.NotContains(t, got, "hair")
		assert.NotContains(t, got, "braid")
		assert.Contains(t, got, hood)
		assert.Contains(t, got, "scarred cheek")
	})

	t.Run("sealed removes hair and appends fragment", func(t *testing.T) {
		got := ApplyHeadgear(HeadgearSealed, base, sealed)
		assert.False(t, ContainsHairPhrase(got))
		assert.Contains(t, got, sealed)
	})

	t.Run("stale fragment removed before reinsert", func(t *testing.T) {
		withStale := base + ", soft pressure hood framing the face"
		got := ApplyHeadgear(HeadgearSealed, withStale, sealed)
		assert.NotContains(t, got, "pressure hood")
		assert.Equal(t, 1, strings.Count(got, sealed))
	})

	t.Run("reopening strips stale fragment", func(t *testing.T) {
		suited := "tall woman, scarred cheek, mirrored helmet visor sealed shut"
		got := ApplyHeadgear(HeadgearOpen, suited, "")
		assert.NotContains(t, got, "helmet")
		assert.Contains(t, got, "scarred cheek")
	})

	t.Run("no doubled separators", func(t *testing.T) {
		got := ApplyHeadgear(HeadgearPartial, "copper hair,, ,olive suit", hood)
		assert.NotContains(t, got, ",,")
		assert.NotContains(t, got, " ,")
		assert.False(t, strings.HasPrefix(got, ","))
		assert.False(t, strings.HasSuffix(got, ","))
	})

	t.Run("transform is idempotent", func(t *testing.T) {
		once := ApplyHeadgear(HeadgearSealed, base, sealed)
		twice := ApplyHeadgear(HeadgearSealed, once, sealed)
		assert.Equal(t, once, twice)
	})
}

func TestContainsHairPhrase(t *testing.T) {
	assert.True(t, ContainsHairPhrase("silver hair cropped short"))
	assert.True(t, ContainsHairPhrase("twin braids over one shoulder"))
	assert.False(t, ContainsHairPhrase("mohair jacket, leather boots"))
	assert.False(t, ContainsHairPhrase(""))
}

func TestStripHairPhrases(t *testing.T) {
	got := StripHairPhrases("short black hair, wiry build, grey coat")
	assert.Equal(t, "wiry build, grey coat", got)
}

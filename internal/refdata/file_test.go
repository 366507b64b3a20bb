package refdata

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shotsmith/internal/vbs"
)

const testLibrary = `
characters:
  - name: Mara Voss
    nicknames: [Mara]
    triggers:
      primary: mvoss-p1
      alternate: mvoss-a1
    appearances:
      - text: "tall woman, copper hair in a loose braid, olive flight suit"
      - location: orbital-dock
        phase: suited
        text: "tall woman, bulky EVA suit, mission patches"
      - phase: wounded
        text: "tall woman, copper hair matted, torn flight suit"
  - name: HALVOR
    physical: false
    triggers:
      primary: halvor-p1
locations:
  - name: orbital-dock
    artifacts:
      structural: ["gantry cranes", "mooring clamps", "stacked cargo pods"]
      lighting: ["harsh sodium floodlights"]
      atmospheric: ["drifting welding sparks"]
      props: ["fuel lines", "tool sled"]
headgear:
  partially_sealed: "soft pressure hood framing the face"
  fully_sealed: "mirrored helmet visor sealed shut"
`

func writeLibrary(t *testing.T, content string) *FileLibrary {
	t.Helper()
	path := filepath.Join(t.TempDir(), "library.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	lib, err := LoadFileLibrary(path)
	require.NoError(t, err)
	return lib
}

func TestAppearanceResolution(t *testing.T) {
	lib := writeLibrary(t, testLibrary)

	t.Run("exact location and phase", func(t *testing.T) {
		got, err := lib.Appearance("Mara Voss", "orbital-dock", "suited")
		require.NoError(t, err)
		assert.Contains(t, got, "EVA suit")
	})

	t.Run("phase-only entry", func(t *testing.T) {
		got, err := lib.Appearance("Mara Voss", "mess-hall", "wounded")
		require.NoError(t, err)
		assert.Contains(t, got, "matted")
	})

	t.Run("default entry", func(t *testing.T) {
		got, err := lib.Appearance("Mara Voss", "mess-hall", "default")
		require.NoError(t, err)
		assert.Contains(t, got, "loose braid")
	})

	t.Run("unknown character wraps ErrMissing", func(t *testing.T) {
		_, err := lib.Appearance("Nobody", "orbital-dock", "default")
		assert.True(t, errors.Is(err, ErrMissing))
	})
}

func TestArtifacts(t *testing.T) {
	lib := writeLibrary(t, testLibrary)

	set, err := lib.Artifacts("orbital-dock")
	require.NoError(t, err)
	assert.Len(t, set.Structural, 3)
	assert.Equal(t, []string{"harsh sodium floodlights"}, set.Lighting)
	assert.Len(t, set.Props, 2)

	_, err = lib.Artifacts("nowhere")
	assert.True(t, errors.Is(err, ErrMissing))
}

func TestCharacterDirectory(t *testing.T) {
	lib := writeLibrary(t, testLibrary)

	t.Run("physical defaults to true", func(t *testing.T) {
		rec, err := lib.Character("Mara Voss")
		require.NoError(t, err)
		assert.True(t, rec.Physical)
		assert.Equal(t, "mvoss-p1", rec.Triggers[vbs.RoutePrimary])
		assert.Equal(t, "mvoss-a1", rec.Triggers[vbs.RouteAlternate])
	})

	t.Run("non-physical entity", func(t *testing.T) {
		rec, err := lib.Character("HALVOR")
		require.NoError(t, err)
		assert.False(t, rec.Physical)
	})

	t.Run("variants include nicknames", func(t *testing.T) {
		vars := lib.NameVariants()
		assert.Equal(t, []string{"Mara"}, vars["Mara Voss"])
	})
}

func TestHeadgearFragments(t *testing.T) {
	lib := writeLibrary(t, testLibrary)
	assert.Equal(t, "soft pressure hood framing the face", lib.HeadgearFragment(vbs.HeadgearPartial))
	assert.Equal(t, "mirrored helmet visor sealed shut", lib.HeadgearFragment(vbs.HeadgearSealed))
	assert.Empty(t, lib.HeadgearFragment(vbs.HeadgearOpen))
}

func TestReloadKeepsDataOnParseFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testLibrary), 0644))
	lib, err := LoadFileLibrary(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("characters: [not: valid: yaml"), 0644))
	assert.Error(t, lib.Reload())

	// Previous data still served.
	_, err = lib.Character("Mara Voss")
	assert.NoError(t, err)
}

package refdata

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"shotsmith/internal/vbs"
)

// FileLibrary is a Source backed by a single YAML library file. Lookups are
// lock-protected so the fsnotify watcher can swap the data under load.
type FileLibrary struct {
	path string

	mu   sync.RWMutex
	data libraryFile
}

type libraryFile struct {
	Characters []characterEntry  `yaml:"characters"`
	Locations  []locationEntry   `yaml:"locations"`
	Headgear   map[string]string `yaml:"headgear"`
}

type characterEntry struct {
	Name      string            `yaml:"name"`
	Nicknames []string          `yaml:"nicknames"`
	Physical  *bool             `yaml:"physical"` // default true
	Triggers  map[string]string `yaml:"triggers"` // route -> token
	Looks     []lookEntry       `yaml:"appearances"`
}

type lookEntry struct {
	Location string `yaml:"location"` // empty matches any
	Phase    string `yaml:"phase"`    // empty matches any
	Text     string `yaml:"text"`
}

type locationEntry struct {
	Name      string      `yaml:"name"`
	Artifacts ArtifactSet `yaml:"artifacts"`
}

// LoadFileLibrary reads and parses the library file.
func LoadFileLibrary(path string) (*FileLibrary, error) {
	lib := &FileLibrary{path: path}
	if err := lib.Reload(); err != nil {
		return nil, err
	}
	return lib, nil
}

// Reload re-reads the library file, replacing the in-memory data on
// success and leaving it untouched on failure.
func (l *FileLibrary) Reload() error {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("failed to read reference library %s: %w", l.path, err)
	}
	var parsed libraryFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("failed to parse reference library %s: %w", l.path, err)
	}
	l.mu.Lock()
	l.data = parsed
	l.mu.Unlock()
	return nil
}

// Appearance resolves canonical appearance text with specificity order:
// exact (location, phase) > location-only > phase-only > default entry.
func (l *FileLibrary) Appearance(character, location, phase string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.findCharacter(character)
	if !ok {
		return "", missingErr("character %q", character)
	}

	best := -1
	text := ""
	for _, look := range entry.Looks {
		score, match := lookScore(look, location, phase)
		if match && score > best {
			best = score
			text = look.Text
		}
	}
	if best < 0 {
		return "", missingErr("appearance for %q at %q phase %q", character, location, phase)
	}
	return text, nil
}

// lookScore ranks how specifically an entry matches. Exact fields score
// higher than wildcards; mismatched fields disqualify.
func lookScore(look lookEntry, location, phase string) (int, bool) {
	score := 0
	if look.Location != "" {
		if look.Location != location {
			return 0, false
		}
		score += 2
	}
	if look.Phase != "" {
		if look.Phase != phase {
			return 0, false
		}
		score++
	}
	return score, true
}

// Artifacts returns the bucketed artifacts for a location.
func (l *FileLibrary) Artifacts(location string) (ArtifactSet, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, loc := range l.data.Locations {
		if loc.Name == location {
			return loc.Artifacts, nil
		}
	}
	return ArtifactSet{}, missingErr("location %q", location)
}

// Character returns the directory record for a canonical name.
func (l *FileLibrary) Character(name string) (Character, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.findCharacter(name)
	if !ok {
		return Character{}, missingErr("character %q", name)
	}

	rec := Character{
		Name:      entry.Name,
		Nicknames: append([]string(nil), entry.Nicknames...),
		Physical:  entry.Physical == nil || *entry.Physical,
		Triggers:  make(map[vbs.ModelRoute]string, len(entry.Triggers)),
	}
	for route, token := range entry.Triggers {
		rec.Triggers[vbs.ModelRoute(route)] = token
	}
	return rec, nil
}

// NameVariants returns canonical -> variants for the name matcher.
func (l *FileLibrary) NameVariants() map[string][]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string][]string, len(l.data.Characters))
	for _, c := range l.data.Characters {
		out[c.Name] = append([]string(nil), c.Nicknames...)
	}
	return out
}

// HeadgearFragment returns the covering fragment for a state.
func (l *FileLibrary) HeadgearFragment(state vbs.HeadgearState) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.data.Headgear[string(state)]
}

func (l *FileLibrary) findCharacter(name string) (characterEntry, bool) {
	for _, c := range l.data.Characters {
		if c.Name == name {
			return c, true
		}
	}
	return characterEntry{}, false
}

var _ Source = (*FileLibrary)(nil)

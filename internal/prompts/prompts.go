package prompts

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

var ErrNoPrompts = errors.New("no prompts available for language")

// Source supplies one prompt for a language tag. Failure is fatal to the
// round being started and gets reported to the group.
type Source interface {
	GetPrompt(lang string) (string, error)
}

// Counter is implemented by sources that can report a set's size.
type Counter interface {
	Count(lang string) (int, error)
}

// FileSource reads prompt sets from set_<lang>.json files shaped as
//
//	{"content":[{"prompt":"..."}, ...]}
//
// Sets are cached after first load. Draws use the injected rng so round
// composition is reproducible in tests.
type FileSource struct {
	dir   string
	rng   *rand.Rand
	cache map[string][]string
}

func NewFileSource(dir string, rng *rand.Rand) *FileSource {
	return &FileSource{dir: dir, rng: rng, cache: make(map[string][]string)}
}

func (s *FileSource) GetPrompt(lang string) (string, error) {
	set, err := s.load(lang)
	if err != nil {
		return "", err
	}
	return set[s.rng.Intn(len(set))], nil
}

// Count reports how many prompts a language set holds.
func (s *FileSource) Count(lang string) (int, error) {
	set, err := s.load(lang)
	if err != nil {
		return 0, err
	}
	return len(set), nil
}

func (s *FileSource) load(lang string) ([]string, error) {
	if set, ok := s.cache[lang]; ok {
		return set, nil
	}

	raw, err := os.ReadFile(filepath.Join(s.dir, "set_"+lang+".json"))
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrNoPrompts, lang, err)
	}

	var doc struct {
		Content []struct {
			Prompt string `json:"prompt"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrNoPrompts, lang, err)
	}

	set := make([]string, 0, len(doc.Content))
	for _, item := range doc.Content {
		if item.Prompt != "" {
			set = append(set, item.Prompt)
		}
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("%w %q", ErrNoPrompts, lang)
	}

	s.cache[lang] = set
	return set, nil
}

// Package handles generates public, human-friendly participant handles such as
// "happy-turtle".
package handles

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed words.yaml
var defaultWords []byte

// Words holds the dictionaries a handle is assembled from.
type Words struct {
	Adjectives []string `yaml:"adjectives"`
	Animals    []string `yaml:"animals"`
}

// ParseWords decodes a YAML word list and rejects empty dictionaries.
func ParseWords(data []byte) (*Words, error) {
	var w Words
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode word list: %w", err)
	}
	if len(w.Adjectives) == 0 || len(w.Animals) == 0 {
		return nil, errors.New("word list needs at least one adjective and one animal")
	}
	return &w, nil
}

// Generator picks adjective-animal pairs at random. It is safe for concurrent use.
type Generator struct {
	words *Words

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator builds a generator over the embedded dictionaries.
func NewGenerator() *Generator {
	w, err := ParseWords(defaultWords)
	if err != nil {
		panic("embedded word list is invalid: " + err.Error())
	}
	return NewGeneratorWithWords(w, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

// NewGeneratorWithWords builds a generator over custom dictionaries and source.
func NewGeneratorWithWords(w *Words, rng *rand.Rand) *Generator {
	return &Generator{words: w, rng: rng}
}

// Next returns a lower-case handle.
func (g *Generator) Next() string {
	g.mu.Lock()
	adj := g.words.Adjectives[g.rng.IntN(len(g.words.Adjectives))]
	animal := g.words.Animals[g.rng.IntN(len(g.words.Animals))]
	g.mu.Unlock()
	return strings.ToLower(adj + "-" + animal)
}

// Capacity is the number of distinct handles the generator can produce.
func (g *Generator) Capacity() int {
	return len(g.words.Adjectives) * len(g.words.Animals)
}

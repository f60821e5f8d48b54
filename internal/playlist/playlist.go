// Package playlist builds the shuffled playback order of the widget.
package playlist

import (
	"math/rand/v2"
)

// Playlist is a shuffled sequence of image paths played without repeats
// until every path has been shown once.
type Playlist struct {
	paths []string
	index int
	rng   *rand.Rand
}

// New creates an empty playlist; a nil rng uses a randomly seeded source
func New(rng *rand.Rand) *Playlist {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Playlist{rng: rng}
}

// Rebuild replaces the contents with a random permutation of paths and
// resets the play index.
func (p *Playlist) Rebuild(paths []string) {
	p.paths = append(p.paths[:0], paths...)
	p.shuffle()
}

// Advance returns the next path. After the last path the sequence is
// reshuffled, so the item just shown may also open the next pass.
func (p *Playlist) Advance() (string, bool) {
	if len(p.paths) == 0 {
		return "", false
	}
	if p.index >= len(p.paths) {
		p.shuffle()
	}
	path := p.paths[p.index]
	p.index++
	return path, true
}

// Len returns the number of paths
func (p *Playlist) Len() int {
	return len(p.paths)
}

// Paths returns a copy of the current order
func (p *Playlist) Paths() []string {
	return append([]string(nil), p.paths...)
}

func (p *Playlist) shuffle() {
	p.rng.Shuffle(len(p.paths), func(i, j int) {
		p.paths[i], p.paths[j] = p.paths[j], p.paths[i]
	})
	p.index = 0
}

// Package clinic holds the clinic's editable profile: the name shown on the
// dashboard and used in assistant prompts, plus its logo.
package clinic

import (
	"errors"
	"strings"
	"sync"
	"unicode/utf8"
)

var ErrInvalidName = errors.New("clinic name must be at least 2 characters long")

const minNameLength = 2

type Info struct {
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

// Update is a partial change; nil fields are left as they are.
type Update struct {
	Name *string `json:"name,omitempty"`
	Logo *string `json:"logo,omitempty"`
}

// Profile is safe for concurrent use.
type Profile struct {
	mu   sync.RWMutex
	info Info
}

func NewProfile(info Info) *Profile {
	info.Name = strings.TrimSpace(info.Name)
	return &Profile{info: info}
}

func (p *Profile) Get() Info {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.info
}

func (p *Profile) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.info.Name
}

// Apply merges u into the profile. Nothing changes when the new name is too short.
func (p *Profile) Apply(u Update) (Info, error) {
	var name string
	if u.Name != nil {
		name = strings.TrimSpace(*u.Name)
		if utf8.RuneCountInString(name) < minNameLength {
			return Info{}, ErrInvalidName
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if u.Name != nil {
		p.info.Name = name
	}
	if u.Logo != nil {
		p.info.Logo = strings.TrimSpace(*u.Logo)
	}
	return p.info, nil
}

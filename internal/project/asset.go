package project

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind discriminates the three asset variants.
type Kind string

const (
	KindCharacter Kind = "character"
	KindLocation  Kind = "location"
	KindProp      Kind = "prop"
)

// ParseKind validates a kind string. Plural forms are accepted.
func ParseKind(s string) (Kind, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s") {
	case "character":
		return KindCharacter, nil
	case "location":
		return KindLocation, nil
	case "prop":
		return KindProp, nil
	}
	return "", fmt.Errorf("project: unknown asset kind %q", s)
}

// StateSnapshot is a partial profile change attributed to a scene. Changes
// maps top-level profile keys to their complete new values.
type StateSnapshot struct {
	ID      string                     `json:"id"`
	SceneID string                     `json:"sceneId"`
	Trigger string                     `json:"trigger"`
	Changes map[string]json.RawMessage `json:"changes"`
}

// ConsistencyAnalysis explains an asset's consistency mode.
type ConsistencyAnalysis struct {
	NarrativeWeight float64 `json:"narrativeWeight"`
	RecurrenceScore float64 `json:"recurrenceScore"`
	Reasoning       string  `json:"reasoning"`
}

// Asset is implemented by Character, Location and Prop.
type Asset interface {
	Kind() Kind
	AssetID() string
	AssetName() string
	Snapshots() []StateSnapshot
	Images() *ImageSet
}

// Character is a bible character.
type Character struct {
	ID              string              `json:"id"`
	Profile         CharacterProfile    `json:"profile"`
	Timeline        []StateSnapshot     `json:"timeline"`
	ConsistencyMode ConsistencyMode     `json:"consistencyMode"`
	Analysis        ConsistencyAnalysis `json:"analysis"`
	Appearances     int                 `json:"appearances"`
}

func (c *Character) Kind() Kind { return KindCharacter }
func (c *Character) AssetID() string { return c.ID }
func (c *Character) AssetName() string { return c.Profile.Name }
func (c *Character) Snapshots() []StateSnapshot { return c.Timeline }
func (c *Character) Images() *ImageSet { return &c.Profile.ImageSet }

// Location is a bible location.
type Location struct {
	ID              string              `json:"id"`
	BaseProfile     LocationProfile     `json:"baseProfile"`
	Timeline        []StateSnapshot     `json:"timeline"`
	ConsistencyMode ConsistencyMode     `json:"consistencyMode"`
	Analysis        ConsistencyAnalysis `json:"analysis"`
	Appearances     int                 `json:"appearances"`
}

func (l *Location) Kind() Kind { return KindLocation }
func (l *Location) AssetID() string { return l.ID }
func (l *Location) AssetName() string { return l.BaseProfile.Identity.Name }
func (l *Location) Snapshots() []StateSnapshot { return l.Timeline }
func (l *Location) Images() *ImageSet { return &l.BaseProfile.Visuals.ImageSet }

// Prop is a bible prop.
type Prop struct {
	ID              string              `json:"id"`
	BaseProfile     PropProfile         `json:"baseProfile"`
	Timeline        []StateSnapshot     `json:"timeline"`
	ConsistencyMode ConsistencyMode     `json:"consistencyMode"`
	Analysis        ConsistencyAnalysis `json:"analysis"`
	Appearances     int                 `json:"appearances"`
}

func (p *Prop) Kind() Kind { return KindProp }
func (p *Prop) AssetID() string { return p.ID }
func (p *Prop) AssetName() string { return p.BaseProfile.Identity.Name }
func (p *Prop) Snapshots() []StateSnapshot { return p.Timeline }
func (p *Prop) Images() *ImageSet { return &p.BaseProfile.Visuals.ImageSet }

// Assets returns pointers to every asset in the bible, characters first.
func (b *Bible) Assets() []Asset {
	out := make([]Asset, 0, len(b.Characters)+len(b.Locations)+len(b.Props))
	for i := range b.Characters {
		out = append(out, &b.Characters[i])
	}
	for i := range b.Locations {
		out = append(out, &b.Locations[i])
	}
	for i := range b.Props {
		out = append(out, &b.Props[i])
	}
	return out
}

// Find returns the asset of kind with id.
func (b *Bible) Find(kind Kind, id string) (Asset, bool) {
	for _, a := range b.Assets() {
		if a.Kind() == kind && a.AssetID() == id {
			return a, true
		}
	}
	return nil, false
}

// FindByName returns the first asset of kind whose name matches,
// ignoring case and surrounding whitespace.
func (b *Bible) FindByName(kind Kind, name string) (Asset, bool) {
	for _, a := range b.Assets() {
		if a.Kind() == kind && SameName(a.AssetName(), name) {
			return a, true
		}
	}
	return nil, false
}

// SameName compares asset names ignoring case and surrounding whitespace.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

package project

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// PopulateCharacterProfile replaces a character's profile.
func (d *Document) PopulateCharacterProfile(id string, profile CharacterProfile) error {
	return d.UpdateCharacter(id, func(c *Character) { c.Profile = profile })
}

// UpdateCharacter edits a character in place. The id cannot be changed.
func (d *Document) UpdateCharacter(id string, fn func(c *Character)) error {
	return d.mutate(func(p *Project) error {
		for i := range p.Bible.Characters {
			if p.Bible.Characters[i].ID == id {
				fn(&p.Bible.Characters[i])
				p.Bible.Characters[i].ID = id
				return nil
			}
		}
		return fmt.Errorf("%w: character %s", ErrNotFound, id)
	})
}

// UpdateLocation edits a location in place. The id cannot be changed.
func (d *Document) UpdateLocation(id string, fn func(l *Location)) error {
	return d.mutate(func(p *Project) error {
		for i := range p.Bible.Locations {
			if p.Bible.Locations[i].ID == id {
				fn(&p.Bible.Locations[i])
				p.Bible.Locations[i].ID = id
				return nil
			}
		}
		return fmt.Errorf("%w: location %s", ErrNotFound, id)
	})
}

// UpdateProp edits a prop in place. The id cannot be changed.
func (d *Document) UpdateProp(id string, fn func(p *Prop)) error {
	return d.mutate(func(p *Project) error {
		for i := range p.Bible.Props {
			if p.Bible.Props[i].ID == id {
				fn(&p.Bible.Props[i])
				p.Bible.Props[i].ID = id
				return nil
			}
		}
		return fmt.Errorf("%w: prop %s", ErrNotFound, id)
	})
}

// UpdateAsset edits any asset through the common interface.
func (d *Document) UpdateAsset(kind Kind, id string, fn func(a Asset)) error {
	return d.mutate(func(p *Project) error {
		a, ok := p.Bible.Find(kind, id)
		if !ok {
			return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
		}
		fn(a)
		return nil
	})
}

// UpdateConsistency sets an asset's consistency mode.
func (d *Document) UpdateConsistency(kind Kind, id string, mode ConsistencyMode) error {
	if !mode.Valid() {
		return fmt.Errorf("project: unknown consistency mode %q", mode)
	}
	return d.mutate(func(p *Project) error {
		a, ok := p.Bible.Find(kind, id)
		if !ok {
			return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
		}
		switch v := a.(type) {
		case *Character:
			v.ConsistencyMode = mode
		case *Location:
			v.ConsistencyMode = mode
		case *Prop:
			v.ConsistencyMode = mode
		}
		return nil
	})
}

// AddAsset creates an asset with a default profile and returns its id.
// A name already used by an asset of the same kind is rejected.
func (d *Document) AddAsset(kind Kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("project: asset name is required")
	}
	var id string
	err := d.mutate(func(p *Project) error {
		if a, ok := p.Bible.FindByName(kind, name); ok {
			return fmt.Errorf("project: %s %q already exists as %s", kind, name, a.AssetID())
		}
		switch kind {
		case KindCharacter:
			c := NewCharacter(name)
			id = c.ID
			p.Bible.Characters = append(p.Bible.Characters, c)
		case KindLocation:
			l := NewLocation(name)
			id = l.ID
			p.Bible.Locations = append(p.Bible.Locations, l)
		case KindProp:
			pr := NewProp(name)
			id = pr.ID
			p.Bible.Props = append(p.Bible.Props, pr)
		default:
			return fmt.Errorf("project: unknown asset kind %q", kind)
		}
		return nil
	})
	return id, err
}

// AddSnapshot appends a state snapshot to an asset's timeline and returns
// the snapshot id. The scene must exist.
func (d *Document) AddSnapshot(kind Kind, assetID string, snap StateSnapshot) (string, error) {
	snap.ID = uuid.NewString()
	err := d.mutate(func(p *Project) error {
		if _, ok := p.FindScene(snap.SceneID); !ok {
			return fmt.Errorf("%w: scene %s", ErrNotFound, snap.SceneID)
		}
		a, ok := p.Bible.Find(kind, assetID)
		if !ok {
			return fmt.Errorf("%w: %s %s", ErrNotFound, kind, assetID)
		}
		appendSnapshot(a, snap)
		return nil
	})
	if err != nil {
		return "", err
	}
	return snap.ID, nil
}

func appendSnapshot(a Asset, snap StateSnapshot) {
	switch v := a.(type) {
	case *Character:
		v.Timeline = append(v.Timeline, snap)
	case *Location:
		v.Timeline = append(v.Timeline, snap)
	case *Prop:
		v.Timeline = append(v.Timeline, snap)
	}
}

// AnalysisSummary reports what ApplyAssetAnalysis changed.
type AnalysisSummary struct {
	Added     int
	Snapshots int
	Unmatched int
	Scenes    int
}

// ApplyAssetAnalysis merges an analysis of one episode or act into the
// bible. New assets are matched against existing ones by name ignoring case
// and surrounding whitespace; unmatched ones are created from the defaults
// merged with the payload. Snapshots get fresh ids and are appended to the
// asset named by the change. Scene asset lists are replaced for the mapped
// scenes of the item and appearance counts are recomputed.
func (d *Document) ApplyAssetAnalysis(itemID string, result AssetAnalysisResult) (AnalysisSummary, error) {
	var sum AnalysisSummary
	err := d.mutate(func(p *Project) error {
		it, err := p.findItem(itemID)
		if err != nil {
			return err
		}
		if err := it.checkUnlocked(); err != nil {
			return err
		}

		work := Bible{
			Characters: append([]Character(nil), p.Bible.Characters...),
			Locations:  append([]Location(nil), p.Bible.Locations...),
			Props:      append([]Prop(nil), p.Bible.Props...),
		}
		added := 0
		for _, payload := range result.IdentifiedCharacters {
			name, err := payloadName(KindCharacter, payload)
			if err != nil {
				return err
			}
			if _, ok := work.FindByName(KindCharacter, name); ok || name == "" {
				continue
			}
			c := NewCharacter(name)
			if c.Profile, err = mergePayload(c.Profile, payload.Profile); err != nil {
				return err
			}
			applyPayloadMeta(&c.ConsistencyMode, &c.Analysis, payload)
			work.Characters = append(work.Characters, c)
			added++
		}
		for _, payload := range result.IdentifiedLocations {
			name, err := payloadName(KindLocation, payload)
			if err != nil {
				return err
			}
			if _, ok := work.FindByName(KindLocation, name); ok || name == "" {
				continue
			}
			l := NewLocation(name)
			if l.BaseProfile, err = mergePayload(l.BaseProfile, payload.BaseProfile); err != nil {
				return err
			}
			applyPayloadMeta(&l.ConsistencyMode, &l.Analysis, payload)
			work.Locations = append(work.Locations, l)
			added++
		}
		for _, payload := range result.IdentifiedProps {
			name, err := payloadName(KindProp, payload)
			if err != nil {
				return err
			}
			if _, ok := work.FindByName(KindProp, name); ok || name == "" {
				continue
			}
			pr := NewProp(name)
			if pr.BaseProfile, err = mergePayload(pr.BaseProfile, payload.BaseProfile); err != nil {
				return err
			}
			applyPayloadMeta(&pr.ConsistencyMode, &pr.Analysis, payload)
			work.Props = append(work.Props, pr)
			added++
		}

		// Appends must not share backing arrays with the live timelines.
		for i := range work.Characters {
			work.Characters[i].Timeline = append([]StateSnapshot(nil), work.Characters[i].Timeline...)
		}
		for i := range work.Locations {
			work.Locations[i].Timeline = append([]StateSnapshot(nil), work.Locations[i].Timeline...)
		}
		for i := range work.Props {
			work.Props[i].Timeline = append([]StateSnapshot(nil), work.Props[i].Timeline...)
		}
		snaps, unmatched := 0, 0
		for _, change := range result.AssetStateChanges {
			a, ok := work.FindByName(change.AssetType, change.AssetName)
			if !ok {
				unmatched++
				continue
			}
			snap := change.Snapshot
			snap.ID = uuid.NewString()
			appendSnapshot(a, snap)
			snaps++
		}

		mapping := make(map[string]SceneAssets, len(result.SceneAssetMapping))
		for _, m := range result.SceneAssetMapping {
			mapping[m.SceneID] = m.Assets
		}
		mapped := 0
		scenes := *it.scenes
		for i := range scenes {
			if assets, ok := mapping[scenes[i].ID]; ok {
				scenes[i].Assets = &assets
				mapped++
			}
		}

		p.Bible.Characters = work.Characters
		p.Bible.Locations = work.Locations
		p.Bible.Props = work.Props
		p.recountAppearances()

		sum = AnalysisSummary{Added: added, Snapshots: snaps, Unmatched: unmatched, Scenes: mapped}
		return nil
	})
	return sum, err
}

func payloadName(kind Kind, payload NewAssetPayload) (string, error) {
	if kind == KindCharacter {
		var v struct {
			Name string `json:"name"`
		}
		if len(payload.Profile) > 0 {
			if err := json.Unmarshal(payload.Profile, &v); err != nil {
				return "", fmt.Errorf("project: decode character payload: %w", err)
			}
		}
		return strings.TrimSpace(v.Name), nil
	}
	var v struct {
		Identity Identity `json:"identity"`
	}
	if len(payload.BaseProfile) > 0 {
		if err := json.Unmarshal(payload.BaseProfile, &v); err != nil {
			return "", fmt.Errorf("project: decode %s payload: %w", kind, err)
		}
	}
	return strings.TrimSpace(v.Identity.Name), nil
}

func mergePayload[P any](base P, raw json.RawMessage) (P, error) {
	if len(raw) == 0 {
		return base, nil
	}
	var patch map[string]json.RawMessage
	if err := json.Unmarshal(raw, &patch); err != nil {
		return base, fmt.Errorf("project: decode payload profile: %w", err)
	}
	return MergeTop(base, patch)
}

func applyPayloadMeta(mode *ConsistencyMode, analysis *ConsistencyAnalysis, payload NewAssetPayload) {
	if payload.ConsistencyMode.Valid() {
		*mode = payload.ConsistencyMode
	}
	*analysis = payload.Analysis
}

// recountAppearances sets every asset's appearance count to the number of
// scenes that list it.
func (p *Project) recountAppearances() {
	for _, a := range p.Bible.Assets() {
		n := p.AppearanceCount(a.Kind(), a.AssetName())
		switch v := a.(type) {
		case *Character:
			v.Appearances = n
		case *Location:
			v.Appearances = n
		case *Prop:
			v.Appearances = n
		}
	}
}

// FindScenesWithAsset returns the scenes, in script order, whose asset
// lists name the asset. Names match ignoring case.
func (p *Project) FindScenesWithAsset(kind Kind, name string) []SceneRef {
	var out []SceneRef
	order := p.SceneOrder()
	for _, ref := range order.Refs() {
		sc, ok := p.FindScene(ref.SceneID)
		if !ok {
			continue
		}
		for _, n := range sc.Assets.Names(kind) {
			if SameName(n, name) {
				out = append(out, ref)
				break
			}
		}
	}
	return out
}

// AppearanceCount is the number of scenes whose asset lists name the asset.
func (p *Project) AppearanceCount(kind Kind, name string) int {
	return len(p.FindScenesWithAsset(kind, name))
}

package project

import (
	"fmt"

	"github.com/google/uuid"
)

// AddShot appends a user shot to a scene and returns it.
func (d *Document) AddShot(sceneID string) (Shot, error) {
	var shot Shot
	err := d.mutate(func(p *Project) error {
		if _, ok := p.FindScene(sceneID); !ok {
			return fmt.Errorf("%w: scene %s", ErrNotFound, sceneID)
		}
		shots := p.Studio.ShotsByScene[sceneID]
		shot = Shot{
			ID:          uuid.NewString(),
			ShotNumber:  len(shots) + 1,
			Description: "New shot",
			IsLocked:    true,
			Origin:      OriginUser,
		}
		p.Studio.ShotsByScene[sceneID] = append(shots, shot)
		return nil
	})
	return shot, err
}

// UpdateShot edits a shot in place. The id cannot be changed.
func (d *Document) UpdateShot(sceneID, shotID string, fn func(s *Shot)) error {
	return d.mutate(func(p *Project) error {
		shots := p.Studio.ShotsByScene[sceneID]
		for i := range shots {
			if shots[i].ID == shotID {
				fn(&shots[i])
				shots[i].ID = shotID
				return nil
			}
		}
		return fmt.Errorf("%w: shot %s in scene %s", ErrNotFound, shotID, sceneID)
	})
}

// DeleteShot removes a shot and renumbers the rest.
func (d *Document) DeleteShot(sceneID, shotID string) error {
	return d.mutate(func(p *Project) error {
		shots := p.Studio.ShotsByScene[sceneID]
		kept := make([]Shot, 0, len(shots))
		for _, s := range shots {
			if s.ID != shotID {
				kept = append(kept, s)
			}
		}
		if len(kept) == len(shots) {
			return fmt.Errorf("%w: shot %s in scene %s", ErrNotFound, shotID, sceneID)
		}
		for i := range kept {
			kept[i].ShotNumber = i + 1
		}
		p.Studio.ShotsByScene[sceneID] = kept
		return nil
	})
}

// SetShots replaces a scene's shot list, numbering shots by position.
func (d *Document) SetShots(sceneID string, shots []Shot) error {
	return d.mutate(func(p *Project) error {
		if _, ok := p.FindScene(sceneID); !ok {
			return fmt.Errorf("%w: scene %s", ErrNotFound, sceneID)
		}
		out := make([]Shot, len(shots))
		for i, s := range shots {
			if s.ID == "" {
				s.ID = uuid.NewString()
			}
			s.ShotNumber = i + 1
			out[i] = s
		}
		p.Studio.ShotsByScene[sceneID] = out
		return nil
	})
}

// FindShot returns a shot by scene and id.
func (p *Project) FindShot(sceneID, shotID string) (*Shot, bool) {
	shots := p.Studio.ShotsByScene[sceneID]
	for i := range shots {
		if shots[i].ID == shotID {
			return &shots[i], true
		}
	}
	return nil, false
}

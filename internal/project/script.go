package project

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func requireFormat(p *Project, episodic bool) error {
	if p.Episodic() != episodic {
		return fmt.Errorf("%w: project is %s", ErrWrongFormat, p.Format.Type)
	}
	return nil
}

func anyInstallmentLocked(p *Project) error {
	for _, inst := range p.installments() {
		if *inst.locked {
			return fmt.Errorf("%w: installment %s", ErrLocked, inst.id)
		}
	}
	return nil
}

// SetGeneratedEpisodes replaces the script with a single season holding
// episodes. The synopsis becomes the season logline.
func (d *Document) SetGeneratedEpisodes(episodes []Episode) error {
	return d.mutate(func(p *Project) error {
		if err := requireFormat(p, true); err != nil {
			return err
		}
		if err := anyInstallmentLocked(p); err != nil {
			return err
		}
		p.Script = Script{Seasons: []Season{{
			ID:           uuid.NewString(),
			SeasonNumber: 1,
			Title:        "Season 1",
			Logline:      p.Bible.Synopsis,
			Episodes:     episodes,
		}}}
		return nil
	})
}

// SetGeneratedActs replaces the script with a single sequel holding acts.
func (d *Document) SetGeneratedActs(acts []Act) error {
	return d.mutate(func(p *Project) error {
		if err := requireFormat(p, false); err != nil {
			return err
		}
		if err := anyInstallmentLocked(p); err != nil {
			return err
		}
		p.Script = Script{Sequels: []Sequel{{
			ID:         uuid.NewString(),
			PartNumber: 1,
			Title:      "Part 1",
			Summary:    p.Bible.Synopsis,
			Acts:       acts,
		}}}
		return nil
	})
}

// AddSeason appends an empty season and returns its id.
func (d *Document) AddSeason() (string, error) {
	id := uuid.NewString()
	err := d.mutate(func(p *Project) error {
		if err := requireFormat(p, true); err != nil {
			return err
		}
		n := len(p.Script.Seasons) + 1
		p.Script.Seasons = append(p.Script.Seasons, Season{
			ID:           id,
			SeasonNumber: n,
			Title:        fmt.Sprintf("Season %d", n),
			Episodes:     []Episode{},
		})
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// DeleteSeason removes a season and renumbers the rest.
func (d *Document) DeleteSeason(id string) error {
	return d.mutate(func(p *Project) error {
		if err := requireFormat(p, true); err != nil {
			return err
		}
		idx := -1
		for i, s := range p.Script.Seasons {
			if s.ID == id {
				idx = i
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: season %s", ErrNotFound, id)
		}
		if p.Script.Seasons[idx].IsLocked {
			return fmt.Errorf("%w: season %s", ErrLocked, id)
		}
		seasons := append(p.Script.Seasons[:idx:idx], p.Script.Seasons[idx+1:]...)
		for i := range seasons {
			seasons[i].SeasonNumber = i + 1
			seasons[i].Title = fmt.Sprintf("Season %d", i+1)
		}
		p.Script.Seasons = seasons
		return nil
	})
}

// AddSequel appends an empty sequel and returns its id.
func (d *Document) AddSequel() (string, error) {
	id := uuid.NewString()
	err := d.mutate(func(p *Project) error {
		if err := requireFormat(p, false); err != nil {
			return err
		}
		n := len(p.Script.Sequels) + 1
		p.Script.Sequels = append(p.Script.Sequels, Sequel{
			ID:         id,
			PartNumber: n,
			Title:      fmt.Sprintf("Part %d", n),
			Acts:       []Act{},
		})
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// DeleteSequel removes a sequel and renumbers the rest.
func (d *Document) DeleteSequel(id string) error {
	return d.mutate(func(p *Project) error {
		if err := requireFormat(p, false); err != nil {
			return err
		}
		idx := -1
		for i, s := range p.Script.Sequels {
			if s.ID == id {
				idx = i
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: sequel %s", ErrNotFound, id)
		}
		if p.Script.Sequels[idx].IsLocked {
			return fmt.Errorf("%w: sequel %s", ErrLocked, id)
		}
		sequels := append(p.Script.Sequels[:idx:idx], p.Script.Sequels[idx+1:]...)
		for i := range sequels {
			sequels[i].PartNumber = i + 1
			sequels[i].Title = fmt.Sprintf("Part %d", i+1)
		}
		p.Script.Sequels = sequels
		return nil
	})
}

// ToggleInstallmentLock flips a season or sequel lock and returns the new state.
func (d *Document) ToggleInstallmentLock(id string) (bool, error) {
	var locked bool
	err := d.mutate(func(p *Project) error {
		inst, err := p.findInstallment(id)
		if err != nil {
			return err
		}
		*inst.locked = !*inst.locked
		locked = *inst.locked
		return nil
	})
	return locked, err
}

// UpdateContinuityBrief edits an installment's continuity brief, creating an
// empty one first when none exists.
func (d *Document) UpdateContinuityBrief(installmentID string, fn func(b *ContinuityBrief)) error {
	return d.mutate(func(p *Project) error {
		inst, err := p.findInstallment(installmentID)
		if err != nil {
			return err
		}
		if *inst.brief == nil {
			*inst.brief = &ContinuityBrief{
				ID:                   uuid.NewString(),
				ProjectID:            p.Metadata.ID,
				InstallmentID:        inst.id,
				InstallmentTitle:     *inst.title,
				GeneratedAt:          d.now().UnixMilli(),
				CharacterResolutions: []string{},
				WorldStateChanges:    []string{},
				LingeringHooks:       []string{},
			}
		}
		fn(*inst.brief)
		return nil
	})
}

// AddEpisode appends an episode to a season and returns its id.
func (d *Document) AddEpisode(seasonID, title, logline string) (string, error) {
	id := uuid.NewString()
	err := d.mutate(func(p *Project) error {
		if err := requireFormat(p, true); err != nil {
			return err
		}
		for i := range p.Script.Seasons {
			s := &p.Script.Seasons[i]
			if s.ID != seasonID {
				continue
			}
			if s.IsLocked {
				return fmt.Errorf("%w: season %s", ErrLocked, seasonID)
			}
			s.Episodes = append(s.Episodes, Episode{
				ID:            id,
				EpisodeNumber: len(s.Episodes) + 1,
				Title:         title,
				Logline:       logline,
				Scenes:        []Scene{},
			})
			return nil
		}
		return fmt.Errorf("%w: season %s", ErrNotFound, seasonID)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// AddAct appends an act to a sequel and returns its id.
func (d *Document) AddAct(sequelID, title, summary string) (string, error) {
	id := uuid.NewString()
	err := d.mutate(func(p *Project) error {
		if err := requireFormat(p, false); err != nil {
			return err
		}
		for i := range p.Script.Sequels {
			s := &p.Script.Sequels[i]
			if s.ID != sequelID {
				continue
			}
			if s.IsLocked {
				return fmt.Errorf("%w: sequel %s", ErrLocked, sequelID)
			}
			s.Acts = append(s.Acts, Act{
				ID:        id,
				ActNumber: len(s.Acts) + 1,
				Title:     title,
				Summary:   summary,
				Scenes:    []Scene{},
			})
			return nil
		}
		return fmt.Errorf("%w: sequel %s", ErrNotFound, sequelID)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateEpisode edits an episode in place. The id cannot be changed.
func (d *Document) UpdateEpisode(id string, fn func(e *Episode)) error {
	return d.mutate(func(p *Project) error {
		for i := range p.Script.Seasons {
			s := &p.Script.Seasons[i]
			for j := range s.Episodes {
				if s.Episodes[j].ID != id {
					continue
				}
				if s.IsLocked {
					return fmt.Errorf("%w: season %s", ErrLocked, s.ID)
				}
				fn(&s.Episodes[j])
				s.Episodes[j].ID = id
				return nil
			}
		}
		return fmt.Errorf("%w: episode %s", ErrNotFound, id)
	})
}

// UpdateAct edits an act in place. The id cannot be changed.
func (d *Document) UpdateAct(id string, fn func(a *Act)) error {
	return d.mutate(func(p *Project) error {
		for i := range p.Script.Sequels {
			s := &p.Script.Sequels[i]
			for j := range s.Acts {
				if s.Acts[j].ID != id {
					continue
				}
				if s.IsLocked {
					return fmt.Errorf("%w: sequel %s", ErrLocked, s.ID)
				}
				fn(&s.Acts[j])
				s.Acts[j].ID = id
				return nil
			}
		}
		return fmt.Errorf("%w: act %s", ErrNotFound, id)
	})
}

// DeleteEpisode removes an episode and renumbers its siblings.
func (d *Document) DeleteEpisode(seasonID, episodeID string) error {
	return d.mutate(func(p *Project) error {
		for i := range p.Script.Seasons {
			s := &p.Script.Seasons[i]
			if s.ID != seasonID {
				continue
			}
			if s.IsLocked {
				return fmt.Errorf("%w: season %s", ErrLocked, seasonID)
			}
			kept := make([]Episode, 0, len(s.Episodes))
			for _, e := range s.Episodes {
				if e.ID != episodeID {
					kept = append(kept, e)
				}
			}
			if len(kept) == len(s.Episodes) {
				return fmt.Errorf("%w: episode %s", ErrNotFound, episodeID)
			}
			for j := range kept {
				kept[j].EpisodeNumber = j + 1
			}
			s.Episodes = kept
			return nil
		}
		return fmt.Errorf("%w: season %s", ErrNotFound, seasonID)
	})
}

// DeleteAct removes an act and renumbers its siblings.
func (d *Document) DeleteAct(sequelID, actID string) error {
	return d.mutate(func(p *Project) error {
		for i := range p.Script.Sequels {
			s := &p.Script.Sequels[i]
			if s.ID != sequelID {
				continue
			}
			if s.IsLocked {
				return fmt.Errorf("%w: sequel %s", ErrLocked, sequelID)
			}
			kept := make([]Act, 0, len(s.Acts))
			for _, a := range s.Acts {
				if a.ID != actID {
					kept = append(kept, a)
				}
			}
			if len(kept) == len(s.Acts) {
				return fmt.Errorf("%w: act %s", ErrNotFound, actID)
			}
			for j := range kept {
				kept[j].ActNumber = j + 1
			}
			s.Acts = kept
			return nil
		}
		return fmt.Errorf("%w: sequel %s", ErrNotFound, sequelID)
	})
}

// SetScenes replaces the scenes of an episode or act. Missing ids are
// minted and scenes are numbered by position.
func (d *Document) SetScenes(itemID string, scenes []Scene) error {
	return d.mutate(func(p *Project) error {
		it, err := p.findItem(itemID)
		if err != nil {
			return err
		}
		if err := it.checkUnlocked(); err != nil {
			return err
		}
		if *it.summariesLocked {
			return fmt.Errorf("%w: scene summaries of %s", ErrLocked, itemID)
		}
		out := make([]Scene, len(scenes))
		for i, sc := range scenes {
			if sc.ID == "" {
				sc.ID = uuid.NewString()
			}
			if sc.Content == nil {
				sc.Content = []ScreenplayItem{}
			}
			sc.SceneNumber = i + 1
			out[i] = sc
		}
		*it.scenes = out
		return nil
	})
}

// UpdateSceneSummary edits one scene summary.
func (d *Document) UpdateSceneSummary(itemID, sceneID, summary string) error {
	return d.mutate(func(p *Project) error {
		it, sc, err := p.findItemScene(itemID, sceneID)
		if err != nil {
			return err
		}
		if err := it.checkUnlocked(); err != nil {
			return err
		}
		if *it.summariesLocked {
			return fmt.Errorf("%w: scene summaries of %s", ErrLocked, itemID)
		}
		sc.Summary = summary
		return nil
	})
}

// LockSceneSummaries locks an item's scene list. Every scene must have a
// non-empty summary.
func (d *Document) LockSceneSummaries(itemID string) error {
	return d.mutate(func(p *Project) error {
		it, err := p.findItem(itemID)
		if err != nil {
			return err
		}
		if err := it.checkUnlocked(); err != nil {
			return err
		}
		if len(*it.scenes) == 0 {
			return fmt.Errorf("%w: %s has no scenes", ErrIncomplete, itemID)
		}
		for _, sc := range *it.scenes {
			if strings.TrimSpace(sc.Summary) == "" {
				return fmt.Errorf("%w: scene %d of %s has no summary", ErrIncomplete, sc.SceneNumber, itemID)
			}
		}
		*it.summariesLocked = true
		return nil
	})
}

// ToggleSceneContentLock flips a scene's content lock and returns the new state.
func (d *Document) ToggleSceneContentLock(itemID, sceneID string) (bool, error) {
	var locked bool
	err := d.mutate(func(p *Project) error {
		_, sc, err := p.findItemScene(itemID, sceneID)
		if err != nil {
			return err
		}
		sc.IsContentLocked = !sc.IsContentLocked
		locked = sc.IsContentLocked
		return nil
	})
	return locked, err
}

// SetScreenplays writes generated screenplays into an item's scenes. Scenes
// not listed are left alone. No scene is written if any listed scene is
// content-locked.
func (d *Document) SetScreenplays(itemID string, screenplays []SceneScreenplay) error {
	return d.mutate(func(p *Project) error {
		it, err := p.findItem(itemID)
		if err != nil {
			return err
		}
		if err := it.checkUnlocked(); err != nil {
			return err
		}
		byScene := make(map[string][]ScreenplayItem, len(screenplays))
		for _, sp := range screenplays {
			byScene[sp.SceneID] = sp.Screenplay
		}
		scenes := *it.scenes
		for _, sc := range scenes {
			if _, ok := byScene[sc.ID]; ok && sc.IsContentLocked {
				return fmt.Errorf("%w: scene %s", ErrLocked, sc.ID)
			}
		}
		for i := range scenes {
			if content, ok := byScene[scenes[i].ID]; ok {
				scenes[i].Content = content
			}
		}
		return nil
	})
}

// ApproveScreenplay marks an item's screenplay approved.
func (d *Document) ApproveScreenplay(itemID string) error {
	return d.mutate(func(p *Project) error {
		it, err := p.findItem(itemID)
		if err != nil {
			return err
		}
		if err := it.checkUnlocked(); err != nil {
			return err
		}
		*it.approved = true
		return nil
	})
}

func (p *Project) editableScene(itemID, sceneID string) (*Scene, error) {
	it, sc, err := p.findItemScene(itemID, sceneID)
	if err != nil {
		return nil, err
	}
	if err := it.checkUnlocked(); err != nil {
		return nil, err
	}
	if sc.IsContentLocked {
		return nil, fmt.Errorf("%w: scene %s", ErrLocked, sceneID)
	}
	return sc, nil
}

func validLineType(t string) bool {
	switch t {
	case LineAction, LineCharacter, LineDialogue, LineParenthetical:
		return true
	}
	return false
}

// AddScreenplayLine inserts an empty line of lineType after index. An index
// of -1 inserts at the top.
func (d *Document) AddScreenplayLine(itemID, sceneID string, index int, lineType string) error {
	if !validLineType(lineType) {
		return fmt.Errorf("project: unknown screenplay line type %q", lineType)
	}
	return d.mutate(func(p *Project) error {
		sc, err := p.editableScene(itemID, sceneID)
		if err != nil {
			return err
		}
		at := index + 1
		if at < 0 || at > len(sc.Content) {
			return fmt.Errorf("%w: line %d of scene %s", ErrNotFound, index, sceneID)
		}
		content := make([]ScreenplayItem, 0, len(sc.Content)+1)
		content = append(content, sc.Content[:at]...)
		content = append(content, ScreenplayItem{Type: lineType})
		content = append(content, sc.Content[at:]...)
		sc.Content = content
		return nil
	})
}

// UpdateScreenplayLine replaces the text of one line.
func (d *Document) UpdateScreenplayLine(itemID, sceneID string, index int, text string) error {
	return d.mutate(func(p *Project) error {
		sc, err := p.editableScene(itemID, sceneID)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(sc.Content) {
			return fmt.Errorf("%w: line %d of scene %s", ErrNotFound, index, sceneID)
		}
		sc.Content[index].Text = text
		return nil
	})
}

// DeleteScreenplayLine removes one line.
func (d *Document) DeleteScreenplayLine(itemID, sceneID string, index int) error {
	return d.mutate(func(p *Project) error {
		sc, err := p.editableScene(itemID, sceneID)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(sc.Content) {
			return fmt.Errorf("%w: line %d of scene %s", ErrNotFound, index, sceneID)
		}
		content := make([]ScreenplayItem, 0, len(sc.Content)-1)
		content = append(content, sc.Content[:index]...)
		content = append(content, sc.Content[index+1:]...)
		sc.Content = content
		return nil
	})
}

package director

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/zulandar/showrunner/internal/project"
)

// GenerateSynopsis writes a synopsis from the project setup.
func (d *Director) GenerateSynopsis(ctx context.Context) (string, error) {
	p, err := d.snapshot()
	if err != nil {
		return "", err
	}
	var out struct {
		Synopsis string `json:"synopsis"`
	}
	if err := d.generateJSON(ctx, synopsisPrompt(p), 0, &out); err != nil {
		return "", err
	}
	if err := d.doc.UpdateSynopsis(out.Synopsis); err != nil {
		return "", err
	}
	return out.Synopsis, nil
}

type generatedItem struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// GenerateStructure replaces the script with a generated first season or
// part built from the synopsis. Returns the number of items created.
func (d *Director) GenerateStructure(ctx context.Context) (int, error) {
	p, err := d.snapshot()
	if err != nil {
		return 0, err
	}
	var out struct {
		Items []generatedItem `json:"items"`
	}
	if err := d.generateJSON(ctx, structurePrompt(p), 0, &out); err != nil {
		return 0, err
	}

	if p.Episodic() {
		episodes := make([]project.Episode, len(out.Items))
		for i, it := range out.Items {
			episodes[i] = project.Episode{
				ID: uuid.NewString(), EpisodeNumber: i + 1, Title: it.Title, Logline: it.Summary,
				Scenes: []project.Scene{},
			}
		}
		return len(episodes), d.doc.SetGeneratedEpisodes(episodes)
	}
	acts := make([]project.Act, len(out.Items))
	for i, it := range out.Items {
		acts[i] = project.Act{
			ID: uuid.NewString(), ActNumber: i + 1, Title: it.Title, Summary: it.Summary,
			Scenes: []project.Scene{},
		}
	}
	return len(acts), d.doc.SetGeneratedActs(acts)
}

// GenerateSceneSummaries outlines the scenes of an episode or act.
func (d *Director) GenerateSceneSummaries(ctx context.Context, itemID string) ([]project.Scene, error) {
	p, err := d.snapshot()
	if err != nil {
		return nil, err
	}
	it, err := p.Item(itemID)
	if err != nil {
		return nil, err
	}
	var out struct {
		Scenes []struct {
			Setting string `json:"setting"`
			Summary string `json:"summary"`
		} `json:"scenes"`
	}
	if err := d.generateJSON(ctx, sceneSummariesPrompt(p, it), 0, &out); err != nil {
		return nil, err
	}
	scenes := make([]project.Scene, len(out.Scenes))
	for i, s := range out.Scenes {
		scenes[i] = project.Scene{Setting: s.Setting, Summary: s.Summary}
	}
	if err := d.doc.SetScenes(itemID, scenes); err != nil {
		return nil, err
	}
	return scenes, nil
}

// GenerateScreenplay writes screenplay content for the unlocked scenes of an
// item. Scene summaries must be locked first.
func (d *Director) GenerateScreenplay(ctx context.Context, itemID string) (int, error) {
	p, err := d.snapshot()
	if err != nil {
		return 0, err
	}
	it, err := p.Item(itemID)
	if err != nil {
		return 0, err
	}
	var targets []project.Scene
	for _, sc := range it.Scenes {
		if !sc.IsContentLocked {
			targets = append(targets, sc)
		}
	}
	if len(targets) == 0 {
		return 0, nil
	}

	var out struct {
		Scenes []project.SceneScreenplay `json:"scenes"`
	}
	if err := d.generateJSON(ctx, screenplayPrompt(p, it, targets), 0, &out); err != nil {
		return 0, err
	}
	known := make(map[string]bool, len(targets))
	for _, sc := range targets {
		known[sc.ID] = true
	}
	var keep []project.SceneScreenplay
	for _, s := range out.Scenes {
		if known[s.SceneID] {
			for i := range s.Screenplay {
				s.Screenplay[i].Type = strings.ToLower(s.Screenplay[i].Type)
			}
			keep = append(keep, s)
		}
	}
	if err := d.doc.SetScreenplays(itemID, keep); err != nil {
		return 0, err
	}
	return len(keep), nil
}

// GenerateContinuityBrief summarizes an installment for the next one.
func (d *Director) GenerateContinuityBrief(ctx context.Context, installmentID string) (*project.ContinuityBrief, error) {
	p, err := d.snapshot()
	if err != nil {
		return nil, err
	}
	inst, err := p.Installment(installmentID)
	if err != nil {
		return nil, err
	}
	var out struct {
		Summary              string   `json:"summary"`
		CharacterResolutions []string `json:"characterResolutions"`
		WorldStateChanges    []string `json:"worldStateChanges"`
		LingeringHooks       []string `json:"lingeringHooks"`
	}
	if err := d.generateJSON(ctx, briefPrompt(p, inst), 0, &out); err != nil {
		return nil, err
	}

	var brief project.ContinuityBrief
	err = d.doc.UpdateContinuityBrief(installmentID, func(b *project.ContinuityBrief) {
		b.Summary = out.Summary
		b.CharacterResolutions = nonNil(out.CharacterResolutions)
		b.WorldStateChanges = nonNil(out.WorldStateChanges)
		b.LingeringHooks = nonNil(out.LingeringHooks)
		b.GeneratedAt = d.now().UnixMilli()
		brief = *b
	})
	if err != nil {
		return nil, err
	}
	return &brief, nil
}

// GenerateCharacterProfile fills in a character's full profile. Images and
// the name already on the character are kept.
func (d *Director) GenerateCharacterProfile(ctx context.Context, characterID string) error {
	p, err := d.snapshot()
	if err != nil {
		return err
	}
	a, ok := p.Bible.Find(project.KindCharacter, characterID)
	if !ok {
		return fmt.Errorf("%w: character %s", project.ErrNotFound, characterID)
	}
	char := *a.(*project.Character)

	var profile project.CharacterProfile
	if err := d.generateJSON(ctx, characterPrompt(p, char), 8192, &profile); err != nil {
		return err
	}
	profile.Name = char.Profile.Name
	profile.ImageSet = char.Profile.ImageSet
	return d.doc.PopulateCharacterProfile(characterID, profile)
}

// AppendItem adds an episode or act to an installment once the previous
// item has a complete screenplay.
func (d *Director) AppendItem(installmentID, title, summary string) (string, error) {
	var gate error
	var episodic bool
	err := d.doc.View(func(p *project.Project) {
		gate = p.CanAppendItem(installmentID)
		episodic = p.Episodic()
	})
	if err != nil {
		return "", err
	}
	if gate != nil {
		return "", gate
	}
	if episodic {
		return d.doc.AddEpisode(installmentID, title, summary)
	}
	return d.doc.AddAct(installmentID, title, summary)
}

// BeginInstallment starts a new season or part once the previous one has a
// continuity brief.
func (d *Director) BeginInstallment() (string, error) {
	var gate error
	var episodic bool
	err := d.doc.View(func(p *project.Project) {
		gate = p.CanBeginInstallment()
		episodic = p.Episodic()
	})
	if err != nil {
		return "", err
	}
	if gate != nil {
		return "", gate
	}
	if episodic {
		return d.doc.AddSeason()
	}
	return d.doc.AddSequel()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

package director

import (
	"fmt"
	"strings"

	"github.com/zulandar/showrunner/internal/project"
)

// projectContext renders the project header every prompt starts with.
func projectContext(p *project.Project) string {
	var b strings.Builder
	b.WriteString("PROJECT CONTEXT\n")
	fmt.Fprintf(&b, "Title: %s\n", p.Metadata.Name)
	fmt.Fprintf(&b, "Format: %s (%s mins)\n", p.Format.Type, p.Format.Duration)
	fmt.Fprintf(&b, "Genre: %s (secondary: %s)\n", p.Style.Genre, p.Style.SecondaryGenre)
	fmt.Fprintf(&b, "Audience: %s\n", p.Style.Audience)
	fmt.Fprintf(&b, "Visual style: %s mixed with %s\n", p.Style.Primary, p.Style.Secondary)
	if p.Style.Custom != "" {
		fmt.Fprintf(&b, "Style notes: %s\n", p.Style.Custom)
	}
	fmt.Fprintf(&b, "Aspect ratio: %s\n", p.Format.AspectRatio)
	fmt.Fprintf(&b, "Logline: %s\n", p.Logline)
	fmt.Fprintf(&b, "Language: %s\n", language(p))
	b.WriteString("Everything you write must stay consistent with this context.\n")
	return b.String()
}

func language(p *project.Project) string {
	if p.Style.Language == "" {
		return "English"
	}
	return p.Style.Language
}

// sceneScript renders screenplay lines as [TYPE] text.
func sceneScript(sc project.Scene) string {
	lines := make([]string, 0, len(sc.Content))
	for _, l := range sc.Content {
		lines = append(lines, fmt.Sprintf("[%s] %s", strings.ToUpper(l.Type), l.Text))
	}
	return strings.Join(lines, "\n")
}

func assetNames(p *project.Project, kind project.Kind) []string {
	var names []string
	for _, a := range p.Bible.Assets() {
		if a.Kind() == kind {
			names = append(names, a.AssetName())
		}
	}
	return names
}

func synopsisPrompt(p *project.Project) string {
	return projectContext(p) + fmt.Sprintf(`
Write a synopsis for this project in %s, three to five paragraphs.
Supporting material:
%s

Return JSON: {"synopsis": string}.`, language(p), p.SupportingText)
}

func structurePrompt(p *project.Project) string {
	unit, count := "episodes", p.Format.EpisodeCount
	if !p.Episodic() {
		unit = "acts"
	}
	if count <= 0 {
		count = 3
	}
	return projectContext(p) + fmt.Sprintf(`
Synopsis:
%s

Break the story into %d %s. Give each a title and a one or two sentence summary in %s.

Return JSON: {"items": [{"title": string, "summary": string}]}.`, p.Bible.Synopsis, count, unit, language(p))
}

func sceneSummariesPrompt(p *project.Project, it project.ItemInfo) string {
	return projectContext(p) + fmt.Sprintf(`
Synopsis:
%s

Outline the scenes of "%s": %s
For each scene give the setting (INT./EXT. line) and a short summary in %s.

Return JSON: {"scenes": [{"setting": string, "summary": string}]}.`, p.Bible.Synopsis, it.Title, it.Summary, language(p))
}

func screenplayPrompt(p *project.Project, it project.ItemInfo, scenes []project.Scene) string {
	var b strings.Builder
	b.WriteString(projectContext(p))
	fmt.Fprintf(&b, "\nWrite the screenplay for \"%s\" in %s.\n", it.Title, language(p))
	for _, sc := range scenes {
		fmt.Fprintf(&b, "\nSCENE ID: %q\nSETTING: %s\nSUMMARY: %s\n", sc.ID, sc.Setting, sc.Summary)
	}
	b.WriteString(`
Line types: action, character, parenthetical, dialogue.
Use the exact scene ids above.

Return JSON: {"scenes": [{"sceneId": string, "screenplay": [{"type": string, "text": string}]}]}.`)
	return b.String()
}

func analysisPrompt(p *project.Project, scenes []project.Scene) string {
	var b strings.Builder
	b.WriteString(projectContext(p))
	b.WriteString("\nExtract the characters, locations and props of these scenes.\n")
	for _, sc := range scenes {
		fmt.Fprintf(&b, "\n--- SCENE %q ---\nSUMMARY: %s\nSCRIPT:\n%s\n", sc.ID, sc.Summary, sceneScript(sc))
	}
	fmt.Fprintf(&b, `
Known characters: [%s]
Known locations: [%s]
Known props: [%s]

Rules:
- Reuse the exact known name when the script refers to a known asset, even with a spelling variation or possessive.
- An entity is either a location or a prop, never both.
- New characters get a first name and surname.
- sceneId must be the exact id given above.
- Record how assets change during a scene as assetStateChanges; changes maps profile keys to their new values.
- Write reasoning in %s.

Return JSON with identifiedCharacters, identifiedLocations, identifiedProps, sceneAssetMapping and assetStateChanges.`,
		strings.Join(assetNames(p, project.KindCharacter), ", "),
		strings.Join(assetNames(p, project.KindLocation), ", "),
		strings.Join(assetNames(p, project.KindProp), ", "),
		language(p))
	return b.String()
}

func briefPrompt(p *project.Project, inst project.InstallmentInfo) string {
	var b strings.Builder
	b.WriteString(projectContext(p))
	fmt.Fprintf(&b, "\nSummarize where \"%s\" leaves the story so the next installment can pick it up.\n", inst.Title)
	for _, it := range inst.Items {
		fmt.Fprintf(&b, "\n%d. %s: %s\n", it.Number, it.Title, it.Summary)
		for _, sc := range it.Scenes {
			fmt.Fprintf(&b, "  - %s\n", sc.Summary)
		}
	}
	fmt.Fprintf(&b, `
Write in %s.

Return JSON: {"summary": string, "characterResolutions": [string], "worldStateChanges": [string], "lingeringHooks": [string]}.`, language(p))
	return b.String()
}

func characterPrompt(p *project.Project, c project.Character) string {
	appearances := p.FindScenesWithAsset(project.KindCharacter, c.Profile.Name)
	var scenes []string
	for _, ref := range appearances {
		if sc, ok := p.FindScene(ref.SceneID); ok {
			scenes = append(scenes, fmt.Sprintf("%s: %s", ref.Code, sc.Summary))
		}
	}
	return projectContext(p) + fmt.Sprintf(`
Synopsis:
%s

Build a full character profile for %s.
Scenes they appear in:
%s

Return the profile as JSON using the keys name, coreIdentity, persona, vocationalProfile, visualDna, outfitMatrix, vocalProfile, catchphrases, additionalNotes. Write in %s.`,
		p.Bible.Synopsis, c.Profile.Name, strings.Join(scenes, "\n"), language(p))
}

func shotListPrompt(p *project.Project, sc project.Scene) string {
	var names []string
	for _, a := range p.Bible.Assets() {
		names = append(names, a.AssetName())
	}
	return projectContext(p) + fmt.Sprintf(`
Create a cinematic shot list for this scene.

SETTING: %s
SUMMARY: %s
SCRIPT:
%s

Available assets: %s

- Break the scene into shots of roughly 5 to 15 seconds.
- Refer to characters as "Firstname Surname (one distinctive feature)".
- keyAssets lists the exact names of available assets visible in the shot.
- Write descriptions in %s.

Return JSON: {"shots": [{"description": string, "keyAssets": [string]}]}.`,
		sc.Setting, sc.Summary, sceneScript(sc), strings.Join(names, ", "), language(p))
}

// assetImagePrompt is the prompt used when an asset has no visual prompt.
func assetImagePrompt(a project.Asset) string {
	switch v := a.(type) {
	case *project.Character:
		if v.Profile.VisualPrompt != "" {
			return v.Profile.VisualPrompt
		}
	case *project.Location:
		if v.BaseProfile.Visuals.VisualPrompt != "" {
			return v.BaseProfile.Visuals.VisualPrompt
		}
	case *project.Prop:
		if v.BaseProfile.Visuals.VisualPrompt != "" {
			return v.BaseProfile.Visuals.VisualPrompt
		}
	}
	return fmt.Sprintf("Generate a cinematic concept art for: %s. Aspect Ratio 16:9.", a.AssetName())
}

package project

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type episodicFixture struct {
	doc      *Document
	seasonID string
	episodes []string
	scenes   map[string][]string // episode id -> scene ids
}

// newEpisodic builds a season with the given number of scenes per episode.
func newEpisodic(t *testing.T, scenesPerEpisode ...int) episodicFixture {
	t.Helper()
	p, err := New(NewParams{Name: "Pilot", Format: Format{Type: FormatEpisodic}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f := episodicFixture{doc: NewDocument(p), scenes: map[string][]string{}}
	f.seasonID, err = f.doc.AddSeason()
	if err != nil {
		t.Fatalf("AddSeason: %v", err)
	}
	for i, n := range scenesPerEpisode {
		epID, err := f.doc.AddEpisode(f.seasonID, "Episode", "")
		if err != nil {
			t.Fatalf("AddEpisode %d: %v", i+1, err)
		}
		f.episodes = append(f.episodes, epID)
		scenes := make([]Scene, n)
		for j := range scenes {
			scenes[j] = Scene{Summary: "summary"}
		}
		if err := f.doc.SetScenes(epID, scenes); err != nil {
			t.Fatalf("SetScenes: %v", err)
		}
		f.doc.View(func(p *Project) {
			for _, sc := range p.Script.Seasons[0].Episodes[i].Scenes {
				f.scenes[epID] = append(f.scenes[epID], sc.ID)
			}
		})
	}
	return f
}

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		format      FormatType
		wantSeasons bool
	}{
		{"episodic", FormatEpisodic, true},
		{"single story", FormatSingleStory, false},
		{"default", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(NewParams{Name: "Show", Format: Format{Type: tt.format}})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if (p.Script.Seasons != nil) != tt.wantSeasons {
				t.Errorf("Seasons = %v, want present=%v", p.Script.Seasons, tt.wantSeasons)
			}
			if (p.Script.Sequels != nil) == tt.wantSeasons {
				t.Errorf("Sequels = %v, want present=%v", p.Script.Sequels, !tt.wantSeasons)
			}
			if p.Metadata.ID == "" || p.Metadata.Author != "User" {
				t.Errorf("Metadata = %+v", p.Metadata)
			}
		})
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(NewParams{}); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := New(NewParams{Name: "x", Format: Format{Type: "SERIAL"}}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestDocument_NoProject(t *testing.T) {
	d := NewDocument(nil)
	if err := d.Rename("x"); !errors.Is(err, ErrNoProject) {
		t.Errorf("Rename error = %v, want ErrNoProject", err)
	}
	if _, err := d.Snapshot(); !errors.Is(err, ErrNoProject) {
		t.Errorf("Snapshot error = %v, want ErrNoProject", err)
	}
}

func TestDocument_ChangeHook(t *testing.T) {
	f := newEpisodic(t)
	calls := 0
	f.doc.OnChange(func() { calls++ })

	if err := f.doc.Rename("Second Draft"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if err := f.doc.DeleteSeason("missing"); err == nil {
		t.Fatal("expected error for missing season")
	}
	if calls != 1 {
		t.Errorf("hook calls = %d, want 1", calls)
	}
}

func TestDocument_SnapshotRoundTrip(t *testing.T) {
	f := newEpisodic(t, 2)
	data, err := f.doc.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	p, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(p.Script.Seasons) != 1 || len(p.Script.Seasons[0].Episodes[0].Scenes) != 2 {
		t.Errorf("decoded script = %+v", p.Script)
	}
}

func TestDeleteEpisode_Renumbers(t *testing.T) {
	f := newEpisodic(t, 0, 0, 0, 0)
	before := f.episodes

	if err := f.doc.DeleteEpisode(f.seasonID, before[1]); err != nil {
		t.Fatalf("DeleteEpisode: %v", err)
	}

	f.doc.View(func(p *Project) {
		eps := p.Script.Seasons[0].Episodes
		if len(eps) != 3 {
			t.Fatalf("episodes = %d, want 3", len(eps))
		}
		wantIDs := []string{before[0], before[2], before[3]}
		for i, e := range eps {
			if e.EpisodeNumber != i+1 {
				t.Errorf("episode %d number = %d, want %d", i, e.EpisodeNumber, i+1)
			}
			if e.ID != wantIDs[i] {
				t.Errorf("episode %d id = %s, want %s", i, e.ID, wantIDs[i])
			}
		}
	})
}

func TestDeleteSeason_RenumbersAndRetitles(t *testing.T) {
	f := newEpisodic(t)
	second, _ := f.doc.AddSeason()
	third, _ := f.doc.AddSeason()

	if err := f.doc.DeleteSeason(f.seasonID); err != nil {
		t.Fatalf("DeleteSeason: %v", err)
	}
	f.doc.View(func(p *Project) {
		s := p.Script.Seasons
		if len(s) != 2 || s[0].ID != second || s[1].ID != third {
			t.Fatalf("seasons = %+v", s)
		}
		if s[0].SeasonNumber != 1 || s[0].Title != "Season 1" || s[1].Title != "Season 2" {
			t.Errorf("renumbered = %d %q, %d %q", s[0].SeasonNumber, s[0].Title, s[1].SeasonNumber, s[1].Title)
		}
	})
}

func TestSequels(t *testing.T) {
	p, _ := New(NewParams{Name: "Film", Format: Format{Type: FormatSingleStory}})
	d := NewDocument(p)

	if _, err := d.AddSeason(); !errors.Is(err, ErrWrongFormat) {
		t.Errorf("AddSeason on single story error = %v, want ErrWrongFormat", err)
	}
	first, _ := d.AddSequel()
	second, _ := d.AddSequel()
	a1, _ := d.AddAct(second, "Setup", "")
	a2, _ := d.AddAct(second, "Confrontation", "")
	a3, _ := d.AddAct(second, "Resolution", "")

	if err := d.DeleteAct(second, a1); err != nil {
		t.Fatalf("DeleteAct: %v", err)
	}
	if err := d.DeleteSequel(first); err != nil {
		t.Fatalf("DeleteSequel: %v", err)
	}
	d.View(func(p *Project) {
		s := p.Script.Sequels
		if len(s) != 1 || s[0].PartNumber != 1 || s[0].Title != "Part 1" {
			t.Fatalf("sequels = %+v", s)
		}
		acts := s[0].Acts
		if len(acts) != 2 || acts[0].ID != a2 || acts[1].ID != a3 || acts[0].ActNumber != 1 || acts[1].ActNumber != 2 {
			t.Errorf("acts = %+v", acts)
		}
	})
}

func TestInstallmentLock_RejectsMutations(t *testing.T) {
	f := newEpisodic(t, 1)
	ep := f.episodes[0]
	sc := f.scenes[ep][0]

	locked, err := f.doc.ToggleInstallmentLock(f.seasonID)
	if err != nil || !locked {
		t.Fatalf("ToggleInstallmentLock = %v, %v", locked, err)
	}

	checks := map[string]error{
		"AddEpisode":         func() error { _, err := f.doc.AddEpisode(f.seasonID, "x", ""); return err }(),
		"DeleteEpisode":      f.doc.DeleteEpisode(f.seasonID, ep),
		"DeleteSeason":       f.doc.DeleteSeason(f.seasonID),
		"UpdateEpisode":      f.doc.UpdateEpisode(ep, func(e *Episode) { e.Title = "x" }),
		"SetScenes":          f.doc.SetScenes(ep, nil),
		"UpdateSceneSummary": f.doc.UpdateSceneSummary(ep, sc, "x"),
		"AddScreenplayLine":  f.doc.AddScreenplayLine(ep, sc, -1, LineAction),
		"ApproveScreenplay":  f.doc.ApproveScreenplay(ep),
		"ReplaceScript":      f.doc.ReplaceScript(Script{}),
	}
	for name, err := range checks {
		if !errors.Is(err, ErrLocked) {
			t.Errorf("%s error = %v, want ErrLocked", name, err)
		}
	}

	f.doc.View(func(p *Project) {
		if len(p.Script.Seasons) != 1 || len(p.Script.Seasons[0].Episodes) != 1 {
			t.Errorf("locked script changed: %+v", p.Script)
		}
	})

	if locked, _ := f.doc.ToggleInstallmentLock(f.seasonID); locked {
		t.Fatal("second toggle should unlock")
	}
	if err := f.doc.UpdateSceneSummary(ep, sc, "after unlock"); err != nil {
		t.Errorf("UpdateSceneSummary after unlock: %v", err)
	}
}

func TestSceneContentLock(t *testing.T) {
	f := newEpisodic(t, 1)
	ep := f.episodes[0]
	sc := f.scenes[ep][0]

	if err := f.doc.AddScreenplayLine(ep, sc, -1, LineAction); err != nil {
		t.Fatalf("AddScreenplayLine: %v", err)
	}
	if locked, err := f.doc.ToggleSceneContentLock(ep, sc); err != nil || !locked {
		t.Fatalf("ToggleSceneContentLock = %v, %v", locked, err)
	}
	if err := f.doc.UpdateScreenplayLine(ep, sc, 0, "x"); !errors.Is(err, ErrLocked) {
		t.Errorf("UpdateScreenplayLine error = %v, want ErrLocked", err)
	}
	err := f.doc.SetScreenplays(ep, []SceneScreenplay{{SceneID: sc, Screenplay: []ScreenplayItem{{Type: LineAction, Text: "x"}}}})
	if !errors.Is(err, ErrLocked) {
		t.Errorf("SetScreenplays error = %v, want ErrLocked", err)
	}
}

func TestScreenplayLines(t *testing.T) {
	f := newEpisodic(t, 1)
	ep := f.episodes[0]
	sc := f.scenes[ep][0]

	err := f.doc.SetScreenplays(ep, []SceneScreenplay{{SceneID: sc, Screenplay: []ScreenplayItem{
		{Type: LineAction, Text: "A door opens."},
		{Type: LineCharacter, Text: "MIRA"},
	}}})
	if err != nil {
		t.Fatalf("SetScreenplays: %v", err)
	}
	if err := f.doc.AddScreenplayLine(ep, sc, 1, LineDialogue); err != nil {
		t.Fatalf("AddScreenplayLine: %v", err)
	}
	if err := f.doc.UpdateScreenplayLine(ep, sc, 2, "Who's there?"); err != nil {
		t.Fatalf("UpdateScreenplayLine: %v", err)
	}
	if err := f.doc.DeleteScreenplayLine(ep, sc, 0); err != nil {
		t.Fatalf("DeleteScreenplayLine: %v", err)
	}
	if err := f.doc.UpdateScreenplayLine(ep, sc, 9, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("out of range error = %v, want ErrNotFound", err)
	}
	if err := f.doc.AddScreenplayLine(ep, sc, 0, "song"); err == nil {
		t.Error("expected error for unknown line type")
	}

	f.doc.View(func(p *Project) {
		got, _ := p.FindScene(sc)
		want := []ScreenplayItem{
			{Type: LineCharacter, Text: "MIRA"},
			{Type: LineDialogue, Text: "Who's there?"},
		}
		if len(got.Content) != len(want) {
			t.Fatalf("content = %+v", got.Content)
		}
		for i := range want {
			if got.Content[i] != want[i] {
				t.Errorf("line %d = %+v, want %+v", i, got.Content[i], want[i])
			}
		}
	})
}

func TestLockSceneSummaries(t *testing.T) {
	f := newEpisodic(t, 2)
	ep := f.episodes[0]
	scenes := f.scenes[ep]

	if err := f.doc.UpdateSceneSummary(ep, scenes[1], "  "); err != nil {
		t.Fatalf("UpdateSceneSummary: %v", err)
	}
	if err := f.doc.LockSceneSummaries(ep); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("LockSceneSummaries error = %v, want ErrIncomplete", err)
	}
	if err := f.doc.UpdateSceneSummary(ep, scenes[1], "The chase."); err != nil {
		t.Fatalf("UpdateSceneSummary: %v", err)
	}
	if err := f.doc.LockSceneSummaries(ep); err != nil {
		t.Fatalf("LockSceneSummaries: %v", err)
	}
	if err := f.doc.UpdateSceneSummary(ep, scenes[0], "x"); !errors.Is(err, ErrLocked) {
		t.Errorf("UpdateSceneSummary after lock error = %v, want ErrLocked", err)
	}
	if err := f.doc.SetScenes(ep, nil); !errors.Is(err, ErrLocked) {
		t.Errorf("SetScenes after lock error = %v, want ErrLocked", err)
	}
}

func TestSetGeneratedEpisodes(t *testing.T) {
	f := newEpisodic(t)
	if err := f.doc.UpdateSynopsis("A city floods."); err != nil {
		t.Fatalf("UpdateSynopsis: %v", err)
	}
	err := f.doc.SetGeneratedEpisodes([]Episode{{ID: "e1", EpisodeNumber: 1, Title: "Rain"}})
	if err != nil {
		t.Fatalf("SetGeneratedEpisodes: %v", err)
	}
	f.doc.View(func(p *Project) {
		s := p.Script.Seasons
		if len(s) != 1 || s[0].Title != "Season 1" || s[0].Logline != "A city floods." || s[0].Episodes[0].ID != "e1" {
			t.Errorf("script = %+v", p.Script)
		}
	})
	if err := f.doc.SetGeneratedActs(nil); !errors.Is(err, ErrWrongFormat) {
		t.Errorf("SetGeneratedActs error = %v, want ErrWrongFormat", err)
	}
}

func TestUpdateContinuityBrief_CreatesDefault(t *testing.T) {
	f := newEpisodic(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.doc.now = func() time.Time { return fixed }
	err := f.doc.UpdateContinuityBrief(f.seasonID, func(b *ContinuityBrief) {
		b.Summary = "Everyone survived."
	})
	if err != nil {
		t.Fatalf("UpdateContinuityBrief: %v", err)
	}
	f.doc.View(func(p *Project) {
		b := p.Script.Seasons[0].ContinuityBrief
		if b == nil || b.ID == "" || b.InstallmentID != f.seasonID || b.InstallmentTitle != "Season 1" {
			t.Fatalf("brief = %+v", b)
		}
		if b.Summary != "Everyone survived." || b.ProjectID != p.Metadata.ID {
			t.Errorf("brief = %+v", b)
		}
		if b.GeneratedAt != fixed.UnixMilli() {
			t.Errorf("GeneratedAt = %d, want %d", b.GeneratedAt, fixed.UnixMilli())
		}
	})
}

func TestShots(t *testing.T) {
	f := newEpisodic(t, 1)
	sc := f.scenes[f.episodes[0]][0]

	if _, err := f.doc.AddShot("nowhere"); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddShot missing scene error = %v, want ErrNotFound", err)
	}
	s1, err := f.doc.AddShot(sc)
	if err != nil {
		t.Fatalf("AddShot: %v", err)
	}
	if s1.Description != "New shot" || !s1.IsLocked || s1.Origin != OriginUser || s1.ShotNumber != 1 {
		t.Errorf("new shot = %+v", s1)
	}
	s2, _ := f.doc.AddShot(sc)
	s3, _ := f.doc.AddShot(sc)

	if err := f.doc.UpdateShot(sc, s3.ID, func(s *Shot) { s.CameraAngle = "low" }); err != nil {
		t.Fatalf("UpdateShot: %v", err)
	}
	if err := f.doc.DeleteShot(sc, s1.ID); err != nil {
		t.Fatalf("DeleteShot: %v", err)
	}
	f.doc.View(func(p *Project) {
		shots := p.Studio.ShotsByScene[sc]
		if len(shots) != 2 || shots[0].ID != s2.ID || shots[1].ID != s3.ID {
			t.Fatalf("shots = %+v", shots)
		}
		if shots[0].ShotNumber != 1 || shots[1].ShotNumber != 2 || shots[1].CameraAngle != "low" {
			t.Errorf("shots = %+v", shots)
		}
	})
}

func TestProfileExtraRoundTrip(t *testing.T) {
	in := `{"name":"Mira","hair":{"color":"red"},"coreIdentity":{"name":"Mira"}}`
	var p CharacterProfile
	if err := json.Unmarshal([]byte(in), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if p.Name != "Mira" || p.CoreIdentity.Name != "Mira" {
		t.Errorf("known fields = %q %q", p.Name, p.CoreIdentity.Name)
	}
	if string(p.Extra["hair"]) != `{"color":"red"}` {
		t.Errorf("Extra[hair] = %s", p.Extra["hair"])
	}
	if _, ok := p.Extra["name"]; ok {
		t.Error("known key leaked into Extra")
	}

	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if string(m["hair"]) != `{"color":"red"}` {
		t.Errorf("hair not written back: %s", out)
	}

	var plain CharacterProfile
	json.Unmarshal([]byte(`{"name":"Jon"}`), &plain)
	if plain.Extra != nil {
		t.Errorf("Extra = %v, want nil", plain.Extra)
	}
}

func TestMergeTop(t *testing.T) {
	base := DefaultLocationProfile("Docks")
	base.Narrative.Vibe = "grim"

	patch := map[string]json.RawMessage{
		"narrative": json.RawMessage(`{"description":"wet"}`),
		"weather":   json.RawMessage(`"storm"`),
	}
	got, err := MergeTop(base, patch)
	if err != nil {
		t.Fatalf("MergeTop: %v", err)
	}
	if got.Narrative.Description != "wet" || got.Narrative.Vibe != "" {
		t.Errorf("narrative = %+v, want whole-key replacement", got.Narrative)
	}
	if got.Identity.Name != "Docks" {
		t.Errorf("identity lost: %+v", got.Identity)
	}
	if string(got.Extra["weather"]) != `"storm"` {
		t.Errorf("Extra[weather] = %s", got.Extra["weather"])
	}
	if base.Narrative.Vibe != "grim" || base.Extra != nil {
		t.Error("base was modified")
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"character", KindCharacter},
		{"Characters", KindCharacter},
		{"location", KindLocation},
		{"props", KindProp},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseKind(%q) = %q, %v", tt.in, got, err)
		}
	}
	if _, err := ParseKind("vehicle"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

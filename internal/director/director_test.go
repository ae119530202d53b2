package director

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zulandar/showrunner/internal/blobstore"
	"github.com/zulandar/showrunner/internal/db"
	"github.com/zulandar/showrunner/internal/genai"
	"github.com/zulandar/showrunner/internal/project"
)

// fakeGenerator returns queued text responses in order and a fixed image.
type fakeGenerator struct {
	mu        sync.Mutex
	texts     []string
	prompts   []string
	image     []byte
	imageReqs []genai.ImageRequest
	// block, when set, makes GenerateImage wait for it or for ctx.
	block chan struct{}
	// textBlock does the same for GenerateText.
	textBlock chan struct{}
}

func (f *fakeGenerator) GenerateText(ctx context.Context, req genai.TextRequest) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, req.Prompt)
	block := f.textBlock
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return "", errors.New("no response queued")
	}
	text := f.texts[0]
	f.texts = f.texts[1:]
	return text, nil
}

func (f *fakeGenerator) GenerateImage(ctx context.Context, req genai.ImageRequest) ([]byte, error) {
	f.mu.Lock()
	f.imageReqs = append(f.imageReqs, req)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.image, nil
}

type fixture struct {
	dir      *Director
	doc      *project.Document
	gen      *fakeGenerator
	blobs    *blobstore.Store
	seasonID string
	episode  string
	scenes   []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb, err := db.OpenMigrated()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close(gdb) })

	p, err := project.New(project.NewParams{Name: "Harbor Lights", Format: project.Format{Type: project.FormatEpisodic, EpisodeCount: 2}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	doc := project.NewDocument(p)
	f := &fixture{doc: doc, gen: &fakeGenerator{image: []byte("rendered")}, blobs: blobstore.New(gdb)}
	f.dir = New(doc, f.gen, f.blobs, Options{})

	if f.seasonID, err = doc.AddSeason(); err != nil {
		t.Fatalf("AddSeason: %v", err)
	}
	if f.episode, err = doc.AddEpisode(f.seasonID, "Pilot", "The keeper returns."); err != nil {
		t.Fatalf("AddEpisode: %v", err)
	}
	if err := doc.SetScenes(f.episode, []project.Scene{{Summary: "Mira arrives"}, {Summary: "The storm"}}); err != nil {
		t.Fatalf("SetScenes: %v", err)
	}
	doc.View(func(p *project.Project) {
		for _, sc := range p.Script.Seasons[0].Episodes[0].Scenes {
			f.scenes = append(f.scenes, sc.ID)
		}
	})
	return f
}

func (f *fixture) queue(texts ...string) {
	f.gen.mu.Lock()
	f.gen.texts = append(f.gen.texts, texts...)
	f.gen.mu.Unlock()
}

func (f *fixture) project(t *testing.T) *project.Project {
	t.Helper()
	p, err := f.doc.Project()
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	return p
}

func TestGenerateShotList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	charID, err := f.doc.AddAsset(project.KindCharacter, "Mira Vance")
	if err != nil {
		t.Fatalf("AddAsset: %v", err)
	}
	portrait, _ := f.blobs.Put(ctx, []byte("portrait"))
	f.doc.UpdateCharacter(charID, func(c *project.Character) { c.Profile.GeneratedImageURL = portrait })
	f.doc.AddAsset(project.KindProp, "Lantern")

	f.queue(`{"shots":[{"description":"Wide on the pier","keyAssets":["mira vance","Lantern","Nobody"]},{"description":"Close on the lamp","keyAssets":[]}]}`)
	shots, err := f.dir.GenerateShotList(ctx, f.scenes[0])
	if err != nil {
		t.Fatalf("GenerateShotList: %v", err)
	}
	if len(shots) != 2 {
		t.Fatalf("shots = %d, want 2", len(shots))
	}
	for i, s := range shots {
		if s.ShotNumber != i+1 || !s.IsLocked || s.Origin != project.OriginAI {
			t.Errorf("shot %d = %+v", i, s)
		}
	}
	refs := shots[0].ReferenceImages
	if len(refs) != 1 || refs[0].URL != portrait || refs[0].SourceType != "character" || !refs[0].IsActive {
		t.Errorf("references = %+v, want only the character with an image", refs)
	}
	if got := f.project(t).Studio.ShotsByScene[f.scenes[0]]; len(got) != 2 {
		t.Errorf("stored shots = %d", len(got))
	}
}

func TestGenerateShotList_StaleResultDiscarded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gen.textBlock = make(chan struct{})
	f.queue(`{"shots":[{"description":"Latest wide","keyAssets":[]}]}`)

	firstErr := make(chan error, 1)
	go func() {
		_, err := f.dir.GenerateShotList(ctx, f.scenes[0])
		firstErr <- err
	}()
	deadline := time.Now().Add(2 * time.Second)
	for {
		f.gen.mu.Lock()
		n := len(f.gen.prompts)
		f.gen.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first request never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	f.gen.mu.Lock()
	f.gen.textBlock = nil
	f.gen.mu.Unlock()
	shots, err := f.dir.GenerateShotList(ctx, f.scenes[0])
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if err := <-firstErr; !errors.Is(err, ErrStale) {
		t.Errorf("first request err = %v, want ErrStale", err)
	}
	got := f.project(t).Studio.ShotsByScene[f.scenes[0]]
	if len(got) != 1 || got[0].ID != shots[0].ID || got[0].Description != "Latest wide" {
		t.Errorf("stored shots = %+v, want only the latest list", got)
	}
}

func TestGenerateShotList_UnknownScene(t *testing.T) {
	f := newFixture(t)
	if _, err := f.dir.GenerateShotList(context.Background(), "nope"); !errors.Is(err, project.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAnalyzeAssets(t *testing.T) {
	f := newFixture(t)
	resp := map[string]any{
		"identifiedCharacters": []any{map[string]any{"profile": map[string]any{"name": "Mira Vance"}, "consistencyMode": "STRICT"}},
		"identifiedLocations":  []any{map[string]any{"baseProfile": map[string]any{"identity": map[string]any{"name": "Pier"}}}},
		"identifiedProps":      []any{},
		"sceneAssetMapping": []any{
			map[string]any{"sceneId": f.scenes[0], "assets": map[string]any{"characters": []string{"Mira Vance"}, "locations": []string{"Pier"}}},
			map[string]any{"sceneId": f.scenes[1], "assets": map[string]any{"characters": []string{"mira vance"}}},
		},
		"assetStateChanges": []any{
			map[string]any{"assetType": "Characters", "assetName": "Mira Vance", "snapshot": map[string]any{"sceneId": f.scenes[1], "trigger": "storm", "changes": "Soaked to the bone"}},
			map[string]any{"assetType": "character", "assetName": "Mira Vance", "snapshot": map[string]any{"sceneId": f.scenes[1], "trigger": "rescue", "changes": `{"persona":{"mood":"shaken"}}`}},
			map[string]any{"assetType": "vehicle", "assetName": "Boat", "snapshot": map[string]any{"sceneId": f.scenes[1]}},
		},
	}
	raw, _ := json.Marshal(resp)
	f.queue(string(raw))

	sum, err := f.dir.AnalyzeAssets(context.Background(), f.episode)
	if err != nil {
		t.Fatalf("AnalyzeAssets: %v", err)
	}
	if sum.Added != 2 || sum.Snapshots != 2 || sum.Scenes != 2 {
		t.Errorf("summary = %+v", sum)
	}

	p := f.project(t)
	mira := p.Bible.Characters[0]
	if mira.Appearances != 2 {
		t.Errorf("appearances = %d, want 2", mira.Appearances)
	}
	if len(mira.Timeline) != 2 {
		t.Fatalf("timeline = %+v", mira.Timeline)
	}
	if got := string(mira.Timeline[0].Changes["description"]); got != `"Soaked to the bone"` {
		t.Errorf("free-text change = %s", got)
	}
	if _, ok := mira.Timeline[1].Changes["persona"]; !ok {
		t.Errorf("JSON string change not parsed: %+v", mira.Timeline[1].Changes)
	}
	if !strings.Contains(f.gen.prompts[0], f.scenes[0]) {
		t.Error("prompt does not carry the scene ids")
	}
}

func TestParseChanges(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		key  string
	}{
		{"object", `{"outfit":{"top":"coat"}}`, "outfit"},
		{"json string", `"{\"outfit\":1}"`, "outfit"},
		{"text", `"lost her hat"`, "description"},
		{"broken json string", `"{not json"`, "description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseChanges(json.RawMessage(tt.raw))
			if _, ok := got[tt.key]; !ok || len(got) != 1 {
				t.Errorf("parseChanges(%s) = %v, want key %q", tt.raw, got, tt.key)
			}
		})
	}
	if got := parseChanges(nil); len(got) != 0 {
		t.Errorf("empty changes = %v", got)
	}
}

func TestGenerateAssetImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	locID, _ := f.doc.AddAsset(project.KindLocation, "Pier")
	ref, _ := f.blobs.Put(ctx, []byte("sketch"))
	f.doc.UpdateLocation(locID, func(l *project.Location) {
		l.BaseProfile.Visuals.ReferenceImages = []string{ref, "https://example.com/x.png"}
		l.BaseProfile.Visuals.ImageHistory = []project.ImageEntry{{ID: "old", URL: ref}}
	})

	id, err := f.dir.GenerateAssetImage(ctx, project.KindLocation, locID, "")
	if err != nil {
		t.Fatalf("GenerateAssetImage: %v", err)
	}
	blob, found, _ := f.blobs.Get(ctx, id)
	if !found || string(blob.Data) != "rendered" {
		t.Fatalf("stored image missing or wrong")
	}

	vis := f.project(t).Bible.Locations[0].BaseProfile.Visuals
	if vis.GeneratedImageURL != id {
		t.Errorf("active image = %q, want %q", vis.GeneratedImageURL, id)
	}
	if len(vis.ImageHistory) != 2 || vis.ImageHistory[0].URL != id {
		t.Errorf("history = %+v, want new image first", vis.ImageHistory)
	}
	req := f.gen.imageReqs[0]
	if len(req.References) != 1 || string(req.References[0].Data) != "sketch" {
		t.Errorf("references = %+v", req.References)
	}
	if !strings.Contains(req.Prompt, "Pier") {
		t.Errorf("fallback prompt = %q", req.Prompt)
	}
}

func TestGenerateShotImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shot, err := f.doc.AddShot(f.scenes[0])
	if err != nil {
		t.Fatalf("AddShot: %v", err)
	}
	id, err := f.dir.GenerateShotImage(ctx, f.scenes[0], shot.ID)
	if err != nil {
		t.Fatalf("GenerateShotImage: %v", err)
	}
	got, _ := f.project(t).FindShot(f.scenes[0], shot.ID)
	if got.GeneratedImageURL != id || len(got.ImageHistory) != 1 {
		t.Errorf("shot = %+v", got)
	}
}

func TestGenerateShotImage_StaleResultDiscarded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shot, _ := f.doc.AddShot(f.scenes[0])
	f.gen.block = make(chan struct{})

	firstErr := make(chan error, 1)
	go func() {
		_, err := f.dir.GenerateShotImage(ctx, f.scenes[0], shot.ID)
		firstErr <- err
	}()
	// wait for the first request to reach the generator
	deadline := time.Now().Add(2 * time.Second)
	for {
		f.gen.mu.Lock()
		n := len(f.gen.imageReqs)
		f.gen.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first request never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	f.gen.mu.Lock()
	f.gen.block = nil
	f.gen.mu.Unlock()
	id, err := f.dir.GenerateShotImage(ctx, f.scenes[0], shot.ID)
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if err := <-firstErr; !errors.Is(err, ErrStale) {
		t.Errorf("first request err = %v, want ErrStale", err)
	}
	got, _ := f.project(t).FindShot(f.scenes[0], shot.ID)
	if got.GeneratedImageURL != id || len(got.ImageHistory) != 1 {
		t.Errorf("shot = %+v, want only the latest result", got)
	}
}

func TestWritingPipeline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.queue(`{"synopsis":"A keeper returns to a failing lighthouse."}`)
	if _, err := f.dir.GenerateSynopsis(ctx); err != nil {
		t.Fatalf("GenerateSynopsis: %v", err)
	}
	f.queue(`{"items":[{"title":"Return","summary":"She comes home."},{"title":"Storm","summary":"The light fails."}]}`)
	n, err := f.dir.GenerateStructure(ctx)
	if err != nil || n != 2 {
		t.Fatalf("GenerateStructure = %d, %v", n, err)
	}
	p := f.project(t)
	season := p.Script.Seasons[0]
	if season.Logline != "A keeper returns to a failing lighthouse." || len(season.Episodes) != 2 {
		t.Fatalf("season = %+v", season)
	}
	ep := season.Episodes[0].ID

	f.queue(`{"scenes":[{"setting":"EXT. PIER - NIGHT","summary":"Arrival"},{"setting":"INT. LAMP ROOM","summary":"Repair"}]}`)
	scenes, err := f.dir.GenerateSceneSummaries(ctx, ep)
	if err != nil || len(scenes) != 2 {
		t.Fatalf("GenerateSceneSummaries = %v, %v", scenes, err)
	}
	ids := []string{}
	for _, sc := range f.project(t).Script.Seasons[0].Episodes[0].Scenes {
		ids = append(ids, sc.ID)
	}

	resp, _ := json.Marshal(map[string]any{"scenes": []any{
		map[string]any{"sceneId": ids[0], "screenplay": []any{map[string]string{"type": "ACTION", "text": "Waves."}}},
		map[string]any{"sceneId": ids[1], "screenplay": []any{map[string]string{"type": "dialogue", "text": "Hold it."}}},
		map[string]any{"sceneId": "invented", "screenplay": []any{}},
	}})
	f.queue(string(resp))
	written, err := f.dir.GenerateScreenplay(ctx, ep)
	if err != nil || written != 2 {
		t.Fatalf("GenerateScreenplay = %d, %v", written, err)
	}
	first := f.project(t).Script.Seasons[0].Episodes[0].Scenes[0]
	if len(first.Content) != 1 || first.Content[0].Type != project.LineAction {
		t.Errorf("content = %+v", first.Content)
	}
}

func TestGates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// the fixture episode has scenes without screenplay content
	if _, err := f.dir.AppendItem(f.seasonID, "Next", ""); !errors.Is(err, project.ErrGate) {
		t.Errorf("AppendItem err = %v, want ErrGate", err)
	}
	for _, sc := range f.scenes {
		f.doc.AddScreenplayLine(f.episode, sc, -1, project.LineAction)
	}
	if _, err := f.dir.AppendItem(f.seasonID, "Next", ""); err != nil {
		t.Errorf("AppendItem after screenplay: %v", err)
	}

	if _, err := f.dir.BeginInstallment(); !errors.Is(err, project.ErrGate) {
		t.Errorf("BeginInstallment err = %v, want ErrGate", err)
	}
	f.queue(`{"summary":"Light restored.","lingeringHooks":["Who cut the cable?"]}`)
	brief, err := f.dir.GenerateContinuityBrief(ctx, f.seasonID)
	if err != nil {
		t.Fatalf("GenerateContinuityBrief: %v", err)
	}
	if brief.Summary != "Light restored." || len(brief.LingeringHooks) != 1 || brief.WorldStateChanges == nil {
		t.Errorf("brief = %+v", brief)
	}
	if _, err := f.dir.BeginInstallment(); err != nil {
		t.Errorf("BeginInstallment after brief: %v", err)
	}
	if got := len(f.project(t).Script.Seasons); got != 2 {
		t.Errorf("seasons = %d, want 2", got)
	}
}

func TestGenerateCharacterProfile_KeepsNameAndImages(t *testing.T) {
	f := newFixture(t)
	id, _ := f.doc.AddAsset(project.KindCharacter, "Mira Vance")
	f.doc.UpdateCharacter(id, func(c *project.Character) { c.Profile.GeneratedImageURL = "img_keep" })
	f.queue(`{"name":"Someone Else","visualPrompt":"weathered coat","unknownKey":{"x":1}}`)

	if err := f.dir.GenerateCharacterProfile(context.Background(), id); err != nil {
		t.Fatalf("GenerateCharacterProfile: %v", err)
	}
	prof := f.project(t).Bible.Characters[0].Profile
	if prof.Name != "Mira Vance" || prof.GeneratedImageURL != "img_keep" {
		t.Errorf("profile = %+v", prof)
	}
	if prof.VisualPrompt != "weathered coat" {
		t.Errorf("visual prompt = %q", prof.VisualPrompt)
	}
	if _, ok := prof.Extra["unknownKey"]; !ok {
		t.Error("unknown key dropped")
	}
}

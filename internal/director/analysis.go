package director

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/zulandar/showrunner/internal/project"
)

// rawStateChange is an asset state change as the model returns it: the
// changes may arrive as an object, a JSON string or free text.
type rawStateChange struct {
	AssetType string `json:"assetType"`
	AssetName string `json:"assetName"`
	Snapshot  struct {
		SceneID string          `json:"sceneId"`
		Trigger string          `json:"trigger"`
		Changes json.RawMessage `json:"changes"`
	} `json:"snapshot"`
}

type rawAnalysis struct {
	IdentifiedCharacters []project.NewAssetPayload   `json:"identifiedCharacters"`
	IdentifiedLocations  []project.NewAssetPayload   `json:"identifiedLocations"`
	IdentifiedProps      []project.NewAssetPayload   `json:"identifiedProps"`
	SceneAssetMapping    []project.SceneAssetMapItem `json:"sceneAssetMapping"`
	AssetStateChanges    []rawStateChange            `json:"assetStateChanges"`
}

// AnalyzeAssets extracts the assets of an item's scenes and merges them into
// the bible.
func (d *Director) AnalyzeAssets(ctx context.Context, itemID string) (project.AnalysisSummary, error) {
	p, err := d.snapshot()
	if err != nil {
		return project.AnalysisSummary{}, err
	}
	it, err := p.Item(itemID)
	if err != nil {
		return project.AnalysisSummary{}, err
	}
	if len(it.Scenes) == 0 {
		return project.AnalysisSummary{}, fmt.Errorf("%w: %s has no scenes", project.ErrIncomplete, itemID)
	}

	var raw rawAnalysis
	if err := d.generateJSON(ctx, analysisPrompt(p, it.Scenes), 8192, &raw); err != nil {
		return project.AnalysisSummary{}, err
	}
	return d.doc.ApplyAssetAnalysis(itemID, normalizeAnalysis(raw))
}

func normalizeAnalysis(raw rawAnalysis) project.AssetAnalysisResult {
	res := project.AssetAnalysisResult{
		IdentifiedCharacters: raw.IdentifiedCharacters,
		IdentifiedLocations:  raw.IdentifiedLocations,
		IdentifiedProps:      raw.IdentifiedProps,
		SceneAssetMapping:    raw.SceneAssetMapping,
	}
	for _, c := range raw.AssetStateChanges {
		kind, err := project.ParseKind(c.AssetType)
		if err != nil {
			log.Printf("director: skip state change for %q: %v", c.AssetName, err)
			continue
		}
		res.AssetStateChanges = append(res.AssetStateChanges, project.AssetStateChange{
			AssetType: kind,
			AssetName: c.AssetName,
			Snapshot: project.StateSnapshot{
				SceneID: c.Snapshot.SceneID,
				Trigger: c.Snapshot.Trigger,
				Changes: parseChanges(c.Snapshot.Changes),
			},
		})
	}
	return res
}

// parseChanges accepts an object, a string holding an object, or free text.
// Free text is kept as {"description": text}.
func parseChanges(raw json.RawMessage) map[string]json.RawMessage {
	out := map[string]json.RawMessage{}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return out
	}
	if json.Unmarshal(raw, &out) == nil {
		return out
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return out
	}
	trimmed := bytes.TrimSpace([]byte(text))
	if bytes.HasPrefix(trimmed, []byte("{")) {
		parsed := map[string]json.RawMessage{}
		if json.Unmarshal(trimmed, &parsed) == nil {
			return parsed
		}
	}
	desc, _ := json.Marshal(text)
	return map[string]json.RawMessage{"description": desc}
}

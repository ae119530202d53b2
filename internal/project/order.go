package project

import (
	"fmt"
	"sort"
)

// SceneRef locates one scene in the global scene order.
type SceneRef struct {
	SceneID       string
	Code          string
	InstallmentID string
	ItemID        string
	Position      int
}

// SceneOrder is the flattened chronology of a script: installments by
// number, items by number, scenes by array position.
type SceneOrder struct {
	refs  []SceneRef
	index map[string]int
}

// SceneOrder builds the global scene order. Sorting is stable, so siblings
// sharing a number keep their array order. The project is not modified.
func (p *Project) SceneOrder() SceneOrder {
	o := SceneOrder{index: make(map[string]int)}
	add := func(code string, instID, itemID string, sc Scene) {
		if _, dup := o.index[sc.ID]; dup {
			return
		}
		pos := len(o.refs)
		o.index[sc.ID] = pos
		o.refs = append(o.refs, SceneRef{
			SceneID:       sc.ID,
			Code:          fmt.Sprintf("%s_Sc%d", code, sc.SceneNumber),
			InstallmentID: instID,
			ItemID:        itemID,
			Position:      pos,
		})
	}

	if p.Episodic() {
		seasons := append([]Season(nil), p.Script.Seasons...)
		sort.SliceStable(seasons, func(i, j int) bool { return seasons[i].SeasonNumber < seasons[j].SeasonNumber })
		for _, s := range seasons {
			episodes := append([]Episode(nil), s.Episodes...)
			sort.SliceStable(episodes, func(i, j int) bool { return episodes[i].EpisodeNumber < episodes[j].EpisodeNumber })
			for _, e := range episodes {
				code := fmt.Sprintf("S%dE%d", s.SeasonNumber, e.EpisodeNumber)
				for _, sc := range e.Scenes {
					add(code, s.ID, e.ID, sc)
				}
			}
		}
		return o
	}

	sequels := append([]Sequel(nil), p.Script.Sequels...)
	sort.SliceStable(sequels, func(i, j int) bool { return sequels[i].PartNumber < sequels[j].PartNumber })
	for _, s := range sequels {
		acts := append([]Act(nil), s.Acts...)
		sort.SliceStable(acts, func(i, j int) bool { return acts[i].ActNumber < acts[j].ActNumber })
		for _, a := range acts {
			code := fmt.Sprintf("P%dA%d", s.PartNumber, a.ActNumber)
			for _, sc := range a.Scenes {
				add(code, s.ID, a.ID, sc)
			}
		}
	}
	return o
}

// Position returns the index of sceneID in the order.
func (o SceneOrder) Position(sceneID string) (int, bool) {
	pos, ok := o.index[sceneID]
	return pos, ok
}

// Ref returns the full reference for sceneID.
func (o SceneOrder) Ref(sceneID string) (SceneRef, bool) {
	pos, ok := o.index[sceneID]
	if !ok {
		return SceneRef{}, false
	}
	return o.refs[pos], true
}

// Refs returns every scene in order.
func (o SceneOrder) Refs() []SceneRef {
	return append([]SceneRef(nil), o.refs...)
}

// Len returns the number of scenes.
func (o SceneOrder) Len() int { return len(o.refs) }

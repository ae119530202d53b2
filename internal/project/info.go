package project

import "fmt"

// ItemInfo is a read-only summary of an episode or act.
type ItemInfo struct {
	ID            string
	InstallmentID string
	Number        int
	Title         string
	// Summary is the episode logline or the act summary.
	Summary string
	Scenes  []Scene
}

// InstallmentInfo is a read-only summary of a season or sequel.
type InstallmentInfo struct {
	ID      string
	Number  int
	Title   string
	Summary string
	Locked  bool
	Brief   *ContinuityBrief
	Items   []ItemInfo
}

// Installments lists seasons or sequels in stored order. Scenes are copied.
func (p *Project) Installments() []InstallmentInfo {
	var out []InstallmentInfo
	if p.Episodic() {
		for _, s := range p.Script.Seasons {
			info := InstallmentInfo{ID: s.ID, Number: s.SeasonNumber, Title: s.Title, Summary: s.Logline, Locked: s.IsLocked, Brief: s.ContinuityBrief}
			for _, e := range s.Episodes {
				info.Items = append(info.Items, ItemInfo{
					ID: e.ID, InstallmentID: s.ID, Number: e.EpisodeNumber, Title: e.Title, Summary: e.Logline,
					Scenes: append([]Scene(nil), e.Scenes...),
				})
			}
			out = append(out, info)
		}
		return out
	}
	for _, s := range p.Script.Sequels {
		info := InstallmentInfo{ID: s.ID, Number: s.PartNumber, Title: s.Title, Summary: s.Summary, Locked: s.IsLocked, Brief: s.ContinuityBrief}
		for _, a := range s.Acts {
			info.Items = append(info.Items, ItemInfo{
				ID: a.ID, InstallmentID: s.ID, Number: a.ActNumber, Title: a.Title, Summary: a.Summary,
				Scenes: append([]Scene(nil), a.Scenes...),
			})
		}
		out = append(out, info)
	}
	return out
}

// Installment returns the season or sequel with id.
func (p *Project) Installment(id string) (InstallmentInfo, error) {
	for _, inst := range p.Installments() {
		if inst.ID == id {
			return inst, nil
		}
	}
	return InstallmentInfo{}, fmt.Errorf("%w: installment %s", ErrNotFound, id)
}

// Item returns the episode or act with id.
func (p *Project) Item(id string) (ItemInfo, error) {
	for _, inst := range p.Installments() {
		for _, it := range inst.Items {
			if it.ID == id {
				return it, nil
			}
		}
	}
	return ItemInfo{}, fmt.Errorf("%w: episode or act %s", ErrNotFound, id)
}

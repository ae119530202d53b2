package project

import "fmt"

// installment is a view over a Season or Sequel.
type installment struct {
	id     string
	title  *string
	locked *bool
	brief  **ContinuityBrief
}

// item is a view over an Episode or Act.
type item struct {
	id              string
	inst            installment
	scenes          *[]Scene
	summariesLocked *bool
	approved        *bool
}

func (p *Project) installments() []installment {
	var out []installment
	if p.Episodic() {
		for i := range p.Script.Seasons {
			s := &p.Script.Seasons[i]
			out = append(out, installment{id: s.ID, title: &s.Title, locked: &s.IsLocked, brief: &s.ContinuityBrief})
		}
		return out
	}
	for i := range p.Script.Sequels {
		s := &p.Script.Sequels[i]
		out = append(out, installment{id: s.ID, title: &s.Title, locked: &s.IsLocked, brief: &s.ContinuityBrief})
	}
	return out
}

func (p *Project) findInstallment(id string) (installment, error) {
	for _, inst := range p.installments() {
		if inst.id == id {
			return inst, nil
		}
	}
	return installment{}, fmt.Errorf("%w: installment %s", ErrNotFound, id)
}

func (p *Project) items() []item {
	var out []item
	insts := p.installments()
	if p.Episodic() {
		for i := range p.Script.Seasons {
			for j := range p.Script.Seasons[i].Episodes {
				e := &p.Script.Seasons[i].Episodes[j]
				out = append(out, item{id: e.ID, inst: insts[i], scenes: &e.Scenes, summariesLocked: &e.SceneSummariesLocked, approved: &e.IsScreenplayApproved})
			}
		}
		return out
	}
	for i := range p.Script.Sequels {
		for j := range p.Script.Sequels[i].Acts {
			a := &p.Script.Sequels[i].Acts[j]
			out = append(out, item{id: a.ID, inst: insts[i], scenes: &a.Scenes, summariesLocked: &a.SceneSummariesLocked, approved: &a.IsScreenplayApproved})
		}
	}
	return out
}

func (p *Project) findItem(id string) (item, error) {
	for _, it := range p.items() {
		if it.id == id {
			return it, nil
		}
	}
	return item{}, fmt.Errorf("%w: episode or act %s", ErrNotFound, id)
}

// findItemScene locates a scene within a specific item.
func (p *Project) findItemScene(itemID, sceneID string) (item, *Scene, error) {
	it, err := p.findItem(itemID)
	if err != nil {
		return item{}, nil, err
	}
	for i := range *it.scenes {
		if (*it.scenes)[i].ID == sceneID {
			return it, &(*it.scenes)[i], nil
		}
	}
	return item{}, nil, fmt.Errorf("%w: scene %s in %s", ErrNotFound, sceneID, itemID)
}

// FindScene returns the scene with id anywhere in the script.
func (p *Project) FindScene(sceneID string) (*Scene, bool) {
	_, sc, ok := p.locateScene(sceneID)
	return sc, ok
}

func (p *Project) locateScene(sceneID string) (item, *Scene, bool) {
	for _, it := range p.items() {
		for i := range *it.scenes {
			if (*it.scenes)[i].ID == sceneID {
				return it, &(*it.scenes)[i], true
			}
		}
	}
	return item{}, nil, false
}

func (it item) checkUnlocked() error {
	if *it.inst.locked {
		return fmt.Errorf("%w: installment %s", ErrLocked, it.inst.id)
	}
	return nil
}

package project

import "fmt"

// CanAppendItem reports whether a new episode or act may be appended to an
// installment: the last existing item must have at least one scene and
// every scene must have screenplay content. An empty installment passes.
func (p *Project) CanAppendItem(installmentID string) error {
	if _, err := p.findInstallment(installmentID); err != nil {
		return err
	}
	var last *item
	for _, it := range p.items() {
		if it.inst.id == installmentID {
			last = &it
		}
	}
	if last == nil {
		return nil
	}
	if len(*last.scenes) == 0 {
		return fmt.Errorf("%w: %s has no scenes", ErrGate, last.id)
	}
	for _, sc := range *last.scenes {
		if len(sc.Content) == 0 {
			return fmt.Errorf("%w: scene %d of %s has no screenplay", ErrGate, sc.SceneNumber, last.id)
		}
	}
	return nil
}

// CanBeginInstallment reports whether a new season or sequel may begin: the
// last existing one must carry a continuity brief.
func (p *Project) CanBeginInstallment() error {
	insts := p.installments()
	if len(insts) == 0 {
		return nil
	}
	last := insts[len(insts)-1]
	if *last.brief == nil {
		return fmt.Errorf("%w: %s has no continuity brief", ErrGate, *last.title)
	}
	return nil
}

package integrity

import "github.com/zulandar/showrunner/internal/project"

// sites holds pointers to every image reference site of a project.
type sites struct {
	singles  []*string
	pools    []*[]string
	history  []*[]project.ImageEntry
	shotRefs []*[]project.ShotReferenceImage
}

func (s *sites) addImageSet(set *project.ImageSet) {
	s.singles = append(s.singles, &set.GeneratedImageURL, &set.ReferenceImageURL)
	s.pools = append(s.pools, &set.ReferenceImages)
	s.history = append(s.history, &set.ImageHistory)
}

// collect gathers reference sites across the bible and every shot.
func collect(p *project.Project) *sites {
	s := &sites{}
	for _, a := range p.Bible.Assets() {
		s.addImageSet(a.Images())
	}
	for sceneID := range p.Studio.ShotsByScene {
		shots := p.Studio.ShotsByScene[sceneID]
		for i := range shots {
			sh := &shots[i]
			s.singles = append(s.singles, &sh.GeneratedImageURL)
			s.history = append(s.history, &sh.ImageHistory)
			s.shotRefs = append(s.shotRefs, &sh.ReferenceImages)
		}
	}
	return s
}

// each calls fn with the value of every reference site.
func (s *sites) each(fn func(ref string)) {
	for _, p := range s.singles {
		fn(*p)
	}
	for _, pool := range s.pools {
		for _, ref := range *pool {
			fn(ref)
		}
	}
	for _, h := range s.history {
		for _, e := range *h {
			fn(e.URL)
		}
	}
	for _, refs := range s.shotRefs {
		for _, r := range *refs {
			fn(r.URL)
		}
	}
}

// rewrite replaces every reference site value with fn's result.
func (s *sites) rewrite(fn func(ref string) string) {
	for _, p := range s.singles {
		*p = fn(*p)
	}
	for _, pool := range s.pools {
		for i := range *pool {
			(*pool)[i] = fn((*pool)[i])
		}
	}
	for _, h := range s.history {
		for i := range *h {
			(*h)[i].URL = fn((*h)[i].URL)
		}
	}
	for _, refs := range s.shotRefs {
		for i := range *refs {
			(*refs)[i].URL = fn((*refs)[i].URL)
		}
	}
}

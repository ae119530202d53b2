// Package timeline resolves what an asset looks like at a point in the
// script by replaying its state snapshots in scene order.
package timeline

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/zulandar/showrunner/internal/project"
)

// Result is a resolved asset.
type Result struct {
	// Asset is a new asset of the input's kind carrying the resolved profile.
	Asset project.Asset
	// Applied lists the ids of the snapshots applied, in application order.
	Applied []string
	// Warning is set when the base profile was returned unresolved.
	Warning string
}

// ResolveProfile replays timeline onto base up to and including sceneID.
// Snapshots are ordered by scene position; snapshots sharing a scene keep
// their timeline order; snapshots for scenes missing from order are
// skipped. When sceneID is not in order a copy of base is returned with a
// warning. base is never modified.
func ResolveProfile[P any](base P, timeline []project.StateSnapshot, sceneID string, order project.SceneOrder) (P, []string, string) {
	target, ok := order.Position(sceneID)
	if !ok {
		return copyOf(base), nil, fmt.Sprintf("scene %s is not in the script; showing base profile", sceneID)
	}

	type placed struct {
		pos  int
		snap project.StateSnapshot
	}
	var due []placed
	for _, snap := range timeline {
		pos, ok := order.Position(snap.SceneID)
		if !ok || pos > target {
			continue
		}
		due = append(due, placed{pos: pos, snap: snap})
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].pos < due[j].pos })

	patches := make([]map[string]json.RawMessage, 0, len(due))
	applied := make([]string, 0, len(due))
	for _, d := range due {
		patches = append(patches, d.snap.Changes)
		applied = append(applied, d.snap.ID)
	}

	out, err := project.MergeTop(base, patches...)
	if err != nil {
		return copyOf(base), nil, fmt.Sprintf("timeline could not be applied: %v", err)
	}
	return out, applied, ""
}

func copyOf[P any](v P) P {
	out, err := project.Clone(v)
	if err != nil {
		return v
	}
	return out
}

// ResolveCharacter resolves a character at sceneID. The result is a deep
// copy and shares no maps or slices with c.
func ResolveCharacter(c project.Character, sceneID string, order project.SceneOrder) (project.Character, Result) {
	c = copyOf(c)
	profile, applied, warn := ResolveProfile(c.Profile, c.Timeline, sceneID, order)
	c.Profile = profile
	return c, Result{Asset: &c, Applied: applied, Warning: warn}
}

// ResolveLocation resolves a location at sceneID.
func ResolveLocation(l project.Location, sceneID string, order project.SceneOrder) (project.Location, Result) {
	l = copyOf(l)
	profile, applied, warn := ResolveProfile(l.BaseProfile, l.Timeline, sceneID, order)
	l.BaseProfile = profile
	return l, Result{Asset: &l, Applied: applied, Warning: warn}
}

// ResolveProp resolves a prop at sceneID.
func ResolveProp(p project.Prop, sceneID string, order project.SceneOrder) (project.Prop, Result) {
	p = copyOf(p)
	profile, applied, warn := ResolveProfile(p.BaseProfile, p.Timeline, sceneID, order)
	p.BaseProfile = profile
	return p, Result{Asset: &p, Applied: applied, Warning: warn}
}

// Resolve resolves any asset at sceneID.
func Resolve(a project.Asset, sceneID string, order project.SceneOrder) Result {
	switch v := a.(type) {
	case *project.Character:
		_, r := ResolveCharacter(*v, sceneID, order)
		return r
	case *project.Location:
		_, r := ResolveLocation(*v, sceneID, order)
		return r
	case *project.Prop:
		_, r := ResolveProp(*v, sceneID, order)
		return r
	}
	return Result{Asset: a, Warning: fmt.Sprintf("unsupported asset type %T", a)}
}

// ResolveByRef looks up an asset by kind and id and resolves it at sceneID.
// Warnings are logged.
func ResolveByRef(p *project.Project, kind project.Kind, id, sceneID string) (Result, error) {
	a, ok := p.Bible.Find(kind, id)
	if !ok {
		return Result{}, fmt.Errorf("timeline: %w: %s %s", project.ErrNotFound, kind, id)
	}
	r := Resolve(a, sceneID, p.SceneOrder())
	if r.Warning != "" {
		log.Printf("timeline: %s %s: %s", kind, id, r.Warning)
	}
	return r, nil
}

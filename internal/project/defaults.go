package project

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewParams holds the wizard inputs for a new project.
type NewParams struct {
	Name           string
	Author         string
	Logline        string
	Format         Format
	Style          Style
	SupportingText string
}

// New builds an empty project. Episodic projects get an empty season list,
// single-story projects an empty sequel list.
func New(params NewParams) (*Project, error) {
	if strings.TrimSpace(params.Name) == "" {
		return nil, fmt.Errorf("project: name is required")
	}
	switch params.Format.Type {
	case FormatEpisodic, FormatSingleStory:
	case "":
		params.Format.Type = FormatEpisodic
	default:
		return nil, fmt.Errorf("project: unknown format %q", params.Format.Type)
	}
	if params.Author == "" {
		params.Author = "User"
	}

	now := time.Now().UnixMilli()
	p := &Project{
		Metadata: Metadata{
			ID:        uuid.NewString(),
			Name:      params.Name,
			Author:    params.Author,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Logline:        params.Logline,
		Format:         params.Format,
		Style:          params.Style,
		SupportingText: params.SupportingText,
		Bible: Bible{
			Characters: []Character{},
			Locations:  []Location{},
			Props:      []Prop{},
			Lore:       map[string]string{},
		},
		Art:    Art{},
		Studio: Studio{ShotsByScene: map[string][]Shot{}},
	}
	if p.Episodic() {
		p.Script.Seasons = []Season{}
	} else {
		p.Script.Sequels = []Sequel{}
	}
	return p, nil
}

// Episodic reports whether the project uses seasons and episodes.
func (p *Project) Episodic() bool {
	return p.Format.Type != FormatSingleStory
}

// normalize fills nil collections left by decoding older documents.
func (p *Project) normalize() {
	if p.Bible.Lore == nil {
		p.Bible.Lore = map[string]string{}
	}
	if p.Art == nil {
		p.Art = Art{}
	}
	if p.Studio.ShotsByScene == nil {
		p.Studio.ShotsByScene = map[string][]Shot{}
	}
}

// DefaultCharacterProfile returns an empty character profile for name.
func DefaultCharacterProfile(name string) CharacterProfile {
	var p CharacterProfile
	p.Name = name

	p.CoreIdentity = CoreIdentity{
		Name:                     name,
		PrimaryNarrativeRole:     "Unknown",
		NicknamesAliases:         []Alias{},
		SecondarySupportingRoles: []string{},
		CharacterArchetypes:      []string{},
	}

	p.Persona.Backstory.KeyChildhoodEvents = []string{}
	p.Persona.Backstory.KeyAdultEvents = []string{}

	p.VocationalProfile.PastOccupations = []string{}
	p.VocationalProfile.HardSkills = []string{}
	p.VocationalProfile.SoftSkills = []string{}
	p.VocationalProfile.CredentialsAwards = []string{}

	p.VisualDNA.BuildPhysique.DistinctiveTraits = []string{}
	p.VisualDNA.UniqueIdentifiers.Scars = []Scar{}
	p.VisualDNA.UniqueIdentifiers.Tattoos = []Tattoo{}
	p.VisualDNA.UniqueIdentifiers.Other.Piercings = []string{}

	p.OutfitMatrix.SignatureLook.Accessories = []string{}

	p.VocalProfile.LanguageFluency.Native = []string{}
	p.VocalProfile.LanguageFluency.Learned = []string{}

	p.AdditionalNotes.CharacterTimeline.KeyDates = []string{}
	p.AdditionalNotes.LocationSetting.KeyPlaces = []string{}
	return p
}

func defaultAudioProfile() AudioProfile {
	var a AudioProfile
	a.SpeechPatterns.Idioms = []string{}
	a.SignatureSounds = []string{}
	a.Quirks = []string{}
	return a
}

// DefaultLocationProfile returns an empty location profile for name.
func DefaultLocationProfile(name string) LocationProfile {
	return LocationProfile{
		Identity:     Identity{Name: name},
		Visuals:      LocationVisuals{KeyElements: []string{}},
		AudioProfile: defaultAudioProfile(),
	}
}

// DefaultPropProfile returns an empty prop profile for name.
func DefaultPropProfile(name string) PropProfile {
	return PropProfile{
		Identity:     Identity{Name: name},
		Visuals:      PropVisuals{Markings: []string{}},
		AudioProfile: defaultAudioProfile(),
	}
}

// NewCharacter creates a character with a default profile.
func NewCharacter(name string) Character {
	return Character{
		ID:              uuid.NewString(),
		Profile:         DefaultCharacterProfile(name),
		Timeline:        []StateSnapshot{},
		ConsistencyMode: ModeGenerative,
	}
}

// NewLocation creates a location with a default profile.
func NewLocation(name string) Location {
	return Location{
		ID:              uuid.NewString(),
		BaseProfile:     DefaultLocationProfile(name),
		Timeline:        []StateSnapshot{},
		ConsistencyMode: ModeGenerative,
	}
}

// NewProp creates a prop with a default profile.
func NewProp(name string) Prop {
	return Prop{
		ID:              uuid.NewString(),
		BaseProfile:     DefaultPropProfile(name),
		Timeline:        []StateSnapshot{},
		ConsistencyMode: ModeGenerative,
	}
}

package project

import "encoding/json"

// ImageSet holds the image reference sites shared by every asset profile.
type ImageSet struct {
	GeneratedImageURL string       `json:"generatedImageUrl,omitempty"`
	ReferenceImageURL string       `json:"referenceImageUrl,omitempty"`
	IsReferenceLocked bool         `json:"isReferenceLocked,omitempty"`
	ImageHistory      []ImageEntry `json:"imageHistory,omitempty"`
	ReferenceImages   []string     `json:"referenceImages,omitempty"`
}

// CharacterProfile is the full profile of a character. Top-level keys not
// modelled here are kept in Extra and written back out unchanged.
type CharacterProfile struct {
	Name              string            `json:"name"`
	CoreIdentity      CoreIdentity      `json:"coreIdentity"`
	Persona           Persona           `json:"persona"`
	VocationalProfile VocationalProfile `json:"vocationalProfile"`
	VisualDNA         VisualDNA         `json:"visualDna"`
	OutfitMatrix      OutfitMatrix      `json:"outfitMatrix"`
	VocalProfile      VocalProfile      `json:"vocalProfile"`
	Catchphrases      Catchphrases      `json:"catchphrases"`
	AdditionalNotes   AdditionalNotes   `json:"additionalNotes"`
	VisualPrompt      string            `json:"visualPrompt,omitempty"`
	ImageSet

	Extra map[string]json.RawMessage `json:"-"`
}

func (p CharacterProfile) MarshalJSON() ([]byte, error) {
	type plain CharacterProfile
	return marshalWithExtra(plain(p), p.Extra)
}

func (p *CharacterProfile) UnmarshalJSON(data []byte) error {
	type plain CharacterProfile
	var v plain
	extra, err := unmarshalWithExtra(data, &v)
	if err != nil {
		return err
	}
	*p = CharacterProfile(v)
	p.Extra = extra
	return nil
}

type CoreIdentity struct {
	Name                     string    `json:"name"`
	FullLegalName            LegalName `json:"fullLegalName"`
	NicknamesAliases         []Alias   `json:"nicknamesAliases"`
	TitleHonorific           string    `json:"titleHonorific"`
	PrimaryNarrativeRole     string    `json:"primaryNarrativeRole"`
	SecondarySupportingRoles []string  `json:"secondarySupportingRoles"`
	CharacterArchetypes      []string  `json:"characterArchetypes"`
}

type LegalName struct {
	First  string `json:"first"`
	Middle string `json:"middle"`
	Last   string `json:"last"`
}

type Alias struct {
	Name    string `json:"name"`
	UsedBy  string `json:"usedBy"`
	Context string `json:"context"`
}

type Persona struct {
	Backstory struct {
		KeyChildhoodEvents []string `json:"keyChildhoodEvents"`
		KeyAdultEvents     []string `json:"keyAdultEvents"`
		FamilyDynamics     string   `json:"familyDynamics"`
	} `json:"backstory"`
	Motivations struct {
		ExternalGoal string `json:"externalGoal"`
		InternalNeed string `json:"internalNeed"`
		CoreDrive    string `json:"coreDrive"`
	} `json:"motivations"`
	Fears struct {
		SurfaceFear string `json:"surfaceFear"`
		DeepFear    string `json:"deepFear"`
	} `json:"fears"`
}

type VocationalProfile struct {
	CurrentOccupation string   `json:"currentOccupation"`
	PastOccupations   []string `json:"pastOccupations"`
	HardSkills        []string `json:"hardSkills"`
	SoftSkills        []string `json:"softSkills"`
	ExpertiseLevel    string   `json:"expertiseLevel"`
	CredentialsAwards []string `json:"credentialsAwards"`
}

// VisualDNA describes how a character looks.
type VisualDNA struct {
	Age struct {
		Chronological *int   `json:"chronological"`
		Apparent      string `json:"apparent"`
	} `json:"age"`
	EthnicCulturalBackground struct {
		Ethnicity         string `json:"ethnicity"`
		NationalityRegion string `json:"nationalityRegion"`
	} `json:"ethnicCulturalBackground"`
	Eyes struct {
		Color string `json:"color"`
		Shape string `json:"shape"`
	} `json:"eyes"`
	Hair struct {
		Color    string `json:"color"`
		Texture  string `json:"texture"`
		StyleCut string `json:"styleCut"`
	} `json:"hair"`
	BuildPhysique struct {
		Height            string   `json:"height"`
		WeightFrame       string   `json:"weightFrame"`
		Posture           string   `json:"posture"`
		DistinctiveTraits []string `json:"distinctiveTraits"`
	} `json:"buildPhysique"`
	UniqueIdentifiers struct {
		Scars   []Scar   `json:"scars"`
		Tattoos []Tattoo `json:"tattoos"`
		Other   struct {
			Birthmarks  string   `json:"birthmarks"`
			Piercings   []string `json:"piercings"`
			Prosthetics string   `json:"prosthetics"`
		} `json:"other"`
	} `json:"uniqueIdentifiers"`
}

type Scar struct {
	Location   string `json:"location"`
	Origin     string `json:"origin"`
	Visibility string `json:"visibility"`
}

type Tattoo struct {
	Design    string `json:"design"`
	Placement string `json:"placement"`
	Meaning   string `json:"meaning"`
}

type OutfitVariant struct {
	Description string `json:"description"`
	Notes       string `json:"notes"`
}

type OutfitMatrix struct {
	SignatureLook struct {
		Headwear    string   `json:"headwear"`
		Tops        string   `json:"tops"`
		Bottoms     string   `json:"bottoms"`
		Footwear    string   `json:"footwear"`
		Accessories []string `json:"accessories"`
	} `json:"signatureLook"`
	ContextSpecificVariants struct {
		CombatAction     OutfitVariant `json:"combatAction"`
		FormalCeremonial OutfitVariant `json:"formalCeremonial"`
		IncognitoCasual  OutfitVariant `json:"incognitoCasual"`
		WeatherSpecific  OutfitVariant `json:"weatherSpecific"`
	} `json:"contextSpecificVariants"`
}

type VocalProfile struct {
	SpeakingPersona string `json:"speakingPersona"`
	Timbre          string `json:"timbre"`
	PitchRange      string `json:"pitchRange"`
	SpeechPatterns  string `json:"speechPatterns"`
	AccentDialect   string `json:"accentDialect"`
	LanguageFluency struct {
		Native        []string `json:"native"`
		Learned       []string `json:"learned"`
		CodeSwitching bool     `json:"codeSwitching"`
	} `json:"languageFluency"`
	VoiceNotes struct {
		TimbreDescription string `json:"timbreDescription"`
		PitchNotes        string `json:"pitchNotes"`
		EmotionCaptured   string `json:"emotionCaptured"`
		AccentMarkers     string `json:"accentMarkers"`
		DeliveryStyle     string `json:"deliveryStyle"`
	} `json:"voiceNotes"`
}

type Catchphrases struct {
	PublicTagline  string `json:"publicTagline"`
	PrivateMantra  string `json:"privateMantra"`
	QuotationNotes struct {
		ContextsUsed string `json:"contextsUsed"`
		Frequency    string `json:"frequency"`
		OriginStory  string `json:"originStory"`
	} `json:"quotationNotes"`
}

type AdditionalNotes struct {
	MoodBoard struct {
		OverallAesthetic string `json:"overallAesthetic"`
		ColorPalette     string `json:"colorPalette"`
		Atmosphere       string `json:"atmosphere"`
	} `json:"moodBoard"`
	CharacterTimeline struct {
		KeyDates          []string `json:"keyDates"`
		ArcProgression    string   `json:"arcProgression"`
		FlashbackTriggers string   `json:"flashbackTriggers"`
	} `json:"characterTimeline"`
	RelationshipMap struct {
		ConnectionTypes string `json:"connectionTypes"`
		TensionLevels   string `json:"tensionLevels"`
		Secrets         string `json:"secrets"`
	} `json:"relationshipMap"`
	LocationSetting struct {
		KeyPlaces             []string `json:"keyPlaces"`
		EmotionalAssociations string   `json:"emotionalAssociations"`
		FrequencyOfVisits     string   `json:"frequencyOfVisits"`
	} `json:"locationSetting"`
	ResearchNotes struct {
		HistoricalEra    string `json:"historicalEra"`
		CulturalDeepDive string `json:"culturalDeepDive"`
		TechSpecs        string `json:"techSpecs"`
	} `json:"researchNotes"`
	Miscellaneous struct {
		Playlist          string `json:"playlist"`
		FanArtInspiration string `json:"fanArtInspiration"`
		DeletedScenes     string `json:"deletedScenes"`
	} `json:"miscellaneous"`
}

// Identity names a location or prop.
type Identity struct {
	Name string `json:"name"`
}

// AudioProfile describes how a location or prop sounds.
type AudioProfile struct {
	VoiceIdentity struct {
		Timbre string `json:"timbre"`
		Pitch  string `json:"pitch"`
	} `json:"voiceIdentity"`
	SpeechPatterns struct {
		Pacing string   `json:"pacing"`
		Idioms []string `json:"idioms"`
	} `json:"speechPatterns"`
	SignatureSounds []string `json:"signatureSounds"`
	Quirks          []string `json:"quirks"`
}

type LocationNarrative struct {
	Description string `json:"description"`
	Vibe        string `json:"vibe"`
}

type LocationVisuals struct {
	ArchitectureStyle string   `json:"architectureStyle"`
	KeyElements       []string `json:"keyElements"`
	Lighting          string   `json:"lighting"`
	VisualPrompt      string   `json:"visualPrompt"`
	ImageSet
}

// LocationProfile is the base profile of a location.
type LocationProfile struct {
	Identity     Identity          `json:"identity"`
	Narrative    LocationNarrative `json:"narrative"`
	Visuals      LocationVisuals   `json:"visuals"`
	AudioProfile AudioProfile      `json:"audioProfile"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (p LocationProfile) MarshalJSON() ([]byte, error) {
	type plain LocationProfile
	return marshalWithExtra(plain(p), p.Extra)
}

func (p *LocationProfile) UnmarshalJSON(data []byte) error {
	type plain LocationProfile
	var v plain
	extra, err := unmarshalWithExtra(data, &v)
	if err != nil {
		return err
	}
	*p = LocationProfile(v)
	p.Extra = extra
	return nil
}

type PropNarrative struct {
	Description string `json:"description"`
}

type PropVisuals struct {
	Material     string   `json:"material"`
	Era          string   `json:"era"`
	Markings     []string `json:"markings"`
	VisualPrompt string   `json:"visualPrompt"`
	ImageSet
}

// PropProfile is the base profile of a prop.
type PropProfile struct {
	Identity     Identity      `json:"identity"`
	Narrative    PropNarrative `json:"narrative"`
	Visuals      PropVisuals   `json:"visuals"`
	AudioProfile AudioProfile  `json:"audioProfile"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (p PropProfile) MarshalJSON() ([]byte, error) {
	type plain PropProfile
	return marshalWithExtra(plain(p), p.Extra)
}

func (p *PropProfile) UnmarshalJSON(data []byte) error {
	type plain PropProfile
	var v plain
	extra, err := unmarshalWithExtra(data, &v)
	if err != nil {
		return err
	}
	*p = PropProfile(v)
	p.Extra = extra
	return nil
}

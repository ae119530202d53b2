// Package project holds the in-memory production document: the story bible,
// the script tree and the studio shot lists, plus the mutations that keep
// its numbering, lock and progression invariants.
package project

import "encoding/json"

// FormatType selects which script tree a project uses.
type FormatType string

const (
	FormatEpisodic    FormatType = "EPISODIC"
	FormatSingleStory FormatType = "SINGLE_STORY"
)

// ConsistencyMode controls how strictly generated images follow references.
type ConsistencyMode string

const (
	ModeStrict     ConsistencyMode = "STRICT"
	ModeFlexible   ConsistencyMode = "FLEXIBLE"
	ModeGenerative ConsistencyMode = "GENERATIVE"
)

// Valid reports whether m is a known mode.
func (m ConsistencyMode) Valid() bool {
	switch m {
	case ModeStrict, ModeFlexible, ModeGenerative:
		return true
	}
	return false
}

// Shot origins.
const (
	OriginUser = "user"
	OriginAI   = "ai"
)

// Project is the root document.
type Project struct {
	Metadata       Metadata `json:"metadata"`
	Logline        string   `json:"logline"`
	Format         Format   `json:"format"`
	Style          Style    `json:"style"`
	Bible          Bible    `json:"bible"`
	Script         Script   `json:"script"`
	Art            Art      `json:"art"`
	Studio         Studio   `json:"studio"`
	SupportingText string   `json:"supportingText,omitempty"`
}

// Metadata identifies a project. Timestamps are Unix milliseconds.
type Metadata struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Author    string `json:"author"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Format describes the shape and runtime of the production.
type Format struct {
	Type         FormatType `json:"type"`
	SeasonCount  int        `json:"seasonCount,omitempty"`
	EpisodeCount int        `json:"episodeCount"`
	Duration     string     `json:"duration"`
	AspectRatio  string     `json:"aspectRatio"`
}

// Style captures the creative direction.
type Style struct {
	Primary        string `json:"primary"`
	Secondary      string `json:"secondary"`
	Custom         string `json:"custom"`
	Audience       string `json:"audience"`
	Genre          string `json:"genre"`
	SecondaryGenre string `json:"secondaryGenre"`
	Language       string `json:"language"`
}

// Bible is the story bible.
type Bible struct {
	Synopsis   string            `json:"synopsis"`
	Characters []Character       `json:"characters"`
	Locations  []Location        `json:"locations"`
	Props      []Prop            `json:"props"`
	Lore       map[string]string `json:"lore"`
}

// Script holds either seasons or sequels, never both.
type Script struct {
	Seasons []Season `json:"seasons,omitempty"`
	Sequels []Sequel `json:"sequels,omitempty"`
}

// Art maps asset ids to art direction notes.
type Art map[string]string

// Studio holds shot lists keyed by scene id.
type Studio struct {
	ShotsByScene map[string][]Shot `json:"shotsByScene"`
}

// ContinuityBrief bridges one installment to the next.
type ContinuityBrief struct {
	ID                   string   `json:"id"`
	ProjectID            string   `json:"projectId"`
	InstallmentID        string   `json:"installmentId"`
	InstallmentTitle     string   `json:"installmentTitle"`
	GeneratedAt          int64    `json:"generatedAt"`
	Summary              string   `json:"summary"`
	CharacterResolutions []string `json:"characterResolutions"`
	WorldStateChanges    []string `json:"worldStateChanges"`
	LingeringHooks       []string `json:"lingeringHooks"`
	IsLocked             bool     `json:"isLocked"`
}

// Season is an installment of an episodic project.
type Season struct {
	ID              string           `json:"id"`
	SeasonNumber    int              `json:"seasonNumber"`
	Title           string           `json:"title"`
	Logline         string           `json:"logline"`
	ContinuityBrief *ContinuityBrief `json:"continuityBrief,omitempty"`
	Episodes        []Episode        `json:"episodes"`
	IsLocked        bool             `json:"isLocked"`
}

// Sequel is an installment of a single-story project.
type Sequel struct {
	ID              string           `json:"id"`
	PartNumber      int              `json:"partNumber"`
	Title           string           `json:"title"`
	Summary         string           `json:"summary"`
	ContinuityBrief *ContinuityBrief `json:"continuityBrief,omitempty"`
	Acts            []Act            `json:"acts"`
	IsLocked        bool             `json:"isLocked"`
}

// Episode groups scenes within a season.
type Episode struct {
	ID                   string  `json:"id"`
	EpisodeNumber        int     `json:"episodeNumber"`
	Title                string  `json:"title"`
	Logline              string  `json:"logline"`
	Scenes               []Scene `json:"scenes"`
	SceneSummariesLocked bool    `json:"sceneSummariesLocked"`
	IsScreenplayApproved bool    `json:"isScreenplayApproved,omitempty"`
}

// Act groups scenes within a sequel.
type Act struct {
	ID                   string  `json:"id"`
	ActNumber            int     `json:"actNumber"`
	Title                string  `json:"title"`
	Summary              string  `json:"summary"`
	Scenes               []Scene `json:"scenes"`
	SceneSummariesLocked bool    `json:"sceneSummariesLocked"`
	IsScreenplayApproved bool    `json:"isScreenplayApproved,omitempty"`
}

// Screenplay line types.
const (
	LineAction        = "action"
	LineCharacter     = "character"
	LineDialogue      = "dialogue"
	LineParenthetical = "parenthetical"
)

// ScreenplayItem is one screenplay line.
type ScreenplayItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SceneAssets lists asset names appearing in a scene.
type SceneAssets struct {
	Characters []string `json:"characters"`
	Locations  []string `json:"locations"`
	Props      []string `json:"props"`
}

// Names returns the names listed for kind.
func (a *SceneAssets) Names(kind Kind) []string {
	if a == nil {
		return nil
	}
	switch kind {
	case KindCharacter:
		return a.Characters
	case KindLocation:
		return a.Locations
	case KindProp:
		return a.Props
	}
	return nil
}

// Scene is one scene of an episode or act.
type Scene struct {
	ID              string           `json:"id"`
	SceneNumber     int              `json:"sceneNumber"`
	Setting         string           `json:"setting"`
	Summary         string           `json:"summary"`
	Content         []ScreenplayItem `json:"content"`
	Assets          *SceneAssets     `json:"assets,omitempty"`
	IsContentLocked bool             `json:"isContentLocked,omitempty"`
}

// ImageEntry is one entry of an image history.
type ImageEntry struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Timestamp int64  `json:"timestamp"`
}

// Reference image source types.
const (
	SourceCharacter  = "character"
	SourceLocation   = "location"
	SourceProp       = "prop"
	SourceUserUpload = "user_upload"
)

// ShotReferenceImage is a reference image attached to a shot.
type ShotReferenceImage struct {
	ID         string `json:"id"`
	SourceType string `json:"sourceType"`
	URL        string `json:"url"`
	IsActive   bool   `json:"isActive"`
	Name       string `json:"name,omitempty"`
}

// Shot is one planned shot of a scene.
type Shot struct {
	ID                string               `json:"id"`
	ShotNumber        int                  `json:"shotNumber"`
	Description       string               `json:"description"`
	IsLocked          bool                 `json:"isLocked,omitempty"`
	Origin            string               `json:"origin,omitempty"`
	CameraAngle       string               `json:"cameraAngle,omitempty"`
	CameraMovement    string               `json:"cameraMovement,omitempty"`
	VisualPromptText  string               `json:"visualPromptText,omitempty"`
	VideoPromptJSON   json.RawMessage      `json:"videoPromptJSON,omitempty"`
	VideoPlan         string               `json:"videoPlan,omitempty"`
	ReferenceImages   []ShotReferenceImage `json:"referenceImages,omitempty"`
	GeneratedImageURL string               `json:"generatedImageUrl,omitempty"`
	ImageHistory      []ImageEntry         `json:"imageHistory,omitempty"`
	GeneratedVideoURL string               `json:"generatedVideoUrl,omitempty"`
}

// SceneAssetMapItem assigns asset names to a scene.
type SceneAssetMapItem struct {
	SceneID string      `json:"sceneId"`
	Assets  SceneAssets `json:"assets"`
}

// NewAssetPayload describes an asset identified by analysis. Characters
// carry Profile, locations and props carry BaseProfile. Both are partial
// and merged over the defaults.
type NewAssetPayload struct {
	Profile         json.RawMessage     `json:"profile,omitempty"`
	BaseProfile     json.RawMessage     `json:"baseProfile,omitempty"`
	ConsistencyMode ConsistencyMode     `json:"consistencyMode,omitempty"`
	Analysis        ConsistencyAnalysis `json:"analysis"`
}

// AssetStateChange attributes a snapshot to a named asset.
type AssetStateChange struct {
	AssetType Kind          `json:"assetType"`
	AssetName string        `json:"assetName"`
	Snapshot  StateSnapshot `json:"snapshot"`
}

// AssetAnalysisResult is the output of analyzing an episode or act.
type AssetAnalysisResult struct {
	IdentifiedCharacters []NewAssetPayload   `json:"identifiedCharacters"`
	IdentifiedLocations  []NewAssetPayload   `json:"identifiedLocations"`
	IdentifiedProps      []NewAssetPayload   `json:"identifiedProps"`
	SceneAssetMapping    []SceneAssetMapItem `json:"sceneAssetMapping"`
	AssetStateChanges    []AssetStateChange  `json:"assetStateChanges"`
}

// SceneScreenplay pairs a scene with its generated screenplay.
type SceneScreenplay struct {
	SceneID    string           `json:"sceneId"`
	Screenplay []ScreenplayItem `json:"screenplay"`
}

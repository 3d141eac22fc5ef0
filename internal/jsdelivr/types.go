package jsdelivr

// Source is one entry of the published content-source list
type Source struct {
	Label  string `json:"label"`
	Value  string `json:"value"`
	IsAram *bool  `json:"isAram,omitempty"`
	IsUrf  *bool  `json:"isUrf,omitempty"`
}

// Aram reports whether the source publishes ARAM builds
func (s Source) Aram() bool { return s.IsAram != nil && *s.IsAram }

// Urf reports whether the source publishes URF builds
func (s Source) Urf() bool { return s.IsUrf != nil && *s.IsUrf }

// BuildDocument is one provider's recommendation for a champion
type BuildDocument struct {
	Index           int         `json:"index"`
	ID              string      `json:"id"`
	Version         string      `json:"version"`
	OfficialVersion string      `json:"officialVersion"`
	Timestamp       int64       `json:"timestamp"`
	Alias           string      `json:"alias"`
	Name            string      `json:"name"`
	Position        string      `json:"position"`
	Skills          []string    `json:"skills,omitempty"`
	Spells          []string    `json:"spells,omitempty"`
	ItemBuilds      []ItemBuild `json:"itemBuilds"`
	Runes           []Rune      `json:"runes"`
}

// ItemBuild is a single item set, written to disk as-is
type ItemBuild struct {
	Title               string  `json:"title"`
	AssociatedMaps      []int   `json:"associatedMaps"`
	AssociatedChampions []int   `json:"associatedChampions"`
	Blocks              []Block `json:"blocks"`
	Map                 string  `json:"map"`
	Mode                string  `json:"mode"`
	SortRank            int     `json:"sortrank"`
	StartedFrom         string  `json:"startedFrom"`
	Type                string  `json:"type"`
}

// Block is an ordered group of items inside an item set
type Block struct {
	Type  string `json:"type"`
	Items []Item `json:"items,omitempty"`
}

// Item is an item ID with a purchase count
type Item struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

// Rune is a recommended rune page
type Rune struct {
	Alias           string  `json:"alias"`
	Name            string  `json:"name"`
	Position        string  `json:"position"`
	PickCount       int     `json:"pickCount"`
	WinRate         string  `json:"winRate"`
	PrimaryStyleID  int     `json:"primaryStyleId"`
	SubStyleID      int     `json:"subStyleId"`
	SelectedPerkIDs []int   `json:"selectedPerkIds"`
	Score           float64 `json:"score"`
}

// PackageInfo is the subset of npm registry metadata we use
type PackageInfo struct {
	Name          string   `json:"name"`
	Version       string   `json:"version"`
	SourceVersion string   `json:"sourceVersion"`
	Description   string   `json:"description"`
	Main          string   `json:"main"`
	DistTags      DistTags `json:"dist-tags"`
}

// DistTags holds npm dist-tags
type DistTags struct {
	Latest string `json:"latest"`
}

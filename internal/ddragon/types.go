package ddragon

// Image locates a champion's square portrait and its sprite sheet cell
type Image struct {
	Full   string `json:"full"`
	Sprite string `json:"sprite"`
	Group  string `json:"group"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	W      int    `json:"w"`
	H      int    `json:"h"`
}

// Champion is one entry of the Data Dragon champion catalog
type Champion struct {
	Version string   `json:"version"`
	ID      string   `json:"id"`  // e.g. "MonkeyKing"
	Key     string   `json:"key"` // numeric champion ID as a string, e.g. "62"
	Name    string   `json:"name"`
	Title   string   `json:"title"`
	Tags    []string `json:"tags"`
	Image   Image    `json:"image"`
}

// ChampionList is the champion.json payload for one game version
type ChampionList struct {
	Type    string              `json:"type"`
	Format  string              `json:"format"`
	Version string              `json:"version"`
	Data    map[string]Champion `json:"data"`
}

package runepage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"champr/internal/ddragon"
	"champr/internal/jsdelivr"
	"champr/internal/lcu"
)

// ErrNoRunes means the source published no usable rune for the champion
var ErrNoRunes = errors.New("source has no runes for champion")

// BuildFetcher fetches a source's build documents for a champion
type BuildFetcher interface {
	FetchBuildDocuments(ctx context.Context, source, version, champion string) ([]jsdelivr.BuildDocument, error)
}

// ChampionLookup maps the client's numeric champion IDs to catalog entries
type ChampionLookup interface {
	Lookup(key int) (ddragon.Champion, bool)
}

// PageClient manages rune pages on the League client
type PageClient interface {
	CurrentRunePage(ctx context.Context) (*lcu.RunePage, error)
	DeleteRunePage(ctx context.Context, id int) error
	CreateRunePage(ctx context.Context, page lcu.RunePage) (*lcu.RunePage, error)
}

// Applier replaces the current rune page with a source's best rune for the
// champion the local player picks
type Applier struct {
	builds    BuildFetcher
	champions ChampionLookup
	pages     PageClient
	source    string
	version   string

	mu      sync.Mutex
	applied map[int]bool
}

// NewApplier creates an applier reading runes from source at the latest
// package version
func NewApplier(builds BuildFetcher, champions ChampionLookup, pages PageClient, source string) *Applier {
	return &Applier{
		builds:    builds,
		champions: champions,
		pages:     pages,
		source:    source,
		version:   jsdelivr.LatestTag,
		applied:   make(map[int]bool),
	}
}

// HandleSession reacts to a champ select update. A nil session means champ
// select ended. Each champion is applied at most once per champ select.
func (a *Applier) HandleSession(ctx context.Context, session *lcu.ChampSelectSession) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if session == nil {
		if len(a.applied) > 0 {
			log.Printf("[Runes] Champ select ended")
		}
		a.applied = make(map[int]bool)
		return nil
	}

	championID := session.LocalChampionID()
	if championID == 0 || a.applied[championID] {
		return nil
	}

	champ, ok := a.champions.Lookup(championID)
	if !ok {
		return fmt.Errorf("unknown champion id %d", championID)
	}

	docs, err := a.builds.FetchBuildDocuments(ctx, a.source, a.version, champ.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch %s builds for %s: %w", a.source, champ.ID, err)
	}

	best, ok := BestRune(docs, session.LocalPosition())
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrNoRunes, a.source, champ.ID)
	}

	if err := a.replacePage(ctx, lcu.RunePage{
		Name:            fmt.Sprintf("%s %s", a.source, champ.Name),
		PrimaryStyleID:  best.PrimaryStyleID,
		SubStyleID:      best.SubStyleID,
		SelectedPerkIDs: best.SelectedPerkIDs,
	}); err != nil {
		return err
	}

	a.applied[championID] = true
	log.Printf("[Runes] Applied %s runes for %s (score %.2f)", a.source, champ.Name, best.Score)
	return nil
}

func (a *Applier) replacePage(ctx context.Context, page lcu.RunePage) error {
	current, err := a.pages.CurrentRunePage(ctx)
	if err != nil {
		return fmt.Errorf("failed to read current rune page: %w", err)
	}
	if current != nil && current.ID != 0 && current.IsDeletable {
		if err := a.pages.DeleteRunePage(ctx, current.ID); err != nil {
			return fmt.Errorf("failed to delete rune page %d: %w", current.ID, err)
		}
	}

	if _, err := a.pages.CreateRunePage(ctx, page); err != nil {
		return fmt.Errorf("failed to create rune page: %w", err)
	}
	return nil
}

// BestRune returns the highest scoring rune across docs. Runes for position
// are preferred when any exist.
func BestRune(docs []jsdelivr.BuildDocument, position string) (jsdelivr.Rune, bool) {
	want := normalizePosition(position)

	var best, bestForPosition jsdelivr.Rune
	var found, foundForPosition bool
	for _, doc := range docs {
		for _, r := range doc.Runes {
			if len(r.SelectedPerkIDs) == 0 {
				continue
			}
			if !found || r.Score > best.Score {
				best, found = r, true
			}

			pos := r.Position
			if pos == "" {
				pos = doc.Position
			}
			if want != "" && normalizePosition(pos) == want {
				if !foundForPosition || r.Score > bestForPosition.Score {
					bestForPosition, foundForPosition = r, true
				}
			}
		}
	}

	if foundForPosition {
		return bestForPosition, true
	}
	return best, found
}

// normalizePosition maps client and source position names to one vocabulary
func normalizePosition(p string) string {
	switch p = strings.ToLower(p); p {
	case "middle", "mid":
		return "mid"
	case "bottom", "bot", "adc":
		return "adc"
	case "utility", "support", "sup":
		return "support"
	case "jungle", "jg":
		return "jungle"
	default:
		return p
	}
}

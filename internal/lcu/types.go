package lcu

// ChampSelectSession is the champion select state
type ChampSelectSession struct {
	GameID            int64                 `json:"gameId"`
	Timer             ChampSelectTimer      `json:"timer"`
	MyTeam            []ChampSelectPlayer   `json:"myTeam"`
	TheirTeam         []ChampSelectPlayer   `json:"theirTeam"`
	Actions           [][]ChampSelectAction `json:"actions"`
	LocalPlayerCellID int                   `json:"localPlayerCellId"`
}

// ChampSelectTimer is the phase clock of champion select
type ChampSelectTimer struct {
	Phase            string `json:"phase"`
	TotalTimeInPhase int    `json:"totalTimeInPhase"`
	TimeLeftInPhase  int    `json:"timeLeftInPhase"`
}

// ChampSelectPlayer is one slot of a team
type ChampSelectPlayer struct {
	CellID           int    `json:"cellId"`
	ChampionID       int    `json:"championId"`
	SummonerID       int64  `json:"summonerId"`
	AssignedPosition string `json:"assignedPosition"`
	Team             int    `json:"team"`
}

// ChampSelectAction is a pick or ban turn
type ChampSelectAction struct {
	ID           int    `json:"id"`
	ActorCellID  int    `json:"actorCellId"`
	ChampionID   int    `json:"championId"`
	Type         string `json:"type"` // "pick", "ban"
	Completed    bool   `json:"completed"`
	IsInProgress bool   `json:"isInProgress"`
}

// LocalChampionID returns the champion the local player has locked or is
// hovering, or 0 when none
func (s *ChampSelectSession) LocalChampionID() int {
	for _, p := range s.MyTeam {
		if p.CellID == s.LocalPlayerCellID && p.ChampionID > 0 {
			return p.ChampionID
		}
	}
	for _, group := range s.Actions {
		for _, a := range group {
			if a.ActorCellID == s.LocalPlayerCellID && a.Type == "pick" && a.ChampionID > 0 {
				return a.ChampionID
			}
		}
	}
	return 0
}

// LocalPosition returns the local player's assigned position, if any
func (s *ChampSelectSession) LocalPosition() string {
	for _, p := range s.MyTeam {
		if p.CellID == s.LocalPlayerCellID {
			return p.AssignedPosition
		}
	}
	return ""
}

// RunePage is a rune page as stored by the client
type RunePage struct {
	ID              int    `json:"id,omitempty"`
	Name            string `json:"name"`
	PrimaryStyleID  int    `json:"primaryStyleId"`
	SubStyleID      int    `json:"subStyleId"`
	SelectedPerkIDs []int  `json:"selectedPerkIds"`
	Current         bool   `json:"current"`
	IsEditable      bool   `json:"isEditable,omitempty"`
	IsDeletable     bool   `json:"isDeletable,omitempty"`
}

package setgame

import (
	"set-game-server/internal/game"
)

// Vote outcomes reported in VoteResult.Reason.
const (
	VoteInProgress      = "voting_in_progress"
	VoteMajorityReached = "majority_reached"
	VoteFailed          = "voting_failed"
	VoteNoVoting        = "no_voting"
	VoteNotInGame       = "not_in_game"
	VoteNotPlaying      = "not_playing"
)

// VoteTally counts a vote. Required is fixed at four of the six seats no
// matter how many players are present.
type VoteTally struct {
	Yes      int `json:"yes"`
	No       int `json:"no"`
	Total    int `json:"total"`
	Required int `json:"required"`
}

type VoteResult struct {
	Success      bool      `json:"success"`
	Reason       string    `json:"reason"`
	VoterID      string    `json:"voter_id,omitempty"`
	Vote         bool      `json:"vote"`
	Votes        VoteTally `json:"votes"`
	VotingFailed bool      `json:"voting_failed"`
}

func (g *Game) tally(votes map[string]bool) VoteTally {
	t := VoteTally{Total: len(g.state.participants()), Required: RequiredVotes}
	for _, yes := range votes {
		if yes {
			t.Yes++
		} else {
			t.No++
		}
	}
	return t
}

// impossible reports whether the no votes already rule out a majority.
func (t VoteTally) impossible() bool {
	return t.No > t.Total-t.Required
}

func (g *Game) castVote(votes map[string]bool, voterID string, vote bool) (VoteResult, error) {
	if _, err := g.participant(voterID); err != nil {
		return VoteResult{}, err
	}
	votes[voterID] = vote
	return VoteResult{VoterID: voterID, Vote: vote, Votes: g.tally(votes)}, nil
}

// RequestBackToLobby opens, or adds to, a vote to abandon the game and return
// everyone to the lobby. The requester votes yes.
func (g *Game) RequestBackToLobby(requesterID string) (VoteResult, error) {
	if g.state.Phase != PhasePlaying && g.state.Phase != PhaseReady {
		return VoteResult{Reason: VoteNotInGame}, nil
	}
	res, err := g.castVote(g.state.BackToLobbyVotes, requesterID, true)
	if err != nil {
		return VoteResult{}, err
	}
	return g.resolveBackToLobby(res), nil
}

// VoteBackToLobby records a vote in an open back-to-lobby vote.
func (g *Game) VoteBackToLobby(voterID string, vote bool) (VoteResult, error) {
	if g.state.Phase != PhasePlaying && g.state.Phase != PhaseReady {
		return VoteResult{Reason: VoteNotInGame}, nil
	}
	if len(g.state.BackToLobbyVotes) == 0 {
		return VoteResult{Reason: VoteNoVoting}, nil
	}
	res, err := g.castVote(g.state.BackToLobbyVotes, voterID, vote)
	if err != nil {
		return VoteResult{}, err
	}
	return g.resolveBackToLobby(res), nil
}

func (g *Game) resolveBackToLobby(res VoteResult) VoteResult {
	switch {
	case res.Votes.Yes >= RequiredVotes:
		g.returnToLobby()
		res.Success = true
		res.Reason = VoteMajorityReached
	case res.Votes.impossible():
		clear(g.state.BackToLobbyVotes)
		res.Reason = VoteFailed
		res.VotingFailed = true
	default:
		res.Reason = VoteInProgress
	}
	return res
}

// returnToLobby discards the game in progress, unlocks the lobby and clears
// out anyone who left while the game was on.
func (g *Game) returnToLobby() {
	g.resetTable()
	g.state.Phase = PhaseLobby
	g.state.LobbyLocked = false
	g.state.CurrentDealer = ""
	g.setTurn("")
	for _, p := range g.state.Players {
		p.Hand = []game.Card{}
	}
	g.CleanupDisconnectedSeats()
	g.RemoveDisconnectedPlayers()
}

// RequestAbort starts a fresh vote to abort the game in play. Earlier abort
// votes are discarded and the requester votes yes.
func (g *Game) RequestAbort(requesterID string) (VoteResult, error) {
	if g.state.Phase != PhasePlaying {
		return VoteResult{Reason: VoteNotPlaying}, nil
	}
	if _, err := g.participant(requesterID); err != nil {
		return VoteResult{}, err
	}
	clear(g.state.AbortVotes)
	res, err := g.castVote(g.state.AbortVotes, requesterID, true)
	if err != nil {
		return VoteResult{}, err
	}
	return g.resolveAbort(res), nil
}

// VoteAbort records a vote in an open abort vote.
func (g *Game) VoteAbort(voterID string, vote bool) (VoteResult, error) {
	if g.state.Phase != PhasePlaying {
		return VoteResult{Reason: VoteNotPlaying}, nil
	}
	if len(g.state.AbortVotes) == 0 {
		return VoteResult{Reason: VoteNoVoting}, nil
	}
	res, err := g.castVote(g.state.AbortVotes, voterID, vote)
	if err != nil {
		return VoteResult{}, err
	}
	return g.resolveAbort(res), nil
}

func (g *Game) resolveAbort(res VoteResult) VoteResult {
	switch {
	case res.Votes.Yes >= RequiredVotes:
		g.abort()
		res.Success = true
		res.Reason = VoteMajorityReached
	case res.Votes.impossible():
		clear(g.state.AbortVotes)
		res.Reason = VoteFailed
		res.VotingFailed = true
	default:
		res.Reason = VoteInProgress
	}
	return res
}

// abort ends the game with nothing scored. The dealer is kept so the next
// deal rotates from the right seat.
func (g *Game) abort() {
	g.resetTable()
	g.state.Phase = PhaseEnded
	g.setTurn("")
	for _, p := range g.state.Players {
		p.Hand = []game.Card{}
	}
}

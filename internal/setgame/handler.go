package setgame

type CommandType string

const (
	// Lobby
	CmdSelectTeam       CommandType = "select_team"
	CmdLeaveSeat        CommandType = "leave_seat"
	CmdAddAIPlayer      CommandType = "add_ai_player"
	CmdApproveSpectator CommandType = "approve_spectator"
	CmdStart            CommandType = "start"

	// Dealing
	CmdShuffleDeal        CommandType = "shuffle_deal"
	CmdShuffleDealNewGame CommandType = "shuffle_deal_new_game"
	CmdStartNewRound      CommandType = "start_new_round"

	// Play
	CmdAsk                 CommandType = "ask"
	CmdConfirmPass         CommandType = "confirm_pass"
	CmdLaydown             CommandType = "laydown"
	CmdPassCards           CommandType = "pass_cards"
	CmdHandoffAfterLaydown CommandType = "handoff_after_laydown"

	// Votes
	CmdRequestAbort       CommandType = "request_abort"
	CmdVoteAbort          CommandType = "vote_abort"
	CmdRequestBackToLobby CommandType = "request_back_to_lobby"
	CmdVoteBackToLobby    CommandType = "vote_back_to_lobby"

	// Relayed without touching the game
	CmdBubbleMessage       CommandType = "bubble_message"
	CmdClearBubbleMessages CommandType = "clear_bubble_messages"
	CmdSync                CommandType = "sync"
)

var commandTypes = map[CommandType]bool{
	CmdSelectTeam: true, CmdLeaveSeat: true, CmdAddAIPlayer: true, CmdApproveSpectator: true, CmdStart: true,
	CmdShuffleDeal: true, CmdShuffleDealNewGame: true, CmdStartNewRound: true,
	CmdAsk: true, CmdConfirmPass: true, CmdLaydown: true, CmdPassCards: true, CmdHandoffAfterLaydown: true,
	CmdRequestAbort: true, CmdVoteAbort: true, CmdRequestBackToLobby: true, CmdVoteBackToLobby: true,
	CmdBubbleMessage: true, CmdClearBubbleMessages: true, CmdSync: true,
}

func (c CommandType) Valid() bool {
	return commandTypes[c]
}

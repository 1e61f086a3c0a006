package domain

import "errors"

var (
	// ErrRoomNotFound indicates the requested room tag is not in the catalog.
	ErrRoomNotFound = errors.New("room not found")
	// ErrMessageNotFound indicates the message does not exist (or is no longer buffered).
	ErrMessageNotFound = errors.New("message not found")
	// ErrInvalidMessage indicates a message failed validation.
	ErrInvalidMessage = errors.New("invalid message")
	// ErrNoActiveRoom is returned by room operations while the room-selection view is shown.
	ErrNoActiveRoom = errors.New("no active room")
	// ErrNotAuthor is returned when a user edits someone else's message.
	ErrNotAuthor = errors.New("not the message author")
	// ErrProfileNotFound indicates the author profile does not exist.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrQuestionSetNotFound indicates the question set does not exist.
	ErrQuestionSetNotFound = errors.New("question set not found")
	// ErrNoQuestions indicates a question set without playable questions.
	ErrNoQuestions = errors.New("no questions")
	// ErrGameNotFound indicates the game session does not exist.
	ErrGameNotFound = errors.New("game not found")
	ErrGameOver     = errors.New("game is over")
	// ErrNotAwaiting is returned for commands issued outside the awaiting-selection phase.
	ErrNotAwaiting      = errors.New("not awaiting a selection")
	ErrInvalidOption    = errors.New("invalid option")
	ErrOptionDisabled   = errors.New("option disabled")
	ErrLifelineUsed     = errors.New("lifeline already used")
	ErrUnknownLifeline  = errors.New("unknown lifeline")
	ErrExitNotConfirmed = errors.New("exit not confirmed")

	// ErrNoJSON indicates AI output without a JSON payload.
	ErrNoJSON = errors.New("no json payload found")
)

package engine

// Outcome enumerates the result codes the command surface reports.
type Outcome int

const (
	Success Outcome = iota
	NoPlaylistFound
	NoValidInput
	MissingArgument
	NotLoaded
	NoCommand
	NoInput
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case NoPlaylistFound:
		return "no_playlist_found"
	case NoValidInput:
		return "no_valid_input"
	case MissingArgument:
		return "missing_argument"
	case NotLoaded:
		return "not_loaded"
	case NoCommand:
		return "no_command"
	case NoInput:
		return "no_input"
	default:
		return "unknown"
	}
}

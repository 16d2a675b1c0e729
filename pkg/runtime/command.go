package runtime

// RefreshCommand asks for the current value of a channel instead of writing it.
const RefreshCommand = "REFRESH"

type CommandStatus string

const (
	CommandApplied  CommandStatus = "applied"
	CommandRejected CommandStatus = "rejected"
	CommandFailed   CommandStatus = "failed"
)

// CommandResult reports the outcome of one command. Rejected commands never
// reached the wire.
type CommandResult struct {
	ChannelId string        `json:"channelId"`
	Status    CommandStatus `json:"status"`
	Value     interface{}   `json:"value,omitempty"`
	Error     string        `json:"error,omitempty"`
	Err       error         `json:"-"`
}

func IsRefresh(cmd interface{}) bool {
	s, ok := cmd.(string)
	return ok && s == RefreshCommand
}

package core

// DefaultCountdown is the number of seconds the success screen stays up after authentication.
const DefaultCountdown = 10

// Stage names the position of the controller in the authentication sequence.
type Stage string

const (
	StageDisconnected   Stage = "disconnected"
	StageConnected      Stage = "connected"
	StageAuthenticating Stage = "authenticating"
	StageWaiting        Stage = "waiting"
	StageDiscovering    Stage = "discovering"
	StageSteady         Stage = "steady"
)

// AuthSession is the persisted authentication state of the current wallet
type AuthSession struct {
	IsAuthenticated bool   // Set only while a bearer token is held
	Token           string // Bearer credential issued by the verify endpoint
	Address         string // Public address the token was issued for
}

// UIState is the transient modal state driven by the controller
type UIState struct {
	SuccessModalOpen   bool
	DiscoveryModalOpen bool
	Countdown          int
}

// Snapshot is a read-only copy of the controller state handed to presentation code
type Snapshot struct {
	Stage              Stage  `json:"stage"`
	WalletConnected    bool   `json:"wallet_connected"`
	Address            string `json:"address,omitempty"`
	IsAuthenticated    bool   `json:"is_authenticated"`
	Authenticating     bool   `json:"authenticating"`
	SuccessModalOpen   bool   `json:"success_modal_open"`
	DiscoveryModalOpen bool   `json:"discovery_modal_open"`
	Countdown          int    `json:"countdown"`
}

package component

import (
	"github.com/yohamta/donburi"

	"github.com/lixenwraith/audiosync/delay"
)

// AudioControlComponent binds a mixer sample clock to the game tick loop
type AudioControlComponent struct {
	Clock delay.Clock
	Hz    uint32 // Tick rate for the audio tick conversion, 0 uses the scheduler rate
}

// DelayComponent holds the drift tracker of an audio-control entity
// Added by the sync system on the first tick that sees the entity
type DelayComponent struct {
	delay.State
}

var (
	AudioControl = donburi.NewComponentType[AudioControlComponent]()
	Delay        = donburi.NewComponentType[DelayComponent]()
)

package constant

import "time"

// Clock Synchronization
const (
	// TickRate is the default fixed game tick rate in Hz
	TickRate = 60

	// InitialTolerance is the starting drift window in ticks
	InitialTolerance = 4

	// HysteresisTicks is the sustained low-drift streak required before tightening the window
	HysteresisTicks = 16

	// SchedulerMaxBehind caps deadline catch-up in tick intervals
	SchedulerMaxBehind = 2

	// MonitorRefresh is the terminal monitor redraw interval
	MonitorRefresh = 100 * time.Millisecond
)

// System priorities, lower runs first
const (
	PriorityAudioSync = 0
	PriorityCue       = 10
)

// Labels
const (
	// LabelListener marks the audio-control entity the sync system corrects
	LabelListener = "listener"
)

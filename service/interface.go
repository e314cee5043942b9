package service

// Service is the lifecycle of a long-lived infrastructure subsystem
//
// Lifecycle:
//  1. Construction
//  2. Init(hub) - resolve dependencies registered in the hub, build resources
//  3. Start() - launch background goroutines
//  4. [runtime operation]
//  5. Stop() - halt goroutines, release resources; must be idempotent
type Service interface {
	// Name returns the unique identifier for this service
	Name() string

	// Dependencies returns names of services that must Init and Start before this one
	Dependencies() []string

	// Init configures the service; dependencies are already initialized
	Init(hub *Hub) error

	// Start begins service operation, called after every service initialized
	Start() error

	// Stop halts service operation and releases resources
	Stop() error
}

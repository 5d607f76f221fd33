package clnet

// ServerState is the state of the host running in the client process.
type ServerState int

const (
	ServerDead ServerState = iota
	ServerLoading
	ServerGame
	ServerCinematic
	ServerDemo
	ServerPic
)

// A Host is the server that may run in the same process as the client.
type Host interface {
	State() ServerState
	MaxClients() int
	Shutdown(message string)
}

// A Pauser controls the pause flag of the local simulation.
type Pauser interface {
	Paused() bool
	SetPaused(paused bool)
}

// A Downloader transfers files from a secondary download source.
type Downloader interface {
	InProgress() bool
	Cancel()

	// SetServer enables downloads from url.
	SetServer(url, referer string)
}

// A Screen is the part of the renderer the connection layer drives.
type Screen interface {
	BeginLoadingPlaque()
	EndLoadingPlaque()

	// Reset clears view blends, palette, menus and cinematics.
	Reset()
}

// Sound stops playing audio.
type Sound interface {
	StopAllSounds()
	StopMusic()
}

// A Demo records and times demos.
type Demo interface {
	Recording() bool
	StopRecording()

	// Timedemo returns the frame count and start time of a running
	// timedemo. ok is false if no timedemo runs.
	Timedemo() (frames int, start int64, ok bool)
}

// Input holds the key state.
type Input interface {
	ClearKeys()
}

type nopHost struct{}

func (nopHost) State() ServerState { return ServerDead }
func (nopHost) MaxClients() int { return 0 }
func (nopHost) Shutdown(string) {}

type flagPauser struct{ paused bool }

func (p *flagPauser) Paused() bool { return p.paused }
func (p *flagPauser) SetPaused(paused bool) { p.paused = paused }

type nopScreen struct{}

func (nopScreen) BeginLoadingPlaque() {}
func (nopScreen) EndLoadingPlaque() {}
func (nopScreen) Reset() {}

type nopSound struct{}

func (nopSound) StopAllSounds() {}
func (nopSound) StopMusic() {}

type nopDemo struct{}

func (nopDemo) Recording() bool { return false }
func (nopDemo) StopRecording() {}
func (nopDemo) Timedemo() (int, int64, bool) { return 0, 0, false }

type nopInput struct{}

func (nopInput) ClearKeys() {}

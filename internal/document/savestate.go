package document

// SaveStatus is what the status bar shows about persistence
type SaveStatus int

const (
	Clean SaveStatus = iota
	Dirty
	Saving
)

func (s SaveStatus) String() string {
	switch s {
	case Dirty:
		return "unsaved"
	case Saving:
		return "saving"
	default:
		return "saved"
	}
}

// SaveState tracks edits against completed saves. Every change bumps a
// revision; a save covers the revision current when it started, so edits
// landing while it is in flight leave the document Dirty once it settles.
type SaveState struct {
	rev      uint64
	savedRev uint64
	inFlight int
	lastErr  error
}

// Changed records an edit
func (s *SaveState) Changed() {
	s.rev++
}

// Started records the start of a save and returns the revision it covers
func (s *SaveState) Started() uint64 {
	s.inFlight++
	return s.rev
}

// Settled records the end of the save that covered rev
func (s *SaveState) Settled(rev uint64, err error) {
	if s.inFlight > 0 {
		s.inFlight--
	}
	s.lastErr = err
	if err == nil && rev > s.savedRev {
		s.savedRev = rev
	}
}

// Status derives the current state
func (s *SaveState) Status() SaveStatus {
	switch {
	case s.inFlight > 0:
		return Saving
	case s.rev != s.savedRev:
		return Dirty
	default:
		return Clean
	}
}

// Pending reports whether there are edits no save has covered yet
func (s *SaveState) Pending() bool {
	return s.rev != s.savedRev
}

// Err is the error of the most recent save, nil if it succeeded
func (s *SaveState) Err() error {
	return s.lastErr
}

// Reset marks everything as saved, e.g. after loading a page
func (s *SaveState) Reset() {
	*s = SaveState{}
}

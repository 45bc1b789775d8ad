package upload

import (
	"fmt"
	"sync"

	"gallery/internal/bucket"
	"gallery/internal/models"
	"gallery/internal/raster"
)

type State int

const (
	Idle State = iota
	FileChosen
	Cropping
	Rasterizing
	Uploading
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case FileChosen:
		return "file_chosen"
	case Cropping:
		return "cropping"
	case Rasterizing:
		return "rasterizing"
	case Uploading:
		return "uploading"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Busy reports whether an upload is committed and running.
func (s State) Busy() bool {
	return s == Rasterizing || s == Uploading
}

// Editable reports whether the crop selection may still change or be
// cancelled.
func (s State) Editable() bool {
	return s == FileChosen || s == Cropping
}

const (
	StageDecode    = "decode"
	StageCrop      = "crop"
	StageRasterize = "rasterize"
	StageUpload    = "upload"
)

// StageError is the failure of one upload attempt, naming where it stopped.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// Session is one operator's upload state. The caller owns it; the
// Orchestrator only moves it between states.
type Session struct {
	mu sync.Mutex

	id        string
	state     State
	filename  string
	source    *raster.Source
	bucket    bucket.Bucket
	selection models.CropSelection
	asset     *models.ImageAsset
	failure   *StageError
}

func NewSession(id string) *Session {
	return &Session{id: id}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot is a read-only copy of a session for display.
type Snapshot struct {
	ID           string                `json:"id"`
	State        string                `json:"state"`
	Filename     string                `json:"filename,omitempty"`
	Bucket       string                `json:"bucket,omitempty"`
	SourceWidth  int                   `json:"sourceWidth,omitempty"`
	SourceHeight int                   `json:"sourceHeight,omitempty"`
	Selection    *models.CropSelection `json:"selection,omitempty"`
	Asset        *models.ImageAsset    `json:"asset,omitempty"`
	Stage        string                `json:"stage,omitempty"`
	Error        string                `json:"error,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{ID: s.id, State: s.state.String(), Filename: s.filename}
	if s.state != Idle {
		snap.Bucket = s.bucket.String()
	}
	if s.source != nil {
		snap.SourceWidth = s.source.Width()
		snap.SourceHeight = s.source.Height()
		sel := s.selection
		snap.Selection = &sel
	}
	if s.asset != nil {
		asset := *s.asset
		snap.Asset = &asset
	}
	if s.failure != nil {
		snap.Stage = s.failure.Stage
		snap.Error = s.failure.Err.Error()
	}
	return snap
}

// resetLocked drops everything from the previous attempt.
func (s *Session) resetLocked() {
	s.state = Idle
	s.filename = ""
	s.source = nil
	s.bucket = bucket.Bucket{}
	s.selection = models.CropSelection{}
	s.asset = nil
	s.failure = nil
}

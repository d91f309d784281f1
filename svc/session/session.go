// Package session holds the in-memory editing state for one paste and
// the rules for moving it between composing, saved and read-only
// viewing. All writes to the ownership ledger happen here.
package session

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"oxypaste/pkg/domain"
	"oxypaste/pkg/lang"
	"oxypaste/svc/ledger"
	"oxypaste/svc/util"
)

type State int

const (
	// Empty: no paste loaded, nothing typed yet.
	Empty State = iota
	// Editing: user is composing; draft not yet persisted.
	Editing
	// Saved: server confirmed the paste; draft superseded.
	Saved
	// Viewing: read-only display of an existing paste.
	Viewing
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Editing:
		return "editing"
	case Saved:
		return "saved"
	case Viewing:
		return "viewing"
	}
	return "unknown"
}

// PasteAPI is the slice of the transport the session needs.
type PasteAPI interface {
	Create(ctx context.Context, draft domain.Draft) (*domain.Paste, string, error)
	Get(ctx context.Context, id string) (*domain.Paste, error)
	Delete(ctx context.Context, id, revocationKey string) error
}

// TokenProvider reports whether an authenticated session exists.
type TokenProvider interface {
	Token(ctx context.Context) (string, bool)
}

// Detector maps content to a best-guess language.
type Detector func(content string) lang.Language

type Session struct {
	api    PasteAPI
	ledger *ledger.Ledger
	tokens TokenProvider
	detect Detector

	state      State
	draft      domain.Draft
	paste      *domain.Paste
	autoDetect bool
	revision   uint64
	saving     bool
}

func New(api PasteAPI, led *ledger.Ledger, tokens TokenProvider, detect Detector) *Session {
	if api == nil || led == nil || tokens == nil {
		panic("session: nil dependency (api, ledger, or tokens)")
	}
	if detect == nil {
		detect = lang.Detect
	}
	return &Session{
		api:        api,
		ledger:     led,
		tokens:     tokens,
		detect:     detect,
		autoDetect: true,
	}
}

func (s *Session) State() State         { return s.state }
func (s *Session) Draft() domain.Draft  { return s.draft }
func (s *Session) Paste() *domain.Paste { return s.paste }
func (s *Session) AutoDetect() bool     { return s.autoDetect }
func (s *Session) Revision() uint64     { return s.revision }
func (s *Session) Saving() bool         { return s.saving }

// StartNew begins a fresh composing session, optionally seeded with
// welcome-document content. Any previous draft is discarded.
func (s *Session) StartNew(seed string) {
	s.state = Editing
	s.paste = nil
	s.draft = domain.Draft{Content: seed, Public: true}
	s.autoDetect = true
	s.revision++
	if seed != "" {
		s.draft.Language = s.detect(seed)
	}
}

// SetContent replaces the draft content and returns the new revision.
// While auto-detect is on, the language is re-derived synchronously;
// async callers may instead detect off-thread and commit the result
// with ApplyDetection against the returned revision.
func (s *Session) SetContent(content string) uint64 {
	if s.state == Empty {
		s.state = Editing
		s.autoDetect = true
		s.draft.Public = true
	}
	s.draft.Content = content
	s.revision++
	return s.revision
}

// DetectNow re-derives the draft language from current content. No-op
// unless auto-detect is on.
func (s *Session) DetectNow() {
	if !s.autoDetect {
		return
	}
	s.draft.Language = s.detect(s.draft.Content)
}

// ApplyDetection commits an asynchronously computed detection result.
// A result is stale when its revision no longer matches or when an
// explicit language pick raced it; stale results are discarded so
// newer state never gets overwritten (latest content wins).
func (s *Session) ApplyDetection(revision uint64, detected lang.Language) bool {
	if !s.autoDetect || revision != s.revision {
		return false
	}
	s.draft.Language = detected
	return true
}

func (s *Session) SetTitle(title string) {
	if s.state == Empty {
		s.state = Editing
	}
	s.draft.Title = title
}

func (s *Session) SetPublic(public bool) {
	if s.state == Empty {
		s.state = Editing
	}
	s.draft.Public = public
}

// ChooseLanguage records an explicit pick from the language menu.
// Picking Auto Detect re-enables detection and re-derives immediately;
// anything else pins the language and stops detection overwrites.
func (s *Session) ChooseLanguage(l lang.Language) {
	if l == lang.AutoDetect {
		s.autoDetect = true
		s.DetectNow()
		return
	}
	s.autoDetect = false
	s.draft.Language = l
}

// BeginSave validates that a save may start, marks one in flight, and
// returns a snapshot of the draft for the transport call. Event-driven
// callers run the network call off the event loop against the snapshot
// and feed the result back through CommitSave.
func (s *Session) BeginSave() (domain.Draft, error) {
	if s.state != Editing {
		return domain.Draft{}, domain.NewErr(domain.KindValidation, "NOT_EDITING", "nothing to save")
	}
	if s.saving {
		return domain.Draft{}, domain.NewErr(domain.KindValidation, "SAVE_IN_FLIGHT", "a save is already in progress")
	}
	s.saving = true
	return s.draft, nil
}

// CommitSave applies the outcome of a save started with BeginSave. On
// failure the draft is left untouched so no input is lost. On anonymous
// success the revocation key is recorded in the ledger before the
// state flips to Saved.
func (s *Session) CommitSave(ctx context.Context, paste *domain.Paste, revocationKey string, saveErr error) (*domain.Paste, error) {
	s.saving = false
	if saveErr != nil {
		return nil, errors.Wrap(saveErr, "save paste")
	}
	_, authed := s.tokens.Token(ctx)
	if !authed && revocationKey != "" {
		createdAt := paste.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		if lerr := s.ledger.Record(ctx, paste.ID, revocationKey, createdAt); lerr != nil {
			// The paste exists server-side either way; losing the
			// revocation key only costs local deletion rights.
			util.Warn().Err(lerr).Str("id", paste.ID).Msg("failed to record ownership")
		}
	}
	s.paste = paste
	s.draft = domain.Draft{
		Title:    paste.Title,
		Content:  paste.Content,
		Language: paste.Language,
		Public:   paste.Public,
	}
	s.state = Saved
	return paste, nil
}

// Save is the synchronous path used by the non-interactive CLI.
func (s *Session) Save(ctx context.Context) (*domain.Paste, error) {
	draft, err := s.BeginSave()
	if err != nil {
		return nil, err
	}
	paste, revocationKey, createErr := s.api.Create(ctx, draft)
	return s.CommitSave(ctx, paste, revocationKey, createErr)
}

// ShowPaste hydrates from an already-fetched paste and enters Viewing.
// Event-driven callers fetch off the event loop and commit here.
func (s *Session) ShowPaste(paste *domain.Paste) {
	s.hydrate(paste)
	s.state = Viewing
}

// EditPaste hydrates from an already-fetched paste and enters Editing.
func (s *Session) EditPaste(paste *domain.Paste) {
	s.hydrate(paste)
	s.state = Editing
}

// View loads a paste read-only. Viewing is reachable from any state;
// the current draft, if any, is discarded.
func (s *Session) View(ctx context.Context, id string) error {
	paste, err := s.api.Get(ctx, id)
	if err != nil {
		return err
	}
	s.ShowPaste(paste)
	return nil
}

// Edit re-fetches a paste and re-hydrates the draft for mutation.
func (s *Session) Edit(ctx context.Context, id string) error {
	paste, err := s.api.Get(ctx, id)
	if err != nil {
		return err
	}
	s.EditPaste(paste)
	return nil
}

// EditCurrent switches a saved or viewed paste back into editing.
func (s *Session) EditCurrent(ctx context.Context) error {
	if s.paste == nil {
		return domain.NewErr(domain.KindValidation, "NO_PASTE", "no paste loaded")
	}
	return s.Edit(ctx, s.paste.ID)
}

func (s *Session) hydrate(paste *domain.Paste) {
	s.paste = paste
	s.draft = domain.Draft{
		Title:    paste.Title,
		Content:  paste.Content,
		Language: paste.Language,
		Public:   paste.Public,
	}
	s.revision++
	// A stored language means the author chose one; only unset
	// languages fall back to detection for display.
	s.autoDetect = paste.Language == lang.AutoDetect
}

// DisplayLanguage is the language to highlight with right now: the
// draft's pick, or a detection-derived guess while in auto-detect.
func (s *Session) DisplayLanguage() lang.Language {
	if s.autoDetect {
		return s.detect(s.draft.Content)
	}
	return s.draft.Language
}

// BeginDelete resolves the credential for deleting a paste: the
// ledger's revocation key if the paste was created anonymously here,
// otherwise nothing and the bearer token carries the request. No
// server call happens; event-driven callers run the transport delete
// off the event loop and feed the outcome to CommitDelete.
func (s *Session) BeginDelete(ctx context.Context, id string) (string, bool, error) {
	entry, owned, err := s.ledger.Find(ctx, id)
	if err != nil {
		return "", false, errors.Wrap(err, "look up ownership")
	}
	if !owned {
		return "", false, nil
	}
	return entry.RevocationKey, true, nil
}

// CommitDelete applies the outcome of a delete started with
// BeginDelete. A confirmed deletion drops the ledger entry and resets
// the session when the deleted paste is the one loaded; a failed one
// changes nothing.
func (s *Session) CommitDelete(ctx context.Context, id string, owned bool, delErr error) error {
	if delErr != nil {
		return delErr
	}
	if owned {
		if lerr := s.ledger.Remove(ctx, id); lerr != nil {
			util.Warn().Err(lerr).Str("id", id).Msg("failed to drop ledger entry")
		}
	}
	if s.paste != nil && s.paste.ID == id {
		s.paste = nil
		s.draft = domain.Draft{}
		s.state = Empty
	}
	return nil
}

// Delete is the synchronous path used by the non-interactive CLI.
func (s *Session) Delete(ctx context.Context, id string) error {
	revocationKey, owned, err := s.BeginDelete(ctx, id)
	if err != nil {
		return err
	}
	return s.CommitDelete(ctx, id, owned, s.api.Delete(ctx, id, revocationKey))
}

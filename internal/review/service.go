package review

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"jobmate/discovery/internal/logging"
	"jobmate/discovery/internal/model"
	"jobmate/discovery/internal/storage"
)

// ErrNotFound is returned when no job has the requested id.
var ErrNotFound = errors.New("job not found")

// ValidationError is returned for bad input; handlers map it to 400.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// Store is the subset of storage.SQLStore the service needs.
type Store interface {
	List(ctx context.Context, table string, includeHidden bool) ([]model.JobRecord, error)
	Get(ctx context.Context, table string, id int64) (model.JobRecord, error)
	SetFlag(ctx context.Context, table string, id int64, column string, value bool) error
	ToggleFlag(ctx context.Context, table string, id int64, column string) (bool, error)
	SetText(ctx context.Context, table string, id int64, column, value string) error
}

// Publisher announces workflow changes.
type Publisher interface {
	Publish(ctx context.Context, v any) error
}

// Update is the payload published after every mutation.
type Update struct {
	ID     int64  `json:"id"`
	Field  string `json:"field"`
	Bool   *bool  `json:"value,omitempty"`
	Length int    `json:"length,omitempty"` // text fields: new length
}

// maxTextLen bounds notes and tailored resumes.
const maxTextLen = 64 << 10

// Service encapsulates the review operations on one table. It has no
// dependency on net/http.
type Service struct {
	store Store
	table string
	pub   Publisher
	log   zerolog.Logger
}

// NewService returns a Service over table. pub may be nil.
func NewService(store Store, table string, pub Publisher, log zerolog.Logger) *Service {
	return &Service{store: store, table: table, pub: pub, log: logging.Component(log, "review")}
}

// List returns jobs ordered by posted date then id, newest first.
func (s *Service) List(ctx context.Context, includeHidden bool) ([]model.JobRecord, error) {
	jobs, err := s.store.List(ctx, s.table, includeHidden)
	if err != nil {
		return nil, err
	}
	if jobs == nil {
		jobs = []model.JobRecord{}
	}
	return jobs, nil
}

// Get returns one job.
func (s *Service) Get(ctx context.Context, id int64) (*model.JobRecord, error) {
	j, err := s.store.Get(ctx, s.table, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return &j, nil
}

// SetFlag sets one of hidden, applied, interview or rejected.
func (s *Service) SetFlag(ctx context.Context, id int64, flag Flag, value bool) (*model.JobRecord, error) {
	if flag == FlagStarred {
		return nil, &ValidationError{Msg: "starred is toggled, not set"}
	}
	if _, err := ParseFlag(string(flag)); err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}
	if err := s.store.SetFlag(ctx, s.table, id, string(flag), value); err != nil {
		return nil, mapErr(err)
	}
	s.publish(ctx, Update{ID: id, Field: string(flag), Bool: &value})
	return s.Get(ctx, id)
}

// ToggleStar flips starred and returns the new value.
func (s *Service) ToggleStar(ctx context.Context, id int64) (bool, error) {
	on, err := s.store.ToggleFlag(ctx, s.table, id, string(FlagStarred))
	if err != nil {
		return false, mapErr(err)
	}
	s.publish(ctx, Update{ID: id, Field: string(FlagStarred), Bool: &on})
	return on, nil
}

// SetNotes replaces the free-text notes.
func (s *Service) SetNotes(ctx context.Context, id int64, notes string) (*model.JobRecord, error) {
	return s.setText(ctx, id, "notes", notes)
}

// SetTailoredResume stores a resume produced for this job.
func (s *Service) SetTailoredResume(ctx context.Context, id int64, resume string) (*model.JobRecord, error) {
	return s.setText(ctx, id, "tailored_resume", resume)
}

func (s *Service) setText(ctx context.Context, id int64, column, value string) (*model.JobRecord, error) {
	if len(value) > maxTextLen {
		return nil, &ValidationError{Msg: column + " is too long"}
	}
	if err := s.store.SetText(ctx, s.table, id, column, value); err != nil {
		return nil, mapErr(err)
	}
	s.publish(ctx, Update{ID: id, Field: column, Length: len(value)})
	return s.Get(ctx, id)
}

// publish is non-fatal: a lost notification never fails the mutation.
func (s *Service) publish(ctx context.Context, u Update) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, u); err != nil {
		s.log.Warn().Err(err).Int64("id", u.ID).Str("field", u.Field).Msg("publish job update failed")
	}
}

func mapErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

package applications

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/fileurl"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/mailer"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/models"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/storage"
	"github.com/fishcollege/fishcollege/backend/go-services/pkg/logger"
	"github.com/fishcollege/fishcollege/backend/go-services/pkg/metrics"
)

// MaxDocuments bounds the number of files attached to one application.
const MaxDocuments = 5

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]{5,18}[0-9]$`)

// FileStore is the part of storage.Store the service needs.
type FileStore interface {
	SaveAll(ctx context.Context, dir string, ups []storage.Upload) ([]models.FileMeta, error)
	DeleteAll(ctx context.Context, files []models.FileMeta)
}

// Submission is the applicant-provided form.
type Submission struct {
	ApplicantName string `form:"applicantName" json:"applicantName"`
	Email         string `form:"email" json:"email"`
	Phone         string `form:"phone" json:"phone"`
	Program       string `form:"program" json:"program"`
	Address       string `form:"address" json:"address"`
	Qualification string `form:"qualification" json:"qualification"`
	Message       string `form:"message" json:"message"`
}

// Options configures notifications.
type Options struct {
	// AdminEmail receives a notification for each submission; empty disables it.
	AdminEmail string
	College    string
	// BaseURL is prefixed to admin document links.
	BaseURL string
}

type Service struct {
	repo  Repository
	files FileStore
	mail  mailer.Mailer
	opts  Options
	now   func() time.Time
}

func NewService(repo Repository, files FileStore, m mailer.Mailer, opts Options) *Service {
	if opts.College == "" {
		opts.College = "the College of Fisheries"
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Service{repo: repo, files: files, mail: m, opts: opts, now: func() time.Time { return time.Now().UTC() }}
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func (sub *Submission) normalize() error {
	sub.ApplicantName = strings.TrimSpace(sub.ApplicantName)
	sub.Email = strings.TrimSpace(sub.Email)
	sub.Phone = strings.TrimSpace(sub.Phone)
	sub.Program = strings.TrimSpace(sub.Program)
	sub.Address = strings.TrimSpace(sub.Address)
	sub.Qualification = strings.TrimSpace(sub.Qualification)
	sub.Message = strings.TrimSpace(sub.Message)

	required := []struct{ field, value string }{
		{"applicantName", sub.ApplicantName},
		{"email", sub.Email},
		{"phone", sub.Phone},
		{"program", sub.Program},
	}
	for _, r := range required {
		if r.value == "" {
			return invalid("%s is required", r.field)
		}
	}
	addr, err := mail.ParseAddress(sub.Email)
	if err != nil || addr.Address != sub.Email {
		return invalid("email is not a valid address")
	}
	if !phonePattern.MatchString(sub.Phone) {
		return invalid("phone is not a valid number")
	}
	return nil
}

// DocumentURL is the admin-only link to an applicant file.
func (s *Service) DocumentURL(id, filename string) string {
	return s.opts.BaseURL + "/api/applications/" + url.PathEscape(id) + "/files/" + url.PathEscape(filename)
}

// Submit validates and stores an application, then notifies the admissions
// office and the applicant. Mail failures are logged; the returned flag
// reports whether every notification went out.
func (s *Service) Submit(ctx context.Context, sub Submission, docs []storage.Upload) (*Application, bool, error) {
	if err := sub.normalize(); err != nil {
		return nil, false, err
	}
	if len(docs) > MaxDocuments {
		return nil, false, invalid("at most %d documents may be attached", MaxDocuments)
	}
	if len(docs) > 0 && s.files == nil {
		return nil, false, invalid("uploads are disabled")
	}

	now := s.now()
	a := &Application{
		ApplicantName: sub.ApplicantName,
		Email:         sub.Email,
		Phone:         sub.Phone,
		Program:       sub.Program,
		Address:       sub.Address,
		Qualification: sub.Qualification,
		Message:       sub.Message,
		Documents:     []models.FileMeta{},
		Status:        StatusSubmitted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if len(docs) > 0 {
		saved, err := s.files.SaveAll(ctx, fileurl.DirApplications, docs)
		if err != nil {
			return nil, false, err
		}
		a.Documents = saved
	}
	if _, err := s.repo.Create(ctx, a); err != nil {
		if s.files != nil {
			s.files.DeleteAll(ctx, a.Documents)
		}
		return nil, false, err
	}
	metrics.ApplicationsSubmitted.Inc()
	logger.With("id", a.ID, "program", a.Program).Info("application submitted")

	return a, s.notify(ctx, a), nil
}

func (s *Service) notify(ctx context.Context, a *Application) bool {
	data := notifyData{College: s.opts.College, App: a}
	for _, d := range a.Documents {
		data.Links = append(data.Links, link{Name: d.OriginalName, URL: s.DocumentURL(a.ID, d.Filename)})
	}
	ok := true
	send := func(template string, build func() (mailer.Message, error)) {
		msg, err := build()
		if err == nil {
			err = s.mail.Send(ctx, msg)
		}
		metrics.MailsSent.WithLabelValues(template, metrics.Outcome(err)).Inc()
		if err != nil {
			ok = false
			logger.Errorf("application %s: %s mail failed: %v", a.ID, template, err)
		}
	}
	if s.opts.AdminEmail != "" {
		send("admin_notification", func() (mailer.Message, error) { return adminMessage(s.opts.AdminEmail, data) })
	}
	send("applicant_ack", func() (mailer.Message, error) { return applicantMessage(data) })
	return ok
}

func (s *Service) List(ctx context.Context, f Filter) ([]*Application, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalid("unknown status %q", f.Status)
	}
	return s.repo.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, id string) (*Application, error) {
	return s.repo.Get(ctx, id)
}

// SetStatus moves an application to status, optionally replacing the notes.
func (s *Service) SetStatus(ctx context.Context, id string, status Status, notes *string) (*Application, error) {
	if !status.Valid() {
		return nil, invalid("unknown status %q", status)
	}
	if err := s.repo.SetStatus(ctx, id, status, notes, s.now()); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes the application and its uploaded documents.
func (s *Service) Delete(ctx context.Context, id string) error {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.files != nil {
		s.files.DeleteAll(ctx, a.Documents)
	}
	return nil
}

// Document returns the metadata of one of the application's files.
func (s *Service) Document(ctx context.Context, id, filename string) (*models.FileMeta, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range a.Documents {
		if a.Documents[i].Filename == filename {
			return &a.Documents[i], nil
		}
	}
	return nil, ErrNotFound
}

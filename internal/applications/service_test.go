package applications

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/mailer"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/storage"
)

func pdfUpload(name string) storage.Upload {
	data := []byte("%PDF-1.4\n%%EOF\n")
	return storage.Upload{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

func newTestService(t *testing.T, rec *mailer.Recorder) (*Service, string) {
	t.Helper()
	root := t.TempDir()
	b, err := storage.NewLocalBackend(root)
	require.NoError(t, err)
	svc := NewService(NewMemoryRepository(), storage.NewStore(b, 1<<20), rec, Options{
		AdminEmail: "admissions@college.example",
		College:    "College of Fisheries",
		BaseURL:    "http://api.test/",
	})
	return svc, root
}

func validSubmission() Submission {
	return Submission{
		ApplicantName: "Ravi Kumar",
		Email:         "ravi@example.com",
		Phone:         "+91 98765 43210",
		Program:       "B.F.Sc.",
		Qualification: "12th Science",
	}
}

func TestSubmit_Validation(t *testing.T) {
	svc, _ := newTestService(t, &mailer.Recorder{})
	ctx := context.Background()

	cases := map[string]func(s *Submission){
		"applicantName is required": func(s *Submission) { s.ApplicantName = "  " },
		"email is required":         func(s *Submission) { s.Email = "" },
		"email is not a valid":      func(s *Submission) { s.Email = "ravi-at-example" },
		"phone is not a valid":      func(s *Submission) { s.Phone = "call me" },
		"program is required":       func(s *Submission) { s.Program = "" },
	}
	for want, mutate := range cases {
		sub := validSubmission()
		mutate(&sub)
		_, _, err := svc.Submit(ctx, sub, nil)
		require.ErrorIs(t, err, ErrValidation, want)
		assert.Contains(t, err.Error(), want)
	}

	docs := make([]storage.Upload, MaxDocuments+1)
	for i := range docs {
		docs[i] = pdfUpload("doc.pdf")
	}
	_, _, err := svc.Submit(ctx, validSubmission(), docs)
	require.ErrorIs(t, err, ErrValidation)
}

func TestSubmit_StoresAndNotifies(t *testing.T) {
	rec := &mailer.Recorder{}
	svc, root := newTestService(t, rec)
	ctx := context.Background()

	a, sent, err := svc.Submit(ctx, validSubmission(), []storage.Upload{pdfUpload("marksheet.pdf")})
	require.NoError(t, err)
	assert.True(t, sent)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, StatusSubmitted, a.Status)
	require.Len(t, a.Documents, 1)
	assert.FileExists(t, filepath.Join(root, "applications", a.Documents[0].Filename))

	msgs := rec.Sent()
	require.Len(t, msgs, 2)
	admin := msgs[0]
	assert.Equal(t, []string{"admissions@college.example"}, admin.To)
	assert.Equal(t, "ravi@example.com", admin.ReplyTo)
	assert.Contains(t, admin.Subject, "Ravi Kumar")
	assert.Contains(t, admin.Text, "marksheet.pdf: http://api.test/api/applications/"+a.ID+"/files/"+a.Documents[0].Filename)
	assert.Contains(t, admin.HTML, "Ravi Kumar")

	ack := msgs[1]
	assert.Equal(t, []string{"ravi@example.com"}, ack.To)
	assert.Contains(t, ack.Text, "B.F.Sc. program at College of Fisheries")
}

func TestSubmit_MailFailureStillPersists(t *testing.T) {
	rec := &mailer.Recorder{Err: errors.New("smtp: connection refused")}
	svc, _ := newTestService(t, rec)
	ctx := context.Background()

	a, sent, err := svc.Submit(ctx, validSubmission(), nil)
	require.NoError(t, err)
	assert.False(t, sent)

	got, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ravi Kumar", got.ApplicantName)
}

func TestStatusAndDelete(t *testing.T) {
	svc, root := newTestService(t, &mailer.Recorder{})
	ctx := context.Background()
	a, _, err := svc.Submit(ctx, validSubmission(), []storage.Upload{pdfUpload("id.pdf")})
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, a.ID, Status("lost"), nil)
	require.ErrorIs(t, err, ErrValidation)

	notes := "interview on Monday"
	got, err := svc.SetStatus(ctx, a.ID, StatusReviewing, &notes)
	require.NoError(t, err)
	assert.Equal(t, StatusReviewing, got.Status)
	assert.Equal(t, notes, got.Notes)

	list, err := svc.List(ctx, Filter{Status: StatusReviewing})
	require.NoError(t, err)
	require.Len(t, list, 1)
	list, err = svc.List(ctx, Filter{Status: StatusAccepted})
	require.NoError(t, err)
	require.Empty(t, list)

	doc, err := svc.Document(ctx, a.ID, a.Documents[0].Filename)
	require.NoError(t, err)
	assert.Equal(t, "id.pdf", doc.OriginalName)
	_, err = svc.Document(ctx, a.ID, "other.pdf")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.Delete(ctx, a.ID))
	assert.NoFileExists(t, filepath.Join(root, "applications", a.Documents[0].Filename))
	_, err = svc.Get(ctx, a.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, a.ID), ErrNotFound)
}

package report

import (
	"context"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/carevault/carevault/internal/platform/auth"
	"github.com/carevault/carevault/internal/platform/blobstore"
	"github.com/carevault/carevault/pkg/validate"
)

type Service struct {
	repo  Repository
	blobs blobstore.Store
}

func NewService(repo Repository, blobs blobstore.Store) *Service {
	return &Service{repo: repo, blobs: blobs}
}

// Count reports the total number of stored reports, for the admin dashboard.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// canAccess is the single authorization rule for reports: patients see their
// own, admins see everything.
func canAccess(p auth.Principal, r *Report) bool {
	return p.Role == auth.RoleAdmin || p.ID == r.PatientID
}

// Upload stores the file in the blob store and records the report, together
// with an optional initial comment from the uploader. The blob is removed
// again if the metadata insert fails.
func (s *Service) Upload(ctx context.Context, patientID uuid.UUID, title, fileName, contentType, comment string, content io.Reader) (*Report, error) {
	if strings.TrimSpace(title) == "" {
		return nil, validate.Errorf("title is required")
	}
	if fileName == "" {
		return nil, validate.Errorf("file name is required")
	}

	key := blobstore.NewKey(fileName)
	size, err := s.blobs.Save(ctx, key, contentType, content)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		PatientID:   patientID,
		Title:       strings.TrimSpace(title),
		FileName:    fileName,
		FileKey:     key,
		ContentType: contentType,
		SizeBytes:   size,
	}

	comment = strings.TrimSpace(comment)
	if comment == "" {
		err = s.repo.Create(ctx, rep)
	} else {
		err = s.repo.CreateWithComment(ctx, rep, &Comment{
			AuthorID:   patientID,
			AuthorRole: string(auth.RolePatient),
			Body:       comment,
		})
	}
	if err != nil {
		s.blobs.Delete(ctx, key)
		return nil, err
	}
	return rep, nil
}

func (s *Service) Get(ctx context.Context, p auth.Principal, id uuid.UUID) (*Report, error) {
	rep, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(p, rep) {
		return nil, ErrForbidden
	}
	return rep, nil
}

// Download opens the stored file for a report the principal may access.
func (s *Service) Download(ctx context.Context, p auth.Principal, id uuid.UUID) (io.ReadCloser, *Report, error) {
	rep, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Open(ctx, rep.FileKey)
	if err != nil {
		return nil, nil, err
	}
	return rc, rep, nil
}

// ListForPatient returns a patient's reports. Patients may only list their
// own; admins may list anyone's.
func (s *Service) ListForPatient(ctx context.Context, p auth.Principal, patientID uuid.UUID, limit, offset int) ([]*Report, int, error) {
	if p.Role != auth.RoleAdmin && p.ID != patientID {
		return nil, 0, ErrForbidden
	}
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// Delete removes the report record and its stored file. Only the owning
// patient or an admin may delete.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	rep, err := s.Get(ctx, p, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	// Metadata is authoritative; a dangling blob is harmless.
	s.blobs.Delete(ctx, rep.FileKey)
	return nil
}

// Comment appends a comment to a report the principal may access.
func (s *Service) Comment(ctx context.Context, p auth.Principal, reportID uuid.UUID, body string) (*Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, validate.Errorf("comment body is required")
	}
	if _, err := s.Get(ctx, p, reportID); err != nil {
		return nil, err
	}

	c := &Comment{
		ReportID:   reportID,
		AuthorID:   p.ID,
		AuthorRole: string(p.Role),
		Body:       strings.TrimSpace(body),
	}
	if err := s.repo.AddComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ListComments(ctx context.Context, p auth.Principal, reportID uuid.UUID) ([]*Comment, error) {
	if _, err := s.Get(ctx, p, reportID); err != nil {
		return nil, err
	}
	return s.repo.ListComments(ctx, reportID)
}

package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// memFileStore keeps attachment payloads in a map.
type memFileStore struct {
	files map[string][]byte
}

func newMemFileStore() *memFileStore {
	return &memFileStore{files: make(map[string][]byte)}
}

func (s *memFileStore) Save(_ context.Context, path string, contents io.Reader) error {
	data, err := io.ReadAll(contents)
	if err != nil {
		return err
	}
	s.files[path] = data
	return nil
}

func (s *memFileStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	data, ok := s.files[path]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memFileStore) Remove(_ context.Context, path string) error {
	delete(s.files, path)
	return nil
}

func testAttachmentConfig() config.AttachmentConfig {
	return config.AttachmentConfig{
		MaxSizeBytes:        10 * 1024 * 1024,
		MaxPerTicket:        5,
		StorageRoot:         "storage",
		DeleteWindowMinutes: 30,
	}
}

func newAttachmentService(f *ticketFixture, files *memFileStore) *AttachmentService {
	return NewAttachmentService(AttachmentDependencies{
		AttachmentRepo: &memAttachmentRepo{db: f.db},
		TicketRepo:     &memTicketRepo{db: f.db},
		ResponseRepo:   &memResponseRepo{db: f.db},
		FileStore:      files,
		Config:         testAttachmentConfig(),
		Dispatcher:     f.dispatcher,
		Logger:         zap.NewNop(),
	})
}

func upload(t *testing.T, svc *AttachmentService, actor domain.Actor, ticketID, name string, size int64) (*domain.TicketAttachment, error) {
	t.Helper()
	return svc.Upload(context.Background(), actor, ticketID, UploadInput{
		FileName:  name,
		SizeBytes: size,
		Contents:  strings.NewReader("content"),
	})
}

func TestUploadAttachment_SizeLimit(t *testing.T) {
	f := newTicketFixture(t)
	files := newMemFileStore()
	svc := newAttachmentService(f, files)
	ticket := f.createTicket(t)

	_, err := upload(t, svc, f.userActor(), ticket.ID, "big.pdf", 10*1024*1024+1)
	if err == nil {
		t.Fatal("Upload() over the size cap should fail")
	}
	if !strings.Contains(err.Error(), "MB") {
		t.Errorf("size error %q should mention MB", err.Error())
	}
	if len(f.db.attachments) != 0 || len(files.files) != 0 {
		t.Error("rejected upload must leave no record and no file")
	}

	if _, err := upload(t, svc, f.userActor(), ticket.ID, "ok.pdf", 10*1024*1024); err != nil {
		t.Fatalf("Upload() at exactly the cap error: %v", err)
	}
}

func TestUploadAttachment_TypeAllowList(t *testing.T) {
	f := newTicketFixture(t)
	svc := newAttachmentService(f, newMemFileStore())
	ticket := f.createTicket(t)

	allowed := []string{"report.pdf", "notes.txt", "trace.log", "pic.JPG", "clip.mp4"}
	for _, name := range allowed {
		if _, err := upload(t, svc, f.userActor(), ticket.ID, name, 100); err != nil {
			t.Errorf("Upload(%q) error: %v", name, err)
		}
	}

	f2 := newTicketFixture(t)
	svc2 := newAttachmentService(f2, newMemFileStore())
	ticket2 := f2.createTicket(t)
	rejected := []string{"run.exe", "script.sh", "archive.zip", "noext"}
	for _, name := range rejected {
		_, err := upload(t, svc2, f2.userActor(), ticket2.ID, name, 100)
		if err == nil {
			t.Errorf("Upload(%q) should be rejected", name)
			continue
		}
		if !strings.Contains(err.Error(), "type") {
			t.Errorf("type error %q should mention type", err.Error())
		}
	}
}

func TestUploadAttachment_PerTicketQuota(t *testing.T) {
	f := newTicketFixture(t)
	svc := newAttachmentService(f, newMemFileStore())
	ticket := f.createTicket(t)

	for i := 0; i < 5; i++ {
		if _, err := upload(t, svc, f.userActor(), ticket.ID, "doc.pdf", 100); err != nil {
			t.Fatalf("Upload() #%d error: %v", i+1, err)
		}
	}

	_, err := upload(t, svc, f.userActor(), ticket.ID, "one-too-many.pdf", 100)
	if err == nil {
		t.Fatal("sixth Upload() should fail")
	}
	if !strings.Contains(err.Error(), "Maximum 5 attachments per ticket.") {
		t.Errorf("quota error = %q", err.Error())
	}
	if count := len(f.db.attachments); count != 5 {
		t.Errorf("attachment count after refused upload = %d, want 5", count)
	}
}

func TestUploadAttachment_ClosedTicketRefused(t *testing.T) {
	f := newTicketFixture(t)
	svc := newAttachmentService(f, newMemFileStore())
	ticket := f.createTicket(t)

	if _, err := f.svc.Close(context.Background(), f.agentActor(), ticket.ID); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if _, err := upload(t, svc, f.userActor(), ticket.ID, "late.pdf", 100); err == nil ||
		!strings.Contains(err.Error(), "closed") {
		t.Errorf("Upload() to closed ticket = %v, want closed-ticket error", err)
	}
}

func TestUploadAttachment_ResponseMustBelongToTicket(t *testing.T) {
	f := newTicketFixture(t)
	svc := newAttachmentService(f, newMemFileStore())
	responses := newResponseService(f.db, f.dispatcher)
	ticket := f.createTicket(t)
	other := f.createTicket(t)

	resp, err := responses.Create(context.Background(), f.userActor(), other.ID, "on the other ticket")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	_, err = svc.Upload(context.Background(), f.userActor(), ticket.ID, UploadInput{
		FileName:   "doc.pdf",
		SizeBytes:  100,
		Contents:   strings.NewReader("x"),
		ResponseID: &resp.ID,
	})
	if err == nil || !strings.Contains(err.Error(), "belong") {
		t.Errorf("Upload() with foreign response = %v, want ownership error", err)
	}
}

func TestDeleteAttachment_WindowAndRoles(t *testing.T) {
	f := newTicketFixture(t)
	files := newMemFileStore()
	svc := newAttachmentService(f, files)
	ticket := f.createTicket(t)

	att, err := upload(t, svc, f.userActor(), ticket.ID, "doc.pdf", 100)
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	// uploader within the window
	if err := svc.Delete(context.Background(), f.userActor(), att.ID); err != nil {
		t.Fatalf("Delete() by uploader error: %v", err)
	}
	if len(files.files) != 0 {
		t.Error("backing file should be removed")
	}

	// uploader past the window
	stale, err := upload(t, svc, f.userActor(), ticket.ID, "doc.pdf", 100)
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	record := f.db.attachments[stale.ID]
	record.CreatedAt = time.Now().Add(-31 * time.Minute)
	f.db.attachments[stale.ID] = record

	if err := svc.Delete(context.Background(), f.userActor(), stale.ID); err == nil ||
		!strings.Contains(err.Error(), "30 minutes") {
		t.Errorf("Delete() past window = %v, want window error", err)
	}

	// agents are not window-bound
	if err := svc.Delete(context.Background(), f.agentActor(), stale.ID); err != nil {
		t.Errorf("Delete() by agent error: %v", err)
	}

	// another end user may never delete someone else's upload
	fresh, err := upload(t, svc, f.userActor(), ticket.ID, "doc.pdf", 100)
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	other := f.db.addUser("carol")
	otherActor := domain.Actor{UserID: other.ID, Role: domain.RoleUser, CompanyID: f.company.ID}
	if err := svc.Delete(context.Background(), otherActor, fresh.ID); err == nil {
		t.Error("Delete() by non-uploader end user should fail")
	}
}

func TestDeleteAttachment_HiddenFromForeignStaff(t *testing.T) {
	f := newTicketFixture(t)
	files := newMemFileStore()
	svc := newAttachmentService(f, files)
	ticket := f.createTicket(t)

	att, err := upload(t, svc, f.userActor(), ticket.ID, "doc.pdf", 100)
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	rival := f.db.addCompany("globex")
	intruder := f.db.addUser("mallory")
	for _, role := range []domain.Role{domain.RoleAgent, domain.RoleCompanyAdmin} {
		actor := domain.Actor{UserID: intruder.ID, Role: role, CompanyID: rival.ID}
		err := svc.Delete(context.Background(), actor, att.ID)
		if err == nil || !strings.Contains(err.Error(), "not found") {
			t.Errorf("Delete() by foreign %s = %v, want not-found", role, err)
		}
	}
	if _, ok := f.db.attachments[att.ID]; !ok {
		t.Fatal("attachment record must survive foreign delete attempts")
	}
	if _, ok := files.files[att.StoragePath]; !ok {
		t.Fatal("backing file must survive foreign delete attempts")
	}

	// a platform admin is not company-bound
	platform := domain.Actor{UserID: intruder.ID, Role: domain.RolePlatformAdmin}
	if err := svc.Delete(context.Background(), platform, att.ID); err != nil {
		t.Errorf("Delete() by platform admin error: %v", err)
	}
}

func TestDeleteAttachment_MissingFileIsNotAnError(t *testing.T) {
	f := newTicketFixture(t)
	files := newMemFileStore()
	svc := newAttachmentService(f, files)
	ticket := f.createTicket(t)

	att, err := upload(t, svc, f.userActor(), ticket.ID, "doc.pdf", 100)
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	delete(files.files, att.StoragePath)

	if err := svc.Delete(context.Background(), f.userActor(), att.ID); err != nil {
		t.Errorf("Delete() with missing file error: %v", err)
	}
	if _, ok := f.db.attachments[att.ID]; ok {
		t.Error("metadata record should be gone")
	}
}

func TestUploadAttachment_StoragePathShape(t *testing.T) {
	f := newTicketFixture(t)
	svc := newAttachmentService(f, newMemFileStore())
	ticket := f.createTicket(t)

	att, err := upload(t, svc, f.userActor(), ticket.ID, "my report (final).pdf", 100)
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if !strings.HasPrefix(att.StoragePath, "tickets/attachments/") {
		t.Errorf("storage path %q lacks tickets/attachments/ prefix", att.StoragePath)
	}
	if strings.ContainsAny(att.StoragePath[len("tickets/attachments/"):], "() ") {
		t.Errorf("storage path %q should be sanitized", att.StoragePath)
	}
}

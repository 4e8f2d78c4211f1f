package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/railtonbritomcp/App-agendei/internal/storage"
)

type driveFiles interface {
	create(ctx context.Context, name, folderID string, media io.Reader) (string, error)
	update(ctx context.Context, fileID string, media io.Reader) error
}

// Drive keeps one Google Doc per appointment in a folder, updating it in
// place when the report is regenerated.
type Drive struct {
	files    driveFiles
	folderID string
	fileIDs  map[string]string
	mu       sync.Mutex
}

func NewDrive(ctx context.Context, credPath, folderID string) (*Drive, error) {
	creds, err := os.ReadFile(credPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	config, err := google.CredentialsFromJSONWithTypeAndParams(ctx, creds, google.ServiceAccount, google.CredentialsParams{Scopes: []string{drive.DriveFileScope}})
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	svc, err := drive.NewService(ctx, option.WithCredentials(config))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return newDrive(driveService{svc: svc}, folderID), nil
}

func newDrive(files driveFiles, folderID string) *Drive {
	return &Drive{files: files, folderID: folderID, fileIDs: make(map[string]string)}
}

func (d *Drive) Name() string { return "gdrive" }

func (d *Drive) Upload(ctx context.Context, localPath string, a storage.Appointment) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	if fileID, ok := d.fileIDs[a.ID]; ok {
		if err := d.files.update(ctx, fileID, f); err != nil {
			return fmt.Errorf("drive update: %w", err)
		}
		return nil
	}

	name := fmt.Sprintf("agendei-%s-%s", a.Date, a.Title)
	fileID, err := d.files.create(ctx, name, d.folderID, f)
	if err != nil {
		return fmt.Errorf("drive create: %w", err)
	}
	d.fileIDs[a.ID] = fileID
	return nil
}

type driveService struct {
	svc *drive.Service
}

func (s driveService) create(ctx context.Context, name, folderID string, media io.Reader) (string, error) {
	doc, err := s.svc.Files.Create(&drive.File{
		Name:     name,
		MimeType: "application/vnd.google-apps.document",
		Parents:  []string{folderID},
	}).Media(media).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return doc.Id, nil
}

func (s driveService) update(ctx context.Context, fileID string, media io.Reader) error {
	_, err := s.svc.Files.Update(fileID, &drive.File{}).Media(media).Context(ctx).Do()
	return err
}

package drive

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// UploadScope allows uploading outputs into shared folders.
const UploadScope = drive.DriveScope

type Service struct {
	srv *drive.Service
}

// NewService creates a Drive client from service account credentials. Without
// scopes the client is read-only.
func NewService(ctx context.Context, credentialsJSON string, scopes ...string) (*Service, error) {
	if strings.TrimSpace(credentialsJSON) == "" {
		return nil, fmt.Errorf("google drive credentials must be provided")
	}
	if len(scopes) == 0 {
		scopes = []string{drive.DriveReadonlyScope}
	}

	// Parse credentials from JSON
	config, err := google.JWTConfigFromJSON([]byte(credentialsJSON), scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}

	// Create the Drive service
	srv, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %w", err)
	}

	return &Service{srv: srv}, nil
}

type File struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
	Size         int64  `json:"size,string,omitempty"`
	WebViewLink  string `json:"webViewLink,omitempty"`
}

func (s *Service) ListFiles(ctx context.Context, folderID string) ([]*File, error) {
	var files []*File

	// If no folder ID is provided, use "root"
	if folderID == "" {
		folderID = "root"
	}

	call := s.srv.Files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed=false", folderID)).
		Fields("nextPageToken, files(id, name, mimeType, modifiedTime, size, webViewLink)").
		Context(ctx)

	err := call.Pages(ctx, func(page *drive.FileList) error {
		for _, f := range page.Files {
			files = append(files, fromDrive(f))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve files: %w", err)
	}

	return files, nil
}

func (s *Service) DownloadFile(ctx context.Context, fileID string, w io.Writer) error {
	resp, err := s.srv.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("unable to download file: %w", err)
	}
	defer resp.Body.Close()

	_, err = io.Copy(w, resp.Body)
	return err
}

// UploadFile creates a copy of a local file in folderID (the Drive root when
// empty) and returns the created file with its links.
func (s *Service) UploadFile(ctx context.Context, localPath, folderID string) (*File, error) {
	in, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open %s: %w", localPath, err)
	}
	defer in.Close()

	meta := &drive.File{Name: filepath.Base(localPath)}
	if folderID != "" {
		meta.Parents = []string{folderID}
	}

	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "text/csv"
	}

	created, err := s.srv.Files.Create(meta).
		Media(in, googleapi.ContentType(contentType)).
		Fields("id, name, mimeType, modifiedTime, size, webViewLink, webContentLink").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to upload %s: %w", localPath, err)
	}

	f := fromDrive(created)
	if f.WebViewLink == "" {
		f.WebViewLink = created.WebContentLink
	}
	return f, nil
}

func (s *Service) FindFolderByPath(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "root", nil
	}

	folders := strings.Split(path, "/")
	currentID := "root"

	for _, folder := range folders {
		if folder == "" {
			continue
		}

		result, err := s.srv.Files.List().
			Q(fmt.Sprintf("'%s' in parents and name='%s' and mimeType='%s' and trashed=false",
				currentID, strings.ReplaceAll(folder, "'", `\'`), folderMimeType)).
			Fields("files(id, name)").
			Context(ctx).
			Do()
		if err != nil {
			return "", fmt.Errorf("error finding folder %s: %w", folder, err)
		}

		if len(result.Files) == 0 {
			return "", fmt.Errorf("folder not found: %s", folder)
		}

		currentID = result.Files[0].Id
	}

	return currentID, nil
}

func fromDrive(f *drive.File) *File {
	return &File{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		ModifiedTime: f.ModifiedTime,
		Size:         f.Size,
		WebViewLink:  f.WebViewLink,
	}
}

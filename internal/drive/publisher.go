package drive

import (
	"context"
	"fmt"
)

// Publisher uploads output files to a Drive folder and returns their web
// view links. It implements storage.LinkPublisher.
type Publisher struct {
	service  *Service
	folderID string
}

// NewPublisher creates a publisher writing into folderID.
func NewPublisher(service *Service, folderID string) *Publisher {
	return &Publisher{service: service, folderID: folderID}
}

func (p *Publisher) Publish(ctx context.Context, localPath string) (string, error) {
	f, err := p.service.UploadFile(ctx, localPath, p.folderID)
	if err != nil {
		return "", err
	}
	if f.WebViewLink == "" {
		return "", fmt.Errorf("drive returned no link for %s", f.Name)
	}
	return f.WebViewLink, nil
}

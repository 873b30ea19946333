package vmsone

import (
	"context"

	"github.com/kozaktomas/vms-kiosk/internal/constants"
)

// MatchFace asks the backend whether the face in dataURL belongs to a known visitor.
// A 2xx response without a visitor means no match.
func (c *Client) MatchFace(ctx context.Context, token, dataURL string) (*Response, error) {
	return doPostJSON(ctx, c, token, c.endpoints.MatchFace, map[string]string{
		constants.FaceImageField: dataURL,
	})
}

// RegisterVisitor registers a first-time visitor with their captured face.
func (c *Client) RegisterVisitor(ctx context.Context, token string, fields []FormField, face *FilePart) (*Response, error) {
	return doPostMultipart(ctx, c, token, c.endpoints.Visitors, fields, face)
}

// RegisterReturning registers a new visit for a matched visitor. fields must carry
// the visitor id; no image is sent.
func (c *Client) RegisterReturning(ctx context.Context, token string, fields []FormField) (*Response, error) {
	return doPostMultipart(ctx, c, token, c.endpoints.ReturningVisitors, fields, nil)
}

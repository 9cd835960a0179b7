// views.go - Builds template and JSON views from page state
package api

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/localsend-web/server/internal/display"
	"github.com/localsend-web/server/internal/links"
	"github.com/localsend-web/server/internal/models"
	"github.com/localsend-web/server/internal/session"
	"github.com/localsend-web/server/internal/web"
)

const (
	pageTitle      = "LocalSend Download"
	readyTitle     = "Download Files"
	loadingRefresh = 1
)

// LinkOrigins decides which origin download and share links use.
//
// Download links go to PublicOrigin when set. Otherwise they use the
// request's own origin when this server proxies the LocalSend API, and the
// upstream base URL when it does not. Share links always point at this
// server.
type LinkOrigins struct {
	PublicOrigin string
	ProxyAPI     bool
	UpstreamURL  string
}

func requestOrigin(c echo.Context) string {
	return c.Scheme() + "://" + c.Request().Host
}

// DownloadBuilder returns the link builder for download URLs.
func (o LinkOrigins) DownloadBuilder(c echo.Context) (*links.Builder, error) {
	switch {
	case o.PublicOrigin != "":
		return links.NewBuilder(o.PublicOrigin)
	case o.ProxyAPI:
		return links.NewBuilder(requestOrigin(c))
	default:
		return links.NewBuilder(o.UpstreamURL)
	}
}

// ShareBuilder returns the link builder for share links and QR codes.
func (o LinkOrigins) ShareBuilder(c echo.Context) (*links.Builder, error) {
	if o.PublicOrigin != "" {
		return links.NewBuilder(o.PublicOrigin)
	}
	return links.NewBuilder(requestOrigin(c))
}

func pagePath(pageID string) string {
	return "/pages/" + pageID
}

// FileView is one file of a ready page in the state API.
type FileView struct {
	FileID      string  `json:"fileId" msgpack:"fileId"`
	FileName    string  `json:"fileName" msgpack:"fileName"`
	LeafName    string  `json:"leafName" msgpack:"leafName"`
	Directory   string  `json:"directory" msgpack:"directory"`
	Size        int64   `json:"size" msgpack:"size"`
	SizeText    string  `json:"sizeText" msgpack:"sizeText"`
	FileType    string  `json:"fileType" msgpack:"fileType"`
	SHA256      *string `json:"sha256,omitempty" msgpack:"sha256,omitempty"`
	Preview     *string `json:"preview,omitempty" msgpack:"preview,omitempty"`
	DownloadURL string  `json:"downloadUrl" msgpack:"downloadUrl"`
}

// StateView is the page state as returned by the state API.
type StateView struct {
	PageID    string             `json:"pageId" msgpack:"pageId"`
	SessionID string             `json:"sessionId" msgpack:"sessionId"`
	Status    models.PageStatus  `json:"status" msgpack:"status"`
	Message   string             `json:"message,omitempty" msgpack:"message,omitempty"`
	ErrorKind models.ErrorKind   `json:"errorKind,omitempty" msgpack:"errorKind,omitempty"`
	Retryable bool               `json:"retryable,omitempty" msgpack:"retryable,omitempty"`
	Sender    *models.DeviceInfo `json:"sender,omitempty" msgpack:"sender,omitempty"`
	Files     []FileView         `json:"files,omitempty" msgpack:"files,omitempty"`
}

func fileRows(page *session.Page, manifest *models.Manifest, b *links.Builder) []web.FileRow {
	manifestSessionID := page.ManifestSessionID()
	ids := manifest.FileIDs()
	rows := make([]web.FileRow, 0, len(ids))
	for _, id := range ids {
		f := manifest.Files[id]
		parts := display.Split(f.FileName)
		rows = append(rows, web.FileRow{
			ID:          id,
			FileName:    f.FileName,
			Name:        parts.Name,
			Directory:   parts.Directory,
			Size:        f.Size,
			SizeText:    display.FormatFileSize(f.Size),
			FileType:    f.FileType,
			SHA256:      models.StringValue(f.SHA256),
			Preview:     models.StringValue(f.Preview),
			DownloadURL: b.BuildURL(manifestSessionID, id),
			DetailURL:   fmt.Sprintf("%s/files/%s", pagePath(page.ID), url.PathEscape(id)),
		})
	}
	return rows
}

// buildPageView renders state into the "page" template data.
func buildPageView(page *session.Page, state models.PageState, downloads, shares *links.Builder) web.PageView {
	view := web.PageView{
		Meta:      web.Meta{Title: pageTitle},
		PageID:    page.ID,
		SessionID: page.SessionID,
		Status:    string(state.Status()),
	}

	switch s := state.(type) {
	case models.Loading:
		view.RefreshSeconds = loadingRefresh
	case models.NeedsPin:
		view.Message = s.Message
		view.PinURL = pagePath(page.ID) + "/pin"
	case models.Failed:
		view.Message = s.Message
		if s.Kind == models.ErrorKindMissingSession {
			view.Status = "missing"
			break
		}
		view.Retryable = s.Retryable
		view.RetryURL = pagePath(page.ID) + "/retry"
	case models.Ready:
		view.Title = readyTitle
		view.SenderAlias = s.Manifest.Info.Alias
		view.SenderModel = models.StringValue(s.Manifest.Info.DeviceModel)
		view.Files = fileRows(page, s.Manifest, downloads)
		view.TotalText = display.FormatFileSize(s.Manifest.TotalSize())
		view.ShareURL = shares.ShareURL("/", page.SessionID)
		view.QRURL = pagePath(page.ID) + "/qr.png"
	}
	return view
}

// missingSessionView is shown when no session id was supplied at all.
func missingSessionView() web.PageView {
	return web.PageView{
		Meta:    web.Meta{Title: pageTitle},
		Status:  "missing",
		Message: session.MissingSessionMessage,
	}
}

func notFoundView(message string) web.MessageView {
	return web.MessageView{Meta: web.Meta{Title: pageTitle}, Message: message}
}

// buildStateView converts state into the state API representation.
func buildStateView(page *session.Page, state models.PageState, downloads *links.Builder) StateView {
	view := StateView{
		PageID:    page.ID,
		SessionID: page.SessionID,
		Status:    state.Status(),
	}

	switch s := state.(type) {
	case models.NeedsPin:
		view.Message = s.Message
		view.ErrorKind = models.ErrorKindAuthRequired
	case models.Failed:
		view.Message = s.Message
		view.ErrorKind = s.Kind
		view.Retryable = s.Retryable
	case models.Ready:
		info := s.Manifest.Info
		view.Sender = &info
		for _, row := range fileRows(page, s.Manifest, downloads) {
			f := s.Manifest.Files[row.ID]
			view.Files = append(view.Files, FileView{
				FileID:      row.ID,
				FileName:    row.FileName,
				LeafName:    row.Name,
				Directory:   row.Directory,
				Size:        row.Size,
				SizeText:    row.SizeText,
				FileType:    row.FileType,
				SHA256:      f.SHA256,
				Preview:     f.Preview,
				DownloadURL: row.DownloadURL,
			})
		}
	}
	return view
}

// fileIDParam returns the decoded :fileId. echo routes on the raw path when
// the request path has escapes the default encoding would not produce (such
// as %2F), and then its params are still escaped.
func fileIDParam(c echo.Context) string {
	id := c.Param("fileId")
	if c.Request().URL.RawPath == "" {
		return id
	}
	if decoded, err := url.PathUnescape(id); err == nil {
		return decoded
	}
	return id
}

// sessionParam reads the session id from the share link query.
func sessionParam(c echo.Context) string {
	if id := strings.TrimSpace(c.QueryParam("session")); id != "" {
		return id
	}
	return strings.TrimSpace(c.QueryParam("sessionId"))
}

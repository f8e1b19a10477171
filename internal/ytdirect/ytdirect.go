// Package ytdirect looks videos up by reading their public watch pages, for
// use when no API credentials are configured. It cannot list playlists.
package ytdirect

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Jeffail/gabs/v2"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"fknsrs.biz/p/ytmirror/internal/catalog"
	"fknsrs.biz/p/ytmirror/internal/ctxhttpclient"
	"fknsrs.biz/p/ytmirror/internal/diag"
)

const DefaultBaseURL = "https://www.youtube.com"

const playerResponsePrefix = "var ytInitialPlayerResponse ="

type Client struct {
	BaseURL string
}

var _ catalog.VideoLookup = (*Client)(nil)

func New() *Client {
	return &Client{BaseURL: DefaultBaseURL}
}

func (c *Client) watchURL(id string) string {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	return strings.TrimSuffix(base, "/") + "/watch?v=" + url.QueryEscape(id)
}

func getDocument(ctx context.Context, u string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("ytdirect.getDocument: %w", err)
	}

	res, err := ctxhttpclient.GetHTTPClient(ctx).Do(req)
	if err != nil {
		return nil, fmt.Errorf("ytdirect.getDocument: %w: %w", diag.ErrTransportFailure, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("ytdirect.getDocument: %w", diag.ErrNotFound)
	case res.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("ytdirect.getDocument: status code %d: %w", res.StatusCode, diag.ErrTransportFailure)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("ytdirect.getDocument: %w: %w", diag.ErrTransportFailure, err)
	}

	return doc, nil
}

func findPlayerResponse(doc *goquery.Document) (*gabs.Container, error) {
	for _, node := range doc.Find("script").Nodes {
		if node.FirstChild == nil || node.FirstChild.Type != html.TextNode {
			continue
		}

		jsContent := strings.TrimSpace(node.FirstChild.Data)

		if !strings.HasPrefix(jsContent, playerResponsePrefix) {
			continue
		}

		jsContent = strings.TrimPrefix(jsContent, playerResponsePrefix)
		jsContent = strings.TrimSuffix(jsContent, ";")

		j, err := gabs.ParseJSON([]byte(jsContent))
		if err != nil {
			return nil, fmt.Errorf("ytdirect.findPlayerResponse: %w: %w", diag.ErrMalformedInput, err)
		}

		return j, nil
	}

	return nil, nil
}

const (
	videoIDPath          = "videoDetails.videoId"
	videoChannelIDPath   = "videoDetails.channelId"
	videoAuthorPath      = "videoDetails.author"
	videoTitlePath       = "microformat.playerMicroformatRenderer.title.simpleText"
	videoDescriptionPath = "microformat.playerMicroformatRenderer.description.simpleText"
	videoPublishDatePath = "microformat.playerMicroformatRenderer.publishDate"
	videoOwnerPath       = "microformat.playerMicroformatRenderer.ownerChannelName"
	playabilityPath      = "playabilityStatus.status"
)

func stringAt(j *gabs.Container, path string) string {
	if !j.ExistsP(path) {
		return ""
	}

	s, _ := j.Path(path).Data().(string)

	return s
}

// publishedAt accepts either a full timestamp or a bare date, which the page
// has used at different times. Bare dates become midnight UTC.
func publishedAt(s string) string {
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return s + "T00:00:00Z"
	}

	return s
}

// videoPayload rebuilds the parts of an API video resource that the player
// response carries.
func videoPayload(j *gabs.Container) *gabs.Container {
	v := gabs.New()

	v.SetP(stringAt(j, videoIDPath), "id")
	v.SetP(stringAt(j, videoTitlePath), "snippet.title")
	v.SetP(stringAt(j, videoDescriptionPath), "snippet.description")
	v.SetP(publishedAt(stringAt(j, videoPublishDatePath)), "snippet.publishedAt")
	v.SetP(stringAt(j, videoChannelIDPath), "snippet.channelId")

	channelTitle := stringAt(j, videoOwnerPath)
	if channelTitle == "" {
		channelTitle = stringAt(j, videoAuthorPath)
	}
	v.SetP(channelTitle, "snippet.channelTitle")

	return v
}

// GetVideo returns an API-shaped payload for one video, or an error wrapping
// diag.ErrNotFound.
func (c *Client) GetVideo(ctx context.Context, id string) (*gabs.Container, error) {
	doc, err := getDocument(ctx, c.watchURL(id))
	if err != nil {
		return nil, fmt.Errorf("ytdirect.GetVideo: %w", err)
	}

	j, err := findPlayerResponse(doc)
	if err != nil {
		return nil, fmt.Errorf("ytdirect.GetVideo: %w", err)
	}

	if j == nil || stringAt(j, videoIDPath) == "" || stringAt(j, playabilityPath) == "ERROR" {
		return nil, fmt.Errorf("ytdirect.GetVideo: could not find data for %s in page: %w", id, diag.ErrNotFound)
	}

	return videoPayload(j), nil
}

// LookupVideos fetches one page per id. Unknown videos are left out.
func (c *Client) LookupVideos(ctx context.Context, ids []string) ([]*gabs.Container, error) {
	var a []*gabs.Container

	for _, id := range ids {
		v, err := c.GetVideo(ctx, id)
		if err != nil {
			if diag.Classify(err, diag.TransportFailure) == diag.NotFound {
				continue
			}

			return nil, fmt.Errorf("ytdirect.LookupVideos: %w", err)
		}

		a = append(a, v)
	}

	return a, nil
}

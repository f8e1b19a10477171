package ytutil

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"fknsrs.biz/p/ytmirror/internal/diag"
)

var (
	watchURLPattern     = regexp.MustCompile(`https?://(?:www\.)?youtube\.com/watch\?v=([a-zA-Z0-9_-]+)`)
	markdownLinkPattern = regexp.MustCompile(`\[.*?\]\(https?://(?:www\.)?youtube\.com/watch\?v=([a-zA-Z0-9_-]+)\)`)
)

// IDSet is an unordered set of video ids.
type IDSet map[string]struct{}

func (s IDSet) Add(id string) { s[id] = struct{}{} }

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Sorted() []string {
	a := make([]string, 0, len(s))
	for id := range s {
		a = append(a, id)
	}
	sort.Strings(a)
	return a
}

// ExtractVideoIDs finds watch links, bare or inside markdown links, one line
// at a time. Lines can be any length.
func ExtractVideoIDs(r io.Reader) (IDSet, error) {
	ids := make(IDSet)

	br := bufio.NewReader(r)

	for lineNumber := 1; ; lineNumber++ {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			if !utf8.ValidString(line) {
				return make(IDSet), fmt.Errorf("ytutil.ExtractVideoIDs: line %d is not valid utf-8: %w", lineNumber, diag.ErrIOFailure)
			}

			for _, re := range []*regexp.Regexp{watchURLPattern, markdownLinkPattern} {
				for _, m := range re.FindAllStringSubmatch(line, -1) {
					ids.Add(m[1])
				}
			}
		}

		if errors.Is(err, io.EOF) {
			return ids, nil
		}
		if err != nil {
			return make(IDSet), fmt.Errorf("ytutil.ExtractVideoIDs: %w: %w", diag.ErrIOFailure, err)
		}
	}
}

// ExtractVideoIDsFromFile never fails hard: a file that cannot be read gives
// an empty set and a diagnostic about the path.
func ExtractVideoIDsFromFile(path string) (IDSet, error) {
	fd, err := os.Open(path)
	if err != nil {
		return make(IDSet), diag.New(diag.IOFailure, path, err)
	}
	defer fd.Close()

	ids, err := ExtractVideoIDs(fd)
	if err != nil {
		return make(IDSet), diag.New(diag.IOFailure, path, err)
	}

	return ids, nil
}

// ExtractVideoIDsFromText reads ids or urls separated by whitespace or
// commas, as typed into a form.
func ExtractVideoIDsFromText(text string, ignoreInvalid bool) (IDSet, error) {
	ids := make(IDSet)

	for _, urlOrID := range strings.FieldsFunc(text, func(r rune) bool { return r == ',' || unicode.IsSpace(r) }) {
		if id, err := ExtractVideoID(urlOrID); err == nil {
			ids.Add(id)
		} else if !ignoreInvalid {
			return nil, fmt.Errorf("ytutil.ExtractVideoIDsFromText: could not identify %q: %w", urlOrID, err)
		}
	}

	return ids, nil
}

func isYouTubeHost(host string) bool {
	switch host {
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com":
		return true
	}
	return false
}

func ExtractVideoID(urlOrID string) (string, error) {
	urlOrID = strings.TrimSpace(urlOrID)

	if len(urlOrID) == 11 && !strings.ContainsAny(urlOrID, "/:.?=") {
		return urlOrID, nil
	}

	parsed, err := url.Parse(urlOrID)
	if err != nil {
		return "", fmt.Errorf("ytutil.ExtractVideoID: %w: %w", diag.ErrMalformedInput, err)
	}

	if isYouTubeHost(parsed.Host) && parsed.Path == "/watch" {
		if id := parsed.Query().Get("v"); id != "" {
			if len(id) != 11 {
				return "", fmt.Errorf("ytutil.ExtractVideoID: invalid video id for v parameter in youtube.com url; length should be 11: %w", diag.ErrMalformedInput)
			}

			return id, nil
		}

		return "", fmt.Errorf("ytutil.ExtractVideoID: no v query parameter in youtube.com url: %w", diag.ErrMalformedInput)
	}

	if parsed.Host == "youtu.be" {
		if id := strings.TrimPrefix(parsed.Path, "/"); id != "" {
			if len(id) != 11 {
				return "", fmt.Errorf("ytutil.ExtractVideoID: invalid video id for youtu.be url; length should be 11: %w", diag.ErrMalformedInput)
			}

			return id, nil
		}

		return "", fmt.Errorf("ytutil.ExtractVideoID: no path content found in youtu.be url: %w", diag.ErrMalformedInput)
	}

	return "", fmt.Errorf("ytutil.ExtractVideoID: invalid url or id; could not find a known pattern: %w", diag.ErrMalformedInput)
}

func ExtractPlaylistID(urlOrID string) (string, error) {
	u, err := url.Parse(urlOrID)
	if err == nil && u.Scheme != "" && isYouTubeHost(u.Host) && u.Path == "/playlist" {
		return ExtractPlaylistID(u.Query().Get("list"))
	}

	playlistID := strings.TrimSpace(urlOrID)
	if len(playlistID) == 0 {
		return "", fmt.Errorf("ytutil.ExtractPlaylistID: empty input: %w", diag.ErrMalformedInput)
	}

	if strings.HasPrefix(playlistID, "PL") || strings.HasPrefix(playlistID, "UU") || strings.HasPrefix(playlistID, "FL") || strings.HasPrefix(playlistID, "OLAK5uy_") {
		return playlistID, nil
	}

	if len(playlistID) == 34 || len(playlistID) == 41 {
		return playlistID, nil
	}

	return "", fmt.Errorf("ytutil.ExtractPlaylistID: invalid url or id; could not find a known pattern: %w", diag.ErrMalformedInput)
}

package transcript

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// captionTrack is the track descriptor shared by the Innertube player
// response and the watch page embedded player response.
type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" for auto-generated
	Name         struct {
		SimpleText string `json:"simpleText"`
		Runs       []struct {
			Text string `json:"text"`
		} `json:"runs"`
	} `json:"name"`
}

func (t captionTrack) isAuto() bool { return t.Kind == "asr" }

// selectTrack picks the best caption track: manual tracks in preferred
// language order, then auto-generated in preferred language order, then the
// first manual track, then anything.
func selectTrack(tracks []captionTrack, preferred []string) (captionTrack, bool) {
	if len(tracks) == 0 {
		return captionTrack{}, false
	}

	match := func(auto bool) (captionTrack, bool) {
		for _, lang := range preferred {
			for _, t := range tracks {
				if t.isAuto() == auto && strings.HasPrefix(t.LanguageCode, lang) {
					return t, true
				}
			}
		}
		return captionTrack{}, false
	}

	if t, ok := match(false); ok {
		return t, true
	}
	if t, ok := match(true); ok {
		return t, true
	}
	for _, t := range tracks {
		if !t.isAuto() {
			return t, true
		}
	}
	return tracks[0], true
}

// fetchTrack downloads a caption track as json3 and parses it.
func fetchTrack(ctx context.Context, client *http.Client, track captionTrack) ([]Segment, error) {
	url := track.BaseURL
	if !strings.Contains(url, "fmt=") {
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		url += sep + "fmt=json3"
	}

	body, err := fetchBody(ctx, client, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch caption track: %w", err)
	}

	if segments, err := ParseJSON3(body); err == nil {
		return segments, nil
	}
	// Some mirrors ignore fmt=json3 and return the legacy XML format.
	return ParseTimedTextXML(string(body))
}

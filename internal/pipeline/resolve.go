package pipeline

import (
	"net/url"
	"regexp"
	"strings"
)

const driveHost = "drive.google.com"

var driveFileID = regexp.MustCompile(`/d/([a-zA-Z0-9_-]+)`)

// ResolveDirectURL rewrites Google Drive share links
// (drive.google.com/file/d/<id>/view, drive.google.com/open?id=<id>) to the
// direct download endpoint. Any other input, including unparsable strings, is
// returned unchanged.
func ResolveDirectURL(raw string) string {
	if !strings.Contains(raw, driveHost) {
		return raw
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !strings.EqualFold(u.Hostname(), driveHost) {
		return raw
	}

	var id string
	if m := driveFileID.FindStringSubmatch(u.Path); m != nil {
		id = m[1]
	} else if q := u.Query().Get("id"); q != "" && isDriveID(q) {
		id = q
	}
	if id == "" {
		return raw
	}
	return "https://" + driveHost + "/uc?export=download&id=" + id
}

func isDriveID(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

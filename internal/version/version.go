// Package version records the build version and checks GitHub for newer
// releases.
package version

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// Version is the bridge's release version.
	Version = "0.1.0"

	// repo is the GitHub repository update checks look at.
	repo = "idebridge/idebridge"
)

// UpdateInfo is the outcome of one release check.
type UpdateInfo struct {
	CurrentVersion  string    `json:"currentVersion"`
	LatestVersion   string    `json:"latestVersion,omitempty"`
	UpdateAvailable bool      `json:"updateAvailable"`
	ReleaseURL      string    `json:"releaseUrl,omitempty"`
	CheckedAt       time.Time `json:"checkedAt"`
	Error           string    `json:"error,omitempty"`
}

// UpdateMessage returns a printable one-liner, empty when the running
// version is current or the check failed.
func (u *UpdateInfo) UpdateMessage() string {
	if u.Error != "" || !u.UpdateAvailable {
		return ""
	}
	return fmt.Sprintf("idebridge v%s is available (running v%s): %s",
		u.LatestVersion, u.CurrentVersion, u.ReleaseURL)
}

// Checker queries the GitHub releases API.
type Checker struct {
	client *http.Client
	apiURL string
}

// NewChecker returns a Checker with a 5 second request timeout.
func NewChecker() *Checker {
	return &Checker{
		client: &http.Client{Timeout: 5 * time.Second},
		apiURL: fmt.Sprintf("https://api.github.com/repos/%s/releases/latest", repo),
	}
}

type githubRelease struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// CheckForUpdates fetches the latest release tag and compares it against
// the running version. Failures are reported inside the result, never as
// an error; an update check must not get in the way of startup.
func (c *Checker) CheckForUpdates(ctx context.Context) *UpdateInfo {
	info := &UpdateInfo{CurrentVersion: Version, CheckedAt: time.Now()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL, nil)
	if err != nil {
		info.Error = fmt.Sprintf("build request: %v", err)
		return info
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "idebridge/"+Version)

	resp, err := c.client.Do(req)
	if err != nil {
		info.Error = fmt.Sprintf("fetch latest release: %v", err)
		return info
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		info.Error = fmt.Sprintf("GitHub API returned status %d", resp.StatusCode)
		return info
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		info.Error = fmt.Sprintf("decode release: %v", err)
		return info
	}

	info.LatestVersion = strings.TrimPrefix(release.TagName, "v")
	info.ReleaseURL = release.HTMLURL
	info.UpdateAvailable = compare(Version, info.LatestVersion) < 0
	return info
}

// compare orders two dotted version strings: -1 when a < b, 0 when equal,
// 1 when a > b. Pre-release suffixes on a component are ignored.
func compare(a, b string) int {
	pa, pb := numbers(a), numbers(b)
	for i := 0; i < 3; i++ {
		if pa[i] != pb[i] {
			if pa[i] < pb[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func numbers(v string) [3]int {
	var out [3]int
	fields := strings.Split(strings.TrimPrefix(v, "v"), ".")
	for i := 0; i < len(fields) && i < 3; i++ {
		n := fields[i]
		if cut := strings.IndexByte(n, '-'); cut >= 0 {
			n = n[:cut]
		}
		num, err := strconv.Atoi(n)
		if err != nil {
			break
		}
		out[i] = num
	}
	return out
}

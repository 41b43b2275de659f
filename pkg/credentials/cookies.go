// Package credentials inspects the local Chrome cookie store to tell
// whether the user already holds a session on a ticketing site. Every
// failure degrades to "not logged in" so a locked or missing cookie
// file never blocks automation.
package credentials

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	_ "modernc.org/sqlite"
)

type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type LoginStatus struct {
	IsLoggedIn bool   `json:"isLoggedIn"`
	UserName   string `json:"userName,omitempty"`
}

var (
	sessionFragments = []string{"login", "member", "user"}
	sessionMarkers   = []string{"TKC", "NOL"}
	hangulName       = regexp.MustCompile(`[가-힣a-zA-Z0-9]+님`)
	hangulAny        = regexp.MustCompile(`[가-힣]+`)
)

// Reader pulls cookies from a Chrome profile. cookiePath may be empty,
// in which case the platform default profile is used.
type Reader struct {
	cookiePath string
}

func NewReader(cookiePath string) *Reader {
	if cookiePath == "" {
		cookiePath = defaultCookiePath()
	}
	return &Reader{cookiePath: cookiePath}
}

func defaultCookiePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Local", "Google", "Chrome", "User Data", "Default", "Cookies")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default", "Cookies")
	default:
		return filepath.Join(home, ".config", "google-chrome", "Default", "Cookies")
	}
}

// CookiesForHost returns cookies whose host matches the fragment.
// Chrome keeps the store locked while running, so the file is copied to
// a temp location before opening.
func (r *Reader) CookiesForHost(hostFragment string) ([]Cookie, error) {
	if r.cookiePath == "" {
		return nil, fmt.Errorf("chrome cookie path unknown")
	}
	if _, err := os.Stat(r.cookiePath); err != nil {
		return nil, fmt.Errorf("chrome cookie file not found: %w", err)
	}

	tempPath := filepath.Join(os.TempDir(), "ticketflow_cookies_temp.db")
	if err := copyFile(r.cookiePath, tempPath); err != nil {
		return nil, fmt.Errorf("failed to copy cookie store: %w", err)
	}
	defer os.Remove(tempPath)

	db, err := sql.Open("sqlite", tempPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open cookie store: %w", err)
	}
	defer db.Close()

	rows, err := db.Query("SELECT name, value FROM cookies WHERE host_key LIKE ?", "%"+hostFragment+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query cookies: %w", err)
	}
	defer rows.Close()

	var cookies []Cookie
	for rows.Next() {
		var c Cookie
		if err := rows.Scan(&c.Name, &c.Value); err != nil {
			return nil, fmt.Errorf("failed to scan cookie row: %w", err)
		}
		cookies = append(cookies, c)
	}
	return cookies, rows.Err()
}

// CheckLogin reports whether session cookies exist for the host and, when
// a display name is recoverable from a cookie value, includes it.
func (r *Reader) CheckLogin(hostFragment string) LoginStatus {
	cookies, err := r.CookiesForHost(hostFragment)
	if err != nil || len(cookies) == 0 {
		return LoginStatus{}
	}

	loggedIn := false
	for _, c := range cookies {
		name := strings.ToLower(c.Name)
		for _, frag := range sessionFragments {
			if strings.Contains(name, frag) {
				loggedIn = true
			}
		}
		for _, marker := range sessionMarkers {
			if strings.Contains(c.Name, marker) {
				loggedIn = true
			}
		}
	}
	if !loggedIn {
		return LoginStatus{}
	}

	status := LoginStatus{IsLoggedIn: true}
	for _, c := range cookies {
		if c.Value == "" {
			continue
		}
		if name := hangulName.FindString(c.Value); name != "" {
			status.UserName = name
			break
		}
		if name := hangulAny.FindString(c.Value); name != "" {
			status.UserName = name + "님"
			break
		}
	}
	return status
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

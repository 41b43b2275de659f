// Package stealth holds pluggable fingerprint profiles applied at
// session start. Patch lists rot as detection vendors move, so profiles
// are data, not code: swapping a profile never touches session logic.
package stealth

// Profile is an ordered set of scripts evaluated on every new document
// before page scripts run, plus an optional user agent override.
type Profile struct {
	Name      string
	UserAgent string
	Scripts   []string
}

// Default hides the most common automation markers: the webdriver flag,
// empty plugin/language lists, and a missing chrome runtime object.
func Default() Profile {
	return Profile{
		Name: "default",
		Scripts: []string{
			`Object.defineProperty(navigator, 'webdriver', { get: () => undefined });`,
			`Object.defineProperty(navigator, 'languages', { get: () => ['ko-KR', 'ko', 'en-US', 'en'] });`,
			`Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });`,
			`window.chrome = window.chrome || { runtime: {} };`,
			`const origQuery = window.navigator.permissions.query;
window.navigator.permissions.query = (parameters) => (
	parameters.name === 'notifications'
		? Promise.resolve({ state: Notification.permission })
		: origQuery(parameters)
);`,
		},
	}
}

// None disables fingerprint patching, used in tests and debugging runs.
func None() Profile {
	return Profile{Name: "none"}
}

package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsXPath(t *testing.T) {
	tests := []struct {
		selector string
		want     bool
	}{
		{`//*[@id="booking-btn"]`, true},
		{"/html/body/div[1]/a[2]", true},
		{"(//button)[1]", true},
		{".seat-map .seat", false},
		{`input[type="password"]`, false},
		{"#booking-btn", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsXPath(tt.selector), tt.selector)
	}
}

func TestResolveNodeScript(t *testing.T) {
	xpath := resolveNodeScript(`//*[@id="booking-btn"]`)
	assert.Contains(t, xpath, "document.evaluate")
	assert.Contains(t, xpath, "FIRST_ORDERED_NODE_TYPE")
	assert.NotContains(t, xpath, "querySelector")

	css := resolveNodeScript(".seat-map .seat")
	assert.Contains(t, css, "document.querySelector")
	assert.NotContains(t, css, "document.evaluate")
}

func TestExistsScriptHandlesXPath(t *testing.T) {
	script := existsScript("/html/body/div[1]/a[2]")
	assert.Contains(t, script, "document.evaluate",
		"recorded XPaths must go through path resolution, not querySelector")

	script = existsScript("#booking-btn")
	assert.Contains(t, script, "document.querySelector")
}

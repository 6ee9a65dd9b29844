// Package theme holds the visual theme mode and the effect that mirrors it
// onto a rendered document.
package theme

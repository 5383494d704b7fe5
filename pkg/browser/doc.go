// Package browser drives Chrome over the DevTools protocol. Tabs report
// network quiescence after navigation and forward captured API responses
// to a capture.Listener.
package browser

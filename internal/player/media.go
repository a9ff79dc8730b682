// Package player implements the playback queue consumer, the local media
// scanner and the render/wait scheduler loop running on a display device.
package player

// Media is one playable item, sourced either from the playback queue or
// from a local directory scan.
type Media struct {
	Path      string
	Name      string
	Type      string // queue.TypeImage or queue.TypeVideo
	FromQueue bool
}

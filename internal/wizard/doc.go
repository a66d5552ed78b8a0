// Package wizard drives the seven-step authoring flow from recording
// upload to the section editor, autosaving progress after every mutation.
package wizard

/*
Package tracker contains the playback and editing engine of tunebox.

The Transport owns the composition while the application runs. It plays the
composition by polling: every PollInterval it looks LookAhead seconds past
the playback position and hands the notes starting in that window to a
Backend, with the delay until their onset. The Backend (see package oto)
renders and sounds them. Events toward the UI, such as time updates and
the end of playback, go through a Broker and never block the poll.

The Editor changes the composition in response to user input: toggling notes
on the grid, selecting and deleting them, inserting batches of notes from
external sources and changing track settings. Every change runs through
Transport.Edit, which refuses to run it while the transport plays, so the
poll never sees a composition in the middle of an edit.

Compositions are stored as YAML or JSON files with ReadComposition and
WriteComposition, and can be rendered offline with Render.
*/
package tracker

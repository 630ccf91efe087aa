// Package markdown splits raw card text into prose and code spans. The audio
// planner uses the split to decide voice fan-out and the slide renderer uses
// it for styling, so both sides agreeing on what counts as code is the whole
// point of sharing this package.
package markdown

// Package render draws slide images for card segments. Slides are pure
// functions of their spec: same text, position, and style always produce the
// same image, which is what makes them content-addressable upstream.
package render

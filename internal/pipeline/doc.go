// Package pipeline turns spreadsheet rows into a zip of uniformly sized JPEGs.
//
// Each row names an image URL and an identifier. Run fetches the URL, checks
// the bytes are a well-formed image, letterboxes it onto a fixed-size canvas,
// encodes it as "{id}.jpg" in a locked working area and, once every row has
// been handled, packs the working area into a single archive. Row failures
// are classified and collected in a Summary; they never stop the run.
package pipeline

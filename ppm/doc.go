// Package ppm reads and writes plain (P3) PPM images and provides the row transforms of the image pipeline.
//
// Images are immutable: every transform builds new rows. An image converts to a list of rowpipe units (one per image,
// one item per row) and back.
package ppm

/*
Package image implements a decoder for GLB images.

An image entry begins with three signed little-endian 32-bit values; the width,
the height and a format discriminator. Width and height must both lie within
1 to 65535 inclusive.

With a discriminator of 1 the header is followed by width × height bytes of
palette indices in row-major order, producing a fully opaque image.

With a discriminator of 0 the header is followed by a table of 4 × height bytes
which is skipped, and then a stream of horizontal runs. Each run is an x and y
coordinate and a count, all 32-bit, followed by count bytes of palette indices.
The stream ends with a count of -1 or with a coordinate outside of the image.
Any pixel not covered by a run is transparent.

Any other discriminator means the entry is not an image.
*/
package image

const (
	formatRLE = 0
	formatRaw = 1

	headerSize = 12
	runSize    = 12
	maxSize    = 65535

	// Read buffer for palette indices
	chunkSize = 4096
)

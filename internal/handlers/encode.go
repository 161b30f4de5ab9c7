package handlers

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"

	"github.com/pkg/errors"
)

const pngDataURIPrefix = "data:image/png;base64,"

// encodeDataURI serializes img as a lossless PNG data URI.
func encodeDataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", errors.Wrap(err, "png encode")
	}
	return pngDataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
